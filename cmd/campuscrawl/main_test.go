package main

import (
	"context"
	"os"
	"testing"

	"github.com/masahif/campuscrawl/internal/cmd"
)

func TestVersionVariables(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty string")
	}
	if BuildTime == "" {
		t.Error("BuildTime should not be empty string")
	}
}

func TestMainLogic(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	// The same sequence main() runs, without os.Exit
	cmd.SetVersionInfo(Version, BuildTime)

	for _, args := range [][]string{
		{"campuscrawl", "--help"},
		{"campuscrawl", "--version"},
		{"campuscrawl", "classify", "--help"},
	} {
		os.Args = args
		if err := cmd.ExecuteContext(context.Background()); err != nil {
			t.Errorf("%v returned error: %v", args[1:], err)
		}
	}
}
