// Package cmd provides the command-line interface for campuscrawl.
// It handles command parsing, configuration loading and wiring of the
// crawl, search, extraction and classification stages.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/campuscrawl/internal/config"
	"github.com/masahif/campuscrawl/internal/logging"
)

const (
	envPrefix      = "CC"
	configBaseName = "campuscrawl"
)

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "campuscrawl",
	Short: "University web content acquisition and classification",
	Long: `campuscrawl discovers pages of a university web domain, extracts
their structured content and classifies it by category, sentiment and
language.

Typical flow:
  campuscrawl discover https://www.gtu.edu.tr --save
  campuscrawl extract
  campuscrawl classify
  campuscrawl stats`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the command tree with ctx; cancelling it stops
// the running command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// flagBinding maps a viper key to a flag name.
type flagBinding struct {
	viperKey string
	flagName string
}

type flagSetBindings struct {
	flags    *pflag.FlagSet
	bindings []flagBinding
}

// registered keeps every binding so they can be re-applied after a
// viper reset.
var registered []flagSetBindings

// bindFlags binds each flag of flags to its viper key.
func bindFlags(flags *pflag.FlagSet, bindings []flagBinding) {
	registered = append(registered, flagSetBindings{flags: flags, bindings: bindings})
	applyBindings(flags, bindings)
}

func applyBindings(flags *pflag.FlagSet, bindings []flagBinding) {
	for _, bind := range bindings {
		if err := viper.BindPFlag(bind.viperKey, flags.Lookup(bind.flagName)); err != nil {
			// Log the error but continue - non-critical for operation
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
}

// rebindFlags re-applies all registered bindings.
func rebindFlags() {
	for _, r := range registered {
		applyBindings(r.flags, r.bindings)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is ./campuscrawl.yml)")
	flags.Bool("show-config", false, "Display current configuration in YAML format and exit")

	flags.StringP("database", "d", defaults.DatabasePath, "Path to SQLite database file")
	flags.String("domain", defaults.Domain, "Registrable domain to stay in (e.g. gtu.edu.tr)")
	flags.String("log-level", defaults.Log.Level, "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Also write logs to this file (rotated by size)")

	// Fetch tuning
	flags.StringP("user-agent", "u", defaults.Fetch.UserAgent, "HTTP User-Agent header")
	flags.DurationP("timeout", "t", defaults.Fetch.Timeout, "Static fetch timeout")
	flags.Bool("browser", defaults.Fetch.BrowserEnabled, "Fall back to headless Chrome when static fetching fails")
	flags.Duration("browser-timeout", defaults.Fetch.BrowserTimeout, "Headless render timeout")
	flags.Duration("cache-ttl", defaults.Fetch.CacheTTL, "Keep fetched documents this long in memory (0 disables)")
	flags.String("auth-username", "", "Username for basic authentication")
	flags.String("auth-password", "", "Password for basic authentication")

	bindFlags(flags, []flagBinding{
		{"database_path", "database"},
		{"domain", "domain"},
		{"log.level", "log-level"},
		{"log.file", "log-file"},
		{"fetch.user_agent", "user-agent"},
		{"fetch.timeout", "timeout"},
		{"fetch.browser_enabled", "browser"},
		{"fetch.browser_timeout", "browser-timeout"},
		{"fetch.cache_ttl", "cache-ttl"},
		{"fetch.basic_auth.username", "auth-username"},
		{"fetch.basic_auth.password", "auth-password"},
	})

	rootCmd.AddCommand(discoverCmd, searchCmd, extractCmd, trainCmd, classifyCmd, statsCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(configBaseName)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// Every key needs a default so that AutomaticEnv can see it
	if err := setDefaults(config.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to register defaults: %v\n", err)
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every leaf of cfg as a viper default.
func setDefaults(cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	setDefaultTree("", tree)
	return nil
}

func setDefaultTree(prefix string, tree map[string]any) {
	for key, value := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			setDefaultTree(full, sub)
			continue
		}
		viper.SetDefault(full, value)
	}
}

// loadConfig builds the effective configuration. It returns done=true
// when --show-config was handled and the command should stop.
func loadConfig(cmd *cobra.Command) (cfg *config.Config, done bool, err error) {
	cfg = config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Fetch.Basic != nil && cfg.Fetch.Basic.Username == "" && cfg.Fetch.Basic.UsernameEnv == "" {
		cfg.Fetch.Basic = nil
	}

	if showConfig, _ := cmd.Flags().GetBool("show-config"); showConfig {
		return cfg, true, showCurrentConfig(cmd.OutOrStdout(), cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, false, nil
}

func showCurrentConfig(w io.Writer, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	// Validate configuration before showing it
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Displaying configuration anyway...\n\n")
	}

	shown := *cfg
	if shown.Fetch.Basic != nil {
		masked := *shown.Fetch.Basic
		if masked.Password != "" {
			masked.Password = "********"
		}
		shown.Fetch.Basic = &masked
	}

	yamlData, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(w, "# Current campuscrawl configuration\n")
	fmt.Fprintf(w, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "# Configuration file search paths: ./%s.yml\n", configBaseName)
	fmt.Fprintf(w, "# Environment variables prefix: %s_\n\n", envPrefix)

	fmt.Fprint(w, string(yamlData))

	fmt.Fprintf(w, "\n# Configuration source priority:\n")
	fmt.Fprintf(w, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(w, "# 2. Environment variables (%s_ prefix)\n", envPrefix)
	fmt.Fprintf(w, "# 3. Configuration file (%s.yml)\n", configBaseName)
	fmt.Fprintf(w, "# 4. Default values (lowest priority)\n")

	return nil
}

// setupLogging installs the default logger for a command run.
func setupLogging(cfg *config.Config) (io.Closer, error) {
	closer, err := logging.SetDefault(logging.FromConfig(cfg.Log))
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return closer, nil
}

func ensureDatabaseDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
