package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/masahif/campuscrawl/internal/model"
	"github.com/masahif/campuscrawl/internal/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the per-language statistical models from stored content",
	Long: `Train labels stored content with the rule pass and builds one model
per language. Models live in memory only, so this is mainly useful to
inspect how much training data is available; classify trains on its own.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil || a == nil {
		return err
	}
	defer a.Close()

	if _, err := a.openStore(); err != nil {
		return err
	}

	report, err := a.coordinator().Train(cmd.Context())
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	printTraining(a, report)
	return nil
}

func printTraining(a *app, r *training.Report) {
	fmt.Fprintf(a.out, "Training %s: %s\n", r.RunID, r.Status)
	fmt.Fprintf(a.out, "  Source items: %d\n", r.Source)
	fmt.Fprintf(a.out, "  Valid items:  %d\n", r.Valid)

	switch r.Status {
	case training.StatusNoSourceData:
		fmt.Fprintln(a.out, "  No extracted content in the database. Run extract first.")
		return
	case training.StatusNoValidData:
		fmt.Fprintln(a.out, "  No item has a URL, a title and enough text.")
		return
	case training.StatusNoConfidentLabels:
		fmt.Fprintln(a.out, "  No item was labelled confidently by the rules; no model was built.")
	}

	langs := make([]model.Language, 0, len(r.Languages))
	for lang := range r.Languages {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })

	fmt.Fprintln(a.out)
	t := newTable("LANGUAGE", "ITEMS", "LABELLED", "MODEL", "CATEGORIES")
	for _, lang := range langs {
		lr := r.Languages[lang]
		status := "-"
		if lr.Trained {
			status = "trained"
		}
		t.add(lang, lr.Items, lr.Labelled, status, formatCategories(lr.Categories))
	}
	t.render(a.out)
}

func formatCategories(counts map[model.Category]int) string {
	cats := make([]model.Category, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	out := ""
	for i, c := range cats {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%d", c, counts[c])
	}
	return out
}
