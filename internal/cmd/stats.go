package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/masahif/campuscrawl/internal/model"
	"github.com/masahif/campuscrawl/internal/pipeline"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline progress and classification statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil || a == nil {
		return err
	}
	defer a.Close()

	store, err := a.openStore()
	if err != nil {
		return err
	}

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load statistics: %w", err)
	}
	printStats(a, stats)

	runs := newTable("STAGE", "LAST RUN", "AT")
	for _, stage := range []struct{ name, runKey, atKey string }{
		{"extract", pipeline.MetaLastExtractRun, pipeline.MetaLastExtractAt},
		{"classify", pipeline.MetaLastClassifyRun, pipeline.MetaLastClassifyAt},
	} {
		runID, err := store.GetMeta(cmd.Context(), stage.runKey)
		if err != nil {
			return err
		}
		at, err := store.GetMeta(cmd.Context(), stage.atKey)
		if err != nil {
			return err
		}
		if runID == "" {
			runID, at = "-", "-"
		}
		runs.add(stage.name, runID, at)
	}
	fmt.Fprintln(a.out)
	runs.render(a.out)
	return nil
}

func printStats(a *app, s *model.Stats) {
	fmt.Fprintf(a.out, "Pages:        %d\n", s.TotalPages)
	fmt.Fprintf(a.out, "Extracted:    %d\n", s.ExtractedPages)
	fmt.Fprintf(a.out, "Classified:   %d\n", s.ClassifiedPages)
	fmt.Fprintf(a.out, "Unclassified: %d\n", s.Unclassified)

	if len(s.Categories) > 0 {
		fmt.Fprintln(a.out)
		t := newTable("CATEGORY", "LABEL", "COUNT", "AVG CONFIDENCE")
		for _, c := range s.Categories {
			t.add(c.Category, c.Category.Label(), c.Count, fmt.Sprintf("%.2f", c.AvgConfidence))
		}
		t.render(a.out)
	}

	if len(s.Sentiments) > 0 {
		fmt.Fprintln(a.out)
		t := newTable("SENTIMENT", "COUNT", "AVG SCORE")
		for _, st := range s.Sentiments {
			t.add(st.Sentiment, st.Count, fmt.Sprintf("%.2f", st.AvgScore))
		}
		t.render(a.out)
	}

	if len(s.Languages) > 0 {
		fmt.Fprintln(a.out)
		t := newTable("LANGUAGE", "COUNT")
		for _, l := range s.Languages {
			t.add(l.Language, l.Count)
		}
		t.render(a.out)
	}
}
