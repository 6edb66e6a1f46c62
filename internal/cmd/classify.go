package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/masahif/campuscrawl/internal/config"
	"github.com/masahif/campuscrawl/internal/model"
	"github.com/masahif/campuscrawl/internal/pipeline"
	"github.com/masahif/campuscrawl/internal/training"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [page-id]",
	Short: "Classify one page or every extracted page without a classification",
	Long: `Classify assigns a category, a sentiment and keywords to extracted
pages. The statistical models are trained from the database first unless
--no-train is given, in which case only the rules are used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	defaults := config.DefaultConfig().Classify
	flags := classifyCmd.Flags()
	flags.IntP("limit", "l", defaults.Limit, "Maximum number of pages to classify (0 = all)")
	flags.Duration("item-delay", defaults.ItemDelay, "Pause between pages")
	flags.Bool("no-train", false, "Skip training and classify with the rules only")

	bindFlags(flags, []flagBinding{
		{"classify.limit", "limit"},
		{"classify.item_delay", "item-delay"},
	})
}

func runClassify(cmd *cobra.Command, args []string) error {
	var pageID int64
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid page id %q", args[0])
		}
		pageID = id
	}

	a, err := newApp(cmd)
	if err != nil || a == nil {
		return err
	}
	defer a.Close()

	if _, err := a.openStore(); err != nil {
		return err
	}

	noTrain, _ := cmd.Flags().GetBool("no-train")
	if a.cfg.Classify.TrainFirst && !noTrain {
		report, err := a.coordinator().Train(cmd.Context())
		if err != nil {
			return fmt.Errorf("training failed: %w", err)
		}
		if report.Status != training.StatusOK {
			fmt.Fprintf(a.out, "Training: %s, classifying with rules only\n", report.Status)
		} else {
			fmt.Fprintf(a.out, "Training: models for %s\n", strings.Join(languageNames(a.models.Languages()), ", "))
		}
	}

	if pageID != 0 {
		c, err := a.classifier().Classify(cmd.Context(), pageID)
		if err != nil {
			return err
		}
		printClassification(a, c)
		return nil
	}

	report, err := a.pipeline().ClassifyPending(cmd.Context(), a.cfg.Classify.Limit)
	if report != nil {
		printClassifyReport(a, report)
	}
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}
	return nil
}

func printClassification(a *app, c *model.Classification) {
	fmt.Fprintf(a.out, "Page %d\n", c.PageID)
	fmt.Fprintf(a.out, "  Category:   %s (%s)\n", c.Category, c.Category.Label())
	fmt.Fprintf(a.out, "  Confidence: %.2f\n", c.Confidence)
	fmt.Fprintf(a.out, "  Method:     %s\n", c.Method)
	fmt.Fprintf(a.out, "  Sentiment:  %s (%.2f)\n", c.Sentiment, c.SentimentScore)
	fmt.Fprintf(a.out, "  Language:   %s\n", c.Language)
	fmt.Fprintf(a.out, "  Tokens:     %d\n", c.TokenCount)

	if len(c.Keywords) > 0 {
		terms := make([]string, len(c.Keywords))
		for i, k := range c.Keywords {
			terms[i] = k.Term
		}
		fmt.Fprintf(a.out, "  Keywords:   %s\n", strings.Join(terms, ", "))
	}
}

func printClassifyReport(a *app, r *pipeline.ClassifyReport) {
	fmt.Fprintf(a.out, "Classification %s\n", r.RunID)
	fmt.Fprintf(a.out, "  Total:     %d\n", r.Total)
	fmt.Fprintf(a.out, "  Succeeded: %d\n", r.Succeeded)
	fmt.Fprintf(a.out, "  Failed:    %d\n", r.Failed)
	printItemErrors(a, r.Errors)
}

func printItemErrors(a *app, errs []pipeline.ItemError) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(a.out)
	t := newTable("PAGE", "URL", "REASON")
	for _, e := range errs {
		t.add(e.PageID, truncate(e.URL, 70), truncate(e.Reason, 80))
	}
	t.render(a.out)
}

func languageNames(langs []model.Language) []string {
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = string(l)
	}
	return out
}
