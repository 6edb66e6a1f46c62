package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/masahif/campuscrawl/internal/config"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract structured content from stored pages",
	Long: `Extract fetches every stored page that has no structured content yet,
decomposes it into headers, paragraphs, links, images and lists, and
removes pages that cannot be extracted.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

func init() {
	defaults := config.DefaultConfig().Extract
	flags := extractCmd.Flags()
	flags.IntP("limit", "l", defaults.Limit, "Maximum number of pages to process (0 = all)")
	flags.Duration("item-delay", defaults.ItemDelay, "Pause between pages")

	bindFlags(flags, []flagBinding{
		{"extract.limit", "limit"},
		{"extract.item_delay", "item-delay"},
	})
}

func runExtract(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil || a == nil {
		return err
	}
	defer a.Close()

	if _, err := a.openStore(); err != nil {
		return err
	}

	report, err := a.pipeline().ExtractPending(cmd.Context(), a.cfg.Extract.Limit)
	if report != nil {
		fmt.Fprintf(a.out, "Extraction %s\n", report.RunID)
		fmt.Fprintf(a.out, "  Processed: %d\n", report.Processed)
		fmt.Fprintf(a.out, "  Extracted: %d\n", report.Extracted)
		fmt.Fprintf(a.out, "  Purged:    %d\n", report.Purged)
		printItemErrors(a, report.Errors)
	}
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	return nil
}
