package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/masahif/campuscrawl/internal/config"
	"github.com/masahif/campuscrawl/internal/pipeline"
	"github.com/masahif/campuscrawl/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find pages through web search and fetch their content",
	Long: `Search runs one query, the wide query list (--wide) or a category
list (--category news|announcements|events|academic|student), fetches
every hit and keeps pages with real content. Without a query the base
query is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	defaults := config.DefaultConfig().Search
	flags := searchCmd.Flags()
	flags.IntP("max-results", "n", defaults.MaxResults, "Maximum number of pages to keep")
	flags.Int("per-query", defaults.PerQuery, "Results taken from each query of a multi-query search")
	flags.Bool("wide", false, "Run the wide query list")
	flags.String("category", "", "Run the query list of one category")
	flags.Bool("save", false, "Store fetched pages for extraction")

	bindFlags(flags, []flagBinding{
		{"search.max_results", "max-results"},
		{"search.per_query", "per-query"},
		{"search.save", "save"},
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil || a == nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Search
	wide, _ := cmd.Flags().GetBool("wide")
	category, _ := cmd.Flags().GetString("category")

	known := make([]search.Result, 0, len(cfg.KnownSources))
	for _, k := range cfg.KnownSources {
		known = append(known, search.Result{Title: k.Title, URL: k.URL, Snippet: k.Snippet})
	}
	client := search.NewClient(a.engine, search.Options{
		Endpoint:         cfg.Endpoint,
		FallbackEndpoint: cfg.FallbackEndpoint,
		KnownSources:     known,
		QueryDelay:       cfg.QueryDelay,
		ItemDelay:        cfg.ItemDelay,
	})

	ctx := cmd.Context()
	var results []search.Result
	switch {
	case category != "":
		queries, err := search.CategoryQueries(cfg.BaseQuery, category, cfg.ShortNames...)
		if err != nil {
			return err
		}
		results, err = client.SearchMany(ctx, queries, cfg.MaxResults, cfg.MaxResults*2)
		if err != nil {
			return fmt.Errorf("category search failed: %w", err)
		}
	case wide:
		queries := search.Queries(cfg.BaseQuery, cfg.ShortNames...)
		results, err = client.SearchMany(ctx, queries, cfg.PerQuery, 0)
		if err != nil {
			return fmt.Errorf("wide search failed: %w", err)
		}
	default:
		query := cfg.BaseQuery
		if len(args) == 1 {
			query = args[0]
		}
		results, err = client.Search(ctx, query, cfg.MaxResults)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Found %d results\n", len(results))
	if len(results) == 0 {
		return nil
	}

	pages, err := client.Ingest(ctx, results, cfg.MaxResults)
	if err != nil {
		return fmt.Errorf("failed to fetch search results: %w", err)
	}

	fmt.Fprintf(a.out, "Fetched %d pages with content\n\n", len(pages))
	t := newTable("SOURCE", "TITLE", "CHARS", "QUERY")
	for _, p := range pages {
		t.add(p.Source, truncate(strings.TrimSpace(p.Title), 60), len([]rune(p.Content)), p.Result.Query)
	}
	t.render(a.out)

	if !cfg.Save {
		return nil
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	report, err := pipeline.New(store, nil, nil, pipeline.Options{}).SaveIngested(ctx, pages)
	if err != nil {
		return fmt.Errorf("failed to save search pages: %w", err)
	}
	fmt.Fprintf(a.out, "\nSaved %d new pages (%d already stored, %d failed)\n", report.Saved, report.Existing, report.Failed)
	return nil
}
