package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/masahif/campuscrawl/internal/config"
	"github.com/masahif/campuscrawl/internal/crawler"
	"github.com/masahif/campuscrawl/internal/pipeline"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <start-url>",
	Short: "Crawl the target domain breadth-first and report what it links to",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiscover,
}

func init() {
	defaults := config.DefaultConfig().Crawl
	flags := discoverCmd.Flags()
	flags.Int("max-depth", defaults.MaxDepth, "Maximum link hops from the start page")
	flags.Int("max-pages", defaults.MaxPages, "Maximum number of pages to scan")
	flags.Duration("page-delay", defaults.PageDelay, "Pause between pages")
	flags.Bool("save", false, "Store discovered URLs for extraction")

	bindFlags(flags, []flagBinding{
		{"crawl.max_depth", "max-depth"},
		{"crawl.max_pages", "max-pages"},
		{"crawl.page_delay", "page-delay"},
		{"crawl.save", "save"},
	})
}

func runDiscover(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil || a == nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	c := crawler.NewDomainCrawler(a.engine, crawler.Options{
		Domain:    cfg.Domain,
		PageDelay: cfg.Crawl.PageDelay,
	})

	result, err := c.Discover(cmd.Context(), args[0], cfg.Crawl.MaxDepth, cfg.Crawl.MaxPages)
	if result == nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	printDiscovery(a, result)
	if err != nil {
		return fmt.Errorf("discovery interrupted: %w", err)
	}

	if !cfg.Crawl.Save {
		return nil
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	report, err := pipeline.New(store, nil, nil, pipeline.Options{}).SaveDiscovered(cmd.Context(), result.DiscoveredURLs)
	if err != nil {
		return fmt.Errorf("failed to save discovered URLs: %w", err)
	}
	fmt.Fprintf(a.out, "\nSaved %d new URLs (%d already stored, %d failed)\n", report.Saved, report.Existing, report.Failed)
	return nil
}

func printDiscovery(a *app, r *crawler.Result) {
	fmt.Fprintf(a.out, "Discovery of %s (domain %s)\n", r.StartURL, r.Domain)
	fmt.Fprintf(a.out, "  Run:        %s\n", r.RunID)
	fmt.Fprintf(a.out, "  Visited:    %d pages\n", len(r.Visited))
	fmt.Fprintf(a.out, "  Discovered: %d in-domain URLs\n", len(r.DiscoveredURLs))
	fmt.Fprintf(a.out, "  Total URLs: %d\n", r.TotalURLs)
	fmt.Fprintf(a.out, "  Failures:   %d\n", len(r.Failures))
	fmt.Fprintf(a.out, "  Duration:   %s\n", r.Duration.Round(time.Millisecond))

	if len(r.Domains) > 0 {
		fmt.Fprintf(a.out, "\nDomains: %s\n", strings.Join(r.Domains, ", "))
	}
	if len(r.Subdomains) > 0 {
		fmt.Fprintf(a.out, "Subdomains:\n")
		for _, s := range r.Subdomains {
			fmt.Fprintf(a.out, "  %s\n", s)
		}
	}

	if len(r.Visited) > 0 {
		fmt.Fprintln(a.out)
		t := newTable("DEPTH", "URL")
		for _, v := range r.Visited {
			t.add(v.Depth, v.URL)
		}
		t.render(a.out)
	}

	for _, f := range r.Failures {
		fmt.Fprintf(a.out, "  failed: %s (%s)\n", f.URL, f.Error)
	}
}
