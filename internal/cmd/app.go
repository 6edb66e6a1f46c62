package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/masahif/campuscrawl/internal/classifier"
	"github.com/masahif/campuscrawl/internal/config"
	"github.com/masahif/campuscrawl/internal/extract"
	"github.com/masahif/campuscrawl/internal/fetch"
	"github.com/masahif/campuscrawl/internal/pipeline"
	"github.com/masahif/campuscrawl/internal/storage"
	"github.com/masahif/campuscrawl/internal/training"
)

// app holds the components a command run needs. Storage is opened
// lazily so that commands without persistence never touch the database.
type app struct {
	cfg    *config.Config
	out    io.Writer
	engine *fetch.Engine
	static *fetch.StaticFetcher
	store  *storage.SQLiteStorage
	models *classifier.ModelStore
	logs   io.Closer
}

// newApp loads the configuration and sets up logging and the fetch
// engine. It returns nil when --show-config was handled.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, done, err := loadConfig(cmd)
	if err != nil || done {
		return nil, err
	}

	logs, err := setupLogging(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		out:    cmd.OutOrStdout(),
		models: classifier.NewModelStore(),
		logs:   logs,
	}
	a.engine, a.static = newEngine(cfg)
	return a, nil
}

// newEngine builds the static tier and, when enabled, the headless tier
// behind one engine.
func newEngine(cfg *config.Config) (*fetch.Engine, *fetch.StaticFetcher) {
	username, password := cfg.Fetch.BasicAuthCredentials()
	static := fetch.NewStaticFetcher(fetch.StaticOptions{
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		Timeout:        cfg.Fetch.Timeout,
		MaxRedirects:   cfg.Fetch.MaxRedirects,
		Username:       username,
		Password:       password,
	})

	strategies := []fetch.Strategy{{
		Fetcher: static,
		Retry:   fetch.RetryPolicy{MaxAttempts: cfg.Fetch.StaticAttempts, BaseDelay: cfg.Fetch.StaticBackoff},
	}}

	if cfg.Fetch.BrowserEnabled {
		renderer := fetch.NewChromeRenderer(fetch.BrowserOptions{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     cfg.Fetch.BrowserTimeout,
			SettleDelay: cfg.Fetch.SettleDelay,
			ExecPath:    cfg.Fetch.ChromePath,
		})
		strategies = append(strategies, fetch.Strategy{
			Fetcher: fetch.NewBrowserFetcher(renderer),
			Retry:   fetch.RetryPolicy{MaxAttempts: cfg.Fetch.BrowserAttempts, BaseDelay: cfg.Fetch.BrowserBackoff},
		})
	}

	return fetch.NewEngine(cfg.Fetch.CacheTTL, strategies...), static
}

// openStore opens the database, creating its directory when needed.
func (a *app) openStore() (*storage.SQLiteStorage, error) {
	if a.store != nil {
		return a.store, nil
	}
	if err := ensureDatabaseDir(a.cfg.DatabasePath); err != nil {
		return nil, err
	}
	store, err := storage.NewSQLiteStorage(a.cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", a.cfg.DatabasePath, err)
	}
	a.store = store
	return store, nil
}

func (a *app) extractor() *extract.Extractor {
	return extract.New(a.engine, a.cfg.Domain)
}

func (a *app) classifier() *classifier.Classifier {
	return classifier.New(a.store, a.models)
}

func (a *app) coordinator() *training.Coordinator {
	return training.NewCoordinator(a.store, a.models)
}

func (a *app) pipeline() *pipeline.Pipeline {
	return pipeline.New(a.store, a.extractor(), a.classifier(), pipeline.Options{
		ExtractDelay:  a.cfg.Extract.ItemDelay,
		ClassifyDelay: a.cfg.Classify.ItemDelay,
	})
}

// Close releases the database, idle connections and the log file.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("Failed to close database", "error", err)
		}
	}
	if a.static != nil {
		a.static.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
