package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/jawher/mow.cli"

	"github.com/geniass/offers-updater/pkg/config"
	"github.com/geniass/offers-updater/pkg/extract"
	"github.com/geniass/offers-updater/pkg/history"
	dataio "github.com/geniass/offers-updater/pkg/io"
	"github.com/geniass/offers-updater/pkg/logx"
	"github.com/geniass/offers-updater/pkg/report"
	"github.com/geniass/offers-updater/pkg/scraper"
	"github.com/geniass/offers-updater/pkg/updater"
)

type options struct {
	offersPath  string
	domain      string
	profilePath string
	historyPath string
	cacheDir    string
	// stdout receives the run summary.
	stdout io.Writer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR", err)
		os.Exit(1)
	}
	logger := logx.New(cfg.LogOptions())

	app := cli.App("update-offers", "Refresh stored offer prices from their vendor pages")
	offersPath := app.StringOpt("o offers", cfg.OffersPath, "offers store to update")
	domain := app.StringOpt("d domain", cfg.TargetDomain, "only refresh offers hosted on this domain or its subdomains")
	profilePath := app.StringOpt("p profile", cfg.ExtractProfile, "YAML extraction profile; the built-in profile is used when empty")
	historyPath := app.StringOpt("history", cfg.HistoryDB, "SQLite database to append price changes to; disabled when empty")
	cacheDir := app.StringOpt("cache", cfg.CacheDir, "cache directory")

	app.Action = func() {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err := run(ctx, cfg, logger, options{
			offersPath:  *offersPath,
			domain:      *domain,
			profilePath: *profilePath,
			historyPath: *historyPath,
			cacheDir:    *cacheDir,
			stdout:      os.Stdout,
		})
		if errors.Is(err, dataio.ErrStoreNotFound) {
			logger.Error("Offers store not found", "path", *offersPath, "error", err)
			cli.Exit(1)
		} else if err != nil {
			logger.Error("Update failed", "error", err)
			cli.Exit(1)
		}
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("Invalid arguments", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, opts options) error {
	list, err := dataio.Load(opts.offersPath)
	if err != nil {
		return err
	}

	profile, err := extract.LoadProfile(opts.profilePath)
	if err != nil {
		return err
	}

	sc := cfg.ScraperConfig()
	sc.CacheDir = opts.cacheDir
	u := updater.New(
		scraper.NewScraper(sc, logger),
		extract.NewExtractor(profile, logger),
		opts.domain,
		logger,
	)

	logger.Info("Updating offers", "path", opts.offersPath, "offers", len(list), "domain", opts.domain, "profile", profile.Name)
	summary := u.Run(ctx, list)

	if err := dataio.Flush(opts.offersPath, list, summary.AnyChanged); err != nil {
		printSummary(opts.stdout, logger, report.SummaryContext{Summary: summary})
		return err
	}

	if summary.AnyChanged && opts.historyPath != "" {
		recordHistory(ctx, logger, opts.historyPath, summary)
	}

	out := report.SummaryContext{Summary: summary}
	if summary.AnyChanged {
		out.StorePath = opts.offersPath
	}
	printSummary(opts.stdout, logger, out)
	return nil
}

// recordHistory is best effort: the store is already written.
func recordHistory(ctx context.Context, logger *slog.Logger, path string, summary updater.Summary) {
	rec, err := history.Open(path)
	if err != nil {
		logger.Warn("Could not open price history", "path", path, "error", err)
		return
	}
	defer rec.Close()

	// the store is on disk, so record even when the run was interrupted
	if err := rec.Record(context.WithoutCancel(ctx), summary.RunID, summary.Changes); err != nil {
		logger.Warn("Could not record price history", "path", path, "error", err)
	}
}

func printSummary(w io.Writer, logger *slog.Logger, c report.SummaryContext) {
	if err := report.RenderSummary(w, c); err != nil {
		logger.Error("Could not render summary", "error", err)
	}
}
