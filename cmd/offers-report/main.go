package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	cli "github.com/jawher/mow.cli"

	"github.com/geniass/offers-updater/pkg/config"
	"github.com/geniass/offers-updater/pkg/history"
	dataio "github.com/geniass/offers-updater/pkg/io"
	"github.com/geniass/offers-updater/pkg/logx"
	"github.com/geniass/offers-updater/pkg/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR", err)
		os.Exit(1)
	}
	logger := logx.New(cfg.LogOptions())

	app := cli.App("offers-report", "Render the stored offers as a markdown table")
	offersPath := app.StringOpt("o offers", cfg.OffersPath, "offers store to read")
	outputArg := app.StringOpt("output", "-", "file to write the report to; '-' writes to stdout")
	titleArg := app.StringOpt("title", "Offers", "report heading")
	historyPath := app.StringOpt("history", cfg.HistoryDB, "SQLite price history to list recent changes from")
	recentArg := app.IntOpt("recent", 10, "number of recent changes to list")

	app.Action = func() {
		list, err := dataio.Load(*offersPath)
		if err != nil {
			logger.Error("Could not load offers", "path", *offersPath, "error", err)
			cli.Exit(1)
		}

		c := report.OffersContext{
			Title:       *titleArg,
			LastUpdated: lastModified(*offersPath),
			Offers:      report.NewOfferRows(list),
		}
		if *historyPath != "" && *recentArg > 0 {
			c.Recent = recentChanges(logger, *historyPath, *recentArg)
		}

		err = renderTo(*outputArg, func(w io.Writer) error {
			return report.RenderOffers(w, c)
		})
		if err != nil {
			logger.Error("Could not render report", "error", err)
			cli.Exit(1)
		}
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("Invalid arguments", "error", err)
		os.Exit(1)
	}
}

func lastModified(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Now()
	}
	return info.ModTime()
}

func recentChanges(logger *slog.Logger, path string, limit int) []history.Entry {
	rec, err := history.Open(path)
	if err != nil {
		logger.Warn("Could not open price history, skipping recent changes", "path", path, "error", err)
		return nil
	}
	defer rec.Close()

	entries, err := rec.Recent(context.Background(), limit)
	if err != nil {
		logger.Warn("Could not read price history", "path", path, "error", err)
		return nil
	}
	return entries
}

func renderTo(output string, renderFunc func(w io.Writer) error) error {
	if output == "-" {
		return renderFunc(os.Stdout)
	}

	if err := os.MkdirAll(filepath.Dir(output), os.ModeDir|0775); err != nil {
		return err
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := renderFunc(f); err != nil {
		return err
	}
	return f.Close()
}
