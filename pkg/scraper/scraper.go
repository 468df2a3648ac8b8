// Package scraper fetches vendor product pages.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gocolly/colly/v2"

	"github.com/geniass/offers-updater/pkg/extract"
)

var ErrEmptyBody = errors.New("empty response body")

func NewScraper(cfg Config, logger *slog.Logger) *Scraper {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	options := []colly.CollectorOption{
		colly.UserAgent(cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
		// the same offer URL is fetched on every run
		colly.AllowURLRevisit(),
	}
	if cfg.CacheDir != "" {
		options = append(options, colly.CacheDir(cfg.CacheDir))
	}

	c := colly.NewCollector(options...)
	c.SetRequestTimeout(cfg.Timeout)

	return &Scraper{colly: c, logger: logger}
}

// Fetch downloads url and parses it into a page. Network errors, timeouts and
// non-2xx statuses are all returned as errors.
func (s *Scraper) Fetch(ctx context.Context, url string) (*extract.Page, error) {
	collector := s.colly.Clone()
	collector.Context = ctx

	var page *extract.Page
	var fetchErr error

	collector.OnRequest(func(r *colly.Request) {
		s.logger.DebugContext(ctx, "Visiting", "url", r.URL.String())
	})

	collector.OnResponse(func(r *colly.Response) {
		if len(bytes.TrimSpace(r.Body)) == 0 {
			fetchErr = fmt.Errorf("fetching %s: %w", url, ErrEmptyBody)
			return
		}
		p, err := extract.NewPage(r.Request.URL.String(), r.Body)
		if err != nil {
			fetchErr = err
			return
		}
		page = p
	})

	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("fetching %s: status %d: %w", url, r.StatusCode, err)
	})

	if err := collector.Visit(url); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("fetching %s: %w", url, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if page == nil {
		return nil, fmt.Errorf("fetching %s: no response", url)
	}
	return page, nil
}
