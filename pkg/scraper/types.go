package scraper

import (
	"log/slog"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultTimeout   = 20 * time.Second
)

type Config struct {
	UserAgent string
	Timeout   time.Duration
	// CacheDir can be empty to disable caching.
	CacheDir string
}

type Scraper struct {
	colly  *colly.Collector
	logger *slog.Logger
}
