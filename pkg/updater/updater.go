// Package updater refreshes stored offers from their vendor pages.
package updater

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/geniass/offers-updater/pkg/extract"
	"github.com/geniass/offers-updater/pkg/offers"
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*extract.Page, error)
}

// Failure is an offer that could not be refreshed during a run.
type Failure struct {
	URL    string
	Reason string
}

type Summary struct {
	RunID string
	// Processed counts offers whose page was fetched.
	Processed int
	Skipped   int
	Failures  []Failure
	// Changed counts offers with at least one changed field.
	Changed    int
	Changes    []offers.FieldChange
	AnyChanged bool
}

type Updater struct {
	fetcher   Fetcher
	extractor *extract.Extractor
	domain    string
	logger    *slog.Logger
}

// New returns an updater for offers hosted on domain or one of its
// subdomains. An empty domain matches every host.
func New(fetcher Fetcher, extractor *extract.Extractor, domain string, logger *slog.Logger) *Updater {
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{
		fetcher:   fetcher,
		extractor: extractor,
		domain:    strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), ".")),
		logger:    logger,
	}
}

// Run processes list one offer at a time, mutating the offers in place.
// Failures are logged and counted but never stop the run; a cancelled ctx
// stops it before the next offer.
func (u *Updater) Run(ctx context.Context, list []*offers.Offer) Summary {
	s := Summary{RunID: uuid.NewString()}
	logger := u.logger.With("run_id", s.RunID)

	for i, o := range list {
		if err := ctx.Err(); err != nil {
			logger.WarnContext(ctx, "Run interrupted", "remaining", len(list)-i, "error", err)
			break
		}

		target := o.URL()
		if target == "" || !u.matches(target) {
			logger.DebugContext(ctx, "Skipping offer", "url", target)
			s.Skipped++
			continue
		}

		offerLogger := logger.With("url", target)
		page, err := u.fetcher.Fetch(ctx, target)
		if err != nil {
			offerLogger.WarnContext(ctx, "Error fetching offer page", "error", err)
			s.Failures = append(s.Failures, Failure{URL: target, Reason: err.Error()})
			continue
		}
		s.Processed++

		c := u.extractor.Extract(page)
		if !c.Price.Valid {
			offerLogger.WarnContext(ctx, "Could not find a valid price on page")
			s.Failures = append(s.Failures, Failure{URL: target, Reason: "no valid price"})
		} else {
			offerLogger.DebugContext(ctx, "Extracted price", "price", c.Price.Decimal.String(), "source", c.PriceSource)
		}

		changed, changes := offers.Reconcile(o, c)
		for _, fc := range changes {
			offerLogger.InfoContext(ctx, "Updating "+fc.Field, "from", display(fc.Old), "to", fc.New)
		}
		if changed {
			s.Changed++
			s.Changes = append(s.Changes, changes...)
			s.AnyChanged = true
		}
	}

	logger.InfoContext(ctx, "Run finished",
		"processed", s.Processed,
		"skipped", s.Skipped,
		"failed", len(s.Failures),
		"changed", s.Changed,
	)
	return s
}

// matches reports whether rawURL is hosted on the target domain.
func (u *Updater) matches(rawURL string) bool {
	if u.domain == "" {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return host == u.domain || strings.HasSuffix(host, "."+u.domain)
}

func display(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
