package extract

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/geniass/offers-updater/pkg/price"
)

// Strategy is one self-contained way of finding evidence on a page.
type Strategy interface {
	Name() string
	// Provides reports the fields Attempt may fill.
	Provides() Field
	// Attempt returns the evidence found on p; ok is false when there is none.
	Attempt(p *Page) (c Candidate, ok bool)
}

// Extractor runs its strategies in priority order. The first strategy that
// yields a validated price wins; later strategies only fill fields that are
// still absent.
type Extractor struct {
	strategies []Strategy
	logger     *slog.Logger
}

func NewExtractor(profile *Profile, logger *slog.Logger) *Extractor {
	v := price.NewValidator(profile.MinPrice)
	return &Extractor{
		strategies: []Strategy{
			structuredData{validator: v, logger: logger},
			attributeBlocks{blocks: profile.AttributeBlocks, validator: v},
			cssText{selectors: profile.PriceSelectors, validator: v, logger: logger},
			disambiguation{validator: v, logger: logger},
			headingTitle{selectors: profile.TitleSelectors},
			oldPriceLookup{selectors: profile.OldPriceSelectors, validator: v},
		},
		logger: logger,
	}
}

// NewExtractorWith builds an extractor from an explicit strategy chain.
func NewExtractorWith(logger *slog.Logger, strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies, logger: logger}
}

// Extract never fails: a page without a trustworthy price yields a candidate
// with an invalid Price.
func (e *Extractor) Extract(p *Page) Candidate {
	var c Candidate
	for _, s := range e.strategies {
		if c.filled()&s.Provides() == s.Provides() {
			continue
		}
		part, ok := s.Attempt(p)
		if !ok {
			e.logger.Debug("strategy found nothing", "strategy", s.Name(), "url", p.URL)
			continue
		}
		c = c.Merge(part, s.Name())
	}

	if c.OldPrice.Valid && (!c.Price.Valid || !c.OldPrice.Decimal.GreaterThan(c.Price.Decimal)) {
		e.logger.Debug("dropping old price that is not a discount",
			"url", p.URL, "old_price", c.OldPrice.Decimal.String(), "price", nullString(c.Price))
		c.OldPrice = decimal.NullDecimal{}
	}
	return c
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "none"
	}
	return d.Decimal.String()
}
