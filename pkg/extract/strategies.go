package extract

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/geniass/offers-updater/pkg/price"
)

// attributeBlocks reads machine formatted amounts from data attributes.
type attributeBlocks struct {
	blocks    []AttributeBlock
	validator price.Validator
}

func (attributeBlocks) Name() string { return "attribute-block" }

func (attributeBlocks) Provides() Field { return FieldPrice | FieldOldPrice }

func (a attributeBlocks) Attempt(p *Page) (Candidate, bool) {
	for _, b := range a.blocks {
		block := p.Doc.FindMatcher(b.Selector.matcher).First()
		if block.Length() == 0 {
			continue
		}
		raw, ok := attrWithin(block, b.PriceAttr)
		if !ok {
			continue
		}
		amount, ok := price.NormalizeAttr(raw)
		if !ok {
			continue
		}
		amount, ok = a.validator.Validate(amount)
		if !ok {
			continue
		}

		c := Candidate{Price: decimal.NewNullDecimal(amount)}
		if b.OldPriceAttr != "" {
			if raw, ok := attrWithin(block, b.OldPriceAttr); ok {
				if old, ok := price.NormalizeAttr(raw); ok {
					if old, ok = a.validator.Validate(old); ok {
						c.OldPrice = decimal.NewNullDecimal(old)
					}
				}
			}
		}
		return c, true
	}
	return Candidate{}, false
}

// attrWithin looks for attr on block itself, then on its descendants.
func attrWithin(block *goquery.Selection, attr string) (string, bool) {
	if v, ok := block.Attr(attr); ok {
		return v, true
	}
	return block.Find("[" + attr + "]").First().Attr(attr)
}

// cssText parses the text of the first price element that yields a valid
// amount.
type cssText struct {
	selectors []Selector
	validator price.Validator
	logger    *slog.Logger
}

func (cssText) Name() string { return "css-text" }

func (cssText) Provides() Field { return FieldPrice }

func (s cssText) Attempt(p *Page) (Candidate, bool) {
	for _, sel := range s.selectors {
		text := strings.TrimSpace(p.Doc.FindMatcher(sel.matcher).First().Text())
		if text == "" {
			continue
		}
		amount, ok := price.NormalizeText(text)
		if !ok {
			continue
		}
		if _, ok := s.validator.Validate(amount); !ok {
			s.logger.Debug("rejecting implausible price", "url", p.URL, "selector", sel.Raw, "text", text)
			continue
		}
		return Candidate{Price: decimal.NewNullDecimal(amount)}, true
	}
	return Candidate{}, false
}

var (
	priceLikeRegex = regexp.MustCompile(`^(?:€|EUR)?[\s\x{00a0}]*\d{1,3}(?:\.\d{3})*,(?:\d{2}|-)[\s\x{00a0}]*(?:€|EUR)?$`)
	textNodesExpr  = xpath.MustCompile(`//body//text()[not(ancestor::script) and not(ancestor::style) and not(ancestor::noscript)]`)
)

// disambiguation scans every text node on the page. It only accepts a price
// when exactly one distinct plausible amount is found.
type disambiguation struct {
	validator price.Validator
	logger    *slog.Logger
}

func (disambiguation) Name() string { return "disambiguation" }

func (disambiguation) Provides() Field { return FieldPrice }

func (d disambiguation) Attempt(p *Page) (Candidate, bool) {
	if len(p.Doc.Nodes) == 0 {
		return Candidate{}, false
	}

	// keyed by value: a price repeated on the page (sticky bar, basket
	// button) is one candidate, not an ambiguity
	amounts := map[string]decimal.Decimal{}
	for _, n := range htmlquery.QuerySelectorAll(p.Doc.Nodes[0], textNodesExpr) {
		if n.Type != html.TextNode {
			continue
		}
		text := strings.TrimSpace(n.Data)
		if !priceLikeRegex.MatchString(text) {
			continue
		}
		amount, ok := price.NormalizeText(text)
		if !ok {
			continue
		}
		if amount, ok = d.validator.Validate(amount); ok {
			amounts[amount.StringFixed(2)] = amount
		}
	}

	if len(amounts) != 1 {
		if len(amounts) > 1 {
			d.logger.Debug("ambiguous prices on page", "url", p.URL, "candidates", len(amounts))
		}
		return Candidate{}, false
	}
	for _, amount := range amounts {
		return Candidate{Price: decimal.NewNullDecimal(amount)}, true
	}
	return Candidate{}, false
}

type headingTitle struct {
	selectors []Selector
}

func (headingTitle) Name() string { return "title" }

func (headingTitle) Provides() Field { return FieldTitle }

func (h headingTitle) Attempt(p *Page) (Candidate, bool) {
	for _, sel := range h.selectors {
		if title := cleanText(p.Doc.FindMatcher(sel.matcher).First().Text()); title != "" {
			return Candidate{Title: title}, true
		}
	}
	return Candidate{}, false
}

// oldPriceLookup reads the strike-through price. The first old price element
// present on the page decides: when it is empty there is no discount.
type oldPriceLookup struct {
	selectors []Selector
	validator price.Validator
}

func (oldPriceLookup) Name() string { return "old-price" }

func (oldPriceLookup) Provides() Field { return FieldOldPrice }

func (o oldPriceLookup) Attempt(p *Page) (Candidate, bool) {
	for _, sel := range o.selectors {
		el := p.Doc.FindMatcher(sel.matcher).First()
		if el.Length() == 0 {
			continue
		}
		amount, ok := price.NormalizeText(strings.TrimSpace(el.Text()))
		if !ok {
			return Candidate{}, false
		}
		if amount, ok = o.validator.Validate(amount); !ok {
			return Candidate{}, false
		}
		return Candidate{OldPrice: decimal.NewNullDecimal(amount)}, true
	}
	return Candidate{}, false
}
