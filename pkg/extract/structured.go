package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"

	"github.com/geniass/offers-updater/pkg/price"
)

// maxLDDepth bounds the walk through nested arrays and @graph nodes.
const maxLDDepth = 4

// structuredData reads schema.org Product nodes from JSON-LD blocks.
type structuredData struct {
	validator price.Validator
	logger    *slog.Logger
}

func (structuredData) Name() string { return "structured-data" }

func (structuredData) Provides() Field { return FieldTitle | FieldPrice | FieldOldPrice }

func (s structuredData) Attempt(p *Page) (Candidate, bool) {
	var (
		out   Candidate
		found bool
	)
	p.Doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		data := []byte(strings.TrimSpace(sel.Text()))
		value, typ, _, err := jsonparser.Get(data)
		if err != nil {
			s.logger.Debug("skipping undecodable JSON-LD block", "url", p.URL, "error", err)
			return true
		}
		out, found = s.walk(value, typ, 0)
		return !found
	})
	return out, found
}

func (s structuredData) walk(data []byte, typ jsonparser.ValueType, depth int) (Candidate, bool) {
	if depth > maxLDDepth {
		return Candidate{}, false
	}

	switch typ {
	case jsonparser.Array:
		var (
			out   Candidate
			found bool
		)
		_, _ = jsonparser.ArrayEach(data, func(value []byte, t jsonparser.ValueType, _ int, _ error) {
			if !found {
				out, found = s.walk(value, t, depth+1)
			}
		})
		return out, found

	case jsonparser.Object:
		if graph, t, _, err := jsonparser.Get(data, "@graph"); err == nil {
			if c, ok := s.walk(graph, t, depth+1); ok {
				return c, true
			}
		}
		return s.product(data)
	}
	return Candidate{}, false
}

// product maps a node that carries an offers block, or a Product node
// without one, which can still supply the title.
func (s structuredData) product(node []byte) (Candidate, bool) {
	var c Candidate
	if name, err := jsonparser.GetString(node, "name"); err == nil {
		c.Title = cleanText(name)
	}

	offers, typ, _, err := jsonparser.Get(node, "offers")
	if err != nil {
		if !isProduct(node) {
			return Candidate{}, false
		}
		return c, c.Title != ""
	}

	switch typ {
	case jsonparser.Object:
		c.Price, c.OldPrice = s.offerAmounts(offers)
	case jsonparser.Array:
		// the first offer with a valid price wins, e.g. past an out of stock variant
		_, _ = jsonparser.ArrayEach(offers, func(value []byte, t jsonparser.ValueType, _ int, _ error) {
			if c.Price.Valid || t != jsonparser.Object {
				return
			}
			c.Price, c.OldPrice = s.offerAmounts(value)
		})
	}

	if !c.Price.Valid {
		c.OldPrice = decimal.NullDecimal{}
	}
	return c, c.Title != "" || c.Price.Valid
}

func (s structuredData) offerAmounts(offer []byte) (p, old decimal.NullDecimal) {
	if amount, ok := ldAmount(offer, "price"); ok {
		p = s.validated(amount)
	} else if amount, ok := ldAmount(offer, "priceSpecification", "price"); ok {
		p = s.validated(amount)
	} else if low, ok := ldAmount(offer, "lowPrice"); ok {
		p = s.validated(low)
		if high, ok := ldAmount(offer, "highPrice"); ok && high.GreaterThan(low) {
			old = s.validated(high)
		}
	}
	return p, old
}

// isProduct reports whether @type is Product, as a string or in a list.
func isProduct(node []byte) bool {
	value, typ, _, err := jsonparser.Get(node, "@type")
	if err != nil {
		return false
	}
	switch typ {
	case jsonparser.String:
		return string(value) == "Product"
	case jsonparser.Array:
		found := false
		_, _ = jsonparser.ArrayEach(value, func(v []byte, t jsonparser.ValueType, _ int, _ error) {
			if t == jsonparser.String && string(v) == "Product" {
				found = true
			}
		})
		return found
	}
	return false
}

func (s structuredData) validated(amount decimal.Decimal) decimal.NullDecimal {
	if v, ok := s.validator.Validate(amount); ok {
		return decimal.NewNullDecimal(v)
	}
	return decimal.NullDecimal{}
}

// ldAmount reads a price that may be encoded as a JSON number or string.
func ldAmount(data []byte, keys ...string) (decimal.Decimal, bool) {
	value, typ, _, err := jsonparser.Get(data, keys...)
	if err != nil {
		return decimal.Decimal{}, false
	}
	switch typ {
	case jsonparser.Number:
		return price.NormalizeAttr(string(value))
	case jsonparser.String:
		raw, err := jsonparser.ParseString(value)
		if err != nil {
			return decimal.Decimal{}, false
		}
		if amount, ok := price.NormalizeAttr(raw); ok {
			return amount, true
		}
		if strings.Contains(raw, ",") {
			return price.NormalizeText(raw)
		}
	}
	return decimal.Decimal{}, false
}
