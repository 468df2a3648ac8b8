// Package extract finds the current price, the pre-discount price and the
// title on a vendor product page. Evidence is gathered by an ordered chain
// of strategies, from structured data down to a page-wide text scan.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Page is a fetched product page.
type Page struct {
	URL string
	Doc *goquery.Document
}

func NewPage(url string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	return &Page{URL: url, Doc: doc}, nil
}

// Field is a bit set of the candidate fields a strategy can supply.
type Field uint8

const (
	FieldTitle Field = 1 << iota
	FieldPrice
	FieldOldPrice
)

// Candidate is the possibly partial result of extracting one page.
// An empty Title or an invalid amount means the page had no opinion.
type Candidate struct {
	Title    string
	Price    decimal.NullDecimal
	OldPrice decimal.NullDecimal

	// PriceSource names the strategy that supplied Price.
	PriceSource string
}

func (c Candidate) filled() Field {
	var f Field
	if c.Title != "" {
		f |= FieldTitle
	}
	if c.Price.Valid {
		f |= FieldPrice
	}
	if c.OldPrice.Valid {
		f |= FieldOldPrice
	}
	return f
}

// Merge returns a copy of c where every absent field is taken from other.
// Fields already set in c are never overridden.
func (c Candidate) Merge(other Candidate, source string) Candidate {
	if c.Title == "" {
		c.Title = other.Title
	}
	if !c.Price.Valid && other.Price.Valid {
		c.Price = other.Price
		c.PriceSource = source
	}
	if !c.OldPrice.Valid {
		c.OldPrice = other.OldPrice
	}
	return c
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
