// Package report renders run summaries and the offers catalog as text.
package report

import (
	"embed"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/geniass/offers-updater/pkg/history"
	"github.com/geniass/offers-updater/pkg/offers"
	"github.com/geniass/offers-updater/pkg/updater"
)

//go:embed templates
var templatesFs embed.FS

type SummaryContext struct {
	updater.Summary
	// StorePath is reported as updated when set and something changed.
	StorePath string
}

type OffersContext struct {
	Title       string
	LastUpdated time.Time
	Offers      []OfferRow
	// Recent is the tail of the price history, newest first.
	Recent []history.Entry
}

type OfferRow struct {
	Title    string
	URL      string
	Price    string
	OldPrice string
	Discount string
}

func (c OffersContext) FormattedLastUpdated() string {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		loc = time.UTC
	}
	return c.LastUpdated.In(loc).Format("2006-01-02T15:04:05 MST")
}

var hundred = decimal.NewFromInt(100)

// NewOfferRows flattens stored offers into table rows. Offers without a
// title are listed by URL.
func NewOfferRows(list []*offers.Offer) []OfferRow {
	rows := make([]OfferRow, 0, len(list))
	for _, o := range list {
		r := OfferRow{URL: o.URL(), Price: "-", OldPrice: "-"}
		if title, ok := o.Title(); ok && strings.TrimSpace(title) != "" {
			r.Title = escapeCell(title)
		} else {
			r.Title = escapeCell(r.URL)
		}

		p, hasPrice := o.Price()
		if hasPrice {
			r.Price = p.StringFixed(2)
		}
		old, hasOld := o.OldPrice()
		if hasOld {
			r.OldPrice = old.StringFixed(2)
		}
		if hasPrice && hasOld && old.GreaterThan(p) {
			r.Discount = old.Sub(p).Div(old).Mul(hundred).Round(0).String() + "%"
		}
		rows = append(rows, r)
	}
	return rows
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func RenderSummary(w io.Writer, c SummaryContext) error {
	return render(w, "templates/summary.txt.tpl", c)
}

func RenderOffers(w io.Writer, c OffersContext) error {
	return render(w, "templates/offers.md.tpl", c)
}

func render(w io.Writer, name string, data any) error {
	t, err := template.ParseFS(templatesFs, name)
	if err != nil {
		return err
	}
	t, err = t.ParseFS(templatesFs, "templates/common/*")
	if err != nil {
		return err
	}

	err = t.Execute(w, data)
	if err != nil {
		return err
	}
	return nil
}
