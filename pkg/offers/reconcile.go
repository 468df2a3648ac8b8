package offers

import (
	"github.com/shopspring/decimal"

	"github.com/geniass/offers-updater/pkg/extract"
)

// FieldChange records one field updated by Reconcile.
type FieldChange struct {
	URL   string
	Field string
	// Old is empty when the field was absent before.
	Old string
	New string
}

// Reconcile merges c into o field by field. A field is only touched when c
// has an opinion on it that differs from the stored value; absent candidate
// fields never clear stored data.
func Reconcile(o *Offer, c extract.Candidate) (changed bool, changes []FieldChange) {
	url := o.URL()

	if c.Title != "" {
		if old, ok := o.Title(); !ok || old != c.Title {
			o.SetTitle(c.Title)
			changes = append(changes, FieldChange{URL: url, Field: KeyTitle, Old: old, New: c.Title})
		}
	}

	if c.Price.Valid {
		if old, ok := o.Price(); !ok || !old.Equal(c.Price.Decimal) {
			o.SetPrice(c.Price.Decimal)
			changes = append(changes, amountChange(url, KeyPrice, old, ok, c.Price.Decimal))
		}
	}

	if c.OldPrice.Valid {
		if old, ok := o.OldPrice(); !ok || !old.Equal(c.OldPrice.Decimal) {
			o.SetOldPrice(c.OldPrice.Decimal)
			changes = append(changes, amountChange(url, KeyOldPrice, old, ok, c.OldPrice.Decimal))
		}
	}

	return len(changes) > 0, changes
}

func amountChange(url, field string, old decimal.Decimal, hadOld bool, updated decimal.Decimal) FieldChange {
	fc := FieldChange{URL: url, Field: field, New: updated.StringFixed(2)}
	if hadOld {
		fc.Old = old.StringFixed(2)
	}
	return fc
}
