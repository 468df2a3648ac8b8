// Package offers holds the persisted offer record and the rules for merging
// freshly extracted values into it.
package offers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	KeyURL      = "url"
	KeyTitle    = "title"
	KeyPrice    = "price"
	KeyOldPrice = "oldPrice"
)

// Offer is one entry of the offers store. Fields this package does not know
// about are kept verbatim and in their original order.
type Offer struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

func NewOffer(url string) *Offer {
	o := &Offer{fields: orderedmap.New[string, json.RawMessage]()}
	o.setString(KeyURL, url)
	return o
}

func (o *Offer) UnmarshalJSON(data []byte) error {
	fields := orderedmap.New[string, json.RawMessage]()
	if err := fields.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decoding offer: %w", err)
	}
	o.fields = fields
	return nil
}

// MarshalJSON writes the fields in their original order without escaping
// HTML characters, so URLs with query strings survive a round trip as is.
func (o *Offer) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if o.fields != nil {
		for pair := o.fields.Oldest(); pair != nil; pair = pair.Next() {
			if buf.Len() > 1 {
				buf.WriteByte(',')
			}
			key, err := marshalUnescaped(pair.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(pair.Value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Offer) URL() string {
	s, _ := o.stringField(KeyURL)
	return strings.TrimSpace(s)
}

func (o *Offer) Title() (string, bool) {
	return o.stringField(KeyTitle)
}

func (o *Offer) Price() (decimal.Decimal, bool) {
	return o.amountField(KeyPrice)
}

func (o *Offer) OldPrice() (decimal.Decimal, bool) {
	return o.amountField(KeyOldPrice)
}

func (o *Offer) SetTitle(title string) {
	o.setString(KeyTitle, title)
}

func (o *Offer) SetPrice(amount decimal.Decimal) {
	o.set(KeyPrice, json.RawMessage(amount.String()))
}

func (o *Offer) SetOldPrice(amount decimal.Decimal) {
	o.set(KeyOldPrice, json.RawMessage(amount.String()))
}

func (o *Offer) raw(key string) (json.RawMessage, bool) {
	if o.fields == nil {
		return nil, false
	}
	return o.fields.Get(key)
}

func (o *Offer) set(key string, value json.RawMessage) {
	if o.fields == nil {
		o.fields = orderedmap.New[string, json.RawMessage]()
	}
	o.fields.Set(key, value)
}

func (o *Offer) setString(key, value string) {
	raw, err := marshalUnescaped(value)
	if err != nil {
		// strings always encode
		panic(err)
	}
	o.set(key, raw)
}

func (o *Offer) stringField(key string) (string, bool) {
	raw, ok := o.raw(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// amountField accepts a JSON number or a numeric string.
func (o *Offer) amountField(key string) (decimal.Decimal, bool) {
	raw, ok := o.raw(key)
	if !ok {
		return decimal.Decimal{}, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return decimal.Decimal{}, false
	}

	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
