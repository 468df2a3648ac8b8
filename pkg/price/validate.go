package price

import "github.com/shopspring/decimal"

// DefaultMinimum is the lowest amount accepted as a product price. Anything
// below it is assumed to be a deposit, shipping fee or similar surcharge.
var DefaultMinimum = decimal.RequireFromString("5.00")

// Validator rejects amounts that parse fine but cannot be a product price.
type Validator struct {
	Min decimal.Decimal
}

func NewValidator(minPrice decimal.Decimal) Validator {
	return Validator{Min: minPrice}
}

// Validate returns the amount unchanged when it is at least v.Min.
func (v Validator) Validate(amount decimal.Decimal) (decimal.Decimal, bool) {
	if !amount.IsPositive() || amount.LessThan(v.Min) {
		return decimal.Decimal{}, false
	}
	return amount, true
}
