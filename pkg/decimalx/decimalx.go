package decimalx

import "github.com/shopspring/decimal"

func MustFromString(s string) decimal.Decimal {
	res, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return res
}

// FromStringPtr parses a nullable numeric string, returning zero and false
// when the pointer is nil or the content is not a valid decimal.
func FromStringPtr(s *string) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	res, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.Zero, false
	}
	return res, true
}

// PercentChange returns |to-from| / from * 100. A non-positive base yields zero.
func PercentChange(from, to decimal.Decimal) decimal.Decimal {
	if from.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return to.Sub(from).Abs().Div(from).Mul(decimal.NewFromInt(100))
}
