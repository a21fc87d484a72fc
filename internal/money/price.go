// Package money provides a fixed-point decimal type for prices and a
// helper for FIX's 8-fractional-digit wire format. Plain float64 prices
// accumulate binary-rounding error across repeated strategy arithmetic
// (spread skews, momentum biases, synthetic-depth seeding); shopspring's
// arbitrary-precision decimal avoids that at the cost of a few extra
// allocations per quote, which is cheap next to a 5-second scheduler tick.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WireDecimals is the number of fractional digits FIX tag 44 requires on
// the wire: formatted to 8 fractional digits even for integer inputs.
const WireDecimals = 8

// Price is a decimal price or quantity value.
type Price struct {
	d decimal.Decimal
}

// Zero is the zero price.
var Zero = Price{}

// NewFromFloat builds a Price from a float64. Used at the boundary where
// strategies compute prices via plain arithmetic (mid*spread, skews); the
// float is converted to decimal immediately afterwards so all book and
// PnL arithmetic stays exact.
func NewFromFloat(f float64) Price {
	return Price{d: decimal.NewFromFloat(f)}
}

// NewFromInt builds a Price from an integer quantity.
func NewFromInt(n int64) Price {
	return Price{d: decimal.NewFromInt(n)}
}

// Parse parses a decimal string (e.g. a FIX tag 44 value) into a Price.
func Parse(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	return Price{d: d}, nil
}

func (p Price) Add(o Price) Price      { return Price{p.d.Add(o.d)} }
func (p Price) Sub(o Price) Price      { return Price{p.d.Sub(o.d)} }
func (p Price) Mul(o Price) Price      { return Price{p.d.Mul(o.d)} }
func (p Price) Div(o Price) Price      { return Price{p.d.Div(o.d)} }
func (p Price) Neg() Price             { return Price{p.d.Neg()} }
func (p Price) Abs() Price             { return Price{p.d.Abs()} }
func (p Price) IsZero() bool           { return p.d.IsZero() }
func (p Price) IsPositive() bool       { return p.d.IsPositive() }
func (p Price) IsNegative() bool       { return p.d.IsNegative() }
func (p Price) GreaterThan(o Price) bool { return p.d.GreaterThan(o.d) }
func (p Price) LessThan(o Price) bool    { return p.d.LessThan(o.d) }
func (p Price) Equal(o Price) bool       { return p.d.Equal(o.d) }
func (p Price) Float64() float64         { d, _ := p.d.Float64(); return d }

// Cmp returns -1, 0, or 1 comparing p to o.
func (p Price) Cmp(o Price) int { return p.d.Cmp(o.d) }

// WireString formats the price to spec's 8 fractional digits for FIX tag 44.
func (p Price) WireString() string {
	return p.d.StringFixed(WireDecimals)
}

// String implements fmt.Stringer with a natural (non-padded) representation.
func (p Price) String() string {
	return p.d.String()
}

// MulFloat scales a Price by a plain float factor (spread/skew math),
// converting back to decimal immediately.
func (p Price) MulFloat(f float64) Price {
	return Price{p.d.Mul(decimal.NewFromFloat(f))}
}

// MarshalJSON renders the price as a JSON number, matching the
// dashboard's expectation of plain numeric price/qty fields rather than
// a nested decimal object.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.d.String()), nil
}

// UnmarshalJSON accepts either a JSON number or numeric string.
func (p *Price) UnmarshalJSON(data []byte) error {
	return p.d.UnmarshalJSON(data)
}
