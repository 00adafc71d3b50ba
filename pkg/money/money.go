package money

import "fmt"

// Cents represents an amount in integer minor currency units. All monetary
// values cross package boundaries as Cents; floating point never enters
// currency math.
type Cents int64

// Percent computes pct% of the amount, rounding half up. The result is
// computed once from the raw amount; callers must not re-round derived
// values.
func (c Cents) Percent(pct int) Cents {
	if c <= 0 || pct <= 0 {
		return 0
	}
	return Cents((int64(c)*int64(pct) + 50) / 100)
}

// Sub returns c minus other, floored at zero. Balances never go negative.
func (c Cents) Sub(other Cents) Cents {
	if other >= c {
		return 0
	}
	return c - other
}

// IsPositive reports whether the amount is strictly greater than zero.
func (c Cents) IsPositive() bool { return c > 0 }

// String renders the amount as dollars, e.g. 4500 -> "$45.00".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}
