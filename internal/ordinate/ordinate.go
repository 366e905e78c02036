package ordinate

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

// Precision is the number of significant digits kept by Quo. Add, Sub and
// Mul are exact.
const Precision = 34

var (
	exact    = apd.BaseContext
	quotient = apd.BaseContext.WithPrecision(Precision)
)

// Ordinate is an immutable exact decimal. The zero value is 0.
//
// Operations never modify their operands; each result is a fresh value.
type Ordinate struct {
	d apd.Decimal
}

// Zero returns 0.
func Zero() Ordinate {
	return Ordinate{}
}

// Infinity returns positive infinity. It is the NextStopover of a clock
// with nothing pending.
func Infinity() Ordinate {
	var o Ordinate
	o.d.Form = apd.Infinite
	return o
}

// FromInt returns n as an ordinate.
func FromInt(n int64) Ordinate {
	var o Ordinate
	o.d.SetInt64(n)
	return o
}

// FromFloat converts f through its shortest decimal representation, so
// FromFloat(0.1) is exactly 0.1 rather than the nearest binary fraction.
func FromFloat(f float64) (Ordinate, error) {
	if math.IsNaN(f) {
		return Ordinate{}, fmt.Errorf("ordinate: NaN is not an ordinate")
	}
	if math.IsInf(f, 1) {
		return Infinity(), nil
	}
	if math.IsInf(f, -1) {
		return Ordinate{}, fmt.Errorf("ordinate: negative infinity is not an ordinate")
	}
	return Parse(strconv.FormatFloat(f, 'g', -1, 64))
}

// Parse reads a decimal string such as "12", "-0.25", "1e3" or "Infinity".
func Parse(s string) (Ordinate, error) {
	var o Ordinate
	if _, _, err := o.d.SetString(s); err != nil {
		return Ordinate{}, fmt.Errorf("ordinate: parse %q: %w", s, err)
	}
	switch o.d.Form {
	case apd.NaN, apd.NaNSignaling:
		return Ordinate{}, fmt.Errorf("ordinate: parse %q: NaN is not an ordinate", s)
	case apd.Infinite:
		if o.d.Negative {
			return Ordinate{}, fmt.Errorf("ordinate: parse %q: negative infinity is not an ordinate", s)
		}
	}
	return o, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// literals in tests and examples.
func MustParse(s string) Ordinate {
	o, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return o
}

// apply runs a binary operation under one of the package contexts. apd only reports
// errors for trapped conditions (overflow, division by zero, invalid
// operation); callers guard against the latter two, and overflow needs an
// exponent beyond ±100000.
func apply(op func(d, x, y *apd.Decimal) (apd.Condition, error), x, y Ordinate) Ordinate {
	var r Ordinate
	if _, err := op(&r.d, &x.d, &y.d); err != nil {
		panic(fmt.Sprintf("ordinate: %v", err))
	}
	return r
}

// Add returns o + x.
func (o Ordinate) Add(x Ordinate) Ordinate {
	return apply(exact.Add, o, x)
}

// Sub returns o - x.
func (o Ordinate) Sub(x Ordinate) Ordinate {
	return apply(exact.Sub, o, x)
}

// Mul returns o * x.
func (o Ordinate) Mul(x Ordinate) Ordinate {
	return apply(exact.Mul, o, x)
}

// Quo returns o / x rounded half-up to Precision significant digits.
// Dividing by zero panics.
func (o Ordinate) Quo(x Ordinate) Ordinate {
	if x.IsZero() {
		panic("ordinate: division by zero")
	}
	return apply(quotient.Quo, o, x)
}

// Cmp returns -1, 0 or +1 as o is less than, equal to, or greater than x.
// Values compare numerically: 0.30 and 0.3 are equal.
func (o Ordinate) Cmp(x Ordinate) int {
	oi, xi := o.IsInf(), x.IsInf()
	switch {
	case oi && xi:
		return 0
	case oi:
		return 1
	case xi:
		return -1
	}
	return o.d.Cmp(&x.d)
}

// Equal reports whether o and x are numerically equal.
func (o Ordinate) Equal(x Ordinate) bool {
	return o.Cmp(x) == 0
}

// Less reports whether o < x.
func (o Ordinate) Less(x Ordinate) bool {
	return o.Cmp(x) < 0
}

// Sign returns -1, 0 or +1.
func (o Ordinate) Sign() int {
	if o.IsInf() {
		return 1
	}
	return o.d.Sign()
}

// IsZero reports whether o is 0.
func (o Ordinate) IsZero() bool {
	return o.Sign() == 0
}

// IsInf reports whether o is positive infinity.
func (o Ordinate) IsInf() bool {
	return o.d.Form == apd.Infinite
}

// Min returns the smaller of a and b.
func Min(a, b Ordinate) Ordinate {
	if b.Less(a) {
		return b
	}
	return a
}

// Max returns the larger of a and b.
func Max(a, b Ordinate) Ordinate {
	if a.Less(b) {
		return b
	}
	return a
}

// Float64 returns the nearest float64. Infinity maps to +Inf.
func (o Ordinate) Float64() float64 {
	if o.IsInf() {
		return math.Inf(1)
	}
	f, err := o.d.Float64()
	if err != nil {
		return math.NaN()
	}
	return f
}

// String returns the shortest plain decimal form, without exponent or
// trailing zeros: "1000", "0.3", "-2.5", "Infinity".
func (o Ordinate) String() string {
	if o.IsInf() {
		return "Infinity"
	}
	if o.d.IsZero() {
		return "0" // apd keeps a sign on zero: 0 * -1 is -0
	}
	var reduced apd.Decimal
	reduced.Reduce(&o.d)
	return reduced.Text('f')
}

// MarshalText implements encoding.TextMarshaler.
func (o Ordinate) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. YAML scalars, both
// quoted and bare numbers, decode through this method.
func (o *Ordinate) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// MarshalJSON encodes o as a JSON string so no precision is lost to
// consumers that parse numbers as float64.
func (o Ordinate) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, o.String()), nil
}

// UnmarshalJSON accepts both a JSON number and a JSON string.
func (o *Ordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("ordinate: %w", err)
		}
		return o.UnmarshalText([]byte(s))
	}
	return o.UnmarshalText(data)
}
