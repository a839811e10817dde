package gait

import (
	"encoding/json"
	"math"
	"strconv"
)

// Number is a float64 that encodes NaN and ±Inf as JSON null and decodes
// null back to NaN. Degenerate metrics travel through the API this way.
type Number float64

// NaN returns a Number holding NaN.
func NaN() Number { return Number(math.NaN()) }

// Num returns a pointer to n, for optional metric fields.
func Num(f float64) *Number {
	n := Number(f)
	return &n
}

// Float returns the underlying value.
func (n Number) Float() float64 { return float64(n) }

// IsFinite reports whether n is neither NaN nor infinite.
func (n Number) IsFinite() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.IsFinite() {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, float64(n), 'g', -1, 64), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NaN()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}
