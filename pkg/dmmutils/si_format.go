package dmmutils

import (
	"math"
	"strconv"
)

var siPrefixes = []struct {
	symbol string
	factor float64
}{
	{"M", 1e6},
	{"k", 1e3},
	{"", 1},
	{"m", 1e-3},
	{"u", 1e-6},
	{"n", 1e-9},
}

// FormatSI renders value with the largest prefix that keeps the mantissa at or
// above 1, using 4 significant digits like the meter display. Zero and
// non-finite values are printed without a prefix.
func FormatSI(value float64, unit string) string {
	if value == 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', -1, 64) + " " + unit
	}

	abs := math.Abs(value)
	prefix := siPrefixes[len(siPrefixes)-1]
	for _, p := range siPrefixes {
		if abs >= p.factor {
			prefix = p
			break
		}
	}

	mantissa := value / prefix.factor
	return strconv.FormatFloat(mantissa, 'g', 4, 64) + " " + prefix.symbol + unit
}
