package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatFloat renders a float in its shortest round-trip decimal form,
// switching to scientific notation outside [1e-4, 1e16) to match the
// fixed-point range of common tabular producers. Integral values keep a
// trailing ".0" so the column re-reads as float. NaN renders empty.
func FormatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	e := strconv.FormatFloat(f, 'e', -1, 64)
	i := strings.IndexByte(e, 'e')
	exp, _ := strconv.Atoi(e[i+1:])
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

// FormatValue renders a value as a delimited-text cell. Nulls and NaNs
// render empty, bools as true/false, floats via FormatFloat, timestamps
// as RFC 3339. This is the inverse of ParseValue for canonical cells.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return FormatFloat(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}
