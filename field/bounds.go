package field

import (
	"math"
	"strconv"
	"strings"
)

// Bounds is the decoded form of a "min:max" constraint. A nil side is
// unbounded.
type Bounds struct {
	Min *float64
	Max *float64
}

// ParseBounds decodes a "min:max" string. Blank or unparseable sides are
// unbounded; ok is false when neither side carries a number.
func ParseBounds(s *string) (b Bounds, ok bool) {
	if s == nil {
		return
	}
	lo, hi, found := strings.Cut(*s, ":")
	b.Min = parseSide(lo)
	if found {
		b.Max = parseSide(hi)
	}
	ok = b.Min != nil || b.Max != nil
	return
}

func parseSide(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

func (b Bounds) String() string {
	var lo, hi string
	if b.Min != nil {
		lo = FormatNumber(*b.Min)
	}
	if b.Max != nil {
		hi = FormatNumber(*b.Max)
	}
	return lo + ":" + hi
}

func (b Bounds) Below(n float64) bool {
	return b.Min != nil && n < *b.Min
}

func (b Bounds) Above(n float64) bool {
	return b.Max != nil && n > *b.Max
}

func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ParseNumber parses a user-entered numeric string, rejecting NaN and
// infinities.
func ParseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
