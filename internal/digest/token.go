package digest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Slack timestamps are strings like "1712345678.000200". Ordering is by
// numeric value, not lexicographic: "999.0" < "1000.0".

// CompareTokens returns -1, 0, or 1 comparing two timestamp tokens by
// numeric value. Unparseable tokens fall back to string comparison so the
// ordering stays total.
func CompareTokens(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

// FormatToken converts a wall-clock time to Slack's timestamp token space.
func FormatToken(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

// MaxToken returns the later of two tokens.
func MaxToken(a, b string) string {
	if CompareTokens(a, b) >= 0 {
		return a
	}
	return b
}
