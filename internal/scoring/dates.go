package scoring

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alvmarrod/fair/internal/storage"
)

// ErrUnparsableDate is returned for post dates in no supported format
var ErrUnparsableDate = errors.New("unparsable post date")

// isoLayout omits the fraction; time.Parse accepts one after the seconds anyway
const isoLayout = "2006-01-02T15:04:05Z"

// Supported epoch range, 0001-01-01 to 9999-12-31 UTC
const (
	minEpochSeconds = -62135596800
	maxEpochSeconds = 253402300799
)

// ParsePostDate interprets a raw post date. It accepts an ISO-8601 UTC
// timestamp with fractional seconds (2024-01-01T10:00:00.000Z) or a numeric
// epoch in seconds. Both are returned in UTC.
// Epoch text is trimmed of surrounding whitespace; hex and
// underscore-separated numerals are rejected even though strconv accepts them.
func ParsePostDate(raw storage.PostDate) (time.Time, error) {
	s := string(raw)

	if ts, ok := parseISO(s); ok {
		return ts, nil
	}
	if ts, ok := parseEpoch(s); ok {
		return ts, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, s)
}

func parseISO(s string) (time.Time, bool) {
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, false
	}

	// Exactly one fraction of 1 to 6 digits between the seconds and Z
	dot := strings.LastIndexByte(s, '.')
	if dot < 0 {
		return time.Time{}, false
	}
	frac := s[dot+1 : len(s)-1]
	if len(frac) == 0 || len(frac) > 6 {
		return time.Time{}, false
	}
	for _, c := range frac {
		if c < '0' || c > '9' {
			return time.Time{}, false
		}
	}

	ts, err := time.Parse(isoLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

func parseEpoch(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return time.Time{}, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, false
	}
	if v < minEpochSeconds || v > maxEpochSeconds {
		return time.Time{}, false
	}

	sec := math.Floor(v)
	nsec := math.Round((v - sec) * 1e9)
	return time.Unix(int64(sec), int64(nsec)).UTC(), true
}
