// Package dates parses the strict date and date-offset forms used by
// cohort criteria: ISO dates like 2020-03-01, and offsets against an
// anchor column like "index_date + 6 weeks".
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the only accepted date layout.
const Layout = "2006-01-02"

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidOffset = errors.New("invalid date offset")
)

// Parse parses a strict ISO date. Zero-padded fields are required:
// 2020-1-3 is rejected.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a %s date", ErrInvalidDate, s, Layout)
	}
	return t, nil
}

// UnitDays converts n units to days. Weeks count 7 days, months 30, years
// 365.25 rounded to the nearest day.
func UnitDays(n int64, unit string) (int64, error) {
	switch strings.TrimSuffix(strings.ToLower(unit), "s") {
	case "day":
		return n, nil
	case "week":
		return 7 * n, nil
	case "month":
		return 30 * n, nil
	case "year":
		// 365.25 per year, exact in quarter days.
		return (1461*n + 2) / 4, nil
	default:
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidOffset, unit)
	}
}

// Offset is a day shift against an anchor column.
type Offset struct {
	Anchor string
	Days   int64
}

// Shift applies the offset to an anchor date.
func (o Offset) Shift(anchor time.Time) time.Time {
	return anchor.AddDate(0, 0, int(o.Days))
}

var (
	anchorRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)$`)
	offsetRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*([+-])\s*(\d+)\s*(days?|weeks?|months?|years?)$`)
)

// ParseOffset parses "anchor", "anchor + N unit", or "anchor - N unit".
func ParseOffset(s string) (Offset, error) {
	s = strings.TrimSpace(s)
	if m := anchorRe.FindStringSubmatch(s); m != nil {
		return Offset{Anchor: m[1]}, nil
	}
	m := offsetRe.FindStringSubmatch(s)
	if m == nil {
		return Offset{}, fmt.Errorf("%w: %q", ErrInvalidOffset, s)
	}

	n, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return Offset{}, fmt.Errorf("%w: %q", ErrInvalidOffset, s)
	}
	days, err := UnitDays(n, m[4])
	if err != nil {
		return Offset{}, err
	}
	if m[2] == "-" {
		days = -days
	}
	return Offset{Anchor: m[1], Days: days}, nil
}
