package envelope

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - Calendar month key, the unit of the reconciliation walk
// =============================================================================

// Month is a calendar month. It is comparable and usable as a map key;
// its canonical string form is "2006-01".
type Month struct {
	Year int
	Mon  time.Month
}

func NewMonth(year int, mon time.Month) Month {
	return Month{Year: year, Mon: mon}
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

// ParseMonth parses the canonical "2006-01" form.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon))
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Mon == 0 }

// Comparison
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Mon < o.Mon
}
func (m Month) After(o Month) bool { return o.Before(m) }

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Mon == time.December {
		return Month{Year: m.Year + 1, Mon: time.January}
	}
	return Month{Year: m.Year, Mon: m.Mon + 1}
}

// Start returns the first instant of the month (UTC).
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.Next().Start().AddDate(0, 0, -1).Day()
}

// ElapsedFraction returns how much of the month has passed as of now,
// in (0, 1]. Returns 1 for months before now's month and 0 for later ones.
func (m Month) ElapsedFraction(now time.Time) float64 {
	cur := MonthOf(now)
	switch {
	case m.Before(cur):
		return 1
	case m.After(cur):
		return 0
	default:
		return float64(now.Day()) / float64(m.Days())
	}
}
