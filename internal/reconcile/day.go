package reconcile

import (
	"errors"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

var ErrInvalidDay = errors.New("invalid calendar day")

// CalendarDay is a date-only key in YYYY-MM-DD form. The zero value is
// not a valid day.
type CalendarDay string

var dayInputLayouts = []string{
	dayLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07",
}

// ParseDay normalizes a source date value into a calendar day. Time of day
// and offset are discarded; the date is kept as written by the source.
func ParseDay(value string) (CalendarDay, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrInvalidDay
	}
	for _, layout := range dayInputLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return DayOf(parsed), nil
		}
	}
	return "", ErrInvalidDay
}

func DayOf(t time.Time) CalendarDay {
	return CalendarDay(t.Format(dayLayout))
}

func (d CalendarDay) String() string {
	return string(d)
}

func (d CalendarDay) Time() time.Time {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d CalendarDay) Before(other CalendarDay) bool {
	return d < other
}

func (d CalendarDay) AddDays(n int) CalendarDay {
	return DayOf(d.Time().AddDate(0, 0, n))
}
