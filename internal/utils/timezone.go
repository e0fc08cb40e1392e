package utils

import "time"

const DefaultTimezone = "America/Sao_Paulo"

func LoadLocationOrUTC(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func CurrentDateInTimezone(tz string) string {
	return time.Now().In(LoadLocationOrUTC(tz)).Format("2006-01-02")
}

// DateDaysAgoInTimezone returns the calendar date n days before today in tz.
func DateDaysAgoInTimezone(tz string, n int) string {
	return time.Now().In(LoadLocationOrUTC(tz)).AddDate(0, 0, -n).Format("2006-01-02")
}
