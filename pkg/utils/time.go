package utils

import "time"

// Now returns the current time in UTC timezone
func Now() time.Time {
	return time.Now().UTC()
}

// StartOfDayUTC truncates t to midnight UTC of the same calendar day.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// UnixMilliToTime converts a unix timestamp in milliseconds to a UTC time.Time
func UnixMilliToTime(timestamp int64) time.Time {
	if timestamp <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(timestamp).UTC()
}

// FormatISO8601 formats a time.Time to ISO8601 format in UTC
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseDay parses a "YYYY-MM-DD" date string as midnight UTC.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// FormatDay formats a time as its UTC calendar day "YYYY-MM-DD".
func FormatDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
