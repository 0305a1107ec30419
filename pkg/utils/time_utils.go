package utils

import "time"

func NowUTC() time.Time { return time.Now().UTC() }

// StartOfMonthUTC returns midnight of the first day of t's month in UTC.
func StartOfMonthUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// FromUnixSeconds converts a provider epoch value. Returns nil for t<=0 so
// missing bounds stay NULL in the database.
func FromUnixSeconds(t int64) *time.Time {
	if t <= 0 {
		return nil
	}
	v := time.Unix(t, 0).UTC()
	return &v
}
