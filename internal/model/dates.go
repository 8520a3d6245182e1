package model

import "time"

// DayStart truncates t to midnight UTC of its calendar day. All day
// bucketing in the ledger happens in UTC so that occurrence uniqueness does
// not depend on the host timezone.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayRange returns the half-open interval [start, end) covering t's day.
func DayRange(t time.Time) (start, end time.Time) {
	start = DayStart(t)
	return start, start.AddDate(0, 0, 1)
}

// SameDay reports whether a and b fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return DayStart(a).Equal(DayStart(b))
}

// AddMonths shifts t by n calendar months, clamping the day of month to the
// length of the target month: Jan 31 plus one month is Feb 28 or 29.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
