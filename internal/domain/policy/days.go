package policy

import "time"

const day = 24 * time.Hour

// Days returns the inclusive day count between two calendar dates. Partial
// days round up and the order of the arguments does not matter.
func Days(start, end time.Time) int {
	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	return int((d+day-1)/day) + 1
}

// CalendarDate returns midnight UTC of the calendar day t falls on in its own
// location.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
