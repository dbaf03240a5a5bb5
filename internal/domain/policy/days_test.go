package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDays(t *testing.T) {
	start := date(2025, 1, 10)

	assert.Equal(t, 1, Days(start, start))
	assert.Equal(t, 7, Days(start, start.AddDate(0, 0, 6)))
	assert.Equal(t, 3, Days(date(2024, 2, 28), date(2024, 3, 1)), "leap-year span")
}

func TestDaysIgnoresOrderAndRoundsUp(t *testing.T) {
	start := date(2025, 2, 10)
	end := date(2025, 2, 12)
	assert.Equal(t, Days(start, end), Days(end, start))

	partial := start.Add(30 * time.Hour)
	assert.Equal(t, 3, Days(start, partial), "partial day rounds up")
}

func TestCalendarDate(t *testing.T) {
	noon := time.Date(2025, 3, 3, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, date(2025, 3, 3), CalendarDate(noon))

	east := time.FixedZone("UTC+9", 9*60*60)
	early := time.Date(2025, 3, 4, 2, 0, 0, 0, east)
	assert.Equal(t, date(2025, 3, 4), CalendarDate(early), "keeps the day of its own offset")

	assert.Equal(t, 1, Days(CalendarDate(noon), CalendarDate(noon.Add(11*time.Hour))))
}
