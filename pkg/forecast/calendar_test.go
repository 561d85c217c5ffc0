package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekdayCalendarSkipsWeekends(t *testing.T) {
	// 2026-08-21 is a Friday.
	friday := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

	days := WeekdayCalendar{}.NextTradingDays(friday, 4)
	assert.Equal(t, []string{"2026-08-24", "2026-08-25", "2026-08-26", "2026-08-27"}, days)
}

func TestWeekdayCalendarStartsStrictlyAfter(t *testing.T) {
	// 2026-08-24 is a Monday; it must not include itself.
	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

	days := WeekdayCalendar{}.NextTradingDays(monday, 1)
	assert.Equal(t, []string{"2026-08-25"}, days)
}
