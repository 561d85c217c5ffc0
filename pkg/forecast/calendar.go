package forecast

import (
	"time"

	"github.com/tickertalk/tickertalk/pkg/models"
)

// TradingCalendar enumerates trading days so predictions land on dates a
// market actually trades.
type TradingCalendar interface {
	// NextTradingDays returns the n trading days strictly after the given
	// date, formatted with models.DateLayout.
	NextTradingDays(after time.Time, n int) []string
}

// WeekdayCalendar is the default calendar: every weekday trades. Exchange
// holidays are not modeled; a predicted value on a holiday is harmless.
type WeekdayCalendar struct{}

// NextTradingDays implements TradingCalendar.
func (WeekdayCalendar) NextTradingDays(after time.Time, n int) []string {
	days := make([]string, 0, n)
	d := after
	for len(days) < n {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, d.Format(models.DateLayout))
	}
	return days
}
