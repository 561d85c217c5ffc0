package forecast

import (
	"fmt"
	"time"

	"github.com/tickertalk/tickertalk/pkg/models"
)

// defaultForwardDays is how far past the last observation a forecast
// reaches when history is current.
const defaultForwardDays = 90

// Horizon returns the number of days to predict past the last historical
// date: the span to max(last+90d, today), so stale history is first
// bridged to the present and then extended. Never less than 1.
func Horizon(lastDate string, now time.Time) (int, error) {
	last, err := time.Parse(models.DateLayout, lastDate)
	if err != nil {
		return 0, fmt.Errorf("invalid last history date %q: %w", lastDate, err)
	}

	target := last.AddDate(0, 0, defaultForwardDays)
	today := now.Truncate(24 * time.Hour)
	if today.After(target) {
		target = today
	}

	days := int(target.Sub(last).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return days, nil
}
