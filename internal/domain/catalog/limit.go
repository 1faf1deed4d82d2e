package catalog

import "time"

// KidsLimit returns the cap for group on date. A date override wins over
// the weekday table. ok is false when nothing is configured.
func (l DailyLimit) KidsLimit(date string, weekday time.Weekday, group string) (limit int, ok bool) {
	for _, dl := range l.Dates {
		if dl.Date == date && dl.Group == group {
			return dl.Limit, true
		}
	}
	for _, gl := range l.Common {
		if gl.Group == group {
			return gl.Limits[weekday], true
		}
	}
	return 0, false
}
