package signal

import "time"

// ForexMarketOpen reports whether spot forex trades at t. The market closes
// Friday 22:00 UTC and reopens Sunday 22:00 UTC.
func ForexMarketOpen(t time.Time) bool {
	u := t.UTC()
	switch u.Weekday() {
	case time.Friday:
		return u.Hour() < 22
	case time.Saturday:
		return false
	case time.Sunday:
		return u.Hour() >= 22
	default:
		return true
	}
}
