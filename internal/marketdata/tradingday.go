package marketdata

import "time"

// PreviousTradingDay walks back from now, skipping Saturday and Sunday, and
// returns the date-only trading day the universe snapshot should be fetched
// for. Exchange holidays are not modeled; the MarketCalendar capability in
// the universe filter handles "closed but not a weekend" separately.
func PreviousTradingDay(now time.Time) time.Time {
	d := now.AddDate(0, 0, -1)
	for {
		switch d.Weekday() {
		case time.Saturday:
			d = d.AddDate(0, 0, -1)
		case time.Sunday:
			d = d.AddDate(0, 0, -2)
		default:
			y, m, day := d.Date()
			return time.Date(y, m, day, 0, 0, 0, 0, d.Location())
		}
	}
}
