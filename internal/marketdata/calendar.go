package marketdata

import (
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers trading-day questions for US equities (XNYS).
type TradingCalendar struct {
	nyse *calendar.Calendar
	loc  *time.Location
}

// NewTradingCalendar creates an XNYS trading calendar.
func NewTradingCalendar() *TradingCalendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &TradingCalendar{
		nyse: calendar.XNYS(),
		loc:  loc,
	}
}

// IsTradingDay reports whether the date is an XNYS business day.
func (c *TradingCalendar) IsTradingDay(d time.Time) bool {
	// Anchor at noon New York time so the calendar matches the session date.
	t := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, c.loc)
	return c.nyse.IsBusinessDay(t)
}

// PrevTradingDay returns the nearest trading day at or before d.
func (c *TradingCalendar) PrevTradingDay(d time.Time) time.Time {
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
