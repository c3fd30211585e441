package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers whether a venue is in session using scmhub/calendar.
// Without a venue it models a round-the-clock Mon-Fri session, which is what
// most terminal symbols (FX, CFDs) follow.
type TradingCalendar struct {
	Calendar   *calendar.Calendar
	MIC        string
	Continuous bool
	Timezone   *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar returns the calendar for an ISO 10383 MIC (e.g. "xnys").
// An empty or unknown MIC yields the continuous weekday session.
func GetCalendar(mic string) *TradingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		return &TradingCalendar{Continuous: true, Timezone: time.UTC}
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s'. Using continuous Mon-Fri session (UTC).", mic)
		return &TradingCalendar{MIC: mic, Continuous: true, Timezone: time.UTC}
	}

	return &TradingCalendar{Calendar: cal, MIC: mic, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Continuous {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Continuous {
		return tc.IsTradingDay(t)
	}

	return tc.Calendar.IsOpen(t)
}
