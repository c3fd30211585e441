package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetCalendar_EmptyMICIsContinuousWeekdays(t *testing.T) {
	tc := GetCalendar("")
	assert.True(t, tc.Continuous)

	// 2026-10-14 is a Wednesday, 2026-10-17 a Saturday
	assert.True(t, tc.IsOpenOnMinute(time.Date(2026, 10, 14, 3, 0, 0, 0, time.UTC)))
	assert.True(t, tc.IsOpenOnMinute(time.Date(2026, 10, 14, 23, 59, 0, 0, time.UTC)))
	assert.False(t, tc.IsOpenOnMinute(time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)))
}

func TestGetCalendar_KnownVenue(t *testing.T) {
	tc := GetCalendar("XNYS")
	if tc.Continuous {
		t.Skip("xnys calendar not available")
	}
	assert.Equal(t, "xnys", tc.MIC)

	sunday := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	assert.False(t, tc.IsTradingDay(sunday))
	assert.False(t, tc.IsOpenOnMinute(sunday))
}
