package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Monday morning.
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, ny)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-07-01T10:30:00-04:00", time.Date(2024, 7, 1, 10, 30, 0, 0, ny)},
		{"2024-07-01", time.Date(2024, 7, 1, 0, 0, 0, 0, ny)},
		{"today", time.Date(2024, 6, 10, 0, 0, 0, 0, ny)},
		{"tomorrow", time.Date(2024, 6, 11, 0, 0, 0, 0, ny)},
		{"yesterday", time.Date(2024, 6, 9, 0, 0, 0, 0, ny)},
		{"tomorrow at 2pm", time.Date(2024, 6, 11, 14, 0, 0, 0, ny)},
		{"tomorrow 2 pm", time.Date(2024, 6, 11, 14, 0, 0, 0, ny)},
		{"2pm tomorrow", time.Date(2024, 6, 11, 14, 0, 0, 0, ny)},
		{"friday at 3:30pm", time.Date(2024, 6, 14, 15, 30, 0, 0, ny)},
		{"next friday", time.Date(2024, 6, 14, 0, 0, 0, 0, ny)},
		{"monday", time.Date(2024, 6, 17, 0, 0, 0, 0, ny)},
		{"today at noon", time.Date(2024, 6, 10, 12, 0, 0, 0, ny)},
		{"tomorrow at midnight", time.Date(2024, 6, 11, 0, 0, 0, 0, ny)},
		{"15:04", time.Date(2024, 6, 10, 15, 4, 0, 0, ny)},
		{"3pm", time.Date(2024, 6, 10, 15, 0, 0, 0, ny)},
		{"12pm", time.Date(2024, 6, 10, 12, 0, 0, 0, ny)},
		{"12am", time.Date(2024, 6, 11, 0, 0, 0, 0, ny)},
		{"8am", time.Date(2024, 6, 11, 8, 0, 0, 0, ny)}, // already past, next day
		{"in 30 minutes", time.Date(2024, 6, 10, 9, 30, 0, 0, ny)},
		{"in 2 hours", time.Date(2024, 6, 10, 11, 0, 0, 0, ny)},
		{"in 3 days", time.Date(2024, 6, 13, 0, 0, 0, 0, ny)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in, now, ny)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseTime_Invalid(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	for _, in := range []string{"", "whenever", "3", "25:00", "13pm", "9:75am", "banana at 2pm"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseTime(in, now, time.UTC)
			assert.Error(t, err)
		})
	}
}

func TestParseTime_WeekdayFromSameDay(t *testing.T) {
	// Saying "monday" on a Monday means the following week.
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	got, err := ParseTime("monday", now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC), got)
}
