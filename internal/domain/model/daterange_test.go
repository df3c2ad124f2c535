package model

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate_RoundTrip(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"2024-01-08", true},
		{"2024-02-29", true},
		{"2024-02-30", false},
		{"2023-02-29", false},
		{"2024-13-01", false},
		{"2024-1-8", false},
		{"20240108", false},
		{"2024-01-08T00:00:00Z", false},
		{"", false},
		{" 2024-01-08", false},
		{"2024-01-08\n", false},
		{"\t2024-01-08 ", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate("start_date", tt.in)
			if !tt.valid {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, got.Format(DateLayout))
		})
	}
}

func TestParseDateRange(t *testing.T) {
	now := time.Date(2024, 1, 14, 23, 0, 0, 0, time.UTC)
	maxAge := 365 * 24 * time.Hour

	tests := []struct {
		name       string
		start, end string
		errMsg     string
	}{
		{name: "valid week", start: "2024-01-08", end: "2024-01-13"},
		{name: "single day", start: "2024-01-14", end: "2024-01-14"},
		{name: "tomorrow allowed", start: "2024-01-14", end: "2024-01-15"},
		{name: "missing start", start: "", end: "2024-01-13", errMsg: "start_date is required"},
		{name: "blank start", start: "   ", end: "2024-01-13", errMsg: "start_date is required"},
		{name: "padded end", start: "2024-01-08", end: "2024-01-13 ", errMsg: "end_date must be a valid date"},
		{name: "impossible date", start: "2024-02-30", end: "2024-03-01", errMsg: "start_date must be a valid date"},
		{name: "reversed", start: "2024-01-13", end: "2024-01-08", errMsg: "on or before"},
		{name: "too old", start: "2022-12-31", end: "2023-01-05", errMsg: "cannot be earlier than"},
		{name: "too far ahead", start: "2024-01-14", end: "2024-01-16", errMsg: "cannot be later than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseDateRange(tt.start, tt.end, now, maxAge)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, r.StartKey())
			assert.Equal(t, tt.end, r.EndKey())
		})
	}
}

func TestParseDateRange_NoMaxAge(t *testing.T) {
	now := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	_, err := ParseDateRange("1999-01-01", "1999-01-02", now, 0)
	assert.NoError(t, err)
}

func TestDateRange_Days(t *testing.T) {
	now := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC)
	r, err := ParseDateRange("2024-01-08", "2024-01-13", now, 0)
	require.NoError(t, err)

	var keys []string
	for d := range r.Days() {
		keys = append(keys, d.Format(DateLayout))
	}
	assert.Equal(t, []string{"2024-01-08", "2024-01-09", "2024-01-10", "2024-01-11", "2024-01-12", "2024-01-13"}, keys)
	assert.Equal(t, 6, r.NumDays())
	assert.Equal(t, 6, len(slices.Collect(r.Days())))
}

func TestLastDays(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	r := LastDays(now, 30)
	assert.Equal(t, "2024-01-31", r.StartKey())
	assert.Equal(t, "2024-03-01", r.EndKey())
	assert.Equal(t, 30, r.NumDays())
}
