package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"winter", "250115073000W", "2025-01-15T07:30:00+01:00"},
		{"summer", "250827123000S", "2025-08-27T12:30:00+02:00"},
		{"unknown suffix treated as UTC", "250827123000X", "2025-08-27T12:30:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ts.Format("2006-01-02T15:04:05Z07:00"))
		})
	}
}

func TestParseTimestamp_WinterAndSummerSameInstant(t *testing.T) {
	winter, err := ParseTimestamp("251026023000W")
	require.NoError(t, err)
	summer, err := ParseTimestamp("251026033000S")
	require.NoError(t, err)
	assert.True(t, winter.Equal(summer), "02:30 CET and 03:30 CEST are the same instant")
}

func TestParseTimestamp_Invalid(t *testing.T) {
	_, err := ParseTimestamp("short")
	assert.Error(t, err)

	_, err = ParseTimestamp("25zz27123000S")
	assert.Error(t, err)
}
