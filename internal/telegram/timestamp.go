package telegram

import (
	"fmt"
	"time"
)

// DSMR timestamps are YYMMDDhhmmss followed by W (winter, UTC+1) or
// S (summer, UTC+2). An unknown suffix is treated as UTC, matching meters
// that omit DST information.
const timestampLayout = "060102150405 -0700"

var (
	winterZone = time.FixedZone("CET", 1*60*60)
	summerZone = time.FixedZone("CEST", 2*60*60)
)

// ParseTimestamp decodes a DSMR local timestamp.
func ParseTimestamp(value string) (time.Time, error) {
	if len(value) != 13 {
		return time.Time{}, fmt.Errorf("timestamp %q: want 13 characters, got %d", value, len(value))
	}
	offset := "+0000"
	switch value[12] {
	case 'W':
		offset = "+0100"
	case 'S':
		offset = "+0200"
	}
	ts, err := time.Parse(timestampLayout, value[:12]+" "+offset)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", value, err)
	}
	switch value[12] {
	case 'W':
		return ts.In(winterZone), nil
	case 'S':
		return ts.In(summerZone), nil
	}
	return ts.UTC(), nil
}
