package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p1gateway/internal/meter"
)

func snapshotAt(ts time.Time) meter.Snapshot {
	return meter.Snapshot{
		TakenAt:               ts,
		Tariff:                1,
		ConsumptionTariff1KWh: 1234.567,
		ConsumptionTariff2KWh: 2345.678,
		TotalConsumptionKWh:   3580.245,
		PowerConsumptionKW:    0.545,
		GasM3:                 543.21,
	}
}

func TestCSVWriter_HeaderWrittenOnce(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCSVWriter(dir)
	require.NoError(t, err)

	ts := time.Date(2025, 8, 27, 10, 0, 0, 0, time.UTC)
	require.NoError(t, w.Append(snapshotAt(ts)))
	require.NoError(t, w.Append(snapshotAt(ts.Add(time.Second))))

	data, err := os.ReadFile(filepath.Join(dir, "250827.csv"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "taken_at,tariff,consumption_t1_kwh,consumption_t2_kwh,production_t1_kwh,production_t2_kwh,total_consumption_kwh,total_production_kwh,power_consumption_kw,power_production_kw,gas_m3", lines[0])
	assert.Contains(t, lines[1], "2025-08-27T10:00:00Z,1,1234.567")
	assert.Contains(t, lines[1], "0.545")
	assert.Contains(t, lines[2], "2025-08-27T10:00:01Z")
}

func TestCSVWriter_OneFilePerDay(t *testing.T) {
	dir := t.TempDir()
	w, err := NewCSVWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.Append(snapshotAt(time.Date(2025, 8, 27, 23, 59, 0, 0, time.UTC))))
	require.NoError(t, w.Append(snapshotAt(time.Date(2025, 8, 28, 0, 1, 0, 0, time.UTC))))

	assert.FileExists(t, filepath.Join(dir, "250827.csv"))
	assert.FileExists(t, filepath.Join(dir, "250828.csv"))
}

func TestNewCSVWriter_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "archive")
	_, err := NewCSVWriter(dir)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}
