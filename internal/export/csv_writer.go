package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"p1gateway/internal/meter"
)

// CSVWriter appends snapshots to one file per day (YYMMDD.csv) under the
// configured directory, writing the header only when a file is created.
type CSVWriter struct {
	dir string
}

// NewCSVWriter ensures the target directory exists.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create dir: %w", err)
	}
	return &CSVWriter{dir: dir}, nil
}

var csvHeader = []string{
	"taken_at", "tariff",
	"consumption_t1_kwh", "consumption_t2_kwh",
	"production_t1_kwh", "production_t2_kwh",
	"total_consumption_kwh", "total_production_kwh",
	"power_consumption_kw", "power_production_kw",
	"gas_m3",
}

// Append writes one row for the snapshot into the day file.
func (w *CSVWriter) Append(s meter.Snapshot) error {
	path := filepath.Join(w.dir, s.TakenAt.Format("060102")+".csv")

	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("export: open %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if newFile {
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("export: write header: %w", err)
		}
	}

	row := []string{
		s.TakenAt.Format("2006-01-02T15:04:05Z07:00"),
		strconv.Itoa(s.Tariff),
		formatFloat(s.ConsumptionTariff1KWh),
		formatFloat(s.ConsumptionTariff2KWh),
		formatFloat(s.ProductionTariff1KWh),
		formatFloat(s.ProductionTariff2KWh),
		formatFloat(s.TotalConsumptionKWh),
		formatFloat(s.TotalProductionKWh),
		formatFloat(s.PowerConsumptionKW),
		formatFloat(s.PowerProductionKW),
		formatFloat(s.GasM3),
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("export: write row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
