package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"p1gateway/internal/meter"
)

// ErrNoSnapshots indicates an empty history.
var ErrNoSnapshots = errors.New("no snapshots recorded")

// SnapshotRepository persists one row per parsed telegram.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository returns repository.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapshotColumns = `
	taken_at, tariff,
	consumption_t1_kwh, consumption_t2_kwh, production_t1_kwh, production_t2_kwh,
	total_consumption_kwh, total_production_kwh,
	power_consumption_kw, power_production_kw,
	l1_power_kw, l2_power_kw, l3_power_kw,
	l1_voltage_v, l2_voltage_v, l3_voltage_v,
	l1_current_a, l2_current_a, l3_current_a,
	gas_m3, gas_read_at, serial_electricity, serial_gas`

// Insert stores a snapshot. Telegrams repeat the meter timestamp when the
// meter clock stalls, so duplicates on taken_at are overwritten rather than
// accumulated.
func (r *SnapshotRepository) Insert(ctx context.Context, s *meter.Snapshot) error {
	const query = `
		INSERT INTO meter_snapshots (` + snapshotColumns + `, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, NOW())
		ON CONFLICT (taken_at) DO UPDATE SET
			power_consumption_kw = EXCLUDED.power_consumption_kw,
			power_production_kw = EXCLUDED.power_production_kw,
			created_at = NOW()
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		s.TakenAt, s.Tariff,
		s.ConsumptionTariff1KWh, s.ConsumptionTariff2KWh, s.ProductionTariff1KWh, s.ProductionTariff2KWh,
		s.TotalConsumptionKWh, s.TotalProductionKWh,
		s.PowerConsumptionKW, s.PowerProductionKW,
		s.L1PowerKW, s.L2PowerKW, s.L3PowerKW,
		s.L1VoltageV, s.L2VoltageV, s.L3VoltageV,
		s.L1CurrentA, s.L2CurrentA, s.L3CurrentA,
		s.GasM3, s.GasReadAt, s.SerialElectricity, s.SerialGas,
	).Scan(&s.ID, &s.CreatedAt)
}

// History returns snapshots inside [from, to], newest first.
func (r *SnapshotRepository) History(ctx context.Context, from, to time.Time, limit int) ([]meter.Snapshot, error) {
	if limit <= 0 || limit > 1000 {
		limit = 288
	}
	const query = `
		SELECT id, ` + snapshotColumns + `, created_at
		FROM meter_snapshots
		WHERE taken_at BETWEEN $1 AND $2
		ORDER BY taken_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []meter.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Latest returns the most recent snapshot.
func (r *SnapshotRepository) Latest(ctx context.Context) (*meter.Snapshot, error) {
	const query = `
		SELECT id, ` + snapshotColumns + `, created_at
		FROM meter_snapshots
		ORDER BY taken_at DESC
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, query)
	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshots
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (meter.Snapshot, error) {
	var s meter.Snapshot
	err := row.Scan(
		&s.ID,
		&s.TakenAt, &s.Tariff,
		&s.ConsumptionTariff1KWh, &s.ConsumptionTariff2KWh, &s.ProductionTariff1KWh, &s.ProductionTariff2KWh,
		&s.TotalConsumptionKWh, &s.TotalProductionKWh,
		&s.PowerConsumptionKW, &s.PowerProductionKW,
		&s.L1PowerKW, &s.L2PowerKW, &s.L3PowerKW,
		&s.L1VoltageV, &s.L2VoltageV, &s.L3VoltageV,
		&s.L1CurrentA, &s.L2CurrentA, &s.L3CurrentA,
		&s.GasM3, &s.GasReadAt, &s.SerialElectricity, &s.SerialGas,
		&s.CreatedAt,
	)
	return s, err
}
