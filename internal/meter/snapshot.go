package meter

import (
	"time"

	"p1gateway/internal/obis"
)

// Snapshot is the flattened view of one telegram, shaped for storage and
// the API. Totals are the per-tariff register sums; instantaneous values
// are whatever the meter reported in that telegram.
type Snapshot struct {
	ID      int64     `db:"id" json:"id,omitempty"`
	TakenAt time.Time `db:"taken_at" json:"taken_at"`
	Tariff  int       `db:"tariff" json:"tariff"`

	ConsumptionTariff1KWh float64 `db:"consumption_t1_kwh" json:"consumption_t1_kwh"`
	ConsumptionTariff2KWh float64 `db:"consumption_t2_kwh" json:"consumption_t2_kwh"`
	ProductionTariff1KWh  float64 `db:"production_t1_kwh" json:"production_t1_kwh"`
	ProductionTariff2KWh  float64 `db:"production_t2_kwh" json:"production_t2_kwh"`
	TotalConsumptionKWh   float64 `db:"total_consumption_kwh" json:"total_consumption_kwh"`
	TotalProductionKWh    float64 `db:"total_production_kwh" json:"total_production_kwh"`

	PowerConsumptionKW float64 `db:"power_consumption_kw" json:"power_consumption_kw"`
	PowerProductionKW  float64 `db:"power_production_kw" json:"power_production_kw"`

	L1PowerKW  float64 `db:"l1_power_kw" json:"l1_power_kw"`
	L2PowerKW  float64 `db:"l2_power_kw" json:"l2_power_kw"`
	L3PowerKW  float64 `db:"l3_power_kw" json:"l3_power_kw"`
	L1VoltageV float64 `db:"l1_voltage_v" json:"l1_voltage_v"`
	L2VoltageV float64 `db:"l2_voltage_v" json:"l2_voltage_v"`
	L3VoltageV float64 `db:"l3_voltage_v" json:"l3_voltage_v"`
	L1CurrentA float64 `db:"l1_current_a" json:"l1_current_a"`
	L2CurrentA float64 `db:"l2_current_a" json:"l2_current_a"`
	L3CurrentA float64 `db:"l3_current_a" json:"l3_current_a"`

	GasM3     float64   `db:"gas_m3" json:"gas_m3"`
	GasReadAt time.Time `db:"gas_read_at" json:"gas_read_at,omitempty"`

	SerialElectricity string `db:"serial_electricity" json:"serial_electricity,omitempty"`
	SerialGas         string `db:"serial_gas" json:"serial_gas,omitempty"`

	Readings  ReadingSet `db:"-" json:"readings,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at,omitempty"`
}

// NewSnapshot flattens a reading set. The taken-at time comes from the
// telegram's own timestamp when present, otherwise from the wall clock.
func NewSnapshot(readings ReadingSet, now time.Time) Snapshot {
	s := Snapshot{
		TakenAt:  now.UTC(),
		Readings: readings,
	}
	if ts, ok := readings[obis.CodeTimestamp]; ok && !ts.Time.IsZero() {
		s.TakenAt = ts.Time.UTC()
	}

	s.Tariff = int(readings.ValueOr(obis.CodeTariff, 0))
	s.ConsumptionTariff1KWh = readings.ValueOr(obis.CodeConsumptionTariff1, 0)
	s.ConsumptionTariff2KWh = readings.ValueOr(obis.CodeConsumptionTariff2, 0)
	s.ProductionTariff1KWh = readings.ValueOr(obis.CodeProductionTariff1, 0)
	s.ProductionTariff2KWh = readings.ValueOr(obis.CodeProductionTariff2, 0)
	s.TotalConsumptionKWh = s.ConsumptionTariff1KWh + s.ConsumptionTariff2KWh
	s.TotalProductionKWh = s.ProductionTariff1KWh + s.ProductionTariff2KWh

	s.PowerConsumptionKW = readings.ValueOr(obis.CodePowerConsumption, 0)
	s.PowerProductionKW = readings.ValueOr(obis.CodePowerProduction, 0)

	s.L1PowerKW = readings.ValueOr(obis.CodeL1Power, 0)
	s.L2PowerKW = readings.ValueOr(obis.CodeL2Power, 0)
	s.L3PowerKW = readings.ValueOr(obis.CodeL3Power, 0)
	s.L1VoltageV = readings.ValueOr(obis.CodeL1Voltage, 0)
	s.L2VoltageV = readings.ValueOr(obis.CodeL2Voltage, 0)
	s.L3VoltageV = readings.ValueOr(obis.CodeL3Voltage, 0)
	s.L1CurrentA = readings.ValueOr(obis.CodeL1Current, 0)
	s.L2CurrentA = readings.ValueOr(obis.CodeL2Current, 0)
	s.L3CurrentA = readings.ValueOr(obis.CodeL3Current, 0)

	if gas, ok := readings[obis.CodeGasConsumption]; ok {
		s.GasM3 = gas.Value
		s.GasReadAt = gas.Time
	} else if gas, ok := readings[obis.CodeGasConsumptionAlt]; ok {
		s.GasM3 = gas.Value
		s.GasReadAt = gas.Time
	}

	s.SerialElectricity = readings.Text(obis.CodeSerialElectricity)
	s.SerialGas = readings.Text(obis.CodeSerialGas)
	return s
}

// NetPowerKW is positive when the household draws from the grid.
func (s Snapshot) NetPowerKW() float64 {
	return s.PowerConsumptionKW - s.PowerProductionKW
}
