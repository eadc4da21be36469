package obis

import (
	"fmt"
	"strings"
)

// Kind describes how the parenthesized value of an OBIS line is decoded.
type Kind int

const (
	// KindNumeric is a plain value*unit group, e.g. 001234.567*kWh.
	KindNumeric Kind = iota
	// KindTimestamp is a DSMR local timestamp (YYMMDDhhmmssX, X in {W,S}).
	KindTimestamp
	// KindHex is hex-encoded ASCII, used for meter serial numbers.
	KindHex
	// KindTimestampedNumeric is a (timestamp)(value*unit) pair; the second
	// group carries the value. Used by the gas meter on channel 1.
	KindTimestampedNumeric
)

// Definition gives a configured OBIS code its meaning.
type Definition struct {
	Code        string
	Description string
	Kind        Kind
}

// Table maps OBIS codes to definitions. Read-only after construction.
type Table struct {
	defs map[string]Definition
}

// NewTable builds a table from the given definitions.
func NewTable(defs []Definition) *Table {
	t := &Table{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		t.defs[d.Code] = d
	}
	return t
}

// DefaultTable returns the standard code set for Belgian/Dutch residential
// meters: tariff registers, per-phase instantaneous values, switches and gas.
func DefaultTable() *Table {
	return NewTable(defaultDefinitions)
}

// Extend returns a copy of the table with operator-supplied codes merged in.
// Extra codes decode as Numeric unless they match a known special code class.
func (t *Table) Extend(extra map[string]string) *Table {
	merged := make(map[string]Definition, len(t.defs)+len(extra))
	for code, def := range t.defs {
		merged[code] = def
	}
	for code, desc := range extra {
		merged[code] = Definition{Code: code, Description: desc, Kind: inferKind(code)}
	}
	return &Table{defs: merged}
}

// Lookup returns the definition for a code.
func (t *Table) Lookup(code string) (Definition, bool) {
	def, ok := t.defs[code]
	return def, ok
}

// Len reports the number of configured codes.
func (t *Table) Len() int {
	return len(t.defs)
}

// Codes returns every configured code, unordered.
func (t *Table) Codes() []string {
	codes := make([]string, 0, len(t.defs))
	for code := range t.defs {
		codes = append(codes, code)
	}
	return codes
}

// inferKind classifies a code by the value class of its C.D.E tail.
func inferKind(code string) Kind {
	switch {
	case strings.HasSuffix(code, ":1.0.0"):
		return KindTimestamp
	case strings.HasSuffix(code, ":96.1.1"):
		return KindHex
	case strings.HasSuffix(code, ":24.2.1"), strings.HasSuffix(code, ":24.2.3"):
		return KindTimestampedNumeric
	default:
		return KindNumeric
	}
}

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindTimestamp:
		return "timestamp"
	case KindHex:
		return "hex"
	case KindTimestampedNumeric:
		return "timestamped-numeric"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Well-known codes referenced elsewhere in the gateway.
const (
	CodeTimestamp          = "0-0:1.0.0"
	CodeTariff             = "0-0:96.14.0"
	CodeConsumptionTariff1 = "1-0:1.8.1"
	CodeConsumptionTariff2 = "1-0:1.8.2"
	CodeProductionTariff1  = "1-0:2.8.1"
	CodeProductionTariff2  = "1-0:2.8.2"
	CodePowerConsumption   = "1-0:1.7.0"
	CodePowerProduction    = "1-0:2.7.0"
	CodeL1Power            = "1-0:21.7.0"
	CodeL2Power            = "1-0:41.7.0"
	CodeL3Power            = "1-0:61.7.0"
	CodeL1PowerProd        = "1-0:22.7.0"
	CodeL2PowerProd        = "1-0:42.7.0"
	CodeL3PowerProd        = "1-0:62.7.0"
	CodeL1Voltage          = "1-0:32.7.0"
	CodeL2Voltage          = "1-0:52.7.0"
	CodeL3Voltage          = "1-0:72.7.0"
	CodeL1Current          = "1-0:31.7.0"
	CodeL2Current          = "1-0:51.7.0"
	CodeL3Current          = "1-0:71.7.0"
	CodeSwitchElectricity  = "0-0:96.3.10"
	CodeSwitchGas          = "0-1:24.4.0"
	CodeGasConsumption     = "0-1:24.2.3"
	CodeGasConsumptionAlt  = "0-1:24.2.1"
	CodeSerialElectricity  = "0-0:96.1.1"
	CodeSerialGas          = "0-1:96.1.1"
)

var defaultDefinitions = []Definition{
	{CodeTimestamp, "Timestamp", KindTimestamp},
	{CodeSwitchElectricity, "Switch electricity", KindNumeric},
	{CodeSwitchGas, "Switch gas", KindNumeric},
	{CodeSerialElectricity, "Meter serial electricity", KindHex},
	{CodeSerialGas, "Meter serial gas", KindHex},
	{CodeTariff, "Current rate (1=day,2=night)", KindNumeric},
	{CodeConsumptionTariff1, "Rate 1 (day) - total consumption", KindNumeric},
	{CodeConsumptionTariff2, "Rate 2 (night) - total consumption", KindNumeric},
	{CodeProductionTariff1, "Rate 1 (day) - total production", KindNumeric},
	{CodeProductionTariff2, "Rate 2 (night) - total production", KindNumeric},
	{CodeL1Power, "L1 consumption", KindNumeric},
	{CodeL2Power, "L2 consumption", KindNumeric},
	{CodeL3Power, "L3 consumption", KindNumeric},
	{CodePowerConsumption, "All phases consumption", KindNumeric},
	{CodeL1PowerProd, "L1 production", KindNumeric},
	{CodeL2PowerProd, "L2 production", KindNumeric},
	{CodeL3PowerProd, "L3 production", KindNumeric},
	{CodePowerProduction, "All phases production", KindNumeric},
	{CodeL1Voltage, "L1 voltage", KindNumeric},
	{CodeL2Voltage, "L2 voltage", KindNumeric},
	{CodeL3Voltage, "L3 voltage", KindNumeric},
	{CodeL1Current, "L1 current", KindNumeric},
	{CodeL2Current, "L2 current", KindNumeric},
	{CodeL3Current, "L3 current", KindNumeric},
	{CodeGasConsumption, "Gas consumption", KindTimestampedNumeric},
	{CodeGasConsumptionAlt, "Gas consumption", KindTimestampedNumeric},
}
