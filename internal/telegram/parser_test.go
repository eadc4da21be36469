package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p1gateway/internal/obis"
)

func TestParse_SingleReading(t *testing.T) {
	parser := NewParser(obis.NewTable([]obis.Definition{
		{Code: "1-0:1.8.1", Description: "total_consumption_kwh", Kind: obis.KindNumeric},
	}))

	result, err := parser.Parse([]string{
		`/ISk5\2MT382-1000`,
		"1-0:1.8.1(001234.567*kWh)",
		"!1234",
	})
	require.NoError(t, err)
	require.Len(t, result.Readings, 1)

	reading := result.Readings["1-0:1.8.1"]
	assert.Equal(t, 1234.567, reading.Value)
	assert.Equal(t, "kWh", reading.Unit)
	assert.Equal(t, "total_consumption_kwh", reading.Description)
	assert.Empty(t, result.Skipped)
}

func TestParse_UnknownCodeIgnored(t *testing.T) {
	parser := NewParser(obis.DefaultTable())

	result, err := parser.Parse([]string{
		"/FLU5\\253769484_A",
		"9-9:9.9.9(abc*kWh)",
		"1-0:1.7.0(00.545*kW)",
		"!A1B2",
	})
	require.NoError(t, err)

	assert.NotContains(t, result.Readings, "9-9:9.9.9")
	assert.Contains(t, result.Readings, "1-0:1.7.0")
	assert.Empty(t, result.Skipped, "unknown codes must not produce decode errors")
}

func TestParse_MissingTrailerIsMalformed(t *testing.T) {
	parser := NewParser(obis.DefaultTable())

	_, err := parser.Parse([]string{
		"/FLU5\\253769484_A",
		"1-0:1.7.0(00.545*kW)",
	})
	var malformed *MalformedTelegramError
	require.ErrorAs(t, err, &malformed)
}

func TestParse_MissingHeaderIsMalformed(t *testing.T) {
	parser := NewParser(obis.DefaultTable())

	_, err := parser.Parse([]string{
		"1-0:1.7.0(00.545*kW)",
		"!A1B2",
	})
	var malformed *MalformedTelegramError
	require.ErrorAs(t, err, &malformed)
}

func TestParse_EmptyInputIsMalformed(t *testing.T) {
	parser := NewParser(obis.DefaultTable())

	_, err := parser.Parse(nil)
	var malformed *MalformedTelegramError
	require.ErrorAs(t, err, &malformed)
}

func TestParse_DecodeFailureSkipsLineOnly(t *testing.T) {
	parser := NewParser(obis.DefaultTable())

	result, err := parser.Parse([]string{
		"/FLU5\\253769484_A",
		"1-0:1.8.1(not-a-number*kWh)",
		"1-0:1.7.0(00.545*kW)",
		"!A1B2",
	})
	require.NoError(t, err, "a bad line must not fail the telegram")

	assert.NotContains(t, result.Readings, "1-0:1.8.1")
	assert.Contains(t, result.Readings, "1-0:1.7.0")
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "1-0:1.8.1", result.Skipped[0].Code)
}

func TestParse_GasLineTakesSecondGroup(t *testing.T) {
	parser := NewParser(obis.DefaultTable())

	result, err := parser.Parse([]string{
		"/FLU5\\253769484_A",
		"0-1:24.2.3(250827123000S)(01234.567*m3)",
		"!A1B2",
	})
	require.NoError(t, err)

	gas := result.Readings["0-1:24.2.3"]
	assert.Equal(t, 1234.567, gas.Value)
	assert.Equal(t, "m3", gas.Unit)
	require.False(t, gas.Time.IsZero())
	assert.Equal(t, 2025, gas.Time.Year())
}

func TestParse_SerialDecodesHexToASCII(t *testing.T) {
	parser := NewParser(obis.DefaultTable())

	// "4B414D45" is "KAME" in hex-encoded ASCII.
	result, err := parser.Parse([]string{
		"/FLU5\\253769484_A",
		"0-0:96.1.1(4B414D45)",
		"!A1B2",
	})
	require.NoError(t, err)
	assert.Equal(t, "KAME", result.Readings["0-0:96.1.1"].Text)
}

func TestParse_TimestampLine(t *testing.T) {
	parser := NewParser(obis.DefaultTable())

	result, err := parser.Parse([]string{
		"/FLU5\\253769484_A",
		"0-0:1.0.0(250827123000S)",
		"!A1B2",
	})
	require.NoError(t, err)

	ts := result.Readings["0-0:1.0.0"]
	assert.Equal(t, "250827123000S", ts.Text)
	assert.Equal(t, "2025-08-27T12:30:00+02:00", ts.Time.Format("2006-01-02T15:04:05Z07:00"))
}

func TestParse_ValueWithoutUnit(t *testing.T) {
	parser := NewParser(obis.DefaultTable())

	result, err := parser.Parse([]string{
		"/FLU5\\253769484_A",
		"0-0:96.14.0(0001)",
		"!A1B2",
	})
	require.NoError(t, err)

	tariff := result.Readings["0-0:96.14.0"]
	assert.Equal(t, 1.0, tariff.Value)
	assert.Empty(t, tariff.Unit)
}

func TestParse_LineWithoutGroupsIsSkipped(t *testing.T) {
	parser := NewParser(obis.DefaultTable())

	result, err := parser.Parse([]string{
		"/FLU5\\253769484_A",
		"1-0:1.8.1",
		"!A1B2",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Readings)
	assert.Empty(t, result.Skipped, "a line with no '(' never matches")
}

func TestParse_Idempotent(t *testing.T) {
	parser := NewParser(obis.DefaultTable())
	lines := []string{
		"/FLU5\\253769484_A",
		"0-0:1.0.0(250827123000S)",
		"1-0:1.8.1(001234.567*kWh)",
		"1-0:1.8.2(002345.678*kWh)",
		"0-1:24.2.3(250827123000S)(01234.567*m3)",
		"!A1B2",
	}

	first, err := parser.Parse(lines)
	require.NoError(t, err)
	second, err := parser.Parse(lines)
	require.NoError(t, err)

	assert.Equal(t, first.Readings, second.Readings)
}

func TestParse_OnlyConfiguredCodesAppear(t *testing.T) {
	table := obis.NewTable([]obis.Definition{
		{Code: "1-0:1.8.1", Description: "consumption t1", Kind: obis.KindNumeric},
		{Code: "1-0:1.8.2", Description: "consumption t2", Kind: obis.KindNumeric},
	})
	parser := NewParser(table)

	result, err := parser.Parse([]string{
		"/FLU5\\253769484_A",
		"1-0:1.8.1(000001.000*kWh)",
		"1-0:2.8.1(000002.000*kWh)",
		"1-0:99.99.9(3)",
		"!A1B2",
	})
	require.NoError(t, err)

	assert.Len(t, result.Readings, 1)
	assert.Contains(t, result.Readings, "1-0:1.8.1")
}

func TestSplitGroups(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"none", "no groups here", nil},
		{"one", "(00.545*kW)", []string{"00.545*kW"}},
		{"two", "(250827123000S)(01234.567*m3)", []string{"250827123000S", "01234.567*m3"}},
		{"unclosed", "(00.545", nil},
		{"empty", "()", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitGroups(tt.input))
		})
	}
}
