package telegram

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"p1gateway/internal/meter"
	"p1gateway/internal/obis"
)

// Parser converts the lines of one telegram into a ReadingSet, driven by a
// configured OBIS code table. A Parser is immutable and safe for concurrent
// use.
type Parser struct {
	table *obis.Table
}

// NewParser returns a parser over the given code table.
func NewParser(table *obis.Table) *Parser {
	return &Parser{table: table}
}

// Result is the outcome of parsing one telegram. Skipped holds the per-line
// decode failures for recognized codes; those lines produce no reading but
// do not fail the telegram.
type Result struct {
	Readings meter.ReadingSet
	Skipped  []*DecodeError
}

// Parse decodes exactly one telegram, header line through checksum trailer.
// It fails with *MalformedTelegramError when the framing is broken; lines
// whose code is not in the table are ignored. Parsing is a pure function of
// its input: the same lines always yield the same Result.
func (p *Parser) Parse(lines []string) (Result, error) {
	if _, err := checkFraming(lines); err != nil {
		return Result{}, err
	}

	result := Result{Readings: make(meter.ReadingSet)}
	for _, line := range lines[1 : len(lines)-1] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		code, rest, found := strings.Cut(line, "(")
		if !found {
			continue
		}
		def, ok := p.table.Lookup(code)
		if !ok {
			continue
		}
		reading, err := decodeLine(def, "("+rest)
		if err != nil {
			result.Skipped = append(result.Skipped, &DecodeError{Code: code, Line: line, Err: err})
			continue
		}
		result.Readings[code] = reading
	}
	return result, nil
}

// ParseTelegram is Parse over a framed Telegram.
func (p *Parser) ParseTelegram(t Telegram) (Result, error) {
	return p.Parse(t.Lines)
}

var errNoValueGroup = errors.New("no parenthesized value group")

// decodeLine decodes the parenthesized groups following an OBIS code. Group
// selection depends on the code's kind: gas lines carry (timestamp)(value),
// everything else carries the value in the first group.
func decodeLine(def obis.Definition, rest string) (meter.Reading, error) {
	groups := splitGroups(rest)
	if len(groups) == 0 {
		return meter.Reading{}, errNoValueGroup
	}

	reading := meter.Reading{Code: def.Code, Description: def.Description}
	switch def.Kind {
	case obis.KindTimestamp:
		ts, err := ParseTimestamp(groups[0])
		if err != nil {
			return meter.Reading{}, err
		}
		reading.Text = groups[0]
		reading.Time = ts

	case obis.KindHex:
		decoded, err := hex.DecodeString(groups[0])
		if err != nil {
			return meter.Reading{}, fmt.Errorf("serial %q: %w", groups[0], err)
		}
		reading.Text = string(decoded)

	case obis.KindTimestampedNumeric:
		value := groups[0]
		if len(groups) > 1 {
			value = groups[1]
			if ts, err := ParseTimestamp(groups[0]); err == nil {
				reading.Time = ts
			}
		}
		if err := decodeNumeric(&reading, value); err != nil {
			return meter.Reading{}, err
		}

	default:
		if err := decodeNumeric(&reading, groups[0]); err != nil {
			return meter.Reading{}, err
		}
	}
	return reading, nil
}

func decodeNumeric(reading *meter.Reading, group string) error {
	raw, unit, _ := strings.Cut(group, "*")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("value %q: %w", raw, err)
	}
	reading.Value = value
	reading.Unit = unit
	return nil
}

// splitGroups extracts the contents of every (...) group in order.
func splitGroups(s string) []string {
	var groups []string
	for {
		open := strings.IndexByte(s, '(')
		if open < 0 {
			return groups
		}
		closing := strings.IndexByte(s[open:], ')')
		if closing < 0 {
			return groups
		}
		groups = append(groups, s[open+1:open+closing])
		s = s[open+closing+1:]
	}
}
