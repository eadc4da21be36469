package meter

import "time"

// Reading is a single decoded value from one telegram line. Immutable once
// produced.
type Reading struct {
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Value       float64   `json:"value,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	Text        string    `json:"text,omitempty"`
	Time        time.Time `json:"time,omitempty"`
}

// ReadingSet maps OBIS code to Reading for one telegram. Produced fresh per
// telegram; carries no history.
type ReadingSet map[string]Reading

// Value returns the numeric value for a code.
func (s ReadingSet) Value(code string) (float64, bool) {
	r, ok := s[code]
	return r.Value, ok
}

// ValueOr returns the numeric value for a code or the fallback.
func (s ReadingSet) ValueOr(code string, fallback float64) float64 {
	if r, ok := s[code]; ok {
		return r.Value
	}
	return fallback
}

// Text returns the textual value for a code.
func (s ReadingSet) Text(code string) string {
	return s[code].Text
}
