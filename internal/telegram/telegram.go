package telegram

import (
	"fmt"
	"strings"
)

// Telegram is one bounded burst of meter data: an ordered set of text lines
// from the '/' identification header to the '!'-prefixed checksum trailer.
// Raw holds the exact bytes as read from the port (CRLF included) so the
// trailer checksum can be verified; it is nil for telegrams built from
// lines only. Telegrams are transient and discarded after parsing.
type Telegram struct {
	Lines []string
	Raw   []byte
}

// Header returns the meter identification line.
func (t Telegram) Header() string {
	if len(t.Lines) == 0 {
		return ""
	}
	return t.Lines[0]
}

// MalformedTelegramError reports a telegram whose framing is broken. The
// whole telegram is rejected; no readings are reported for it.
type MalformedTelegramError struct {
	Reason string
}

func (e *MalformedTelegramError) Error() string {
	return fmt.Sprintf("malformed telegram: %s", e.Reason)
}

// DecodeError reports a single recognized line whose value could not be
// decoded. It is non-fatal to the telegram: the line is skipped.
type DecodeError struct {
	Code string
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Code, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// checkFraming validates the '/'..'!' envelope and returns the checksum
// trailer line.
func checkFraming(lines []string) (string, error) {
	if len(lines) < 2 {
		return "", &MalformedTelegramError{Reason: fmt.Sprintf("need at least header and trailer, got %d lines", len(lines))}
	}
	if !strings.HasPrefix(lines[0], "/") {
		return "", &MalformedTelegramError{Reason: "missing '/' identification header"}
	}
	last := lines[len(lines)-1]
	if !strings.HasPrefix(last, "!") {
		return "", &MalformedTelegramError{Reason: "missing '!' checksum trailer"}
	}
	return last, nil
}
