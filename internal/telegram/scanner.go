package telegram

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// maxTelegramLines bounds a single telegram; a run of lines longer than this
// without a trailer means the stream lost framing.
const maxTelegramLines = 256

// Scanner frames a raw line stream into telegrams. It owns the only state
// machine in the pipeline: inside/outside a telegram. Telegrams with a bad
// checksum are dropped and counted, never handed to the caller.
type Scanner struct {
	r         *bufio.Scanner
	verifyCRC bool

	lines   []string
	raw     bytes.Buffer
	open    bool
	dropped uint64
}

// NewScanner returns a scanner that verifies trailer checksums.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewScanner(r), verifyCRC: true}
}

// NewScannerNoCRC returns a scanner that skips checksum verification, for
// meters whose firmware emits no CRC.
func NewScannerNoCRC(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewScanner(r)}
}

// Next blocks until one complete, checksum-valid telegram has been read.
// It returns io.EOF when the underlying stream ends, and the reader's error
// otherwise.
func (s *Scanner) Next() (Telegram, error) {
	for s.r.Scan() {
		line := strings.TrimRight(s.r.Text(), "\r")

		if strings.HasPrefix(line, "/") {
			// A header always starts a fresh telegram, discarding any
			// half-read one from a mid-stream attach.
			s.reset()
			s.open = true
		}
		if !s.open {
			continue
		}

		s.lines = append(s.lines, line)
		s.raw.WriteString(line)
		s.raw.WriteString("\r\n")

		if strings.HasPrefix(line, "!") {
			t := Telegram{Lines: s.lines, Raw: append([]byte(nil), s.raw.Bytes()...)}
			s.reset()
			if s.verifyCRC {
				if err := VerifyChecksum(t.Raw); err != nil {
					s.dropped++
					continue
				}
			}
			return t, nil
		}

		if len(s.lines) > maxTelegramLines {
			s.dropped++
			s.reset()
		}
	}
	if err := s.r.Err(); err != nil {
		return Telegram{}, err
	}
	return Telegram{}, io.EOF
}

// Dropped reports how many telegrams were discarded for bad checksums or
// lost framing.
func (s *Scanner) Dropped() uint64 {
	return s.dropped
}

func (s *Scanner) reset() {
	s.lines = nil
	s.raw.Reset()
	s.open = false
}
