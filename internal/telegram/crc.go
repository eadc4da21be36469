package telegram

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// DSMR telegrams carry a CRC-16/ARC after the '!' trailer: polynomial 0x8005
// reflected (0xA001), zero init, no final xor, computed over every byte from
// the '/' header up to and including the '!'.
const crcPoly = 0xA001

var crcTable = buildCRCTable()

func buildCRCTable() [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ crcPoly
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}

// Checksum computes the CRC-16/ARC of data.
func Checksum(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crc>>8 ^ crcTable[byte(crc)^b]
	}
	return crc
}

// VerifyChecksum splits raw telegram bytes at the '!' marker, computes the
// checksum of the content (marker included) and compares it against the hex
// digits following the marker.
func VerifyChecksum(raw []byte) error {
	idx := bytes.LastIndexByte(raw, '!')
	if idx < 0 {
		return &MalformedTelegramError{Reason: "missing '!' checksum trailer"}
	}
	given := strings.TrimSpace(string(raw[idx+1:]))
	if given == "" {
		return &MalformedTelegramError{Reason: "empty checksum after '!'"}
	}
	want, err := strconv.ParseUint(given, 16, 16)
	if err != nil {
		return &MalformedTelegramError{Reason: fmt.Sprintf("checksum %q is not hex", given)}
	}
	if got := Checksum(raw[:idx+1]); got != uint16(want) {
		return &MalformedTelegramError{Reason: fmt.Sprintf("checksum mismatch: telegram says 0x%04X, computed 0x%04X", want, got)}
	}
	return nil
}
