// Package protocol holds the TP4000ZC wire format: the 14-byte frame, the
// nibble tables and the frame decoder.
package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// FrameLength is the number of bytes in one display snapshot.
const FrameLength = 14

// UndecodableDigit is rendered in display text for a digit whose nibble pair
// is not in the segment table.
const UndecodableDigit = 'X'

// Frame is one aligned burst. Byte i (1-based) carries i in its high nibble.
type Frame [FrameLength]byte

// Position returns the position nibble of the byte at 1-based offset pos.
func (f Frame) Position(pos int) int {
	return int(f[pos-1] >> 4)
}

// Nibble returns the data nibble of the byte at 1-based offset pos.
func (f Frame) Nibble(pos int) byte {
	return f[pos-1] & 0x0f
}

// Aligned reports whether every position nibble matches its offset.
func (f Frame) Aligned() bool {
	for pos := 1; pos <= FrameLength; pos++ {
		if f.Position(pos) != pos {
			return false
		}
	}
	return true
}

func (f Frame) String() string {
	var sb strings.Builder
	for i, b := range f {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

func (f Frame) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(f[:])), nil
}

func (f *Frame) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid frame hex: %w", err)
	}
	if len(b) != FrameLength {
		return fmt.Errorf("invalid frame length %d, want %d", len(b), FrameLength)
	}
	copy(f[:], b)
	return nil
}

// Category names one of the four label sets a flag bit belongs to.
type Category string

const (
	CategoryFlags   Category = "flags"
	CategoryScale   Category = "scale"
	CategoryMeasure Category = "measure"
	CategoryOther   Category = "other"
)

// Digit is one decoded display position.
// Char is only meaningful when Decoded is true.
type Digit struct {
	Char    rune
	Decoded bool
	// HighBit is the stripped bit 8 of the first nibble: a minus sign on the
	// first digit, a preceding decimal point on the others.
	HighBit bool
}

// RawFields is the decoder output, before any validation.
type RawFields struct {
	Digits  [4]Digit
	Flags   []string
	Scale   []string
	Measure []string
	Other   []string
}

func (r *RawFields) labels(c Category) *[]string {
	switch c {
	case CategoryFlags:
		return &r.Flags
	case CategoryScale:
		return &r.Scale
	case CategoryMeasure:
		return &r.Measure
	default:
		return &r.Other
	}
}

// Has reports whether label is present in category c.
func (r RawFields) Has(c Category, label string) bool {
	for _, l := range *r.labels(c) {
		if l == label {
			return true
		}
	}
	return false
}

// Negative reports the sign bit carried by the first digit pair.
func (r RawFields) Negative() bool {
	return r.Digits[0].HighBit
}

// DecimalPoints counts the decimal points flagged on digits 2-4.
func (r RawFields) DecimalPoints() int {
	n := 0
	for _, d := range r.Digits[1:] {
		if d.HighBit {
			n++
		}
	}
	return n
}

// Undecodable reports whether any digit missed the segment table.
func (r RawFields) Undecodable() bool {
	for _, d := range r.Digits {
		if !d.Decoded {
			return true
		}
	}
	return false
}

// Overload reports an "L" on the display, shown for out-of-range inputs.
func (r RawFields) Overload() bool {
	for _, d := range r.Digits {
		if d.Decoded && d.Char == 'L' {
			return true
		}
	}
	return false
}

// DisplayText renders the four digits the way the instrument shows them.
func (r RawFields) DisplayText() string {
	var sb strings.Builder
	for i, d := range r.Digits {
		if d.HighBit {
			if i == 0 {
				sb.WriteByte('-')
			} else {
				sb.WriteByte('.')
			}
		}
		if d.Decoded {
			sb.WriteRune(d.Char)
		} else {
			sb.WriteRune(UndecodableDigit)
		}
	}
	return sb.String()
}
