package protocol

import "fmt"

// Decode turns an aligned frame into raw fields. Position nibbles are not
// checked here; that is the reader's job.
func Decode(frame Frame) RawFields {
	var raw RawFields
	for i, pair := range digitPositions {
		raw.Digits[i] = decodeDigit(frame.Nibble(pair[0]), frame.Nibble(pair[1]))
	}
	for _, fb := range flagTable {
		decodeFlagByte(frame.Nibble(fb.position), fb.bits, &raw)
	}
	return raw
}

func decodeDigit(a, b byte) Digit {
	d := Digit{HighBit: a&0x8 != 0}
	d.Char, d.Decoded = digitTable[nibblePair{a & 0x7, b}]
	return d
}

func decodeFlagByte(nibble byte, bits [4]bitLabel, raw *RawFields) {
	bitVal := byte(8)
	for _, bl := range bits {
		if nibble&bitVal != 0 {
			nibble &^= bitVal
			labels := raw.labels(bl.category)
			*labels = append(*labels, bl.label)
		}
		bitVal >>= 1
	}
}

// EncodeDigit returns the nibble pair that displays ch.
func EncodeDigit(ch rune) (a, b byte, ok bool) {
	for pair, c := range digitTable {
		if c == ch {
			return pair.a, pair.b, true
		}
	}
	return 0, 0, false
}

// Encode builds a frame showing display with the given flag labels set.
// The display must hold exactly four digit characters, optionally led by
// a minus sign, with decimal points only before digits 2-4.
func Encode(display string, labels ...string) (Frame, error) {
	var frame Frame
	for pos := 1; pos <= FrameLength; pos++ {
		frame[pos-1] = byte(pos << 4)
	}

	idx := 0
	highBit := false
	for i, ch := range display {
		switch {
		case ch == '-' && i == 0:
			highBit = true
			continue
		case ch == '.':
			if idx == 0 || highBit {
				return Frame{}, fmt.Errorf("misplaced decimal point in %q", display)
			}
			highBit = true
			continue
		}
		if idx >= len(digitPositions) {
			return Frame{}, fmt.Errorf("too many digits in %q", display)
		}
		a, b, ok := EncodeDigit(ch)
		if !ok {
			return Frame{}, fmt.Errorf("no segment pattern for %q", ch)
		}
		if highBit {
			a |= 0x8
		}
		pair := digitPositions[idx]
		frame[pair[0]-1] |= a
		frame[pair[1]-1] |= b
		highBit = false
		idx++
	}
	if idx != len(digitPositions) || highBit {
		return Frame{}, fmt.Errorf("display %q does not fill four digits", display)
	}

	for _, label := range labels {
		if err := setLabel(&frame, label); err != nil {
			return Frame{}, err
		}
	}
	return frame, nil
}

func setLabel(frame *Frame, label string) error {
	for _, fb := range flagTable {
		bitVal := byte(8)
		for _, bl := range fb.bits {
			if bl.label == label {
				frame[fb.position-1] |= bitVal
				return nil
			}
			bitVal >>= 1
		}
	}
	return fmt.Errorf("unknown flag label %q", label)
}
