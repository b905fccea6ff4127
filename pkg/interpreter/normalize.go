package interpreter

import (
	"strconv"
	"strings"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/protocol"
)

// Normalize validates decoded fields and computes the scaled value.
// It never fails: a reading that breaks a rule comes back with IsValid false
// and no NumericValue so that bad frames stay visible downstream.
func Normalize(raw protocol.RawFields, retryCount int, frame protocol.Frame) Reading {
	reading := Reading{
		DisplayText:    raw.DisplayText(),
		Text:           InvalidText,
		IsValid:        true,
		Unit:           UnitUnknown,
		IsAuto:         raw.Has(protocol.CategoryFlags, protocol.LabelAuto),
		IsHold:         raw.Has(protocol.CategoryFlags, protocol.LabelHold),
		IsOverload:     raw.Overload(),
		Flags:          append([]string{}, raw.Flags...),
		Reserved:       append([]string{}, raw.Other...),
		ReadRetryCount: retryCount,
		RawFrame:       frame,
	}

	// AC/DC
	ac := raw.Has(protocol.CategoryFlags, protocol.LabelAC)
	dc := raw.Has(protocol.CategoryFlags, protocol.LabelDC)
	switch {
	case ac && dc:
		reading.IsValid = false
	case ac:
		reading.AcDc = AcDcAC
	case dc:
		reading.AcDc = AcDcDC
	}

	reading.IsDelta = raw.Has(protocol.CategoryFlags, protocol.LabelDelta)

	// Scale
	multiplier := 1.0
	switch len(raw.Scale) {
	case 0:
	case 1:
		reading.Scale = Scale(raw.Scale[0])
		multiplier = reading.Scale.Multiplier()
	default:
		reading.IsValid = false
	}

	// Measurement unit
	if len(raw.Measure) == 1 {
		if unit, ok := unitsByLabel[raw.Measure[0]]; ok {
			reading.Unit = unit
		}
	} else {
		reading.IsValid = false
	}

	// Display digits
	if raw.Undecodable() || raw.DecimalPoints() > 1 {
		reading.IsValid = false
	}
	value, err := strconv.ParseFloat(trimBlankDigits(reading.DisplayText), 64)
	if err != nil {
		reading.IsValid = false
	}

	if !reading.IsValid {
		return reading
	}
	scaled := value * multiplier
	reading.NumericValue = &scaled
	reading.Text = renderText(reading)
	return reading
}

func renderText(r Reading) string {
	var sb strings.Builder
	if r.IsDelta {
		sb.WriteString("delta ")
	}
	sb.WriteString(trimBlankDigits(r.DisplayText))
	sb.WriteByte(' ')
	sb.WriteString(string(r.Scale))
	sb.WriteString(r.Unit.Symbol())
	if r.AcDc != AcDcNone {
		sb.WriteByte(' ')
		sb.WriteString(string(r.AcDc))
	}
	return sb.String()
}

// trimBlankDigits drops unlit leading digits, keeping a lit minus sign in
// front of the first shown digit: "  24" is "24" and "- 0.50" is "-0.50".
func trimBlankDigits(display string) string {
	if rest, ok := strings.CutPrefix(display, "-"); ok {
		return "-" + strings.TrimLeft(rest, " ")
	}
	return strings.TrimLeft(display, " ")
}
