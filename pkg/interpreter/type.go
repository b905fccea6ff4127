package interpreter

import (
	"encoding/json"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/protocol"
	log "github.com/sirupsen/logrus"
)

// InvalidText is the text of a reading that failed validation.
const InvalidText = "Invalid Value"

// Scale is the SI prefix shown on the display. Empty means unscaled.
type Scale string

const (
	ScaleNone  Scale = ""
	ScaleNano  Scale = "n"
	ScaleMicro Scale = "u"
	ScaleMilli Scale = "m"
	ScaleKilo  Scale = "k"
	ScaleMega  Scale = "M"
)

var scaleMultipliers = map[Scale]float64{
	ScaleNone:  1,
	ScaleNano:  1e-9,
	ScaleMicro: 1e-6,
	ScaleMilli: 1e-3,
	ScaleKilo:  1e3,
	ScaleMega:  1e6,
}

// Multiplier returns the factor that converts displayed digits to base units.
func (s Scale) Multiplier() float64 {
	return scaleMultipliers[s]
}

type Unit string

const (
	UnitAmps      Unit = "A"
	UnitVolts     Unit = "V"
	UnitOhms      Unit = "Ohms"
	UnitFarads    Unit = "F"
	UnitHertz     Unit = "Hertz"
	UnitCelsius   Unit = "degC"
	UnitDutyCycle Unit = "duty-cycle"
	UnitDiode     Unit = "diode"
	UnitUnknown   Unit = "unknown"
)

var unitsByLabel = map[string]Unit{
	protocol.LabelAmps:    UnitAmps,
	protocol.LabelVolts:   UnitVolts,
	protocol.LabelOhms:    UnitOhms,
	protocol.LabelFarad:   UnitFarads,
	protocol.LabelHertz:   UnitHertz,
	protocol.LabelCelsius: UnitCelsius,
	protocol.LabelDuty:    UnitDutyCycle,
	protocol.LabelDiode:   UnitDiode,
}

// Symbol is the unit as printed after the scale letter.
func (u Unit) Symbol() string {
	if u == UnitDutyCycle {
		return "%"
	}
	return string(u)
}

// AcDc is the coupling mode. Empty when neither flag is lit.
type AcDc string

const (
	AcDcNone AcDc = ""
	AcDcAC   AcDc = "AC"
	AcDcDC   AcDc = "DC"
)

// Reading is one validated display snapshot. Treat it as immutable once
// returned by Normalize.
type Reading struct {
	Timestamp    time.Time `json:"timestamp"`
	DisplayText  string    `json:"display_text"`
	Text         string    `json:"text"`
	IsValid      bool      `json:"is_valid"`
	NumericValue *float64  `json:"numeric_value"`
	Scale        Scale     `json:"scale,omitempty"`
	Unit         Unit      `json:"unit"`
	AcDc         AcDc      `json:"acdc,omitempty"`
	IsDelta      bool      `json:"is_delta"`
	IsAuto       bool      `json:"is_auto"`
	IsHold       bool      `json:"is_hold"`
	IsOverload   bool      `json:"is_overload"`

	// Raw labels for audit
	Flags    []string `json:"flags"`
	Reserved []string `json:"reserved"`

	ReadRetryCount int            `json:"read_retry_count"`
	RawFrame       protocol.Frame `json:"raw_frame"`
}

func (r *Reading) ToJsonBytes() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		log.Printf("Error marshaling reading: %v", err)
		return nil
	}
	return data
}

// ReadingFromJsonBytes returns nil when data is not a reading.
func ReadingFromJsonBytes(data []byte) *Reading {
	var reading Reading
	if err := json.Unmarshal(data, &reading); err != nil {
		return nil
	}
	if reading.Unit == "" {
		return nil
	}
	return &reading
}
