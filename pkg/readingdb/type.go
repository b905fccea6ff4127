package readingdb

import (
	"database/sql"
	"strings"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/interpreter"
)

// DbReading is one stored row. Scale/unit/acdc are the interpreter's string values.
type DbReading struct {
	ID           int64           `db:"id"`
	Timestamp    int64           `db:"timestamp"`
	DisplayText  string          `db:"display_text"`
	Text         string          `db:"text"`
	IsValid      bool            `db:"is_valid"`
	NumericValue sql.NullFloat64 `db:"numeric_value"`
	Scale        string          `db:"scale"`
	Unit         string          `db:"unit"`
	AcDc         string          `db:"acdc"`
	IsDelta      bool            `db:"is_delta"`
	Flags        string          `db:"flags"`
	RetryCount   int             `db:"retry_count"`
	RawFrame     string          `db:"raw_frame"`
}

// Aggregate models, one row per timeframe, unit and coupling.
// Use timeframe specified types instead of this directly
type AggregateReadingTable struct {
	StartTime    int64           `db:"start_time"`
	Unit         string          `db:"unit"`
	AcDc         string          `db:"acdc"`
	ValidCount   uint32          `db:"valid_count"`
	InvalidCount uint32          `db:"invalid_count"`
	MinValue     sql.NullFloat64 `db:"min_value"`
	AvgValue     sql.NullFloat64 `db:"avg_value"`
	MaxValue     sql.NullFloat64 `db:"max_value"`
	RetryTotal   uint32          `db:"retry_total"`
}

type AggregateReadingHourly = AggregateReadingTable
type AggregateReadingDaily = AggregateReadingTable

// DbReadingFromReading flattens a reading for storage.
func DbReadingFromReading(r *interpreter.Reading) *DbReading {
	row := &DbReading{
		Timestamp:   r.Timestamp.Unix(),
		DisplayText: r.DisplayText,
		Text:        r.Text,
		IsValid:     r.IsValid,
		Scale:       string(r.Scale),
		Unit:        string(r.Unit),
		AcDc:        string(r.AcDc),
		IsDelta:     r.IsDelta,
		Flags:       strings.Join(r.Flags, ","),
		RetryCount:  r.ReadRetryCount,
	}
	if text, err := r.RawFrame.MarshalText(); err == nil {
		row.RawFrame = string(text)
	}
	if r.NumericValue != nil {
		row.NumericValue = sql.NullFloat64{Float64: *r.NumericValue, Valid: true}
	}
	return row
}
