package readingdb

import "fmt"

const readingColumns = "id, timestamp, display_text, text, is_valid, numeric_value, scale, unit, acdc, " +
	"is_delta, flags, retry_count, raw_frame"

func InsertReading(reading *DbReading) error {
	db := GetDB()

	res, err := db.Exec(
		"INSERT INTO readings "+
			"(timestamp, display_text, text, is_valid, numeric_value, scale, unit, acdc, "+
			"is_delta, flags, retry_count, raw_frame) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		reading.Timestamp,
		reading.DisplayText,
		reading.Text,
		reading.IsValid,
		reading.NumericValue,
		reading.Scale,
		reading.Unit,
		reading.AcDc,
		reading.IsDelta,
		reading.Flags,
		reading.RetryCount,
		reading.RawFrame,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		reading.ID = id
	}
	return nil
}

// GetReadingsBetween returns readings with from <= timestamp <= to in insertion order.
func GetReadingsBetween(from, to int64) ([]DbReading, error) {
	db := GetDB()

	rows, err := db.Query(
		"SELECT "+readingColumns+" FROM readings WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []DbReading
	for rows.Next() {
		var r DbReading
		if err := rows.Scan(
			&r.ID, &r.Timestamp, &r.DisplayText, &r.Text, &r.IsValid, &r.NumericValue,
			&r.Scale, &r.Unit, &r.AcDc, &r.IsDelta, &r.Flags, &r.RetryCount, &r.RawFrame,
		); err != nil {
			return nil, err
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func GetHourlyAggregates(from, to int64) ([]AggregateReadingHourly, error) {
	return getAggregates("aggregate_readings_hourly", "hour_start", from, to)
}

func GetDailyAggregates(from, to int64) ([]AggregateReadingDaily, error) {
	return getAggregates("aggregate_readings_daily", "day_start", from, to)
}

func getAggregates(table, startColumn string, from, to int64) ([]AggregateReadingTable, error) {
	db := GetDB()

	query := fmt.Sprintf(
		"SELECT %[2]s, unit, acdc, valid_count, invalid_count, min_value, avg_value, max_value, retry_total "+
			"FROM %[1]s WHERE %[2]s >= ? AND %[2]s <= ? ORDER BY %[2]s, unit, acdc",
		table, startColumn,
	)
	rows, err := db.Query(query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggregates []AggregateReadingTable
	for rows.Next() {
		var a AggregateReadingTable
		if err := rows.Scan(
			&a.StartTime, &a.Unit, &a.AcDc, &a.ValidCount, &a.InvalidCount,
			&a.MinValue, &a.AvgValue, &a.MaxValue, &a.RetryTotal,
		); err != nil {
			return nil, err
		}
		aggregates = append(aggregates, a)
	}
	return aggregates, rows.Err()
}
