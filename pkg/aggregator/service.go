package aggregator

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/NotCoffee418/tp4000zc_logger/pkg/readingdb"
	log "github.com/sirupsen/logrus"
)

// roundToHourStart returns the Unix timestamp of the start of the hour for the given time
func roundToHourStart(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC).Unix()
}

// roundToDayStart returns the Unix timestamp of the start of the day for the given time
func roundToDayStart(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}

// getHourEnd returns the Unix timestamp of the last second of the hour (next hour start - 1)
func getHourEnd(hourStart int64) int64 {
	return time.Unix(hourStart, 0).Add(time.Hour).Unix() - 1
}

// getDayEnd returns the Unix timestamp of the last second of the day (next day start - 1)
func getDayEnd(dayStart int64) int64 {
	return time.Unix(dayStart, 0).UTC().AddDate(0, 0, 1).Unix() - 1
}

// aggregateReadings writes one row per (unit, acdc) seen in the bucket.
// Invalid readings count towards invalid_count and never towards the value stats.
func aggregateReadings(timeframe Timeframe, start int64) (int, error) {
	db := readingdb.GetDB()
	end := timeframe.end(start)

	query := `
		SELECT
			unit,
			acdc,
			SUM(CASE WHEN is_valid THEN 1 ELSE 0 END) as valid_count,
			SUM(CASE WHEN is_valid THEN 0 ELSE 1 END) as invalid_count,
			MIN(numeric_value) as min_value,
			AVG(numeric_value) as avg_value,
			MAX(numeric_value) as max_value,
			SUM(retry_count) as retry_total
		FROM readings
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY unit, acdc
	`

	rows, err := db.Query(query, start, end)
	if err != nil {
		return 0, err
	}

	var aggregates []readingdb.AggregateReadingTable
	for rows.Next() {
		a := readingdb.AggregateReadingTable{StartTime: start}
		if err := rows.Scan(
			&a.Unit, &a.AcDc, &a.ValidCount, &a.InvalidCount,
			&a.MinValue, &a.AvgValue, &a.MaxValue, &a.RetryTotal,
		); err != nil {
			rows.Close()
			return 0, err
		}
		aggregates = append(aggregates, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	// Insert or replace the aggregates
	insertQuery := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s
		(%s, unit, acdc, valid_count, invalid_count, min_value, avg_value, max_value, retry_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, timeframe.table(), timeframe.startColumn())

	for _, a := range aggregates {
		_, err := db.Exec(insertQuery,
			a.StartTime, a.Unit, a.AcDc, a.ValidCount, a.InvalidCount,
			a.MinValue, a.AvgValue, a.MaxValue, a.RetryTotal,
		)
		if err != nil {
			return 0, err
		}
	}
	return len(aggregates), nil
}

// cleanupOldData removes raw readings older than the retention if we have aggregated past it
func cleanupOldData(now time.Time, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	db := readingdb.GetDB()

	cutoff := now.UTC().AddDate(0, 0, -retentionDays)
	cutoffTimestamp := cutoff.Unix()

	var lastAggregateHour sql.NullInt64
	err := db.QueryRow("SELECT MAX(hour_start) FROM aggregate_readings_hourly").Scan(&lastAggregateHour)
	if err != nil {
		return err
	}

	// Only clean up if we have aggregated data up to the cutoff point
	if !lastAggregateHour.Valid || lastAggregateHour.Int64 < cutoffTimestamp {
		return nil
	}

	res, err := db.Exec("DELETE FROM readings WHERE timestamp < ?", cutoffTimestamp)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Printf("Cleaned up %d readings older than %s", n, cutoff.Format(time.RFC3339))
	}
	return nil
}

// AggregateAndCleanup performs all aggregation and cleanup tasks
// This is the main function to call for data aggregation
func AggregateAndCleanup(retentionDays int) error {
	return aggregateAndCleanupAt(time.Now().UTC(), retentionDays)
}

func aggregateAndCleanupAt(now time.Time, retentionDays int) error {
	// Aggregate the previous hour (current hour is still ongoing)
	hourStart := roundToHourStart(now.Add(-time.Hour))
	log.Printf("Aggregating readings for hour starting at %s", time.Unix(hourStart, 0).UTC().Format(time.RFC3339))

	if _, err := aggregateReadings(Hourly, hourStart); err != nil {
		log.Printf("Error aggregating hourly readings: %v", err)
		return err
	}

	// Aggregate the previous day if it's a new day
	if now.Hour() == 0 {
		dayStart := roundToDayStart(now.AddDate(0, 0, -1))
		log.Printf("Aggregating readings for day starting at %s", time.Unix(dayStart, 0).UTC().Format(time.RFC3339))

		if _, err := aggregateReadings(Daily, dayStart); err != nil {
			log.Printf("Error aggregating daily readings: %v", err)
			return err
		}
	}

	if err := cleanupOldData(now, retentionDays); err != nil {
		log.Printf("Error cleaning up old data: %v", err)
		return err
	}

	log.Println("Aggregation and cleanup completed successfully")
	return nil
}

// RunHourly aggregates at the top of every hour until stop is closed.
func RunHourly(retentionDays int, stop <-chan struct{}) {
	for {
		now := time.Now().UTC()
		next := time.Unix(roundToHourStart(now), 0).Add(time.Hour + 5*time.Second)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			if err := AggregateAndCleanup(retentionDays); err != nil {
				log.Errorf("Aggregation failed: %v", err)
			}
		}
	}
}
