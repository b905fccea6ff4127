package aggregator

// Timeframe selects the aggregate table a bucket is written to.
type Timeframe uint8

const (
	Hourly Timeframe = iota
	Daily
)

func (t Timeframe) String() string {
	switch t {
	case Hourly:
		return "hourly"
	case Daily:
		return "daily"
	default:
		return "unknown"
	}
}

func (t Timeframe) table() string {
	if t == Daily {
		return "aggregate_readings_daily"
	}
	return "aggregate_readings_hourly"
}

func (t Timeframe) startColumn() string {
	if t == Daily {
		return "day_start"
	}
	return "hour_start"
}

// end returns the last second of the bucket starting at start.
func (t Timeframe) end(start int64) int64 {
	if t == Daily {
		return getDayEnd(start)
	}
	return getHourEnd(start)
}
