package overlay

import "time"

// DayBucket is a contiguous run of candles sharing one UTC calendar date.
type DayBucket struct {
	Date    string // "2006-01-02", UTC
	Candles []Candle
}

// PartitionDays groups an ascending candle series into calendar-day buckets,
// oldest day first. Buckets are never empty; an empty input yields no buckets.
func PartitionDays(candles []Candle) []DayBucket {
	var buckets []DayBucket
	for _, c := range candles {
		date := time.Unix(c.Time, 0).UTC().Format("2006-01-02")
		if n := len(buckets); n > 0 && buckets[n-1].Date == date {
			buckets[n-1].Candles = append(buckets[n-1].Candles, c)
			continue
		}
		buckets = append(buckets, DayBucket{Date: date, Candles: []Candle{c}})
	}
	return buckets
}
