package aggregation

import (
	"encoding/json"
	"sort"
	"time"

	v1 "github.com/aevon-lab/knocklog/internal/api/v1"
)

// BucketKey identifies one local clock hour as yyyymmddhh.
// Integer order equals chronological order.
type BucketKey int64

// KeyFor returns the bucket key of t read in loc.
func KeyFor(t time.Time, loc *time.Location) BucketKey {
	local := t.In(loc)
	year, month, day := local.Date()
	return BucketKey(int64(year)*1_000_000 + int64(month)*10_000 + int64(day)*100 + int64(local.Hour()))
}

// Hour returns the local hour-of-day of the bucket.
func (k BucketKey) Hour() int { return int(k % 100) }

// Start returns the first instant of the bucket in loc.
func (k BucketKey) Start(loc *time.Location) time.Time {
	n := int64(k)
	hour := int(n % 100)
	day := int(n / 100 % 100)
	month := time.Month(n / 10_000 % 100)
	year := int(n / 1_000_000)
	return time.Date(year, month, day, hour, 0, 0, 0, loc)
}

// BucketRow is one hour of the graph.
// Hour is a display label only; rows are keyed and ordered by Key.
type BucketRow struct {
	Key         BucketKey
	Hour        int
	BucketStart time.Time
	Counts      Counts
}

// MarshalJSON flattens the counts next to the hour label so a chart can read
// {"hour":9,"ping":1,"answered":1,"entrance":0} directly.
func (r BucketRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Counts)+2)
	out["hour"] = r.Hour
	out["bucket_start"] = r.BucketStart
	for _, c := range v1.Categories {
		out[string(c)] = r.Counts.Get(c)
	}
	return json.Marshal(out)
}

// Aggregate groups every event at or after windowStart into local hour buckets.
// Rows come back in chronological order with every category present.
// Hours without events produce no row.
func (c Calendar) Aggregate(events []v1.EventRecord, windowStart time.Time) []BucketRow {
	startMs := windowStart.UnixMilli()
	loc := c.Location()

	buckets := make(map[BucketKey]Counts)
	for _, evt := range events {
		if evt.Timestamp < startMs {
			continue
		}
		key := KeyFor(time.UnixMilli(evt.Timestamp), loc)
		counts, ok := buckets[key]
		if !ok {
			counts = NewCounts()
			buckets[key] = counts
		}
		counts.Add(evt.Type)
	}

	keys := make([]BucketKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	rows := make([]BucketRow, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, BucketRow{
			Key:         key,
			Hour:        key.Hour(),
			BucketStart: key.Start(loc),
			Counts:      buckets[key],
		})
	}
	return rows
}

// Point is one bar of a single-category series.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Series splits rows into one x=hour, y=count series per category.
func Series(rows []BucketRow) map[v1.Category][]Point {
	series := make(map[v1.Category][]Point, len(v1.Categories))
	for _, c := range v1.Categories {
		points := make([]Point, 0, len(rows))
		for _, row := range rows {
			points = append(points, Point{X: row.Hour, Y: row.Counts.Get(c)})
		}
		series[c] = points
	}
	return series
}
