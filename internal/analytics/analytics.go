// Package analytics holds the arithmetic behind the dashboard and trend
// endpoints. Queries live in the store; this package only shapes results.
package analytics

import (
	"math"
	"time"
)

// Unit is a bucket width understood by the store's bucketing queries.
type Unit string

const (
	Day   Unit = "day"
	Month Unit = "month"
)

type Period string

const (
	Daily   Period = "daily"
	Monthly Period = "monthly"
)

// ParsePeriod maps the trends query parameter to a Period. Unknown values are daily.
func ParsePeriod(s string) Period {
	if Period(s) == Monthly {
		return Monthly
	}
	return Daily
}

// Window returns the cutoff and bucket unit for a period: 30 days by day
// or 6 months by month.
func Window(p Period, now time.Time) (time.Time, Unit) {
	now = now.UTC()
	if p == Monthly {
		return now.AddDate(0, -6, 0), Month
	}
	return now.AddDate(0, 0, -30), Day
}

// Bucket is one row of a bucketed count query. Key is "YYYY-MM-DD"
// (the first day of the month for monthly buckets).
type Bucket struct {
	Key   string `gorm:"column:bucket" json:"date"`
	Count int64  `gorm:"column:n" json:"count"`
}

type TrendPoint struct {
	Date     string `json:"date"`
	Reviews  int64  `json:"reviews"`
	APICalls int64  `json:"apiCalls"`
}

// MergeTrends left-joins the API call series onto the review series by
// bucket key. Review buckets without API calls report zero.
func MergeTrends(reviews, calls []Bucket) []TrendPoint {
	byKey := make(map[string]int64, len(calls))
	for _, c := range calls {
		byKey[c.Key] += c.Count
	}
	out := make([]TrendPoint, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, TrendPoint{Date: r.Key, Reviews: r.Count, APICalls: byKey[r.Key]})
	}
	return out
}

// MonthLabels rewrites monthly bucket keys as short month names ("Jan").
// Keys that do not parse are kept as-is.
func MonthLabels(points []TrendPoint) []TrendPoint {
	out := make([]TrendPoint, len(points))
	for i, p := range points {
		out[i] = p
		if t, err := time.Parse(time.DateOnly, p.Date); err == nil {
			out[i].Date = t.Format("Jan")
		}
	}
	return out
}

// Growth is the rounded percentage change from previous to recent.
// It is 0 when there is no previous activity.
func Growth(recent, previous int64) int {
	if previous == 0 {
		return 0
	}
	return int(math.Round(float64(recent-previous) / float64(previous) * 100))
}

// SuccessRate is the rounded share of successful calls, 100 when there are none.
func SuccessRate(total, success int64) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(success) / float64(total) * 100))
}

// RoundRating rounds an average rating to one decimal.
func RoundRating(avg float64) float64 {
	if math.IsNaN(avg) || avg <= 0 {
		return 0
	}
	return math.Round(avg*10) / 10
}
