package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeTrends_MissingAPIBucketIsZero(t *testing.T) {
	reviews := []Bucket{{Key: "2025-03-01", Count: 2}, {Key: "2025-03-02", Count: 1}}
	calls := []Bucket{{Key: "2025-03-02", Count: 7}, {Key: "2025-03-05", Count: 3}}

	got := MergeTrends(reviews, calls)
	assert.Equal(t, []TrendPoint{
		{Date: "2025-03-01", Reviews: 2, APICalls: 0},
		{Date: "2025-03-02", Reviews: 1, APICalls: 7},
	}, got)
}

func TestMergeTrends_Empty(t *testing.T) {
	got := MergeTrends(nil, []Bucket{{Key: "2025-03-01", Count: 1}})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGrowth(t *testing.T) {
	cases := []struct {
		name             string
		recent, previous int64
		want             int
	}{
		{"no activity", 0, 0, 0},
		{"no previous", 5, 0, 0},
		{"doubled", 10, 5, 100},
		{"halved", 5, 10, -50},
		{"rounded", 2, 3, -33},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Growth(tc.recent, tc.previous))
		})
	}
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, 100, SuccessRate(0, 0))
	assert.Equal(t, 67, SuccessRate(3, 2))
	assert.Equal(t, 0, SuccessRate(4, 0))
}

func TestRoundRating(t *testing.T) {
	assert.Equal(t, 0.0, RoundRating(0))
	assert.Equal(t, 4.3, RoundRating(4.26))
	assert.Equal(t, 3.5, RoundRating(3.46))
}

func TestParsePeriodAndWindow(t *testing.T) {
	now := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, Daily, ParsePeriod("weekly"))
	assert.Equal(t, Monthly, ParsePeriod("monthly"))

	since, unit := Window(Daily, now)
	assert.Equal(t, Day, unit)
	assert.Equal(t, now.AddDate(0, 0, -30), since)

	since, unit = Window(Monthly, now)
	assert.Equal(t, Month, unit)
	assert.Equal(t, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), since)
}

func TestMonthLabels(t *testing.T) {
	got := MonthLabels([]TrendPoint{{Date: "2025-01-01", Reviews: 1}, {Date: "bogus"}})
	assert.Equal(t, "Jan", got[0].Date)
	assert.Equal(t, "bogus", got[1].Date)
}
