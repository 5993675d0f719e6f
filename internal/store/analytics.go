package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/analytics"
	dbpkg "github.com/vanelang/review-flow/internal/db"
)

// bucketExpr renders col truncated to unit as a 'YYYY-MM-DD' string in the
// connection's SQL dialect.
func bucketExpr(db *gorm.DB, col string, unit analytics.Unit) string {
	switch db.Dialector.Name() {
	case "postgres":
		return fmt.Sprintf("to_char(date_trunc('%s', %s AT TIME ZONE 'UTC'), 'YYYY-MM-DD')", unit, col)
	default:
		if unit == analytics.Month {
			return fmt.Sprintf("strftime('%%Y-%%m-01', %s)", col)
		}
		return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", col)
	}
}

func buckets(ctx context.Context, db *gorm.DB, model any, col, userID string, since time.Time, unit analytics.Unit) ([]analytics.Bucket, error) {
	out := []analytics.Bucket{}
	expr := bucketExpr(db, col, unit)
	err := db.WithContext(ctx).Model(model).
		Select(expr+" AS bucket, COUNT(*) AS n").
		Where("user_id = ? AND "+col+" >= ?", userID, since.UTC()).
		Group("bucket").Order("bucket").
		Scan(&out).Error
	return out, err
}

// ReviewBuckets counts the caller's reviews since the cutoff, per unit.
func ReviewBuckets(ctx context.Context, db *gorm.DB, userID string, since time.Time, unit analytics.Unit) ([]analytics.Bucket, error) {
	b, err := buckets(ctx, db, &dbpkg.Review{}, "created_at", userID, since, unit)
	if err != nil {
		return nil, fmt.Errorf("review buckets: %w", err)
	}
	return b, nil
}

// APICallBuckets counts the caller's recorded API calls since the cutoff, per unit.
func APICallBuckets(ctx context.Context, db *gorm.DB, userID string, since time.Time, unit analytics.Unit) ([]analytics.Bucket, error) {
	b, err := buckets(ctx, db, &dbpkg.APIUsage{}, "requested_at", userID, since, unit)
	if err != nil {
		return nil, fmt.Errorf("api call buckets: %w", err)
	}
	return b, nil
}

// ReviewSummary is the caller's all-time review aggregate plus the counts of
// the two trailing 30-day windows used for growth.
type ReviewSummary struct {
	Total     int64
	AvgRating float64
	Recent    int64
	Previous  int64
}

func SummarizeReviews(ctx context.Context, db *gorm.DB, userID string, now time.Time) (ReviewSummary, error) {
	now = now.UTC()
	recentFrom := now.AddDate(0, 0, -30)
	previousFrom := now.AddDate(0, 0, -60)

	var row struct {
		Total     int64
		AvgRating *float64
		Recent    int64
		Previous  int64
	}
	err := db.WithContext(ctx).Model(&dbpkg.Review{}).
		Select(`COUNT(*) AS total,
			AVG(rating) AS avg_rating,
			COUNT(CASE WHEN created_at > ? THEN 1 END) AS recent,
			COUNT(CASE WHEN created_at > ? AND created_at <= ? THEN 1 END) AS previous`,
			recentFrom, previousFrom, recentFrom).
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return ReviewSummary{}, fmt.Errorf("summarize reviews: %w", err)
	}
	s := ReviewSummary{Total: row.Total, Recent: row.Recent, Previous: row.Previous}
	if row.AvgRating != nil {
		s.AvgRating = *row.AvgRating
	}
	return s, nil
}

// ReviewsBySource counts the caller's reviews per source. Every source is present.
func ReviewsBySource(ctx context.Context, db *gorm.DB, userID string) (map[string]int64, error) {
	var rows []struct {
		Source string
		N      int64
	}
	err := db.WithContext(ctx).Model(&dbpkg.Review{}).
		Select("source, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("source").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("reviews by source: %w", err)
	}
	out := map[string]int64{
		dbpkg.ReviewSourceAPI:    0,
		dbpkg.ReviewSourceWidget: 0,
		dbpkg.ReviewSourceDirect: 0,
	}
	for _, r := range rows {
		out[r.Source] = r.N
	}
	return out, nil
}

// APIUsageSummary returns the number of recorded calls since the cutoff and
// how many of them succeeded (status < 400).
func APIUsageSummary(ctx context.Context, db *gorm.DB, userID string, since time.Time) (total, success int64, err error) {
	var row struct {
		Total   int64
		Success int64
	}
	err = db.WithContext(ctx).Model(&dbpkg.APIUsage{}).
		Select("COUNT(*) AS total, COUNT(CASE WHEN status_code < 400 THEN 1 END) AS success").
		Where("user_id = ? AND requested_at >= ?", userID, since.UTC()).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("api usage summary: %w", err)
	}
	return row.Total, row.Success, nil
}

// UsageForMonth returns the roll-up row of the month starting at periodStart.
func UsageForMonth(ctx context.Context, db *gorm.DB, userID string, periodStart time.Time) (*dbpkg.UsageLimit, error) {
	var u dbpkg.UsageLimit
	err := db.WithContext(ctx).Where("user_id = ? AND period_start = ?", userID, periodStart.UTC()).First(&u).Error
	if err != nil {
		return nil, fmt.Errorf("usage for month: %w", notFound(err))
	}
	return &u, nil
}
