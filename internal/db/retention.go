package db

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// RetentionResult reports how many rows a single retention pass removed.
type RetentionResult struct {
	UsageRows   int64
	ReviewsRows int64
}

// RunRetentionOnce performs a single pass of retention cleanup: usage logs
// older than the global window (or the owner's shorter window) and reviews
// whose scheduled deletion time has passed.
func RunRetentionOnce(ctx context.Context, db *gorm.DB, retentionDays int, now time.Time) (RetentionResult, error) {
	var res RetentionResult
	tx := db.WithContext(ctx)
	now = now.UTC()

	if retentionDays > 0 {
		cutoff := now.AddDate(0, 0, -retentionDays)
		r := tx.Where("requested_at < ?", cutoff).Delete(&APIUsage{})
		if r.Error != nil {
			return res, r.Error
		}
		res.UsageRows += r.RowsAffected
	}

	// Owners may ask for less history than the service default.
	var owners []User
	q := tx.Select("id", "data_retention_days").Where("data_retention_days > 0")
	if retentionDays > 0 {
		q = q.Where("data_retention_days < ?", retentionDays)
	}
	if err := q.Find(&owners).Error; err != nil {
		return res, err
	}
	for _, u := range owners {
		cutoff := now.AddDate(0, 0, -u.DataRetentionDays)
		r := tx.Where("user_id = ? AND requested_at < ?", u.ID, cutoff).Delete(&APIUsage{})
		if r.Error != nil {
			return res, r.Error
		}
		res.UsageRows += r.RowsAffected
	}

	r := tx.Where("scheduled_for_deletion IS NOT NULL AND scheduled_for_deletion <= ?", now).Delete(&Review{})
	if r.Error != nil {
		return res, r.Error
	}
	res.ReviewsRows = r.RowsAffected
	return res, nil
}

// StartRetentionWorker launches a background goroutine that runs the
// retention cleanup once at startup and then once per day until ctx is done.
func StartRetentionWorker(ctx context.Context, db *gorm.DB, retentionDays int, logger zerolog.Logger) {
	run := func(stage string) {
		res, err := RunRetentionOnce(ctx, db, retentionDays, time.Now())
		if err != nil {
			logger.Error().Err(err).Str("stage", stage).Msg("retention cleanup failed")
			return
		}
		logger.Info().
			Str("stage", stage).
			Int64("usage_rows", res.UsageRows).
			Int64("reviews", res.ReviewsRows).
			Msg("retention cleanup done")
	}

	go func() {
		run("startup")

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run("tick")
			}
		}
	}()
}
