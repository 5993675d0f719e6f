package db

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MonthBounds returns the first instant of t's month and of the next month, in UTC.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

type userCount struct {
	UserID string
	N      int64
}

func countByUser(tx *gorm.DB, model any, where string, args ...any) (map[string]int64, error) {
	var rows []userCount
	q := tx.Model(model).Select("user_id, COUNT(*) AS n")
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Group("user_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.N
	}
	return out, nil
}

// RunUsageRollupOnce recomputes the UsageLimit row of every user for the
// month containing now. Rows are upserted on (user_id, period_start).
func RunUsageRollupOnce(ctx context.Context, db *gorm.DB, now time.Time) (int, error) {
	tx := db.WithContext(ctx)
	start, end := MonthBounds(now)

	reviews, err := countByUser(tx, &Review{}, "created_at >= ? AND created_at < ?", start, end)
	if err != nil {
		return 0, err
	}
	calls, err := countByUser(tx, &APIUsage{}, "requested_at >= ? AND requested_at < ?", start, end)
	if err != nil {
		return 0, err
	}
	widgets, err := countByUser(tx, &Widget{}, "")
	if err != nil {
		return 0, err
	}

	var userIDs []string
	if err := tx.Model(&User{}).Pluck("id", &userIDs).Error; err != nil {
		return 0, err
	}

	stamp := now.UTC()
	for _, id := range userIDs {
		row := UsageLimit{
			UserID:        id,
			PeriodStart:   start,
			PeriodEnd:     end,
			ReviewsCount:  reviews[id],
			APICallsCount: calls[id],
			WidgetsCount:  widgets[id],
			LastUpdated:   stamp,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "period_start"}},
			DoUpdates: clause.AssignmentColumns([]string{"period_end", "reviews_count", "api_calls_count", "widgets_count", "last_updated"}),
		}).Create(&row).Error
		if err != nil {
			return 0, err
		}
	}
	return len(userIDs), nil
}

// StartUsageRollupWorker runs the roll-up at startup, then every hour,
// until ctx is done.
func StartUsageRollupWorker(ctx context.Context, db *gorm.DB, logger zerolog.Logger) {
	run := func(t time.Time) {
		n, err := RunUsageRollupOnce(ctx, db, t)
		if err != nil {
			logger.Error().Err(err).Time("period", t.UTC()).Msg("usage roll-up failed")
			return
		}
		logger.Debug().Int("users", n).Msg("usage roll-up done")
	}

	go func() {
		run(time.Now())

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				run(t)
			}
		}
	}()
}
