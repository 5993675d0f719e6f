package handlers

import (
	"errors"
	"time"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/analytics"
	"github.com/vanelang/review-flow/internal/config"
	dbpkg "github.com/vanelang/review-flow/internal/db"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
)

type apiUsageQuota struct {
	Current int64 `json:"current"`
	Limit   int   `json:"limit"`
}

type overviewResponse struct {
	TotalReviews    int64            `json:"totalReviews"`
	AverageRating   float64          `json:"averageRating"`
	ReviewsBySource map[string]int64 `json:"reviewsBySource"`
	APIUsage        apiUsageQuota    `json:"apiUsage"`
}

// Overview returns all-time review totals and this month's API quota use.
func Overview(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		dctx, cancel := dbContext()
		defer cancel()
		now := time.Now().UTC()

		summary, err := store.SummarizeReviews(dctx, db, user.ID, now)
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		bySource, err := store.ReviewsBySource(dctx, db, user.ID)
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		calls, _, err := store.APIUsageSummary(dctx, db, user.ID, now.AddDate(0, 0, -30))
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, overviewResponse{
			TotalReviews:    summary.Total,
			AverageRating:   analytics.RoundRating(summary.AvgRating),
			ReviewsBySource: bySource,
			APIUsage:        apiUsageQuota{Current: calls, Limit: cfg.APIUsageLimit},
		})
	}
}

// Trends returns review and API call counts per day (last 30 days) or per
// month (last 6 months). Unknown periods fall back to daily.
func Trends(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		period := analytics.ParsePeriod(queryString(ctx, "period"))
		since, unit := analytics.Window(period, time.Now())

		dctx, cancel := dbContext()
		defer cancel()
		reviews, err := store.ReviewBuckets(dctx, db, user.ID, since, unit)
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		calls, err := store.APICallBuckets(dctx, db, user.ID, since, unit)
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		ctx.Response.Header.Set("X-Trend-Period", string(period))
		respond.OK(ctx, fasthttp.StatusOK, analytics.MergeTrends(reviews, calls))
	}
}

// Usage returns the current month's roll-up row, zeroed when the roll-up
// has not run for the caller yet.
func Usage(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		start, end := dbpkg.MonthBounds(time.Now())

		dctx, cancel := dbContext()
		defer cancel()
		u, err := store.UsageForMonth(dctx, db, user.ID, start)
		if errors.Is(err, store.ErrNotFound) {
			u, err = &dbpkg.UsageLimit{UserID: user.ID, PeriodStart: start, PeriodEnd: end}, nil
		}
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, map[string]any{
			"usage":         u,
			"apiCallsLimit": cfg.APIUsageLimit,
		})
	}
}
