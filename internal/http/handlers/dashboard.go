package handlers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/analytics"
	"github.com/vanelang/review-flow/internal/cache"
	"github.com/vanelang/review-flow/internal/config"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
)

type countGrowth struct {
	Total  int64 `json:"total"`
	Growth int   `json:"growth"`
}

type usageRate struct {
	Total       int64 `json:"total"`
	SuccessRate int   `json:"successRate"`
}

type widgetTotals struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

type dashboardStats struct {
	Reviews   countGrowth  `json:"reviews"`
	APIUsage  usageRate    `json:"apiUsage"`
	Widgets   widgetTotals `json:"widgets"`
	AvgRating float64      `json:"avgRating"`
}

type dashboardResponse struct {
	Stats         dashboardStats          `json:"stats"`
	ChartData     []analytics.TrendPoint `json:"chartData"`
	RecentReviews []recentReview          `json:"recentReviews"`
}

// buildDashboard runs the independent aggregate queries concurrently.
func buildDashboard(ctx context.Context, db *gorm.DB, userID string, now time.Time) (*dashboardResponse, error) {
	var (
		summary        store.ReviewSummary
		calls, success int64
		total, active  int64
		reviewSeries   []analytics.Bucket
		callSeries     []analytics.Bucket
		recent         []recentReview
	)
	chartSince, chartUnit := analytics.Window(analytics.Monthly, now)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary, err = store.SummarizeReviews(gctx, db, userID, now)
		return err
	})
	g.Go(func() (err error) {
		calls, success, err = store.APIUsageSummary(gctx, db, userID, now.AddDate(0, 0, -30))
		return err
	})
	g.Go(func() (err error) {
		total, active, err = store.WidgetCounts(gctx, db, userID)
		return err
	})
	g.Go(func() (err error) {
		reviewSeries, err = store.ReviewBuckets(gctx, db, userID, chartSince, chartUnit)
		return err
	})
	g.Go(func() (err error) {
		callSeries, err = store.APICallBuckets(gctx, db, userID, chartSince, chartUnit)
		return err
	})
	g.Go(func() error {
		rs, err := store.RecentReviews(gctx, db, userID, 3)
		recent = newRecentReviews(rs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &dashboardResponse{
		Stats: dashboardStats{
			Reviews:   countGrowth{Total: summary.Total, Growth: analytics.Growth(summary.Recent, summary.Previous)},
			APIUsage:  usageRate{Total: calls, SuccessRate: analytics.SuccessRate(calls, success)},
			Widgets:   widgetTotals{Total: total, Active: active},
			AvgRating: analytics.RoundRating(summary.AvgRating),
		},
		ChartData:     analytics.MonthLabels(analytics.MergeTrends(reviewSeries, callSeries)),
		RecentReviews: recent,
	}, nil
}

// DashboardStats returns the caller's dashboard, served from the stats cache
// when possible. Mutations of reviews and widgets drop the cached copy.
func DashboardStats(db *gorm.DB, c cache.Cache, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		dctx, cancel := dbContext()
		defer cancel()

		key := cache.StatsKey(user.ID)
		var cached dashboardResponse
		if hit, err := c.Get(dctx, key, &cached); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("stats cache read failed")
		} else if hit {
			respond.OK(ctx, fasthttp.StatusOK, cached)
			return
		}

		resp, err := buildDashboard(dctx, db, user.ID, time.Now().UTC())
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		// An invalidation racing this write can leave stats stale for at most
		// StatsCacheTTL. API usage and retention never invalidate.
		if cfg.StatsCacheTTL > 0 {
			if err := c.Set(dctx, key, resp, cfg.StatsCacheTTL); err != nil {
				log.Warn().Err(err).Str("user_id", user.ID).Msg("stats cache write failed")
			}
		}
		respond.OK(ctx, fasthttp.StatusOK, resp)
	}
}
