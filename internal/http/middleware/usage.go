package middleware

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "github.com/vanelang/review-flow/internal/db"
	httpctx "github.com/vanelang/review-flow/internal/http/ctx"
	"github.com/vanelang/review-flow/internal/store"
)

// RecordUsage appends an api_usage row after every request authenticated by
// API key. It must run inside RequireUser. Failures are logged, never returned.
func RecordUsage(db *gorm.DB) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)

			if m, ok := httpctx.AuthMethodFromCtx(ctx); !ok || m != httpctx.AuthAPIKey {
				return
			}
			user, ok := httpctx.UserFromCtx(ctx)
			if !ok {
				return
			}

			row := &dbpkg.APIUsage{
				UserID:         user.ID,
				Endpoint:       string(ctx.Path()),
				Method:         string(ctx.Method()),
				StatusCode:     ctx.Response.StatusCode(),
				ResponseTimeMs: time.Since(start).Milliseconds(),
				IPAddress:      httpctx.ClientIP(ctx),
				UserAgent:      string(ctx.UserAgent()),
				RequestedAt:    start.UTC(),
			}
			dbctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := store.RecordAPIUsage(dbctx, db, row); err != nil {
				log.Warn().Err(err).Str("user_id", user.ID).Msg("usage not recorded")
			}
		}
	}
}
