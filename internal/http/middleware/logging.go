package middleware

import (
	"time"

	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	httpctx "github.com/vanelang/review-flow/internal/http/ctx"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/observability"
)

// RoutePattern returns the matched route pattern (e.g. /api/widgets/{id}),
// which requires router.SaveMatchedRoutePath. Unmatched requests share one label.
func RoutePattern(ctx *fasthttp.RequestCtx) string {
	if p, ok := ctx.UserValue(router.MatchedRoutePathParam).(string); ok && p != "" {
		return p
	}
	return "unmatched"
}

// RequestLogger logs method, route, status, duration and client IP of every
// request, and records them in the HTTP metrics.
func RequestLogger(logger zerolog.Logger, m *observability.Metrics) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			dur := time.Since(start)

			route := RoutePattern(ctx)
			method := string(ctx.Method())
			status := ctx.Response.StatusCode()
			m.ObserveHTTP(route, method, status, dur)

			ev := logger.Info()
			if status >= 500 {
				ev = logger.Error()
			}
			ev.Str("method", method).
				Str("route", route).
				Bytes("path", ctx.Path()).
				Int("status", status).
				Dur("duration", dur).
				Str("ip", httpctx.ClientIP(ctx)).
				Msg("request")
		}
	}
}

// Recover turns a panic in next into a 500 INTERNAL_ERROR response.
func Recover(logger zerolog.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error().
						Interface("panic", r).
						Bytes("path", ctx.Path()).
						Msg("handler panicked")
					ctx.Response.Reset()
					respond.Internal(ctx)
				}
			}()
			next(ctx)
		}
	}
}
