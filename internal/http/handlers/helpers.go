package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/vanelang/review-flow/internal/cache"
	dbpkg "github.com/vanelang/review-flow/internal/db"
	httpctx "github.com/vanelang/review-flow/internal/http/ctx"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
	"github.com/vanelang/review-flow/internal/validate"
)

// dbTimeout bounds the database work of a single request.
const dbTimeout = 10 * time.Second

func dbContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

// MustUser returns the current user from context, or sends 401 and returns (nil, false).
func MustUser(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	user, ok := httpctx.UserFromCtx(ctx)
	if !ok {
		respond.Unauthorized(ctx)
		return nil, false
	}
	return user, true
}

// normalizer is implemented by request types that clean up their input
// before validation.
type normalizer interface {
	normalize()
}

// decodeBody unmarshals the JSON body into dst and validates it. On failure
// it writes 400 INVALID_REQUEST and returns false.
func decodeBody(ctx *fasthttp.RequestCtx, dst any) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		badRequest(ctx, "Invalid JSON body")
		return false
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := validate.Struct(dst); err != nil {
		badRequest(ctx, err.Error())
		return false
	}
	return true
}

func badRequest(ctx *fasthttp.RequestCtx, msg string) {
	respond.Error(ctx, fasthttp.StatusBadRequest, respond.CodeInvalidRequest, msg)
}

func notFound(ctx *fasthttp.RequestCtx, code, msg string) {
	respond.Error(ctx, fasthttp.StatusNotFound, code, msg)
}

// storeError maps a store error onto the envelope. ErrNotFound becomes 404
// with code; anything unexpected is logged and reported as 500.
func storeError(ctx *fasthttp.RequestCtx, err error, code, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		notFound(ctx, code, msg)
	case errors.Is(err, store.ErrEmailTaken):
		respond.Error(ctx, fasthttp.StatusConflict, respond.CodeConflict, "Email already registered")
	default:
		log.Error().Err(err).Bytes("path", ctx.Path()).Msg("request failed")
		respond.Internal(ctx)
	}
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	s, _ := ctx.UserValue(name).(string)
	return s
}

func queryString(ctx *fasthttp.RequestCtx, name string) string {
	return string(ctx.QueryArgs().Peek(name))
}

func queryInt(ctx *fasthttp.RequestCtx, name string, def int) int {
	v := queryString(ctx, name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func requestMeta(ctx *fasthttp.RequestCtx) store.Meta {
	return store.Meta{IP: httpctx.ClientIP(ctx), UserAgent: string(ctx.UserAgent())}
}

// invalidateStats drops the cached dashboard of userID after a mutation.
func invalidateStats(c cache.Cache, userID string) {
	cctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Del(cctx, cache.StatsKey(userID)); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("stats cache invalidation failed")
	}
}
