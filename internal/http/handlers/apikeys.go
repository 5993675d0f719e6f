package handlers

import (
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
)

// RotateAPIKey issues a new API key for the caller. The old key stops
// authenticating immediately.
func RotateAPIKey(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}

		dctx, cancel := dbContext()
		defer cancel()
		key, err := store.RotateAPIKey(dctx, db, user.ID, requestMeta(ctx))
		if err != nil {
			storeError(ctx, err, respond.CodeNotFound, "User not found")
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, map[string]string{"apiKey": key})
	}
}
