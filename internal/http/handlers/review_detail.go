package handlers

import (
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/cache"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
)

const reviewNotFound = "Review not found"

func GetReview(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		dctx, cancel := dbContext()
		defer cancel()
		r, err := store.GetReview(dctx, db, user.ID, pathParam(ctx, "id"))
		if err != nil {
			storeError(ctx, err, respond.CodeNotFound, reviewNotFound)
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, r)
	}
}

type updateReviewRequest struct {
	Status   string         `json:"status" validate:"required,oneof=pending approved rejected"`
	Metadata map[string]any `json:"metadata"`
}

// UpdateReview moderates one of the caller's reviews. Serves both PATCH and PUT.
func UpdateReview(db *gorm.DB, c cache.Cache) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req updateReviewRequest
		if !decodeBody(ctx, &req) {
			return
		}

		dctx, cancel := dbContext()
		defer cancel()
		r, err := store.UpdateReviewStatus(dctx, db, user.ID, pathParam(ctx, "id"), req.Status, req.Metadata, requestMeta(ctx))
		if err != nil {
			storeError(ctx, err, respond.CodeNotFound, reviewNotFound)
			return
		}
		invalidateStats(c, user.ID)
		respond.OK(ctx, fasthttp.StatusOK, r)
	}
}
