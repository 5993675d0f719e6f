package handlers

import (
	"strings"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/cache"
	dbpkg "github.com/vanelang/review-flow/internal/db"
	httpctx "github.com/vanelang/review-flow/internal/http/ctx"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/observability"
	"github.com/vanelang/review-flow/internal/store"
	"github.com/vanelang/review-flow/internal/validate"
)

// ReviewInput is the reviewer-supplied part of a review submission.
type ReviewInput struct {
	Rating        int            `json:"rating" validate:"required,min=1,max=5"`
	Title         *string        `json:"title" validate:"omitempty,max=200"`
	Content       string         `json:"content" validate:"required,max=5000"`
	AuthorName    string         `json:"authorName" validate:"required,max=200"`
	AuthorEmail   *string        `json:"authorEmail" validate:"omitempty,email"`
	AuthorConsent bool           `json:"authorConsent" validate:"eq=true"`
	Metadata      map[string]any `json:"metadata"`
}

func (b *ReviewInput) normalize() {
	b.Content = strings.TrimSpace(b.Content)
	b.AuthorName = strings.TrimSpace(b.AuthorName)
	if b.AuthorEmail != nil {
		e := strings.TrimSpace(*b.AuthorEmail)
		if e == "" {
			b.AuthorEmail = nil
		} else {
			b.AuthorEmail = &e
		}
	}
}

func (b ReviewInput) newReview(widgetID, source, ip string) store.NewReview {
	return store.NewReview{
		WidgetID:      widgetID,
		Rating:        b.Rating,
		Title:         b.Title,
		Content:       b.Content,
		AuthorName:    b.AuthorName,
		AuthorEmail:   b.AuthorEmail,
		AuthorConsent: b.AuthorConsent,
		Source:        source,
		Metadata:      b.Metadata,
		IPAddress:     ip,
	}
}

type createReviewRequest struct {
	WidgetID string `json:"widgetId" validate:"required,uuid"`
	Source   string `json:"source" validate:"omitempty,oneof=direct api widget"`
	ReviewInput
}

// CreateReview stores a review for one of the caller's widgets. The owner is
// always the authenticated user, whatever the payload says.
func CreateReview(db *gorm.DB, c cache.Cache, m *observability.Metrics) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req createReviewRequest
		if !decodeBody(ctx, &req) {
			return
		}
		source := req.Source
		if source == "" {
			source = dbpkg.ReviewSourceAPI
		}

		dctx, cancel := dbContext()
		defer cancel()
		r, err := store.CreateReview(dctx, db, user.ID, req.newReview(req.WidgetID, source, httpctx.ClientIP(ctx)), requestMeta(ctx))
		if err != nil {
			storeError(ctx, err, respond.CodeInvalidWidget, "Widget not found or unauthorized")
			return
		}
		m.ObserveReviewCreated(r.Source)
		invalidateStats(c, user.ID)
		respond.OK(ctx, fasthttp.StatusCreated, r)
	}
}

type listReviewsResponse struct {
	Reviews    []dbpkg.Review `json:"reviews"`
	Pagination pagination     `json:"pagination"`
}

// ListReviews returns a filtered page of the caller's reviews, newest first.
func ListReviews(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		page, limit := store.Page(queryInt(ctx, "page", 1), queryInt(ctx, "limit", 10))
		f := store.ReviewFilter{
			Status:   queryString(ctx, "status"),
			Source:   queryString(ctx, "source"),
			WidgetID: queryString(ctx, "widgetId"),
			Search:   queryString(ctx, "search"),
			Page:     page,
			Limit:    limit,
		}
		if err := validate.Var("status", f.Status, "omitempty,oneof=pending approved rejected"); err != nil {
			badRequest(ctx, err.Error())
			return
		}
		if err := validate.Var("source", f.Source, "omitempty,oneof=direct api widget"); err != nil {
			badRequest(ctx, err.Error())
			return
		}
		if err := validate.Var("widgetId", f.WidgetID, "omitempty,uuid"); err != nil {
			badRequest(ctx, err.Error())
			return
		}

		dctx, cancel := dbContext()
		defer cancel()
		reviews, total, err := store.ListReviews(dctx, db, user.ID, f)
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, listReviewsResponse{
			Reviews:    reviews,
			Pagination: newPagination(total, page, limit),
		})
	}
}
