package handlers

import (
	"net/url"
	"strings"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/cache"
	dbpkg "github.com/vanelang/review-flow/internal/db"
	httpctx "github.com/vanelang/review-flow/internal/http/ctx"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/observability"
	"github.com/vanelang/review-flow/internal/store"
)

// requestOrigin returns the host of the Origin header, or of the Referer
// when no Origin was sent.
func requestOrigin(ctx *fasthttp.RequestCtx) (origin, host string) {
	origin = string(ctx.Request.Header.Peek("Origin"))
	raw := origin
	if raw == "" || raw == "null" {
		raw = string(ctx.Referer())
	}
	if raw == "" {
		return origin, ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return origin, ""
	}
	return origin, strings.ToLower(u.Hostname())
}

// DomainAllowed reports whether host is one of domains or a sub-domain of one.
func DomainAllowed(host string, domains []string) bool {
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// loadPublicWidget resolves the active widget named in the path and checks
// the caller's origin against its domains.
func loadPublicWidget(ctx *fasthttp.RequestCtx, db *gorm.DB) (*dbpkg.Widget, bool) {
	dctx, cancel := dbContext()
	defer cancel()
	w, err := store.GetActiveWidget(dctx, db, pathParam(ctx, "id"))
	if err != nil {
		storeError(ctx, err, respond.CodeInvalidWidget, "Widget not found")
		return nil, false
	}
	origin, host := requestOrigin(ctx)
	if !DomainAllowed(host, w.Domains) {
		respond.Error(ctx, fasthttp.StatusForbidden, respond.CodeForbiddenOrigin, "Origin is not allowed for this widget")
		return nil, false
	}
	if origin != "" && origin != "null" {
		ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
		ctx.Response.Header.Set("Vary", "Origin")
	}
	return w, true
}

// PublicPreflight answers CORS preflight requests of embedded widgets.
func PublicPreflight(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if _, ok := loadPublicWidget(ctx, db); !ok {
			return
		}
		ctx.Response.Header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type")
		ctx.Response.Header.Set("Access-Control-Max-Age", "600")
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}

type publicReviewResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message any    `json:"message,omitempty"`
}

// PublicSubmitReview accepts a review posted by an embedded widget. No
// session is needed: the widget id and the origin allow-list stand in for it.
func PublicSubmitReview(db *gorm.DB, c cache.Cache, m *observability.Metrics) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		w, ok := loadPublicWidget(ctx, db)
		if !ok {
			return
		}
		var req ReviewInput
		if !decodeBody(ctx, &req) {
			return
		}

		dctx, cancel := dbContext()
		defer cancel()
		in := req.newReview(w.ID, dbpkg.ReviewSourceWidget, httpctx.ClientIP(ctx))
		r, err := store.CreateReview(dctx, db, w.UserID, in, requestMeta(ctx))
		if err != nil {
			storeError(ctx, err, respond.CodeInvalidWidget, "Widget not found")
			return
		}
		m.ObserveReviewCreated(r.Source)
		invalidateStats(c, w.UserID)
		respond.OK(ctx, fasthttp.StatusCreated, publicReviewResponse{
			ID:      r.ID,
			Status:  r.Status,
			Message: w.Config["successMessage"],
		})
	}
}
