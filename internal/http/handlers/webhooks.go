package handlers

import (
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
)

const webhookEntity = "webhook"

type configureWebhookRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"required,min=1,dive,oneof=review.created review.updated review.deleted widget.created widget.updated"`
}

type webhookView struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Status string   `json:"status"`
}

// ConfigureWebhook accepts a delivery target. Nothing is delivered yet; the
// configuration is only recorded in the audit log.
func ConfigureWebhook(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req configureWebhookRequest
		if !decodeBody(ctx, &req) {
			return
		}
		view := webhookView{ID: uuid.NewString(), URL: req.URL, Events: req.Events, Status: "active"}

		dctx, cancel := dbContext()
		defer cancel()
		err := store.RecordAudit(dctx, db, user.ID, "webhook.configured", webhookEntity, view.ID,
			map[string]any{"url": req.URL, "events": req.Events}, requestMeta(ctx))
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, view)
	}
}

// WebhookLogs pages through the caller's webhook audit rows, newest first.
func WebhookLogs(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		page, limit := store.Page(queryInt(ctx, "page", 1), queryInt(ctx, "limit", 0))

		dctx, cancel := dbContext()
		defer cancel()
		logs, total, err := store.ListAudit(dctx, db, user.ID, webhookEntity, page, limit)
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, map[string]any{
			"logs":       logs,
			"pagination": newPagination(total, page, limit),
		})
	}
}
