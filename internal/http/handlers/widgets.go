package handlers

import (
	"strings"

	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/cache"
	dbpkg "github.com/vanelang/review-flow/internal/db"
	"github.com/vanelang/review-flow/internal/formbuilder"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
)

const widgetNotFound = "Widget not found"

// normalizeDomains lower-cases entries and strips scheme, port and path so
// "https://Shop.example.com:443/x" is stored as "shop.example.com".
func normalizeDomains(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "https://")
		d = strings.TrimPrefix(d, "http://")
		if i := strings.IndexAny(d, "/:"); i >= 0 {
			d = d[:i]
		}
		out = append(out, d)
	}
	return out
}

// normalizeFormConfig validates config.fields of a review-form widget and
// renumbers them.
func normalizeFormConfig(cfg map[string]any) (map[string]any, error) {
	fields, err := formbuilder.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := formbuilder.Validate(fields); err != nil {
		return nil, err
	}
	return formbuilder.ToConfig(cfg, formbuilder.Normalize(fields)), nil
}

func ListWidgets(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		dctx, cancel := dbContext()
		defer cancel()
		widgets, err := store.ListWidgets(dctx, db, user.ID)
		if err != nil {
			storeError(ctx, err, "", "")
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, widgets)
	}
}

func GetWidget(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		dctx, cancel := dbContext()
		defer cancel()
		w, err := store.GetWidget(dctx, db, user.ID, pathParam(ctx, "id"))
		if err != nil {
			storeError(ctx, err, respond.CodeNotFound, widgetNotFound)
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, w)
	}
}

type createWidgetRequest struct {
	Name     string         `json:"name" validate:"required,min=2"`
	Type     string         `json:"type" validate:"required,oneof=review-form testimonial rating"`
	Config   map[string]any `json:"config" validate:"required"`
	Styles   map[string]any `json:"styles"`
	Domains  []string       `json:"domains" validate:"required,min=1,dive,required,hostname_rfc1123"`
	IsActive *bool          `json:"isActive"`
}

func (r *createWidgetRequest) normalize() { r.Domains = normalizeDomains(r.Domains) }

func CreateWidget(db *gorm.DB, c cache.Cache) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req createWidgetRequest
		if !decodeBody(ctx, &req) {
			return
		}

		cfg := req.Config
		if req.Type == dbpkg.WidgetTypeReviewForm {
			var err error
			if cfg, err = normalizeFormConfig(cfg); err != nil {
				badRequest(ctx, err.Error())
				return
			}
		}

		w := &dbpkg.Widget{
			UserID:   user.ID,
			Name:     strings.TrimSpace(req.Name),
			Type:     req.Type,
			Config:   datatypes.JSONMap(cfg),
			Styles:   datatypes.JSONMap(req.Styles),
			Domains:  datatypes.JSONSlice[string](req.Domains),
			IsActive: req.IsActive == nil || *req.IsActive,
		}
		dctx, cancel := dbContext()
		defer cancel()
		if err := store.CreateWidget(dctx, db, w, requestMeta(ctx)); err != nil {
			storeError(ctx, err, "", "")
			return
		}
		invalidateStats(c, user.ID)
		respond.OK(ctx, fasthttp.StatusCreated, w)
	}
}

type updateWidgetRequest struct {
	Name     *string        `json:"name" validate:"omitempty,min=2"`
	Type     *string        `json:"type" validate:"omitempty,oneof=review-form testimonial rating"`
	Config   map[string]any `json:"config"`
	Styles   map[string]any `json:"styles"`
	Domains  []string       `json:"domains" validate:"omitempty,min=1,dive,required,hostname_rfc1123"`
	IsActive *bool          `json:"isActive"`
}

func (r *updateWidgetRequest) normalize() { r.Domains = normalizeDomains(r.Domains) }

// UpdateWidget patches one of the caller's widgets. Another user's widget
// answers 404 and is left untouched.
func UpdateWidget(db *gorm.DB, c cache.Cache) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req updateWidgetRequest
		if !decodeBody(ctx, &req) {
			return
		}

		dctx, cancel := dbContext()
		defer cancel()
		id := pathParam(ctx, "id")
		current, err := store.GetWidget(dctx, db, user.ID, id)
		if err != nil {
			storeError(ctx, err, respond.CodeNotFound, widgetNotFound)
			return
		}

		typ := current.Type
		if req.Type != nil {
			typ = *req.Type
		}
		cfg := req.Config
		if typ == dbpkg.WidgetTypeReviewForm && (cfg != nil || typ != current.Type) {
			if cfg == nil {
				cfg = current.Config
			}
			if cfg, err = normalizeFormConfig(cfg); err != nil {
				badRequest(ctx, err.Error())
				return
			}
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			req.Name = &name
		}

		w, err := store.UpdateWidget(dctx, db, user.ID, id, store.WidgetPatch{
			Name:     req.Name,
			Type:     req.Type,
			Config:   cfg,
			Styles:   req.Styles,
			Domains:  req.Domains,
			IsActive: req.IsActive,
		}, requestMeta(ctx))
		if err != nil {
			storeError(ctx, err, respond.CodeNotFound, widgetNotFound)
			return
		}
		invalidateStats(c, user.ID)
		respond.OK(ctx, fasthttp.StatusOK, w)
	}
}

// DeleteWidget removes one of the caller's widgets and its reviews.
func DeleteWidget(db *gorm.DB, c cache.Cache) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		dctx, cancel := dbContext()
		defer cancel()
		if err := store.DeleteWidget(dctx, db, user.ID, pathParam(ctx, "id"), requestMeta(ctx)); err != nil {
			storeError(ctx, err, respond.CodeNotFound, widgetNotFound)
			return
		}
		invalidateStats(c, user.ID)
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}
