package handlers

import (
	"errors"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "github.com/vanelang/review-flow/internal/db"
	"github.com/vanelang/review-flow/internal/formbuilder"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
)

type formView struct {
	Fields           []formbuilder.Field `json:"fields"`
	SubmitButtonText any                 `json:"submitButtonText,omitempty"`
	SuccessMessage   any                 `json:"successMessage,omitempty"`
	Connections      any                 `json:"connections,omitempty"`
}

func newFormView(cfg map[string]any, fields []formbuilder.Field) formView {
	return formView{
		Fields:           fields,
		SubmitButtonText: cfg["submitButtonText"],
		SuccessMessage:   cfg["successMessage"],
		Connections:      cfg["connections"],
	}
}

// loadForm returns the caller's review-form widget and its fields, writing
// the error response itself when it cannot.
func loadForm(ctx *fasthttp.RequestCtx, db *gorm.DB, userID string) (*dbpkg.Widget, []formbuilder.Field, bool) {
	dctx, cancel := dbContext()
	defer cancel()
	w, err := store.GetWidget(dctx, db, userID, pathParam(ctx, "id"))
	if err != nil {
		storeError(ctx, err, respond.CodeNotFound, widgetNotFound)
		return nil, nil, false
	}
	if w.Type != dbpkg.WidgetTypeReviewForm {
		badRequest(ctx, "widget is not a review form")
		return nil, nil, false
	}
	fields, err := formbuilder.FromConfig(w.Config)
	if err != nil {
		badRequest(ctx, err.Error())
		return nil, nil, false
	}
	return w, formbuilder.Normalize(fields), true
}

func saveForm(ctx *fasthttp.RequestCtx, db *gorm.DB, userID string, w *dbpkg.Widget, cfg map[string]any, fields []formbuilder.Field, status int) {
	cfg = formbuilder.ToConfig(cfg, fields)
	dctx, cancel := dbContext()
	defer cancel()
	saved, err := store.UpdateWidget(dctx, db, userID, w.ID, store.WidgetPatch{Config: cfg}, requestMeta(ctx))
	if err != nil {
		storeError(ctx, err, respond.CodeNotFound, widgetNotFound)
		return
	}
	respond.OK(ctx, status, newFormView(saved.Config, fields))
}

func formError(ctx *fasthttp.RequestCtx, err error) {
	if errors.Is(err, formbuilder.ErrFieldNotFound) {
		notFound(ctx, respond.CodeNotFound, err.Error())
		return
	}
	badRequest(ctx, err.Error())
}

func GetForm(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		w, fields, ok := loadForm(ctx, db, user.ID)
		if !ok {
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, newFormView(w.Config, fields))
	}
}

type saveFormRequest struct {
	Fields           []formbuilder.Field `json:"fields" validate:"required"`
	SubmitButtonText *string             `json:"submitButtonText" validate:"omitempty,max=100"`
	SuccessMessage   *string             `json:"successMessage" validate:"omitempty,max=500"`
	Connections      any                 `json:"connections"`
}

// SaveForm replaces the whole field list (and the form texts when given).
func SaveForm(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req saveFormRequest
		if !decodeBody(ctx, &req) {
			return
		}
		if err := formbuilder.Validate(req.Fields); err != nil {
			badRequest(ctx, err.Error())
			return
		}
		w, _, ok := loadForm(ctx, db, user.ID)
		if !ok {
			return
		}
		cfg := map[string]any(w.Config)
		if cfg == nil {
			cfg = map[string]any{}
		}
		if req.SubmitButtonText != nil {
			cfg["submitButtonText"] = *req.SubmitButtonText
		}
		if req.SuccessMessage != nil {
			cfg["successMessage"] = *req.SuccessMessage
		}
		if req.Connections != nil {
			cfg["connections"] = req.Connections
		}
		saveForm(ctx, db, user.ID, w, cfg, formbuilder.Normalize(req.Fields), fasthttp.StatusOK)
	}
}

type addFieldRequest struct {
	Type string `json:"type" validate:"required,oneof=text email rating textarea"`
}

func AddFormField(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req addFieldRequest
		if !decodeBody(ctx, &req) {
			return
		}
		w, fields, ok := loadForm(ctx, db, user.ID)
		if !ok {
			return
		}
		fields, _, err := formbuilder.AddField(fields, req.Type)
		if err != nil {
			formError(ctx, err)
			return
		}
		saveForm(ctx, db, user.ID, w, w.Config, fields, fasthttp.StatusCreated)
	}
}

func UpdateFormField(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var patch formbuilder.FieldPatch
		if !decodeBody(ctx, &patch) {
			return
		}
		w, fields, ok := loadForm(ctx, db, user.ID)
		if !ok {
			return
		}
		fields, err := formbuilder.UpdateField(fields, pathParam(ctx, "fieldId"), patch)
		if err != nil {
			formError(ctx, err)
			return
		}
		saveForm(ctx, db, user.ID, w, w.Config, fields, fasthttp.StatusOK)
	}
}

func RemoveFormField(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		w, fields, ok := loadForm(ctx, db, user.ID)
		if !ok {
			return
		}
		fields, err := formbuilder.RemoveField(fields, pathParam(ctx, "fieldId"))
		if err != nil {
			formError(ctx, err)
			return
		}
		saveForm(ctx, db, user.ID, w, w.Config, fields, fasthttp.StatusOK)
	}
}

type reorderRequest struct {
	IDs []string `json:"ids" validate:"required"`
}

func ReorderFormFields(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req reorderRequest
		if !decodeBody(ctx, &req) {
			return
		}
		w, fields, ok := loadForm(ctx, db, user.ID)
		if !ok {
			return
		}
		fields, err := formbuilder.Reorder(fields, req.IDs)
		if err != nil {
			formError(ctx, err)
			return
		}
		saveForm(ctx, db, user.ID, w, w.Config, fields, fasthttp.StatusOK)
	}
}
