package handlers

import (
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
)

// GetMe returns the caller's profile.
func GetMe() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, newUserView(user))
	}
}

type updateMeRequest struct {
	Name               *string `json:"name" validate:"omitempty,min=2"`
	Email              *string `json:"email" validate:"omitempty,email"`
	CompanyName        *string `json:"companyName" validate:"omitempty,max=200"`
	AutoApproveReviews *bool   `json:"autoApproveReviews"`
}

// UpdateMe patches the caller's profile. A new email already used by
// another account answers 409.
func UpdateMe(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req updateMeRequest
		if !decodeBody(ctx, &req) {
			return
		}

		dctx, cancel := dbContext()
		defer cancel()
		u, err := store.UpdateProfile(dctx, db, user.ID, store.ProfilePatch{
			Name:               req.Name,
			Email:              req.Email,
			CompanyName:        req.CompanyName,
			AutoApproveReviews: req.AutoApproveReviews,
		})
		if err != nil {
			storeError(ctx, err, respond.CodeNotFound, "User not found")
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, newUserView(u))
	}
}
