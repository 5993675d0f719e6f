package handlers

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/auth"
	"github.com/vanelang/review-flow/internal/config"
	dbpkg "github.com/vanelang/review-flow/internal/db"
	"github.com/vanelang/review-flow/internal/http/middleware"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
)

type signupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

type signinRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	User  sessionUser `json:"user"`
	Token string      `json:"token"`
}

func setSessionCookie(ctx *fasthttp.RequestCtx, cfg *config.Config, token string, maxAge int) {
	var c fasthttp.Cookie
	c.SetKey(middleware.CookieName)
	c.SetValue(token)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	c.SetSecure(cfg.CookieSecure)
	c.SetSameSite(fasthttp.CookieSameSiteStrictMode)
	if maxAge > 0 {
		c.SetMaxAge(maxAge)
	} else {
		c.SetExpire(fasthttp.CookieExpireDelete)
	}
	ctx.Response.Header.SetCookie(&c)
}

func issueSession(ctx *fasthttp.RequestCtx, cfg *config.Config, u *dbpkg.User, status int) {
	token, err := auth.SignToken(cfg.AuthSecret, u.ID, time.Now().Add(cfg.TokenTTL))
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		respond.Internal(ctx)
		return
	}
	setSessionCookie(ctx, cfg, token, int(cfg.TokenTTL.Seconds()))
	respond.OK(ctx, status, sessionResponse{
		User:  sessionUser{ID: u.ID, Email: u.Email, Name: u.Name},
		Token: token,
	})
}

// Signup creates an account and starts a session.
func Signup(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req signupRequest
		if !decodeBody(ctx, &req) {
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			badRequest(ctx, err.Error())
			return
		}

		dctx, cancel := dbContext()
		defer cancel()
		u, err := store.CreateUser(dctx, db, req.Email, req.Name, hash)
		if err != nil {
			storeError(ctx, err, respond.CodeNotFound, "User not found")
			return
		}
		issueSession(ctx, cfg, u, fasthttp.StatusCreated)
	}
}

// Signin checks credentials and starts a session. Unknown email, wrong
// password and inactive account all answer the same 401.
func Signin(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var req signinRequest
		if !decodeBody(ctx, &req) {
			return
		}

		dctx, cancel := dbContext()
		defer cancel()
		u, err := store.GetUserByEmail(dctx, db, req.Email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			storeError(ctx, err, "", "")
			return
		}
		if u == nil || !u.IsActive || !auth.CheckPassword(u.PasswordHash, req.Password) {
			respond.Error(ctx, fasthttp.StatusUnauthorized, respond.CodeAuth, "Invalid credentials")
			return
		}
		issueSession(ctx, cfg, u, fasthttp.StatusOK)
	}
}

// Logout clears the session cookie.
func Logout(cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		setSessionCookie(ctx, cfg, "", -1)
		respond.OK(ctx, fasthttp.StatusOK, map[string]string{"message": "Logged out"})
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// ChangePassword replaces the caller's password after checking the current one.
func ChangePassword(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var req changePasswordRequest
		if !decodeBody(ctx, &req) {
			return
		}
		if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
			respond.Error(ctx, fasthttp.StatusUnauthorized, respond.CodeAuth, "Current password is incorrect")
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			badRequest(ctx, err.Error())
			return
		}

		dctx, cancel := dbContext()
		defer cancel()
		if err := store.UpdatePassword(dctx, db, user.ID, hash, requestMeta(ctx)); err != nil {
			storeError(ctx, err, respond.CodeNotFound, "User not found")
			return
		}
		respond.OK(ctx, fasthttp.StatusOK, map[string]string{"message": "Password updated"})
	}
}
