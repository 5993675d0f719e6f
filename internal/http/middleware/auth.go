package middleware

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/auth"
	"github.com/vanelang/review-flow/internal/config"
	dbpkg "github.com/vanelang/review-flow/internal/db"
	httpctx "github.com/vanelang/review-flow/internal/http/ctx"
	"github.com/vanelang/review-flow/internal/http/respond"
	"github.com/vanelang/review-flow/internal/store"
)

// CookieName carries the session token for browser clients.
const CookieName = "auth_token"

// RequireUser authenticates the request and puts the user on the context.
// Credentials are tried in order: Authorization: Bearer <token>, the
// auth_token cookie, then X-API-Key. Inactive users are rejected.
func RequireUser(db *gorm.DB, cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			user, method, err := authenticate(ctx, db, cfg)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) && !errors.Is(err, errNoCredentials) {
					log.Error().Err(err).Msg("auth lookup failed")
					respond.Internal(ctx)
					return
				}
				respond.Unauthorized(ctx)
				return
			}
			if !user.IsActive {
				respond.Unauthorized(ctx)
				return
			}
			httpctx.SetUser(ctx, user, method)
			next(ctx)
		}
	}
}

var errNoCredentials = errors.New("no valid credentials")

func authenticate(ctx *fasthttp.RequestCtx, db *gorm.DB, cfg *config.Config) (*dbpkg.User, httpctx.AuthMethod, error) {
	dbctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const prefix = "Bearer "
	if h := ctx.Request.Header.Peek("Authorization"); bytes.HasPrefix(h, []byte(prefix)) {
		token := strings.TrimSpace(string(h[len(prefix):]))
		if c, ok := auth.VerifyToken(cfg.AuthSecret, token, time.Now()); ok {
			u, err := store.GetUserByID(dbctx, db, c.UserID)
			return u, httpctx.AuthToken, err
		}
		return nil, "", errNoCredentials
	}

	if cookie := ctx.Request.Header.Cookie(CookieName); len(cookie) > 0 {
		if c, ok := auth.VerifyToken(cfg.AuthSecret, string(cookie), time.Now()); ok {
			u, err := store.GetUserByID(dbctx, db, c.UserID)
			return u, httpctx.AuthCookie, err
		}
	}

	if key := strings.TrimSpace(string(ctx.Request.Header.Peek("X-API-Key"))); key != "" {
		u, err := store.GetUserByAPIKey(dbctx, db, key)
		return u, httpctx.AuthAPIKey, err
	}
	return nil, "", errNoCredentials
}
