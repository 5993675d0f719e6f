package ctx

import (
	"github.com/valyala/fasthttp"

	dbpkg "github.com/vanelang/review-flow/internal/db"
)

const (
	UserKey       = "user"
	AuthMethodKey = "authMethod"
	ClientIPKey   = "clientIP"
)

// AuthMethod records which credential authenticated the request.
type AuthMethod string

const (
	AuthToken  AuthMethod = "token"
	AuthCookie AuthMethod = "cookie"
	AuthAPIKey AuthMethod = "api_key"
)

func SetUser(ctx *fasthttp.RequestCtx, user *dbpkg.User, method AuthMethod) {
	ctx.SetUserValue(UserKey, user)
	ctx.SetUserValue(AuthMethodKey, method)
}

func UserFromCtx(ctx *fasthttp.RequestCtx) (*dbpkg.User, bool) {
	u, ok := ctx.UserValue(UserKey).(*dbpkg.User)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}

func AuthMethodFromCtx(ctx *fasthttp.RequestCtx) (AuthMethod, bool) {
	m, ok := ctx.UserValue(AuthMethodKey).(AuthMethod)
	return m, ok
}

// SetClientIP records the resolved client address for the request.
func SetClientIP(ctx *fasthttp.RequestCtx, ip string) {
	ctx.SetUserValue(ClientIPKey, ip)
}

// ClientIP returns the address recorded by SetClientIP, or the peer address.
// Forwarding headers are never read here.
func ClientIP(ctx *fasthttp.RequestCtx) string {
	if ip, ok := ctx.UserValue(ClientIPKey).(string); ok && ip != "" {
		return ip
	}
	return ctx.RemoteIP().String()
}
