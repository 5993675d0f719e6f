// Package respond writes the JSON envelope shared by every API route:
// {"success": bool, "data": ..., "error": {"code": ..., "message": ...}}.
package respond

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

const (
	CodeAuth            = "AUTH_ERROR"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeNotFound        = "RESOURCE_NOT_FOUND"
	CodeInvalidWidget   = "INVALID_WIDGET"
	CodeConflict        = "CONFLICT"
	CodeForbiddenOrigin = "FORBIDDEN_ORIGIN"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL_ERROR"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

func write(ctx *fasthttp.RequestCtx, status int, env Envelope) {
	b, err := json.Marshal(env)
	if err != nil {
		status = fasthttp.StatusInternalServerError
		b = []byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"Internal server error"}}`)
	}
	ctx.Response.Header.Set("Cache-Control", "no-store")
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(status)
	ctx.SetBody(b)
}

// OK writes a successful envelope around data.
func OK(ctx *fasthttp.RequestCtx, status int, data any) {
	write(ctx, status, Envelope{Success: true, Data: data})
}

// Error writes a failed envelope.
func Error(ctx *fasthttp.RequestCtx, status int, code, message string) {
	write(ctx, status, Envelope{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

func Unauthorized(ctx *fasthttp.RequestCtx) {
	Error(ctx, fasthttp.StatusUnauthorized, CodeAuth, "Unauthorized")
}

func Internal(ctx *fasthttp.RequestCtx) {
	Error(ctx, fasthttp.StatusInternalServerError, CodeInternal, "Internal server error")
}
