package handlers

import (
	"bytes"

	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/vanelang/review-flow/internal/observability"
)

// MetricsHandler exposes the service registry in the Prometheus text format.
func MetricsHandler(m *observability.Metrics) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var buf bytes.Buffer
		if err := m.WriteText(&buf); err != nil {
			log.Error().Err(err).Msg("encode metrics")
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to encode metrics")
			return
		}
		ctx.SetContentType(observability.ContentType())
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}
