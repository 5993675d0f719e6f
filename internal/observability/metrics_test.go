package observability_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanelang/review-flow/internal/observability"
)

func TestMetricsWriteText(t *testing.T) {
	m := observability.NewMetrics()
	m.ObserveHTTP("/api/reviews", "GET", 200, 12*time.Millisecond)
	m.ObserveReviewCreated("widget")
	m.ObserveCache("miss")

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, `reviewflow_http_requests_total{method="GET",route="/api/reviews",status="200"} 1`)
	assert.Contains(t, out, "reviewflow_http_request_duration_seconds_bucket")
	assert.Contains(t, out, `reviewflow_reviews_created_total{source="widget"} 1`)
	assert.Contains(t, out, `reviewflow_stats_cache_events_total{event="miss"} 1`)
}

func TestMetricsNilIsNoop(t *testing.T) {
	var m *observability.Metrics
	m.ObserveHTTP("/x", "GET", 500, time.Second)
	m.ObserveCache("hit")

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Empty(t, buf.String())
}

func TestNewLogger(t *testing.T) {
	l := observability.NewLogger("dev")
	l.Info().Msg("console logger works")
	l = observability.NewLogger("prod")
	l.Info().Msg("json logger works")
}
