package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/financial-coach-api/internal/service"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakeCachePinger struct {
	enabled bool
	err     error
}

func (f fakeCachePinger) Enabled() bool              { return f.enabled }
func (f fakeCachePinger) Ping(context.Context) error { return f.err }

func serveHealth(h gin.HandlerFunc, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)
	h(c)
	return rec
}

func TestHealthReportsServiceAndTimestamp(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler("auth-service", fakePinger{}, nil, nil)
	h.now = func() time.Time { return time.UnixMilli(1700000000123) }

	rec := serveHealth(h.Health, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"status": "UP", "service": "auth-service", "timestamp": "1700000000123"}, body)
}

func TestReadyFailsWhenDatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler("auth-service", fakePinger{err: errors.New("connection refused")}, nil, nil)

	rec := serveHealth(h.Ready, "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"down"`)
}

func TestReadyToleratesRedisOutage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler("auth-service", fakePinger{}, fakeCachePinger{enabled: true, err: errors.New("timeout")}, nil)

	rec := serveHealth(h.Ready, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"down"`)
}

func TestReadyReportsDisabledCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler("auth-service", fakePinger{}, fakeCachePinger{}, nil)

	rec := serveHealth(h.Ready, "/ready")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"disabled"`)
}

func TestPrometheusExposesAuthCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordAuthEvent("login", service.OutcomeSuccess)
	h := NewHealthHandler("auth-service", fakePinger{}, nil, metrics)

	rec := serveHealth(h.Prometheus, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "auth_events_total"))
}

func TestPrometheusUnavailableWithoutMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHealthHandler("auth-service", fakePinger{}, nil, nil)

	rec := serveHealth(h.Prometheus, "/metrics")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	engine := gin.New()
	engine.GET("/metrics", h.Prometheus)
	routed := httptest.NewRecorder()
	engine.ServeHTTP(routed, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, routed.Code)
}
