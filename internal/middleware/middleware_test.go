package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acl-rts-tracker/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type observed struct {
	method, route string
	status        int
}

type recordingObserver struct {
	calls []observed
}

func (r *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	r.calls = append(r.calls, observed{method, route, status})
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestCorrelationID(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetCorrelationID(c)) })

	t.Run("generated", func(t *testing.T) {
		rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get(CorrelationIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationIDHeader, "abc-123")
		rec := serve(router, req)
		assert.Equal(t, "abc-123", rec.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "abc-123", rec.Body.String())
	})
}

func TestRequestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(RequestTimeout(10 * time.Millisecond))
	router.GET("/", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			c.Status(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			c.Status(http.StatusOK)
		}
	})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestRequestTimeout_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(RequestTimeout(0))
	router.GET("/", func(c *gin.Context) {
		_, hasDeadline := c.Request.Context().Deadline()
		assert.False(t, hasDeadline)
		c.Status(http.StatusOK)
	})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuditLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	obs := &recordingObserver{}

	router := gin.New()
	router.Use(CorrelationID(), AuditLogger(logger, obs))
	router.GET("/api/v1/patients/:mrn", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/patients/000123", nil))

	require.Len(t, obs.calls, 1)
	assert.Equal(t, observed{"GET", "/api/v1/patients/:mrn", 404}, obs.calls[0])

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "/api/v1/patients/:mrn", entry.Data["route"])
	assert.NotEmpty(t, entry.Data["correlation_id"])

	serve(router, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, "unmatched", obs.calls[1].route)
}

func TestRecovery(t *testing.T) {
	logger, hook := test.NewNullLogger()

	router := gin.New()
	router.Use(Recovery(logger))
	router.GET("/", func(c *gin.Context) { panic("boom") })

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_SERVER_ERROR")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	newReq := func(ip string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return req
	}

	assert.Equal(t, http.StatusOK, serve(router, newReq("10.0.0.1")).Code)
	assert.Equal(t, http.StatusOK, serve(router, newReq("10.0.0.1")).Code)

	rec := serve(router, newReq("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrCodeRateLimit)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Other clients have their own bucket.
	assert.Equal(t, http.StatusOK, serve(router, newReq("10.0.0.2")).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(domain.RateLimitConfig{Enabled: false}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, serve(router, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}
