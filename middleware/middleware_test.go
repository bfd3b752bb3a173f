package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhaven/storefront/limiter"
	"github.com/oakhaven/storefront/models"
	"github.com/oakhaven/storefront/store"
	"github.com/oakhaven/storefront/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.POST("/submit", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })
	return r
}

func post(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGlobalRateLimit_BurstThenDeny(t *testing.T) {
	r := newEngine(GlobalRateLimit(10))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, post(r, "10.0.0.1").Code, "request %d", i+1)
	}
	w := post(r, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":42900`)

	assert.Equal(t, http.StatusNoContent, post(r, "10.0.0.2").Code)
}

func TestSubmissionLimit_HeadersAndDenial(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := limiter.New(store.NewMemoryRateLimitStore()).WithClock(func() time.Time { return base })
	p := limiter.Policy{MaxAttempts: 2, Window: time.Minute}
	r := newEngine(SubmissionLimit(l, models.FormContact, p))

	before := testutil.ToFloat64(submissionsTotal.WithLabelValues(models.FormContact, OutcomeRateLimited))

	w := post(r, "10.0.0.3")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = post(r, "10.0.0.3")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = post(r, "10.0.0.3")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"resetTime":"2026-03-01T09:01:00Z"`)
	assert.Equal(t, before+1, testutil.ToFloat64(submissionsTotal.WithLabelValues(models.FormContact, OutcomeRateLimited)))

	// identities are independent
	assert.Equal(t, http.StatusNoContent, post(r, "10.0.0.4").Code)
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Time, time.Duration) (models.RateLimitRecord, error) {
	return models.RateLimitRecord{}, errors.New("redis: connection refused")
}

func (failingStore) Reset(context.Context, string) error { return nil }

func TestSubmissionLimit_StoreErrorFailsOpen(t *testing.T) {
	r := newEngine(SubmissionLimit(limiter.New(failingStore{}), models.FormReview, limiter.Policy{MaxAttempts: 1, Window: time.Hour}))

	for i := 0; i < 3; i++ {
		w := post(r, "10.0.0.5")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestAdminRequired(t *testing.T) {
	const secret = "moderation-secret"
	r := gin.New()
	r.POST("/admin", AdminRequired(secret), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, ctx.GetString(ContextAdminKey))
	})

	valid, err := utils.GenerateAdminToken(secret, "staff@oakhaven.example", time.Hour)
	require.NoError(t, err)
	foreign, err := utils.GenerateAdminToken("another-secret", "staff@oakhaven.example", time.Hour)
	require.NoError(t, err)
	expired, err := utils.GenerateAdminToken(secret, "staff@oakhaven.example", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, `"code":40101`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `"code":40102`},
		{"empty token", "Bearer  ", http.StatusUnauthorized, `"code":40103`},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, `"code":40105`},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, `"code":40105`},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Contains(t, w.Body.String(), tt.code)
			} else {
				assert.Equal(t, "staff@oakhaven.example", w.Body.String())
			}
		})
	}
}

func TestPrometheusMetrics_LabelsMatchedRoute(t *testing.T) {
	r := newEngine(PrometheusMetrics())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/submit", "204"))
	post(r, "10.0.0.6")
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/submit", "204")))

	unmatched := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, unmatched+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestRetryAfterSeconds(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 60, retryAfterSeconds(now.Add(time.Minute), now))
	assert.Equal(t, 1, retryAfterSeconds(now, now))
	assert.Equal(t, 1, retryAfterSeconds(now.Add(-time.Second), now))
}
