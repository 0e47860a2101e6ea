package middleware

import (
	"CrowdGuard/pkg/cache"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.POST("/sos-requests/", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"lang": Lang(c), "request_id": c.GetString(RequestIDKey)})
	})
	return r
}

func TestIdempotencyReplaysSuccessfulResponse(t *testing.T) {
	store := cache.NewGoCache(cache.LocalConfig{})
	r := newEngine(IdempotencyMiddleware(IdempotencyConfig{Store: store, TTL: time.Minute}))

	send := func(key, requestID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sos-requests/", nil)
		req.Header.Set(RequestIDHeader, requestID)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := send("k1", "req-1")
	require.Equal(t, http.StatusCreated, first.Code)
	again := send("k1", "req-2")
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "true", again.Header().Get(ReplayedHeader))
	// the stored body comes back, not a fresh run of the handler
	assert.JSONEq(t, first.Body.String(), again.Body.String())

	assert.Empty(t, send("k2", "req-3").Header().Get(ReplayedHeader))
	// no header, no dedup
	assert.Empty(t, send("", "req-4").Header().Get(ReplayedHeader))
	assert.Empty(t, send("", "req-5").Header().Get(ReplayedHeader))
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	store := cache.NewGoCache(cache.LocalConfig{})
	r := gin.New()
	r.Use(IdempotencyMiddleware(IdempotencyConfig{Store: store, TTL: time.Minute}))
	calls := 0
	r.POST("/sos-requests/", func(c *gin.Context) {
		calls++
		if c.Query("lat") == "" {
			c.JSON(http.StatusBadRequest, gin.H{"latitude": []string{"This field is required."}})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": calls})
	})

	send := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("Idempotency-Key", "retry-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusBadRequest, send("/sos-requests/").Code)
	w := send("/sos-requests/?lat=29.9")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":2}`, w.Body.String())
	w = send("/sos-requests/?lat=29.9")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":2}`, w.Body.String())
	assert.Equal(t, 2, calls)
}

func TestIdempotencyConflictWhileInFlight(t *testing.T) {
	store := cache.NewGoCache(cache.LocalConfig{})
	_, err := store.SetNX(t.Context(), "idem:busy", inFlight, time.Minute)
	require.NoError(t, err)
	r := newEngine(IdempotencyMiddleware(IdempotencyConfig{Store: store}))

	req := httptest.NewRequest(http.MethodPost, "/sos-requests/", nil)
	req.Header.Set("Idempotency-Key", "busy")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRateLimiterDeniesOverLimit(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPrometheusObserver(reg)
	rl, err := NewRateLimiter(RateLimiterConfig{Rate: "2-M", AddHeaders: true}, nil)
	require.NoError(t, err)
	r := newEngine(rl.WithObserver(obs).Middleware())

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		r.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/sos-requests/", nil))
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
	assert.Contains(t, last.Body.String(), "Request was throttled.")
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.decisions.WithLabelValues("/sos-requests/", "allow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.decisions.WithLabelValues("/sos-requests/", "throttled")))
}

func TestRateLimiterPolicy(t *testing.T) {
	rl, err := NewRateLimiter(RateLimiterConfig{
		Rate:         "1-M",
		Identifier:   "user",
		ExemptUsers:  []string{"*@control.example"},
		BlockedCIDRs: []string{"10.9.0.0/16"},
	}, nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if email := c.GetHeader("X-Test-User"); email != "" {
			c.Set(userEmailKey, email)
		}
		c.Next()
	}, rl.Middleware())
	r.GET("/zones/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(user, ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/zones/", nil)
		req.RemoteAddr = ip + ":5555"
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	// users are counted separately even behind one address
	assert.Equal(t, http.StatusOK, send("a@x.com", "192.0.2.1"))
	assert.Equal(t, http.StatusOK, send("b@x.com", "192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("a@x.com", "192.0.2.1"))

	assert.Equal(t, http.StatusOK, send("desk@Control.example", "192.0.2.1"))
	assert.Equal(t, http.StatusOK, send("desk@control.example", "192.0.2.1"))
	assert.Equal(t, http.StatusForbidden, send("c@x.com", "10.9.3.4"))

	// a bad policy is rejected and the old one stays
	require.Error(t, rl.UpdateConfig(RateLimiterConfig{Rate: "1-M", TrustedCIDRs: []string{"not-a-cidr"}}))
	assert.Equal(t, "user", rl.Config().Identifier)

	require.NoError(t, rl.UpdateConfig(RateLimiterConfig{Rate: "1-M", TrustedCIDRs: []string{"192.0.2.0/24"}}))
	assert.Equal(t, "ip", rl.Config().Identifier)
	assert.Equal(t, http.StatusOK, send("a@x.com", "192.0.2.1"))
}

func TestLanguageAndRequestID(t *testing.T) {
	r := newEngine(AccessLogMiddleware(), LanguageMiddleware("en"))

	req := httptest.NewRequest(http.MethodPost, "/sos-requests/?lang=hi", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"lang":"hi","request_id":"req-1"}`, w.Body.String())
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodPost, "/sos-requests/", nil)
	req.Header.Set("Accept-Language", "de-DE")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"lang":"en"`)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRouteRatesCountSeparately(t *testing.T) {
	rl, err := NewRateLimiter(RateLimiterConfig{
		Rate:       "2-M",
		RouteRates: map[string]string{"/sos-requests/": "1-M"},
	}, nil)
	require.NoError(t, err)
	r := newEngine(rl.Middleware())
	r.GET("/zones/", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/zones/"))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/zones/"))
	// the global budget is spent but the route keeps its own
	assert.Equal(t, http.StatusCreated, send(http.MethodPost, "/sos-requests/"))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/sos-requests/"))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodGet, "/zones/"))
}

func TestGeoFieldsWithoutDatabase(t *testing.T) {
	assert.Nil(t, (&accessLog{}).geoFields("8.8.8.8"))
}
