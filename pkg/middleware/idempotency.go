package middleware

import (
	"CrowdGuard/pkg/cache"
	"CrowdGuard/pkg/logger"
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ReplayedHeader marks a response served from the idempotency store.
	ReplayedHeader = "Idempotent-Replayed"

	inFlight = "pending"
)

type IdempotencyConfig struct {
	HeaderName string
	// TTL is how long a successful response is replayed for its key.
	TTL   time.Duration
	Store cache.Cache
	// Prefix namespaces keys per route group.
	Prefix string
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type recordingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware makes requests carrying an Idempotency-Key safe to retry.
//
// The first request claims the key. A successful response is kept for TTL and replayed
// to later requests with the same key; a failed one releases the key so a corrected
// retry goes through. A duplicate arriving while the first is still running gets 409.
// Requests without the header pass through untouched.
func IdempotencyMiddleware(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "Idempotency-Key"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "idem:"
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(cfg.HeaderName))
		if key == "" || cfg.Store == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		storeKey := cfg.Prefix + key

		claimed, err := cfg.Store.SetNX(ctx, storeKey, inFlight, cfg.TTL)
		if err != nil {
			// cache outage must not block emergency requests
			logger.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			replay(c, cfg.Store, storeKey)
			return
		}

		rw := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rw
		c.Next()

		status := rw.Status()
		if status < 200 || status >= 300 {
			if err := cfg.Store.Delete(ctx, storeKey); err != nil {
				logger.Warn("idempotency key not released", zap.String("key", key), zap.Error(err))
			}
			return
		}
		raw, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: rw.Header().Get("Content-Type"),
			Body:        rw.body.Bytes(),
		})
		if err == nil {
			err = cfg.Store.Set(ctx, storeKey, string(raw), cfg.TTL)
		}
		if err != nil {
			logger.Warn("idempotent response not stored", zap.String("key", key), zap.Error(err))
		}
	}
}

func replay(c *gin.Context, store cache.Cache, storeKey string) {
	raw, ok := store.Get(c.Request.Context(), storeKey)
	if !ok || raw == inFlight {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"detail": "A request with this Idempotency-Key is still being processed."})
		return
	}
	var prev storedResponse
	if err := json.Unmarshal([]byte(raw), &prev); err != nil {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"detail": "duplicate request"})
		return
	}
	c.Header(ReplayedHeader, "true")
	c.Data(prev.Status, prev.ContentType, prev.Body)
	c.Abort()
}
