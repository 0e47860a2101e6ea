package handlers

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/middleware"
	"CrowdGuard/pkg/response"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// parseID reads the :id path parameter. A malformed id is reported as not found.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.NotFound(c)
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		response.Error(c, models.BindingError(err))
		return false
	}
	return true
}

// labels localizes display values for the request's language.
func (h *Handlers) labels(c *gin.Context) models.Labeler {
	if h.i18n == nil {
		return models.PlainLabels
	}
	lang := middleware.Lang(c)
	return func(id, fallback string) string {
		return h.i18n.T(lang, id, fallback)
	}
}

func (h *Handlers) cacheTTL() time.Duration {
	if ttl := h.cfg.Cache.Local.DefaultExpiration; ttl > 0 {
		return ttl
	}
	return time.Minute
}

// cachedList serves a full active-row list from the cache, loading and storing it on
// a miss. A cache that cannot decode or store the value is bypassed.
func cachedList[T any](ctx context.Context, h *Handlers, key string, load func() ([]T, error)) ([]T, error) {
	if raw, ok := h.cache.Get(ctx, key); ok {
		var rows []T
		if err := json.Unmarshal([]byte(raw), &rows); err == nil {
			h.metrics.RecordCacheHit(key)
			return rows, nil
		}
	}
	h.metrics.RecordCacheMiss(key)
	rows, err := load()
	if err != nil {
		return nil, err
	}
	if buf, err := json.Marshal(rows); err == nil {
		_ = h.cache.Set(ctx, key, string(buf), h.cacheTTL())
	}
	return rows, nil
}

func (h *Handlers) invalidate(ctx context.Context, keys ...string) {
	_ = h.cache.Delete(ctx, keys...)
}

func staffRequired(c *gin.Context) {
	if u := models.CurrentUser(c); u == nil || !u.IsStaff {
		response.Detail(c, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	c.Next()
}
