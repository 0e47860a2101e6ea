package handlers

import (
	"CrowdGuard/pkg/metrics"
	"CrowdGuard/pkg/middleware"
	"CrowdGuard/pkg/response"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// UpdateRateLimiterConfig replaces the API rate limit at runtime.
func (h *Handlers) UpdateRateLimiterConfig(c *gin.Context) {
	if h.limiter == nil {
		response.Detail(c, http.StatusBadRequest, "rate limiting is disabled")
		return
	}
	var cfg middleware.RateLimiterConfig
	if !bindJSON(c, &cfg) {
		return
	}
	cur := h.limiter.Config()
	if cfg.Rate == "" {
		cfg.Rate = cur.Rate
	}
	if cfg.Identifier == "" {
		cfg.Identifier = cur.Identifier
	}
	if cfg.SkipPaths == nil {
		cfg.SkipPaths = cur.SkipPaths
	}
	if err := h.limiter.UpdateConfig(cfg); err != nil {
		response.Detail(c, http.StatusBadRequest, err.Error())
		return
	}
	response.Success(c, gin.H{"detail": "rate limiter config updated"})
}

// HealthCheck reports the database and cache state.
func (h *Handlers) HealthCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}

	cacheStatus := "ok"
	if err := h.cache.Set(c.Request.Context(), "health:ping", "1", time.Minute); err != nil {
		cacheStatus = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"cache":  cacheStatus,
		"stats":  sqlDB.Stats(),
		"host":   metrics.CollectHostStats(c.Request.Context(), h.cfg.Storage.LocalPath),
	})
}

// handleMedia streams a stored upload back to the client.
func (h *Handlers) handleMedia(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		response.NotFound(c)
		return
	}
	ok, err := h.store.Exists(c.Request.Context(), key)
	if err != nil || !ok {
		response.NotFound(c)
		return
	}
	rc, size, err := h.store.Read(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, size, contentTypeFor(key), rc, nil)
}
