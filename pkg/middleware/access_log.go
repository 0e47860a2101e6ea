package middleware

import (
	"CrowdGuard/pkg/logger"
	"net"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mssola/user_agent"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

const (
	RequestIDHeader = "X-Request-ID"
	RequestIDKey    = "request_id"
)

type AccessLogOption func(*accessLog)

type accessLog struct {
	geo *geoip2.Reader
}

// WithGeoIP adds the caller's country and city from a MaxMind City database.
func WithGeoIP(r *geoip2.Reader) AccessLogOption {
	return func(a *accessLog) { a.geo = r }
}

func (a *accessLog) geoFields(ip string) []zap.Field {
	if a.geo == nil {
		return nil
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() {
		return nil
	}
	rec, err := a.geo.City(parsed)
	if err != nil {
		return nil
	}
	return []zap.Field{
		zap.String("country", rec.Country.IsoCode),
		zap.String("city", rec.City.Names["en"]),
	}
}

// AccessLogMiddleware tags each request with an id and logs it once it completes.
func AccessLogMiddleware(opts ...AccessLogOption) gin.HandlerFunc {
	a := &accessLog{}
	for _, opt := range opts {
		opt(a)
	}
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		ua := user_agent.New(c.Request.UserAgent())
		browser, version := ua.Browser()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("os", ua.OS()),
			zap.String("browser", browser+" "+version),
			zap.Bool("mobile", ua.Mobile()),
		}
		fields = append(fields, a.geoFields(c.ClientIP())...)
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
