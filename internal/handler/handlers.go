package handlers

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/cache"
	"CrowdGuard/pkg/config"
	"CrowdGuard/pkg/i18n"
	"CrowdGuard/pkg/logger"
	"CrowdGuard/pkg/metrics"
	"CrowdGuard/pkg/middleware"
	"CrowdGuard/pkg/storage"
	"CrowdGuard/pkg/util"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oschwald/geoip2-golang"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handlers struct {
	db      *gorm.DB
	cfg     *config.Config
	cache   cache.Cache
	store   storage.Store
	metrics *metrics.Metrics
	i18n    *i18n.I18nSupport
	flow    *models.InvitationFlow
	limiter *middleware.RateLimiter
	geo     *geoip2.Reader
}

type Option func(*Handlers)

func WithCache(c cache.Cache) Option {
	return func(h *Handlers) { h.cache = c }
}

func WithStore(s storage.Store) Option {
	return func(h *Handlers) { h.store = s }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handlers) { h.metrics = m }
}

func WithI18n(i *i18n.I18nSupport) Option {
	return func(h *Handlers) { h.i18n = i }
}

// WithGeoIP enriches access log lines with the caller's location.
func WithGeoIP(r *geoip2.Reader) Option {
	return func(h *Handlers) { h.geo = r }
}

func WithInvitationFlow(f *models.InvitationFlow) Option {
	return func(h *Handlers) { h.flow = f }
}

// NewHandlers fills any collaborator not given as an option with a local default:
// go-cache, filesystem storage and a private metrics registry.
func NewHandlers(db *gorm.DB, cfg *config.Config, opts ...Option) *Handlers {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret, _ = util.RandomToken(32)
		logger.Warn("JWT_SECRET is not set; using a per-process key, issued tokens die with the process")
	}
	h := &Handlers{db: db, cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	if h.cache == nil {
		h.cache = cache.NewGoCache(cfg.Cache.Local)
	}
	if h.store == nil {
		h.store = storage.NewLocalStore(cfg.Storage.LocalPath, cfg.Storage.BaseURL)
	}
	if h.metrics == nil {
		h.metrics = metrics.NewMetrics()
	}
	if h.flow == nil {
		h.flow = models.NewInvitationFlow(db, models.NewUserDirectory(db), cfg.InvitationTTL())
	}
	return h
}

func (h *Handlers) Flow() *models.InvitationFlow { return h.flow }

func (h *Handlers) Metrics() *metrics.Metrics { return h.metrics }

func (h *Handlers) Register(engine *gin.Engine) {
	var logOpts []middleware.AccessLogOption
	if h.geo != nil {
		logOpts = append(logOpts, middleware.WithGeoIP(h.geo))
	}
	engine.Use(middleware.AccessLogMiddleware(logOpts...), metrics.MonitorMiddleware(h.metrics))
	engine.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	if h.cfg.DocsPrefix != "" {
		engine.GET(h.cfg.DocsPrefix, h.handleDocs)
	}
	engine.GET("/media/*key", h.handleMedia)

	r := engine.Group(h.cfg.APIPrefix)
	r.Use(
		middleware.LanguageMiddleware(h.cfg.LanguageDefault),
		models.WithBearerUser(h.db, h.cfg.JWTSecret),
	)
	if h.cfg.RateLimit != "" {
		if err := h.setupRateLimiter(); err != nil {
			logger.Error("rate limiter disabled", zap.Error(err))
		} else {
			r.Use(h.limiter.Middleware())
		}
	}

	h.registerSystemRoutes(r)
	h.registerAuthRoutes(r)
	h.registerZoneRoutes(r)
	h.registerAmenityRoutes(r)
	h.registerSosRoutes(r)
	h.registerFamilyRoutes(r)
	h.registerInvitationRoutes(r)
	h.registerLostFoundRoutes(r)

	h.registerPages(engine)
}

// setupRateLimiter shares counters through redis when the cache is redis-backed.
func (h *Handlers) setupRateLimiter() error {
	var store limiter.Store
	if client, ok := cache.RedisClient(h.cache); ok {
		s, err := middleware.NewRedisStore(client)
		if err != nil {
			return err
		}
		store = s
	}
	rl, err := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:       h.cfg.RateLimit,
		Identifier: "user",
		AddHeaders: true,
		SkipPaths:  []string{h.cfg.APIPrefix + "/system/health"},
	}, store)
	if err != nil {
		return err
	}
	h.limiter = rl.WithObserver(middleware.NewPrometheusObserver(h.metrics.Registry()))
	return nil
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	system := r.Group("system")
	{
		system.GET("/health", h.HealthCheck)

		system.PUT("/rate-limiter", models.AuthRequired, staffRequired, h.UpdateRateLimiterConfig)
	}
}

func (h *Handlers) registerAuthRoutes(r *gin.RouterGroup) {
	auth := r.Group("auth")
	{
		auth.POST("/register/", h.handleRegister)

		auth.POST("/login/", h.handleLogin)

		auth.GET("/profile/", models.AuthRequired, h.handleProfile)
	}
}

func (h *Handlers) registerZoneRoutes(r *gin.RouterGroup) {
	zones := r.Group("zones")
	{
		zones.GET("/", h.handleListZones)
		zones.POST("/", h.handleCreateZone)
		zones.GET("/:id/", h.handleGetZone)
		zones.PUT("/:id/", h.handleUpdateZone)
		zones.PATCH("/:id/", h.handlePatchZone)
		zones.DELETE("/:id/", h.handleDeleteZone)
	}
}

func (h *Handlers) registerAmenityRoutes(r *gin.RouterGroup) {
	amenities := r.Group("amenities")
	{
		amenities.GET("/", h.handleListAmenities)
		amenities.POST("/", h.handleCreateAmenity)
		amenities.GET("/categories/", h.handleAmenityCategories)
		amenities.GET("/:id/", h.handleGetAmenity)
		amenities.PATCH("/:id/", h.handlePatchAmenity)
		amenities.DELETE("/:id/", h.handleDeleteAmenity)
	}
}

func (h *Handlers) registerSosRoutes(r *gin.RouterGroup) {
	sos := r.Group("sos-requests")
	{
		sos.GET("/", h.handleListSos)
		sos.POST("/", middleware.IdempotencyMiddleware(middleware.IdempotencyConfig{
			TTL:    10 * time.Minute,
			Store:  h.cache,
			Prefix: "idem:sos:",
		}), h.handleCreateSos)
		sos.GET("/:id/", h.handleGetSos)
		sos.PATCH("/:id/", h.handlePatchSos)
		sos.DELETE("/:id/", h.handleDeleteSos)
	}
}

func (h *Handlers) registerFamilyRoutes(r *gin.RouterGroup) {
	family := r.Group("family-members")
	{
		family.GET("/", h.handleListFamily)
		family.POST("/", h.handleCreateFamily)
		family.POST("/update-location/", h.handleUpdateLocation)
		family.GET("/:id/", h.handleGetFamily)
		family.PUT("/:id/", h.handleUpdateFamily)
		family.PATCH("/:id/", h.handlePatchFamily)
		family.DELETE("/:id/", h.handleDeleteFamily)
	}
}

func (h *Handlers) registerInvitationRoutes(r *gin.RouterGroup) {
	inv := r.Group("family-invitations")
	{
		inv.POST("/create/", h.handleCreateInvitation)
		inv.GET("/accept/", h.handleLookupInvitation)
		inv.POST("/accept/", h.handleAcceptInvitation)
	}
}

func (h *Handlers) registerLostFoundRoutes(r *gin.RouterGroup) {
	lf := r.Group("lost-found")
	{
		lf.GET("/", h.handleListLostFound)
		lf.POST("/", h.handleCreateLostFound)
		lf.GET("/:id/", h.handleGetLostFound)
		lf.PATCH("/:id/", h.handlePatchLostFound)
		lf.DELETE("/:id/", h.handleDeleteLostFound)
		lf.POST("/:id/photo/", h.handleUploadLostFoundPhoto)
	}
}
