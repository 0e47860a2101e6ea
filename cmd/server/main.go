package main

import (
	handlers "CrowdGuard/internal/handler"
	"CrowdGuard/internal/listeners"
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/backup"
	"CrowdGuard/pkg/cache"
	"CrowdGuard/pkg/config"
	"CrowdGuard/pkg/i18n"
	"CrowdGuard/pkg/logger"
	"CrowdGuard/pkg/metrics"
	"CrowdGuard/pkg/scheduler"
	"CrowdGuard/pkg/storage"
	"CrowdGuard/pkg/util"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "crowdguard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := config.GlobalConfig
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Init(cfg.Log, cfg.Mode); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	db, err := util.InitDatabase(logger.NewGormLogger(cfg.Log.Level, 0), cfg.DBDriver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer c.Close()

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	m := metrics.NewMetrics()
	if sqlDB, err := db.DB(); err == nil {
		if err := m.RegisterDB(sqlDB, cfg.DBDriver); err != nil {
			logger.Warn("db stats collector not registered", zap.Error(err))
		}
	}
	if err := m.RegisterHostGauges(cfg.Storage.LocalPath); err != nil {
		logger.Warn("host gauges not registered", zap.Error(err))
	}

	tr, err := i18n.NewI18nSupport(cfg.LanguageDefault)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	listeners.Register(util.Sig(), m)

	if cfg.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	opts := []handlers.Option{
		handlers.WithCache(c),
		handlers.WithStore(store),
		handlers.WithMetrics(m),
		handlers.WithI18n(tr),
	}
	if cfg.GeoIPDB != "" {
		geo, err := geoip2.Open(cfg.GeoIPDB)
		if err != nil {
			return fmt.Errorf("open geoip database: %w", err)
		}
		defer geo.Close()
		opts = append(opts, handlers.WithGeoIP(geo))
	}
	h := handlers.NewHandlers(db, cfg, opts...)
	h.Register(engine)

	cr := scheduler.NewCron(time.Local)
	if err := h.ScheduleSweeps(cr); err != nil {
		return fmt.Errorf("schedule invitation sweep: %w", err)
	}
	if cfg.Backup.Schedule != "" {
		runner := backup.NewRunner(db, cfg.DBDriver, cfg.Backup)
		if _, err := cr.AddWithCtx(cfg.Backup.Schedule, runner.Run); err != nil {
			return fmt.Errorf("schedule backups: %w", err)
		}
	}
	cr.Start()
	defer cr.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
