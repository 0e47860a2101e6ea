package backup

import (
	"CrowdGuard/pkg/logger"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const filePrefix = "crowdguard_"

// Config controls scheduled database snapshots. Keep is the number of snapshots
// retained in Dir; zero keeps everything.
type Config struct {
	Schedule string
	Dir      string
	Keep     int
}

// Runner writes point-in-time snapshots of the database.
type Runner struct {
	db     *gorm.DB
	driver string
	cfg    Config
	now    func() time.Time
}

func NewRunner(db *gorm.DB, driver string, cfg Config) *Runner {
	if cfg.Dir == "" {
		cfg.Dir = "backups"
	}
	return &Runner{db: db, driver: driver, cfg: cfg, now: time.Now}
}

// Run takes a snapshot and prunes old ones. It matches scheduler.FuncJob.
func (r *Runner) Run(ctx context.Context) {
	path, err := r.Snapshot(ctx)
	if err != nil {
		logger.Warn("database backup failed", zap.Error(err))
		return
	}
	logger.Info("database backup completed", zap.String("file", path))
	if removed, err := r.Prune(); err != nil {
		logger.Warn("backup pruning failed", zap.Error(err))
	} else if removed > 0 {
		logger.Info("old backups removed", zap.Int("count", removed))
	}
}

// Snapshot writes one backup file and returns its path. Only sqlite is supported;
// server databases are expected to be backed up by their own tooling.
func (r *Runner) Snapshot(ctx context.Context) (string, error) {
	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	switch r.driver {
	case "", "sqlite":
		dst := filepath.Join(r.cfg.Dir, fmt.Sprintf("%s%s.db", filePrefix, r.now().Format("20060102_150405")))
		// VACUUM INTO produces a consistent copy while the database stays open.
		if err := r.db.WithContext(ctx).Exec("VACUUM INTO ?", dst).Error; err != nil {
			return "", fmt.Errorf("sqlite backup: %w", err)
		}
		return dst, nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER for backup: %s", r.driver)
	}
}

// Prune deletes the oldest snapshots beyond Keep.
func (r *Runner) Prune() (int, error) {
	if r.cfg.Keep <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return 0, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), filePrefix) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= r.cfg.Keep {
		return 0, nil
	}
	// timestamped names sort chronologically
	sort.Strings(names)
	stale := names[:len(names)-r.cfg.Keep]
	for _, name := range stale {
		if err := os.Remove(filepath.Join(r.cfg.Dir, name)); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}
