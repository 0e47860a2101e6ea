// Command seed loads the reference zones and amenities and, when asked, creates or
// resets a staff account for the dashboard.
package main

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/config"
	apperrors "CrowdGuard/pkg/errors"
	"CrowdGuard/pkg/logger"
	"CrowdGuard/pkg/util"
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
)

func main() {
	staffEmail := flag.String("staff-email", "", "create or reset a staff user with this email")
	staffPassword := flag.String("staff-password", "", "password for -staff-email")
	staffName := flag.String("staff-name", "Control Room", "display name for a new staff user")
	flag.Parse()

	if err := run(*staffEmail, *staffPassword, *staffName); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(staffEmail, staffPassword, staffName string) error {
	if err := config.Load(); err != nil {
		return err
	}
	cfg := config.GlobalConfig
	if err := logger.Init(cfg.Log, cfg.Mode); err != nil {
		return err
	}
	defer logger.Sync()

	db, err := util.InitDatabase(logger.NewGormLogger(cfg.Log.Level, 0), cfg.DBDriver, cfg.DSN)
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return err
	}

	report, err := models.SeedInitialData(db)
	if err != nil {
		return fmt.Errorf("seed data: %w", err)
	}
	polygons, err := models.SeedPolygons(db)
	if err != nil {
		return fmt.Errorf("seed polygons: %w", err)
	}
	logger.Info("seed complete",
		zap.Int("zones_created", report.ZonesCreated),
		zap.Int("amenities_created", report.AmenitiesCreated),
		zap.Int("polygons_set", polygons),
	)

	if staffEmail == "" {
		return nil
	}
	if staffPassword == "" {
		return fmt.Errorf("-staff-password is required with -staff-email")
	}
	user, err := models.GetUserByEmail(db, staffEmail)
	switch {
	case apperrors.GetCode(err) == http.StatusNotFound:
		if _, err := models.CreateUser(db, staffEmail, staffName, staffPassword, true); err != nil {
			return fmt.Errorf("create staff user: %w", err)
		}
		logger.Info("staff user created", zap.String("email", staffEmail))
	case err != nil:
		return err
	default:
		if err := models.SetPassword(db, user, staffPassword, true); err != nil {
			return fmt.Errorf("reset staff user: %w", err)
		}
		logger.Info("staff user updated", zap.String("email", staffEmail))
	}
	return nil
}
