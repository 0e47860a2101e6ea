package models

import (
	apperrors "CrowdGuard/pkg/errors"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// getActive loads the active row of T with id. Missing and inactive rows are both
// reported as not found.
func getActive[T any](db *gorm.DB, id uint) (*T, error) {
	var row T
	err := db.Where("is_active = ?", true).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound()
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// softDelete clears is_active on the active row of T with id.
func softDelete[T any](db *gorm.DB, id uint) error {
	res := db.Model(new(T)).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound()
	}
	return nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern builds a case-insensitive LIKE pattern; use with ESCAPE '!'.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func stringOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
