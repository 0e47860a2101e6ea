package models

import (
	"CrowdGuard/pkg/util"
	"time"

	"gorm.io/gorm"
)

const SigSosCreated = "sos.created"

type SosRequest struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserEmail    string    `json:"user_email" gorm:"size:254;not null;index"`
	UserName     string    `json:"user_name" gorm:"size:255"`
	SosType      string    `json:"sos_type" gorm:"size:20;not null;index"`
	Latitude     float64   `json:"latitude" gorm:"not null"`
	Longitude    float64   `json:"longitude" gorm:"not null"`
	Description  string    `json:"description" gorm:"type:text"`
	Status       string    `json:"status" gorm:"size:20;not null;index"`
	AssignedTeam string    `json:"assigned_team" gorm:"size:255"`
	IsActive     bool      `json:"is_active" gorm:"not null;index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (SosRequest) TableName() string { return "sos_requests" }

type SosCreateRequest struct {
	UserEmail    string   `json:"user_email" binding:"required,email"`
	UserName     string   `json:"user_name" binding:"max=255"`
	SosType      string   `json:"sos_type" binding:"required,oneof=medical lost danger crowd other"`
	Latitude     *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" binding:"required,min=-180,max=180"`
	Description  string   `json:"description"`
	Status       string   `json:"status" binding:"omitempty,oneof=open in_progress resolved cancelled"`
	AssignedTeam string   `json:"assigned_team" binding:"max=255"`
}

func (r *SosCreateRequest) Build() *SosRequest {
	return &SosRequest{
		UserEmail:    normalizeEmail(r.UserEmail),
		UserName:     r.UserName,
		SosType:      r.SosType,
		Latitude:     *r.Latitude,
		Longitude:    *r.Longitude,
		Description:  r.Description,
		Status:       stringOr(r.Status, SosStatusOpen),
		AssignedTeam: r.AssignedTeam,
		IsActive:     true,
	}
}

type SosPatch struct {
	UserName     *string  `json:"user_name" binding:"omitempty,max=255"`
	SosType      *string  `json:"sos_type" binding:"omitempty,oneof=medical lost danger crowd other"`
	Latitude     *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	Description  *string  `json:"description"`
	Status       *string  `json:"status" binding:"omitempty,oneof=open in_progress resolved cancelled"`
	AssignedTeam *string  `json:"assigned_team" binding:"omitempty,max=255"`
	IsActive     *bool    `json:"is_active"`
}

func (p *SosPatch) Apply(s *SosRequest) {
	if p.UserName != nil {
		s.UserName = *p.UserName
	}
	if p.SosType != nil {
		s.SosType = *p.SosType
	}
	if p.Latitude != nil {
		s.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		s.Longitude = *p.Longitude
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.AssignedTeam != nil {
		s.AssignedTeam = *p.AssignedTeam
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
}

type SosView struct {
	SosRequest
	SosTypeDisplay string `json:"sos_type_display"`
	StatusDisplay  string `json:"status_display"`
}

func (s *SosRequest) View(l Labeler) SosView {
	return SosView{
		SosRequest:     *s,
		SosTypeDisplay: l.SosType(s.SosType),
		StatusDisplay:  l.SosStatus(s.Status),
	}
}

type SosFilter struct {
	Status    string
	SosType   string
	UserEmail string
}

// ListSosRequests returns active requests, newest first.
func ListSosRequests(db *gorm.DB, f SosFilter) ([]SosRequest, error) {
	q := db.Where("is_active = ?", true)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.SosType != "" {
		q = q.Where("sos_type = ?", f.SosType)
	}
	if f.UserEmail != "" {
		q = q.Where("user_email = ?", normalizeEmail(f.UserEmail))
	}
	var out []SosRequest
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func GetSosRequest(db *gorm.DB, id uint) (*SosRequest, error) {
	return getActive[SosRequest](db, id)
}

func CreateSosRequest(db *gorm.DB, s *SosRequest) error {
	if err := db.Create(s).Error; err != nil {
		return err
	}
	util.Sig().Emit(SigSosCreated, s)
	return nil
}

func SaveSosRequest(db *gorm.DB, s *SosRequest) error {
	return db.Save(s).Error
}

// UpdateSosStatus sets the status of an active request; used by the dashboard.
func UpdateSosStatus(db *gorm.DB, id uint, status, assignedTeam string) (*SosRequest, error) {
	s, err := GetSosRequest(db, id)
	if err != nil {
		return nil, err
	}
	s.Status = status
	if assignedTeam != "" {
		s.AssignedTeam = assignedTeam
	}
	if err := db.Save(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func DeleteSosRequest(db *gorm.DB, id uint) error {
	return softDelete[SosRequest](db, id)
}

// CountOpenSos counts active requests that still need attention.
func CountOpenSos(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&SosRequest{}).
		Where("is_active = ? AND status IN ?", true, []string{SosStatusOpen, SosStatusInProgress}).
		Count(&n).Error
	return n, err
}
