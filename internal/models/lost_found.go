package models

import (
	"time"

	"gorm.io/gorm"
)

type LostFound struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ReportType  string    `json:"report_type" gorm:"size:20;not null;index"`
	UserEmail   string    `json:"user_email" gorm:"size:254;not null;index"`
	UserName    string    `json:"user_name" gorm:"size:255"`
	UserPhone   string    `json:"user_phone" gorm:"size:20"`
	PersonName  string    `json:"person_name" gorm:"size:255;not null"`
	Age         *int      `json:"age"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Location    string    `json:"location" gorm:"size:255;not null"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	PhotoURL    *string   `json:"photo_url" gorm:"size:500"`
	Status      string    `json:"status" gorm:"size:20;not null;index"`
	IsActive    bool      `json:"is_active" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (LostFound) TableName() string { return "lost_found" }

type LostFoundCreateRequest struct {
	ReportType  string   `json:"report_type" binding:"required,oneof=lost found"`
	UserEmail   string   `json:"user_email" binding:"required,email"`
	UserName    string   `json:"user_name" binding:"max=255"`
	UserPhone   string   `json:"user_phone" binding:"max=20"`
	PersonName  string   `json:"person_name" binding:"required,max=255"`
	Age         *int     `json:"age" binding:"omitempty,min=0,max=150"`
	Description string   `json:"description" binding:"required"`
	Location    string   `json:"location" binding:"required,max=255"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	PhotoURL    *string  `json:"photo_url" binding:"omitempty,url,max=500"`
	Status      string   `json:"status" binding:"omitempty,oneof=open resolved closed"`
}

func (r *LostFoundCreateRequest) Build() *LostFound {
	return &LostFound{
		ReportType:  r.ReportType,
		UserEmail:   normalizeEmail(r.UserEmail),
		UserName:    r.UserName,
		UserPhone:   r.UserPhone,
		PersonName:  r.PersonName,
		Age:         r.Age,
		Description: r.Description,
		Location:    r.Location,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		PhotoURL:    r.PhotoURL,
		Status:      stringOr(r.Status, ReportStatusOpen),
		IsActive:    true,
	}
}

type LostFoundPatch struct {
	ReportType  *string  `json:"report_type" binding:"omitempty,oneof=lost found"`
	UserName    *string  `json:"user_name" binding:"omitempty,max=255"`
	UserPhone   *string  `json:"user_phone" binding:"omitempty,max=20"`
	PersonName  *string  `json:"person_name" binding:"omitempty,min=1,max=255"`
	Age         *int     `json:"age" binding:"omitempty,min=0,max=150"`
	Description *string  `json:"description" binding:"omitempty,min=1"`
	Location    *string  `json:"location" binding:"omitempty,min=1,max=255"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	PhotoURL    *string  `json:"photo_url" binding:"omitempty,url,max=500"`
	Status      *string  `json:"status" binding:"omitempty,oneof=open resolved closed"`
	IsActive    *bool    `json:"is_active"`
}

func (p *LostFoundPatch) Apply(r *LostFound) {
	if p.ReportType != nil {
		r.ReportType = *p.ReportType
	}
	if p.UserName != nil {
		r.UserName = *p.UserName
	}
	if p.UserPhone != nil {
		r.UserPhone = *p.UserPhone
	}
	if p.PersonName != nil {
		r.PersonName = *p.PersonName
	}
	if p.Age != nil {
		r.Age = p.Age
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Location != nil {
		r.Location = *p.Location
	}
	if p.Latitude != nil {
		r.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		r.Longitude = p.Longitude
	}
	if p.PhotoURL != nil {
		r.PhotoURL = p.PhotoURL
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.IsActive != nil {
		r.IsActive = *p.IsActive
	}
}

type LostFoundView struct {
	LostFound
	ReportTypeDisplay string `json:"report_type_display"`
	StatusDisplay     string `json:"status_display"`
}

func (r *LostFound) View(l Labeler) LostFoundView {
	return LostFoundView{
		LostFound:         *r,
		ReportTypeDisplay: l.ReportType(r.ReportType),
		StatusDisplay:     l.ReportStatus(r.Status),
	}
}

type LostFoundFilter struct {
	ReportType string
	Status     string
	UserEmail  string
	// Search matches person name, description or location, case-insensitively.
	Search string
}

func ListLostFound(db *gorm.DB, f LostFoundFilter) ([]LostFound, error) {
	q := db.Where("is_active = ?", true)
	if f.ReportType != "" {
		q = q.Where("report_type = ?", f.ReportType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserEmail != "" {
		q = q.Where("user_email = ?", normalizeEmail(f.UserEmail))
	}
	if f.Search != "" {
		p := containsPattern(f.Search)
		q = q.Where(
			"LOWER(person_name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!' OR LOWER(location) LIKE ? ESCAPE '!'",
			p, p, p,
		)
	}
	var out []LostFound
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func GetLostFound(db *gorm.DB, id uint) (*LostFound, error) {
	return getActive[LostFound](db, id)
}

func CreateLostFound(db *gorm.DB, r *LostFound) error {
	return db.Create(r).Error
}

func SaveLostFound(db *gorm.DB, r *LostFound) error {
	return db.Save(r).Error
}

// SetLostFoundPhoto records the public URL of an uploaded photo.
func SetLostFoundPhoto(db *gorm.DB, r *LostFound, url string) error {
	r.PhotoURL = &url
	return db.Model(r).Update("photo_url", url).Error
}

func DeleteLostFound(db *gorm.DB, id uint) error {
	return softDelete[LostFound](db, id)
}

func CountOpenLostFound(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&LostFound{}).Where("is_active = ? AND status = ?", true, ReportStatusOpen).Count(&n).Error
	return n, err
}
