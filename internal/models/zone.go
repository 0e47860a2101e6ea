package models

import (
	apperrors "CrowdGuard/pkg/errors"
	"time"

	"gorm.io/gorm"
)

// Polygon is a list of [lat, lng] pairs.
type Polygon [][]float64

type Zone struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null;index"`
	Status      string    `json:"status" gorm:"size:20;not null"`
	Color       string    `json:"color" gorm:"size:20;not null"`
	ZoneType    string    `json:"zone_type" gorm:"size:20;not null"`
	Capacity    int       `json:"capacity"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Polygon     Polygon   `json:"polygon" gorm:"serializer:json"`
	Description string    `json:"description" gorm:"type:text"`
	IsActive    bool      `json:"is_active" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Zone) TableName() string { return "zones" }

// Validate enforces the shape rules of the zone type.
func (z *Zone) Validate() error {
	fields := apperrors.FieldErrors{}
	switch z.ZoneType {
	case ZoneTypeCircle:
		if z.Latitude == nil {
			fields.Add("latitude", "Latitude is required for circle zones.")
		}
		if z.Longitude == nil {
			fields.Add("longitude", "Longitude is required for circle zones.")
		}
	case ZoneTypePolygon:
		if len(z.Polygon) < 3 {
			fields.Add("polygon", "Polygon zones require at least 3 coordinate pairs.")
		}
		for _, pt := range z.Polygon {
			if len(pt) != 2 {
				fields.Add("polygon", "Each polygon point must be a [lat, lng] pair.")
				break
			}
		}
	default:
		fields.Add("zone_type", "\""+z.ZoneType+"\" is not a valid choice.")
	}
	return fields.Err()
}

type ZoneRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Status      string   `json:"status" binding:"required,oneof=safe moderate high critical"`
	Color       string   `json:"color" binding:"required,oneof=green yellow orange red"`
	ZoneType    string   `json:"zone_type" binding:"omitempty,oneof=circle polygon"`
	Capacity    *int     `json:"capacity" binding:"required,min=0,max=100"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	Polygon     Polygon  `json:"polygon"`
	Description string   `json:"description"`
	IsActive    *bool    `json:"is_active"`
}

// Apply overwrites every writable field of z, as a full update does.
func (r *ZoneRequest) Apply(z *Zone) {
	z.Name = r.Name
	z.Status = r.Status
	z.Color = r.Color
	z.ZoneType = stringOr(r.ZoneType, ZoneTypeCircle)
	z.Capacity = *r.Capacity
	z.Latitude = r.Latitude
	z.Longitude = r.Longitude
	z.Polygon = r.Polygon
	z.Description = r.Description
	z.IsActive = boolOr(r.IsActive, true)
}

type ZonePatch struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=255"`
	Status      *string  `json:"status" binding:"omitempty,oneof=safe moderate high critical"`
	Color       *string  `json:"color" binding:"omitempty,oneof=green yellow orange red"`
	ZoneType    *string  `json:"zone_type" binding:"omitempty,oneof=circle polygon"`
	Capacity    *int     `json:"capacity" binding:"omitempty,min=0,max=100"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	Polygon     *Polygon `json:"polygon"`
	Description *string  `json:"description"`
	IsActive    *bool    `json:"is_active"`
}

func (p *ZonePatch) Apply(z *Zone) {
	if p.Name != nil {
		z.Name = *p.Name
	}
	if p.Status != nil {
		z.Status = *p.Status
	}
	if p.Color != nil {
		z.Color = *p.Color
	}
	if p.ZoneType != nil {
		z.ZoneType = *p.ZoneType
	}
	if p.Capacity != nil {
		z.Capacity = *p.Capacity
	}
	if p.Latitude != nil {
		z.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		z.Longitude = p.Longitude
	}
	if p.Polygon != nil {
		z.Polygon = *p.Polygon
	}
	if p.Description != nil {
		z.Description = *p.Description
	}
	if p.IsActive != nil {
		z.IsActive = *p.IsActive
	}
}

// ZoneView is the API representation of a zone.
type ZoneView struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	StatusDisplay string    `json:"status_display"`
	Color         string    `json:"color"`
	ColorCode     string    `json:"color_code"`
	ZoneType      string    `json:"zone_type"`
	Capacity      int       `json:"capacity"`
	Lat           *float64  `json:"lat"`
	Lng           *float64  `json:"lng"`
	Polygon       Polygon   `json:"polygon"`
	Description   string    `json:"description"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (z *Zone) View(l Labeler) ZoneView {
	return ZoneView{
		ID:            z.ID,
		Name:          z.Name,
		Status:        z.Status,
		StatusDisplay: l.ZoneStatus(z.Status),
		Color:         z.Color,
		ColorCode:     z.Color,
		ZoneType:      z.ZoneType,
		Capacity:      z.Capacity,
		Lat:           z.Latitude,
		Lng:           z.Longitude,
		Polygon:       z.Polygon,
		Description:   z.Description,
		IsActive:      z.IsActive,
		CreatedAt:     z.CreatedAt,
		UpdatedAt:     z.UpdatedAt,
	}
}

type ZoneFilter struct {
	Status   string
	ZoneType string
}

func (f ZoneFilter) Match(z *Zone) bool {
	if f.Status != "" && z.Status != f.Status {
		return false
	}
	if f.ZoneType != "" && z.ZoneType != f.ZoneType {
		return false
	}
	return true
}

// ListZones returns every active zone ordered by name.
func ListZones(db *gorm.DB) ([]Zone, error) {
	var zones []Zone
	if err := db.Where("is_active = ?", true).Order("name").Order("id").Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

func GetZone(db *gorm.DB, id uint) (*Zone, error) {
	return getActive[Zone](db, id)
}

func CreateZone(db *gorm.DB, z *Zone) error {
	if err := z.Validate(); err != nil {
		return err
	}
	return db.Create(z).Error
}

// SaveZone validates the merged zone and writes all of its fields.
func SaveZone(db *gorm.DB, z *Zone) error {
	if err := z.Validate(); err != nil {
		return err
	}
	return db.Save(z).Error
}

func DeleteZone(db *gorm.DB, id uint) error {
	return softDelete[Zone](db, id)
}

// CountZonesByStatus counts active zones per status.
func CountZonesByStatus(db *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := db.Model(&Zone{}).Select("status, COUNT(*) AS n").
		Where("is_active = ?", true).Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
