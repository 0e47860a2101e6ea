package models

import (
	"time"

	"gorm.io/gorm"
)

type Amenity struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null;index"`
	Category    string    `json:"category" gorm:"size:50;not null;index"`
	Latitude    float64   `json:"latitude" gorm:"not null"`
	Longitude   float64   `json:"longitude" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	Phone       *string   `json:"phone" gorm:"size:20"`
	IsActive    bool      `json:"is_active" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Amenity) TableName() string { return "amenities" }

type AmenityRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Category    string   `json:"category" binding:"required,oneof=medical food restroom parking accommodation transport worship shopping other"`
	Latitude    *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" binding:"required,min=-180,max=180"`
	Description string   `json:"description"`
	Phone       *string  `json:"phone" binding:"omitempty,max=20"`
	IsActive    *bool    `json:"is_active"`
}

func (r *AmenityRequest) Apply(a *Amenity) {
	a.Name = r.Name
	a.Category = r.Category
	a.Latitude = *r.Latitude
	a.Longitude = *r.Longitude
	a.Description = r.Description
	a.Phone = r.Phone
	a.IsActive = boolOr(r.IsActive, true)
}

type AmenityPatch struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=255"`
	Category    *string  `json:"category" binding:"omitempty,oneof=medical food restroom parking accommodation transport worship shopping other"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	Description *string  `json:"description"`
	Phone       *string  `json:"phone" binding:"omitempty,max=20"`
	IsActive    *bool    `json:"is_active"`
}

func (p *AmenityPatch) Apply(a *Amenity) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Latitude != nil {
		a.Latitude = *p.Latitude
	}
	if p.Longitude != nil {
		a.Longitude = *p.Longitude
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Phone != nil {
		a.Phone = p.Phone
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
}

type AmenityView struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	CategoryDisplay string    `json:"category_display"`
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	Description     string    `json:"description"`
	Phone           *string   `json:"phone"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AmenityListView is the list-row representation; it leaves out the phone number.
type AmenityListView struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	CategoryDisplay string  `json:"category_display"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	Description     string  `json:"description"`
	IsActive        bool    `json:"is_active"`
}

func (a *Amenity) View(l Labeler) AmenityView {
	return AmenityView{
		ID:              a.ID,
		Name:            a.Name,
		Category:        a.Category,
		CategoryDisplay: l.AmenityCategory(a.Category),
		Lat:             a.Latitude,
		Lng:             a.Longitude,
		Description:     a.Description,
		Phone:           a.Phone,
		IsActive:        a.IsActive,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func (a *Amenity) ListView(l Labeler) AmenityListView {
	return AmenityListView{
		ID:              a.ID,
		Name:            a.Name,
		Category:        a.Category,
		CategoryDisplay: l.AmenityCategory(a.Category),
		Lat:             a.Latitude,
		Lng:             a.Longitude,
		Description:     a.Description,
		IsActive:        a.IsActive,
	}
}

// ListAmenities returns every active amenity ordered by category, then name.
func ListAmenities(db *gorm.DB) ([]Amenity, error) {
	var amenities []Amenity
	err := db.Where("is_active = ?", true).Order("category").Order("name").Order("id").Find(&amenities).Error
	if err != nil {
		return nil, err
	}
	return amenities, nil
}

func GetAmenity(db *gorm.DB, id uint) (*Amenity, error) {
	return getActive[Amenity](db, id)
}

func CreateAmenity(db *gorm.DB, a *Amenity) error {
	return db.Create(a).Error
}

func SaveAmenity(db *gorm.DB, a *Amenity) error {
	return db.Save(a).Error
}

func DeleteAmenity(db *gorm.DB, id uint) error {
	return softDelete[Amenity](db, id)
}
