package models

import (
	apperrors "CrowdGuard/pkg/errors"
	"CrowdGuard/pkg/util"
	"strings"
	"time"

	"gorm.io/gorm"
)

// FamilyMember is one contact in the family list owned by UserEmail. LinkedEmail is
// set when the row stands for a registered account, as rows created by invitation
// acceptance do.
type FamilyMember struct {
	ID                 uint       `json:"id" gorm:"primaryKey"`
	UserEmail          string     `json:"user_email" gorm:"size:254;not null;uniqueIndex:idx_family_owner_phone,priority:1"`
	Name               string     `json:"name" gorm:"size:255;not null"`
	Phone              string     `json:"phone" gorm:"size:100;not null;uniqueIndex:idx_family_owner_phone,priority:2"`
	Relationship       string     `json:"relationship" gorm:"size:20;not null"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	LastLocationUpdate *time.Time `json:"last_location_update"`
	LinkedEmail        *string    `json:"linked_email" gorm:"size:254;index"`
	IsActive           bool       `json:"is_active" gorm:"not null;index"`
	CreatedAt          time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt          time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (FamilyMember) TableName() string { return "family_members" }

type FamilyMemberRequest struct {
	UserEmail    string   `json:"user_email" binding:"required,email"`
	Name         string   `json:"name" binding:"required,max=255"`
	Phone        string   `json:"phone" binding:"required,max=100"`
	Relationship string   `json:"relationship" binding:"required,oneof=spouse parent child sibling grandparent grandchild uncle aunt cousin friend other"`
	Latitude     *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	IsActive     *bool    `json:"is_active"`
}

// Apply overwrites the writable fields of m and reports whether coordinates were sent.
func (r *FamilyMemberRequest) Apply(m *FamilyMember) bool {
	m.UserEmail = normalizeEmail(r.UserEmail)
	m.Name = strings.TrimSpace(r.Name)
	m.Phone = strings.TrimSpace(r.Phone)
	m.Relationship = r.Relationship
	m.Latitude = r.Latitude
	m.Longitude = r.Longitude
	m.IsActive = boolOr(r.IsActive, true)
	return r.Latitude != nil || r.Longitude != nil
}

type FamilyMemberPatch struct {
	Name         *string  `json:"name" binding:"omitempty,min=1,max=255"`
	Phone        *string  `json:"phone" binding:"omitempty,min=1,max=100"`
	Relationship *string  `json:"relationship" binding:"omitempty,oneof=spouse parent child sibling grandparent grandchild uncle aunt cousin friend other"`
	Latitude     *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	IsActive     *bool    `json:"is_active"`
}

// Apply merges the sent fields into m and reports whether coordinates were sent.
func (p *FamilyMemberPatch) Apply(m *FamilyMember) bool {
	if p.Name != nil {
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		m.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Relationship != nil {
		m.Relationship = *p.Relationship
	}
	if p.Latitude != nil {
		m.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		m.Longitude = p.Longitude
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
	}
	return p.Latitude != nil || p.Longitude != nil
}

type FamilyMemberView struct {
	FamilyMember
	RelationshipDisplay string `json:"relationship_display"`
}

func (m *FamilyMember) View(l Labeler) FamilyMemberView {
	return FamilyMemberView{FamilyMember: *m, RelationshipDisplay: l.Relationship(m.Relationship)}
}

type LocationUpdateRequest struct {
	Email     string   `json:"email" binding:"required,email"`
	Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
}

// ListFamilyMembers returns active rows, newest first, optionally for one owner.
func ListFamilyMembers(db *gorm.DB, userEmail string) ([]FamilyMember, error) {
	q := db.Where("is_active = ?", true)
	if userEmail != "" {
		q = q.Where("user_email = ?", normalizeEmail(userEmail))
	}
	var out []FamilyMember
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func GetFamilyMember(db *gorm.DB, id uint) (*FamilyMember, error) {
	return getActive[FamilyMember](db, id)
}

// checkOwnerPhone rejects a (user_email, phone) pair held by another row, active or not.
func checkOwnerPhone(db *gorm.DB, m *FamilyMember) error {
	var n int64
	q := db.Model(&FamilyMember{}).Where("user_email = ? AND phone = ?", m.UserEmail, m.Phone)
	if m.ID != 0 {
		q = q.Where("id <> ?", m.ID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		fields := apperrors.FieldErrors{}
		fields.Add("non_field_errors", "The fields user_email, phone must make a unique set.")
		return fields.Err()
	}
	return nil
}

func CreateFamilyMember(db *gorm.DB, m *FamilyMember, touchedLocation bool) error {
	if err := checkOwnerPhone(db, m); err != nil {
		return err
	}
	if touchedLocation {
		now := time.Now()
		m.LastLocationUpdate = &now
	}
	return db.Create(m).Error
}

// SaveFamilyMember writes m; when coordinates were part of the update the location
// timestamp moves to now in the same write.
func SaveFamilyMember(db *gorm.DB, m *FamilyMember, touchedLocation bool) error {
	if err := checkOwnerPhone(db, m); err != nil {
		return err
	}
	if touchedLocation {
		now := time.Now()
		m.LastLocationUpdate = &now
	}
	return db.Save(m).Error
}

func DeleteFamilyMember(db *gorm.DB, id uint) error {
	return softDelete[FamilyMember](db, id)
}

// PropagateLocation copies a user's position onto every active row in other people's
// lists that stands for that user: rows linked to the email, and unlinked rows whose
// phone starts with "<local-part>_". Rows owned by the user are left alone.
func PropagateLocation(db *gorm.DB, email string, lat, lng float64) (int64, error) {
	email = normalizeEmail(email)
	prefix := util.EmailLocalPart(email) + "_"

	var candidates []FamilyMember
	err := db.Select("id", "phone", "linked_email").
		Where("is_active = ? AND user_email <> ?", true, email).
		Where("linked_email = ? OR (linked_email IS NULL AND phone LIKE ? ESCAPE '!')",
			email, likeEscaper.Replace(prefix)+"%").
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}

	ids := make([]uint, 0, len(candidates))
	for _, m := range candidates {
		// LIKE is case-insensitive on some drivers; the prefix match is not.
		if m.LinkedEmail != nil || strings.HasPrefix(m.Phone, prefix) {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	res := db.Model(&FamilyMember{}).Where("id IN ?", ids).Updates(map[string]any{
		"latitude":             lat,
		"longitude":            lng,
		"last_location_update": time.Now(),
	})
	return res.RowsAffected, res.Error
}
