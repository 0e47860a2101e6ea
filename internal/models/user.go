package models

import (
	apperrors "CrowdGuard/pkg/errors"
	"CrowdGuard/pkg/util"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const SigUserCreate = "user.create"

var ErrInvalidCredentials = apperrors.WithCode(http.StatusUnauthorized, "Invalid credentials")

type User struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	Email      string     `json:"email" gorm:"size:254;uniqueIndex;not null"`
	FullName   string     `json:"full_name" gorm:"size:255"`
	Password   string     `json:"-" gorm:"size:128;not null"`
	IsActive   bool       `json:"is_active" gorm:"not null"`
	IsStaff    bool       `json:"is_staff" gorm:"not null"`
	DateJoined time.Time  `json:"date_joined" gorm:"autoCreateTime"`
	LastLogin  *time.Time `json:"last_login"`
}

func (User) TableName() string { return "users" }

// DisplayName is the full name, or the email local part when none is set.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return util.EmailLocalPart(u.Email)
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	FullName string `json:"full_name" binding:"required,max=255"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserProfile is the public view of an account.
type UserProfile struct {
	ID         uint       `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"full_name"`
	DateJoined time.Time  `json:"date_joined"`
	LastLogin  *time.Time `json:"last_login"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		DateJoined: u.DateJoined,
		LastLogin:  u.LastLogin,
	}
}

// CreateUser registers an active account. A taken email is a field error.
func CreateUser(db *gorm.DB, email, fullName, password string, staff bool) (*User, error) {
	email = normalizeEmail(email)
	var n int64
	if err := db.Model(&User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		fields := apperrors.FieldErrors{}
		fields.Add("email", "user with this email already exists.")
		return nil, fields.Err()
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Email:    email,
		FullName: strings.TrimSpace(fullName),
		Password: hash,
		IsActive: true,
		IsStaff:  staff,
	}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	util.Sig().Emit(SigUserCreate, user)
	return user, nil
}

func GetUserByEmail(db *gorm.DB, email string) (*User, error) {
	var user User
	err := db.Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound()
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetPassword replaces the password and ensures the staff flag; used by the seed command.
func SetPassword(db *gorm.DB, user *User, password string, staff bool) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return db.Model(user).Updates(map[string]any{"password": hash, "is_staff": staff, "is_active": true}).Error
}

// UserDirectory resolves identities for the invitation flow and the login endpoints.
type UserDirectory interface {
	// Authenticate returns ErrInvalidCredentials for unknown users, wrong passwords
	// and disabled accounts alike.
	Authenticate(email, password string) (*User, error)
	// DisplayName falls back to the email local part for unknown users.
	DisplayName(email string) string
}

type dbUserDirectory struct {
	db *gorm.DB
}

func NewUserDirectory(db *gorm.DB) UserDirectory {
	return &dbUserDirectory{db: db}
}

func (d *dbUserDirectory) Authenticate(email, password string) (*User, error) {
	user, err := GetUserByEmail(d.db, email)
	if err != nil {
		if apperrors.GetCode(err) == http.StatusNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	now := time.Now()
	if err := d.db.Model(user).Update("last_login", now).Error; err != nil {
		return nil, err
	}
	user.LastLogin = &now
	return user, nil
}

func (d *dbUserDirectory) DisplayName(email string) string {
	user, err := GetUserByEmail(d.db, email)
	if err != nil {
		return util.EmailLocalPart(normalizeEmail(email))
	}
	return user.DisplayName()
}
