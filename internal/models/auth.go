package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

const (
	UserField = "user"
	// UserEmailField is read by the rate limiter to key per-user limits.
	UserEmailField = "user_email"

	tokenIssuer = "crowdguard"
)

// ErrNoSigningKey is returned when tokens would be signed or checked with an empty key.
var ErrNoSigningKey = errors.New("jwt signing key is not configured")

type Claims struct {
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token for user.
func IssueToken(user *User, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSigningKey
	}
	now := time.Now()
	claims := &Claims{
		Email:   user.Email,
		IsStaff: user.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(tokenString, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrNoSigningKey
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func extractBearer(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// WithBearerUser attaches the user named by a valid bearer token to the context.
// Requests without a token, or with an invalid one, continue anonymously.
func WithBearerUser(db *gorm.DB, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearer(c.GetHeader("Authorization"))
		if raw == "" {
			c.Next()
			return
		}
		claims, err := ParseToken(raw, secret)
		if err != nil {
			c.Next()
			return
		}
		user, err := GetUserByEmail(db, claims.Email)
		if err == nil && user.IsActive {
			SetCurrentUser(c, user)
		}
		c.Next()
	}
}

func SetCurrentUser(c *gin.Context, user *User) {
	c.Set(UserField, user)
	c.Set(UserEmailField, user.Email)
}

// CurrentUser returns the request's user, or nil when anonymous.
func CurrentUser(c *gin.Context) *User {
	if v, ok := c.Get(UserField); ok {
		if u, ok := v.(*User); ok {
			return u
		}
	}
	return nil
}

func AuthRequired(c *gin.Context) {
	if CurrentUser(c) == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}
	c.Next()
}
