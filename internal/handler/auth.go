package handlers

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/response"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) tokenTTL() time.Duration {
	hours := h.cfg.JWTExpireHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

func (h *Handlers) tokenResponse(user *models.User) (gin.H, error) {
	token, err := models.IssueToken(user, h.cfg.JWTSecret, h.tokenTTL())
	if err != nil {
		return nil, err
	}
	return gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokenTTL().Seconds()),
		"user":         user.Profile(),
	}, nil
}

func (h *Handlers) handleRegister(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := models.CreateUser(h.db, req.Email, req.FullName, req.Password, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	body, err := h.tokenResponse(user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, body)
}

func (h *Handlers) handleLogin(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.flow.Users().Authenticate(req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	body, err := h.tokenResponse(user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, body)
}

func (h *Handlers) handleProfile(c *gin.Context) {
	response.Success(c, models.CurrentUser(c).Profile())
}
