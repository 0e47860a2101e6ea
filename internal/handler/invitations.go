package handlers

import (
	"CrowdGuard/internal/models"
	apperrors "CrowdGuard/pkg/errors"
	"CrowdGuard/pkg/logger"
	"CrowdGuard/pkg/response"
	"CrowdGuard/pkg/scheduler"
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type invitationView struct {
	*models.FamilyInvitation
	InviterName string `json:"inviter_name"`
}

func (h *Handlers) invitationLink(token string) string {
	return strings.TrimRight(h.cfg.PublicBaseURL, "/") + "/invite/?token=" + url.QueryEscape(token)
}

func (h *Handlers) handleCreateInvitation(c *gin.Context) {
	var req models.InvitationCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	inviter := req.InviterEmail
	if inviter == "" {
		if u := models.CurrentUser(c); u != nil {
			inviter = u.Email
		}
	}
	if inviter == "" {
		fields := apperrors.FieldErrors{}
		fields.Add("inviter_email", "This field is required.")
		response.Error(c, fields.Err())
		return
	}

	inv, err := h.flow.Create(inviter, req.InviteeEmail, req.Relationship)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"invitation":      inv,
		"invitation_link": h.invitationLink(inv.Token),
	})
}

func (h *Handlers) handleLookupInvitation(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		fields := apperrors.FieldErrors{}
		fields.Add("token", "This field is required.")
		response.Error(c, fields.Err())
		return
	}
	inv, err := h.flow.Lookup(token)
	if err != nil {
		h.recordExpiry(err)
		response.Error(c, err)
		return
	}
	response.Success(c, invitationView{
		FamilyInvitation: inv,
		InviterName:      h.flow.Users().DisplayName(inv.InviterEmail),
	})
}

func (h *Handlers) handleAcceptInvitation(c *gin.Context) {
	var req models.InvitationAcceptRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.flow.Accept(req.Token, req.Email, req.Password)
	if err != nil {
		h.recordExpiry(err)
		response.Error(c, err)
		return
	}
	response.Success(c, h.acceptBody(c, res))
}

func (h *Handlers) acceptBody(c *gin.Context, res *models.AcceptResult) gin.H {
	if res.AlreadyMember {
		return gin.H{
			"detail":         "already in family",
			"already_member": true,
			"invitation":     res.Invitation,
		}
	}
	l := h.labels(c)
	return gin.H{
		"detail":                "Invitation accepted",
		"already_member":        false,
		"family_member":         res.Member.View(l),
		"reverse_family_member": res.Reverse.View(l),
		"invitation":            res.Invitation,
	}
}

func (h *Handlers) recordExpiry(err error) {
	if errors.Is(err, models.ErrInvitationExpired) {
		h.metrics.RecordInvitation("expired")
	}
}

// SweepInvitations expires every overdue pending invitation.
func (h *Handlers) SweepInvitations(ctx context.Context) {
	n, err := h.flow.ExpireOverdue()
	if err != nil {
		logger.Error("invitation sweep failed", zap.Error(err))
		return
	}
	h.metrics.RecordInvitationSweep(n)
	if n > 0 {
		logger.Info("expired overdue invitations", zap.Int64("count", n))
	}
}

// ScheduleSweeps registers the invitation sweep on cr when a schedule is configured.
func (h *Handlers) ScheduleSweeps(cr *scheduler.Cron) error {
	schedule := h.cfg.InvitationSweepSchedule
	if schedule == "" {
		return nil
	}
	_, err := cr.AddWithCtx(schedule, h.SweepInvitations)
	return err
}
