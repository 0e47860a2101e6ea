package handlers

import (
	"CrowdGuard/internal/models"
	apperrors "CrowdGuard/pkg/errors"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
)

func (h *Handlers) deepLink(token string) template.URL {
	scheme := strings.TrimSuffix(h.cfg.AppScheme, "://")
	if scheme == "" {
		scheme = "appscheme"
	}
	return template.URL(scheme + "://invite?token=" + url.QueryEscape(token))
}

func (h *Handlers) renderInvite(c *gin.Context, status int, data gin.H) {
	c.HTML(status, "invite.html", data)
}

// handleInvitePage is the landing page behind an invitation link. Phones are handed
// to the app through its URL scheme; other browsers get an acceptance form.
func (h *Handlers) handleInvitePage(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.renderInvite(c, http.StatusBadRequest, gin.H{"Error": "This invitation link is incomplete."})
		return
	}
	if user_agent.New(c.Request.UserAgent()).Mobile() {
		h.renderInvite(c, http.StatusOK, gin.H{"DeepLink": h.deepLink(token)})
		return
	}

	inv, err := h.flow.Lookup(token)
	if err != nil {
		h.recordExpiry(err)
		h.renderInvite(c, apperrors.GetCode(err), gin.H{"Error": invitePageError(err)})
		return
	}
	h.renderInvite(c, http.StatusOK, gin.H{
		"Token":       token,
		"Email":       inv.InviteeEmail,
		"InviterName": h.flow.Users().DisplayName(inv.InviterEmail),
	})
}

func (h *Handlers) handleInviteAccept(c *gin.Context) {
	var req models.InvitationAcceptRequest
	if err := c.ShouldBind(&req); err != nil {
		h.renderInvite(c, http.StatusBadRequest, gin.H{
			"Token": c.PostForm("token"),
			"Email": c.PostForm("email"),
			"Error": "Please enter your email and password.",
		})
		return
	}
	res, err := h.flow.Accept(req.Token, req.Email, req.Password)
	if err != nil {
		h.recordExpiry(err)
		data := gin.H{"Error": invitePageError(err)}
		if code := apperrors.GetCode(err); code == http.StatusUnauthorized || errors.Is(err, models.ErrEmailMismatch) {
			data["Token"] = req.Token
			data["Email"] = req.Email
		}
		h.renderInvite(c, apperrors.GetCode(err), data)
		return
	}

	inviter := h.flow.Users().DisplayName(res.Invitation.InviterEmail)
	h.renderInvite(c, http.StatusOK, gin.H{
		"Accepted":      true,
		"AlreadyMember": res.AlreadyMember,
		"InviterName":   inviter,
	})
}

func invitePageError(err error) string {
	switch apperrors.GetCode(err) {
	case http.StatusNotFound:
		return "This invitation is no longer valid."
	case http.StatusUnauthorized:
		return "Invalid credentials"
	case http.StatusBadRequest:
		return apperrors.GetMessage(err)
	default:
		return "Something went wrong. Please try again later."
	}
}
