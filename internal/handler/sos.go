package handlers

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/response"

	"github.com/gin-gonic/gin"
)

func sosViews(rows []models.SosRequest, l models.Labeler) []models.SosView {
	out := make([]models.SosView, len(rows))
	for i := range rows {
		out[i] = rows[i].View(l)
	}
	return out
}

func (h *Handlers) handleListSos(c *gin.Context) {
	rows, err := models.ListSosRequests(h.db, models.SosFilter{
		Status:    c.Query("status"),
		SosType:   c.Query("sos_type"),
		UserEmail: c.Query("user_email"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, sosViews(rows, h.labels(c)), nil)
}

func (h *Handlers) handleGetSos(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s, err := models.GetSosRequest(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.View(h.labels(c)))
}

func (h *Handlers) handleCreateSos(c *gin.Context) {
	var req models.SosCreateRequest
	if !bindJSON(c, &req) {
		return
	}
	s := req.Build()
	if s.UserName == "" {
		if u := models.CurrentUser(c); u != nil && u.Email == s.UserEmail {
			s.UserName = u.DisplayName()
		}
	}
	if err := models.CreateSosRequest(h.db, s); err != nil {
		h.metrics.RecordBusinessOperation("sos_create", "error")
		response.Error(c, err)
		return
	}
	h.metrics.RecordBusinessOperation("sos_create", "success")
	response.Created(c, s.View(h.labels(c)))
}

func (h *Handlers) handlePatchSos(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s, err := models.GetSosRequest(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.SosPatch
	if !bindJSON(c, &req) {
		return
	}
	req.Apply(s)
	if err := models.SaveSosRequest(h.db, s); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, s.View(h.labels(c)))
}

func (h *Handlers) handleDeleteSos(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := models.DeleteSosRequest(h.db, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
