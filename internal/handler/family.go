package handlers

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/logger"
	"CrowdGuard/pkg/response"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handlers) handleListFamily(c *gin.Context) {
	rows, err := models.ListFamilyMembers(h.db, c.Query("user_email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	l := h.labels(c)
	out := make([]models.FamilyMemberView, len(rows))
	for i := range rows {
		out[i] = rows[i].View(l)
	}
	response.List(c, out, nil)
}

func (h *Handlers) handleGetFamily(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := models.GetFamilyMember(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, m.View(h.labels(c)))
}

func (h *Handlers) handleCreateFamily(c *gin.Context) {
	var req models.FamilyMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	m := &models.FamilyMember{}
	touched := req.Apply(m)
	if err := models.CreateFamilyMember(h.db, m, touched); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m.View(h.labels(c)))
}

func (h *Handlers) handleUpdateFamily(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := models.GetFamilyMember(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.FamilyMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	h.saveFamily(c, m, req.Apply(m))
}

func (h *Handlers) handlePatchFamily(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	m, err := models.GetFamilyMember(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.FamilyMemberPatch
	if !bindJSON(c, &req) {
		return
	}
	h.saveFamily(c, m, req.Apply(m))
}

func (h *Handlers) saveFamily(c *gin.Context, m *models.FamilyMember, touched bool) {
	if err := models.SaveFamilyMember(h.db, m, touched); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, m.View(h.labels(c)))
}

func (h *Handlers) handleDeleteFamily(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := models.DeleteFamilyMember(h.db, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// handleUpdateLocation copies the caller's position onto every family row that stands
// for them in other users' lists.
func (h *Handlers) handleUpdateLocation(c *gin.Context) {
	var req models.LocationUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := models.PropagateLocation(h.db, req.Email, *req.Latitude, *req.Longitude)
	if err != nil {
		logger.Error("location propagation failed",
			zap.String("email", req.Email),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		h.metrics.RecordBusinessOperation("update_location", "error")
		response.Detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	h.metrics.RecordLocationsPropagated(n)
	h.metrics.RecordBusinessOperation("update_location", "success")
	response.Success(c, gin.H{
		"detail":        fmt.Sprintf("Location updated for %d family member records", n),
		"updated_count": n,
	})
}
