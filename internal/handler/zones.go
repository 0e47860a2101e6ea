package handlers

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/response"

	"github.com/gin-gonic/gin"
)

const zonesCacheKey = "zones:active"

func zoneViews(zones []models.Zone, l models.Labeler, f models.ZoneFilter) []models.ZoneView {
	out := make([]models.ZoneView, 0, len(zones))
	for i := range zones {
		if f.Match(&zones[i]) {
			out = append(out, zones[i].View(l))
		}
	}
	return out
}

func (h *Handlers) handleListZones(c *gin.Context) {
	zones, err := cachedList(c.Request.Context(), h, zonesCacheKey, func() ([]models.Zone, error) {
		return models.ListZones(h.db)
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ZoneFilter{Status: c.Query("status"), ZoneType: c.Query("zone_type")}
	response.List(c, zoneViews(zones, h.labels(c), filter), nil)
}

func (h *Handlers) handleGetZone(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	z, err := models.GetZone(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, z.View(h.labels(c)))
}

func (h *Handlers) handleCreateZone(c *gin.Context) {
	var req models.ZoneRequest
	if !bindJSON(c, &req) {
		return
	}
	z := &models.Zone{}
	req.Apply(z)
	if err := models.CreateZone(h.db, z); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c.Request.Context(), zonesCacheKey)
	response.Created(c, z.View(h.labels(c)))
}

func (h *Handlers) handleUpdateZone(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	z, err := models.GetZone(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ZoneRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Apply(z)
	h.saveZone(c, z)
}

func (h *Handlers) handlePatchZone(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	z, err := models.GetZone(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.ZonePatch
	if !bindJSON(c, &req) {
		return
	}
	req.Apply(z)
	h.saveZone(c, z)
}

func (h *Handlers) saveZone(c *gin.Context, z *models.Zone) {
	if err := models.SaveZone(h.db, z); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c.Request.Context(), zonesCacheKey)
	response.Success(c, z.View(h.labels(c)))
}

func (h *Handlers) handleDeleteZone(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := models.DeleteZone(h.db, id); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c.Request.Context(), zonesCacheKey)
	response.NoContent(c)
}
