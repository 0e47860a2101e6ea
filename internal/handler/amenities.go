package handlers

import (
	"CrowdGuard/internal/models"
	"CrowdGuard/pkg/response"

	"github.com/gin-gonic/gin"
)

const amenitiesCacheKey = "amenities:active"

func (h *Handlers) handleListAmenities(c *gin.Context) {
	amenities, err := cachedList(c.Request.Context(), h, amenitiesCacheKey, func() ([]models.Amenity, error) {
		return models.ListAmenities(h.db)
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	category := c.Query("category")
	l := h.labels(c)
	rows := make([]models.AmenityListView, 0, len(amenities))
	for i := range amenities {
		if category == "" || amenities[i].Category == category {
			rows = append(rows, amenities[i].ListView(l))
		}
	}
	var echo any
	if category != "" {
		echo = category
	}
	response.List(c, rows, gin.H{"category": echo})
}

func (h *Handlers) handleAmenityCategories(c *gin.Context) {
	response.Success(c, h.labels(c).Choices("amenity.category", models.AmenityCategoryChoices))
}

func (h *Handlers) handleGetAmenity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := models.GetAmenity(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, a.View(h.labels(c)))
}

func (h *Handlers) handleCreateAmenity(c *gin.Context) {
	var req models.AmenityRequest
	if !bindJSON(c, &req) {
		return
	}
	a := &models.Amenity{}
	req.Apply(a)
	if err := models.CreateAmenity(h.db, a); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c.Request.Context(), amenitiesCacheKey)
	response.Created(c, a.View(h.labels(c)))
}

func (h *Handlers) handlePatchAmenity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := models.GetAmenity(h.db, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.AmenityPatch
	if !bindJSON(c, &req) {
		return
	}
	req.Apply(a)
	if err := models.SaveAmenity(h.db, a); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c.Request.Context(), amenitiesCacheKey)
	response.Success(c, a.View(h.labels(c)))
}

func (h *Handlers) handleDeleteAmenity(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := models.DeleteAmenity(h.db, id); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c.Request.Context(), amenitiesCacheKey)
	response.NoContent(c)
}
