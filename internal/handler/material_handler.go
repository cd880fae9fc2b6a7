package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/service"
	"github.com/noah-isme/kanvas-api/pkg/response"
)

// MaterialHandler exposes course material links.
type MaterialHandler struct {
	materials *service.MaterialService
}

// NewMaterialHandler constructs MaterialHandler.
func NewMaterialHandler(materials *service.MaterialService) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

// Create godoc
// @Summary Add material to an offering
// @Tags Materials
// @Accept json
// @Produce json
// @Param payload body models.CreateMaterialRequest true "Material"
// @Success 201 {object} response.Envelope
// @Router /materials [post]
func (h *MaterialHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateMaterialRequest
	if !bindJSON(c, &req, "invalid material payload") {
		return
	}
	m, err := h.materials.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// ListByOffering godoc
// @Summary Materials of an offering
// @Tags Materials
// @Produce json
// @Param offeringId path int true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /materials/offering/{offeringId} [get]
func (h *MaterialHandler) ListByOffering(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	offeringID, ok := pathID(c, "offeringId")
	if !ok {
		return
	}
	list, err := h.materials.ListByOffering(c.Request.Context(), actor, offeringID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Delete godoc
// @Summary Delete material
// @Tags Materials
// @Param id path int true "Material ID"
// @Success 204
// @Router /materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.materials.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
