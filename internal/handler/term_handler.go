package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kanvas-api/internal/service"
	"github.com/noah-isme/kanvas-api/pkg/response"
)

// TermHandler exposes academic terms.
type TermHandler struct {
	service *service.TermService
}

// NewTermHandler constructs TermHandler.
func NewTermHandler(svc *service.TermService) *TermHandler {
	return &TermHandler{service: svc}
}

// List godoc
// @Summary List terms
// @Tags Terms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /terms [get]
func (h *TermHandler) List(c *gin.Context) {
	terms, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, terms)
}

// Current godoc
// @Summary Term containing today
// @Tags Terms
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /terms/current [get]
func (h *TermHandler) Current(c *gin.Context) {
	term, err := h.service.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, term)
}

// Next godoc
// @Summary Next upcoming term
// @Tags Terms
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /terms/next [get]
func (h *TermHandler) Next(c *gin.Context) {
	term, err := h.service.Next(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, term)
}
