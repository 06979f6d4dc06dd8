package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"desyn-backend/internal/models"
)

type HealthHandler struct {
	storage string
}

// NewHealthHandler reports storage as the name of the active document backend.
func NewHealthHandler(storage string) *HealthHandler {
	return &HealthHandler{storage: storage}
}

// Health godoc
// @Summary     Health check
// @Description Returns the health status of the API
// @Tags        health
// @Accept      json
// @Produce     json
// @Success     200 {object} models.HealthResponse
// @Router      /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "ok",
		Storage: h.storage,
	})
}
