package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Teasotea/air-quality-map/internal/models"
	"github.com/Teasotea/air-quality-map/internal/service"
	"github.com/Teasotea/air-quality-map/pkg/response"
)

// GroundHandler handles HTTP requests for aggregated ground data
type GroundHandler struct {
	groundService *service.GroundService
}

// NewGroundHandler creates a new ground-data handler
func NewGroundHandler(groundService *service.GroundService) *GroundHandler {
	return &GroundHandler{groundService: groundService}
}

// GetGroundData handles GET /api/v1/locations/:id/ground-data
func (h *GroundHandler) GetGroundData(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid location id")
		return
	}

	var filter models.GroundDataFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	var from, to *time.Time
	if filter.From != "" {
		ts, perr := time.Parse(time.RFC3339, filter.From)
		if perr != nil {
			response.BadRequest(c, "Invalid 'from' timestamp, expected RFC3339")
			return
		}
		from = &ts
	}
	if filter.To != "" {
		ts, perr := time.Parse(time.RFC3339, filter.To)
		if perr != nil {
			response.BadRequest(c, "Invalid 'to' timestamp, expected RFC3339")
			return
		}
		to = &ts
	}

	includePredictions := true
	if filter.Predictions != nil {
		includePredictions = *filter.Predictions
	}

	data, err := h.groundService.GetGroundData(c.Request.Context(), id, from, to, includePredictions)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, data)
}
