package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Teasotea/air-quality-map/internal/repository"
	"github.com/Teasotea/air-quality-map/internal/service"
	"github.com/Teasotea/air-quality-map/pkg/response"
)

// AdminHandler handles operator endpoints: manual sync and store stats
type AdminHandler struct {
	syncService *service.SyncService
	repo        *repository.LocationRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(syncService *service.SyncService, repo *repository.LocationRepository) *AdminHandler {
	return &AdminHandler{
		syncService: syncService,
		repo:        repo,
	}
}

type syncRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
	RadiusM   float64 `json:"radiusM"`
	Limit     int     `json:"limit"`
}

// TriggerSync handles POST /api/v1/admin/sync
func (h *AdminHandler) TriggerSync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid sync request body")
		return
	}
	if req.RadiusM <= 0 {
		req.RadiusM = 10000
	}
	if req.Limit <= 0 || req.Limit > 1000 {
		req.Limit = 1000
	}

	locations, err := h.syncService.SyncByCoordinates(
		c.Request.Context(), req.Latitude, req.Longitude, req.RadiusM, req.Limit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"synced": len(locations)})
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.repo.Stats()
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, stats)
}
