package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Teasotea/air-quality-map/internal/models"
	"github.com/Teasotea/air-quality-map/internal/repository"
	"github.com/Teasotea/air-quality-map/internal/service"
	"github.com/Teasotea/air-quality-map/pkg/response"
)

// LocationHandler handles HTTP requests for location search and lookup
type LocationHandler struct {
	syncService *service.SyncService
	repo        *repository.LocationRepository
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(syncService *service.SyncService, repo *repository.LocationRepository) *LocationHandler {
	return &LocationHandler{
		syncService: syncService,
		repo:        repo,
	}
}

// SearchLocations handles GET /api/v1/locations
// Searches the provider around a coordinate, persists the fresh results
// and returns them nearest first.
func (h *LocationHandler) SearchLocations(c *gin.Context) {
	var filter models.LocationSearchFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid search parameters")
		return
	}

	if filter.Latitude < -90 || filter.Latitude > 90 || filter.Longitude < -180 || filter.Longitude > 180 {
		response.BadRequest(c, "Coordinates out of range")
		return
	}
	if filter.RadiusM <= 0 {
		filter.RadiusM = 10000
	}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 1000
	}

	locations, err := h.syncService.SyncByCoordinates(
		c.Request.Context(), filter.Latitude, filter.Longitude, filter.RadiusM, filter.Limit)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, locations)
}

// GetLocation handles GET /api/v1/locations/:id
func (h *LocationHandler) GetLocation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid location id")
		return
	}

	loc, err := h.repo.GetLocation(id)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	if loc == nil {
		response.NotFound(c, "Location not found")
		return
	}

	response.Success(c, loc)
}

// GetSensorLocations handles GET /api/v1/sensors/:id/locations
func (h *LocationHandler) GetSensorLocations(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid sensor id")
		return
	}

	ids, err := h.repo.LocationIDsForSensor(id)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{"sensorId": id, "locationIds": ids})
}
