package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Teasotea/air-quality-map/internal/config"
	"github.com/Teasotea/air-quality-map/internal/handler"
	"github.com/Teasotea/air-quality-map/internal/middleware"
)

// Handlers bundles the HTTP handlers wired into the router
type Handlers struct {
	Location *handler.LocationHandler
	Ground   *handler.GroundHandler
	Admin    *handler.AdminHandler
}

// SetupRouter builds the gin engine with all routes and middleware
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Air Quality Map API is running",
		})
	})

	api := r.Group("/api/v1")
	{
		locations := api.Group("/locations")
		{
			locations.GET("", h.Location.SearchLocations)
			locations.GET("/:id", h.Location.GetLocation)
			locations.GET("/:id/ground-data", h.Ground.GetGroundData)
		}

		sensors := api.Group("/sensors")
		{
			sensors.GET("/:id/locations", h.Location.GetSensorLocations)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(cfg.AdminJWTSecret))
		{
			admin.POST("/sync", h.Admin.TriggerSync)
			admin.GET("/stats", h.Admin.GetStats)
		}
	}

	return r
}
