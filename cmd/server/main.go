package main

import (
	"log"

	"github.com/Teasotea/air-quality-map/internal/api"
	"github.com/Teasotea/air-quality-map/internal/config"
	"github.com/Teasotea/air-quality-map/internal/database"
	"github.com/Teasotea/air-quality-map/internal/forecast"
	"github.com/Teasotea/air-quality-map/internal/handler"
	"github.com/Teasotea/air-quality-map/internal/openaq"
	"github.com/Teasotea/air-quality-map/internal/repository"
	"github.com/Teasotea/air-quality-map/internal/scheduler"
	"github.com/Teasotea/air-quality-map/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	client := openaq.NewClient(cfg.OpenAQBaseURL, cfg.OpenAQAPIKey)
	repo := repository.NewLocationRepository(db)

	syncService := service.NewSyncService(repo, client)
	groundService := service.NewGroundService(repo, client, forecast.NewEngine())

	sched := scheduler.New(cfg, syncService)
	if err := sched.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}
	defer sched.Stop()

	router := api.SetupRouter(cfg, api.Handlers{
		Location: handler.NewLocationHandler(syncService, repo),
		Ground:   handler.NewGroundHandler(groundService),
		Admin:    handler.NewAdminHandler(syncService, repo),
	})

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
