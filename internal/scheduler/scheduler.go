// Package scheduler re-syncs configured regions on a fixed interval so
// the stored location snapshot does not go stale between user searches.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Teasotea/air-quality-map/internal/config"
	"github.com/Teasotea/air-quality-map/internal/service"
)

const syncTimeout = 60 * time.Second

// Scheduler periodically runs location sync for configured coordinates
type Scheduler struct {
	scheduler   *gocron.Scheduler
	syncService *service.SyncService
	coordinates []config.Coordinate
	radiusM     float64
	limit       int
	interval    time.Duration
}

// New creates a new Scheduler
func New(cfg *config.Config, syncService *service.SyncService) *Scheduler {
	return &Scheduler{
		scheduler:   gocron.NewScheduler(time.UTC),
		syncService: syncService,
		coordinates: cfg.SyncCoordinates,
		radiusM:     cfg.SyncRadiusM,
		limit:       cfg.SyncLimit,
		interval:    cfg.SyncInterval,
	}
}

// Start schedules the periodic sync job and starts the scheduler
func (s *Scheduler) Start() error {
	if s.interval <= 0 || len(s.coordinates) == 0 {
		log.Println("[Scheduler] background sync disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		for _, coord := range s.coordinates {
			ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
			_, err := s.syncService.SyncByCoordinates(ctx, coord.Latitude, coord.Longitude, s.radiusM, s.limit)
			cancel()
			if err != nil {
				log.Printf("[Scheduler] sync failed for (%.4f, %.4f): %v",
					coord.Latitude, coord.Longitude, err)
			}
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("[Scheduler] background sync every %v for %d regions", s.interval, len(s.coordinates))
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
