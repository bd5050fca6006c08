package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Coordinate is the center of a region targeted by background sync
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Config holds application configuration
type Config struct {
	Port           string
	DBPath         string
	OpenAQAPIKey   string
	OpenAQBaseURL  string
	AdminJWTSecret string

	// Background sync settings. SyncInterval of 0 disables the scheduler.
	SyncInterval    time.Duration
	SyncCoordinates []Coordinate
	SyncRadiusM     float64
	SyncLimit       int
}

// Load reads configuration from the environment with sensible defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Config] no .env file loaded: %v", err)
	}

	cfg := &Config{
		Port:           getenvDefault("PORT", ":8080"),
		DBPath:         getenvDefault("DB_PATH", "./data/air_quality.db"),
		OpenAQAPIKey:   os.Getenv("OPENAQ_API_KEY"),
		OpenAQBaseURL:  getenvDefault("OPENAQ_BASE_URL", "https://api.openaq.org/v3"),
		AdminJWTSecret: getenvDefault("ADMIN_JWT_SECRET", "change-me-in-production"),
		SyncRadiusM:    getenvFloat("SYNC_RADIUS_M", 10000),
		SyncLimit:      getenvInt("SYNC_LIMIT", 1000),
	}

	intervalStr := getenvDefault("SYNC_INTERVAL", "30m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}
	cfg.SyncInterval = interval

	coords, err := parseCoordinates(os.Getenv("SYNC_COORDINATES"))
	if err != nil {
		return nil, err
	}
	cfg.SyncCoordinates = coords

	return cfg, nil
}

// parseCoordinates parses "lat,lon[;lat,lon...]" into coordinate pairs.
// An empty value yields no sync targets.
func parseCoordinates(raw string) ([]Coordinate, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var coords []Coordinate
	for _, pair := range strings.Split(raw, ";") {
		parts := strings.Split(strings.TrimSpace(pair), ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid SYNC_COORDINATES entry %q", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in SYNC_COORDINATES entry %q: %w", pair, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in SYNC_COORDINATES entry %q: %w", pair, err)
		}
		coords = append(coords, Coordinate{Latitude: lat, Longitude: lon})
	}
	return coords, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
