package models

import "time"

// Sensor represents a single measurement instrument at a monitoring location.
// Identity is the provider-assigned id; the name is fixed at first sight.
type Sensor struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Location represents an air-quality monitoring location with its sensors
type Location struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Latitude    float64    `json:"latitude" db:"latitude"`
	Longitude   float64    `json:"longitude" db:"longitude"`
	Sensors     []Sensor   `json:"sensors"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty" db:"last_updated"`

	// DistanceM is the great-circle distance from the search center,
	// populated only on search results.
	DistanceM float64 `json:"distanceM,omitempty"`
}

// StoreStats summarizes what the relational store currently holds
type StoreStats struct {
	LocationCount         int64   `json:"totalLocations"`
	SensorCount           int64   `json:"totalSensors"`
	RelationshipCount     int64   `json:"totalRelationships"`
	AvgSensorsPerLocation float64 `json:"avgSensorsPerLocation"`
}

// LocationSearchFilter represents query parameters for a location search
type LocationSearchFilter struct {
	Latitude  float64 `form:"lat"`
	Longitude float64 `form:"lon"`
	RadiusM   float64 `form:"radius"`
	Limit     int     `form:"limit"`
}
