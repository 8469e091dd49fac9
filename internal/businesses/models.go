package businesses

import (
	"time"

	"github.com/google/uuid"
)

// Geofence radius bounds in meters
const (
	MinRadiusMeters     = 10.0
	MaxRadiusMeters     = 500.0
	DefaultRadiusMeters = 50.0
)

// Business is a geofence target and rating aggregate
type Business struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	Name          string    `json:"name"`
	Category      string    `json:"category,omitempty"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	RadiusMeters  float64   `json:"radius_meters"`
	RatingAverage float64   `json:"rating_average"`
	RatingCount   int       `json:"rating_count"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ClampRadius forces the geofence radius into [MinRadiusMeters, MaxRadiusMeters],
// substituting the default when unset.
func ClampRadius(radius float64) float64 {
	if radius == 0 {
		return DefaultRadiusMeters
	}
	if radius < MinRadiusMeters {
		return MinRadiusMeters
	}
	if radius > MaxRadiusMeters {
		return MaxRadiusMeters
	}
	return radius
}
