package geo

import "math"

// earthRadiusMeters is the mean Earth radius used for great-circle math.
const earthRadiusMeters = 6371000.0

// DistanceMeters returns the haversine great-circle distance between two
// coordinates in meters. It is symmetric and returns zero for identical
// points; NaN inputs propagate to a NaN result.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// IsWithinGeofence reports whether the user's position lies within
// radiusMeters of the target, boundary inclusive. Any NaN input yields
// false rather than an error.
func IsWithinGeofence(userLat, userLon, targetLat, targetLon, radiusMeters float64) bool {
	d := DistanceMeters(userLat, userLon, targetLat, targetLon)
	if math.IsNaN(d) || math.IsNaN(radiusMeters) {
		return false
	}
	return d <= radiusMeters
}
