// Package geo provides great-circle distance math shared by the
// aggregation pipeline and the store query layer.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used throughout; radius
// filters passed to MongoDB divide by this to get radians.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between
// two WGS-84 coordinates.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
