package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	// EarthRadiusM matches the constant used when the stop catalog was
	// originally calibrated; changing it shifts dedup boundaries.
	EarthRadiusM = 6371000.0

	// MetersPerDegreeLat converts a small meter offset to degrees latitude.
	MetersPerDegreeLat = 111320.0
)

// HaversineM returns the great-circle distance in meters between two
// lon/lat points.
func HaversineM(lon1, lat1, lon2, lat2 float64) float64 {
	dLon := toRad(lon2 - lon1)
	dLat := toRad(lat2 - lat1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusM * math.Asin(math.Sqrt(a))
}

// DistanceM is HaversineM over orb points.
func DistanceM(a, b orb.Point) float64 {
	return HaversineM(a.Lon(), a.Lat(), b.Lon(), b.Lat())
}

// LineLengthM sums the haversine lengths of a polyline's segments.
func LineLengthM(line orb.LineString) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += DistanceM(line[i-1], line[i])
	}
	return total
}

// ValidLonLat reports whether a coordinate is finite and within geographic
// bounds.
func ValidLonLat(lon, lat float64) bool {
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// MeanCenter returns the arithmetic mean of the given points. The second
// return value is false for an empty input.
func MeanCenter(points []orb.Point) (orb.Point, bool) {
	if len(points) == 0 {
		return orb.Point{}, false
	}
	var sumLon, sumLat float64
	for _, p := range points {
		sumLon += p.Lon()
		sumLat += p.Lat()
	}
	n := float64(len(points))
	return orb.Point{sumLon / n, sumLat / n}, true
}

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }
