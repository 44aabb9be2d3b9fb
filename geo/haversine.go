// Package geo provides the great-circle distance math used to rank workers
// by proximity. Coordinates are plain WGS84 degrees; there is no spatial
// index, ranking is a linear scan over the candidate set.
package geo

import (
	"math"
	"sort"
)

// EarthRadiusKm is the mean earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// DistanceKm computes the haversine great-circle distance between two points
// in kilometers.
func DistanceKm(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Ranked pairs a candidate index with its distance from the query point.
type Ranked struct {
	Index      int
	DistanceKm float64
}

// RankByDistance sorts candidate points ascending by distance from origin and
// truncates to limit. Callers are expected to have excluded candidates
// without known coordinates already.
func RankByDistance(origin Point, candidates []Point, limit int) []Ranked {
	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{Index: i, DistanceKm: DistanceKm(origin, c)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})

	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
