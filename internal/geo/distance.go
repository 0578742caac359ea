// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"
	"sort"

	"github.com/hanoigo/assistant/internal/core/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees. Symmetric; exactly 0 for identical
// points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	if lat1 == lat2 && lng1 == lng2 {
		return 0
	}

	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// SortPlacesByDistance computes the distance from (lat, lng) to every venue
// and returns candidates sorted ascending by distance. Venues without a
// resolvable location get a nil DistanceKm and sort after all located ones,
// relative order preserved. Non-finite caller coordinates short-circuit to an
// unsorted passthrough.
func SortPlacesByDistance(venues []domain.Venue, lat, lng float64) []domain.CandidateResult {
	candidates := make([]domain.CandidateResult, 0, len(venues))
	for _, v := range venues {
		candidates = append(candidates, domain.CandidateResult{Venue: v})
	}
	return SortCandidatesByDistance(candidates, lat, lng)
}

// SortCandidatesByDistance is SortPlacesByDistance over already-built
// candidates, keeping their per-query ranking fields intact.
func SortCandidatesByDistance(candidates []domain.CandidateResult, lat, lng float64) []domain.CandidateResult {
	out := make([]domain.CandidateResult, len(candidates))
	copy(out, candidates)

	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return out
	}

	for i := range out {
		if loc := out[i].Location; loc != nil {
			d := HaversineKm(lat, lng, loc.Lat, loc.Lng)
			d = math.Round(d*100) / 100
			out[i].DistanceKm = &d
		} else {
			out[i].DistanceKm = nil
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DistanceKm, out[j].DistanceKm
		if di == nil {
			return false
		}
		if dj == nil {
			return true
		}
		return *di < *dj
	})

	return out
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
