package domain

// Coordinates is the single resolved coordinate representation used across
// the core. Upstream stores may keep GeoJSON pairs or flat lat/lng columns;
// they are mapped into this type once, at the repository boundary.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// VenueTags groups the categorical tag lists attached to a venue by the
// ingestion pipeline.
type VenueTags struct {
	Mood            []string `json:"mood,omitempty"`
	Space           []string `json:"space,omitempty"`
	Suitability     []string `json:"suitability,omitempty"`
	SpecialFeatures []string `json:"special_features,omitempty"`
	Food            []string `json:"food,omitempty"`
}

// All flattens every tag list into one slice.
func (t VenueTags) All() []string {
	out := make([]string, 0, len(t.Mood)+len(t.Space)+len(t.Suitability)+len(t.SpecialFeatures)+len(t.Food))
	out = append(out, t.Mood...)
	out = append(out, t.Space...)
	out = append(out, t.Suitability...)
	out = append(out, t.SpecialFeatures...)
	out = append(out, t.Food...)
	return out
}

// Venue is a catalog entity. Read-only to the retrieval core.
type Venue struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Address       string       `json:"address"`
	District      string       `json:"district,omitempty"`
	Category      string       `json:"category,omitempty"`
	Description   string       `json:"description,omitempty"`
	PriceMin      int          `json:"price_min,omitempty"`
	PriceMax      int          `json:"price_max,omitempty"`
	Tags          VenueTags    `json:"tags"`
	Location      *Coordinates `json:"location,omitempty"`
	ReviewCount   int          `json:"review_count,omitempty"`
	AverageRating float64      `json:"average_rating,omitempty"`
}

// CandidateResult is a Venue augmented with per-query ranking data. Created
// fresh per query, never persisted.
type CandidateResult struct {
	Venue
	// DistanceKm is nil when no coordinate pair could be resolved.
	DistanceKm *float64 `json:"distance_km,omitempty"`
	MatchScore float64  `json:"match_score,omitempty"`
	// Strategy records which retrieval path produced the candidate.
	Strategy string `json:"strategy,omitempty"`
}

// VenueMatch is one hit from the vector-index service.
type VenueMatch struct {
	VenueID string  `json:"venue_id"`
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
}
