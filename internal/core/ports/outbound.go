package ports

import (
	"context"
	"time"

	"github.com/hanoigo/assistant/internal/core/domain"
)

// CatalogStore issues read-only structured queries against the venue catalog.
// Every method applies the filter's district constraint conjunctively when set
// and the dating exclusions when filter.IsDating is true.
type CatalogStore interface {
	// SearchByKeyword returns venues whose name, address, description,
	// category or tags contain the keyword (disjunction, case-insensitive).
	SearchByKeyword(ctx context.Context, keyword string, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error)
	// SearchByTags returns venues whose tag lists intersect the given set.
	SearchByTags(ctx context.Context, tags []string, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error)
	// SearchByAddress returns venues whose address contains the fragment.
	SearchByAddress(ctx context.Context, fragment string, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error)
	// SearchNearby returns venues within radiusKm of center, nearest first.
	SearchNearby(ctx context.Context, center domain.Coordinates, radiusKm float64, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error)
	GetByID(ctx context.Context, id string) (*domain.Venue, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Venue, error)
}

// VectorIndex is the external similarity-search collaborator.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.RetrievalFilter) ([]domain.VenueMatch, error)
	UpsertChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	DeleteVenue(ctx context.Context, venueID string) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// PropositionExtractor asks the LLM collaborator to split a venue description
// into short, self-contained factual statements.
type PropositionExtractor interface {
	ExtractPropositions(ctx context.Context, venueName, text string) ([]string, error)
}

// Cache is the resilient cache layer. All operations are best-effort: backend
// failures are absorbed, logged and counted, never returned to the caller.
type Cache interface {
	// Get unmarshals the cached value into dest and reports a hit. A tripped
	// breaker or a backend failure is indistinguishable from a miss.
	Get(ctx context.Context, namespace string, key any, dest any) bool
	Set(ctx context.Context, namespace string, key any, value any, ttl time.Duration) bool
	Delete(ctx context.Context, namespace string, key any) bool
	Clear(ctx context.Context, namespace string) bool
	HealthCheck(ctx context.Context) error
}

// MessageQueue publishes/consumes venue ingestion events.
type MessageQueue interface {
	PublishVenueIngested(ctx context.Context, venueID string) error
	SubscribeVenueIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// IntentClassifier classifies a query. Total: never fails, GENERAL default.
type IntentClassifier interface {
	Classify(query string) domain.QueryIntent
}

// DistrictExtractor detects administrative districts and near-me eligibility.
type DistrictExtractor interface {
	ExtractDistrict(query string) string
	IsNearMeEligible(query string, hasCoordinates bool) bool
}
