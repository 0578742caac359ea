package ports

import (
	"context"

	"github.com/hanoigo/assistant/internal/core/domain"
)

// AssistService is the consumer-facing contract of the core: one entry point
// taking a free-text query plus optional coordinates and answer text, and
// returning the final ordered candidate list.
type AssistService interface {
	Assist(ctx context.Context, req AssistRequest) ([]domain.CandidateResult, error)
}

// AssistRequest carries the caller input for one query.
type AssistRequest struct {
	Query       string              `json:"query"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
	AnswerText  string              `json:"answer_text,omitempty"`
	Limit       int                 `json:"limit,omitempty"`
}

// VenueIngestor is the inbound contract for asynchronous venue indexing.
type VenueIngestor interface {
	IngestByID(ctx context.Context, venueID string) error
}
