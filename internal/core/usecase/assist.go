package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hanoigo/assistant/internal/core/domain"
	"github.com/hanoigo/assistant/internal/core/ports"
	"github.com/hanoigo/assistant/internal/geo"
)

const defaultAssistCacheTTL = time.Hour

// assistCacheKey identifies one retrieval result set. AnswerText is not part
// of the key: reordering and distance sorting are pure and run on every call,
// so cached candidates stay valid for any answer.
type assistCacheKey struct {
	Query       string              `json:"query"`
	Coordinates *domain.Coordinates `json:"coordinates,omitempty"`
	Limit       int                 `json:"limit"`
}

// AssistUseCase is the single consumer-facing entry point: classify, extract
// location hints, retrieve (cached), then order for display.
type AssistUseCase struct {
	classifier ports.IntentClassifier
	districts  ports.DistrictExtractor
	retriever  *RetrieveUseCase
	cache      ports.Cache
	cacheTTL   time.Duration
	logger     *slog.Logger
}

func NewAssistUseCase(
	classifier ports.IntentClassifier,
	districts ports.DistrictExtractor,
	retriever *RetrieveUseCase,
	cache ports.Cache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *AssistUseCase {
	if cacheTTL <= 0 {
		cacheTTL = defaultAssistCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AssistUseCase{
		classifier: classifier,
		districts:  districts,
		retriever:  retriever,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger.With("component", "assist"),
	}
}

func (uc *AssistUseCase) Assist(ctx context.Context, req ports.AssistRequest) ([]domain.CandidateResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return []domain.CandidateResult{}, nil
	}

	candidates := uc.retrieveCached(ctx, query, req)

	if req.AnswerText != "" {
		candidates = SortByAnswerOrder(candidates, req.AnswerText)
	}
	if req.Coordinates != nil {
		candidates = geo.SortCandidatesByDistance(candidates, req.Coordinates.Lat, req.Coordinates.Lng)
	}
	return candidates, nil
}

func (uc *AssistUseCase) retrieveCached(ctx context.Context, query string, req ports.AssistRequest) []domain.CandidateResult {
	key := assistCacheKey{Query: strings.ToLower(query), Coordinates: req.Coordinates, Limit: req.Limit}

	if uc.cache != nil {
		var cached []domain.CandidateResult
		if uc.cache.Get(ctx, CacheNamespaceSearch, key, &cached) {
			uc.logger.Debug("assist_cache_hit", "query", query)
			return cached
		}
	}

	intent := uc.classifier.Classify(query)
	district := uc.districts.ExtractDistrict(query)

	filter := domain.RetrievalFilter{
		District: district,
		Tags:     intent.Tags,
		Keyword:  intent.Keyword,
		IsDating: intent.IsDating,
	}
	if req.Coordinates != nil && uc.districts.IsNearMeEligible(query, true) {
		filter.NearMe = req.Coordinates
	}

	uc.logger.Info("query_understood",
		"intent", string(intent.Kind),
		"keyword", intent.Keyword,
		"district", district,
		"near_me", filter.NearMe != nil,
		"dating", intent.IsDating,
		"low_confidence", intent.LowConfidence,
	)

	candidates := uc.retriever.Retrieve(ctx, query, intent, filter, req.Limit)

	if uc.cache != nil && len(candidates) > 0 {
		uc.cache.Set(ctx, CacheNamespaceSearch, key, candidates, uc.cacheTTL)
	}
	return candidates
}
