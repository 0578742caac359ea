package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hanoigo/assistant/internal/core/domain"
	"github.com/hanoigo/assistant/internal/core/ports"
)

// Strategy labels recorded on each candidate.
const (
	StrategyNearby   = "nearby"
	StrategyKeyword  = "keyword"
	StrategyTags     = "tags"
	StrategySemantic = "semantic"
	StrategyAddress  = "address"
)

const invalidAddressPlaceholder = "đang cập nhật"

type RetrieveConfig struct {
	// Limit caps the candidate list when the caller does not.
	Limit int
	// MinResults is the widening threshold: fewer hits than this and the
	// district constraint is dropped once.
	MinResults int
	NearbyRadiusKm float64
	// StrategyTimeout bounds each outbound call; exceeding it counts as that
	// strategy returning zero results.
	StrategyTimeout time.Duration
}

func DefaultRetrieveConfig() RetrieveConfig {
	return RetrieveConfig{
		Limit:           8,
		MinResults:      3,
		NearbyRadiusKm:  5,
		StrategyTimeout: 5 * time.Second,
	}
}

func (c RetrieveConfig) normalize() RetrieveConfig {
	def := DefaultRetrieveConfig()
	if c.Limit <= 0 {
		c.Limit = def.Limit
	}
	if c.MinResults <= 0 {
		c.MinResults = def.MinResults
	}
	if c.NearbyRadiusKm <= 0 {
		c.NearbyRadiusKm = def.NearbyRadiusKm
	}
	if c.StrategyTimeout <= 0 {
		c.StrategyTimeout = def.StrategyTimeout
	}
	return c
}

// RetrieveUseCase picks a retrieval strategy per query and merges the result
// with the parallel address search. It never returns an error for empty
// results; backend failures degrade to zero results from that strategy.
type RetrieveUseCase struct {
	catalog  ports.CatalogStore
	vector   ports.VectorIndex
	embedder ports.Embedder
	cfg      RetrieveConfig
	logger   *slog.Logger
}

func NewRetrieveUseCase(
	catalog ports.CatalogStore,
	vector ports.VectorIndex,
	embedder ports.Embedder,
	cfg RetrieveConfig,
	logger *slog.Logger,
) *RetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveUseCase{
		catalog:  catalog,
		vector:   vector,
		embedder: embedder,
		cfg:      cfg.normalize(),
		logger:   logger.With("component", "retrieve"),
	}
}

func (uc *RetrieveUseCase) Retrieve(
	ctx context.Context,
	query string,
	intent domain.QueryIntent,
	filter domain.RetrievalFilter,
	limit int,
) []domain.CandidateResult {
	if limit <= 0 {
		limit = uc.cfg.Limit
	}

	candidates := uc.runStrategies(ctx, query, intent, filter, limit)

	// Single widening step: drop the district constraint when the strict
	// result set is too thin. Never widened twice, never retried.
	if len(candidates) < uc.cfg.MinResults && filter.District != "" {
		uc.logger.Info("widening_search",
			"district", filter.District,
			"strict_count", len(candidates),
		)
		widened := filter
		widened.District = ""
		candidates = append(candidates, uc.runStrategies(ctx, query, intent, widened, limit)...)
	}

	candidates = dropInvalidAddresses(candidates)
	candidates = dedupeByID(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// runStrategies evaluates the decision table and runs the winning strategy
// concurrently with the address search. Partial failure is fine; whichever
// side returns contributes.
func (uc *RetrieveUseCase) runStrategies(
	ctx context.Context,
	query string,
	intent domain.QueryIntent,
	filter domain.RetrievalFilter,
	limit int,
) []domain.CandidateResult {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		primary []domain.CandidateResult
		address []domain.CandidateResult
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		out := uc.runPrimary(ctx, query, intent, filter, limit)
		mu.Lock()
		primary = out
		mu.Unlock()
	}()

	if fragment, ok := extractAddressFragment(query); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out := uc.searchAddress(ctx, fragment, filter, limit)
			mu.Lock()
			address = out
			mu.Unlock()
		}()
	}

	wg.Wait()
	return append(primary, address...)
}

func (uc *RetrieveUseCase) runPrimary(
	ctx context.Context,
	query string,
	intent domain.QueryIntent,
	filter domain.RetrievalFilter,
	limit int,
) []domain.CandidateResult {
	switch {
	case filter.NearMe != nil:
		return uc.searchNearby(ctx, *filter.NearMe, filter, limit)
	case intent.Kind == domain.IntentFoodEntity && intent.Keyword != "":
		return uc.searchKeyword(ctx, intent.Keyword, filter, limit)
	case (intent.Kind == domain.IntentActivity || intent.Kind == domain.IntentPlaceVibe) && len(intent.Tags) > 0:
		return uc.searchTags(ctx, intent.Tags, filter, limit)
	default:
		return uc.searchSemantic(ctx, query, filter, limit)
	}
}

func (uc *RetrieveUseCase) searchNearby(ctx context.Context, center domain.Coordinates, filter domain.RetrievalFilter, limit int) []domain.CandidateResult {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.StrategyTimeout)
	defer cancel()

	venues, err := uc.catalog.SearchNearby(ctx, center, uc.cfg.NearbyRadiusKm, filter, limit)
	if err != nil {
		uc.logger.Warn("strategy_failed", "strategy", StrategyNearby, "error", err)
		return nil
	}
	return asCandidates(venues, StrategyNearby)
}

func (uc *RetrieveUseCase) searchKeyword(ctx context.Context, keyword string, filter domain.RetrievalFilter, limit int) []domain.CandidateResult {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.StrategyTimeout)
	defer cancel()

	venues, err := uc.catalog.SearchByKeyword(ctx, keyword, filter, limit)
	if err != nil {
		uc.logger.Warn("strategy_failed", "strategy", StrategyKeyword, "error", err)
		return nil
	}
	return asCandidates(venues, StrategyKeyword)
}

func (uc *RetrieveUseCase) searchTags(ctx context.Context, tags []string, filter domain.RetrievalFilter, limit int) []domain.CandidateResult {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.StrategyTimeout)
	defer cancel()

	venues, err := uc.catalog.SearchByTags(ctx, tags, filter, limit)
	if err != nil {
		uc.logger.Warn("strategy_failed", "strategy", StrategyTags, "error", err)
		return nil
	}
	return asCandidates(venues, StrategyTags)
}

func (uc *RetrieveUseCase) searchAddress(ctx context.Context, fragment string, filter domain.RetrievalFilter, limit int) []domain.CandidateResult {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.StrategyTimeout)
	defer cancel()

	venues, err := uc.catalog.SearchByAddress(ctx, fragment, filter, limit)
	if err != nil {
		uc.logger.Warn("strategy_failed", "strategy", StrategyAddress, "error", err)
		return nil
	}
	return asCandidates(venues, StrategyAddress)
}

func (uc *RetrieveUseCase) searchSemantic(ctx context.Context, query string, filter domain.RetrievalFilter, limit int) []domain.CandidateResult {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.StrategyTimeout)
	defer cancel()

	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		uc.logger.Warn("strategy_failed", "strategy", StrategySemantic, "stage", "embed", "error", err)
		return nil
	}

	matches, err := uc.vector.Search(ctx, vector, limit, filter)
	if err != nil {
		uc.logger.Warn("strategy_failed", "strategy", StrategySemantic, "stage", "search", "error", err)
		return nil
	}
	if len(matches) == 0 {
		return nil
	}

	ids := make([]string, 0, len(matches))
	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		ids = append(ids, m.VenueID)
		scores[m.VenueID] = m.Score
	}

	venues, err := uc.catalog.GetByIDs(ctx, ids)
	if err != nil {
		uc.logger.Warn("strategy_failed", "strategy", StrategySemantic, "stage", "hydrate", "error", err)
		return nil
	}

	// Keep the similarity order, not the store's return order.
	byID := make(map[string]domain.Venue, len(venues))
	for _, v := range venues {
		byID[v.ID] = v
	}
	out := make([]domain.CandidateResult, 0, len(matches))
	for _, m := range matches {
		venue, ok := byID[m.VenueID]
		if !ok {
			continue
		}
		out = append(out, domain.CandidateResult{
			Venue:      venue,
			MatchScore: scores[m.VenueID],
			Strategy:   StrategySemantic,
		})
	}
	return out
}

func asCandidates(venues []domain.Venue, strategy string) []domain.CandidateResult {
	out := make([]domain.CandidateResult, 0, len(venues))
	for _, v := range venues {
		out = append(out, domain.CandidateResult{Venue: v, Strategy: strategy})
	}
	return out
}

// dropInvalidAddresses removes venues with an empty or placeholder address.
func dropInvalidAddresses(candidates []domain.CandidateResult) []domain.CandidateResult {
	out := candidates[:0]
	for _, c := range candidates {
		address := strings.TrimSpace(c.Address)
		if address == "" || strings.EqualFold(address, invalidAddressPlaceholder) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// dedupeByID keeps the first occurrence of each venue, preserving order.
func dedupeByID(candidates []domain.CandidateResult) []domain.CandidateResult {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}
