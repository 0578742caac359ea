package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hanoigo/assistant/internal/core/domain"
	"github.com/hanoigo/assistant/internal/geo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCatalog is a small in-memory catalog with the same matching semantics
// the SQL store implements.
type fakeCatalog struct {
	mu     sync.Mutex
	venues []domain.Venue

	failKeyword bool
	failNearby  bool

	keywordQueries []string
	addressQueries []string
	nearbyQueries  int
	lastFilter     domain.RetrievalFilter
}

func (f *fakeCatalog) matchesFilter(v domain.Venue, filter domain.RetrievalFilter) bool {
	if filter.District != "" && v.District != filter.District {
		return false
	}
	if filter.IsDating {
		if v.Category == "Lưu trú" || strings.Contains(strings.ToLower(v.Name), "nhà nghỉ") {
			return false
		}
	}
	return true
}

func (f *fakeCatalog) SearchByKeyword(_ context.Context, keyword string, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywordQueries = append(f.keywordQueries, keyword)
	f.lastFilter = filter
	if f.failKeyword {
		return nil, errors.New("catalog unavailable")
	}

	kw := strings.ToLower(keyword)
	var out []domain.Venue
	for _, v := range f.venues {
		if !f.matchesFilter(v, filter) {
			continue
		}
		haystack := strings.ToLower(strings.Join(append([]string{
			v.Name, v.Address, v.Description, v.Category,
		}, v.Tags.All()...), " "))
		if strings.Contains(haystack, kw) {
			out = append(out, v)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) SearchByTags(_ context.Context, tags []string, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter

	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[strings.ToLower(t)] = struct{}{}
	}
	var out []domain.Venue
	for _, v := range f.venues {
		if !f.matchesFilter(v, filter) {
			continue
		}
		for _, tag := range v.Tags.All() {
			if _, ok := want[strings.ToLower(tag)]; ok {
				out = append(out, v)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) SearchByAddress(_ context.Context, fragment string, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addressQueries = append(f.addressQueries, fragment)

	frag := strings.ToLower(fragment)
	var out []domain.Venue
	for _, v := range f.venues {
		if !f.matchesFilter(v, filter) {
			continue
		}
		if strings.Contains(strings.ToLower(v.Address), frag) {
			out = append(out, v)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) SearchNearby(_ context.Context, center domain.Coordinates, radiusKm float64, filter domain.RetrievalFilter, limit int) ([]domain.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nearbyQueries++
	f.lastFilter = filter
	if f.failNearby {
		return nil, errors.New("catalog unavailable")
	}

	var out []domain.Venue
	for _, v := range f.venues {
		if !f.matchesFilter(v, filter) || v.Location == nil {
			continue
		}
		if geo.HaversineKm(center.Lat, center.Lng, v.Location.Lat, v.Location.Lng) <= radiusKm {
			out = append(out, v)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*domain.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.venues {
		if v.ID == id {
			v := v
			return &v, nil
		}
	}
	return nil, domain.ErrVenueNotFound
}

func (f *fakeCatalog) GetByIDs(_ context.Context, ids []string) ([]domain.Venue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Venue
	for _, id := range ids {
		for _, v := range f.venues {
			if v.ID == id {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

type fakeVector struct {
	matches []domain.VenueMatch
	err     error

	mu       sync.Mutex
	upserted []domain.Chunk
	points   map[string][]domain.Chunk
	deleted  []string
}

func (f *fakeVector) Search(context.Context, []float32, int, domain.RetrievalFilter) ([]domain.VenueMatch, error) {
	return f.matches, f.err
}

func (f *fakeVector) UpsertChunks(_ context.Context, chunks []domain.Chunk, _ [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, chunks...)
	if f.points == nil {
		f.points = make(map[string][]domain.Chunk)
	}
	for _, chunk := range chunks {
		f.points[chunk.VenueID] = append(f.points[chunk.VenueID], chunk)
	}
	return nil
}

func (f *fakeVector) DeleteVenue(_ context.Context, venueID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, venueID)
	delete(f.points, venueID)
	return nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type fakeExtractor struct {
	propositions []string
	err          error

	mu    sync.Mutex
	calls int
}

func (f *fakeExtractor) ExtractPropositions(context.Context, string, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.propositions, f.err
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCache is a permissive in-memory ports.Cache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]domain.CandidateResult
	cleared []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]domain.CandidateResult{}}
}

func (f *fakeCache) Get(_ context.Context, namespace string, key any, dest any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	cached, ok := f.entries[cacheKeyString(namespace, key)]
	if !ok {
		return false
	}
	if out, ok := dest.(*[]domain.CandidateResult); ok {
		*out = cached
		return true
	}
	return false
}

func (f *fakeCache) Set(_ context.Context, namespace string, key any, value any, _ time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if candidates, ok := value.([]domain.CandidateResult); ok {
		f.entries[cacheKeyString(namespace, key)] = candidates
		return true
	}
	return false
}

func (f *fakeCache) Delete(_ context.Context, namespace string, key any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, cacheKeyString(namespace, key))
	return true
}

func (f *fakeCache) Clear(_ context.Context, namespace string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, namespace)
	for k := range f.entries {
		if strings.HasPrefix(k, namespace+":") {
			delete(f.entries, k)
		}
	}
	return true
}

func (f *fakeCache) HealthCheck(context.Context) error { return nil }

func cacheKeyString(namespace string, key any) string {
	if s, ok := key.(string); ok {
		return namespace + ":" + s
	}
	if k, ok := key.(assistCacheKey); ok {
		return namespace + ":" + k.Query
	}
	return namespace + ":struct"
}
