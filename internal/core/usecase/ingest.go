package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"

	"github.com/hanoigo/assistant/internal/core/domain"
	"github.com/hanoigo/assistant/internal/core/ports"
)

// CacheNamespaceSearch caches final assist results; ingestion invalidates it.
const CacheNamespaceSearch = "search"

// TextSplitter size-splits text that could not be decomposed into
// propositions. Satisfied by chunking.Splitter.
type TextSplitter interface {
	Split(text string) []string
}

type IngestConfig struct {
	// Concurrency is the proposition fan-out per batch.
	Concurrency int
	// MinPropositionRunes is the text length below which a document is
	// already atomic and skips the LLM call.
	MinPropositionRunes int
}

func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Concurrency:         20,
		MinPropositionRunes: 300,
	}
}

func (c IngestConfig) normalize() IngestConfig {
	def := DefaultIngestConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.MinPropositionRunes <= 0 {
		c.MinPropositionRunes = def.MinPropositionRunes
	}
	return c
}

// IngestUseCase turns venue descriptions into proposition chunks and pushes
// them into the vector index. One document's failure never aborts a batch;
// it degrades to a single raw chunk.
type IngestUseCase struct {
	catalog   ports.CatalogStore
	extractor ports.PropositionExtractor
	splitter  TextSplitter
	embedder  ports.Embedder
	vector    ports.VectorIndex
	cache     ports.Cache
	cfg       IngestConfig
	logger    *slog.Logger

	// OnIndexed, when set, is invoked after a venue is successfully indexed.
	// Used for worker-side metrics.
	OnIndexed func(venueID string, chunkCount int)
}

func NewIngestUseCase(
	catalog ports.CatalogStore,
	extractor ports.PropositionExtractor,
	splitter TextSplitter,
	embedder ports.Embedder,
	vector ports.VectorIndex,
	cache ports.Cache,
	cfg IngestConfig,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		catalog:   catalog,
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		vector:    vector,
		cache:     cache,
		cfg:       cfg.normalize(),
		logger:    logger.With("component", "ingest"),
	}
}

// IngestByID runs the full pipeline for one venue: load, split, embed, index.
func (uc *IngestUseCase) IngestByID(ctx context.Context, venueID string) error {
	venue, err := uc.catalog.GetByID(ctx, venueID)
	if err != nil {
		return fmt.Errorf("fetch venue by id: %w", err)
	}

	doc := buildVenueDocument(venue)
	chunks := uc.SplitDocuments(ctx, []domain.VenueDocument{doc})
	if len(chunks) == 0 {
		uc.logger.Info("venue_has_no_indexable_text", "venue_id", venueID)
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	// Clear the venue's previous points first so a reindex replaces them
	// instead of accumulating stale propositions alongside the new ones.
	if err := uc.vector.DeleteVenue(ctx, venueID); err != nil {
		return fmt.Errorf("delete stale venue chunks: %w", err)
	}
	if err := uc.vector.UpsertChunks(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("index chunks in vector db: %w", err)
	}

	if uc.cache != nil {
		uc.cache.Clear(ctx, CacheNamespaceSearch)
	}

	if uc.OnIndexed != nil {
		uc.OnIndexed(venueID, len(chunks))
	}
	uc.logger.Info("venue_indexed", "venue_id", venueID, "chunks", len(chunks))
	return nil
}

// SplitDocuments decomposes a batch of venue documents into chunks with a
// bounded fan-out. Output order follows input order regardless of which
// document finishes first.
func (uc *IngestUseCase) SplitDocuments(ctx context.Context, docs []domain.VenueDocument) []domain.Chunk {
	if len(docs) == 0 {
		return nil
	}

	perDoc := make([][]domain.Chunk, len(docs))

	pool, err := ants.NewPool(uc.cfg.Concurrency)
	if err != nil {
		// Degrade to sequential splitting rather than failing the batch.
		uc.logger.Warn("worker_pool_unavailable", "error", err)
		for i, doc := range docs {
			perDoc[i] = uc.splitOne(ctx, doc)
		}
		return flattenChunks(perDoc)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, doc := range docs {
		i, doc := i, doc
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			perDoc[i] = uc.splitOne(ctx, doc)
		})
		if submitErr != nil {
			perDoc[i] = uc.splitOne(ctx, doc)
			wg.Done()
		}
	}
	wg.Wait()

	return flattenChunks(perDoc)
}

func (uc *IngestUseCase) splitOne(ctx context.Context, doc domain.VenueDocument) []domain.Chunk {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil
	}

	if utf8.RuneCountInString(text) < uc.cfg.MinPropositionRunes {
		return []domain.Chunk{rawChunk(doc, text)}
	}

	propositions, err := uc.extractor.ExtractPropositions(ctx, doc.Name, text)
	if err != nil || len(propositions) == 0 {
		if err != nil {
			uc.logger.Warn("proposition_extraction_failed",
				"venue_id", doc.VenueID,
				"error", err,
			)
		}
		return uc.rawFallback(doc, text)
	}

	chunks := make([]domain.Chunk, 0, len(propositions))
	for i, prop := range propositions {
		chunks = append(chunks, domain.Chunk{
			VenueID:       doc.VenueID,
			VenueName:     doc.Name,
			District:      doc.District,
			Category:      doc.Category,
			Text:          prop,
			IsProposition: true,
			PropIndex:     i,
		})
	}
	return chunks
}

// rawFallback indexes the text unsplit, or in size windows when a splitter is
// wired and the text is long.
func (uc *IngestUseCase) rawFallback(doc domain.VenueDocument, text string) []domain.Chunk {
	if uc.splitter == nil {
		return []domain.Chunk{rawChunk(doc, text)}
	}
	pieces := uc.splitter.Split(text)
	if len(pieces) == 0 {
		return nil
	}
	out := make([]domain.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		out = append(out, rawChunk(doc, piece))
	}
	return out
}

func rawChunk(doc domain.VenueDocument, text string) domain.Chunk {
	return domain.Chunk{
		VenueID:   doc.VenueID,
		VenueName: doc.Name,
		District:  doc.District,
		Category:  doc.Category,
		Text:      text,
	}
}

func flattenChunks(perDoc [][]domain.Chunk) []domain.Chunk {
	var out []domain.Chunk
	for _, chunks := range perDoc {
		out = append(out, chunks...)
	}
	return out
}

// buildVenueDocument assembles the indexable text for a venue: description
// plus tag lists, so tag-only venues still get a semantic footprint.
func buildVenueDocument(venue *domain.Venue) domain.VenueDocument {
	var sb strings.Builder
	sb.WriteString(venue.Description)
	if tags := venue.Tags.All(); len(tags) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(tags, ", "))
	}
	return domain.VenueDocument{
		VenueID:  venue.ID,
		Name:     venue.Name,
		District: venue.District,
		Category: venue.Category,
		Text:     sb.String(),
	}
}
