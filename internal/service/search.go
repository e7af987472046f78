package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rentchat/internal/filter"
	"rentchat/internal/model"
)

// PropertyStore is the property search backend
type PropertyStore interface {
	SearchProperties(ctx context.Context, f *filter.Filter, embedding []float32, limit, offset int) ([]model.Property, int, error)
	GetPropertyByID(ctx context.Context, id int64) (*model.Property, error)
	PropertiesMissingEmbedding(ctx context.Context, limit int) ([]model.Property, error)
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
	LogSearch(ctx context.Context, entry model.SearchLogEntry) error
}

// SearchService applies sanitized filters to the property store
type SearchService struct {
	repo     PropertyStore
	embedder Embedder
	ranker   *Ranker
	logger   *slog.Logger
}

// NewSearchService creates a new search service. embedder may be nil.
func NewSearchService(repo PropertyStore, embedder Embedder, ranker *Ranker, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		repo:     repo,
		embedder: embedder,
		ranker:   ranker,
		logger:   logger.With("component", "search"),
	}
}

// Search runs one page of a property search for f. f must already be
// sanitized; a nil filter lists all available properties.
func (s *SearchService) Search(ctx context.Context, source string, f *filter.Filter, opts model.SearchOptions) (*model.SearchResponse, error) {
	startTime := time.Now()

	embedding := s.embedSearchText(ctx, f)

	properties, total, err := s.repo.SearchProperties(ctx, f, embedding, opts.TopK, opts.Offset)
	if err != nil {
		return nil, err
	}

	results := s.ranker.RankResults(properties, f)
	took := time.Since(startTime).Milliseconds()

	// Logged without blocking the response
	go func() {
		ids := make([]int64, len(results))
		for i, r := range results {
			ids[i] = r.ID
		}
		logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.repo.LogSearch(logCtx, model.SearchLogEntry{
			Source:         source,
			Filter:         f,
			ResultCount:    total,
			PropertyIDs:    ids,
			ResponseTimeMs: took,
		})
		if err != nil {
			s.logger.Warn("failed to log search", "error", err)
		}
	}()

	resp := &model.SearchResponse{
		Results:  results,
		Total:    total,
		PageSize: opts.TopK,
		Filter:   f,
		Took:     took,
	}
	if opts.TopK > 0 {
		resp.Page = opts.Offset/opts.TopK + 1
		resp.TotalPages = (total + opts.TopK - 1) / opts.TopK
	}
	resp.HasMore = opts.Offset+len(results) < total

	return resp, nil
}

// embedSearchText returns an embedding of f.Search for semantic ordering,
// or nil to fall back to full-text ranking.
func (s *SearchService) embedSearchText(ctx context.Context, f *filter.Filter) []float32 {
	if f == nil || f.Search == nil || s.embedder == nil || !s.embedder.EmbeddingsEnabled() {
		return nil
	}

	embeddings, err := s.embedder.CreateEmbeddings(ctx, []string{*f.Search})
	if err != nil || len(embeddings) == 0 {
		s.logger.Warn("embedding search text failed, using full-text ranking", "error", err)
		return nil
	}
	return embeddings[0]
}

// GetProperty retrieves a single property by ID
func (s *SearchService) GetProperty(ctx context.Context, id int64) (*model.Property, error) {
	return s.repo.GetPropertyByID(ctx, id)
}

// RefreshEmbeddings embeds up to limit properties that have no vector yet
func (s *SearchService) RefreshEmbeddings(ctx context.Context, limit int) (*model.EmbeddingRefreshResponse, error) {
	if s.embedder == nil || !s.embedder.EmbeddingsEnabled() {
		return nil, fmt.Errorf("embeddings are not enabled")
	}

	properties, err := s.repo.PropertiesMissingEmbedding(ctx, limit)
	if err != nil {
		return nil, err
	}

	resp := &model.EmbeddingRefreshResponse{Scanned: len(properties)}
	if len(properties) == 0 {
		return resp, nil
	}

	texts := make([]string, len(properties))
	for i, p := range properties {
		texts[i] = embeddingText(p)
	}

	embeddings, err := s.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	items := make([]model.EmbeddingItem, len(properties))
	for i, p := range properties {
		items[i] = model.EmbeddingItem{PropertyID: p.ID, Embedding: embeddings[i]}
	}

	resp.Updated, resp.Errors = s.repo.BatchUpdateEmbeddings(ctx, items)
	resp.Failed = len(items) - resp.Updated

	s.logger.Info("embeddings refreshed", "scanned", resp.Scanned, "updated", resp.Updated, "failed", resp.Failed)
	return resp, nil
}

// embeddingText is the text a property is embedded from
func embeddingText(p model.Property) string {
	parts := []string{p.Title}
	for _, s := range []*string{p.PropertyType, p.Location, p.Description} {
		if s != nil && *s != "" {
			parts = append(parts, *s)
		}
	}
	if len(p.Amenities) > 0 {
		parts = append(parts, "Amenities: "+strings.Join(p.Amenities, ", "))
	}
	return strings.Join(parts, "\n")
}
