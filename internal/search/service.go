package search

import (
	"context"
	"log"
	"strings"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is not
// configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// SearchPosts runs the merged title-then-body search against the healthiest
// backend available.
func (s *Service) SearchPosts(ctx context.Context, query string, limit int) (Response, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Response{Results: []PostRecord{}, Query: trimmed}, nil
	}

	if s.meili != nil && s.meili.Healthy() {
		results, err := MergedSearch(ctx, s.meili, trimmed, limit)
		if err == nil {
			return Response{Results: results, Query: trimmed}, nil
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, err := MergedSearch(ctx, s.pgfts, trimmed, limit)
	if err != nil {
		return Response{}, err
	}
	return Response{Results: results, Query: trimmed}, nil
}

// IndexPost indexes a post (fire-and-forget to Meilisearch).
func (s *Service) IndexPost(rec PostRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPost(rec); err != nil {
			log.Printf("search: index post %s: %v", rec.ID, err)
		}
	}()
}

// RemovePost removes a post from the search indexes (fire-and-forget).
func (s *Service) RemovePost(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePost(id); err != nil {
			log.Printf("search: delete post %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG reindexes every post from PostgreSQL into Meilisearch.
// Called during bootstrap so a fresh Meilisearch instance catches up.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	records, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexPosts(records); err != nil {
		log.Printf("search: reindex posts: %v", err)
	}
}
