package search

import (
	"context"
	"database/sql"
	"fmt"
)

// PgFTS implements PostIndex using PostgreSQL full-text search as a fallback
// when Meilisearch is not available.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// SearchTitle queries the generated title tsvector, ranked by ts_rank.
func (p *PgFTS) SearchTitle(ctx context.Context, query string, limit int) ([]PostRecord, error) {
	return p.search(ctx, "title_fts", query, limit)
}

// SearchBody queries the generated body tsvector, ranked by ts_rank.
func (p *PgFTS) SearchBody(ctx context.Context, query string, limit int) ([]PostRecord, error) {
	return p.search(ctx, "body_fts", query, limit)
}

func (p *PgFTS) search(ctx context.Context, column, query string, limit int) ([]PostRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, title, body
		FROM posts
		WHERE %s @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(%s, plainto_tsquery('english', $1)) DESC
		LIMIT $2
	`, column, column), query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	results := make([]PostRecord, 0)
	for rows.Next() {
		var r PostRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.Body); err != nil {
			return nil, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// LoadAllRecords returns all posts for full reindexing into Meilisearch.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]PostRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, title, body FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	defer rows.Close()

	records := make([]PostRecord, 0)
	for rows.Next() {
		var r PostRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.Body); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
