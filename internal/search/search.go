package search

import "context"

// PostRecord is the data indexed for a post and returned as a search hit.
type PostRecord struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PostIndex exposes the two independent single-field search indexes kept for
// posts. Each query returns hits in the index's own relevance order.
type PostIndex interface {
	SearchTitle(ctx context.Context, query string, limit int) ([]PostRecord, error)
	SearchBody(ctx context.Context, query string, limit int) ([]PostRecord, error)
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []PostRecord `json:"results"`
	Query   string       `json:"query"`
}

// MergedSearch queries the title index first and the body index second,
// deduplicating by post id and capping the result at limit.
//
// Title matches always precede body matches: when the title index alone fills
// the budget the body index is never queried. This means a strictly more
// relevant body match can lose to a weaker title match. That bias is the
// documented tie-break policy of the endpoint, not an accident; both indexes
// are scored independently and no combined ranking exists to compare them.
func MergedSearch(ctx context.Context, idx PostIndex, query string, limit int) ([]PostRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	results := make([]PostRecord, 0, limit)
	seen := make(map[string]struct{}, limit)

	titleHits, err := idx.SearchTitle(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	for _, hit := range titleHits {
		if _, ok := seen[hit.ID]; ok {
			continue
		}
		seen[hit.ID] = struct{}{}
		results = append(results, hit)
		if len(results) == limit {
			break
		}
	}
	if len(results) == limit {
		return results, nil
	}

	bodyHits, err := idx.SearchBody(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	for _, hit := range bodyHits {
		if _, ok := seen[hit.ID]; ok {
			continue
		}
		seen[hit.ID] = struct{}{}
		results = append(results, hit)
		if len(results) == limit {
			break
		}
	}

	return results, nil
}
