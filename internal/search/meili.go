package search

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxPostsTitle = "atelier_posts_title"
	idxPostsBody  = "atelier_posts_body"
)

// Meili implements PostIndex via two Meilisearch indexes, one searchable on
// title and one on body. Both hold the full post record.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the post indexes.
// An unreachable server is tolerated; the caller falls back to Postgres FTS
// until the health loop observes a recovery.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		searchable []string
	}{
		{uid: idxPostsTitle, searchable: []string{"title"}},
		{uid: idxPostsBody, searchable: []string{"body"}},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: "id",
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}

		index := m.client.Index(idx.uid)
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// SearchTitle queries the title index.
func (m *Meili) SearchTitle(ctx context.Context, query string, limit int) ([]PostRecord, error) {
	return m.searchIndex(ctx, idxPostsTitle, query, limit)
}

// SearchBody queries the body index.
func (m *Meili) SearchBody(ctx context.Context, query string, limit int) ([]PostRecord, error) {
	return m.searchIndex(ctx, idxPostsBody, query, limit)
}

func (m *Meili) searchIndex(ctx context.Context, uid, query string, limit int) ([]PostRecord, error) {
	resp, err := m.client.Index(uid).SearchWithContext(ctx, query, &meili.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, err
	}

	results := make([]PostRecord, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, PostRecord{
			ID:    decodeString(hit, "id"),
			Title: decodeString(hit, "title"),
			Body:  decodeString(hit, "body"),
		})
	}
	return results, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// IndexPost adds or updates a post in both indexes.
func (m *Meili) IndexPost(rec PostRecord) error {
	if _, err := m.client.Index(idxPostsTitle).AddDocuments([]PostRecord{rec}, nil); err != nil {
		return err
	}
	_, err := m.client.Index(idxPostsBody).AddDocuments([]PostRecord{rec}, nil)
	return err
}

// DeletePost removes a post from both indexes.
func (m *Meili) DeletePost(id string) error {
	if _, err := m.client.Index(idxPostsTitle).DeleteDocument(id, nil); err != nil {
		return err
	}
	_, err := m.client.Index(idxPostsBody).DeleteDocument(id, nil)
	return err
}

// IndexPosts bulk-indexes posts into both indexes.
func (m *Meili) IndexPosts(records []PostRecord) error {
	if len(records) == 0 {
		return nil
	}
	if _, err := m.client.Index(idxPostsTitle).AddDocuments(records, nil); err != nil {
		return err
	}
	_, err := m.client.Index(idxPostsBody).AddDocuments(records, nil)
	return err
}
