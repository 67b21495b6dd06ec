package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
)

// bleveDocument is the document shape indexed into bleve. Field names
// match the mapping required by spec §6: chunk_id keyword, content text,
// tech/version/file_type keyword, component/topic text, timestamp date.
type bleveDocument struct {
	ChunkID   string    `json:"chunk_id"`
	Content   string    `json:"content"`
	Topic     string    `json:"topic"`
	Component string    `json:"component"`
	Tech      string    `json:"tech"`
	Version   string    `json:"version"`
	FileType  string    `json:"file_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BleveKeywordStore implements KeywordStore using bleve (BM25).
type BleveKeywordStore struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// NewBleveKeywordStore opens or creates a bleve index at path. An empty
// path creates an in-memory index (used by tests). A corrupt on-disk
// index is detected and recreated empty, logged as a supplemented
// resilience feature (SPEC_FULL.md §Supplemented Features #3).
func NewBleveKeywordStore(path string) (*BleveKeywordStore, error) {
	mapping, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("build bleve mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create keyword store directory: %w", mkErr)
		}
		if validErr := validateIndexIntegrity(path); validErr != nil {
			slog.Warn("keyword_store_corrupted", slog.String("path", path), slog.String("error", validErr.Error()))
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, fmt.Errorf("keyword store corrupted and cannot clear: %w", rmErr)
			}
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open keyword store: %w", err)
	}

	return &BleveKeywordStore{index: idx, path: path}, nil
}

func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json empty")
	}
	return nil
}

func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = "keyword"

	textField := bleve.NewTextFieldMapping()

	dateField := bleve.NewDateTimeFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("chunk_id", keywordField)
	doc.AddFieldMappingsAt("content", textField)
	doc.AddFieldMappingsAt("topic", textField)
	doc.AddFieldMappingsAt("component", textField)
	doc.AddFieldMappingsAt("tech", keywordField)
	doc.AddFieldMappingsAt("version", keywordField)
	doc.AddFieldMappingsAt("file_type", keywordField)
	doc.AddFieldMappingsAt("timestamp", dateField)

	im.AddDocumentMapping("_default", doc)
	return im, nil
}

// CreateIndex is a no-op for bleve: the index is created at construction
// time by NewBleveKeywordStore. Present to satisfy the §6 contract for
// backends that separate creation from open.
func (b *BleveKeywordStore) CreateIndex(_ context.Context, _ string) error { return nil }

// Bulk applies upserts and deletes in a single bleve batch.
func (b *BleveKeywordStore) Bulk(ctx context.Context, upserts []DocumentChunk, deletes []string, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("keyword store is closed")
	}

	batch := b.index.NewBatch()
	for _, c := range upserts {
		doc := bleveDocument{
			ChunkID: c.ChunkID, Content: c.Content, Topic: c.Topic,
			Component: c.Component, Tech: c.Tech, Version: c.Version,
			FileType: c.FileType, Timestamp: c.Timestamp,
		}
		if err := batch.Index(c.ChunkID, doc); err != nil {
			return fmt.Errorf("index document %s: %w", c.ChunkID, err)
		}
	}
	for _, id := range deletes {
		batch.Delete(id)
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("execute bleve batch: %w", err)
	}
	return nil
}

// Search performs a multi_match-equivalent query over (content^2,
// topic^1.5, component^1.0) with term constraints for tech/version/
// file_type and a substring-tolerant match on component (spec §4.5).
func (b *BleveKeywordStore) Search(ctx context.Context, queryStr string, filters Filters, size int) ([]KeywordHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("keyword store is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return []KeywordHit{}, nil
	}

	disjunct := bleve.NewDisjunctionQuery()
	contentQ := bleve.NewMatchQuery(queryStr)
	contentQ.SetField("content")
	contentQ.SetBoost(2.0)
	disjunct.AddQuery(contentQ)

	topicQ := bleve.NewMatchQuery(queryStr)
	topicQ.SetField("topic")
	topicQ.SetBoost(1.5)
	disjunct.AddQuery(topicQ)

	componentQ := bleve.NewMatchQuery(queryStr)
	componentQ.SetField("component")
	componentQ.SetBoost(1.0)
	disjunct.AddQuery(componentQ)

	var finalQuery bleveQuery.Query = disjunct
	if !filters.Empty() {
		conj := bleve.NewConjunctionQuery(disjunct)
		if filters.Tech != "" {
			conj.AddQuery(termFilter("tech", filters.Tech))
		}
		if filters.Version != "" {
			conj.AddQuery(termFilter("version", filters.Version))
		}
		if filters.FileType != "" {
			conj.AddQuery(termFilter("file_type", filters.FileType))
		}
		if filters.Component != "" {
			cq := bleve.NewMatchQuery(filters.Component)
			cq.SetField("component")
			conj.AddQuery(cq)
		}
		finalQuery = conj
	}

	req := bleve.NewSearchRequest(finalQuery)
	req.Size = size
	req.IncludeLocations = true

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	hits := make([]KeywordHit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, KeywordHit{
			ChunkID:      h.ID,
			Score:        h.Score,
			MatchedTerms: extractMatchedTerms(h),
		})
	}
	return hits, nil
}

func termFilter(field, value string) bleveQuery.Query {
	tq := bleve.NewTermQuery(value)
	tq.SetField(field)
	return tq
}

func extractMatchedTerms(hit *search.DocumentMatch) []string {
	seen := make(map[string]struct{})
	for field, locs := range hit.Locations {
		if field != "content" {
			continue
		}
		for term := range locs {
			seen[term] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	return terms
}

// DeleteByID removes documents by chunk id.
func (b *BleveKeywordStore) DeleteByID(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("keyword store is closed")
	}
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

// Count returns the number of documents in the index.
func (b *BleveKeywordStore) Count(_ context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, fmt.Errorf("keyword store is closed")
	}
	n, err := b.index.DocCount()
	return int(n), err
}

// Ping checks the store is reachable/usable (fail-fast construction
// contract, spec §7).
func (b *BleveKeywordStore) Ping(_ context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed || b.index == nil {
		return ErrStoreUnavailable
	}
	_, err := b.index.DocCount()
	return err
}

// Close releases the index.
func (b *BleveKeywordStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

var _ KeywordStore = (*BleveKeywordStore)(nil)
