// Package docscore is the public facade over the retrieval engine: it
// wires the Chunker, Metadata Extractor, Change Tracker, Dual-Store
// Writer, Hybrid Query Planner, and Metadata Cache into the seven
// operations spec §6 names (`index_paths`, `search`, `retrieve`,
// `get_stats`, `list_sources`, `clear_tech`, `clear_all`) behind one
// type, sitting in front
// of internal/store and internal/search.
package docscore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/config"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/embed"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/index"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/metrics"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/search"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

// metadataCacheFile and checksumFile are the two persisted files spec
// §6 names, both rooted at Config.IndexDir.
const (
	metadataCacheFile = "chunks_metadata.blob"
	checksumFile      = "file_checksums.json"
	queryLogFile      = "search_queries.log"
)

// Stats is the result of GetStats: the three stores' current sizes,
// which should always agree under invariant P1, plus a per-(tech,
// version) chunk count breakdown. It carries no cumulative counters.
type Stats struct {
	KeywordCount  int
	VectorCount   int
	MetadataCount int
	Sources       []store.SourceSummary
}

// Engine is the assembled retrieval core: every public operation holds
// the appropriate permit internally, so callers never see the
// concurrency model of spec §5.
type Engine struct {
	cfg config.Config

	keyword store.KeywordStore
	vector  store.VectorStore
	tracker store.ChangeTracker
	cache   *store.MetadataCache
	permits *index.PermitManager
	embedder embed.Embedder

	writer *index.Writer
	search *search.Engine
	lock   *store.WriteLock

	metrics *metrics.Registry

	queryLogMu sync.Mutex
	queryLog   *os.File
}

// New constructs the full engine from cfg: both stores, the change
// tracker, the embedder, the metadata cache (loaded from disk if
// present), the Dual-Store Writer, and the Hybrid Query Planner. Store
// unavailability or a config error here fails fast (spec §7).
func New(ctx context.Context, cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("docscore: create index dir: %w", err)
	}

	lock := store.NewWriteLock(cfg.IndexDir)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("docscore: acquire index directory lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("docscore: index directory %s is locked by another process", cfg.IndexDir)
	}

	keyword, err := store.NewBleveKeywordStore(filepath.Join(cfg.IndexDir, "keyword"))
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("docscore: keyword store: %w", err)
	}
	if err := keyword.Ping(ctx); err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w: keyword store: %v", store.ErrStoreUnavailable, err)
	}

	vector, err := newVectorStore(ctx, cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	tracker, err := newChangeTracker(cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	embedder, err := embed.NewEmbedder(ctx, embedConfig(cfg))
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("docscore: embedder: %w", err)
	}
	if embedder.Dimensions() != cfg.Embed.Dimension {
		_ = lock.Unlock()
		return nil, store.ErrDimensionMismatch{Expected: cfg.Embed.Dimension, Got: embedder.Dimensions()}
	}

	cache := store.NewMetadataCache()
	cachePath := filepath.Join(cfg.IndexDir, metadataCacheFile)
	if err := cache.Load(cachePath); err != nil {
		slog.Warn("metadata_cache_load_failed", slog.String("error", err.Error()))
	}

	permits := index.NewPermitManager()
	reg := metrics.NewRegistry("docsmcp")

	writer, err := index.NewWriter(index.WriterDeps{
		Keyword:  keyword,
		Vector:   vector,
		Cache:    cache,
		Tracker:  tracker,
		Embedder: embedder,
		Permits:  permits,
		Metrics:  reg,
	}, cachePath, writerConfig(cfg))
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("docscore: writer: %w", err)
	}

	engine, err := search.NewEngine(keyword, vector, embedder, cache, search.EngineConfig{
		KeywordTimeout: time.Duration(cfg.Stores.KeywordTimeout) * time.Second,
		VectorTimeout:  time.Duration(cfg.Stores.VectorTimeout) * time.Second,
	})
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("docscore: search engine: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.IndexDir, queryLogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("docscore: open query log: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		keyword:  keyword,
		vector:   vector,
		tracker:  tracker,
		cache:    cache,
		permits:  permits,
		embedder: embedder,
		writer:   writer,
		search:   engine,
		lock:     lock,
		metrics:  reg,
		queryLog: logFile,
	}, nil
}

func embedConfig(cfg config.Config) embed.Config {
	ec := embed.DefaultConfig()
	ec.CacheSize = cfg.Embed.CacheSize
	switch strings.ToLower(cfg.Embed.Provider) {
	case "static":
		ec.Provider = embed.ProviderStatic
	default:
		ec.Provider = embed.ProviderOllama
		if cfg.Embed.Endpoint != "" {
			ec.Ollama.Host = cfg.Embed.Endpoint
		}
		if cfg.Embed.ModelID != "" {
			ec.Ollama.Model = cfg.Embed.ModelID
		}
	}
	return ec
}

func writerConfig(cfg config.Config) index.WriterConfig {
	wc := index.DefaultWriterConfig()
	if cfg.Writer.BatchSize > 0 {
		wc.BatchSize = cfg.Writer.BatchSize
	}
	if cfg.Chunking.ChunkSizeTokens > 0 {
		wc.ChunkCapacity = cfg.Chunking.ChunkSizeTokens * 4 // ~4 chars/token
	}
	if cfg.Stores.KeywordTimeout > 0 {
		wc.KeywordTimeout = time.Duration(cfg.Stores.KeywordTimeout) * time.Second
	}
	if cfg.Stores.VectorTimeout > 0 {
		wc.VectorTimeout = time.Duration(cfg.Stores.VectorTimeout) * time.Second
	}
	return wc
}

func newVectorStore(ctx context.Context, cfg config.Config) (store.VectorStore, error) {
	switch strings.ToLower(cfg.Stores.VectorBackend) {
	case "qdrant":
		vs, err := store.NewQdrantVectorStore(ctx, cfg.Stores.QdrantAddr, cfg.Stores.VectorCollection, cfg.Embed.Dimension)
		if err != nil {
			return nil, fmt.Errorf("%w: qdrant: %v", store.ErrStoreUnavailable, err)
		}
		return vs, nil
	default:
		vs, err := store.NewHNSWVectorStore(cfg.Embed.Dimension)
		if err != nil {
			return nil, fmt.Errorf("docscore: hnsw vector store: %w", err)
		}
		hnswPath := filepath.Join(cfg.IndexDir, "vectors.blob")
		if err := vs.Load(hnswPath); err != nil {
			slog.Warn("vector_store_load_failed", slog.String("error", err.Error()))
		}
		return vs, nil
	}
}

func newChangeTracker(cfg config.Config) (store.ChangeTracker, error) {
	switch strings.ToLower(cfg.Stores.ChangeTrackerBackend) {
	case "redis":
		addr := cfg.Stores.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{Addr: addr})
		return store.NewRedisChangeTracker(client), nil
	default:
		t, err := store.NewJSONChangeTracker(filepath.Join(cfg.IndexDir, checksumFile), 10)
		if err != nil {
			return nil, fmt.Errorf("docscore: change tracker: %w", err)
		}
		return t, nil
	}
}

// IndexPaths implements the index_paths public operation (spec §4.4).
func (e *Engine) IndexPaths(ctx context.Context, paths []string, force bool, progress index.ProgressFunc) (index.Stats, error) {
	stats, err := e.writer.IndexPaths(ctx, paths, force, progress)
	if e.vector != nil {
		if persisted, ok := e.vector.(interface{ Save(string) error }); ok {
			if perr := persisted.Save(filepath.Join(e.cfg.IndexDir, "vectors.blob")); perr != nil {
				slog.Warn("vector_store_persist_failed", slog.String("error", perr.Error()))
			}
		}
	}
	return stats, err
}

// Search implements the search public operation (spec §4.5), logging
// one line per query to search_queries.log (spec §6) and recording
// query-latency metrics (SUPPLEMENTED FEATURE #4). The read permit is
// held for the duration of the search so readers see a consistent view
// through the cache pointer for the whole call, not just at acquire
// time (spec §5).
func (e *Engine) Search(ctx context.Context, query string, opts search.SearchOptions) ([]search.SearchResult, error) {
	if err := e.permits.AcquireRead(ctx); err != nil {
		return nil, err
	}
	defer e.permits.ReleaseRead()

	start := time.Now()
	results, err := e.search.Search(ctx, query, opts)
	duration := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if e.metrics != nil {
		e.metrics.RecordQuery("search", status, duration, len(results))
	}
	e.logQuery(query, opts, len(results))
	return results, err
}

// logQuery appends one line to search_queries.log in the documented
// format: `ISO8601 | query='…' | filters=… | results=N`.
func (e *Engine) logQuery(query string, opts search.SearchOptions, resultCount int) {
	e.queryLogMu.Lock()
	defer e.queryLogMu.Unlock()
	if e.queryLog == nil {
		return
	}
	line := fmt.Sprintf("%s | query=%q | filters=%+v | results=%d\n",
		time.Now().UTC().Format(time.RFC3339), query, opts.Filters, resultCount)
	if _, err := e.queryLog.WriteString(line); err != nil {
		slog.Warn("query_log_write_failed", slog.String("error", err.Error()))
	}
}

// Retrieve implements the retrieve public operation (spec §6): fetches
// a single chunk by id directly from the Metadata Cache. A Not-found
// condition returns store.ErrNotFound, never a panic (spec §7).
func (e *Engine) Retrieve(ctx context.Context, chunkID string) (store.DocumentChunk, error) {
	if err := e.permits.AcquireRead(ctx); err != nil {
		return store.DocumentChunk{}, err
	}
	defer e.permits.ReleaseRead()
	return e.cache.Get(chunkID)
}

// GetStats implements the get_stats public operation (spec §6): the
// three stores' sizes (which agree under P1 after any successful
// top-level operation) plus a tech/version breakdown.
func (e *Engine) GetStats(ctx context.Context) (Stats, error) {
	if err := e.permits.AcquireRead(ctx); err != nil {
		return Stats{}, err
	}
	defer e.permits.ReleaseRead()

	keywordCount, err := e.keyword.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("get_stats: keyword count: %w", err)
	}
	vectorCount, err := e.vector.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("get_stats: vector count: %w", err)
	}
	metaCount := e.cache.Count()
	if e.metrics != nil {
		e.metrics.SetStoreSizes(keywordCount, vectorCount, metaCount)
	}
	return Stats{
		KeywordCount:  keywordCount,
		VectorCount:   vectorCount,
		MetadataCount: metaCount,
		Sources:       e.cache.ListSources(),
	}, nil
}

// ListSources implements the list_sources public operation (spec §6).
func (e *Engine) ListSources(ctx context.Context) ([]store.SourceSummary, error) {
	if err := e.permits.AcquireRead(ctx); err != nil {
		return nil, err
	}
	defer e.permits.ReleaseRead()
	return e.cache.ListSources(), nil
}

// ClearTech implements the clear_tech public operation (spec §4.4).
func (e *Engine) ClearTech(ctx context.Context, tech string) error {
	return e.writer.ClearTech(ctx, tech)
}

// ClearAll implements the clear_all public operation (spec §4.4).
func (e *Engine) ClearAll(ctx context.Context) error {
	if err := e.writer.ClearAll(ctx); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(e.cfg.IndexDir, "vectors.blob")); err != nil && !os.IsNotExist(err) {
		slog.Warn("clear_all_vector_blob_remove_failed", slog.String("error", err.Error()))
	}
	return nil
}

// RemovePath exposes the writer's file-removal path for adapters such
// as internal/watcher that observe a deletion event directly rather
// than discovering it via a reindex's own enumeration.
func (e *Engine) RemovePath(ctx context.Context, path string) error {
	return e.writer.RemovePath(ctx, path)
}

// Close flushes the query log, releases the index-directory lock, and
// closes both stores' file handles.
func (e *Engine) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	e.queryLogMu.Lock()
	if e.queryLog != nil {
		record(e.queryLog.Close())
	}
	e.queryLogMu.Unlock()

	record(e.keyword.Close())
	record(e.vector.Close())
	record(e.tracker.Close())
	record(e.embedder.Close())
	record(e.lock.Unlock())
	return firstErr
}
