package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/chunk"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/embed"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/metadata"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

const (
	keywordSubBatchSize = 500
	embedSubBatchSize   = 50
	vectorSubBatchSize  = 100
	interSubBatchDelay  = 100 * time.Millisecond
)

// WriterConfig tunes the Dual-Store Writer (spec §4.4, §6).
type WriterConfig struct {
	// BatchSize is B, the pending-batch flush threshold (default 100).
	BatchSize int

	// ChunkCapacity is the Chunker's target characters per chunk.
	ChunkCapacity int

	// KeywordTimeout/VectorTimeout bound each sub-batch RPC (spec §5).
	KeywordTimeout time.Duration
	VectorTimeout  time.Duration
}

// DefaultWriterConfig returns the documented defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:      100,
		ChunkCapacity:  chunk.DefaultCapacity,
		KeywordTimeout: 60 * time.Second,
		VectorTimeout:  5 * time.Second,
	}
}

// MetricsRecorder receives counters the Dual-Store Writer emits, kept as
// a narrow interface so internal/metrics can implement it without this
// package depending on Prometheus directly (SPEC_FULL.md Supplemented
// Feature #4). A nil recorder is valid; every call site nil-checks.
type MetricsRecorder interface {
	IncFilesProcessed(n int)
	IncFilesUpdated(n int)
	IncChunksAdded(n int)
	IncChunksRemoved(n int)
	IncErrors(n int)
	ObserveIndexDuration(d time.Duration)
}

// WriterDeps are the injected collaborators of a Writer.
type WriterDeps struct {
	Keyword  store.KeywordStore
	Vector   store.VectorStore
	Cache    *store.MetadataCache
	Tracker  store.ChangeTracker
	Embedder embed.Embedder
	Permits  *PermitManager
	Metrics  MetricsRecorder // optional
}

// Writer is the Dual-Store Writer (spec §4.4): it is the only component
// permitted to mutate the keyword store, the vector store, the
// persisted change-tracker state, and the Metadata Cache.
type Writer struct {
	keyword  store.KeywordStore
	vector   store.VectorStore
	cache    *store.MetadataCache
	tracker  store.ChangeTracker
	embedder embed.Embedder
	permits  *PermitManager
	metrics  MetricsRecorder
	chunker  *chunk.Dispatcher
	mem      memorySampler
	cfg      WriterConfig

	cachePath string

	batchMu   sync.Mutex
	batchSize int // current B, mutated under memory pressure
}

// NewWriter validates deps and constructs a Writer. cachePath is where
// the Metadata Cache blob is persisted (spec §4.6).
func NewWriter(deps WriterDeps, cachePath string, cfg WriterConfig) (*Writer, error) {
	if deps.Keyword == nil || deps.Vector == nil || deps.Cache == nil ||
		deps.Tracker == nil || deps.Embedder == nil || deps.Permits == nil {
		return nil, fmt.Errorf("index: all writer dependencies are required")
	}
	if cfg.BatchSize <= 0 {
		cfg = DefaultWriterConfig()
	}
	return &Writer{
		keyword:   deps.Keyword,
		vector:    deps.Vector,
		cache:     deps.Cache,
		tracker:   deps.Tracker,
		embedder:  deps.Embedder,
		permits:   deps.Permits,
		metrics:   deps.Metrics,
		chunker:   chunk.NewDispatcher(cfg.ChunkCapacity),
		mem:       newMemorySampler(),
		cfg:       cfg,
		cachePath: cachePath,
		batchSize: cfg.BatchSize,
	}, nil
}

// session is the unit of rollback atomicity for one index_paths call
// (spec §9 Glossary: "Session"): every chunk_id built during the call,
// whether or not its batch has been flushed yet.
type session struct {
	chunkIDs []string
}

// IndexPaths implements the index_paths operation (spec §4.4).
func (w *Writer) IndexPaths(ctx context.Context, paths []string, force bool, progress ProgressFunc) (Stats, error) {
	if err := w.permits.AcquireWrite(ctx); err != nil {
		return Stats{}, err
	}
	defer w.permits.ReleaseWrite()

	start := time.Now()
	var stats Stats
	sess := &session{}

	files, err := ScanPaths(paths, ScanOptions{RespectGitignore: true})
	if err != nil {
		return stats, fmt.Errorf("index_paths: enumerate paths: %w", err)
	}

	rollbackAndFail := func(cause error) (Stats, error) {
		w.rollbackSession(context.Background(), sess)
		stats.Duration = time.Since(start)
		w.recordMetrics(stats)
		return stats, fmt.Errorf("index_paths: rolled back session after error: %w", cause)
	}

	var pending []store.DocumentChunk

	for i, absPath := range files {
		select {
		case <-ctx.Done():
			return rollbackAndFail(ctx.Err())
		default:
		}

		progress.report(ProgressEvent{Stage: StageScanning, CurrentFile: absPath, FilesDone: i, FilesTotal: len(files)})

		content, readErr := os.ReadFile(absPath)
		if readErr != nil {
			stats.Errors++
			continue
		}

		changed, trackErr := w.tracker.HasChanged(ctx, absPath, content)
		if trackErr != nil {
			stats.Errors++
			continue
		}
		if !changed && !force {
			continue
		}

		if existing := w.cache.ChunksForPath(absPath); len(existing) > 0 {
			w.bestEffortDelete(ctx, existing)
			w.cache.Delete(existing)
			stats.ChunksRemoved += len(existing)
			stats.FilesUpdated++
		}

		newChunks, buildErr := w.buildChunks(ctx, absPath, content)
		if buildErr != nil {
			stats.Errors++
			continue
		}

		for _, c := range newChunks {
			sess.chunkIDs = append(sess.chunkIDs, c.ChunkID)
		}
		pending = append(pending, newChunks...)
		stats.FilesProcessed++
		stats.ChunksAdded += len(newChunks)

		if err := w.tracker.Record(ctx, absPath, content); err != nil {
			slog.Warn("change_tracker_record_failed", slog.String("path", absPath), slog.String("error", err.Error()))
		}

		underPressure := w.mem.underPressure()
		w.adjustBatchSize(underPressure)

		if len(pending) >= w.currentBatchSize() || underPressure {
			progress.report(ProgressEvent{Stage: StageFlushing, FilesDone: i + 1, FilesTotal: len(files)})
			if err := w.flushBatch(ctx, pending); err != nil {
				return rollbackAndFail(err)
			}
			pending = nil

			if err := w.permits.WithBatchYield(ctx); err != nil {
				return rollbackAndFail(err)
			}
		}
	}

	if len(pending) > 0 {
		if err := w.flushBatch(ctx, pending); err != nil {
			return rollbackAndFail(err)
		}
	}

	if err := w.tracker.Flush(ctx); err != nil {
		slog.Warn("change_tracker_flush_failed", slog.String("error", err.Error()))
	}
	if err := w.persistCache(); err != nil {
		slog.Warn("metadata_cache_persist_failed", slog.String("error", err.Error()))
	}

	stats.Duration = time.Since(start)
	w.recordMetrics(stats)
	return stats, nil
}

func (w *Writer) recordMetrics(stats Stats) {
	if w.metrics == nil {
		return
	}
	w.metrics.IncFilesProcessed(stats.FilesProcessed)
	w.metrics.IncFilesUpdated(stats.FilesUpdated)
	w.metrics.IncChunksAdded(stats.ChunksAdded)
	w.metrics.IncChunksRemoved(stats.ChunksRemoved)
	w.metrics.IncErrors(stats.Errors)
	w.metrics.ObserveIndexDuration(stats.Duration)
}

// currentBatchSize returns B under the batch mutex.
func (w *Writer) currentBatchSize() int {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.batchSize
}

// adjustBatchSize implements the memory policy (spec §4.4): halve B
// while pressure persists, restore it once pressure clears.
func (w *Writer) adjustBatchSize(underPressure bool) {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	if underPressure {
		if w.batchSize > 1 {
			w.batchSize /= 2
		}
		return
	}
	if w.batchSize < w.cfg.BatchSize {
		w.batchSize = w.cfg.BatchSize
	}
}

func (w *Writer) buildChunks(ctx context.Context, absPath string, content []byte) ([]store.DocumentChunk, error) {
	text := string(content)
	ext := filepath.Ext(absPath)

	segments, err := w.chunker.Chunk(ctx, chunk.FileInput{Path: absPath, Content: text, FileType: ext})
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", absPath, err)
	}
	if len(segments) == 0 {
		return nil, nil
	}

	checksum := store.HashContent(content)
	prov := metadata.Extract(absPath, text)

	var mtime time.Time
	if info, statErr := os.Stat(absPath); statErr == nil {
		mtime = info.ModTime()
	}

	out := make([]store.DocumentChunk, len(segments))
	for i, seg := range segments {
		id := store.ComputeChunkID(absPath, i, seg.StartLine, seg.EndLine, seg.Content)
		out[i] = store.DocumentChunk{
			ChunkID:      id,
			Content:      seg.Content,
			SourcePath:   absPath,
			Tech:         prov.Tech,
			Component:    prov.Component,
			Version:      prov.Version,
			Topic:        prov.Topic,
			FileType:     ext,
			ChunkIndex:   i,
			StartLine:    seg.StartLine,
			EndLine:      seg.EndLine,
			Timestamp:    mtime,
			FileChecksum: checksum,
		}
	}
	return out, nil
}

// flushBatch implements _flush_batch (spec §4.4): keyword bulk insert,
// then embedding generation, then vector upsert, each in sub-batches
// with retry; only after both stores succeed does the batch become
// visible in the Metadata Cache.
func (w *Writer) flushBatch(ctx context.Context, batch []store.DocumentChunk) error {
	if len(batch) == 0 {
		return nil
	}
	ids := chunkIDsOf(batch)

	if err := w.bulkKeywordInsert(ctx, batch); err != nil {
		w.bestEffortDelete(context.Background(), ids)
		return fmt.Errorf("keyword store insert: %w", err)
	}

	vectors, err := w.embedAll(ctx, batch)
	if err != nil {
		w.bestEffortDelete(context.Background(), ids)
		return fmt.Errorf("embedding: %w", err)
	}

	if err := w.upsertVectors(ctx, batch, vectors); err != nil {
		w.bestEffortDelete(context.Background(), ids)
		return fmt.Errorf("vector store upsert: %w", err)
	}

	w.cache.PutBatch(batch)
	return nil
}

func (w *Writer) bulkKeywordInsert(ctx context.Context, batch []store.DocumentChunk) error {
	for start := 0; start < len(batch); start += keywordSubBatchSize {
		end := start + keywordSubBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		sub := batch[start:end]

		cctx, cancel := context.WithTimeout(ctx, w.cfg.KeywordTimeout)
		err := embed.WithRetry(cctx, embed.DefaultRetryConfig(), func() error {
			return w.keyword.Bulk(cctx, sub, nil, true)
		})
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrPersistentStoreFailure, err)
		}

		if end < len(batch) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interSubBatchDelay):
			}
		}
	}
	return nil
}

func (w *Writer) embedAll(ctx context.Context, batch []store.DocumentChunk) ([][]float32, error) {
	vectors := make([][]float32, len(batch))
	for start := 0; start < len(batch); start += embedSubBatchSize {
		end := start + embedSubBatchSize
		if end > len(batch) {
			end = len(batch)
		}

		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = batch[start+i].Content
		}

		var sub [][]float32
		err := embed.WithRetry(ctx, embed.DefaultRetryConfig(), func() error {
			v, embedErr := w.embedder.EmbedBatch(ctx, texts)
			if embedErr != nil {
				return embedErr
			}
			sub = v
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrPersistentStoreFailure, err)
		}
		copy(vectors[start:end], sub)
	}
	return vectors, nil
}

func (w *Writer) upsertVectors(ctx context.Context, batch []store.DocumentChunk, vectors [][]float32) error {
	for start := 0; start < len(batch); start += vectorSubBatchSize {
		end := start + vectorSubBatchSize
		if end > len(batch) {
			end = len(batch)
		}

		points := make([]store.VectorPoint, end-start)
		for i := range points {
			c := batch[start+i]
			points[i] = store.VectorPoint{
				ChunkID: c.ChunkID,
				Vector:  vectors[start+i],
				Payload: store.VectorPayload{
					Tech: c.Tech, Component: c.Component, Version: c.Version, FileType: c.FileType,
				},
			}
		}

		cctx, cancel := context.WithTimeout(ctx, w.cfg.VectorTimeout)
		err := embed.WithRetry(cctx, embed.DefaultRetryConfig(), func() error {
			return w.vector.Upsert(cctx, points)
		})
		cancel()
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrPersistentStoreFailure, err)
		}
	}
	return nil
}

// bestEffortDelete removes ids from both stores, logging but not
// propagating failures (spec §4.4 failure semantics: "Issue
// best-effort delete operations against both stores").
func (w *Writer) bestEffortDelete(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := w.keyword.DeleteByID(ctx, ids); err != nil {
		slog.Warn("best_effort_keyword_delete_failed", slog.String("error", err.Error()))
	}
	if err := w.vector.Delete(ctx, ids); err != nil {
		slog.Warn("best_effort_vector_delete_failed", slog.String("error", err.Error()))
	}
}

// rollbackSession removes every chunk_id built during the session from
// both stores and the cache (spec §4.4, §5 cancellation path). Ids that
// were never actually committed are harmless no-ops to delete.
func (w *Writer) rollbackSession(ctx context.Context, sess *session) {
	if len(sess.chunkIDs) == 0 {
		return
	}
	w.bestEffortDelete(ctx, sess.chunkIDs)
	w.cache.Delete(sess.chunkIDs)
}

func (w *Writer) persistCache() error {
	if w.cachePath == "" {
		return nil
	}
	return w.cache.Save(w.cachePath)
}

// RemovePath removes every chunk indexed for path and forgets its
// change-tracker entry, without rescanning or reinserting anything. It
// is the writer's counterpart to a watcher-detected file deletion,
// which index_paths never observes since a deleted path is absent from
// its own enumeration.
func (w *Writer) RemovePath(ctx context.Context, path string) error {
	if err := w.permits.AcquireWrite(ctx); err != nil {
		return err
	}
	defer w.permits.ReleaseWrite()

	ids := w.cache.ChunksForPath(path)
	if len(ids) == 0 {
		return w.tracker.Remove(ctx, path)
	}

	if err := w.keyword.DeleteByID(ctx, ids); err != nil {
		return fmt.Errorf("remove_path: keyword delete: %w", err)
	}
	if err := w.vector.Delete(ctx, ids); err != nil {
		return fmt.Errorf("remove_path: vector delete: %w", err)
	}
	w.cache.Delete(ids)

	if err := w.tracker.Remove(ctx, path); err != nil {
		slog.Warn("remove_path_tracker_remove_failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	if err := w.persistCache(); err != nil {
		slog.Warn("remove_path_cache_persist_failed", slog.String("error", err.Error()))
	}
	return nil
}

// ClearTech implements clear_tech (spec §4.4): remove every chunk for
// tech from both stores and the cache, and forget those files' change-
// tracker entries so a subsequent non-force reindex picks them back up.
func (w *Writer) ClearTech(ctx context.Context, tech string) error {
	if err := w.permits.AcquireWrite(ctx); err != nil {
		return err
	}
	defer w.permits.ReleaseWrite()

	var paths []string
	seen := make(map[string]struct{})
	for _, c := range w.cache.All() {
		if c.Tech != tech {
			continue
		}
		if _, ok := seen[c.SourcePath]; ok {
			continue
		}
		seen[c.SourcePath] = struct{}{}
		paths = append(paths, c.SourcePath)
	}

	ids := w.cache.DeleteTech(tech)
	if len(ids) == 0 {
		return nil
	}

	if err := w.keyword.DeleteByID(ctx, ids); err != nil {
		return fmt.Errorf("clear_tech: keyword delete: %w", err)
	}
	if err := w.vector.Delete(ctx, ids); err != nil {
		return fmt.Errorf("clear_tech: vector delete: %w", err)
	}

	for _, p := range paths {
		if err := w.tracker.Remove(ctx, p); err != nil {
			slog.Warn("clear_tech_tracker_remove_failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	if err := w.tracker.Flush(ctx); err != nil {
		slog.Warn("clear_tech_tracker_flush_failed", slog.String("error", err.Error()))
	}
	if err := w.persistCache(); err != nil {
		slog.Warn("clear_tech_cache_persist_failed", slog.String("error", err.Error()))
	}
	return nil
}

// ClearAll implements clear_all (spec §4.4): every chunk is removed
// from both stores, the cache and checksum map are emptied, and their
// persisted files are deleted.
func (w *Writer) ClearAll(ctx context.Context) error {
	if err := w.permits.AcquireWrite(ctx); err != nil {
		return err
	}
	defer w.permits.ReleaseWrite()

	all := w.cache.All()
	if len(all) > 0 {
		ids := make([]string, len(all))
		for i, c := range all {
			ids[i] = c.ChunkID
		}
		if err := w.keyword.DeleteByID(ctx, ids); err != nil {
			return fmt.Errorf("clear_all: keyword delete: %w", err)
		}
		if err := w.vector.Delete(ctx, ids); err != nil {
			return fmt.Errorf("clear_all: vector delete: %w", err)
		}
	}

	w.cache.Clear()
	if err := w.tracker.Reset(ctx); err != nil {
		return fmt.Errorf("clear_all: reset change tracker: %w", err)
	}

	if w.cachePath != "" {
		if err := os.Remove(w.cachePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear_all: remove metadata cache file: %w", err)
		}
	}
	return nil
}

func chunkIDsOf(batch []store.DocumentChunk) []string {
	ids := make([]string, len(batch))
	for i, c := range batch {
		ids[i] = c.ChunkID
	}
	return ids
}
