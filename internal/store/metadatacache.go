package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// metadataCacheMagic identifies the persisted cache blob format; bumping
// metadataCacheVersion invalidates any previously persisted cache
// without risking a misinterpreted decode (spec §9 Open Question: cache
// persistence format — resolved as a versioned, fail-closed blob).
var metadataCacheMagic = [4]byte{'D', 'M', 'C', '1'}

const metadataCacheVersion uint32 = 1

// MetadataCache is the in-memory chunk_id -> DocumentChunk projection
// that backs retrieve/get_stats/list_sources without round-tripping to
// either persistent store (spec §4.6). It is the third leg of the I1
// three-way consistency invariant.
type MetadataCache struct {
	mu     sync.RWMutex
	byID   map[string]DocumentChunk
	byTech map[string]map[string]struct{} // tech -> set of chunk_ids
	byPath map[string]map[string]struct{} // source_path -> set of chunk_ids
}

// NewMetadataCache constructs an empty cache.
func NewMetadataCache() *MetadataCache {
	return &MetadataCache{
		byID:   make(map[string]DocumentChunk),
		byTech: make(map[string]map[string]struct{}),
		byPath: make(map[string]map[string]struct{}),
	}
}

// Put inserts or replaces a chunk's metadata.
func (c *MetadataCache) Put(chunk DocumentChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(chunk)
}

func (c *MetadataCache) putLocked(chunk DocumentChunk) {
	if old, exists := c.byID[chunk.ChunkID]; exists {
		if old.Tech != chunk.Tech {
			c.removeFromTechIndexLocked(old.Tech, old.ChunkID)
		}
		if old.SourcePath != chunk.SourcePath {
			c.removeFromPathIndexLocked(old.SourcePath, old.ChunkID)
		}
	}
	c.byID[chunk.ChunkID] = chunk
	set, ok := c.byTech[chunk.Tech]
	if !ok {
		set = make(map[string]struct{})
		c.byTech[chunk.Tech] = set
	}
	set[chunk.ChunkID] = struct{}{}

	pathSet, ok := c.byPath[chunk.SourcePath]
	if !ok {
		pathSet = make(map[string]struct{})
		c.byPath[chunk.SourcePath] = pathSet
	}
	pathSet[chunk.ChunkID] = struct{}{}
}

// PutBatch inserts or replaces several chunks atomically with respect to
// concurrent readers.
func (c *MetadataCache) PutBatch(chunks []DocumentChunk) {
	if len(chunks) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, chunk := range chunks {
		c.putLocked(chunk)
	}
}

// Get returns the chunk for id, or ErrNotFound.
func (c *MetadataCache) Get(chunkID string) (DocumentChunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chunk, ok := c.byID[chunkID]
	if !ok {
		return DocumentChunk{}, ErrNotFound
	}
	return chunk, nil
}

// Delete removes chunks by id.
func (c *MetadataCache) Delete(ids []string) {
	if len(ids) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		chunk, ok := c.byID[id]
		if !ok {
			continue
		}
		c.removeFromTechIndexLocked(chunk.Tech, id)
		c.removeFromPathIndexLocked(chunk.SourcePath, id)
		delete(c.byID, id)
	}
}

func (c *MetadataCache) removeFromTechIndexLocked(tech, chunkID string) {
	set, ok := c.byTech[tech]
	if !ok {
		return
	}
	delete(set, chunkID)
	if len(set) == 0 {
		delete(c.byTech, tech)
	}
}

func (c *MetadataCache) removeFromPathIndexLocked(path, chunkID string) {
	set, ok := c.byPath[path]
	if !ok {
		return
	}
	delete(set, chunkID)
	if len(set) == 0 {
		delete(c.byPath, path)
	}
}

// ChunksForPath returns the chunk ids currently cached for source path,
// letting the Dual-Store Writer enumerate a previously-indexed file's
// chunks before a remove-then-insert (spec §4.4 step 3a).
func (c *MetadataCache) ChunksForPath(path string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.byPath[path]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

// DeleteTech removes every chunk for the given technology and returns
// the removed chunk ids, for clear_tech fan-out to the two persistent
// stores.
func (c *MetadataCache) DeleteTech(tech string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.byTech[tech]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
		if chunk, ok := c.byID[id]; ok {
			c.removeFromPathIndexLocked(chunk.SourcePath, id)
		}
		delete(c.byID, id)
	}
	delete(c.byTech, tech)
	return ids
}

// Clear empties the cache (used by clear_all).
func (c *MetadataCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[string]DocumentChunk)
	c.byTech = make(map[string]map[string]struct{})
	c.byPath = make(map[string]map[string]struct{})
}

// Count returns the total number of cached chunks.
func (c *MetadataCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// ListSources returns the distinct (tech, version) pairs currently
// cached, satisfying the list_sources operation without a store round
// trip.
func (c *MetadataCache) ListSources() []SourceSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	type key struct{ tech, version string }
	counts := make(map[key]int)
	for _, chunk := range c.byID {
		counts[key{chunk.Tech, chunk.Version}]++
	}

	out := make([]SourceSummary, 0, len(counts))
	for k, n := range counts {
		out = append(out, SourceSummary{Tech: k.tech, Version: k.version, ChunkCount: n})
	}
	return out
}

// SourceSummary is one row of the list_sources operation's result.
type SourceSummary struct {
	Tech       string
	Version    string
	ChunkCount int
}

// Save persists the cache as [magic(4) | version(uint32) | gob(payload)]
// via temp-file-then-rename (matching the vector store's atomic-save
// convention).
func (c *MetadataCache) Save(path string) error {
	c.mu.RLock()
	chunks := make([]DocumentChunk, 0, len(c.byID))
	for _, chunk := range c.byID {
		chunks = append(chunks, chunk)
	}
	c.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metadata cache directory: %w", err)
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(chunks); err != nil {
		return fmt.Errorf("encode metadata cache: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create metadata cache temp file: %w", err)
	}
	if _, err := f.Write(metadataCacheMagic[:]); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := binary.Write(f, binary.BigEndian, metadataCacheVersion); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if _, err := f.Write(payload.Bytes()); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Load restores the cache from path. Any format mismatch or corruption
// is logged and treated as an empty cache (fail closed) rather than
// propagated: a stale/garbled cache is rebuilt incrementally by the next
// index_paths run, which is safer than refusing to start.
func (c *MetadataCache) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read metadata cache: %w", err)
	}

	chunks, err := decodeMetadataCacheBlob(data)
	if err != nil {
		slog.Warn("metadata_cache_corrupted", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[string]DocumentChunk, len(chunks))
	c.byTech = make(map[string]map[string]struct{})
	c.byPath = make(map[string]map[string]struct{})
	for _, chunk := range chunks {
		c.putLocked(chunk)
	}
	return nil
}

// All returns a snapshot of every cached chunk, for get_stats/
// list_sources style bulk enumeration.
func (c *MetadataCache) All() []DocumentChunk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]DocumentChunk, 0, len(c.byID))
	for _, chunk := range c.byID {
		out = append(out, chunk)
	}
	return out
}

func decodeMetadataCacheBlob(data []byte) ([]DocumentChunk, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("metadata cache blob too short")
	}
	var magic [4]byte
	copy(magic[:], data[:4])
	if magic != metadataCacheMagic {
		return nil, fmt.Errorf("metadata cache magic mismatch")
	}
	version := binary.BigEndian.Uint32(data[4:8])
	if version != metadataCacheVersion {
		return nil, fmt.Errorf("metadata cache version mismatch: got %d, want %d", version, metadataCacheVersion)
	}

	var chunks []DocumentChunk
	if err := gob.NewDecoder(bytes.NewReader(data[8:])).Decode(&chunks); err != nil {
		return nil, fmt.Errorf("decode metadata cache payload: %w", err)
	}
	return chunks, nil
}
