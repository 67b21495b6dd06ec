package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWVectorStore implements VectorStore using coder/hnsw, an in-process
// pure-Go HNSW graph with cosine distance. Point keys are the
// 64-bit VectorID (§4.4/I4); chunk_id <-> key mappings and the payload
// projection used for in-memory filtering are kept alongside the graph.
type HNSWVectorStore struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dim   int

	idToKey map[string]uint64
	keyToID map[uint64]string
	payload map[string]VectorPayload

	closed bool
}

type hnswPersisted struct {
	IDToKey map[string]uint64
	Payload map[string]VectorPayload
	Dim     int
}

// NewHNSWVectorStore constructs an empty store for the given dimension.
func NewHNSWVectorStore(dim int) (*HNSWVectorStore, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("vector store: dimension must be positive")
	}
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25

	return &HNSWVectorStore{
		graph:   g,
		dim:     dim,
		idToKey: make(map[string]uint64),
		keyToID: make(map[uint64]string),
		payload: make(map[string]VectorPayload),
	}, nil
}

// CreateCollection validates the requested dimension matches this
// store's configured dimension (spec §6: "dim must equal the vector
// store's configured dim").
func (s *HNSWVectorStore) CreateCollection(_ context.Context, _ string, dim int) error {
	if dim != s.dim {
		return ErrDimensionMismatch{Expected: s.dim, Got: dim}
	}
	return nil
}

// Upsert inserts or replaces points. Replacing uses lazy deletion of the
// old graph node (coder/hnsw does not support removing the last node
// safely).
func (s *HNSWVectorStore) Upsert(_ context.Context, points []VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	for _, p := range points {
		if len(p.Vector) != s.dim {
			return ErrDimensionMismatch{Expected: s.dim, Got: len(p.Vector)}
		}
	}

	for _, p := range points {
		if oldKey, exists := s.idToKey[p.ChunkID]; exists {
			delete(s.keyToID, oldKey)
			delete(s.idToKey, p.ChunkID)
		}

		key := uint64(VectorID(p.ChunkID))
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		normalizeInPlace(vec)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idToKey[p.ChunkID] = key
		s.keyToID[key] = p.ChunkID
		s.payload[p.ChunkID] = p.Payload
	}
	return nil
}

// Query finds the nearest neighbors to vector, applying the tech/
// version/file_type payload filters server-side; component is not
// carried as a strict filter here (post-filtered in memory by the
// Hybrid Query Planner per spec §4.5 step 3).
func (s *HNSWVectorStore) Query(_ context.Context, vector []float32, filters Filters, limit int) ([]VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("vector store is closed")
	}
	if len(vector) != s.dim {
		return nil, ErrDimensionMismatch{Expected: s.dim, Got: len(vector)}
	}
	if s.graph.Len() == 0 {
		return []VectorHit{}, nil
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	normalizeInPlace(query)

	// Over-fetch from the graph itself to leave room for in-store
	// filtering without starving the caller's requested limit.
	fetch := limit * 4
	if fetch < limit {
		fetch = limit
	}
	nodes := s.graph.Search(query, fetch)

	hits := make([]VectorHit, 0, len(nodes))
	for _, node := range nodes {
		id, ok := s.keyToID[node.Key]
		if !ok {
			continue // orphaned (lazily deleted) node
		}
		if !matchesPayload(s.payload[id], filters) {
			continue
		}
		distance := s.graph.Distance(query, node.Value)
		hits = append(hits, VectorHit{ChunkID: id, Score: 1.0 - distance/2.0})
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

func matchesPayload(p VectorPayload, f Filters) bool {
	if f.Tech != "" && p.Tech != f.Tech {
		return false
	}
	if f.Version != "" && p.Version != f.Version {
		return false
	}
	if f.FileType != "" && p.FileType != f.FileType {
		return false
	}
	return true
}

// Delete removes points by chunk id (lazy deletion, matching Upsert's
// replace strategy).
func (s *HNSWVectorStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("vector store is closed")
	}
	for _, id := range ids {
		if key, ok := s.idToKey[id]; ok {
			delete(s.keyToID, key)
			delete(s.idToKey, id)
		}
		delete(s.payload, id)
	}
	return nil
}

// Count returns the number of live (non-orphaned) points.
func (s *HNSWVectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("vector store is closed")
	}
	return len(s.idToKey), nil
}

// Save persists the graph and ID/payload mappings via temp-file+rename.
func (s *HNSWVectorStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("vector store is closed")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create vector store directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create vector index temp file: %w", err)
	}
	if err := s.graph.Export(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("export hnsw graph: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename vector index: %w", err)
	}

	return s.saveMetadata(path + ".meta")
}

func (s *HNSWVectorStore) saveMetadata(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer f.Close()

	meta := hnswPersisted{IDToKey: s.idToKey, Payload: s.payload, Dim: s.dim}
	if err := gob.NewEncoder(f).Encode(meta); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("encode vector store metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Load restores the graph and mappings from disk.
func (s *HNSWVectorStore) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("vector store is closed")
	}

	if err := s.loadMetadata(path + ".meta"); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	defer f.Close()

	if err := s.graph.Import(bufio.NewReader(f)); err != nil {
		return fmt.Errorf("import hnsw graph: %w", err)
	}
	return nil
}

func (s *HNSWVectorStore) loadMetadata(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open vector store metadata: %w", err)
	}
	defer f.Close()

	var meta hnswPersisted
	if err := gob.NewDecoder(f).Decode(&meta); err != nil {
		return fmt.Errorf("decode vector store metadata: %w", err)
	}

	s.idToKey = meta.IDToKey
	s.payload = meta.Payload
	s.dim = meta.Dim
	s.keyToID = make(map[uint64]string, len(s.idToKey))
	for id, key := range s.idToKey {
		s.keyToID[key] = id
	}
	return nil
}

// Close releases resources.
func (s *HNSWVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

var _ VectorStore = (*HNSWVectorStore)(nil)
