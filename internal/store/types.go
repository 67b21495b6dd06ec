// Package store implements the three mutually-consistent persistence
// layers of the retrieval engine: the keyword store (BM25), the vector
// store (cosine HNSW or an external service), and the Metadata Cache
// (spec §3, §4.6, §6).
package store

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Retrieve/Get operations for an absent id;
// it is never raised as a panic (spec §7 Not-found propagation rule).
var ErrNotFound = errors.New("not found")

// ErrStoreUnavailable signals a Store unavailable condition at
// construction (ping fails) — fail fast (spec §7).
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrPersistentStoreFailure signals retries exhausted on a transient
// store error (spec §7) — callers roll back the session and surface it.
var ErrPersistentStoreFailure = errors.New("persistent store error")

// ErrDimensionMismatch is returned when a vector's length does not match
// the vector store's configured dimension (spec §6).
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Is allows errors.Is(err, ErrDimensionMismatch{}) checks to match any
// ErrDimensionMismatch value regardless of its fields.
func (e ErrDimensionMismatch) Is(target error) bool {
	_, ok := target.(ErrDimensionMismatch)
	return ok
}

// DocumentChunk is the immutable record described in spec §3. Once
// written, none of its fields change; a content edit is always a
// remove-then-insert of the whole record.
type DocumentChunk struct {
	ChunkID       string
	Content       string
	SourcePath    string
	Tech          string
	Component     string
	Version       string
	Topic         string
	FileType      string
	ChunkIndex    int
	StartLine     int
	EndLine       int
	Timestamp     time.Time
	FileChecksum  string
}

// ComputeChunkID derives the stable chunk_id required by spec §3/I4:
// hash(path_prefix || chunk_index || start_line || end_line || content).
func ComputeChunkID(pathPrefix string, chunkIndex, startLine, endLine int, content string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%d|", pathPrefix, chunkIndex, startLine, endLine)
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}

// VectorID derives the 64-bit integer key used by the vector store from
// the high bits of SHA256(chunk_id), with the sign bit cleared (spec
// I4). Identical chunk_ids always yield the identical VectorID, and
// collisions are cryptographically improbable.
func VectorID(chunkID string) int64 {
	sum := sha256.Sum256([]byte(chunkID))
	v := binary.BigEndian.Uint64(sum[:8])
	v &^= 1 << 63 // clear sign bit
	return int64(v)
}

// KeywordStore is the inverted-index service contract consumed by the
// Dual-Store Writer and Hybrid Query Planner (spec §6).
type KeywordStore interface {
	CreateIndex(ctx context.Context, name string) error
	Bulk(ctx context.Context, upserts []DocumentChunk, deletes []string, refresh bool) error
	Search(ctx context.Context, query string, filters Filters, size int) ([]KeywordHit, error)
	DeleteByID(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// KeywordHit is a single result from a keyword-store search.
type KeywordHit struct {
	ChunkID      string
	Score        float64
	MatchedTerms []string
}

// VectorStore is the dense-vector service contract consumed by the
// Dual-Store Writer and Hybrid Query Planner (spec §6).
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, dim int) error
	Upsert(ctx context.Context, points []VectorPoint) error
	Query(ctx context.Context, vector []float32, filters Filters, limit int) ([]VectorHit, error)
	Delete(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// VectorPoint is one point upserted into the vector store: its id is the
// 64-bit integer derived by VectorID; the payload carries just enough
// metadata for server-side filtering.
type VectorPoint struct {
	ChunkID string
	Vector  []float32
	Payload VectorPayload
}

// VectorPayload is the projection of chunk metadata stored alongside a
// vector for filtering (spec §6).
type VectorPayload struct {
	Tech      string
	Component string
	Version   string
	FileType  string
}

// VectorHit is a single result from a vector-store query.
type VectorHit struct {
	ChunkID  string
	Score    float32 // cosine similarity, higher is more similar
}

// Filters is the filter set accepted by both stores (spec §4.5): tech,
// version, and file_type are exact-equality; component is a text/
// substring match applied server-side on the keyword store and
// in-memory on the vector store.
type Filters struct {
	Tech      string
	Component string
	Version   string
	FileType  string
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return f.Tech == "" && f.Component == "" && f.Version == "" && f.FileType == ""
}
