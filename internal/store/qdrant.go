package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// payloadIDField stores the original chunk_id in the point payload.
// Qdrant point ids must be a UUID or a positive integer, so chunk_ids
// (hex SHA-256 strings) are mapped to the non-negative integer VectorID
// (the same key HNSWVectorStore uses) and the original id is carried in
// the payload for round-tripping.
const payloadIDField = "_chunk_id"

// QdrantVectorStore implements VectorStore against a Qdrant server via
// its gRPC client, selected by config.VectorBackend == "qdrant" as an
// alternative to the in-process HNSWVectorStore.
type QdrantVectorStore struct {
	client     *qdrant.Client
	collection string
	dim        int
}

// NewQdrantVectorStore dials addr (host:port gRPC, optionally
// scheme://host:port?api_key=...) and ensures the named collection
// exists, creating it with the requested vector dimension and cosine
// distance when it is absent.
func NewQdrantVectorStore(ctx context.Context, addr, collection string, dim int) (*QdrantVectorStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("qdrant: dimension must be positive")
	}

	host, port, useTLS, apiKey, err := parseQdrantAddr(addr)
	if err != nil {
		return nil, err
	}

	cfg := &qdrant.Config{Host: host, Port: port, UseTLS: useTLS, APIKey: apiKey}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	q := &QdrantVectorStore{client: client, collection: collection, dim: dim}
	if err := q.CreateCollection(ctx, collection, dim); err != nil {
		client.Close()
		return nil, err
	}
	return q, nil
}

func parseQdrantAddr(addr string) (host string, port int, useTLS bool, apiKey string, err error) {
	if addr == "" {
		addr = "localhost:6334"
	}
	parsed, parseErr := url.Parse(addr)
	if parseErr != nil || parsed.Host == "" {
		// Bare "host:port" with no scheme.
		parsed, parseErr = url.Parse("qdrant://" + addr)
		if parseErr != nil {
			return "", 0, false, "", fmt.Errorf("parse qdrant address: %w", parseErr)
		}
	}

	host = parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := parsed.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, convErr := strconv.Atoi(portStr)
	if convErr != nil {
		return "", 0, false, "", fmt.Errorf("invalid qdrant port %q: %w", portStr, convErr)
	}
	useTLS = parsed.Scheme == "https"
	apiKey = parsed.Query().Get("api_key")
	return host, port, useTLS, apiKey, nil
}

// CreateCollection creates the collection with dim and cosine distance
// if it is absent. An existing collection is used as it is; its vector
// size is not compared with dim.
func (q *QdrantVectorStore) CreateCollection(ctx context.Context, name string, dim int) error {
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection: %w", err)
	}
	return nil
}

func chunkIDToPointID(chunkID string) *qdrant.PointId {
	return qdrant.NewIDNum(uint64(VectorID(chunkID)))
}

// Upsert writes points in a single batched call.
func (q *QdrantVectorStore) Upsert(ctx context.Context, points []VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	if err := q.validateDims(points); err != nil {
		return err
	}

	out := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload := map[string]any{
			payloadIDField: p.ChunkID,
			"tech":         p.Payload.Tech,
			"component":    p.Payload.Component,
			"version":      p.Payload.Version,
			"file_type":    p.Payload.FileType,
		}
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		out = append(out, &qdrant.PointStruct{
			Id:      chunkIDToPointID(p.ChunkID),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         out,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert: %w", err)
	}
	return nil
}

func (q *QdrantVectorStore) validateDims(points []VectorPoint) error {
	for _, p := range points {
		if len(p.Vector) != q.dim {
			return ErrDimensionMismatch{Expected: q.dim, Got: len(p.Vector)}
		}
	}
	return nil
}

// Query runs a nearest-neighbor search with server-side payload filters
// for tech/version/file_type (component is left to in-memory
// post-filtering by the Hybrid Query Planner, same as HNSWVectorStore).
func (q *QdrantVectorStore) Query(ctx context.Context, vector []float32, filters Filters, limit int) ([]VectorHit, error) {
	if len(vector) != q.dim {
		return nil, ErrDimensionMismatch{Expected: q.dim, Got: len(vector)}
	}

	var qFilter *qdrant.Filter
	var must []*qdrant.Condition
	if filters.Tech != "" {
		must = append(must, qdrant.NewMatch("tech", filters.Tech))
	}
	if filters.Version != "" {
		must = append(must, qdrant.NewMatch("version", filters.Version))
	}
	if filters.FileType != "" {
		must = append(must, qdrant.NewMatch("file_type", filters.FileType))
	}
	if len(must) > 0 {
		qFilter = &qdrant.Filter{Must: must}
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	lim := uint64(limit)

	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &lim,
		Filter:         qFilter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query: %w", err)
	}

	hits := make([]VectorHit, 0, len(results))
	for _, hit := range results {
		chunkID := ""
		if hit.Payload != nil {
			if v, ok := hit.Payload[payloadIDField]; ok {
				chunkID = v.GetStringValue()
			}
		}
		if chunkID == "" {
			continue
		}
		hits = append(hits, VectorHit{ChunkID: chunkID, Score: hit.Score})
	}
	return hits, nil
}

// Delete removes points by chunk id, one selector call per id (the
// client's point selector wraps a single id, matching its documented
// single-point delete usage).
func (q *QdrantVectorStore) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: q.collection,
			Points:         qdrant.NewPointsSelector(chunkIDToPointID(id)),
		})
		if err != nil {
			return fmt.Errorf("qdrant: delete %s: %w", id, err)
		}
	}
	return nil
}

// Count returns the collection's exact point count.
func (q *QdrantVectorStore) Count(ctx context.Context) (int, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{CollectionName: q.collection})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count: %w", err)
	}
	return int(n), nil
}

// Close shuts down the gRPC connection.
func (q *QdrantVectorStore) Close() error {
	return q.client.Close()
}

var _ VectorStore = (*QdrantVectorStore)(nil)
