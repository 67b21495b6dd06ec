package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistryWithRegisterer("test", prometheus.NewRegistry())
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestRegistry_IndexCounters_Accumulate(t *testing.T) {
	r := newTestRegistry(t)

	r.IncFilesProcessed(3)
	r.IncFilesUpdated(1)
	r.IncChunksAdded(10)
	r.IncChunksRemoved(2)
	r.IncErrors(1)
	r.ObserveIndexDuration(250 * time.Millisecond)

	assert.Equal(t, float64(3), counterValue(t, r.FilesProcessedTotal))
	assert.Equal(t, float64(1), counterValue(t, r.FilesUpdatedTotal))
	assert.Equal(t, float64(10), counterValue(t, r.ChunksAddedTotal))
	assert.Equal(t, float64(2), counterValue(t, r.ChunksRemovedTotal))
	assert.Equal(t, float64(1), counterValue(t, r.IndexErrorsTotal))
}

func TestRegistry_SetStoreSizes_UpdatesGauges(t *testing.T) {
	r := newTestRegistry(t)
	r.SetStoreSizes(5, 5, 5)

	assert.Equal(t, float64(5), gaugeValue(t, r.KeywordStoreSize))
	assert.Equal(t, float64(5), gaugeValue(t, r.VectorStoreSize))
	assert.Equal(t, float64(5), gaugeValue(t, r.CachedChunksSize))
}

func TestRegistry_RecordQuery_DoesNotPanic(t *testing.T) {
	r := newTestRegistry(t)
	r.RecordQuery("search", "ok", 10*time.Millisecond, 7)
	r.RecordQuery("retrieve", "not_found", time.Millisecond, 0)
}

func TestRegistry_EmbeddingCacheCounters(t *testing.T) {
	r := newTestRegistry(t)
	r.RecordEmbeddingCacheHit()
	r.RecordEmbeddingCacheHit()
	r.RecordEmbeddingCacheMiss()

	assert.Equal(t, float64(2), counterValue(t, r.EmbeddingCacheHits))
	assert.Equal(t, float64(1), counterValue(t, r.EmbeddingCacheMisses))
}
