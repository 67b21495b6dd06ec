// Package index implements the Dual-Store Writer (spec §4.4): the
// component that coordinates batched, rollback-safe writes across the
// keyword store, the vector store, and the Metadata Cache, under the
// single-writer/multi-reader concurrency model of spec §5.
package index

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// maxReaderWeight bounds concurrent readers and doubles as the weight a
// writer must acquire in full to hold exclusive access; generous enough
// that searches never queue behind each other in practice, small enough
// to bound goroutine fan-out under pathological query storms.
const maxReaderWeight int64 = 256

// PermitManager implements the write/read permit discipline of spec §5:
// one exclusive writer at a time, any number of concurrent readers, with
// the writer releasing and reacquiring its permit between batches so a
// long-running index_paths never starves readers for longer than one
// batch's duration.
//
// It is built on a single weighted semaphore rather than sync.RWMutex:
// a reader acquires weight 1, a writer acquires the full weight, so a
// writer is blocked until every outstanding reader has released and no
// new reader can acquire while a writer holds the semaphore — the same
// exclusion sync.RWMutex gives, but with context-cancelable Acquire
// calls, which the writer needs at every batch boundary.
type PermitManager struct {
	sem *semaphore.Weighted
}

// NewPermitManager constructs a permit manager.
func NewPermitManager() *PermitManager {
	return &PermitManager{sem: semaphore.NewWeighted(maxReaderWeight)}
}

// AcquireWrite blocks until exclusive access is available (every
// outstanding reader has released) or ctx is cancelled.
func (p *PermitManager) AcquireWrite(ctx context.Context) error {
	return p.sem.Acquire(ctx, maxReaderWeight)
}

// ReleaseWrite gives up exclusive access, letting queued readers or a
// queued writer proceed.
func (p *PermitManager) ReleaseWrite() {
	p.sem.Release(maxReaderWeight)
}

// AcquireRead blocks until a shared read slot is available (no writer
// is currently active) or ctx is cancelled.
func (p *PermitManager) AcquireRead(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// ReleaseRead releases a shared read slot.
func (p *PermitManager) ReleaseRead() {
	p.sem.Release(1)
}

// WithBatchYield releases the write permit and reacquires it. Calling
// this between batches is what satisfies spec §5's "a long-running
// indexing operation must not starve readers" requirement: readers
// queued on AcquireRead can interleave during the window the permit is
// free.
func (p *PermitManager) WithBatchYield(ctx context.Context) error {
	p.ReleaseWrite()
	return p.AcquireWrite(ctx)
}
