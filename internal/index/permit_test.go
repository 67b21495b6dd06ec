package index

import (
	"context"
	"testing"
	"time"
)

func TestPermitManager_WriteIsExclusive(t *testing.T) {
	p := NewPermitManager()
	ctx := context.Background()

	if err := p.AcquireWrite(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := p.AcquireWrite(cctx); err == nil {
		t.Fatal("expected second write acquire to block until cancellation")
	}

	p.ReleaseWrite()
	if err := p.AcquireWrite(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestPermitManager_ReadsCanBeConcurrent(t *testing.T) {
	p := NewPermitManager()
	ctx := context.Background()

	if err := p.AcquireRead(ctx); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if err := p.AcquireRead(ctx); err != nil {
		t.Fatalf("second concurrent read: %v", err)
	}
	p.ReleaseRead()
	p.ReleaseRead()
}

func TestPermitManager_WithBatchYield_LetsQueuedReaderProceed(t *testing.T) {
	p := NewPermitManager()
	ctx := context.Background()
	require := func(err error) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require(p.AcquireWrite(ctx))

	readAcquired := make(chan struct{})
	go func() {
		require(p.AcquireRead(ctx))
		close(readAcquired)
		p.ReleaseRead()
	}()

	time.Sleep(10 * time.Millisecond)
	require(p.WithBatchYield(ctx))

	select {
	case <-readAcquired:
	case <-time.After(time.Second):
		t.Fatal("reader never got a turn during the batch yield window")
	}
}
