package index

import "testing"

func TestProcMemorySampler_DoesNotPanicOnRealProc(t *testing.T) {
	s := newMemorySampler()
	// Exercise the real /proc readers; the outcome is platform-dependent,
	// so only absence of a panic is asserted here.
	_ = s.underPressure()
}

type fakeMemorySampler struct{ pressured bool }

func (f fakeMemorySampler) underPressure() bool { return f.pressured }

func TestWriter_AdjustBatchSize_HalvesUnderPressureAndRestores(t *testing.T) {
	w, _ := newTestWriter(t)
	w.mem = fakeMemorySampler{pressured: true}

	original := w.cfg.BatchSize
	w.adjustBatchSize(true)
	if w.currentBatchSize() != original/2 {
		t.Fatalf("expected batch size halved to %d, got %d", original/2, w.currentBatchSize())
	}

	w.adjustBatchSize(false)
	if w.currentBatchSize() != original {
		t.Fatalf("expected batch size restored to %d, got %d", original, w.currentBatchSize())
	}
}

func TestWriter_AdjustBatchSize_NeverGoesBelowOne(t *testing.T) {
	w, _ := newTestWriter(t)
	w.batchSize = 1
	w.adjustBatchSize(true)
	if w.currentBatchSize() != 1 {
		t.Fatalf("expected batch size floor of 1, got %d", w.currentBatchSize())
	}
}
