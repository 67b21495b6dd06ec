package index

import "time"

// Stats is the statistics record returned by index_paths (spec §4.4,
// §7: "index_paths returns a statistics record even on partial
// failure").
type Stats struct {
	FilesProcessed int
	FilesUpdated   int
	ChunksAdded    int
	ChunksRemoved  int
	Errors         int
	Duration       time.Duration
}

// ProgressStage names the phase a ProgressEvent was emitted from.
type ProgressStage string

const (
	StageScanning  ProgressStage = "scanning"
	StageIndexing  ProgressStage = "indexing"
	StageFlushing  ProgressStage = "flushing"
)

// ProgressEvent is reported to the caller-supplied progress callback of
// index_paths (spec §4.4 operation signature: "progress=…").
type ProgressEvent struct {
	Stage       ProgressStage
	CurrentFile string
	FilesDone   int
	FilesTotal  int
}

// ProgressFunc receives ProgressEvents; a nil func is a valid no-op
// subscriber.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) report(e ProgressEvent) {
	if f != nil {
		f(e)
	}
}
