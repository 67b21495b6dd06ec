package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// minFreeBytesForPersist is the disk-space floor below which a change
// tracker flush is skipped rather than risking a half-written
// checksums file (spec §5: indexing must not corrupt existing state
// under low disk pressure).
const minFreeBytesForPersist = 1 << 30 // 1 GiB

// ChangeTracker decides whether a file's content has changed since it
// was last indexed (spec §4.3) by comparing a SHA-256 content checksum.
type ChangeTracker interface {
	HasChanged(ctx context.Context, path string, content []byte) (bool, error)
	Record(ctx context.Context, path string, content []byte) error
	Remove(ctx context.Context, path string) error
	Flush(ctx context.Context) error
	// Reset empties the tracked state and removes any persisted file,
	// used by clear_all (spec §4.4).
	Reset(ctx context.Context) error
	Close() error
}

// HashContent returns the hex SHA-256 checksum of content, the same
// algorithm used to derive a DocumentChunk.FileChecksum.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// JSONChangeTracker persists file_path -> checksum as a single JSON
// file, flushed every flushEvery recorded changes and once on Close.
type JSONChangeTracker struct {
	mu         sync.Mutex
	path       string
	checksums  map[string]string
	dirty      int
	flushEvery int
}

// NewJSONChangeTracker loads any existing checksums file at path (a
// missing file starts empty) and returns a tracker that flushes every
// flushEvery recorded changes.
func NewJSONChangeTracker(path string, flushEvery int) (*JSONChangeTracker, error) {
	if flushEvery <= 0 {
		flushEvery = 10
	}
	t := &JSONChangeTracker{
		path:       path,
		checksums:  make(map[string]string),
		flushEvery: flushEvery,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("read change tracker state: %w", err)
	}
	if len(data) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(data, &t.checksums); err != nil {
		return nil, fmt.Errorf("decode change tracker state: %w", err)
	}
	return t, nil
}

// HasChanged reports whether content's checksum differs from the last
// recorded checksum for path (a never-seen path counts as changed).
func (t *JSONChangeTracker) HasChanged(_ context.Context, path string, content []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	existing, ok := t.checksums[path]
	if !ok {
		return true, nil
	}
	return existing != HashContent(content), nil
}

// Record stores content's checksum for path, flushing to disk every
// flushEvery calls.
func (t *JSONChangeTracker) Record(_ context.Context, path string, content []byte) error {
	t.mu.Lock()
	t.checksums[path] = HashContent(content)
	t.dirty++
	shouldFlush := t.dirty >= t.flushEvery
	t.mu.Unlock()

	if shouldFlush {
		return t.Flush(context.Background())
	}
	return nil
}

// Remove forgets path's checksum (used when a file is deleted).
func (t *JSONChangeTracker) Remove(_ context.Context, path string) error {
	t.mu.Lock()
	delete(t.checksums, path)
	t.mu.Unlock()
	return nil
}

// Flush persists the checksum map via temp-file-then-rename, skipping
// the write (without error) when free disk space is below the 1 GiB
// floor so a low-space condition can't leave a truncated state file.
func (t *JSONChangeTracker) Flush(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

func (t *JSONChangeTracker) flushLocked() error {
	if t.dirty == 0 {
		return nil
	}

	ok, err := hasFreeDiskSpace(filepath.Dir(t.path), minFreeBytesForPersist)
	if err != nil {
		return fmt.Errorf("check disk space for change tracker: %w", err)
	}
	if !ok {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create change tracker directory: %w", err)
	}

	data, err := json.Marshal(t.checksums)
	if err != nil {
		return fmt.Errorf("encode change tracker state: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write change tracker temp file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename change tracker state: %w", err)
	}

	t.dirty = 0
	return nil
}

// Reset empties the in-memory checksum map and removes the persisted
// file, used by clear_all (spec §4.4: "delete the persisted files").
func (t *JSONChangeTracker) Reset(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.checksums = make(map[string]string)
	t.dirty = 0
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove change tracker state: %w", err)
	}
	return nil
}

// Close flushes any unwritten checksums.
func (t *JSONChangeTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

func hasFreeDiskSpace(dir string, minBytes uint64) (bool, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	free := stat.Bavail * uint64(stat.Bsize)
	return free >= minBytes, nil
}

var _ ChangeTracker = (*JSONChangeTracker)(nil)
