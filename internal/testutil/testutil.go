// Package testutil provides testing utilities for linelog tests.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// SetupLogFolder creates a temporary log folder and returns its path. The
// folder is removed when the test completes.
func SetupLogFolder(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "logs")
}

// SetupLogFolderWithFiles creates a log folder holding the given files. The
// files map contains file names to contents.
func SetupLogFolderWithFiles(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := SetupLogFolder(t)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create log folder: %v", err)
	}
	for name, content := range files {
		WriteFile(t, filepath.Join(dir, name), content)
	}
	return dir
}

// WriteFile creates or replaces path with content.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return string(data)
}

// FileExists reports whether path exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()

	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("failed to stat %s: %v", path, err)
	}
	return err == nil
}

// SetModTime sets both access and modification time of path.
func SetModTime(t *testing.T, path string, when time.Time) {
	t.Helper()

	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("failed to set times on %s: %v", path, err)
	}
}

// Clock is a settable time source for code that accepts func() time.Time.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FailureRecorder collects failures reported by a store.
type FailureRecorder struct {
	mu       sync.Mutex
	failures []Failure
}

// Failure is one reported store failure.
type Failure struct {
	Op   string
	Path string
	Err  error
}

// Failure records a failure. It satisfies store.FallbackSink.
func (r *FailureRecorder) Failure(op, path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, Failure{Op: op, Path: path, Err: err})
}

// Failures returns a copy of the recorded failures.
func (r *FailureRecorder) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Failure(nil), r.failures...)
}
