package filelock

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Registry hands out one mutex per log folder. Every store writing into the
// same folder acquires a Handle from the same Registry and so shares the
// same mutex, which totally orders their writes and renames.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry // cleaned absolute folder -> shared lock
	now     func() time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var process = NewRegistry()

// Process returns the process-wide registry.
func Process() *Registry {
	return process
}

// Handle is one holder's reference to a folder lock. It is safe for
// concurrent use; Lock and Unlock behave like sync.Mutex.
type Handle struct {
	reg      *Registry
	folder   string
	entry    *entry
	released atomic.Bool
}

// Acquire returns a handle on the lock for folder, creating the lock on
// first use. Paths are compared after filepath.Abs and filepath.Clean, so
// "logs" and "./logs/" share a lock.
func (r *Registry) Acquire(folder string) (*Handle, error) {
	key, err := normalize(folder)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		e = &entry{acquiredAt: r.now()}
		r.entries[key] = e
	}
	e.holders++
	return &Handle{reg: r, folder: key, entry: e}, nil
}

// release drops one holder and forgets the folder when none remain.
func (r *Registry) release(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h.entry.holders--
	if h.entry.holders <= 0 {
		delete(r.entries, h.folder)
	}
}

// Claims returns the folders with live handles, sorted by path for
// deterministic output.
func (r *Registry) Claims() []Claim {
	r.mu.Lock()
	defer r.mu.Unlock()

	claims := make([]Claim, 0, len(r.entries))
	for folder, e := range r.entries {
		claims = append(claims, Claim{Folder: folder, Holders: e.holders, AcquiredAt: e.acquiredAt})
	}
	sort.Slice(claims, func(i, j int) bool {
		return claims[i].Folder < claims[j].Folder
	})
	return claims
}

// IsHeld returns true if any live handle exists for folder.
func (r *Registry) IsHeld(folder string) bool {
	key, err := normalize(folder)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// Lock blocks until the folder lock is held.
func (h *Handle) Lock() {
	h.entry.mu.Lock()
}

// Unlock releases the folder lock.
func (h *Handle) Unlock() {
	h.entry.mu.Unlock()
}

// Folder returns the cleaned absolute folder path.
func (h *Handle) Folder() string {
	return h.folder
}

// Release gives the handle back to the registry. It must not be called
// while the lock is held by the caller.
func (h *Handle) Release() error {
	if !h.released.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrReleased, h.folder)
	}
	h.reg.release(h)
	return nil
}

func normalize(folder string) (string, error) {
	if folder == "" {
		return "", ErrEmptyPath
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		return "", fmt.Errorf("resolve folder %s: %w", folder, err)
	}
	return filepath.Clean(abs), nil
}
