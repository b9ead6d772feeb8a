package filelock

import (
	"errors"
	"sync"
	"time"
)

// Sentinel errors returned by registry operations.
var (
	// ErrReleased is returned when a handle is released twice.
	ErrReleased = errors.New("folder lock already released")

	// ErrEmptyPath is returned when acquiring a lock for an empty folder path.
	ErrEmptyPath = errors.New("folder path is empty")
)

// Claim describes a folder lock currently held by one or more stores.
type Claim struct {
	Folder     string    // Cleaned absolute folder path
	Holders    int       // Number of live handles sharing the lock
	AcquiredAt time.Time // When the first handle was acquired
}

// entry is the shared state behind every handle for one folder.
type entry struct {
	mu         sync.Mutex
	holders    int
	acquiredAt time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for Claim.AcquiredAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}
