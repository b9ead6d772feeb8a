package logging

import (
	"sync"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/record"
)

// DefaultCoalescerLimit is the number of distinct pending sources that
// forces a flush.
const DefaultCoalescerLimit = 256

// Coalescer buffers client records and merges records from the same source
// into one with a summed Count. Flush writes them through the registry as
// client faults, so they obey the usual level filtering.
type Coalescer struct {
	reg   *Registry
	limit int

	mu      sync.Mutex
	pending []record.ClientRecord
}

// NewCoalescer returns a Coalescer writing through reg. A limit of zero or
// less uses DefaultCoalescerLimit.
func NewCoalescer(reg *Registry, limit int) *Coalescer {
	if limit <= 0 {
		limit = DefaultCoalescerLimit
	}
	return &Coalescer{reg: reg, limit: limit}
}

// Add buffers cr, merging it into a pending record from the same source.
// The earliest record of a burst is kept. Reaching the limit flushes.
func (c *Coalescer) Add(cr record.ClientRecord) {
	cr.Side = record.SideClient

	c.mu.Lock()
	for i := range c.pending {
		if c.pending[i].SameSource(cr) {
			c.pending[i].Count = c.pending[i].Occurrences() + cr.Occurrences()
			c.mu.Unlock()
			return
		}
	}
	cr.Count = cr.Occurrences()
	c.pending = append(c.pending, cr)
	full := len(c.pending) >= c.limit
	c.mu.Unlock()

	if full {
		c.Flush()
	}
}

// Pending returns the number of buffered sources.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Flush writes every buffered record and returns how many were written
// to loggers.
func (c *Coalescer) Flush() int {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, cr := range batch {
		c.reg.Logger(cr.Category).Log(cr.Level, cr.Message, errors.NewClientFault(cr))
	}
	return len(batch)
}
