// Package filelock provides the process-wide mutual exclusion shared by every
// log store writing into the same folder.
//
// Several loggers, and possibly several stores, funnel records into one log
// folder. Opening, writing, flushing, renaming and deleting files there must
// be totally ordered, so the [Registry] hands out one mutex per folder. Stores
// acquire a [Handle] when they are created and release it on Close.
//
// # Basic Usage
//
//	h, err := filelock.Process().Acquire("/var/log/myapp")
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//
//	h.Lock()
//	// open, write, rotate...
//	h.Unlock()
//
// # Scope
//
// Locks are in-memory only. Coordinating several processes over the same
// folder is out of scope.
//
// # Thread Safety
//
// All [Registry] and [Handle] methods are safe for concurrent use.
package filelock
