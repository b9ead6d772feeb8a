// Package record defines the value types persisted by the log store: the
// severity Level, the originating Side, a Record and its client-side
// specialization ClientRecord.
//
// Records are built at the call site, serialized once and never mutated.
// Reading a log file back produces fresh values with no identity relation to
// what was written.
package record

import (
	"fmt"
	"strings"
	"time"
)

// Level is an ordered severity. The zero value is LevelTrace.
type Level int

// Severity levels in increasing order. LevelNone sorts above every real level
// and is used to disable level-gated features.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInformation
	LevelWarning
	LevelError
	LevelCritical
	LevelNone
)

var levelNames = [...]string{
	LevelTrace:       "Trace",
	LevelDebug:       "Debug",
	LevelInformation: "Information",
	LevelWarning:     "Warning",
	LevelError:       "Error",
	LevelCritical:    "Critical",
	LevelNone:        "None",
}

// String returns the full level name as written to disk.
func (l Level) String() string {
	if l < LevelTrace || l > LevelNone {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// Letter returns the one-letter code used by level-set filters, or 0 for
// LevelNone and out-of-range values.
func (l Level) Letter() byte {
	if l < LevelTrace || l >= LevelNone {
		return 0
	}
	return levelNames[l][0]
}

// Valid reports whether l is one of the defined levels, LevelNone included.
func (l Level) Valid() bool {
	return l >= LevelTrace && l <= LevelNone
}

// ParseLevel converts a level name to a Level. Matching is case-insensitive
// and accepts the usual short aliases (info, warn, fatal).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "information", "info":
		return LevelInformation, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "critical", "fatal":
		return LevelCritical, nil
	case "none":
		return LevelNone, nil
	default:
		return LevelNone, fmt.Errorf("unknown level %q", s)
	}
}

// Levels returns every real level in ascending order, LevelNone excluded.
func Levels() []Level {
	return []Level{LevelTrace, LevelDebug, LevelInformation, LevelWarning, LevelError, LevelCritical}
}

// Side tells whether a record originated in the server process or was
// reported by a remote client.
type Side int

const (
	SideServer Side = iota
	SideClient
)

// String returns "Server" or "Client".
func (s Side) String() string {
	if s == SideClient {
		return "Client"
	}
	return "Server"
}

// ParseSide converts "server" or "client" (any case) to a Side.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "server":
		return SideServer, nil
	case "client":
		return SideClient, nil
	default:
		return SideServer, fmt.Errorf("unknown side %q", s)
	}
}

// Record is one persisted diagnostic event.
type Record struct {
	Level Level
	// Time has second precision and keeps its zone offset.
	Time time.Time
	Side Side
	// Category is an optional dotted name such as "MyApp.Billing.Invoices".
	Category string
	// IsAppCategory is true when Category is empty or lies under the host's
	// root namespace.
	IsAppCategory bool
	Context       string
	Message       string
	StackTrace    string
}

// Equal reports whether two records carry the same data. Times are compared
// as instants, so the same moment in two zones is equal.
func (r Record) Equal(o Record) bool {
	return r.Level == o.Level &&
		r.Time.Equal(o.Time) &&
		r.Side == o.Side &&
		r.Category == o.Category &&
		r.IsAppCategory == o.IsAppCategory &&
		r.Context == o.Context &&
		r.Message == o.Message &&
		r.StackTrace == o.StackTrace
}

// TruncateTime returns t cut to the second, the precision stored on disk.
func TruncateTime(t time.Time) time.Time {
	return t.Truncate(time.Second)
}
