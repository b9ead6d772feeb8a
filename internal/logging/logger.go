package logging

import (
	"fmt"
	"time"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/metrics"
	"github.com/Iron-Ham/linelog/internal/record"
)

// Sink persists records. *store.Store implements it.
type Sink interface {
	Append(r record.Record)
	MinLevel() record.Level
}

// Logger writes records for one category. It is safe for concurrent use.
type Logger struct {
	sink     Sink
	category string
	isApp    bool
	context  string
	now      func() time.Time
}

// NewLogger returns a Logger writing to sink. It is the default Factory.
func NewLogger(sink Sink, category string, isApp bool) *Logger {
	return &Logger{
		sink:     sink,
		category: category,
		isApp:    isApp,
		now:      time.Now,
	}
}

// WithContext returns a child logger that stamps text as the Context of
// every record. The child shares the parent's sink.
func (l *Logger) WithContext(text string) *Logger {
	child := *l
	child.context = text
	return &child
}

// WithClock returns a child logger using now as its time source.
func (l *Logger) WithClock(now func() time.Time) *Logger {
	child := *l
	child.now = now
	return &child
}

// Category returns the normalized category, "" for the application root.
func (l *Logger) Category() string {
	return l.category
}

// IsAppCategory reports whether the category belongs to the application.
func (l *Logger) IsAppCategory() bool {
	return l.isApp
}

// Enabled reports whether records at level would be written.
func (l *Logger) Enabled(level record.Level) bool {
	return level >= l.sink.MinLevel() && level < record.LevelNone
}

// Log writes a record at level unless it is filtered out. fault may be nil.
func (l *Logger) Log(level record.Level, msg string, fault error) {
	l.log(level, msg, fault)
}

// Logf is Log with a formatted message and no fault.
func (l *Logger) Logf(level record.Level, format string, args ...any) {
	if !l.Enabled(level) {
		metrics.RecordDrop(metrics.DropBelowMin)
		return
	}
	l.log(level, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Trace(msg string)                 { l.log(record.LevelTrace, msg, nil) }
func (l *Logger) Debug(msg string)                 { l.log(record.LevelDebug, msg, nil) }
func (l *Logger) Info(msg string)                  { l.log(record.LevelInformation, msg, nil) }
func (l *Logger) Warn(msg string, fault error)     { l.log(record.LevelWarning, msg, fault) }
func (l *Logger) Error(msg string, fault error)    { l.log(record.LevelError, msg, fault) }
func (l *Logger) Critical(msg string, fault error) { l.log(record.LevelCritical, msg, fault) }

// log must be called directly by the exported method so the captured
// stack starts at that method's caller.
func (l *Logger) log(level record.Level, msg string, fault error) {
	if !l.Enabled(level) {
		metrics.RecordDrop(metrics.DropBelowMin)
		return
	}
	if errors.IsUserFacing(fault) {
		metrics.RecordDrop(metrics.DropUserFacing)
		return
	}
	if cf, ok := errors.AsClientFault(fault); ok {
		l.sink.Append(clientRecord(level, cf.Record))
		return
	}

	r := record.Record{
		Level:         level,
		Time:          record.TruncateTime(l.now()),
		Side:          record.SideServer,
		Category:      l.category,
		IsAppCategory: l.isApp,
		Context:       l.context,
		Message:       msg,
	}
	if r.Message == "" && fault != nil {
		r.Message = fault.Error()
	}

	switch {
	case errors.StackOf(fault) != "":
		r.StackTrace = errors.StackOf(fault)
	case fault != nil:
		r.StackTrace = fault.Error()
	case level >= record.LevelError:
		// 0 = log, 1 = the exported method, 2 = its caller.
		r.StackTrace = errors.CaptureStack(2)
	}

	l.sink.Append(r)
}

// clientRecord re-emits a client's record at the call level. Occurrence
// counts above one are appended as a final message line.
func clientRecord(level record.Level, cr record.ClientRecord) record.Record {
	r := cr.Record
	r.Level = level
	r.Side = record.SideClient
	if n := cr.Occurrences(); n > 1 {
		r.Message = fmt.Sprintf("%s\n(repeated %d times)", r.Message, n)
	}
	return r
}
