package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// StackTracer is implemented by errors that carry the call stack of their
// origin. Loggers prefer this trace over capturing their own.
type StackTracer interface {
	StackTrace() string
}

// stackError annotates an error with the stack captured at WithStack.
type stackError struct {
	err   error
	stack string
}

func (e *stackError) Error() string      { return e.err.Error() }
func (e *stackError) Unwrap() error      { return e.err }
func (e *stackError) StackTrace() string { return e.stack }

// WithStack records the caller's stack on err. Returns nil for a nil error.
//
// Example:
//
//	if err := charge(card); err != nil {
//	    return errors.WithStack(err)
//	}
func WithStack(err error) error {
	if err == nil {
		return nil
	}
	return &stackError{err: err, stack: CaptureStack(1)}
}

// StackOf returns the first stack trace found in err's chain, or "".
func StackOf(err error) string {
	var tracer StackTracer
	if err != nil && As(err, &tracer) {
		return tracer.StackTrace()
	}
	return ""
}

// maxStackDepth bounds captured traces.
const maxStackDepth = 64

// CaptureStack formats the current goroutine's stack, one frame per line,
// starting skip frames above the caller of CaptureStack. Runtime frames are
// dropped.
func CaptureStack(skip int) string {
	pcs := make([]uintptr, maxStackDepth)
	// 0 = runtime.Callers, 1 = CaptureStack, 2 = its caller.
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			fmt.Fprintf(&sb, "at %s (%s:%d)", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return sb.String()
}
