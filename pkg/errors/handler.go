package errors

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

var (
	handlerMu sync.RWMutex
	handler   Handler = &LogHandler{}
)

// SetHandler installs h as the process-wide error handler. A nil h restores
// a non-verbose LogHandler writing to stderr.
func SetHandler(h Handler) {
	if h == nil {
		h = &LogHandler{}
	}
	handlerMu.Lock()
	handler = h
	handlerMu.Unlock()
}

// CurrentHandler returns the installed error handler.
func CurrentHandler() Handler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return handler
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

// Report passes err to the current handler, filling in Timestamp when unset.
func Report(err *PlatformError) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	CurrentHandler().HandleError(err)
}

// ReportPanic passes a recovered panic to the current handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	CurrentHandler().HandlePanic(err)
}

// Recover reports a panic in progress as a PanicError tagged with op. It
// must be called directly by a deferred statement:
//
//	defer errors.Recover("permissions.outcome")
func Recover(op string) {
	r := recover()
	if r == nil {
		return
	}
	ReportPanic(&PanicError{Op: op, Value: r, StackTrace: CaptureStack()})
}

// maxStackDepth bounds the frames CaptureStack records.
const maxStackDepth = 32

// CaptureStack formats the stack of its caller's caller, one
// "function\n\tfile:line" entry per frame.
func CaptureStack() string {
	pcs := make([]uintptr, maxStackDepth)
	n := runtime.Callers(3, pcs)
	if n == 0 {
		return ""
	}

	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for more := true; more; {
		var frame runtime.Frame
		frame, more = frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
	}
	return sb.String()
}
