package errors

import (
	"fmt"
	"io"
	"os"
)

// LogHandler is a Handler that writes reported errors to stderr.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
	// Out overrides the destination. Nil means os.Stderr.
	Out io.Writer
}

func (h *LogHandler) out() io.Writer {
	if h.Out != nil {
		return h.Out
	}
	return os.Stderr
}

// HandleError logs a PlatformError.
func (h *LogHandler) HandleError(err *PlatformError) {
	if err == nil {
		return
	}
	w := h.out()
	if !h.Verbose {
		fmt.Fprintf(w, "[permissions error] %s: %v\n", err.Op, err.Err)
		return
	}
	fmt.Fprintf(w, "[permissions error] %s [%s]", err.Op, err.Kind)
	if err.Channel != "" {
		fmt.Fprintf(w, " channel=%s", err.Channel)
	}
	if err.Permission != "" {
		fmt.Fprintf(w, " permission=%s", err.Permission)
	}
	fmt.Fprintf(w, ": %v\n", err.Err)
	if err.StackTrace != "" {
		fmt.Fprintf(w, "Stack trace:\n%s\n", err.StackTrace)
	}
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	w := h.out()
	if err.Op != "" {
		fmt.Fprintf(w, "[permissions panic] %s: %v\n", err.Op, err.Value)
	} else {
		fmt.Fprintf(w, "[permissions panic] %v\n", err.Value)
	}
	if h.Verbose && err.StackTrace != "" {
		fmt.Fprintf(w, "Stack trace:\n%s\n", err.StackTrace)
	}
}
