package errors

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"
	"time"
)

func TestPlatformErrorString(t *testing.T) {
	err := &PlatformError{
		Op:   "permissions.check",
		Kind: KindPlatform,
		Err:  stderrors.New("bridge down"),
	}
	want := "permissions.check [platform]: bridge down"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestPlatformErrorWithChannelAndPermission(t *testing.T) {
	err := &PlatformError{
		Op:         "permissions.check",
		Kind:       KindParsing,
		Channel:    "drift/permissions",
		Permission: "android.permission.CAMERA",
		Err:        &ParseError{Channel: "drift/permissions", DataType: "PermissionStatus", Got: nil},
	}
	got := err.Error()
	for _, want := range []string{"channel=drift/permissions", "permission=android.permission.CAMERA", "[parsing]"} {
		if !strings.Contains(got, want) {
			t.Errorf("error string %q should contain %q", got, want)
		}
	}
}

func TestPlatformErrorUnwrap(t *testing.T) {
	inner := stderrors.New("inner")
	err := &PlatformError{Op: "op", Err: inner}
	if !stderrors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindPlatform, "platform"},
		{KindParsing, "parsing"},
		{KindPanic, "panic"},
		{ErrorKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "boom", Timestamp: time.Now()}
	if got, want := err.Error(), "panic: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	err.Op = "permissions.outcome"
	if got, want := err.Error(), "panic in permissions.outcome: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseErrorString(t *testing.T) {
	err := &ParseError{Channel: "drift/permissions/results", DataType: "Outcome", Got: 123}
	want := "failed to parse Outcome from channel drift/permissions/results: got int"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestReport(t *testing.T) {
	var captured *PlatformError
	SetHandler(&testHandler{onError: func(err *PlatformError) { captured = err }})
	t.Cleanup(func() { SetHandler(nil) })

	Report(&PlatformError{Op: "test.op", Kind: KindPlatform, Err: stderrors.New("x")})

	if captured == nil {
		t.Fatal("expected error to be captured")
	}
	if captured.Op != "test.op" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.op")
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}

	// nil is ignored
	captured = nil
	Report(nil)
	if captured != nil {
		t.Error("Report(nil) should not reach the handler")
	}
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	SetHandler(&testHandler{onPanic: func(err *PanicError) { captured = err }})
	t.Cleanup(func() { SetHandler(nil) })

	func() {
		defer Recover("test.recover")
		panic("intentional test panic")
	}()

	if captured == nil {
		t.Fatal("expected panic to be recovered and captured")
	}
	if captured.Value != "intentional test panic" {
		t.Errorf("Value = %v, want %q", captured.Value, "intentional test panic")
	}
	if captured.Op != "test.recover" {
		t.Errorf("Op = %q, want %q", captured.Op, "test.recover")
	}
	if captured.StackTrace == "" {
		t.Error("expected stack trace")
	}
}

func TestCaptureStack(t *testing.T) {
	stack := CaptureStack()
	if stack == "" {
		t.Fatal("expected non-empty stack trace")
	}
	if !strings.Contains(stack, "testing.tRunner") {
		t.Errorf("stack trace should start at the test runner, got: %s", stack)
	}
	if strings.Contains(stack, "errors.CaptureStack") {
		t.Errorf("stack trace should skip CaptureStack itself, got: %s", stack)
	}
}

func TestSetHandlerNil(t *testing.T) {
	SetHandler(&testHandler{})
	SetHandler(nil)
	if _, ok := CurrentHandler().(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should set LogHandler, got %T", CurrentHandler())
	}
}

func TestLogHandler(t *testing.T) {
	err := &PlatformError{
		Op:         "permissions.check",
		Kind:       KindPlatform,
		Channel:    "drift/permissions",
		Permission: "android.permission.CAMERA",
		Err:        stderrors.New("bridge down"),
		StackTrace: "frame",
	}

	t.Run("terse", func(t *testing.T) {
		var buf bytes.Buffer
		h := &LogHandler{Out: &buf}
		h.HandleError(err)
		want := "[permissions error] permissions.check: bridge down\n"
		if buf.String() != want {
			t.Errorf("output = %q, want %q", buf.String(), want)
		}
	})

	t.Run("verbose", func(t *testing.T) {
		var buf bytes.Buffer
		h := &LogHandler{Verbose: true, Out: &buf}
		h.HandleError(err)
		out := buf.String()
		for _, want := range []string{"[platform]", "channel=drift/permissions", "permission=android.permission.CAMERA", "Stack trace:\nframe"} {
			if !strings.Contains(out, want) {
				t.Errorf("output %q should contain %q", out, want)
			}
		}
	})

	t.Run("panic", func(t *testing.T) {
		var buf bytes.Buffer
		h := &LogHandler{Out: &buf}
		h.HandlePanic(&PanicError{Op: "permissions.outcome", Value: "boom"})
		want := "[permissions panic] permissions.outcome: boom\n"
		if buf.String() != want {
			t.Errorf("output = %q, want %q", buf.String(), want)
		}
	})
}

type testHandler struct {
	onError func(*PlatformError)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *PlatformError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
