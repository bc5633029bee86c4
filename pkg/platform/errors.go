package platform

import "errors"

var (
	// ErrChannelNotFound means no channel is registered under the name.
	ErrChannelNotFound = errors.New("platform channel not found")

	// ErrMethodNotFound means the receiving side has no handler for the method.
	ErrMethodNotFound = errors.New("method not implemented")

	// ErrPlatformUnavailable means no native bridge has been set.
	ErrPlatformUnavailable = errors.New("platform feature unavailable")

	// ErrClosed means the channel or stream was already shut down.
	ErrClosed = errors.New("platform: channel closed")
)

// ChannelError is an error raised by native code, identified by Code.
type ChannelError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewChannelError returns a ChannelError without details.
func NewChannelError(code, message string) *ChannelError {
	return &ChannelError{Code: code, Message: message}
}

func (e *ChannelError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// Is matches another *ChannelError with the same Code, so callers can test
// for a native error code with errors.Is(err, &ChannelError{Code: "..."}).
func (e *ChannelError) Is(target error) bool {
	t, ok := target.(*ChannelError)
	return ok && t.Code == e.Code
}
