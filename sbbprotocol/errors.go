package sbbprotocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for the sys-botbase protocol.
var (
	// ErrTimeout indicates a command did not complete within its deadline.
	ErrTimeout = errors.New("command timed out")

	// ErrInvalidEndpoint indicates a host/port pair that cannot be dialed.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)

// ProtocolError represents a malformed command or reply.
type ProtocolError struct {
	Kind  ProtocolErrorKind
	Value string // The offending value, truncated for long replies
}

// ProtocolErrorKind categorizes protocol errors.
type ProtocolErrorKind int

const (
	// ErrKindInvalidCommand indicates an empty command or one containing a line break.
	ErrKindInvalidCommand ProtocolErrorKind = iota
	// ErrKindLineTooLong indicates a reply exceeded the configured read limit.
	ErrKindLineTooLong
	// ErrKindUnterminated indicates the peer closed the stream mid-reply.
	ErrKindUnterminated
	// ErrKindUnexpectedResponse indicates a reply could not be decoded as requested.
	ErrKindUnexpectedResponse
)

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	switch e.Kind {
	case ErrKindInvalidCommand:
		return fmt.Sprintf("invalid command %q", e.Value)
	case ErrKindLineTooLong:
		return fmt.Sprintf("reply exceeds %s bytes without terminator", e.Value)
	case ErrKindUnterminated:
		return fmt.Sprintf("unterminated reply %q", e.Value)
	case ErrKindUnexpectedResponse:
		return fmt.Sprintf("unexpected response: %s", e.Value)
	default:
		return fmt.Sprintf("protocol error: %s", e.Value)
	}
}

func newInvalidCommandError(cmd string) error {
	return &ProtocolError{Kind: ErrKindInvalidCommand, Value: cmd}
}

func newLineTooLongError(limit int) error {
	return &ProtocolError{Kind: ErrKindLineTooLong, Value: fmt.Sprint(limit)}
}

func newUnterminatedError(partial []byte) error {
	const maxShown = 64
	if len(partial) > maxShown {
		partial = partial[:maxShown]
	}
	return &ProtocolError{Kind: ErrKindUnterminated, Value: string(partial)}
}

func newUnexpectedResponseError(format string, args ...any) error {
	return &ProtocolError{Kind: ErrKindUnexpectedResponse, Value: fmt.Sprintf(format, args...)}
}

// ConnectionError represents a connection-related error.
type ConnectionError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("connection failed: %s", e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, cause error) error {
	return &ConnectionError{Message: message, Cause: cause}
}

// timeoutError wraps the cause of a timeout so that both ErrTimeout and the
// cause (os.ErrDeadlineExceeded, context.DeadlineExceeded, ...) match errors.Is.
type timeoutError struct {
	op    string
	cause error
}

func (e *timeoutError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.op, ErrTimeout, e.cause)
	}
	return fmt.Sprintf("%s: %v", e.op, ErrTimeout)
}

func (e *timeoutError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrTimeout}
	}
	return []error{ErrTimeout, e.cause}
}

func newTimeoutError(op string, cause error) error {
	return &timeoutError{op: op, cause: cause}
}

// IsConnectionError reports whether err is or wraps a *ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsProtocolError reports whether err is or wraps a *ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsTimeout reports whether err is a command timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
