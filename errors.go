package fetchbridge

import (
	"errors"
	"fmt"
)

// ErrorCode classifies dispatch errors. Non-2xx HTTP statuses are never
// errors in either transport path; status interpretation belongs to the
// caller.
type ErrorCode int

const (
	// ErrCodeUnknown is the zero value for unclassified failures.
	ErrCodeUnknown ErrorCode = iota
	// ErrCodeInvalidRequest indicates the request could not be normalized
	// (bad URL, unsupported scheme, unreadable body, invalid header).
	ErrCodeInvalidRequest
	// ErrCodeConnection indicates a transport-level failure before response
	// headers arrived (DNS, dial, TLS handshake, request write).
	ErrCodeConnection
	// ErrCodeProtocol indicates a malformed response (status line, headers,
	// or framing) from the peer.
	ErrCodeProtocol
	// ErrCodeStream indicates a failure after response headers were already
	// delivered; it surfaces only on body reads, never from Do.
	ErrCodeStream
	// ErrCodeCanceled indicates the caller's context ended the request.
	ErrCodeCanceled
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInvalidRequest:
		return "invalid_request"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeProtocol:
		return "protocol"
	case ErrCodeStream:
		return "stream"
	case ErrCodeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is a structured dispatch error with classification.
type Error struct {
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Transport names the transport that produced the error, when known.
	Transport string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Transport != "" {
		return fmt.Sprintf("fetchbridge: %s (%s): %s", e.Code, e.Transport, e.Message)
	}
	return fmt.Sprintf("fetchbridge: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInvalidRequestError creates an invalid-request error.
func NewInvalidRequestError(msg string) *Error {
	return &Error{Code: ErrCodeInvalidRequest, Message: msg}
}

// NewConnectionError creates a connection error for the named transport.
func NewConnectionError(transport string, err error) *Error {
	return &Error{Code: ErrCodeConnection, Transport: transport, Message: err.Error(), Err: err}
}

// NewProtocolError creates a protocol error for the named transport.
func NewProtocolError(transport, msg string) *Error {
	return &Error{Code: ErrCodeProtocol, Transport: transport, Message: msg}
}

// NewStreamError creates a mid-stream error.
func NewStreamError(err error) *Error {
	return &Error{Code: ErrCodeStream, Transport: "socket", Message: err.Error(), Err: err}
}

// NewCanceledError creates a cancellation error.
func NewCanceledError(transport string, err error) *Error {
	return &Error{Code: ErrCodeCanceled, Transport: transport, Message: err.Error(), Err: err}
}

// IsInvalidRequest checks if an error is an invalid-request error.
func IsInvalidRequest(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeInvalidRequest
}

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeConnection
}

// IsProtocol checks if an error is a protocol error.
func IsProtocol(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeProtocol
}

// IsStream checks if an error is a mid-stream error.
func IsStream(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeStream
}

// IsCanceled checks if an error is a cancellation error.
func IsCanceled(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeCanceled
}
