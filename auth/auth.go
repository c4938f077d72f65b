// Package auth validates client credentials during the WebSocket handshake.
// The credential travels either in an HTTP header of the upgrade request or
// in the first text frame of the established connection; the Mode picked by
// the host decides which, and how the token is verified.
package auth

import (
	"fmt"
	"net/http"
)

// Mode selects how (and whether) client connections are authenticated. A
// Mode is immutable after construction and shared by every session of a
// service.
type Mode interface {
	// RequiresFirstFrame reports whether the credential arrives in the first
	// websocket text frame instead of an HTTP header of the upgrade request.
	RequiresFirstFrame() bool

	// ValidateRequest checks credentials carried by the upgrade request
	// headers. It is only consulted when RequiresFirstFrame is false.
	ValidateRequest(header http.Header) error

	// ValidateFrame checks credentials carried by the first text frame.
	// uriPath is the path of the upgrade request; it participates in
	// api-key signatures.
	ValidateFrame(uriPath string, frame []byte) error
}

// UnauthorizedError is the single rejection kind: every failed validation
// maps to it, carrying a human-readable reason. The transport turns it into
// HTTP 401 or a policy-violation close.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return e.Reason
}

// Unauthorized builds an UnauthorizedError from a format string.
func Unauthorized(format string, args ...interface{}) *UnauthorizedError {
	return &UnauthorizedError{Reason: fmt.Sprintf(format, args...)}
}

// None disables authentication: every connection is accepted.
type None struct{}

func (None) RequiresFirstFrame() bool { return false }

func (None) ValidateRequest(http.Header) error { return nil }

func (None) ValidateFrame(string, []byte) error { return nil }
