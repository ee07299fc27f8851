package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

var (
	// ErrSessionActive reports that a build session is already running in this worker.
	ErrSessionActive = New("a build session is already active")
	// ErrConnectionClosed reports that the controller connection is no longer usable.
	ErrConnectionClosed = New("connection to controller is closed")
	// ErrFrameTooLarge reports a frame length prefix beyond the allowed maximum.
	ErrFrameTooLarge = New("frame exceeds maximum size")
	// ErrMalformedFrame reports a frame that cannot be decoded.
	ErrMalformedFrame = New("malformed frame")
)

// IsProtocolError reports whether the error was caused by bytes received from the peer.
func IsProtocolError(e error) bool {
	return stderr.Is(e, ErrFrameTooLarge) || stderr.Is(e, ErrMalformedFrame)
}
