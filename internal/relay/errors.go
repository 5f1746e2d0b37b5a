package relay

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned by operations invoked after the session has
// entered its terminal state.
var ErrSessionClosed = errors.New("relay: session closed")

// ConnectionError is a connect-time failure (DNS, TLS, auth rejection). It is
// fatal: the session never reaches the active state and the error propagates
// to the caller of Connect. No retry is attempted inside the relay.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("relay: connect: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TransportError is a mid-session link failure. It terminates the affected
// pump and is treated as session-ending by the orchestrating layer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("relay: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
