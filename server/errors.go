// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package server

import "fmt"

// BindKind enumerates why Bind or BindAuto
// failed, preserved as distinct variants (rather than collapsed to a
// generic error) since callers are expected to special-case
// AlreadyInUse when probing for a free display name.
type BindKind int

const (
	BindRuntimeDirNotSet BindKind = iota
	BindPermissionDenied
	BindAlreadyInUse
	BindIO
)

// BindError reports a failure to bind a listening socket.
type BindError struct {
	Kind BindKind
	Path string
	Err  error
}

func (e *BindError) Error() string {
	switch e.Kind {
	case BindRuntimeDirNotSet:
		return "server: XDG_RUNTIME_DIR is not set"
	case BindPermissionDenied:
		return fmt.Sprintf("server: permission denied binding %s", e.Path)
	case BindAlreadyInUse:
		return fmt.Sprintf("server: socket %s is already in use", e.Path)
	default:
		return fmt.Sprintf("server: bind %s: %v", e.Path, e.Err)
	}
}

func (e *BindError) Unwrap() error { return e.Err }

// InitError reports a failure to create the backend's poll instance
// (epoll_create1/kqueue).
type InitError struct {
	Err error
}

func (e *InitError) Error() string { return fmt.Sprintf("server: poller init: %v", e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

// ProtocolError is posted to a client (wl_display.error) and also returned
// to server-side callers that triggered it via Handle.PostError.
type ProtocolError struct {
	ObjectID  uint32
	Code      uint32
	Interface string
	Message   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("server: protocol error %d on object %d (%s): %s", e.Code, e.ObjectID, e.Interface, e.Message)
}

// InvalidIDError reports a stale or unknown object id, by serial mismatch
// or absence from the map.
type InvalidIDError struct {
	ID uint32
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("server: object id %d is stale or unknown", e.ID)
}

// DisconnectReason explains why ClientData.Disconnected was invoked.
type DisconnectReason int

const (
	// DisconnectClosed means the client (or its process) closed the
	// connection cleanly.
	DisconnectClosed DisconnectReason = iota
	// DisconnectProtocolError means the server killed the client after a
	// protocol violation; see the accompanying *ProtocolError.
	DisconnectProtocolError
)

func (r DisconnectReason) String() string {
	if r == DisconnectProtocolError {
		return "protocol error"
	}
	return "connection closed"
}
