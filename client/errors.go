// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNoEndpoint reports that Connect had no socket path to dial: no
	// WithSocketPath option and no WAYLAND_SOCKET were given, and the
	// WAYLAND_DISPLAY name (default "wayland-0") is relative while
	// XDG_RUNTIME_DIR is unset.
	ErrNoEndpoint = errors.New("client: no wayland socket specified")
	// ErrDisconnected is returned by any operation on a Display whose
	// connection has already been torn down, by either side.
	ErrDisconnected = errors.New("client: connection closed")
)

// ProtocolError mirrors a wl_display.error event: the compositor has
// declared the connection dead because of a protocol violation.
type ProtocolError struct {
	ObjectID  uint32
	Code      uint32
	Interface string
	Message   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("client: protocol error %d on object %d (%s): %s", e.Code, e.ObjectID, e.Interface, e.Message)
}

// InvalidIDError reports that a cached ObjectID no longer names the object
// it was obtained for (the slot was recycled, bumping its serial).
type InvalidIDError struct {
	ID uint32
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("client: object id %d is stale or unknown", e.ID)
}
