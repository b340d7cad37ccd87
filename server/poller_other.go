// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package server

import "errors"

// Backend on non-Linux platforms is a placeholder: the original supports
// BSD via kqueue (rs/server_impl/common_poll.rs's cfg(bsd) branch), but
// this module's kqueue wiring isn't implemented yet.
type Backend struct {
	*Handle
	listener *ListeningSocket
}

var errUnsupportedPlatform = errors.New("server: poller is only implemented for linux (epoll); kqueue support is not wired up yet")

// NewBackend always fails outside Linux; see errUnsupportedPlatform.
func NewBackend(listener *ListeningSocket, opts ...Option) (*Backend, error) {
	return nil, &InitError{Err: errUnsupportedPlatform}
}

func (b *Backend) AcceptPending(newData func() ClientData) error { return errUnsupportedPlatform }
func (b *Backend) DispatchAllClients(newData func() ClientData) error {
	return errUnsupportedPlatform
}
func (b *Backend) Close() error { return errUnsupportedPlatform }
