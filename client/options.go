// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package client

import "github.com/wl-core/wlcore/internal/wlenv"

// Option configures a Display at Connect time, mirroring the teacher
// package's functional-option pattern (framer.Option).
type Option func(*options)

type options struct {
	debug          bool
	debugSet       bool
	maxMessageSize int
	socketPath     string
	lookup         wlenv.Lookup
}

func defaultOptions() *options {
	return &options{maxMessageSize: 4096}
}

// WithDebug forces WAYLAND_DEBUG-style tracing on or off regardless of the
// environment variable.
func WithDebug(enabled bool) Option {
	return func(o *options) { o.debug = enabled; o.debugSet = true }
}

// WithMaxMessageSize stores n, in bytes, as the connection's maximum message
// size. Display does not read the stored value: message sizes are bounded
// only by the socket package's buffer sizes (MaxBytesOut).
func WithMaxMessageSize(n int) Option {
	return func(o *options) { o.maxMessageSize = n }
}

// WithSocketPath connects to an explicit socket path, bypassing
// WAYLAND_SOCKET/WAYLAND_DISPLAY resolution entirely.
func WithSocketPath(path string) Option {
	return func(o *options) { o.socketPath = path }
}

// withLookup substitutes the environment lookup function; used by tests.
func withLookup(l wlenv.Lookup) Option {
	return func(o *options) { o.lookup = l }
}
