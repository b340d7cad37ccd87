// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package server

import "github.com/wl-core/wlcore/internal/wlenv"

// Option configures a Handle (or the Handle inside a Backend) at
// construction time, mirroring
// the teacher package's functional-option pattern.
type Option func(*options)

type options struct {
	debug      bool
	debugSet   bool
	socketMode uint32
	lookup     wlenv.Lookup
}

func defaultOptions() *options {
	o := &options{socketMode: 0o660}
	env := wlenv.Read(nil)
	o.debug = env.WaylandDebug
	return o
}

// WithDebug forces WAYLAND_DEBUG-style tracing on or off regardless of the
// environment variable.
func WithDebug(enabled bool) Option {
	return func(o *options) { o.debug = enabled; o.debugSet = true }
}

// WithSocketMode stores mode in the options (default 0660). Nothing reads
// the stored value: Bind and BindAuto take no options and always create
// the listening socket and its lockfile with mode 0660.
func WithSocketMode(mode uint32) Option {
	return func(o *options) { o.socketMode = mode }
}
