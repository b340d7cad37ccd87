// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package wlenv reads the handful of environment variables the wire
// protocol runtime cares about, once, behind a small shim so tests can
// stub them without mutating the real process environment.
package wlenv

import "os"

// Lookup abstracts os.LookupEnv so tests can substitute a fake.
type Lookup func(key string) (string, bool)

// OS is the real, process-environment-backed Lookup.
var OS Lookup = os.LookupEnv

// Vars is a snapshot of the variables read once at connection/listener
// construction time, per the design note that environment is consulted at
// startup only, never re-read mid-connection.
type Vars struct {
	// WaylandDebug is true when WAYLAND_DEBUG is set to anything but
	// "" or "0".
	WaylandDebug bool
	// WaylandDisplay is the socket name or absolute path from
	// WAYLAND_DISPLAY, or "" if unset.
	WaylandDisplay string
	// WaylandSocket, if non-nil, is the already-connected fd named by
	// WAYLAND_SOCKET.
	WaylandSocket *int
	// XDGRuntimeDir is XDG_RUNTIME_DIR, or "" if unset.
	XDGRuntimeDir string
}

// Read snapshots the relevant variables via lookup.
func Read(lookup Lookup) Vars {
	if lookup == nil {
		lookup = OS
	}
	var v Vars
	if dbg, ok := lookup("WAYLAND_DEBUG"); ok && dbg != "" && dbg != "0" {
		v.WaylandDebug = true
	}
	if disp, ok := lookup("WAYLAND_DISPLAY"); ok {
		v.WaylandDisplay = disp
	}
	if sock, ok := lookup("WAYLAND_SOCKET"); ok && sock != "" {
		if fd, err := parseFd(sock); err == nil {
			v.WaylandSocket = &fd
		}
	}
	if dir, ok := lookup("XDG_RUNTIME_DIR"); ok {
		v.XDGRuntimeDir = dir
	}
	return v
}

func parseFd(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errNotANumber
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

var errNotANumber = &fdParseError{}

type fdParseError struct{}

func (*fdParseError) Error() string { return "wlenv: WAYLAND_SOCKET is not a valid fd number" }
