// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package wldebug implements WAYLAND_DEBUG message tracing: one structured
// log line per dispatched or sent message, written to stderr through
// zerolog's console writer for human readability.
package wldebug

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wl-core/wlcore/proto"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

func log() zerolog.Logger {
	once.Do(func() {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339Nano}
		logger = zerolog.New(w).With().Timestamp().Logger()
	})
	return logger
}

// Direction distinguishes an outbound request/event from an inbound one in
// the trace line.
type Direction string

const (
	Sent     Direction = "->"
	Received Direction = "<-"
)

// Trace emits one log line for a dispatched message, if enabled is true.
// Callers pass their own WAYLAND_DEBUG-derived flag rather than this
// package re-reading the environment, so the check stays a cheap boolean
// on the hot path.
func Trace(enabled bool, dir Direction, objectID uint32, iface *proto.Interface, opcode uint16, name string, args []proto.Argument) {
	if !enabled {
		return
	}
	argStrs := make([]string, len(args))
	for i, a := range args {
		argStrs[i] = a.String()
	}
	log().Debug().
		Str("dir", string(dir)).
		Uint32("object", objectID).
		Str("interface", iface.String()).
		Uint16("opcode", opcode).
		Str("message", name).
		Strs("args", argStrs).
		Msg("wayland")
}
