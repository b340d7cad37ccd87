// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wltunnel carries a Wayland connection's byte stream across a
// transport that does not preserve message boundaries or pass file
// descriptors on its own, such as a TCP socket. A Wayland wire message's
// length already lives in its header, so in principle nothing needs to be
// added for a byte-stream transport to carry it correctly; in practice a
// relay has to know where one message ends and the next begins without
// re-parsing the Wayland signature table, which is what this package's
// framing buys it. This is the same problem tools like waypipe solve when
// they tunnel a compositor session to a remote host.
//
// wlprobe's tunnel command is the only caller: it takes whatever one read
// returns from the compositor's unix socket (SeqPacket mode, pass-through,
// since the wire protocol already self-delimits there) and frames that
// chunk with a length prefix for the TCP leg (BinaryStream mode), and vice
// versa. A chunk need not hold exactly one Wayland message. Everything this
// package exports exists to serve that one relay;
// transport modes and helpers the relay never uses (UDP, SCTP, WebSocket,
// the standalone Reader/Writer wrappers) were trimmed rather than kept
// as unexercised surface.
//
// Ancillary data (the fds a Wayland message carries via SCM_RIGHTS) does not
// survive a TCP hop; a relay built on this package still needs its own
// side-channel for fds, the same constraint waypipe works around.
//
// Wire format (stream mode): a 1-byte header followed by optional extended length bytes
// and then the payload. Let L be payload length in bytes:
//   - 0 <= L <= 253: header[0] = L (no extended length)
//   - 254 <= L <= 65535: header[0] = 0xFE; next 2 bytes encode L (configured byte order)
//   - 65536 <= L <= 2^56-1: header[0] = 0xFF; next 7 bytes encode lower 56 bits of L
//     in the configured byte order
//
// Maximum supported payload is 2^56-1; larger values produce ErrTooLong. A per-reader
// limit can be set via WithReadLimit.
package wltunnel

import "code.hybscloud.com/iox"

// These are re-exposed as package-level aliases so callers can reference the
// semantic control-flow errors without importing iox directly.
var (
	// ErrWouldBlock means "no further progress without waiting".
	//
	// It is an expected, non-failure control-flow signal for non-blocking I/O.
	// Any returned byte count (n) still represents real progress.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrMore means "this completion is usable and more completions will follow".
	//
	// It is not io.EOF and not "try later". The operation remains active and
	// additional data/results are expected from the same ongoing operation.
	ErrMore = iox.ErrMore
)
