// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package wire translates between proto.Message values and the
// (u32 words, raw fds) buffer pairs that travel over a Wayland socket.
//
// It is bit-exact with the upstream Wayland wire protocol: every message is
// 2+N little-endian 32-bit words (sender id, then (length<<16)|opcode, then
// arguments in declaration order); Fd arguments consume no words and are
// instead taken from a parallel fd buffer filled by SCM_RIGHTS ancillary
// data at the socket layer. See proto.MessageDesc for how a signature
// describes the argument sequence.
//
// Grounded on the original implementation's wayland-backend/src/rs/wire.rs
// (write_to_buffers/parse_message); the buffer-cursor bookkeeping style
// (explicit write/read index, BufferTooSmall/MissingData as control-flow
// values rather than panics) follows this module's own socket package,
// which in turn follows the teacher package's internal framing state
// machine.
package wire

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/wl-core/wlcore/proto"
)

// WriteMessage serializes msg into words and fds, both supplied by the
// caller. It returns the number of words and fds written.
//
// Any Fd argument is dup()-ed with CLOEXEC before being enqueued, so the
// caller retains ownership of (and may close) the original descriptor. If
// the buffers are too small, ErrBufferTooSmall is returned and neither
// buffer is considered valid; if a dup fails, every duplicate made so far
// for this call is closed and a *DupFdError is returned.
func WriteMessage(msg proto.Message, words []uint32, fds []int) (wordsWritten, fdsWritten int, err error) {
	if len(words) < 2 {
		return 0, 0, ErrBufferTooSmall
	}

	widx := 2 // words[0:2] is the header, filled in last
	fidx := 0
	var madeDups []int

	closeDups := func() {
		for _, fd := range madeDups {
			_ = unix.Close(fd)
		}
	}

	for _, arg := range msg.Args {
		switch arg.Kind {
		case proto.Int:
			if widx >= len(words) {
				closeDups()
				return 0, 0, ErrBufferTooSmall
			}
			words[widx] = uint32(arg.Int)
			widx++
		case proto.Uint:
			if widx >= len(words) {
				closeDups()
				return 0, 0, ErrBufferTooSmall
			}
			words[widx] = arg.Uint
			widx++
		case proto.Fixed:
			if widx >= len(words) {
				closeDups()
				return 0, 0, ErrBufferTooSmall
			}
			words[widx] = uint32(arg.Fixed)
			widx++
		case proto.Object:
			if widx >= len(words) {
				closeDups()
				return 0, 0, ErrBufferTooSmall
			}
			words[widx] = arg.Object
			widx++
		case proto.NewID:
			if widx >= len(words) {
				closeDups()
				return 0, 0, ErrBufferTooSmall
			}
			words[widx] = arg.NewID
			widx++
		case proto.Str:
			var n int
			if !arg.StrIsNull {
				n, err = writeArrayPayload(words, widx, []byte(arg.Str+"\x00"))
			} else {
				n, err = writeArrayPayload(words, widx, nil)
			}
			if err != nil {
				closeDups()
				return 0, 0, err
			}
			widx += n
		case proto.Array:
			var n int
			if !arg.ArrayIsNull {
				n, err = writeArrayPayload(words, widx, arg.Array)
			} else {
				n, err = writeArrayPayload(words, widx, nil)
			}
			if err != nil {
				closeDups()
				return 0, 0, err
			}
			widx += n
		case proto.Fd:
			if fidx >= len(fds) {
				closeDups()
				return 0, 0, ErrBufferTooSmall
			}
			dup, derr := unix.FcntlInt(uintptr(arg.Fd), unix.F_DUPFD_CLOEXEC, 0)
			if derr != nil {
				closeDups()
				return 0, 0, &DupFdError{Err: derr}
			}
			madeDups = append(madeDups, dup)
			fds[fidx] = dup
			fidx++
		}
	}

	wroteBytes := widx * 4
	words[0] = msg.SenderID
	words[1] = (uint32(wroteBytes) << 16) | uint32(msg.Opcode)
	// The dup'd fds are now owned by the caller (they'll be handed to
	// sendmsg); don't close them.
	return widx, fidx, nil
}

// writeArrayPayload writes a length-prefixed, NUL/zero-padded byte array
// (used for both Str and Array arguments) into words starting at idx, and
// returns the number of words consumed (1 header word + ceil(len/4)).
func writeArrayPayload(words []uint32, idx int, b []byte) (int, error) {
	wordLen := (len(b) + 3) / 4
	if idx+1+wordLen > len(words) {
		return 0, ErrBufferTooSmall
	}
	words[idx] = uint32(len(b))
	packBytes(words, idx+1, b)
	return 1 + wordLen, nil
}

func packBytes(dst []uint32, start int, b []byte) {
	full := len(b) / 4
	for i := 0; i < full; i++ {
		dst[start+i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if rem := len(b) % 4; rem != 0 {
		var last [4]byte
		copy(last[:], b[full*4:])
		dst[start+full] = binary.LittleEndian.Uint32(last[:])
	}
}

func unpackBytes(src []uint32, start, wordLen, byteLen int) []byte {
	if byteLen == 0 {
		return nil
	}
	b := make([]byte, byteLen)
	var buf [4]byte
	for i := 0; i < wordLen; i++ {
		binary.LittleEndian.PutUint32(buf[:], src[start+i])
		copy(b[i*4:], buf[:])
	}
	return b
}

// ParseMessage attempts to parse a single Wayland message conforming to sig
// out of words/fds. If words holds several messages back to back, only the
// first is parsed; the returned restWords/restFds are the unconsumed tail.
func ParseMessage(words []uint32, sig proto.Signature, fds []int) (msg proto.Message, restWords []uint32, restFds []int, err error) {
	if len(words) < 2 {
		return proto.Message{}, words, fds, ErrMissingData
	}

	senderID := words[0]
	word2 := words[1]
	opcode := uint16(word2 & 0x0000FFFF)
	byteLen := int(word2 >> 16)
	lenWords := byteLen / 4

	if lenWords < 2 || byteLen%4 != 0 {
		return proto.Message{}, words, fds, ErrMalformed
	}
	if lenWords > len(words) {
		return proto.Message{}, words, fds, ErrMissingData
	}

	payload := words[2:lenWords]
	rest := words[lenWords:]
	remainingFds := fds

	args := make([]proto.Argument, 0, len(sig))
	for _, t := range sig {
		switch t {
		case proto.Fd:
			if len(remainingFds) == 0 {
				return proto.Message{}, words, fds, ErrMissingFd
			}
			args = append(args, proto.ArgFd(remainingFds[0]))
			remainingFds = remainingFds[1:]
		case proto.Int:
			if len(payload) == 0 {
				return proto.Message{}, words, fds, ErrMissingData
			}
			args = append(args, proto.ArgInt(int32(payload[0])))
			payload = payload[1:]
		case proto.Uint:
			if len(payload) == 0 {
				return proto.Message{}, words, fds, ErrMissingData
			}
			args = append(args, proto.ArgUint(payload[0]))
			payload = payload[1:]
		case proto.Fixed:
			if len(payload) == 0 {
				return proto.Message{}, words, fds, ErrMissingData
			}
			args = append(args, proto.ArgFixed(proto.Fixed(payload[0])))
			payload = payload[1:]
		case proto.Object:
			if len(payload) == 0 {
				return proto.Message{}, words, fds, ErrMissingData
			}
			id := payload[0]
			a := proto.ArgObject(id)
			a.ObjectIsNull = id == 0
			args = append(args, a)
			payload = payload[1:]
		case proto.NewID:
			if len(payload) == 0 {
				return proto.Message{}, words, fds, ErrMissingData
			}
			args = append(args, proto.ArgNewID(payload[0]))
			payload = payload[1:]
		case proto.Str:
			b, tail, perr := readArrayPayload(payload)
			if perr != nil {
				return proto.Message{}, words, fds, perr
			}
			payload = tail
			if len(b) == 0 {
				args = append(args, proto.ArgNullString())
				continue
			}
			if b[len(b)-1] != 0 {
				return proto.Message{}, words, fds, ErrMalformed
			}
			args = append(args, proto.ArgString(string(b[:len(b)-1])))
		case proto.Array:
			b, tail, perr := readArrayPayload(payload)
			if perr != nil {
				return proto.Message{}, words, fds, perr
			}
			payload = tail
			if len(b) == 0 {
				args = append(args, proto.ArgNullArray())
				continue
			}
			args = append(args, proto.ArgArray(b))
		}
	}

	msg = proto.Message{SenderID: senderID, Opcode: opcode, Args: args}
	return msg, rest, remainingFds, nil
}

func readArrayPayload(payload []uint32) (b []byte, rest []uint32, err error) {
	if len(payload) == 0 {
		return nil, payload, ErrMissingData
	}
	arrayLen := int(payload[0])
	wordLen := arrayLen / 4
	if arrayLen%4 != 0 {
		wordLen++
	}
	if 1+wordLen > len(payload) {
		return nil, payload, ErrMissingData
	}
	b = unpackBytes(payload, 1, wordLen, arrayLen)
	return b, payload[1+wordLen:], nil
}
