// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"os"
	"testing"

	"github.com/wl-core/wlcore/proto"
)

func TestWriteReadCycle(t *testing.T) {
	msg := proto.Message{
		SenderID: 2,
		Opcode:   3,
		Args: []proto.Argument{
			proto.ArgUint(1),
			proto.ArgInt(-2),
			proto.ArgFixed(proto.FixedFromFloat64(3.5)),
			proto.ArgString("hello"),
			proto.ArgArray([]byte{1, 2, 3, 4, 5}),
			proto.ArgObject(18),
			proto.ArgNewID(42),
		},
	}
	sig := proto.Signature{
		proto.Uint, proto.Int, proto.Fixed, proto.Str, proto.Array, proto.Object, proto.NewID,
	}

	words := make([]uint32, 64)
	n, fn, err := WriteMessage(msg, words, nil)
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if fn != 0 {
		t.Fatalf("expected 0 fds written, got %d", fn)
	}

	got, rest, restFds, err := ParseMessage(words[:n], sig, nil)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if len(rest) != 0 || len(restFds) != 0 {
		t.Fatalf("expected no leftover words/fds, got %d/%d", len(rest), len(restFds))
	}
	if got.SenderID != msg.SenderID || got.Opcode != msg.Opcode {
		t.Fatalf("header mismatch: got %+v", got)
	}
	if len(got.Args) != len(msg.Args) {
		t.Fatalf("arg count mismatch: got %d want %d", len(got.Args), len(msg.Args))
	}
	if got.Args[0].Uint != 1 {
		t.Errorf("arg0 = %d, want 1", got.Args[0].Uint)
	}
	if got.Args[1].Int != -2 {
		t.Errorf("arg1 = %d, want -2", got.Args[1].Int)
	}
	if got.Args[2].Fixed.Float64() != 3.5 {
		t.Errorf("arg2 = %v, want 3.5", got.Args[2].Fixed.Float64())
	}
	if got.Args[3].Str != "hello" {
		t.Errorf("arg3 = %q, want hello", got.Args[3].Str)
	}
	if string(got.Args[4].Array) != "\x01\x02\x03\x04\x05" {
		t.Errorf("arg4 = %v, want 1..5", got.Args[4].Array)
	}
	if got.Args[5].Object != 18 {
		t.Errorf("arg5 = %d, want 18", got.Args[5].Object)
	}
	if got.Args[6].NewID != 42 {
		t.Errorf("arg6 = %d, want 42", got.Args[6].NewID)
	}
}

func TestWriteReadCycleFd(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	msg := proto.Message{
		SenderID: 1,
		Opcode:   0,
		Args:     []proto.Argument{proto.ArgFd(int(r.Fd()))},
	}
	sig := proto.Signature{proto.Fd}

	words := make([]uint32, 8)
	fds := make([]int, 1)
	n, fn, err := WriteMessage(msg, words, fds)
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if fn != 1 {
		t.Fatalf("expected 1 fd written, got %d", fn)
	}
	defer func() {
		for _, fd := range fds[:fn] {
			os.NewFile(uintptr(fd), "dup").Close()
		}
	}()

	got, _, restFds, err := ParseMessage(words[:n], sig, fds[:fn])
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if len(restFds) != 0 {
		t.Fatalf("expected fd to be consumed, got %d left", len(restFds))
	}
	if got.Args[0].Fd == int(r.Fd()) {
		t.Errorf("parsed fd should be a dup, not the original descriptor")
	}
}

func TestWriteReadCycleMultiple(t *testing.T) {
	m1 := proto.Message{SenderID: 1, Opcode: 0, Args: []proto.Argument{proto.ArgUint(10)}}
	m2 := proto.Message{SenderID: 2, Opcode: 1, Args: []proto.Argument{proto.ArgUint(20)}}
	sig := proto.Signature{proto.Uint}

	words := make([]uint32, 16)
	n1, _, err := WriteMessage(m1, words, nil)
	if err != nil {
		t.Fatalf("WriteMessage m1: %v", err)
	}
	n2, _, err := WriteMessage(m2, words[n1:], nil)
	if err != nil {
		t.Fatalf("WriteMessage m2: %v", err)
	}

	all := words[:n1+n2]
	got1, rest, _, err := ParseMessage(all, sig, nil)
	if err != nil {
		t.Fatalf("ParseMessage m1: %v", err)
	}
	if got1.SenderID != 1 || got1.Args[0].Uint != 10 {
		t.Errorf("m1 mismatch: %+v", got1)
	}
	got2, rest2, _, err := ParseMessage(rest, sig, nil)
	if err != nil {
		t.Fatalf("ParseMessage m2: %v", err)
	}
	if len(rest2) != 0 {
		t.Fatalf("expected no leftover, got %d words", len(rest2))
	}
	if got2.SenderID != 2 || got2.Args[0].Uint != 20 {
		t.Errorf("m2 mismatch: %+v", got2)
	}
}

func TestParseStringLenMultipleOf4(t *testing.T) {
	// "abc" + NUL = 4 bytes, exactly one word of payload.
	msg := proto.Message{SenderID: 1, Opcode: 0, Args: []proto.Argument{proto.ArgString("abc")}}
	sig := proto.Signature{proto.Str}

	words := make([]uint32, 8)
	n, _, err := WriteMessage(msg, words, nil)
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 words (2 header + 1 len + 1 payload), got %d", n)
	}

	got, rest, _, err := ParseMessage(words[:n], sig, nil)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no leftover, got %d", len(rest))
	}
	if got.Args[0].Str != "abc" {
		t.Errorf("got %q, want abc", got.Args[0].Str)
	}
}

func TestWriteMessageBufferTooSmall(t *testing.T) {
	msg := proto.Message{SenderID: 1, Opcode: 0, Args: []proto.Argument{proto.ArgUint(1), proto.ArgUint(2)}}
	words := make([]uint32, 2)
	if _, _, err := WriteMessage(msg, words, nil); err != ErrBufferTooSmall {
		t.Fatalf("got %v, want ErrBufferTooSmall", err)
	}
}

func TestParseMessageMissingData(t *testing.T) {
	words := []uint32{1, (16 << 16) | 0}
	sig := proto.Signature{proto.Uint}
	if _, _, _, err := ParseMessage(words, sig, nil); err != ErrMissingData {
		t.Fatalf("got %v, want ErrMissingData", err)
	}
}

func TestParseMessageMalformedShortHeader(t *testing.T) {
	words := []uint32{1, (4 << 16) | 0}
	if _, _, _, err := ParseMessage(words, proto.Signature{}, nil); err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestParseMessageMissingFd(t *testing.T) {
	msg := proto.Message{SenderID: 1, Opcode: 0, Args: []proto.Argument{}}
	words := make([]uint32, 8)
	n, _, err := WriteMessage(msg, words, nil)
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	sig := proto.Signature{proto.Fd}
	if _, _, _, err := ParseMessage(words[:n], sig, nil); err != ErrMissingFd {
		t.Fatalf("got %v, want ErrMissingFd", err)
	}
}

func TestNullStringAndArray(t *testing.T) {
	msg := proto.Message{
		SenderID: 1,
		Opcode:   0,
		Args:     []proto.Argument{proto.ArgNullString(), proto.ArgNullArray()},
	}
	sig := proto.Signature{proto.Str, proto.Array}

	words := make([]uint32, 8)
	n, _, err := WriteMessage(msg, words, nil)
	if err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	got, _, _, err := ParseMessage(words[:n], sig, nil)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if !got.Args[0].StrIsNull {
		t.Errorf("expected null string")
	}
	if !got.Args[1].ArrayIsNull {
		t.Errorf("expected null array")
	}
}
