// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wltunnel

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
)

func TestFramerStreamRoundtrip(t *testing.T) {
	var wire bytes.Buffer
	w := newFramer(nil, &wire, WithProtocol(BinaryStream), WithByteOrder(binary.BigEndian))
	payload := []byte("wl_compositor.create_surface")
	if n, err := w.write(payload); err != nil || n != len(payload) {
		t.Fatalf("write: n=%d err=%v", n, err)
	}

	r := newFramer(bytes.NewReader(wire.Bytes()), nil, WithProtocol(BinaryStream), WithByteOrder(binary.BigEndian))
	got := make([]byte, len(payload))
	if _, err := r.read(nil); err != io.ErrShortBuffer {
		t.Fatalf("expected header parse to report ErrShortBuffer, got %v", err)
	}
	n, err := r.read(got)
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if string(got[:n]) != string(payload) {
		t.Fatalf("roundtrip mismatch: got %q want %q", got[:n], payload)
	}
}

func TestFramerStreamExtendedLength(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 300) // forces the 16-bit extended length path
	var wire bytes.Buffer
	w := newFramer(nil, &wire, WithProtocol(BinaryStream))
	if _, err := w.write(payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if wire.Bytes()[0] != framePayloadMaxLen8Bits+1 {
		t.Fatalf("expected 16-bit extended length marker, got %#x", wire.Bytes()[0])
	}

	r := newFramer(bytes.NewReader(wire.Bytes()), nil, WithProtocol(BinaryStream))
	r.read(nil)
	got := make([]byte, len(payload))
	if _, err := r.read(got); err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("extended-length payload mismatch")
	}
}

func TestFramerStreamReadLimit(t *testing.T) {
	var wire bytes.Buffer
	w := newFramer(nil, &wire, WithProtocol(BinaryStream))
	w.write(bytes.Repeat([]byte{1}, 64))

	r := newFramer(bytes.NewReader(wire.Bytes()), nil, WithProtocol(BinaryStream), WithReadLimit(16))
	if _, err := r.read(nil); err != ErrTooLong {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestFramerPacketPassthrough(t *testing.T) {
	packet := []byte("wl_surface.commit")
	r := newFramer(bytes.NewReader(packet), nil, WithProtocol(SeqPacket))
	got := make([]byte, len(packet)+16)
	n, err := r.read(got)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got[:n]) != string(packet) {
		t.Fatalf("packet passthrough mismatch: got %q", got[:n])
	}
}

func TestFramerNilReaderWriter(t *testing.T) {
	r := newFramer(nil, nil, WithProtocol(BinaryStream))
	if _, err := r.read(make([]byte, 4)); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument on nil reader, got %v", err)
	}
	if _, err := r.write([]byte("x")); err != ErrInvalidArgument {
		t.Fatalf("expected ErrInvalidArgument on nil writer, got %v", err)
	}
}
