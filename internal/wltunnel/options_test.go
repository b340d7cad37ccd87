// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wltunnel

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestWithProtocolSetsBothSides(t *testing.T) {
	o := defaultOptions
	WithProtocol(SeqPacket)(&o)
	if o.ReadProto != SeqPacket || o.WriteProto != SeqPacket {
		t.Fatalf("want both sides SeqPacket, got read=%v write=%v", o.ReadProto, o.WriteProto)
	}
}

func TestWithReadWriteProtocolIndependent(t *testing.T) {
	o := defaultOptions
	WithReadProtocol(SeqPacket)(&o)
	WithWriteProtocol(BinaryStream)(&o)
	if o.ReadProto != SeqPacket || o.WriteProto != BinaryStream {
		t.Fatalf("expected independent sides, got read=%v write=%v", o.ReadProto, o.WriteProto)
	}
}

func TestWithTCPOptions(t *testing.T) {
	o := defaultOptions
	o.ReadByteOrder, o.WriteByteOrder = binary.LittleEndian, binary.LittleEndian
	WithReadTCP()(&o)
	WithWriteTCP()(&o)
	if o.ReadProto != BinaryStream || o.WriteProto != BinaryStream {
		t.Fatalf("TCP options should select BinaryStream on both sides")
	}
	if o.ReadByteOrder != binary.BigEndian || o.WriteByteOrder != binary.BigEndian {
		t.Fatalf("TCP options should force network byte order")
	}
}

func TestWithBlockAndNonblock(t *testing.T) {
	o := defaultOptions
	WithBlock()(&o)
	if o.RetryDelay != 0 {
		t.Fatalf("WithBlock should set RetryDelay to 0, got %v", o.RetryDelay)
	}
	WithNonblock()(&o)
	if o.RetryDelay >= 0 {
		t.Fatalf("WithNonblock should set a negative RetryDelay, got %v", o.RetryDelay)
	}
	WithRetryDelay(5 * time.Millisecond)(&o)
	if o.RetryDelay != 5*time.Millisecond {
		t.Fatalf("WithRetryDelay not applied, got %v", o.RetryDelay)
	}
}

func TestProtocolPreserveBoundary(t *testing.T) {
	if BinaryStream.preserveBoundary() {
		t.Fatalf("BinaryStream must not preserve boundaries")
	}
	if !SeqPacket.preserveBoundary() {
		t.Fatalf("SeqPacket must preserve boundaries")
	}
}
