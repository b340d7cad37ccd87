// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package socket

import (
	"encoding/binary"

	"github.com/wl-core/wlcore/proto"
	"github.com/wl-core/wlcore/wire"
)

// BufferedSocket adds message-level staging on top of a raw Socket: writes
// accumulate in an outgoing buffer until Flush (or an outgoing buffer that
// is full) forces a sendmsg, and incoming bytes accumulate in an incoming
// buffer until a whole message is available to parse.
//
// Buffer sizing mirrors the original implementation: outgoing buffers hold
// exactly one flush's worth (MaxBytesOut bytes / MaxFdsOut fds); incoming
// buffers are twice that, since FillIncoming may need room for both the
// unread remainder of a previous read and a full new one.
type BufferedSocket struct {
	sock *Socket

	inData *Buffer[byte]
	inFds  *Buffer[int]

	outData *Buffer[byte]
	outFds  *Buffer[int]
}

// NewBufferedSocket wraps sock with the standard buffer sizes.
func NewBufferedSocket(sock *Socket) *BufferedSocket {
	return &BufferedSocket{
		sock:    sock,
		inData:  NewBuffer[byte](2 * MaxBytesOut),
		inFds:   NewBuffer[int](2 * MaxFdsOut),
		outData: NewBuffer[byte](MaxBytesOut),
		outFds:  NewBuffer[int](MaxFdsOut),
	}
}

// Socket returns the underlying raw socket, e.g. for use with a poller.
func (b *BufferedSocket) Socket() *Socket { return b.sock }

// Close closes the underlying socket.
func (b *BufferedSocket) Close() error { return b.sock.Close() }

// Flush sends as much of the outgoing buffer as the kernel will accept
// right now. It returns ErrWouldBlock, not as an error to abort on, once
// the socket buffer is full with data still staged; the caller should
// retry later (typically once the poller reports writability).
func (b *BufferedSocket) Flush() error {
	for b.outData.Len() > 0 {
		n, err := b.sock.SendMsg(b.outData.Contents(), b.outFds.Contents())
		if err != nil {
			return err
		}
		b.outData.Offset(n)
		// Fds are all-or-nothing per sendmsg call: once any bytes go out,
		// every queued fd rides along with that same call.
		b.outFds.Offset(b.outFds.Len())
	}
	b.outData.Clear()
	b.outFds.Clear()
	return nil
}

// WriteMessage serializes msg and appends it to the outgoing buffer,
// flushing first if there isn't room. It fails with wire.ErrBufferTooSmall
// only if msg could never fit even in a freshly flushed buffer.
func (b *BufferedSocket) WriteMessage(msg proto.Message) error {
	words := make([]uint32, MaxBytesOut/4)
	fds := make([]int, MaxFdsOut)
	n, fn, err := wire.WriteMessage(msg, words, fds)
	if err != nil {
		return err
	}
	byteLen := n * 4

	if byteLen > b.outData.Cap() || fn > b.outFds.Cap() {
		return wire.ErrBufferTooSmall
	}
	if byteLen > len(b.outData.WritableStorage()) || fn > len(b.outFds.WritableStorage()) {
		if err := b.Flush(); err != nil && err != ErrWouldBlock {
			return err
		}
	}
	if byteLen > len(b.outData.WritableStorage()) || fn > len(b.outFds.WritableStorage()) {
		return ErrWouldBlock
	}

	putWords(b.outData.WritableStorage(), words[:n])
	b.outData.Advance(byteLen)
	copy(b.outFds.WritableStorage(), fds[:fn])
	b.outFds.Advance(fn)
	return nil
}

// FillIncoming compacts the incoming buffers and performs one recvmsg,
// growing the unread region. It returns ErrClosed when the peer has
// performed an orderly shutdown and ErrWouldBlock when there is nothing new
// to read right now.
func (b *BufferedSocket) FillIncoming() error {
	b.inData.MoveToFront()
	b.inFds.MoveToFront()

	fdSpace := make([]int, 0, len(b.inFds.WritableStorage()))
	n, fds, err := b.sock.RecvMsg(b.inData.WritableStorage(), fdSpace)
	if err != nil {
		return err
	}
	b.inData.Advance(n)
	copy(b.inFds.WritableStorage(), fds)
	b.inFds.Advance(len(fds))
	return nil
}

// ReadOneMessage attempts to parse one message matching sig out of the
// incoming buffer. wire.ErrMissingData/ErrMissingFd mean the caller should
// call FillIncoming and retry; any other error is fatal to the connection.
func (b *BufferedSocket) ReadOneMessage(sig proto.Signature) (proto.Message, error) {
	words := bytesToWords(b.inData.Contents())
	msg, restWords, restFds, err := wire.ParseMessage(words, sig, b.inFds.Contents())
	if err != nil {
		return proto.Message{}, err
	}

	consumedWords := len(words) - len(restWords)
	b.inData.Offset(consumedWords * 4)
	consumedFds := b.inFds.Len() - len(restFds)
	b.inFds.Offset(consumedFds)
	return msg, nil
}

// PeekOpcode reports the opcode of the next queued message without
// consuming it, for signature dispatch ahead of ReadOneMessage. It returns
// wire.ErrMissingData if fewer than 8 bytes (one header) are buffered.
func (b *BufferedSocket) PeekOpcode() (senderID uint32, opcode uint16, err error) {
	c := b.inData.Contents()
	if len(c) < 8 {
		return 0, 0, wire.ErrMissingData
	}
	senderID = binary.LittleEndian.Uint32(c[0:4])
	word2 := binary.LittleEndian.Uint32(c[4:8])
	return senderID, uint16(word2 & 0xFFFF), nil
}

func putWords(dst []byte, words []uint32) {
	for i, w := range words {
		binary.LittleEndian.PutUint32(dst[i*4:], w)
	}
}

func bytesToWords(b []byte) []uint32 {
	n := len(b) / 4
	words := make([]uint32, n)
	for i := 0; i < n; i++ {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}
