// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package socket

import (
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/wl-core/wlcore/proto"
)

func socketpair(t *testing.T) (*Socket, *Socket) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	for _, fd := range fds {
		if err := unix.SetNonblock(fd, true); err != nil {
			t.Fatalf("SetNonblock: %v", err)
		}
	}
	return New(fds[0]), New(fds[1])
}

func TestSocketSendRecv(t *testing.T) {
	a, b := socketpair(t)
	defer a.Close()
	defer b.Close()

	payload := []byte("hello wayland")
	n, err := a.SendMsg(payload, nil)
	if err != nil {
		t.Fatalf("SendMsg: %v", err)
	}
	if n != len(payload) {
		t.Fatalf("wrote %d bytes, want %d", n, len(payload))
	}

	buf := make([]byte, 64)
	waitReadable(t, b.Fd())
	got, fds, err := b.RecvMsg(buf, nil)
	if err != nil {
		t.Fatalf("RecvMsg: %v", err)
	}
	if string(buf[:got]) != string(payload) {
		t.Fatalf("got %q, want %q", buf[:got], payload)
	}
	if len(fds) != 0 {
		t.Fatalf("expected no fds, got %d", len(fds))
	}
}

func TestSocketSendRecvFd(t *testing.T) {
	a, b := socketpair(t)
	defer a.Close()
	defer b.Close()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	if _, err := a.SendMsg([]byte("x"), []int{int(r.Fd())}); err != nil {
		t.Fatalf("SendMsg: %v", err)
	}

	buf := make([]byte, 8)
	fdSpace := make([]int, 0, 1)
	waitReadable(t, b.Fd())
	_, fds, err := b.RecvMsg(buf, fdSpace)
	if err != nil {
		t.Fatalf("RecvMsg: %v", err)
	}
	if len(fds) != 1 {
		t.Fatalf("expected 1 fd, got %d", len(fds))
	}
	defer os.NewFile(uintptr(fds[0]), "recvd").Close()
}

func TestSocketRecvWouldBlock(t *testing.T) {
	a, b := socketpair(t)
	defer a.Close()
	defer b.Close()

	buf := make([]byte, 8)
	if _, _, err := b.RecvMsg(buf, nil); err != ErrWouldBlock {
		t.Fatalf("got %v, want ErrWouldBlock", err)
	}
}

func TestBufferedSocketRoundTrip(t *testing.T) {
	a, b := socketpair(t)
	defer a.Close()
	defer b.Close()

	bufA := NewBufferedSocket(a)
	bufB := NewBufferedSocket(b)

	msg := proto.Message{
		SenderID: 1,
		Opcode:   0,
		Args:     []proto.Argument{proto.ArgUint(7), proto.ArgString("ping")},
	}
	if err := bufA.WriteMessage(msg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := bufA.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	sig := proto.Signature{proto.Uint, proto.Str}
	waitReadable(t, b.Fd())
	if err := bufB.FillIncoming(); err != nil {
		t.Fatalf("FillIncoming: %v", err)
	}
	got, err := bufB.ReadOneMessage(sig)
	if err != nil {
		t.Fatalf("ReadOneMessage: %v", err)
	}
	if got.Args[0].Uint != 7 || got.Args[1].Str != "ping" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestBufferedSocketReadMissingData(t *testing.T) {
	a, b := socketpair(t)
	defer a.Close()
	defer b.Close()

	bufB := NewBufferedSocket(b)
	_, err := bufB.ReadOneMessage(proto.Signature{proto.Uint})
	if err == nil {
		t.Fatalf("expected an error on empty buffer")
	}
}

func waitReadable(t *testing.T, fd int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for time.Now().Before(deadline) {
		n, err := unix.Poll(pfd, 50)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		if n > 0 {
			return
		}
	}
	t.Fatalf("timed out waiting for fd %d to become readable", fd)
}
