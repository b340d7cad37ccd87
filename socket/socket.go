// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package socket implements the raw, non-blocking, fd-carrying transport
// underneath a Wayland connection, and the buffered framing layer on top of
// it that batches whole messages between flushes.
//
// Grounded directly on the original implementation's
// wayland-backend/src/rs/socket.rs: Socket wraps sendmsg/recvmsg with
// SCM_RIGHTS ancillary data for fd passing, and BufferedSocket adds the
// four staging buffers (two in, two out) that let a caller enqueue several
// messages before a single flush. Non-blocking I/O and error handling style
// (WouldBlock as a normal control-flow value, not a logged error) follows
// this module's own wire package, which in turn follows how the teacher
// package's framer treats short reads/writes.
package socket

import (
	"os"

	"golang.org/x/sys/unix"
)

// MaxBytesOut is the largest number of bytes buffered for one write burst.
const MaxBytesOut = 4096

// MaxFdsOut is the largest number of fds a single sendmsg/recvmsg call will
// carry.
const MaxFdsOut = 28

// Socket is a thin, non-blocking wrapper over a connected AF_UNIX
// SOCK_STREAM descriptor, carrying raw words-as-bytes and fds.
type Socket struct {
	file *os.File
	fd   int
}

// New takes ownership of fd, which must already be a connected,
// non-blocking AF_UNIX socket.
func New(fd int) *Socket {
	return &Socket{file: os.NewFile(uintptr(fd), "wayland-socket"), fd: fd}
}

// FromFile wraps an already-open *os.File (e.g. from net.UnixConn's
// File method) without taking ownership of closing it beyond what Close
// does here.
func FromFile(f *os.File) *Socket {
	return &Socket{file: f, fd: int(f.Fd())}
}

// Close closes the underlying descriptor.
func (s *Socket) Close() error { return s.file.Close() }

// Fd returns the raw descriptor, for use with a poller.
func (s *Socket) Fd() int { return s.fd }

// SendMsg writes bytes and, if any, passes fds as SCM_RIGHTS ancillary
// data. It returns the number of bytes written. ErrWouldBlock is returned,
// not wrapped, when the socket buffer is full.
func (s *Socket) SendMsg(data []byte, fds []int) (int, error) {
	if len(fds) > MaxFdsOut {
		return 0, ErrTooManyFds
	}
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	n, _, err := unix.Sendmsg(s.fd, data, oob, nil, unix.MSG_DONTWAIT|unix.MSG_NOSIGNAL)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, ErrWouldBlock
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RecvMsg reads into data and returns any fds received via SCM_RIGHTS in
// a new slice; only fdSpace's capacity is used, to bound how many fds are
// accepted in one call. ErrClosed is returned when the peer
// has performed an orderly shutdown.
func (s *Socket) RecvMsg(data []byte, fdSpace []int) (n int, fds []int, err error) {
	oobSpace := unix.CmsgSpace(cap(fdSpace) * 4)
	oob := make([]byte, oobSpace)

	n, oobn, _, _, err := unix.Recvmsg(s.fd, data, oob, unix.MSG_DONTWAIT|unix.MSG_CMSG_CLOEXEC|unix.MSG_NOSIGNAL)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return 0, nil, ErrWouldBlock
	}
	if err != nil {
		return 0, nil, err
	}
	if n == 0 && oobn == 0 {
		return 0, nil, ErrClosed
	}

	if oobn > 0 {
		cmsgs, perr := unix.ParseSocketControlMessage(oob[:oobn])
		if perr != nil {
			return n, nil, perr
		}
		for _, c := range cmsgs {
			recvd, rerr := unix.ParseUnixRights(&c)
			if rerr != nil {
				continue
			}
			fds = append(fds, recvd...)
		}
	}
	return n, fds, nil
}
