// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package server

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/wl-core/wlcore/socket"
)

// Backend pairs a Handle with an epoll instance watching every client's
// socket plus the listening socket itself, so a single goroutine can drive
// the whole server without a goroutine per connection.
//
// Grounded on wayland-backend/src/rs/server_impl/common_poll.rs
// (InnerBackend, epoll_create1/EPOLLIN registration, dispatch_all_clients).
type Backend struct {
	*Handle
	epfd     int
	listener *ListeningSocket
	lfd      int // the listener fd registered with epfd
}

// NewBackend creates the poll instance and takes ownership of listener,
// registering it for readability (new connections).
func NewBackend(listener *ListeningSocket, opts ...Option) (*Backend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, &InitError{Err: err}
	}
	lfd, err := listener.Fd()
	if err != nil {
		unix.Close(epfd)
		return nil, &InitError{Err: err}
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(lfd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, lfd, &ev); err != nil {
		unix.Close(epfd)
		return nil, &InitError{Err: err}
	}
	return &Backend{Handle: NewHandle(opts...), epfd: epfd, listener: listener, lfd: lfd}, nil
}

// insertClient registers a freshly accepted connection's fd for
// readability and installs it on the Handle.
func (b *Backend) insertClient(conn *net.UnixConn, data ClientData) (*Client, error) {
	f, err := conn.File()
	if err != nil {
		return nil, err
	}
	unix.SetNonblock(int(f.Fd()), true)

	c, err := b.Handle.InsertClient(socket.NewBufferedSocket(socket.FromFile(f)), data)
	if err != nil {
		return nil, err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(c.sock.Socket().Fd())}
	if err := unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, c.sock.Socket().Fd(), &ev); err != nil {
		return nil, err
	}
	return c, nil
}

// AcceptPending accepts every connection currently queued on the listener
// and registers it, calling newData to build that client's ClientData.
func (b *Backend) AcceptPending(newData func() ClientData) error {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return err
		}
		if conn == nil {
			return nil
		}
		if _, err := b.insertClient(conn, newData()); err != nil {
			conn.Close()
			return err
		}
	}
}

// DispatchAllClients drains every ready client's requests (and accepts any
// pending new connections) without blocking, then runs Cleanup. It is the
// main server loop's single per-iteration call once the poller reports the
// instance is readable.
func (b *Backend) DispatchAllClients(newData func() ClientData) error {
	events := make([]unix.EpollEvent, 32)
	for {
		n, err := unix.EpollWait(b.epfd, events, 0)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		if n == 0 {
			break
		}
		for _, ev := range events[:n] {
			if int(ev.Fd) == b.lfd {
				_ = b.AcceptPending(newData)
				continue
			}
			for id, c := range b.Handle.clients {
				if c.sock.Socket().Fd() == int(ev.Fd) {
					b.Handle.DispatchClient(id)
					break
				}
			}
		}
	}
	b.Handle.Cleanup()
	return nil
}

// Close closes the epoll instance and the listening socket.
func (b *Backend) Close() error {
	unix.Close(b.epfd)
	return b.listener.Close()
}
