// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package socket

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock is returned by non-blocking operations that cannot make
// progress right now; it is control flow, not a fault, and callers
// typically fold it into their own poll loop rather than logging it.
// Re-exported from iox, the same way the teacher package re-exports it as
// framer.ErrWouldBlock, so a caller using errors.Is against either symbol
// gets the same answer.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrMore is re-exported from iox alongside ErrWouldBlock, so callers can
// match it with errors.Is; no function in this package returns it.
var ErrMore = iox.ErrMore

// ErrClosed reports that the peer closed its end of the connection (a
// recvmsg returning zero bytes on a stream socket).
var ErrClosed = errors.New("socket: connection closed by peer")

// ErrTooManyFds reports that a single message would need more fds than the
// socket's fd buffer can carry in one go (MaxFdsOut).
var ErrTooManyFds = errors.New("socket: too many fds for one message")
