// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package wire

import "errors"

// Errors returned by WriteMessage.
var (
	// ErrBufferTooSmall reports that the destination word/fd buffer has no
	// room for the message; the caller should flush and retry.
	ErrBufferTooSmall = errors.New("wire: buffer too small")
)

// DupFdError wraps a failed fd duplication encountered while writing a
// message; any duplicates made before the failure have already been closed.
type DupFdError struct {
	Err error
}

func (e *DupFdError) Error() string { return "wire: dup fd failed: " + e.Err.Error() }
func (e *DupFdError) Unwrap() error { return e.Err }

// Errors returned by ParseMessage.
var (
	// ErrMissingData reports that the word buffer does not yet contain a
	// whole message; the caller should read more and retry.
	ErrMissingData = errors.New("wire: missing data")
	// ErrMissingFd reports that the message references a Fd argument but
	// the fd buffer is exhausted.
	ErrMissingFd = errors.New("wire: missing fd")
	// ErrMalformed reports a message that can never become valid no matter
	// how much more data arrives: a declared length under the 8-byte
	// header, not a multiple of 4, or a string missing its NUL terminator.
	ErrMalformed = errors.New("wire: malformed message")
)
