// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package server

import "golang.org/x/sys/unix"

// Credentials is a snapshot of a client's SO_PEERCRED identity, read once
// when the connection is accepted. Dropped entirely from the distilled
// specification this runtime was scoped from; restored here since a
// compositor's GlobalHandler.CanView routinely needs it for access
// control on bind.
type Credentials struct {
	PID int32
	UID uint32
	GID uint32
}

func readCredentials(fd int) (Credentials, error) {
	ucred, err := unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{PID: ucred.Pid, UID: ucred.Uid, GID: ucred.Gid}, nil
}
