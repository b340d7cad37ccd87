// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

func immediateDeadline() time.Time { return time.Now().Add(time.Millisecond) }

// ListeningSocket owns a bound AF_UNIX listener and its accompanying
// lockfile (SOCKET_NAME.lock, the convention every Wayland compositor and
// client agree on to avoid two compositors racing for the same display
// name). Closing it removes both files.
//
// Grounded line-for-line on wayland-server/src/socket.rs: the
// flock-then-verify-(dev,ino) loop in bindAbsolute defeats the race where
// another process unlinks and recreates the lockfile between our open()
// and our flock().
type ListeningSocket struct {
	ln         *net.UnixListener
	lockFile   *os.File
	socketPath string
	lockPath   string
}

// Bind resolves name against XDG_RUNTIME_DIR (unless it is already
// absolute) and binds it.
func Bind(name string) (*ListeningSocket, error) {
	if filepath.IsAbs(name) {
		return bindAbsolute(name, 0o660)
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return nil, &BindError{Kind: BindRuntimeDirNotSet}
	}
	return bindAbsolute(filepath.Join(dir, name), 0o660)
}

// BindAuto tries wayland-0, wayland-1, ... up to 32, returning the first
// successful bind. Every error other than AlreadyInUse is returned
// immediately, matching the original's bind_auto.
func BindAuto() (*ListeningSocket, error) {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return nil, &BindError{Kind: BindRuntimeDirNotSet}
	}
	for i := 0; i < 32; i++ {
		name := fmt.Sprintf("wayland-%d", i)
		ln, err := bindAbsolute(filepath.Join(dir, name), 0o660)
		if err == nil {
			return ln, nil
		}
		if be, ok := err.(*BindError); !ok || be.Kind != BindAlreadyInUse {
			return nil, err
		}
	}
	return nil, &BindError{Kind: BindAlreadyInUse, Path: "wayland-0..31"}
}

func bindAbsolute(path string, mode os.FileMode) (*ListeningSocket, error) {
	lockPath := path + ".lock"

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &BindError{Kind: BindPermissionDenied, Path: path, Err: err}
		}
		return nil, &BindError{Kind: BindIO, Path: path, Err: err}
	}

	lockFile, err = flockLoop(lockFile, path, mode)
	if err != nil {
		return nil, err
	}

	if err := removeStaleSocket(path); err != nil {
		lockFile.Close()
		return nil, &BindError{Kind: BindIO, Path: path, Err: err}
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		lockFile.Close()
		os.Remove(lockPath)
		return nil, &BindError{Kind: BindIO, Path: path, Err: err}
	}
	// We remove the socket file ourselves in Close, alongside the
	// lockfile, rather than relying on UnlinkOnClose.
	ln.SetUnlinkOnClose(false)
	os.Chmod(path, mode)

	return &ListeningSocket{ln: ln, lockFile: lockFile, socketPath: path, lockPath: lockPath}, nil
}

// flockLoop acquires an exclusive, non-blocking flock on lockFile, then
// compares the fd's (dev, ino) against the path's on-disk metadata; until
// they agree it reopens the lockfile and tries again — defeating a
// concurrent unlink+recreate of the lockfile between our open() and our
// flock(). It returns the locked file, and closes its file on every error.
func flockLoop(lockFile *os.File, path string, mode os.FileMode) (*os.File, error) {
	lockPath := path + ".lock"
	for {
		if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			lockFile.Close()
			if err == unix.EWOULDBLOCK {
				return nil, &BindError{Kind: BindAlreadyInUse, Path: path}
			}
			return nil, &BindError{Kind: BindIO, Path: path, Err: err}
		}

		fdStat, err := lockFile.Stat()
		if err != nil {
			lockFile.Close()
			return nil, &BindError{Kind: BindIO, Path: path, Err: err}
		}
		onDisk, err := os.Stat(lockPath)
		if err == nil && sameFile(fdStat, onDisk) {
			return lockFile, nil
		}
		// Someone unlinked or replaced it between our open and our flock;
		// retry from scratch against whatever is there now.
		lockFile.Close()
		lockFile, err = os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, mode)
		if err != nil {
			return nil, &BindError{Kind: BindIO, Path: path, Err: err}
		}
	}
}

func sameFile(a, b os.FileInfo) bool {
	as, aok := a.Sys().(*unix.Stat_t)
	bs, bok := b.Sys().(*unix.Stat_t)
	if !aok || !bok {
		return false
	}
	return as.Dev == bs.Dev && as.Ino == bs.Ino
}

func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	// We hold the lockfile's flock, so any other listener bound to this
	// path has already exited; its socket file is safe to remove.
	return os.Remove(path)
}

// Accept never blocks; it returns (nil, nil) if there is no pending
// connection right now.
func (l *ListeningSocket) Accept() (*net.UnixConn, error) {
	l.ln.SetDeadline(immediateDeadline())
	conn, err := l.ln.AcceptUnix()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	return conn, nil
}

// Fd returns the listening socket's descriptor, for registration with a
// poller.
func (l *ListeningSocket) Fd() (int, error) {
	f, err := l.ln.File()
	if err != nil {
		return 0, err
	}
	defer f.Close()
	fd, err := unix.Dup(int(f.Fd()))
	return fd, err
}

// Close closes the listener and removes both the socket and lock files.
func (l *ListeningSocket) Close() error {
	err := l.ln.Close()
	l.lockFile.Close()
	os.Remove(l.socketPath)
	os.Remove(l.lockPath)
	return err
}
