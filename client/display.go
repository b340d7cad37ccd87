// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package client implements the client side of a wire connection: socket
// setup (WAYLAND_SOCKET/WAYLAND_DISPLAY resolution), the object map, and
// the dispatch/roundtrip loop a generated protocol binding drives.
//
// Grounded on the original implementation's wayland-backend/src/client_api.rs
// (Backend, Handle, ObjectData, ReadEventsGuard) and the dispatch logic in
// its rust_imp client backend.
package client

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/wl-core/wlcore/internal/wldebug"
	"github.com/wl-core/wlcore/internal/wlenv"
	"github.com/wl-core/wlcore/objmap"
	"github.com/wl-core/wlcore/proto"
	"github.com/wl-core/wlcore/socket"
)

// Display is one client connection. All exported methods are safe to call
// from multiple goroutines; see ReadEventsGuard for how concurrent readers
// are serialized.
type Display struct {
	opts *options

	mu      sync.Mutex
	sock    *socket.BufferedSocket
	objects *objmap.Map[ObjectData]

	readGen int
	readMu  sync.Mutex

	latchOnce sync.Once
	latched   error
}

// Connect resolves a compositor endpoint, following the original's
// precedence: an explicit WithSocketPath option, then WAYLAND_SOCKET (an
// already-connected, inherited fd), then WAYLAND_DISPLAY resolved against
// XDG_RUNTIME_DIR (or used as-is if absolute).
func Connect(opts ...Option) (*Display, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	lookup := o.lookup
	if lookup == nil {
		lookup = wlenv.OS
	}
	env := wlenv.Read(lookup)
	if !o.debugSet {
		o.debug = env.WaylandDebug
	}

	var f *os.File
	switch {
	case o.socketPath != "":
		conn, err := net.Dial("unix", o.socketPath)
		if err != nil {
			return nil, err
		}
		f, err = dupConnFile(conn)
		if err != nil {
			return nil, err
		}
	case env.WaylandSocket != nil:
		if err := unix.SetNonblock(*env.WaylandSocket, true); err != nil {
			return nil, err
		}
		f = os.NewFile(uintptr(*env.WaylandSocket), "wayland-socket")
	default:
		path := env.WaylandDisplay
		if path == "" {
			path = "wayland-0"
		}
		if !filepath.IsAbs(path) {
			if env.XDGRuntimeDir == "" {
				return nil, ErrNoEndpoint
			}
			path = filepath.Join(env.XDGRuntimeDir, path)
		}
		conn, err := net.Dial("unix", path)
		if err != nil {
			return nil, err
		}
		f, err = dupConnFile(conn)
		if err != nil {
			return nil, err
		}
	}

	sock := socket.NewBufferedSocket(socket.FromFile(f))
	d := &Display{opts: o, sock: sock}
	d.objects = objmap.New[ObjectData](displayData{d: d})
	return d, nil
}

func dupConnFile(conn net.Conn) (*os.File, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("client: not a unix socket connection")
	}
	f, err := uc.File()
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(int(f.Fd()), true); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Close tears down the connection. Subsequent calls fail with
// ErrDisconnected.
func (d *Display) Close() error {
	d.latch(ErrDisconnected)
	return d.sock.Close()
}

func (d *Display) latch(err error) {
	d.latchOnce.Do(func() { d.latched = err })
}

// Err returns the latched fatal error, if any, without blocking.
func (d *Display) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latched
}

// CreateObject allocates a new client-owned id bound to iface and data,
// returning the ObjectID the caller should use for subsequent requests.
func (d *Display) CreateObject(iface *proto.Interface, data ObjectData) ObjectID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.objects.ClientInsertNew(objmap.Record[ObjectData]{Interface: iface, Version: iface.Version, Meta: data})
	rec, _ := d.objects.Find(id)
	return ObjectID{id: id, serial: rec.Serial}
}

// ObjectInfo reports id's protocol identity, or an error if it no longer
// names a live object.
func (d *Display) ObjectInfo(id ObjectID) (proto.ObjectInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.objects.Find(id.id)
	if !ok || rec.Serial != id.serial {
		return proto.ObjectInfo{}, &InvalidIDError{ID: id.id}
	}
	return proto.ObjectInfo{ID: id.id, Interface: rec.Interface, Version: rec.Version}, nil
}

// SendRequest writes a request from id against sig; args must match sig
// exactly, since this is the boundary where a programmer error (a binding
// generator bug) is expected to panic rather than silently corrupt the
// wire.
func (d *Display) SendRequest(id ObjectID, opcode uint16, name string, sig proto.Signature, args []proto.Argument) error {
	if !proto.CheckSignature(sig, args) {
		panic(fmt.Sprintf("client: outbound signature mismatch on object %d request %q: wanted %v", id.id, name, sig))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.latched != nil {
		return d.latched
	}
	rec, ok := d.objects.Find(id.id)
	if !ok || rec.Serial != id.serial {
		return &InvalidIDError{ID: id.id}
	}
	wldebug.Trace(d.opts.debug, wldebug.Sent, id.id, rec.Interface, opcode, name, args)
	msg := proto.Message{SenderID: id.id, Opcode: opcode, Args: args}
	if err := d.sock.WriteMessage(msg); err != nil {
		d.latch(err)
		return err
	}
	return nil
}

// Flush sends any buffered requests. ErrWouldBlock means the caller should
// retry once the socket is writable again.
func (d *Display) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.latched != nil {
		return d.latched
	}
	if err := d.sock.Flush(); err != nil {
		if err == socket.ErrWouldBlock {
			return err
		}
		d.latch(err)
		return err
	}
	return nil
}

// Sync issues wl_display.sync and invokes done (with the server's event
// serial) once the round-trip callback fires.
func (d *Display) Sync(done func(serial uint32)) (ObjectID, error) {
	cb := d.CreateObject(proto.WlCallback, callbackData{done: done})
	err := d.SendRequest(ObjectID{id: 1, serial: displaySerial(d)}, proto.OpDisplaySync, "sync",
		proto.Signature{proto.NewID}, []proto.Argument{proto.ArgNewID(cb.id)})
	return cb, err
}

func displaySerial(d *Display) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, _ := d.objects.Find(1)
	return rec.Serial
}

// GetRegistry issues wl_display.get_registry and binds data to the new
// wl_registry object.
func (d *Display) GetRegistry(data ObjectData) (ObjectID, error) {
	reg := d.CreateObject(proto.WlRegistry, data)
	err := d.SendRequest(ObjectID{id: 1, serial: displaySerial(d)}, proto.OpDisplayGetRegistry, "get_registry",
		proto.Signature{proto.NewID}, []proto.Argument{proto.ArgNewID(reg.id)})
	return reg, err
}

// Dispatch parses and delivers every whole message currently buffered,
// without attempting a read. It returns the number of events dispatched.
func (d *Display) Dispatch() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatchBufferedLocked()
}

func (d *Display) dispatchBufferedLocked() (int, error) {
	n := 0
	for {
		senderID, opcode, err := d.sock.PeekOpcode()
		if err != nil {
			return n, nil
		}
		rec, ok := d.objects.Find(senderID)
		if !ok {
			d.latch(&ProtocolError{ObjectID: senderID, Code: proto.ErrorInvalidObject, Message: "event for unknown object"})
			return n, d.latched
		}
		sig, desc, derr := eventSignature(rec.Interface, opcode)
		if derr != nil {
			d.latch(derr)
			return n, derr
		}
		msg, err := d.sock.ReadOneMessage(sig)
		if err != nil {
			return n, nil
		}
		wldebug.Trace(d.opts.debug, wldebug.Received, senderID, rec.Interface, opcode, desc.Name, msg.Args)

		id := ObjectID{id: senderID, serial: rec.Serial}

		childID, hasChild, perr := d.promoteChildLocked(desc, msg)
		if perr != nil {
			d.latch(perr)
			return n, perr
		}

		childData, herr := rec.Meta.Event(d, id, msg)
		if herr != nil {
			d.latch(herr)
			return n, herr
		}
		if hasChild {
			if childData == nil {
				panic(fmt.Sprintf("client: event %q on object %d created object %d but returned no user-data for it", desc.Name, senderID, childID.id))
			}
			d.objects.With(childID.id, func(r *objmap.Record[ObjectData]) { r.Meta = childData })
		}
		n++
		if desc.IsDestructor {
			rec.Meta.Destroyed(id)
			d.objects.Remove(senderID)
		}
	}
}

// promoteChildLocked installs a placeholder record for an event's NewId
// argument, using the event's statically known child interface, before the
// event is delivered to its object's Event callback. Called with d.mu held.
func (d *Display) promoteChildLocked(desc *proto.MessageDesc, msg proto.Message) (ObjectID, bool, error) {
	if desc.ChildInterface == nil {
		return ObjectID{}, false, nil
	}
	for _, a := range msg.Args {
		if a.Kind != proto.NewID {
			continue
		}
		rec := objmap.Record[ObjectData]{Interface: desc.ChildInterface, Version: desc.ChildInterface.Version}
		if _, err := d.objects.InsertAt(a.NewID, rec); err != nil {
			return ObjectID{}, false, &ProtocolError{ObjectID: a.NewID, Code: proto.ErrorInvalidObject, Message: "event new_id already in use"}
		}
		newRec, _ := d.objects.Find(a.NewID)
		return ObjectID{id: a.NewID, serial: newRec.Serial}, true, nil
	}
	return ObjectID{}, false, nil
}

func eventSignature(iface *proto.Interface, opcode uint16) (proto.Signature, *proto.MessageDesc, error) {
	if int(opcode) >= len(iface.Events) {
		return nil, nil, &ProtocolError{Code: proto.ErrorInvalidMethod, Interface: iface.Name, Message: "unknown event opcode"}
	}
	desc := &iface.Events[opcode]
	return desc.Signature, desc, nil
}

// ReadEventsGuard serializes concurrent readers: every goroutine about to
// block waiting for events calls PrepareRead, then Release (or Cancel, to
// back out without reading). The first Release after a set of guards was
// prepared performs the socket read and dispatch; every other guard of that
// set returns 0 from Release without reading and without waiting for it.
type ReadEventsGuard struct {
	d   *Display
	gen int
}

// PrepareRead returns a guard snapshotting the current read generation.
func (d *Display) PrepareRead() *ReadEventsGuard {
	d.readMu.Lock()
	defer d.readMu.Unlock()
	return &ReadEventsGuard{d: d, gen: d.readGen}
}

// Cancel abandons the guard without reading.
func (g *ReadEventsGuard) Cancel() {}

// Release performs the actual FillIncoming+Dispatch if no other guard has
// done so since this one was prepared, then returns the dispatched count.
// When there is nothing to read right now it returns 0 and a nil error.
func (g *ReadEventsGuard) Release() (int, error) {
	g.d.readMu.Lock()
	if g.gen != g.d.readGen {
		// Someone else already performed this generation's read.
		g.d.readMu.Unlock()
		return 0, nil
	}
	g.d.readGen++
	g.d.readMu.Unlock()

	g.d.mu.Lock()
	defer g.d.mu.Unlock()
	if g.d.latched != nil {
		return 0, g.d.latched
	}
	if err := g.d.sock.FillIncoming(); err != nil {
		if err == socket.ErrWouldBlock {
			return 0, nil
		}
		g.d.latch(err)
		return 0, err
	}
	return g.d.dispatchBufferedLocked()
}

// Roundtrip blocks (busy-polling Flush/PrepareRead/Release) until a
// wl_display.sync callback fires, guaranteeing every event the server had
// queued before the call has been dispatched. It returns the number of
// events dispatched along the way.
func (d *Display) Roundtrip() (int, error) {
	done := false
	total := 0
	if _, err := d.Sync(func(uint32) { done = true }); err != nil {
		return 0, err
	}
	for {
		if err := d.Flush(); err != nil && err != socket.ErrWouldBlock {
			return total, err
		}
		if n, err := d.Dispatch(); err != nil {
			return total, err
		} else {
			total += n
		}
		if done {
			return total, nil
		}
		guard := d.PrepareRead()
		n, err := guard.Release()
		if err != nil {
			return total, err
		}
		total += n
	}
}
