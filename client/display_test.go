// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package client

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/wl-core/wlcore/objmap"
	"github.com/wl-core/wlcore/proto"
	"github.com/wl-core/wlcore/socket"
)

func newTestDisplay(t *testing.T) (*Display, *socket.BufferedSocket) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	for _, fd := range fds {
		unix.SetNonblock(fd, true)
	}
	d := &Display{opts: defaultOptions(), sock: socket.NewBufferedSocket(socket.New(fds[0]))}
	d.objects = objmap.New[ObjectData](displayData{d: d})
	fakeServer := socket.NewBufferedSocket(socket.New(fds[1]))
	return d, fakeServer
}

type recordingData struct {
	events []proto.Message
}

func (r *recordingData) Destroyed(ObjectID) {}
func (r *recordingData) Event(d *Display, id ObjectID, msg proto.Message) (ObjectData, error) {
	r.events = append(r.events, msg)
	return nil, nil
}

func TestCreateObjectAndSendRequest(t *testing.T) {
	d, srv := newTestDisplay(t)
	defer d.Close()
	defer srv.Close()

	rd := &recordingData{}
	reg := d.CreateObject(proto.WlRegistry, rd)

	if err := d.SendRequest(ObjectID{id: 1, serial: displaySerial(d)}, proto.OpDisplayGetRegistry, "get_registry",
		proto.Signature{proto.NewID}, []proto.Argument{proto.ArgNewID(reg.Raw())}); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if err := srv.FillIncoming(); err != nil {
		t.Fatalf("FillIncoming: %v", err)
	}
	got, err := srv.ReadOneMessage(proto.Signature{proto.NewID})
	if err != nil {
		t.Fatalf("ReadOneMessage: %v", err)
	}
	if got.SenderID != 1 || got.Opcode != proto.OpDisplayGetRegistry {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.Args[0].NewID != reg.Raw() {
		t.Fatalf("got new_id %d, want %d", got.Args[0].NewID, reg.Raw())
	}
}

func TestDispatchDeliversEvent(t *testing.T) {
	d, srv := newTestDisplay(t)
	defer d.Close()
	defer srv.Close()

	rd := &recordingData{}
	reg := d.CreateObject(proto.WlRegistry, rd)

	globalMsg := proto.Message{
		SenderID: reg.Raw(),
		Opcode:   proto.OpRegistryEventGlobal,
		Args:     []proto.Argument{proto.ArgUint(1), proto.ArgString("wl_compositor"), proto.ArgUint(4)},
	}
	if err := srv.WriteMessage(globalMsg); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := srv.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	guard := d.PrepareRead()
	if _, err := guard.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if len(rd.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rd.events))
	}
	if rd.events[0].Args[1].Str != "wl_compositor" {
		t.Fatalf("unexpected event args: %+v", rd.events[0])
	}
}

func TestSendRequestRejectsStaleID(t *testing.T) {
	d, srv := newTestDisplay(t)
	defer d.Close()
	defer srv.Close()

	rd := &recordingData{}
	obj := d.CreateObject(proto.WlRegistry, rd)
	d.objects.Remove(obj.Raw())

	err := d.SendRequest(obj, proto.OpRegistryBind, "bind", proto.Signature{proto.Uint, proto.Str, proto.Uint, proto.NewID},
		[]proto.Argument{proto.ArgUint(1), proto.ArgString("wl_compositor"), proto.ArgUint(4), proto.ArgNewID(100)})
	if _, ok := err.(*InvalidIDError); !ok {
		t.Fatalf("got %v (%T), want *InvalidIDError", err, err)
	}
}

func TestSendRequestPanicsOnSignatureMismatch(t *testing.T) {
	d, srv := newTestDisplay(t)
	defer d.Close()
	defer srv.Close()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on signature mismatch")
		}
	}()
	_ = d.SendRequest(ObjectID{id: 1, serial: displaySerial(d)}, proto.OpDisplaySync, "sync",
		proto.Signature{proto.NewID}, []proto.Argument{proto.ArgUint(1)})
}
