// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/wl-core/wlcore/objmap"
	"github.com/wl-core/wlcore/proto"
	"github.com/wl-core/wlcore/socket"
)

type noopClientData struct{}

func (noopClientData) Initialized(ClientID)                          {}
func (noopClientData) Disconnected(ClientID, DisconnectReason, error) {}

type compositorGlobal struct{ DefaultCanView }

func (compositorGlobal) Bind(h *Handle, client ClientID, global GlobalID, object ObjectID) (ObjectData, error) {
	return compositorObjectData{}, nil
}

type compositorObjectData struct{}

func (compositorObjectData) Destroyed(ObjectID) {}
func (compositorObjectData) Request(h *Handle, id ObjectID, msg proto.Message) (ObjectData, error) {
	return nil, nil
}

func newTestPair(t *testing.T) (*Handle, *Client, *socket.BufferedSocket) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	for _, fd := range fds {
		unix.SetNonblock(fd, true)
	}
	h := NewHandle(WithDebug(false))
	c, err := h.InsertClient(socket.NewBufferedSocket(socket.New(fds[0])), noopClientData{})
	if err != nil {
		t.Fatalf("InsertClient: %v", err)
	}
	fakeClient := socket.NewBufferedSocket(socket.New(fds[1]))
	return h, c, fakeClient
}

func TestGetRegistryAndBind(t *testing.T) {
	h, c, fc := newTestPair(t)
	defer fc.Close()

	wlCompositor := &proto.Interface{Name: "wl_compositor", Version: 4}
	global := h.CreateGlobal(wlCompositor, 4, compositorGlobal{})

	// Client sends get_registry(new_id=2).
	if err := fc.WriteMessage(proto.Message{SenderID: 1, Opcode: proto.OpDisplayGetRegistry, Args: []proto.Argument{proto.ArgNewID(2)}}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := fc.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := h.DispatchClient(c.id); err != nil {
		t.Fatalf("DispatchClient: %v", err)
	}

	// Expect one wl_registry.global event describing wl_compositor.
	if err := fc.FillIncoming(); err != nil {
		t.Fatalf("FillIncoming: %v", err)
	}
	got, err := fc.ReadOneMessage(proto.Signature{proto.Uint, proto.Str, proto.Uint})
	if err != nil {
		t.Fatalf("ReadOneMessage: %v", err)
	}
	if got.SenderID != 2 || got.Opcode != proto.OpRegistryEventGlobal {
		t.Fatalf("unexpected message: %+v", got)
	}
	if got.Args[0].Uint != uint32(global) || got.Args[1].Str != "wl_compositor" {
		t.Fatalf("unexpected global event: %+v", got)
	}

	// Client sends bind(name=global, interface="wl_compositor", version=4, new_id=3).
	bindMsg := proto.Message{
		SenderID: 2,
		Opcode:   proto.OpRegistryBind,
		Args: []proto.Argument{
			proto.ArgUint(uint32(global)),
			proto.ArgString("wl_compositor"),
			proto.ArgUint(4),
			proto.ArgNewID(3),
		},
	}
	if err := fc.WriteMessage(bindMsg); err != nil {
		t.Fatalf("WriteMessage bind: %v", err)
	}
	if err := fc.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := h.DispatchClient(c.id); err != nil {
		t.Fatalf("DispatchClient bind: %v", err)
	}

	rec, ok := c.objects.Find(3)
	if !ok {
		t.Fatalf("expected object 3 to be bound")
	}
	if rec.Interface != wlCompositor {
		t.Fatalf("unexpected interface: %v", rec.Interface)
	}
	if _, ok := rec.Meta.(compositorObjectData); !ok {
		t.Fatalf("unexpected object data: %T", rec.Meta)
	}
}

func TestSyncSendsDoneAndDeleteID(t *testing.T) {
	h, c, fc := newTestPair(t)
	defer fc.Close()

	if err := fc.WriteMessage(proto.Message{SenderID: 1, Opcode: proto.OpDisplaySync, Args: []proto.Argument{proto.ArgNewID(2)}}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if err := fc.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := h.DispatchClient(c.id); err != nil {
		t.Fatalf("DispatchClient: %v", err)
	}

	if err := fc.FillIncoming(); err != nil {
		t.Fatalf("FillIncoming: %v", err)
	}
	done, err := fc.ReadOneMessage(proto.Signature{proto.Uint})
	if err != nil {
		t.Fatalf("ReadOneMessage done: %v", err)
	}
	if done.SenderID != 2 || done.Opcode != proto.OpCallbackDone {
		t.Fatalf("unexpected done message: %+v", done)
	}

	del, err := fc.ReadOneMessage(proto.Signature{proto.Uint})
	if err != nil {
		t.Fatalf("ReadOneMessage delete_id: %v", err)
	}
	if del.SenderID != 1 || del.Opcode != proto.OpDisplayEventDeleteID || del.Args[0].Uint != 2 {
		t.Fatalf("unexpected delete_id: %+v", del)
	}
	if _, ok := c.objects.Find(2); ok {
		t.Fatalf("expected callback object 2 to be removed")
	}
}

func TestBindUnknownGlobal(t *testing.T) {
	h, c, fc := newTestPair(t)
	defer fc.Close()

	if err := fc.WriteMessage(proto.Message{SenderID: 1, Opcode: proto.OpDisplayGetRegistry, Args: []proto.Argument{proto.ArgNewID(2)}}); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	fc.Flush()
	h.DispatchClient(c.id)
	fc.FillIncoming()
	// Drain any initial globals (there are none here).

	bindMsg := proto.Message{
		SenderID: 2,
		Opcode:   proto.OpRegistryBind,
		Args: []proto.Argument{
			proto.ArgUint(999),
			proto.ArgString("wl_compositor"),
			proto.ArgUint(1),
			proto.ArgNewID(3),
		},
	}
	fc.WriteMessage(bindMsg)
	fc.Flush()
	if _, err := h.DispatchClient(c.id); err == nil {
		t.Fatalf("expected an error binding an unknown global")
	}
	if !c.killed {
		t.Fatalf("expected client to be killed after a protocol error")
	}
}

func TestDisableGlobalHidesFromNewRegistry(t *testing.T) {
	h, c, fc := newTestPair(t)
	defer fc.Close()

	wlShm := &proto.Interface{Name: "wl_shm", Version: 1}
	id := h.CreateGlobal(wlShm, 1, compositorGlobal{})
	h.DisableGlobal(id)

	fc.WriteMessage(proto.Message{SenderID: 1, Opcode: proto.OpDisplayGetRegistry, Args: []proto.Argument{proto.ArgNewID(2)}})
	fc.Flush()
	h.DispatchClient(c.id)

	if err := fc.FillIncoming(); err != nil && err != socket.ErrWouldBlock {
		t.Fatalf("FillIncoming: %v", err)
	}
	if _, err := fc.ReadOneMessage(proto.Signature{proto.Uint, proto.Str, proto.Uint}); err == nil {
		t.Fatalf("expected no global event for a disabled global")
	}
}

func TestObjMapRecordUsage(t *testing.T) {
	// Sanity check that an objmap of server ObjectData reuses a freed
	// client slot and stamps the new record with a non-zero serial.
	m := objmap.New[ObjectData](displayObjectData{})
	id1 := m.ClientInsertNew(objmap.Record[ObjectData]{Interface: proto.WlCallback})
	_ = m.Remove(id1)
	id2 := m.ClientInsertNew(objmap.Record[ObjectData]{Interface: proto.WlCallback})
	rec, _ := m.Find(id2)
	if id1 != id2 {
		t.Fatalf("expected slot reuse: %d != %d", id1, id2)
	}
	if rec.Serial == 0 {
		t.Fatalf("expected a non-zero serial")
	}
}
