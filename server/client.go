// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package server implements the server side of a wire connection:
// per-client dispatch (Client), the registry/global manager, and the
// listening-socket/poller that ties many clients to one event loop.
//
// Grounded on the original implementation's
// wayland-backend-rs/src/server/client.rs for per-client dispatch and
// wayland-backend/src/rs/server_impl/common_poll.rs for the multi-client
// poll loop.
package server

import (
	"fmt"

	"github.com/wl-core/wlcore/internal/wldebug"
	"github.com/wl-core/wlcore/objmap"
	"github.com/wl-core/wlcore/proto"
	"github.com/wl-core/wlcore/socket"
)

// Client holds one connection's dispatch state: its socket, object map,
// and bookkeeping the registry and display-level requests need.
type Client struct {
	id         ClientID
	sock       *socket.BufferedSocket
	objects    *objmap.Map[ObjectData]
	data       ClientData
	creds      Credentials
	lastSerial uint32
	killed     bool
	killErr    error
	debug      bool
}

func newClient(id ClientID, sock *socket.BufferedSocket, data ClientData, creds Credentials, debug bool) *Client {
	c := &Client{id: id, sock: sock, data: data, creds: creds, debug: debug}
	c.objects = objmap.New[ObjectData](displayObjectData{c: c})
	return c
}

// ID returns the client's handle.
func (c *Client) ID() ClientID { return c.id }

// Credentials returns the SO_PEERCRED snapshot taken at accept time.
func (c *Client) Credentials() Credentials { return c.creds }

func (c *Client) nextSerial() uint32 {
	c.lastSerial++
	return c.lastSerial
}

func (c *Client) kill(err error) {
	if c.killed {
		return
	}
	c.killed = true
	c.killErr = err
}

// sendEvent serializes and queues one event for id; it panics on a
// signature mismatch, since that is a bug in the caller's generated
// binding, not a runtime condition.
func (c *Client) sendEvent(id ObjectID, opcode uint16, name string, sig proto.Signature, args []proto.Argument, isDestructor bool) error {
	if !proto.CheckSignature(sig, args) {
		panic_outboundSignature(id, opcode, name, sig)
	}
	rec, ok := c.objects.Find(id.id)
	if !ok || rec.Serial != id.serial {
		return &InvalidIDError{ID: id.id}
	}
	wldebug.Trace(c.debug, wldebug.Sent, id.id, rec.Interface, opcode, name, args)
	msg := proto.Message{SenderID: id.id, Opcode: opcode, Args: args}
	if err := c.sock.WriteMessage(msg); err != nil {
		c.kill(err)
		return err
	}
	if isDestructor {
		rec.Meta.Destroyed(id)
		c.objects.Remove(id.id)
		// Tell the client its id is free to reuse; ids from the
		// server-allocated half get no delete_id.
		if id.id < objmap.ServerIDLimit {
			if err := c.emitDeleteID(id.id); err != nil {
				return err
			}
		}
	}
	return nil
}

// emitDeleteID sends wl_display.delete_id(id) to notify the client that id
// is free to reuse, called whenever a client-half id is released whether by
// an outbound destructor event or an inbound destructor request.
func (c *Client) emitDeleteID(id uint32) error {
	msg := proto.Message{SenderID: 1, Opcode: proto.OpDisplayEventDeleteID, Args: []proto.Argument{proto.ArgUint(id)}}
	if err := c.sock.WriteMessage(msg); err != nil {
		c.kill(err)
		return err
	}
	return nil
}

func panic_outboundSignature(id ObjectID, opcode uint16, name string, sig proto.Signature) {
	panic("server: outbound signature mismatch on object " + objectIDString(id) + " event " + name + ": wanted " + signatureString(sig))
}

// flush drains the outgoing buffer.
func (c *Client) flush() error {
	if err := c.sock.Flush(); err != nil && err != socket.ErrWouldBlock {
		c.kill(err)
		return err
	}
	return nil
}

// nextRequest reads and delivers whole requests until the socket would
// block or the client is killed. It returns the number of requests
// dispatched.
func (c *Client) nextRequest(h *Handle) (int, error) {
	n := 0
	for !c.killed {
		senderID, opcode, err := c.sock.PeekOpcode()
		if err != nil {
			if fillErr := c.sock.FillIncoming(); fillErr != nil {
				if fillErr == socket.ErrWouldBlock {
					return n, nil
				}
				c.kill(fillErr)
				return n, fillErr
			}
			continue
		}

		rec, ok := c.objects.Find(senderID)
		if !ok {
			c.kill(&ProtocolError{ObjectID: senderID, Code: proto.ErrorInvalidObject, Message: "request for unknown object"})
			return n, c.killErr
		}
		sig, desc, derr := requestSignature(rec.Interface, opcode)
		if derr != nil {
			c.kill(derr)
			return n, derr
		}
		msg, perr := c.sock.ReadOneMessage(sig)
		if perr != nil {
			if perr == socket.ErrWouldBlock {
				return n, nil
			}
			if fillErr := c.sock.FillIncoming(); fillErr != nil && fillErr != socket.ErrWouldBlock {
				c.kill(fillErr)
				return n, fillErr
			}
			continue
		}
		wldebug.Trace(c.debug, wldebug.Received, senderID, rec.Interface, opcode, desc.Name, msg.Args)

		id := ObjectID{client: c.id, id: senderID, serial: rec.Serial}

		// wl_display and wl_registry manage the new ids their requests
		// declare (sync, get_registry, bind) themselves, since bind's
		// child interface comes from the wire rather than the schema;
		// every other interface's schema-declared children are created
		// here, generically, before the request reaches its handler.
		_, isDisplay := rec.Meta.(displayObjectData)
		_, isRegistry := rec.Meta.(registryObjectData)
		var childID ObjectID
		var hasChild bool
		if !isDisplay && !isRegistry {
			var perr error
			childID, hasChild, perr = c.promoteChild(desc, msg)
			if perr != nil {
				c.kill(perr)
				return n, perr
			}
		}

		childData, rerr := rec.Meta.Request(h, id, msg)
		if rerr != nil {
			c.kill(rerr)
			return n, rerr
		}
		if hasChild {
			if childData == nil {
				panic(fmt.Sprintf("server: request %q on object %d created object %d but returned no user-data for it", desc.Name, senderID, childID.id))
			}
			c.objects.With(childID.id, func(r *objmap.Record[ObjectData]) { r.Meta = childData })
		}
		n++
		if desc.IsDestructor {
			rec.Meta.Destroyed(id)
			c.objects.Remove(senderID)
			if senderID < objmap.ServerIDLimit {
				if err := c.emitDeleteID(senderID); err != nil {
					return n, err
				}
			}
		}
	}
	return n, c.killErr
}

// promoteChild installs a placeholder record for a request's NewId
// argument, using the request's statically known child interface, before
// the request is delivered to its object's Request callback.
func (c *Client) promoteChild(desc *proto.MessageDesc, msg proto.Message) (ObjectID, bool, error) {
	if desc.ChildInterface == nil {
		return ObjectID{}, false, nil
	}
	for _, a := range msg.Args {
		if a.Kind != proto.NewID {
			continue
		}
		rec := objmap.Record[ObjectData]{Interface: desc.ChildInterface, Version: desc.ChildInterface.Version}
		if _, err := c.objects.InsertAt(a.NewID, rec); err != nil {
			return ObjectID{}, false, &ProtocolError{ObjectID: a.NewID, Code: proto.ErrorInvalidObject, Message: "request new_id already in use"}
		}
		newRec, _ := c.objects.Find(a.NewID)
		return ObjectID{client: c.id, id: a.NewID, serial: newRec.Serial}, true, nil
	}
	return ObjectID{}, false, nil
}

func requestSignature(iface *proto.Interface, opcode uint16) (proto.Signature, *proto.MessageDesc, error) {
	if int(opcode) >= len(iface.Requests) {
		return nil, nil, &ProtocolError{Code: proto.ErrorInvalidMethod, Interface: iface.Name, Message: "unknown request opcode"}
	}
	desc := &iface.Requests[opcode]
	return desc.Signature, desc, nil
}

// handleDisplayRequest implements the two requests every wl_display
// supports inline: sync and get_registry.
func (c *Client) handleDisplayRequest(h *Handle, msg proto.Message) error {
	switch msg.Opcode {
	case proto.OpDisplaySync:
		cbID := msg.Args[0].NewID
		rec := objmap.Record[ObjectData]{Interface: proto.WlCallback, Version: 1, Meta: callbackObjectData{}}
		if _, err := c.objects.InsertAt(cbID, rec); err != nil {
			return &ProtocolError{ObjectID: cbID, Code: proto.ErrorInvalidObject, Message: "sync: new_id already in use"}
		}
		newRec, _ := c.objects.Find(cbID)
		id := ObjectID{client: c.id, id: cbID, serial: newRec.Serial}
		return c.sendEvent(id, proto.OpCallbackDone, "done", proto.Signature{proto.Uint}, []proto.Argument{proto.ArgUint(c.nextSerial())}, true)
	case proto.OpDisplayGetRegistry:
		regID := msg.Args[0].NewID
		rec := objmap.Record[ObjectData]{Interface: proto.WlRegistry, Version: 1}
		rec.Meta = registryObjectData{c: c}
		if _, err := c.objects.InsertAt(regID, rec); err != nil {
			return &ProtocolError{ObjectID: regID, Code: proto.ErrorInvalidObject, Message: "get_registry: new_id already in use"}
		}
		return h.sendInitialGlobals(c, regID)
	default:
		c.kill(&ProtocolError{ObjectID: 1, Code: proto.ErrorInvalidMethod, Message: "unknown wl_display request"})
		return c.killErr
	}
}

// handleRegistryRequest implements wl_registry.bind.
func (c *Client) handleRegistryRequest(h *Handle, regID ObjectID, msg proto.Message) error {
	if msg.Opcode != proto.OpRegistryBind {
		return &ProtocolError{ObjectID: regID.id, Code: proto.ErrorInvalidMethod, Message: "unknown wl_registry request"}
	}
	name := msg.Args[0].Uint
	ifaceName := msg.Args[1].Str
	version := msg.Args[2].Uint
	newID := msg.Args[3].NewID

	global, handler, err := h.registry.checkBind(c.id, c.data, GlobalID(name), ifaceName, version)
	if err != nil {
		return &ProtocolError{ObjectID: regID.id, Code: proto.ErrorInvalidObject, Message: err.Error()}
	}

	rec := objmap.Record[ObjectData]{Interface: global.iface, Version: version}
	if _, ierr := c.objects.InsertAt(newID, rec); ierr != nil {
		return &ProtocolError{ObjectID: newID, Code: proto.ErrorInvalidObject, Message: "bind: new_id already in use"}
	}
	objRec, _ := c.objects.Find(newID)
	objID := ObjectID{client: c.id, id: newID, serial: objRec.Serial}

	data, berr := handler.Bind(h, c.id, GlobalID(name), objID)
	if berr != nil {
		c.objects.Remove(newID)
		return berr
	}
	c.objects.With(newID, func(r *objmap.Record[ObjectData]) { r.Meta = data })
	return nil
}

func objectIDString(id ObjectID) string {
	return uintToString(uint64(id.id))
}

func signatureString(sig proto.Signature) string {
	s := "["
	for i, t := range sig {
		if i > 0 {
			s += " "
		}
		s += t.String()
	}
	return s + "]"
}

func uintToString(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
