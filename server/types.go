// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package server

import "github.com/wl-core/wlcore/proto"

// ClientID names one connected client for the lifetime of its connection.
type ClientID uint64

// ObjectID names a live server-side proxy, scoped to its owning client.
// Equality requires the same creation (serial), matching ObjectId in the
// original implementation.
type ObjectID struct {
	client ClientID
	id     uint32
	serial uint32
}

// Raw returns the wire-level object id.
func (o ObjectID) Raw() uint32 { return o.id }

// Client returns the id of the client that owns this object.
func (o ObjectID) Client() ClientID { return o.client }

// GlobalID names one registered global for the lifetime of the Handle.
type GlobalID uint32

// ObjectData is implemented by server-side per-object state; it receives
// every request the client sends for that object.
type ObjectData interface {
	// Request handles one incoming request. If the request carries a NewId
	// argument whose interface is statically known (MessageDesc.ChildInterface),
	// the dispatch loop has already inserted a placeholder record for the
	// child before calling Request, and Request must return the user-data
	// the new child object should carry; the returned value is ignored when
	// the request created no such child (including wl_registry.bind, whose
	// untyped new_id is handled separately by GlobalHandler.Bind).
	Request(h *Handle, id ObjectID, msg proto.Message) (ObjectData, error)
	// Destroyed is called once, when the object's destructor request (or
	// the client disconnecting) removes it from the map.
	Destroyed(id ObjectID)
}

// ClientData is implemented by per-client state supplied at InsertClient
// time.
type ClientData interface {
	// Initialized is called once the client's wl_display bootstrap object
	// is installed and ready to receive requests.
	Initialized(client ClientID)
	// Disconnected is called once, when the client's connection is torn
	// down, with the reason and (for DisconnectProtocolError) the error
	// that caused it.
	Disconnected(client ClientID, reason DisconnectReason, err error)
}

// GlobalHandler implements one advertised global: visibility filtering and
// bind construction.
type GlobalHandler interface {
	// CanView reports whether client should see this global in its
	// wl_registry.global events. The zero-value default (via
	// DefaultCanView embedding) is true.
	CanView(client ClientID, data ClientData, global GlobalID) bool
	// Bind constructs the ObjectData for a client's bind request.
	Bind(h *Handle, client ClientID, global GlobalID, object ObjectID) (ObjectData, error)
}

// DefaultCanView can be embedded by a GlobalHandler implementation that
// has no visibility restriction, matching the original's can_view
// default-true behavior without every handler repeating the method.
type DefaultCanView struct{}

func (DefaultCanView) CanView(ClientID, ClientData, GlobalID) bool { return true }

// displayObjectData backs the bootstrap wl_display object (id 1) on the
// server side.
type displayObjectData struct{ c *Client }

func (displayObjectData) Destroyed(ObjectID) {}

func (dd displayObjectData) Request(h *Handle, id ObjectID, msg proto.Message) (ObjectData, error) {
	return nil, dd.c.handleDisplayRequest(h, msg)
}

// registryObjectData backs a client's wl_registry object.
type registryObjectData struct{ c *Client }

func (registryObjectData) Destroyed(ObjectID) {}

func (rd registryObjectData) Request(h *Handle, id ObjectID, msg proto.Message) (ObjectData, error) {
	return nil, rd.c.handleRegistryRequest(h, id, msg)
}

// callbackObjectData backs a one-shot wl_callback returned by sync; it has
// no requests of its own.
type callbackObjectData struct{}

func (callbackObjectData) Destroyed(ObjectID) {}

func (callbackObjectData) Request(h *Handle, id ObjectID, msg proto.Message) (ObjectData, error) {
	return nil, &ProtocolError{ObjectID: id.id, Code: proto.ErrorInvalidMethod, Message: "wl_callback has no requests"}
}
