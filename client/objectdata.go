// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package client

import "github.com/wl-core/wlcore/proto"

// ObjectID names a live client-side proxy. Two ObjectIDs are equal only if
// they refer to the same creation of the same wire id; a stale ObjectID
// captured before its slot was recycled will fail Display.ObjectInfo and
// Display.SendRequest with InvalidIDError.
type ObjectID struct {
	id     uint32
	serial uint32
}

// Raw returns the wire-level object id, e.g. for inclusion in an outbound
// Argument.
func (o ObjectID) Raw() uint32 { return o.id }

// ObjectData is implemented by a type representing one proxy object; it
// receives every event the compositor sends for that object.
type ObjectData interface {
	// Event handles one incoming event. If the event carries a NewId
	// argument, the dispatch loop has already inserted a placeholder record
	// for the child (using the event's statically known child interface)
	// before calling Event, and Event must return the user-data the new
	// child proxy should carry; the returned value is ignored when the
	// event created no child.
	//
	// Returning an error kills the connection exactly as an outbound
	// signature mismatch panic would, since a handler that cannot make
	// sense of its own protocol leaves the connection in an unknown state.
	Event(d *Display, id ObjectID, msg proto.Message) (ObjectData, error)
	// Destroyed is called once, when the object's destructor event (or a
	// server-initiated delete_id) removes it from the map.
	Destroyed(id ObjectID)
}

// displayData backs the bootstrap wl_display object (id 1); it owns no
// protocol state, matching DumbObjectData in the original.
type displayData struct{ d *Display }

func (displayData) Destroyed(ObjectID) {}

func (dd displayData) Event(d *Display, id ObjectID, msg proto.Message) (ObjectData, error) {
	switch msg.Opcode {
	case proto.OpDisplayEventError:
		return nil, &ProtocolError{
			ObjectID: msg.Args[0].Object,
			Code:     msg.Args[1].Uint,
			Message:  msg.Args[2].Str,
		}
	case proto.OpDisplayEventDeleteID:
		if rec, ok := d.objects.Find(msg.Args[0].Uint); ok {
			rec.Meta.Destroyed(ObjectID{id: msg.Args[0].Uint, serial: rec.Serial})
		}
		d.objects.Remove(msg.Args[0].Uint)
		return nil, nil
	default:
		return nil, &ProtocolError{ObjectID: id.id, Code: proto.ErrorInvalidMethod, Message: "unknown wl_display event"}
	}
}

// callbackData backs a one-shot wl_callback returned by Sync.
type callbackData struct {
	done func(callbackData uint32)
}

func (callbackData) Destroyed(ObjectID) {}

func (c callbackData) Event(d *Display, id ObjectID, msg proto.Message) (ObjectData, error) {
	if msg.Opcode != proto.OpCallbackDone {
		return nil, &ProtocolError{ObjectID: id.id, Code: proto.ErrorInvalidMethod, Message: "unknown wl_callback event"}
	}
	if c.done != nil {
		c.done(msg.Args[0].Uint)
	}
	return nil, nil
}
