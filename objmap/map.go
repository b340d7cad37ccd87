// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package objmap implements the id-to-object table shared by both peers of
// a connection: a split address space (client-allocated ids below
// ServerIDLimit, server-allocated ids at or above it), first-free-slot
// reuse, and a creation serial per slot so a stale handle captured before a
// slot was recycled is rejected rather than silently aliased onto the new
// occupant.
//
// Grounded on the original implementation's wayland-commons/src/map.rs
// (ObjectMap<Meta>, insert_in/insert_in_at); generalized from Meta being a
// fixed associated type to a Go type parameter, since this module has no
// equivalent of Rust's trait-associated-type indirection.
package objmap

import "github.com/wl-core/wlcore/proto"

// ServerIDLimit is the first id reserved for server-side allocation; ids
// below it are allocated by the client.
const ServerIDLimit = 0xFF00_0000

// Record is one object map slot: its protocol identity plus caller-defined
// metadata (ObjectData on the client, server-side per-object state on the
// server).
type Record[Meta any] struct {
	Interface *proto.Interface
	Version   uint32
	Meta      Meta
	// Serial is bumped each time a slot is reused; a caller that cached an
	// id together with the serial it observed can detect that the id now
	// names a different object.
	Serial uint32
}

// Map is a split object table: ids in [1, ServerIDLimit) live in the
// client half, indexed by id-1; ids in [ServerIDLimit, 0xFFFFFFFF] live in
// the server half, indexed by id-ServerIDLimit. Slots are never removed
// from the backing storage, only marked empty, so ids are never silently
// reassigned without a serial bump.
type Map[Meta any] struct {
	client []*Record[Meta]
	server []*Record[Meta]
	serial uint32
}

// New returns an empty Map with wl_display pre-inserted at id 1, matching
// every connection's bootstrap state.
func New[Meta any](displayMeta Meta) *Map[Meta] {
	m := &Map[Meta]{}
	_, _ = m.InsertAt(1, Record[Meta]{Interface: proto.WlDisplay, Version: 1, Meta: displayMeta})
	return m
}

func (m *Map[Meta]) nextSerial() uint32 {
	m.serial++
	return m.serial
}

func half(id uint32) (isServer bool, idx int) {
	if id >= ServerIDLimit {
		return true, int(id - ServerIDLimit)
	}
	return false, int(id - 1)
}

// Find returns the record at id, if any.
func (m *Map[Meta]) Find(id uint32) (Record[Meta], bool) {
	if id == 0 {
		return Record[Meta]{}, false
	}
	isServer, idx := half(id)
	vec := &m.client
	if isServer {
		vec = &m.server
	}
	if idx < 0 || idx >= len(*vec) || (*vec)[idx] == nil {
		return Record[Meta]{}, false
	}
	return *(*vec)[idx], true
}

// With calls f with a mutable pointer to the record at id, if live.
func (m *Map[Meta]) With(id uint32, f func(*Record[Meta])) bool {
	isServer, idx := half(id)
	vec := &m.client
	if isServer {
		vec = &m.server
	}
	if idx < 0 || idx >= len(*vec) || (*vec)[idx] == nil {
		return false
	}
	f((*vec)[idx])
	return true
}

// WithAll invokes f once per live record, client ids first.
func (m *Map[Meta]) WithAll(f func(id uint32, rec *Record[Meta])) {
	for i, r := range m.client {
		if r != nil {
			f(uint32(i)+1, r)
		}
	}
	for i, r := range m.server {
		if r != nil {
			f(uint32(i)+ServerIDLimit, r)
		}
	}
}

// Remove marks id's slot empty. The slot's storage is retained so a future
// insertion there gets a fresh serial.
func (m *Map[Meta]) Remove(id uint32) error {
	isServer, idx := half(id)
	vec := &m.client
	if isServer {
		vec = &m.server
	}
	if idx < 0 || idx >= len(*vec) || (*vec)[idx] == nil {
		return ErrInvalidID
	}
	(*vec)[idx] = nil
	return nil
}

// InsertAt places rec at exactly id, failing if that slot is occupied.
// Growing past the current length is allowed (intervening slots stay nil);
// this is how a client pre-allocates a new_id below what the server has
// seen yet.
func (m *Map[Meta]) InsertAt(id uint32, rec Record[Meta]) (uint32, error) {
	if id == 0 {
		return 0, ErrInvalidID
	}
	isServer, idx := half(id)
	vec := &m.client
	if isServer {
		vec = &m.server
	}
	if idx < 0 {
		return 0, ErrIDOutOfRange
	}
	if idx < len(*vec) {
		if (*vec)[idx] != nil {
			return 0, ErrIDInUse
		}
	} else {
		grown := make([]*Record[Meta], idx+1)
		copy(grown, *vec)
		*vec = grown
	}
	rec.Serial = m.nextSerial()
	(*vec)[idx] = &rec
	return id, nil
}

// insertFirstFree places rec at the first free slot of vec (first-free-slot
// reuse, as opposed to always growing) and returns that slot's id, its index
// plus base.
func (m *Map[Meta]) insertFirstFree(vec *[]*Record[Meta], rec Record[Meta], base uint32) uint32 {
	for i, r := range *vec {
		if r == nil {
			rec.Serial = m.nextSerial()
			(*vec)[i] = &rec
			return uint32(i) + base
		}
	}
	rec.Serial = m.nextSerial()
	*vec = append(*vec, &rec)
	return uint32(len(*vec)-1) + base
}

// ClientInsertNew allocates the lowest free client-owned id for rec.
func (m *Map[Meta]) ClientInsertNew(rec Record[Meta]) uint32 {
	return m.insertFirstFree(&m.client, rec, 1)
}

// ServerInsertNew allocates the lowest free server-owned id for rec.
func (m *Map[Meta]) ServerInsertNew(rec Record[Meta]) uint32 {
	return m.insertFirstFree(&m.server, rec, ServerIDLimit)
}
