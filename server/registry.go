// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package server

import (
	"fmt"

	"github.com/wl-core/wlcore/proto"
)

// global is one registered global: its advertised identity plus the
// handler that filters visibility and constructs bind targets.
type global struct {
	iface      *proto.Interface
	version    uint32
	handler    GlobalHandler
	disabled   bool
}

// Registry owns every global registered on a Handle; clients' wl_registry
// objects live in each Client's object map. CreateGlobal/DisableGlobal/
// RemoveGlobal mirror the three-state lifecycle from the original (live,
// disabled-but-handler-kept for late binds, fully removed).
//
// Grounded on wayland-backend/src/server_api.rs (GlobalHandler trait) and
// wayland-backend/src/rs/server/handle.rs (create_global/disable_global/
// remove_global).
type Registry struct {
	globals map[GlobalID]*global
	nextID  GlobalID
}

func newRegistry() *Registry {
	return &Registry{globals: make(map[GlobalID]*global)}
}

// CreateGlobal registers a new global and returns its id. Every currently
// connected client will see it on its next wl_registry.global event only
// if the caller also calls Handle.BroadcastGlobal; CreateGlobal alone just
// makes it bindable and visible to clients that connect afterward.
func (r *Registry) CreateGlobal(iface *proto.Interface, version uint32, handler GlobalHandler) GlobalID {
	r.nextID++
	id := r.nextID
	r.globals[id] = &global{iface: iface, version: version, handler: handler}
	return id
}

// DisableGlobal stops advertising id to wl_registry objects created
// afterward while keeping its handler alive; checkBind does not look at
// the disabled flag, so a bind to id (such as one already in flight from a
// client that saw the global moments before disable) still succeeds rather
// than racing a handler teardown.
func (r *Registry) DisableGlobal(id GlobalID) {
	if g, ok := r.globals[id]; ok {
		g.disabled = true
	}
}

// RemoveGlobal fully removes id; any client that binds it afterward gets
// InvalidObject.
func (r *Registry) RemoveGlobal(id GlobalID) {
	delete(r.globals, id)
}

// GlobalInfo reports a global's static identity.
func (r *Registry) GlobalInfo(id GlobalID) (*proto.Interface, uint32, bool) {
	g, ok := r.globals[id]
	if !ok {
		return nil, 0, false
	}
	return g.iface, g.version, true
}

// checkBind validates a wl_registry.bind request: the global must exist,
// be visible to the client, and the requested interface/version must be
// within range.
func (r *Registry) checkBind(client ClientID, data ClientData, id GlobalID, ifaceName string, version uint32) (*global, GlobalHandler, error) {
	g, ok := r.globals[id]
	if !ok {
		return nil, nil, fmt.Errorf("no global with name %d", id)
	}
	if !g.handler.CanView(client, data, id) {
		return nil, nil, fmt.Errorf("global %d is not visible to this client", id)
	}
	if g.iface.Name != ifaceName {
		return nil, nil, fmt.Errorf("global %d is %s, not %s", id, g.iface.Name, ifaceName)
	}
	if version == 0 || version > g.version {
		return nil, nil, fmt.Errorf("global %d supports up to version %d, requested %d", id, g.version, version)
	}
	return g, g.handler, nil
}

// visibleIDs returns the ids of every non-disabled global visible to
// client, in ascending order, for wl_registry bootstrap.
func (r *Registry) visibleIDs(client ClientID, data ClientData) []GlobalID {
	ids := make([]GlobalID, 0, len(r.globals))
	for id, g := range r.globals {
		if g.disabled {
			continue
		}
		if !g.handler.CanView(client, data, id) {
			continue
		}
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
