// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package proto

// The three core interfaces handled inline by both the client and server
// cores (spec §4.4, §4.5, §6). Their descriptors are defined once here so
// opcode numbers and signatures can never drift between the two peers.

// WlCallback is the destructor-event-only "one shot" interface returned by
// wl_display.sync.
var WlCallback = &Interface{
	Name: "wl_callback",
	Version: 1,
	Events: []MessageDesc{
		{Name: "done", Signature: Signature{Uint}, IsDestructor: true},
	},
}

// WlRegistry advertises and binds server globals.
var WlRegistry = &Interface{
	Name: "wl_registry",
	Version: 1,
	Requests: []MessageDesc{
		{
			Name: "bind",
			// (name uint, untyped new_id) expands on the wire to
			// (name uint, interface string, version uint, id new_id).
			Signature: Signature{Uint, Str, Uint, NewID},
		},
	},
	Events: []MessageDesc{
		{Name: "global", Signature: Signature{Uint, Str, Uint}},
		{Name: "global_remove", Signature: Signature{Uint}},
	},
}

// WlDisplay is the root object, always bound to id 1.
var WlDisplay = &Interface{
	Name: "wl_display",
	Version: 1,
	Requests: []MessageDesc{
		{Name: "sync", Signature: Signature{NewID}, ChildInterface: WlCallback},
		{Name: "get_registry", Signature: Signature{NewID}, ChildInterface: WlRegistry},
	},
	Events: []MessageDesc{
		{Name: "error", Signature: Signature{Object, Uint, Str}, ArgInterfaces: []*Interface{Anonymous}},
		{Name: "delete_id", Signature: Signature{Uint}},
	},
}

// Opcodes for the built-in messages, named for readability at call sites.
const (
	OpDisplaySync uint16 = 0
	OpDisplayGetRegistry uint16 = 1

	OpDisplayEventError uint16 = 0
	OpDisplayEventDeleteID uint16 = 1

	OpRegistryBind uint16 = 0

	OpRegistryEventGlobal uint16 = 0
	OpRegistryEventGlobalRemove uint16 = 1

	OpCallbackDone uint16 = 0
)

// wl_display.error error codes (the subset the core itself can raise;
// interface-specific codes belong to generated protocol packages).
const (
	ErrorInvalidObject uint32 = 0
	ErrorInvalidMethod uint32 = 1
	ErrorNoMemory uint32 = 2
	ErrorImplementation uint32 = 3
)
