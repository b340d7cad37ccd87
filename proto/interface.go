// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package proto holds the static, generator-independent description of the
// Wayland wire protocol: argument types, interface/message descriptors, and
// the three core interfaces (wl_display, wl_registry, wl_callback) that the
// client and server cores handle inline.
//
// Everything else — the XML-to-Go code generator and the hundreds of
// individual protocol definitions (xdg-shell, linux-dmabuf, ...) — is
// explicitly out of scope; this package only defines the shapes that
// generated code (or, for the core's own built-ins, hand-written
// descriptors below) must produce.
package proto

// AllowNull reports whether a Str/Object/NewId/Array argument may carry the
// null/empty value on the wire.
type AllowNull bool

const (
	NotNull AllowNull = false
	Nullable AllowNull = true
)

// ArgumentType is the closed set of wire-level argument tags.
type ArgumentType uint8

const (
	Int ArgumentType = iota
	Uint
	Fixed
	Str
	Object
	NewID
	Array
	Fd
)

func (t ArgumentType) String() string {
	switch t {
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Fixed:
		return "fixed"
	case Str:
		return "string"
	case Object:
		return "object"
	case NewID:
		return "new_id"
	case Array:
		return "array"
	case Fd:
		return "fd"
	default:
		return "unknown"
	}
}

// Signature is an ordered list of argument types describing one message.
type Signature []ArgumentType

// MessageDesc describes one request or event of an Interface.
type MessageDesc struct {
	Name string
	Signature Signature
	// Nullable carries, index for index with Signature, whether the
	// corresponding Str/Object/NewId/Array argument may be null. A nil
	// slice means "none of them are nullable".
	Nullable []AllowNull
	// Since is the minimum interface version this message requires.
	Since uint32
	// IsDestructor marks a message whose receipt removes its sender object
	// from the map on both peers.
	IsDestructor bool
	// ChildInterface is set for messages that create a new object (a
	// NewId argument) whose interface is statically known. Nil for the
	// single "untyped new_id" case (wl_registry.bind).
	ChildInterface *Interface
	// ArgInterfaces holds, one entry per Object-typed argument in
	// declaration order, the expected interface of that argument.
	ArgInterfaces []*Interface
}

// Interface is a static descriptor naming an object's request/event schemas
// and its maximum supported version.
type Interface struct {
	Name string
	Version uint32
	Requests []MessageDesc
	Events []MessageDesc
}

func (i *Interface) String() string {
	if i == nil {
		return "<nil>"
	}
	return i.Name
}

// Anonymous is the special interface used for untyped new_id arguments
// (the target of wl_registry.bind before the requested interface is known)
// and for placeholder objects not yet filled in by the protocol logic.
var Anonymous = &Interface{Name: "<anonymous>", Version: 0}

// SameInterface reports whether a and b name the same protocol interface.
// The anonymous interface is never considered equal to a concrete one; call
// sites that need to accept "anonymous or concrete" do so explicitly.
func SameInterface(a, b *Interface) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Name == b.Name
}

// ObjectInfo is a read-only snapshot of an object's protocol identity.
type ObjectInfo struct {
	ID uint32
	Interface *Interface
	Version uint32
}
