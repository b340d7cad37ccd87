// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package socket

// Buffer is a fixed-capacity ring-ish staging area: bytes (or fds) are
// appended at the tail (occupied grows) and consumed from the head (offset
// advances); MoveToFront compacts the unread remainder back to index 0 once
// a reader has drained what it can use. Grounded on
// wayland-backend/src/rs/socket.rs's Buffer<T>.
type Buffer[T any] struct {
	storage  []T
	occupied int
	offset   int
}

// NewBuffer allocates a Buffer with the given capacity.
func NewBuffer[T any](capacity int) *Buffer[T] {
	return &Buffer[T]{storage: make([]T, capacity)}
}

// Len returns the number of unread elements.
func (b *Buffer[T]) Len() int { return b.occupied - b.offset }

// Cap returns the total storage capacity.
func (b *Buffer[T]) Cap() int { return len(b.storage) }

// Contents returns the unread slice [offset:occupied). The slice aliases
// the buffer's storage and is invalidated by the next mutating call.
func (b *Buffer[T]) Contents() []T { return b.storage[b.offset:b.occupied] }

// WritableStorage returns the tail space available for appending new
// elements, from occupied to the end of storage.
func (b *Buffer[T]) WritableStorage() []T { return b.storage[b.occupied:] }

// Advance marks n additional elements (written into WritableStorage) as
// occupied.
func (b *Buffer[T]) Advance(n int) { b.occupied += n }

// Offset consumes n elements from the head of the unread region.
func (b *Buffer[T]) Offset(n int) { b.offset += n }

// Clear resets the buffer to empty without releasing storage.
func (b *Buffer[T]) Clear() { b.occupied = 0; b.offset = 0 }

// MoveToFront copies the unread remainder down to index 0, so a subsequent
// append has the maximum possible contiguous tail space. Call this before
// refilling from the wire.
func (b *Buffer[T]) MoveToFront() {
	if b.offset == 0 {
		return
	}
	n := copy(b.storage, b.storage[b.offset:b.occupied])
	b.occupied = n
	b.offset = 0
}
