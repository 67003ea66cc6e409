package vm

// ---------------------------------------------------------------------------
// Buffer: growable array shared by the code, line, and constant streams
// ---------------------------------------------------------------------------

// minBufferCapacity is the first allocation made by an empty Buffer.
const minBufferCapacity = 16

// growCapacity returns the next capacity for a buffer that is full.
func growCapacity(capacity int) int {
	if capacity < minBufferCapacity {
		return minBufferCapacity
	}
	return capacity + capacity/2
}

// Buffer is an append-only array with explicit capacity management.
// Growth starts at 16 elements and then multiplies capacity by 1.5,
// reallocating and copying the existing contents.
type Buffer[T any] struct {
	items []T // len(items) is the capacity; count is the used prefix
	count int
}

// Push appends v and returns its index.
func (b *Buffer[T]) Push(v T) int {
	if b.count+1 > len(b.items) {
		b.grow(growCapacity(len(b.items)))
	}
	b.items[b.count] = v
	b.count++
	return b.count - 1
}

// grow reallocates the backing array to the given capacity.
func (b *Buffer[T]) grow(capacity int) {
	items := make([]T, capacity)
	copy(items, b.items[:b.count])
	b.items = items
}

// Len returns the number of elements pushed.
func (b *Buffer[T]) Len() int {
	return b.count
}

// Cap returns the allocated capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// At returns the element at index i. Panics if i is out of range.
func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.count {
		panic("Buffer.At: index out of range")
	}
	return b.items[i]
}

// Set overwrites the element at index i. Panics if i is out of range.
func (b *Buffer[T]) Set(i int, v T) {
	if i < 0 || i >= b.count {
		panic("Buffer.Set: index out of range")
	}
	b.items[i] = v
}

// Slice returns the used portion of the buffer. The result aliases the
// buffer's storage and is only valid until the next Push.
func (b *Buffer[T]) Slice() []T {
	return b.items[:b.count]
}

// ShrinkToFit releases unused capacity.
func (b *Buffer[T]) ShrinkToFit() {
	if b.count == len(b.items) {
		return
	}
	if b.count == 0 {
		b.items = nil
		return
	}
	b.grow(b.count)
}

// Reset empties the buffer and frees its storage.
func (b *Buffer[T]) Reset() {
	b.items = nil
	b.count = 0
}
