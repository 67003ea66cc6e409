package vm

import "sync"

// ---------------------------------------------------------------------------
// Heap: process-wide registry owning every heap object
// ---------------------------------------------------------------------------

// Heap owns all objects created while compiling and running Kavya code.
// Objects live as long as the Heap; there is no per-object free path.
//
// Strings are interned: the table is bucketed by each string's precomputed
// hash, and a lookup compares contents only within one bucket. Interning
// makes string equality a pointer comparison.
//
// A Heap is safe for concurrent use, so a compiler and a VM on different
// goroutines may share one.
type Heap struct {
	mu      sync.RWMutex
	strings map[uint32][]*StringObject
	count   int
	bytes   int
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		strings: make(map[uint32][]*StringObject),
	}
}

// Intern returns the unique StringObject holding s, creating it if needed.
func (h *Heap) Intern(s string) *StringObject {
	hash := hashString(s)

	h.mu.RLock()
	obj := findString(h.strings[hash], s)
	h.mu.RUnlock()
	if obj != nil {
		return obj
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Another goroutine may have interned s between the locks.
	if obj := findString(h.strings[hash], s); obj != nil {
		return obj
	}
	obj = &StringObject{chars: s, hash: hash}
	h.strings[hash] = append(h.strings[hash], obj)
	h.count++
	h.bytes += len(s)
	return obj
}

// Lookup returns the interned StringObject for s, or nil if s has never
// been interned.
func (h *Heap) Lookup(s string) *StringObject {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return findString(h.strings[hashString(s)], s)
}

// NewString returns a value referencing the interned string s.
func (h *Heap) NewString(s string) Value {
	return FromObject(h.Intern(s))
}

// Concat returns the interned concatenation of a and b.
func (h *Heap) Concat(a, b *StringObject) *StringObject {
	return h.Intern(a.chars + b.chars)
}

// StringCount returns the number of distinct strings on the heap.
func (h *Heap) StringCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Bytes returns the total character bytes held by heap strings.
func (h *Heap) Bytes() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bytes
}

func findString(bucket []*StringObject, s string) *StringObject {
	for _, obj := range bucket {
		if obj.chars == s {
			return obj
		}
	}
	return nil
}
