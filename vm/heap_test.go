package vm

import (
	"sync"
	"testing"
)

func TestInternReturnsSameObject(t *testing.T) {
	h := NewHeap()
	a := h.Intern("name")
	b := h.Intern("na" + "me")
	if a != b {
		t.Error("interning equal contents should return the same object")
	}
	if h.StringCount() != 1 {
		t.Errorf("StringCount() = %d, want 1", h.StringCount())
	}
	if h.Bytes() != 4 {
		t.Errorf("Bytes() = %d, want 4", h.Bytes())
	}
}

func TestInternHashMatchesObject(t *testing.T) {
	h := NewHeap()
	s := h.Intern("hello")
	if s.Hash() != hashString("hello") {
		t.Errorf("Hash() = %d, want %d", s.Hash(), hashString("hello"))
	}
	// FNV-1a of the empty string is the offset basis.
	if got := hashString(""); got != 2166136261 {
		t.Errorf("hashString(\"\") = %d, want 2166136261", got)
	}
}

func TestLookup(t *testing.T) {
	h := NewHeap()
	if h.Lookup("missing") != nil {
		t.Error("Lookup of an unknown string should return nil")
	}
	s := h.Intern("present")
	if h.Lookup("present") != s {
		t.Error("Lookup should return the interned object")
	}
}

func TestConcat(t *testing.T) {
	h := NewHeap()
	got := h.Concat(h.Intern("foo"), h.Intern("bar"))
	if got.String() != "foobar" {
		t.Errorf("Concat = %q, want foobar", got)
	}
	if got != h.Intern("foobar") {
		t.Error("concatenation result should be interned")
	}
}

func TestInternConcurrent(t *testing.T) {
	h := NewHeap()
	const workers = 8
	results := make([]*StringObject, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.Intern("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("worker %d got a different object", i)
		}
	}
	if h.StringCount() != 1 {
		t.Errorf("StringCount() = %d, want 1", h.StringCount())
	}
}
