package vm

// ObjectKind identifies the variant of a heap object.
type ObjectKind uint8

const (
	ObjString ObjectKind = iota
)

func (k ObjectKind) String() string {
	switch k {
	case ObjString:
		return "string"
	}
	return "object"
}

// Object is a heap-allocated Kavya object. Objects are created and owned
// by a Heap; values only hold references to them.
type Object interface {
	Kind() ObjectKind
	String() string
}

// ---------------------------------------------------------------------------
// StringObject
// ---------------------------------------------------------------------------

// StringObject is an immutable, interned string. Two StringObjects from
// the same Heap are the same pointer exactly when their contents match.
type StringObject struct {
	chars string
	hash  uint32
}

// Kind implements Object.
func (s *StringObject) Kind() ObjectKind { return ObjString }

// String returns the character data.
func (s *StringObject) String() string { return s.chars }

// Len returns the byte length.
func (s *StringObject) Len() int { return len(s.chars) }

// Hash returns the precomputed FNV-1a hash of the contents.
func (s *StringObject) Hash() uint32 { return s.hash }

// hashString computes 32-bit FNV-1a.
func hashString(s string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}
