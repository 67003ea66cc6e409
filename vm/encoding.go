package vm

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Chunk files: compiled chunks serialized as CBOR
// ---------------------------------------------------------------------------

// ChunkFormatVersion is written into every encoded chunk and checked on load.
const ChunkFormatVersion = 1

// ErrBadChunk is wrapped by UnmarshalChunk for structurally invalid input.
var ErrBadChunk = errors.New("malformed chunk")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireChunk struct {
	Version   uint8          `cbor:"1,keyasint"`
	Code      []byte         `cbor:"2,keyasint"`
	Lines     []int          `cbor:"3,keyasint"`
	Constants []wireConstant `cbor:"4,keyasint,omitempty"`
}

type wireConstant struct {
	Kind   ValueKind `cbor:"1,keyasint"`
	Bool   bool      `cbor:"2,keyasint,omitempty"`
	Number float64   `cbor:"3,keyasint,omitempty"`
	String string    `cbor:"4,keyasint,omitempty"`
}

// MarshalChunk serializes a Chunk to CBOR bytes.
func MarshalChunk(c *Chunk) ([]byte, error) {
	w := wireChunk{
		Version: ChunkFormatVersion,
		Code:    c.Code(),
		Lines:   c.lines.Slice(),
	}
	for i, v := range c.Constants() {
		wc := wireConstant{Kind: v.Kind()}
		switch v.Kind() {
		case KindBool:
			wc.Bool = v.Bool()
		case KindNumber:
			wc.Number = v.Number()
		case KindObject:
			s := v.AsString()
			if s == nil {
				return nil, fmt.Errorf("vm: constant %d: cannot encode %s object", i, v.Object().Kind())
			}
			wc.String = s.String()
		}
		w.Constants = append(w.Constants, wc)
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalChunk deserializes a Chunk from CBOR bytes. String constants
// are interned into heap.
func UnmarshalChunk(data []byte, heap *Heap) (*Chunk, error) {
	var w wireChunk
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("vm: unmarshal chunk: %w", err)
	}
	if w.Version != ChunkFormatVersion {
		return nil, fmt.Errorf("%w: format version %d, want %d", ErrBadChunk, w.Version, ChunkFormatVersion)
	}
	if len(w.Lines) != len(w.Code) {
		return nil, fmt.Errorf("%w: %d line entries for %d code bytes", ErrBadChunk, len(w.Lines), len(w.Code))
	}
	if len(w.Constants) > MaxConstants {
		return nil, fmt.Errorf("%w: %d constants", ErrBadChunk, len(w.Constants))
	}
	if len(w.Code) == 0 || Opcode(w.Code[len(w.Code)-1]) != OpReturn {
		return nil, fmt.Errorf("%w: missing final RETURN", ErrBadChunk)
	}

	c := NewChunk()
	for i, b := range w.Code {
		c.Write(b, w.Lines[i])
	}
	for i, wc := range w.Constants {
		var v Value
		switch wc.Kind {
		case KindBool:
			v = FromBool(wc.Bool)
		case KindNull:
			v = Null
		case KindNumber:
			v = FromNumber(wc.Number)
		case KindObject:
			v = FromObject(heap.Intern(wc.String))
		default:
			return nil, fmt.Errorf("%w: constant %d has kind %d", ErrBadChunk, i, wc.Kind)
		}
		if _, err := c.AddConstant(v); err != nil {
			return nil, err
		}
	}
	c.Seal()
	return c, nil
}
