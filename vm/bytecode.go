package vm

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Push Constants
const (
	OpConstant Opcode = 0x00 // push constant (8-bit pool index)
	OpNull     Opcode = 0x01 // push null
	OpTrue     Opcode = 0x02 // push true
	OpFalse    Opcode = 0x03 // push false
	OpPop      Opcode = 0x04 // discard top of stack
)

// Variable Operations
const (
	OpGetLocal     Opcode = 0x10 // push local (8-bit slot)
	OpSetLocal     Opcode = 0x11 // store top into local (8-bit slot), value stays
	OpGetGlobal    Opcode = 0x12 // push global (8-bit name constant)
	OpDefineGlobal Opcode = 0x13 // pop into new global (8-bit name constant)
	OpSetGlobal    Opcode = 0x14 // store top into existing global (8-bit name constant)
)

// Operators
const (
	OpEqual    Opcode = 0x20 // pops 2, pushes bool
	OpGreater  Opcode = 0x21 // pops 2 numbers, pushes bool
	OpLess     Opcode = 0x22 // pops 2 numbers, pushes bool
	OpAdd      Opcode = 0x23 // numbers or strings
	OpSubtract Opcode = 0x24
	OpMultiply Opcode = 0x25
	OpDivide   Opcode = 0x26
	OpNot      Opcode = 0x27 // logical not by truthiness
	OpNegate   Opcode = 0x28 // numeric negate
)

// Input/Output
const (
	OpWrite Opcode = 0x30 // pop and print
	OpAsk   Opcode = 0x31 // pop prompt, print it, push line read
)

// Control Flow
const (
	OpJump        Opcode = 0x40 // forward jump (16-bit big-endian offset)
	OpJumpIfFalse Opcode = 0x41 // forward jump if top is falsey, does not pop
	OpLoop        Opcode = 0x42 // backward jump (16-bit big-endian offset)
	OpReturn      Opcode = 0x43 // end of unit
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes
	StackEffect  int    // net effect on stack
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpConstant: {"CONSTANT", 1, 1},
	OpNull:     {"NULL", 0, 1},
	OpTrue:     {"TRUE", 0, 1},
	OpFalse:    {"FALSE", 0, 1},
	OpPop:      {"POP", 0, -1},

	OpGetLocal:     {"GET_LOCAL", 1, 1},
	OpSetLocal:     {"SET_LOCAL", 1, 0},
	OpGetGlobal:    {"GET_GLOBAL", 1, 1},
	OpDefineGlobal: {"DEFINE_GLOBAL", 1, -1},
	OpSetGlobal:    {"SET_GLOBAL", 1, 0},

	OpEqual:    {"EQUAL", 0, -1},
	OpGreater:  {"GREATER", 0, -1},
	OpLess:     {"LESS", 0, -1},
	OpAdd:      {"ADD", 0, -1},
	OpSubtract: {"SUBTRACT", 0, -1},
	OpMultiply: {"MULTIPLY", 0, -1},
	OpDivide:   {"DIVIDE", 0, -1},
	OpNot:      {"NOT", 0, 0},
	OpNegate:   {"NEGATE", 0, 0},

	OpWrite: {"WRITE", 0, -1},
	OpAsk:   {"ASK", 0, 0},

	OpJump:        {"JUMP", 2, 0},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 2, 0},
	OpLoop:        {"LOOP", 2, 0},
	OpReturn:      {"RETURN", 0, 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op)), OperandBytes: 0, StackEffect: 0}
}

// String returns the opcode name.
func (op Opcode) String() string {
	return op.Info().Name
}

// IsJump reports whether op carries a 16-bit jump offset.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpIfFalse || op == OpLoop
}

// ---------------------------------------------------------------------------
// Jump operand encoding
// ---------------------------------------------------------------------------

// MaxJump is the largest offset a jump operand can encode.
const MaxJump = 1<<16 - 1

// encodeJump splits a 16-bit offset into big-endian bytes.
func encodeJump(offset int) (hi, lo byte) {
	return byte((offset >> 8) & 0xff), byte(offset & 0xff)
}

// decodeJump joins two big-endian bytes into an offset.
func decodeJump(hi, lo byte) int {
	return int(hi)<<8 | int(lo)
}
