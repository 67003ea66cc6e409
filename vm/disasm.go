package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction renders the instruction at offset and returns
// the text together with the offset of the next instruction.
func DisassembleInstruction(c *Chunk, offset int) (string, int) {
	code := c.Code()
	op := Opcode(code[offset])
	info := op.Info()

	line := fmt.Sprintf("%4d", c.Line(offset))
	if offset > 0 && c.Line(offset) == c.Line(offset-1) {
		line = "   |"
	}
	prefix := fmt.Sprintf("%04d %s %-14s", offset, line, info.Name)

	if offset+info.OperandBytes >= len(code) && info.OperandBytes > 0 {
		return strings.TrimRight(prefix, " ") + " <truncated>", len(code)
	}

	switch op {
	case OpConstant, OpGetGlobal, OpSetGlobal, OpDefineGlobal:
		idx := int(code[offset+1])
		lit := "?"
		if idx < len(c.Constants()) {
			lit = c.Constant(idx).String()
		}
		return fmt.Sprintf("%s %4d '%s'", prefix, idx, lit), offset + 2

	case OpGetLocal, OpSetLocal:
		return fmt.Sprintf("%s %4d", prefix, code[offset+1]), offset + 2

	case OpJump, OpJumpIfFalse:
		jump := decodeJump(code[offset+1], code[offset+2])
		return fmt.Sprintf("%s %4d -> %d", prefix, offset, offset+3+jump), offset + 3

	case OpLoop:
		jump := decodeJump(code[offset+1], code[offset+2])
		return fmt.Sprintf("%s %4d -> %d", prefix, offset, offset+3-jump), offset + 3

	default:
		return strings.TrimRight(prefix, " "), offset + 1 + info.OperandBytes
	}
}

// Disassemble returns a full listing of the chunk under a header.
func Disassemble(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < c.Len(); {
		var text string
		text, offset = DisassembleInstruction(c, offset)
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}
