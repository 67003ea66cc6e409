package vm

import (
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Interpreter loop
// ---------------------------------------------------------------------------

func (v *VM) readByte() byte {
	b := v.chunk.Code()[v.ip]
	v.ip++
	return b
}

func (v *VM) readShort() int {
	code := v.chunk.Code()
	offset := decodeJump(code[v.ip], code[v.ip+1])
	v.ip += 2
	return offset
}

func (v *VM) readConstant() Value {
	return v.chunk.Constant(int(v.readByte()))
}

// readName reads a constant operand that names a global.
func (v *VM) readName() *StringObject {
	name := v.readConstant().AsString()
	if name == nil {
		panic("global name constant is not a string")
	}
	return name
}

// run is the dispatch loop. Operands are popped from the stack top and
// results pushed back.
func (v *VM) run() error {
	code := v.chunk.Code()

	for {
		if v.ip >= len(code) {
			return v.runtimeError("Execution ran past the end of the chunk.")
		}
		v.opStart = v.ip
		op := Opcode(v.readByte())

		switch op {
		// --- Push constants ---
		case OpConstant:
			v.push(v.readConstant())

		case OpNull:
			v.push(Null)

		case OpTrue:
			v.push(True)

		case OpFalse:
			v.push(False)

		case OpPop:
			v.pop()

		// --- Variables ---
		case OpGetLocal:
			slot := int(v.readByte())
			v.push(v.stack[slot])

		case OpSetLocal:
			slot := int(v.readByte())
			v.stack[slot] = v.peek(0)

		case OpGetGlobal:
			name := v.readName()
			val, ok := v.globals[name]
			if !ok {
				return v.runtimeError("Undefined variable '%s'.", name)
			}
			v.push(val)

		case OpDefineGlobal:
			name := v.readName()
			v.globals[name] = v.peek(0)
			v.pop()

		case OpSetGlobal:
			name := v.readName()
			if _, ok := v.globals[name]; !ok {
				return v.runtimeError("Undefined variable '%s'.", name)
			}
			v.globals[name] = v.peek(0)

		// --- Operators ---
		case OpEqual:
			b := v.pop()
			a := v.pop()
			v.push(FromBool(Equal(a, b)))

		case OpGreater, OpLess, OpSubtract, OpMultiply, OpDivide:
			if !v.peek(0).IsNumber() || !v.peek(1).IsNumber() {
				return v.runtimeError("Operands must be numbers.")
			}
			b := v.pop().Number()
			a := v.pop().Number()
			v.push(arithmetic(op, a, b))

		case OpAdd:
			b, a := v.peek(0), v.peek(1)
			switch {
			case a.IsString() && b.IsString():
				v.pop()
				v.pop()
				v.push(FromObject(v.heap.Concat(a.AsString(), b.AsString())))
			case a.IsNumber() && b.IsNumber():
				v.pop()
				v.pop()
				v.push(FromNumber(a.Number() + b.Number()))
			default:
				return v.runtimeError("Operands must be two numbers or two strings.")
			}

		case OpNot:
			v.push(FromBool(v.pop().IsFalsey()))

		case OpNegate:
			if !v.peek(0).IsNumber() {
				return v.runtimeError("Operand must be a number.")
			}
			v.push(FromNumber(-v.pop().Number()))

		// --- Input/Output ---
		case OpWrite:
			fmt.Fprintln(v.out, v.pop().String())

		case OpAsk:
			prompt := v.pop()
			fmt.Fprint(v.out, prompt.String())
			v.flushOutput()
			line, err := v.readLine()
			if err != nil {
				return v.runtimeError("Could not read input: %v", err)
			}
			v.push(line)

		// --- Control flow ---
		case OpJump:
			offset := v.readShort()
			v.ip += offset

		case OpJumpIfFalse:
			offset := v.readShort()
			if v.peek(0).IsFalsey() {
				v.ip += offset
			}

		case OpLoop:
			offset := v.readShort()
			v.ip -= offset

		case OpReturn:
			return nil

		default:
			return v.runtimeError("Unknown opcode 0x%02x.", byte(op))
		}
	}
}

// arithmetic applies a numeric binary operator.
func arithmetic(op Opcode, a, b float64) Value {
	switch op {
	case OpGreater:
		return FromBool(a > b)
	case OpLess:
		return FromBool(a < b)
	case OpSubtract:
		return FromNumber(a - b)
	case OpMultiply:
		return FromNumber(a * b)
	case OpDivide:
		return FromNumber(a / b)
	}
	panic(fmt.Sprintf("arithmetic: unexpected opcode %s", op))
}

// readLine reads one line for `ask`. End of input with nothing read
// yields null.
func (v *VM) readLine() (Value, error) {
	line, err := v.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return Null, err
	}
	if err == io.EOF && line == "" {
		return Null, nil
	}
	line = strings.TrimRight(line, "\r\n")
	return v.heap.NewString(line), nil
}

type flusher interface {
	Flush() error
}

// flushOutput makes a prompt visible before blocking on input.
func (v *VM) flushOutput() {
	if f, ok := v.out.(flusher); ok {
		_ = f.Flush()
	}
}
