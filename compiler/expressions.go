package compiler

import (
	"strconv"

	"github.com/chazu/kavya/vm"
)

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// parsePrecedence compiles an expression whose operators bind at least as
// tightly as prec.
func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	rule := ruleFor(c.previous.Type)
	if rule.prefix == prefixNone {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= PrecAssignment
	c.runPrefix(rule.prefix, canAssign)

	for prec <= ruleFor(c.current.Type).precedence {
		c.advance()
		c.runInfix(ruleFor(c.previous.Type).infix)
	}

	if canAssign && c.matchAssign() {
		c.error("Invalid assignment target.")
	}
}

// matchAssign consumes `=` or its spelled-out form `is`.
func (c *Compiler) matchAssign() bool {
	return c.match(TokenEqual) || c.match(TokenIs)
}

func (c *Compiler) grouping() {
	c.expression()
	c.consume(TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary() {
	op := c.previous.Type
	c.parsePrecedence(PrecUnary)

	switch op {
	case TokenBang:
		c.emitOp(vm.OpNot)
	case TokenMinus:
		c.emitOp(vm.OpNegate)
	}
}

// binary compiles the right operand one level tighter than the operator,
// which makes every binary operator left-associative.
func (c *Compiler) binary() {
	op := c.previous.Type
	c.parsePrecedence(ruleFor(op).precedence + 1)

	switch op {
	case TokenBangEqual:
		c.emitOps(vm.OpEqual, vm.OpNot)
	case TokenEqualEqual:
		c.emitOp(vm.OpEqual)
	case TokenGreater:
		c.emitOp(vm.OpGreater)
	case TokenGreaterEqual:
		c.emitOps(vm.OpLess, vm.OpNot)
	case TokenLess:
		c.emitOp(vm.OpLess)
	case TokenLessEqual:
		c.emitOps(vm.OpGreater, vm.OpNot)
	case TokenPlus:
		c.emitOp(vm.OpAdd)
	case TokenMinus:
		c.emitOp(vm.OpSubtract)
	case TokenStar:
		c.emitOp(vm.OpMultiply)
	case TokenSlash:
		c.emitOp(vm.OpDivide)
	}
}

func (c *Compiler) number() {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(vm.FromNumber(n))
}

func (c *Compiler) stringLiteral() {
	c.emitConstant(c.heap.NewString(unquote(c.previous.Lexeme)))
}

// unquote strips the surrounding double quotes from a string lexeme.
func unquote(lexeme string) string {
	if len(lexeme) < 2 {
		return ""
	}
	return lexeme[1 : len(lexeme)-1]
}

func (c *Compiler) literal() {
	switch c.previous.Type {
	case TokenFalse:
		c.emitOp(vm.OpFalse)
	case TokenNull:
		c.emitOp(vm.OpNull)
	case TokenTrue:
		c.emitOp(vm.OpTrue)
	}
}

// and short-circuits: a falsey left operand is the result.
func (c *Compiler) and() {
	endJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

// or short-circuits: a truthy left operand is the result.
func (c *Compiler) or() {
	elseJump := c.emitJump(vm.OpJumpIfFalse)
	endJump := c.emitJump(vm.OpJump)

	c.patchJump(elseJump)
	c.emitOp(vm.OpPop)

	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

// ask compiles `ask "prompt"`; the VM prints the prompt and pushes the
// line read.
func (c *Compiler) ask() {
	c.consume(TokenString, "Expect string after 'ask'.")
	if c.previous.Type != TokenString {
		return
	}
	c.stringLiteral()
	c.emitOp(vm.OpAsk)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

// namedVariable emits a load of name, or a store when it is followed by an
// assignment token and assignment is allowed here.
func (c *Compiler) namedVariable(name Token, canAssign bool) {
	var getOp, setOp vm.Opcode
	var arg byte

	if slot, ok := c.resolveLocal(name); ok {
		getOp, setOp = vm.OpGetLocal, vm.OpSetLocal
		arg = byte(slot)
	} else {
		getOp, setOp = vm.OpGetGlobal, vm.OpSetGlobal
		arg = c.identifierConstant(name)
	}

	if canAssign && c.matchAssign() {
		c.expression()
		c.emitOpByte(setOp, arg)
		return
	}
	c.emitOpByte(getOp, arg)
}
