package compiler

import (
	"fmt"

	"github.com/chazu/kavya/vm"
)

// ---------------------------------------------------------------------------
// Declarations and statements
// ---------------------------------------------------------------------------

func (c *Compiler) declaration() {
	if c.match(TokenThe) {
		c.theDeclaration()
	} else {
		c.statement()
	}
	c.match(TokenSemicolon)

	if c.panicMode {
		c.synchronize()
	}
}

// theDeclaration compiles `the name [= expr]`.
func (c *Compiler) theDeclaration() {
	global := c.parseVariable("Expect variable name.")
	c.variableInitializer()
	c.defineVariable(global)
}

// variableInitializer compiles the optional initializer of a declaration,
// defaulting to null.
func (c *Compiler) variableInitializer() {
	if c.matchAssign() {
		c.expression()
	} else {
		c.emitOp(vm.OpNull)
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(TokenWrite):
		c.writeStatement()
	case c.match(TokenFor):
		c.forStatement()
	case c.match(TokenIf):
		c.ifStatement()
	case c.match(TokenWhile):
		c.whileStatement()
	case c.match(TokenLeftBrace):
		c.scopedBlock()
	case c.check(TokenClass), c.check(TokenPurpose), c.check(TokenReturn),
		c.check(TokenSuper), c.check(TokenThis):
		c.advance()
		c.error(fmt.Sprintf("'%s' is reserved and not supported yet.", c.previous.Lexeme))
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) writeStatement() {
	c.expression()
	c.emitOp(vm.OpWrite)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.emitOp(vm.OpPop)
}

// block compiles declarations up to the closing brace. The opening brace
// has already been consumed.
func (c *Compiler) block() {
	for !c.check(TokenRightBrace) && !c.check(TokenEOF) {
		c.declaration()
	}
	c.consume(TokenRightBrace, "Expect '}' after block.")
}

func (c *Compiler) scopedBlock() {
	c.beginScope()
	c.block()
	c.endScope()
}

// body consumes the opening brace of a control-flow body and compiles it
// in its own scope.
func (c *Compiler) body(message string) {
	c.consume(TokenLeftBrace, message)
	c.scopedBlock()
}

func (c *Compiler) ifStatement() {
	c.expression()

	thenJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.body("Expect '{' before if body.")

	elseJump := c.emitJump(vm.OpJump)
	c.patchJump(thenJump)
	c.emitOp(vm.OpPop)

	if c.match(TokenElse) {
		if c.match(TokenIf) {
			c.ifStatement()
		} else {
			c.body("Expect '{' before else body.")
		}
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := c.chunk().Len()
	c.expression()

	exitJump := c.emitJump(vm.OpJumpIfFalse)
	c.emitOp(vm.OpPop)
	c.body("Expect '{' before while body.")
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(vm.OpPop)
}

// forStatement compiles both `for (init, cond, incr) { }` and
// `for init, cond, incr { }`. The loop runs in its own scope so a variable
// declared by the initializer is gone afterwards.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.forLoop(c.match(TokenLeftParen))
	c.endScope()
}

func (c *Compiler) forLoop(parens bool) {
	// Initializer.
	switch {
	case c.match(TokenComma):
	case c.match(TokenThe):
		global := c.parseVariable("Expect variable name.")
		c.variableInitializer()
		c.consume(TokenComma, "Expect ',' after variable declaration.")
		c.defineVariable(global)
	default:
		c.expression()
		c.emitOp(vm.OpPop)
		c.consume(TokenComma, "Expect ',' after initializer.")
	}

	loopStart := c.chunk().Len()

	// Condition.
	exitJump := -1
	if !c.match(TokenComma) {
		c.expression()
		c.consume(TokenComma, "Expect ',' after loop condition.")
		exitJump = c.emitJump(vm.OpJumpIfFalse)
		c.emitOp(vm.OpPop)
	}

	// Increment. It is compiled before the body but runs after it.
	bodyJump := c.emitJump(vm.OpJump)
	incrementStart := c.chunk().Len()
	end := TokenLeftBrace
	if parens {
		end = TokenRightParen
	}
	if !c.check(end) {
		c.expression()
		c.emitOp(vm.OpPop)
	}
	if parens {
		c.consume(TokenRightParen, "Expect ')' after for clauses.")
	}
	c.emitLoop(loopStart)
	c.patchJump(bodyJump)

	c.body("Expect '{' before loop body.")
	c.emitLoop(incrementStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(vm.OpPop)
	}
}

// synchronize skips tokens until a likely statement boundary: a line
// break or a keyword that starts a statement.
func (c *Compiler) synchronize() {
	c.panicMode = false

	for !c.check(TokenEOF) {
		if c.lineBreak || c.previous.Type == TokenSemicolon {
			return
		}
		switch c.current.Type {
		case TokenClass, TokenPurpose, TokenThe, TokenFor, TokenIf,
			TokenWhile, TokenWrite, TokenReturn:
			return
		}
		c.advance()
	}
}
