package compiler

// ---------------------------------------------------------------------------
// Pratt parse table
// ---------------------------------------------------------------------------

// Precedence orders binding strength from loosest to tightest.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // = is
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

// prefixKind names the action run when a token starts an expression.
type prefixKind uint8

const (
	prefixNone prefixKind = iota
	prefixGrouping
	prefixUnary
	prefixNumber
	prefixString
	prefixLiteral
	prefixVariable
	prefixAsk
)

// infixKind names the action run when a token follows a left operand.
type infixKind uint8

const (
	infixNone infixKind = iota
	infixBinary
	infixAnd
	infixOr
)

// parseRule describes how a token participates in expressions.
type parseRule struct {
	prefix     prefixKind
	infix      infixKind
	precedence Precedence // binding strength as an infix operator
}

// rules is indexed by token type. Tokens without an entry can neither
// start nor continue an expression.
var rules = [tokenCount]parseRule{
	TokenLeftParen:    {prefixGrouping, infixNone, PrecNone},
	TokenMinus:        {prefixUnary, infixBinary, PrecTerm},
	TokenPlus:         {prefixNone, infixBinary, PrecTerm},
	TokenSlash:        {prefixNone, infixBinary, PrecFactor},
	TokenStar:         {prefixNone, infixBinary, PrecFactor},
	TokenBang:         {prefixUnary, infixNone, PrecNone},
	TokenBangEqual:    {prefixNone, infixBinary, PrecEquality},
	TokenEqualEqual:   {prefixNone, infixBinary, PrecEquality},
	TokenGreater:      {prefixNone, infixBinary, PrecComparison},
	TokenGreaterEqual: {prefixNone, infixBinary, PrecComparison},
	TokenLess:         {prefixNone, infixBinary, PrecComparison},
	TokenLessEqual:    {prefixNone, infixBinary, PrecComparison},
	TokenIdentifier:   {prefixVariable, infixNone, PrecNone},
	TokenString:       {prefixString, infixNone, PrecNone},
	TokenNumber:       {prefixNumber, infixNone, PrecNone},
	TokenAnd:          {prefixNone, infixAnd, PrecAnd},
	TokenOr:           {prefixNone, infixOr, PrecOr},
	TokenFalse:        {prefixLiteral, infixNone, PrecNone},
	TokenNull:         {prefixLiteral, infixNone, PrecNone},
	TokenTrue:         {prefixLiteral, infixNone, PrecNone},
	TokenAsk:          {prefixAsk, infixNone, PrecNone},
}

func ruleFor(t TokenType) parseRule {
	if t < 0 || t >= tokenCount {
		return parseRule{}
	}
	return rules[t]
}

// runPrefix dispatches a prefix action.
func (c *Compiler) runPrefix(kind prefixKind, canAssign bool) {
	switch kind {
	case prefixGrouping:
		c.grouping()
	case prefixUnary:
		c.unary()
	case prefixNumber:
		c.number()
	case prefixString:
		c.stringLiteral()
	case prefixLiteral:
		c.literal()
	case prefixVariable:
		c.variable(canAssign)
	case prefixAsk:
		c.ask()
	}
}

// runInfix dispatches an infix action.
func (c *Compiler) runInfix(kind infixKind) {
	switch kind {
	case infixBinary:
		c.binary()
	case infixAnd:
		c.and()
	case infixOr:
		c.or()
	}
}
