package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types for the Kavya scanner
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Single-character tokens
	TokenLeftParen TokenType = iota
	TokenRightParen
	TokenLeftBrace
	TokenRightBrace
	TokenComma
	TokenDot
	TokenMinus
	TokenPlus
	TokenColon
	TokenSlash
	TokenStar
	TokenNewline
	TokenIndent // reserved; the scanner never produces it
	TokenSemicolon

	// One or two character tokens
	TokenBang
	TokenBangEqual
	TokenEqual
	TokenIs
	TokenEqualEqual
	TokenGreater
	TokenGreaterEqual
	TokenLess
	TokenLessEqual

	// Literals
	TokenIdentifier
	TokenString
	TokenNumber

	// Keywords
	TokenAnd
	TokenClass
	TokenElse
	TokenFalse
	TokenFor
	TokenPurpose
	TokenIf
	TokenNull
	TokenOr
	TokenWrite
	TokenAsk
	TokenReturn
	TokenSuper
	TokenThis
	TokenTrue
	TokenThe
	TokenWhile

	// Special tokens
	TokenError
	TokenEOF

	tokenCount
)

var tokenNames = [tokenCount]string{
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenLeftBrace:    "{",
	TokenRightBrace:   "}",
	TokenComma:        ",",
	TokenDot:          ".",
	TokenMinus:        "-",
	TokenPlus:         "+",
	TokenColon:        ":",
	TokenSlash:        "/",
	TokenStar:         "*",
	TokenNewline:      "NEWLINE",
	TokenIndent:       "INDENT",
	TokenSemicolon:    ";",
	TokenBang:         "!",
	TokenBangEqual:    "!=",
	TokenEqual:        "=",
	TokenIs:           "is",
	TokenEqualEqual:   "==",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenIdentifier:   "IDENTIFIER",
	TokenString:       "STRING",
	TokenNumber:       "NUMBER",
	TokenAnd:          "and",
	TokenClass:        "class",
	TokenElse:         "else",
	TokenFalse:        "false",
	TokenFor:          "for",
	TokenPurpose:      "purpose",
	TokenIf:           "if",
	TokenNull:         "null",
	TokenOr:           "or",
	TokenWrite:        "write",
	TokenAsk:          "ask",
	TokenReturn:       "return",
	TokenSuper:        "super",
	TokenThis:         "this",
	TokenTrue:         "true",
	TokenThe:          "the",
	TokenWhile:        "while",
	TokenError:        "ERROR",
	TokenEOF:          "EOF",
}

func (t TokenType) String() string {
	if t >= 0 && t < tokenCount {
		return tokenNames[t]
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// Token represents a lexical token.
//
// Lexeme is a slice of the source text; for TokenError it holds the
// diagnostic message instead.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int // 1-based
	Offset int // byte offset of the lexeme in the source
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenNewline:
		return "NEWLINE"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Lexeme)
	}
	if len(t.Lexeme) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Lexeme[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Lexeme)
}

// keywords maps reserved words to their token types. `is` is an
// alternative spelling of `=`.
var keywords = map[string]TokenType{
	"and":     TokenAnd,
	"ask":     TokenAsk,
	"class":   TokenClass,
	"else":    TokenElse,
	"false":   TokenFalse,
	"for":     TokenFor,
	"if":      TokenIf,
	"is":      TokenIs,
	"null":    TokenNull,
	"or":      TokenOr,
	"purpose": TokenPurpose,
	"return":  TokenReturn,
	"super":   TokenSuper,
	"the":     TokenThe,
	"this":    TokenThis,
	"true":    TokenTrue,
	"while":   TokenWhile,
	"write":   TokenWrite,
}

// Keywords returns the reserved words in sorted order.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for w := range keywords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// LookupIdentifier classifies a scanned word.
func LookupIdentifier(word string) TokenType {
	if t, ok := keywords[word]; ok {
		return t
	}
	return TokenIdentifier
}
