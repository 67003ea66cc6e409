package compiler

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Scanner: on-demand tokenizer for Kavya source
// ---------------------------------------------------------------------------

// Scanner produces tokens one at a time. It cannot be rewound; scanning
// again requires a new Scanner. After the end of input every call returns
// TokenEOF.
type Scanner struct {
	source  string
	start   int // offset of the lexeme being scanned
	current int // offset of the next unread byte
	line    int // current line (1-based)
}

// NewScanner creates a scanner over source.
func NewScanner(source string) *Scanner {
	return &Scanner{source: source, line: 1}
}

// NextToken scans and returns the next token. Unrecognized input yields a
// TokenError carrying a message; scanning can continue after it.
func (s *Scanner) NextToken() Token {
	s.skipWhitespaceAndComments()
	s.start = s.current

	if s.atEnd() {
		return s.makeToken(TokenEOF)
	}

	r := s.advance()

	switch {
	case r == '\n':
		tok := s.makeToken(TokenNewline)
		s.line++
		return tok
	case isIdentStart(r):
		return s.scanIdentifier()
	case isDigit(r):
		return s.scanNumber()
	}

	switch r {
	case '(':
		return s.makeToken(TokenLeftParen)
	case ')':
		return s.makeToken(TokenRightParen)
	case '{':
		return s.makeToken(TokenLeftBrace)
	case '}':
		return s.makeToken(TokenRightBrace)
	case ',':
		return s.makeToken(TokenComma)
	case '.':
		return s.makeToken(TokenDot)
	case '-':
		return s.makeToken(TokenMinus)
	case '+':
		return s.makeToken(TokenPlus)
	case ':':
		return s.makeToken(TokenColon)
	case ';':
		return s.makeToken(TokenSemicolon)
	case '/':
		return s.makeToken(TokenSlash)
	case '*':
		return s.makeToken(TokenStar)
	case '!':
		return s.makeToken(s.pick('=', TokenBangEqual, TokenBang))
	case '=':
		return s.makeToken(s.pick('=', TokenEqualEqual, TokenEqual))
	case '<':
		return s.makeToken(s.pick('=', TokenLessEqual, TokenLess))
	case '>':
		return s.makeToken(s.pick('=', TokenGreaterEqual, TokenGreater))
	case '"':
		return s.scanString()
	}

	return s.errorToken(fmt.Sprintf("Unexpected character '%c'.", r))
}

// ---------------------------------------------------------------------------
// Cursor helpers
// ---------------------------------------------------------------------------

func (s *Scanner) atEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) advance() rune {
	r, size := utf8.DecodeRuneInString(s.source[s.current:])
	s.current += size
	return r
}

func (s *Scanner) peek() rune {
	if s.atEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.current:])
	return r
}

func (s *Scanner) peekNext() rune {
	if s.atEnd() {
		return 0
	}
	_, size := utf8.DecodeRuneInString(s.source[s.current:])
	if s.current+size >= len(s.source) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s.source[s.current+size:])
	return r
}

// pick consumes expected if it is next and returns the two-character
// token type, otherwise the one-character type.
func (s *Scanner) pick(expected rune, two, one TokenType) TokenType {
	if s.peek() == expected {
		s.advance()
		return two
	}
	return one
}

func (s *Scanner) makeToken(t TokenType) Token {
	return Token{
		Type:   t,
		Lexeme: s.source[s.start:s.current],
		Line:   s.line,
		Offset: s.start,
	}
}

func (s *Scanner) errorToken(message string) Token {
	return Token{Type: TokenError, Lexeme: message, Line: s.line, Offset: s.start}
}

// skipWhitespaceAndComments skips blanks and // comments. Newlines are
// significant and left for NextToken.
func (s *Scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.advance()
		case '/':
			if s.peekNext() != '/' {
				return
			}
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		default:
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Literals and words
// ---------------------------------------------------------------------------

func (s *Scanner) scanString() Token {
	startLine := s.line
	for !s.atEnd() && s.peek() != '"' {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		return s.errorToken("Unterminated string.")
	}
	s.advance() // closing quote

	tok := s.makeToken(TokenString)
	tok.Line = startLine
	return tok
}

func (s *Scanner) scanNumber() Token {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	return s.makeToken(TokenNumber)
}

func (s *Scanner) scanIdentifier() Token {
	for isIdentPart(s.peek()) {
		s.advance()
	}
	return s.makeToken(LookupIdentifier(s.source[s.start:s.current]))
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r)
}
