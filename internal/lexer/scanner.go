package lexer

import (
	"fmt"

	"github.com/kleopatra999/pop/internal/errors"
)

// Scanner turns source text into a token stream. It is single pass with
// one character of lookahead; construct a fresh instance to rescan.
type Scanner struct {
	source   string
	filename string
	current  int
	line     int
	column   int
}

func NewScanner(source string) *Scanner {
	return NewScannerWithFile(source, "<string>")
}

func NewScannerWithFile(source, filename string) *Scanner {
	return &Scanner{
		source:   source,
		filename: filename,
		line:     1,
	}
}

func (s *Scanner) Filename() string {
	return s.filename
}

// ScanTokens drains the scanner, returning every token up to and
// including the EOF token.
func (s *Scanner) ScanTokens() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := s.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

// NextToken scans and returns the next token. At end of input it keeps
// returning an EOF token at the current position.
func (s *Scanner) NextToken() (Token, error) {
	s.skipWhitespace()

	tok := Token{Kind: TokenError}
	tok.Range.Start = s.position()

	if s.isAtEnd() {
		tok.Kind = TokenEOF
		tok.Range.End = s.position()
		return tok, nil
	}

	c := s.peek()
	var err error
	switch {
	case isAlpha(c):
		s.identifier(&tok)
	case isDecimal(c) || (c == '.' && isDecimal(s.peekNext())):
		err = s.number(&tok)
	case c == '"' || c == '\'':
		err = s.stringLiteral(&tok)
	default:
		err = s.operator(&tok)
	}
	if err != nil {
		return Token{Kind: TokenError}, err
	}

	tok.Range.End = s.position()
	return tok, nil
}

func (s *Scanner) identifier(tok *Token) {
	start := s.current
	for !s.isAtEnd() && isAlphaNumeric(s.peek()) {
		s.advance()
	}
	text := s.source[start:s.current]
	if kind, ok := keywords[text]; ok {
		tok.Kind = kind
	} else {
		tok.Kind = TokenIdentifier
		tok.Text = text
	}
}

func (s *Scanner) number(tok *Token) error {
	start := s.current
	isFloat := false

	digits := isDecimal
	radix := "decimal"
	if s.peek() == '0' {
		s.advance()
		switch s.peek() {
		case 'x', 'X':
			s.advance()
			digits, radix = isHex, "hexadecimal"
		case 'b', 'B':
			s.advance()
			digits, radix = isBinary, "binary"
		case 'o', 'O':
			s.advance()
			digits, radix = isOctal, "octal"
		case 'd', 'D':
			s.advance()
		default:
			// bare leading zero: octal digits, or "0." float
			digits, radix = isOctal, "octal"
		}
	}

	for !s.isAtEnd() && (digits(s.peek()) || s.peek() == '.') {
		if s.peek() == '.' {
			if isFloat {
				return s.syntaxError(fmt.Sprintf(
					"multiple decimal points in floating-point %s literal", radix))
			}
			isFloat = true
		}
		s.advance()
	}

	if isFloat {
		tok.Kind = TokenFloatLiteral
	} else {
		tok.Kind = TokenIntLiteral
	}
	tok.Text = s.source[start:s.current]
	return nil
}

func (s *Scanner) stringLiteral(tok *Token) error {
	quote := s.advance()
	var text []byte
	for {
		if s.isAtEnd() {
			return s.syntaxError("EOF encountered in string literal")
		}
		c := s.advance()
		if c == '\\' && !s.isAtEnd() && s.peek() == quote {
			// the only recognized escape: a backslashed quote
			text = append(text, s.advance())
			continue
		}
		if c == quote {
			break
		}
		text = append(text, c)
	}
	tok.Kind = TokenStringLiteral
	tok.Text = string(text)
	return nil
}

// operator recognizes punctuation and operators by maximal munch. An
// unrecognized character becomes a token whose kind is the character
// itself; the parser rejects it.
func (s *Scanner) operator(tok *Token) error {
	c := s.advance()
	switch c {
	case '+':
		if s.match('=') {
			tok.Kind = TokenAddAssign
		} else if s.match('+') {
			tok.Kind = TokenIncrement
		} else {
			tok.Kind = TokenAdd
		}
	case '-':
		if s.match('=') {
			tok.Kind = TokenSubAssign
		} else if s.match('-') {
			tok.Kind = TokenDecrement
		} else {
			tok.Kind = TokenSub
		}
	case '*':
		if s.match('=') {
			tok.Kind = TokenMulAssign
		} else if s.match('*') {
			if s.match('=') {
				tok.Kind = TokenPowAssign
			} else {
				tok.Kind = TokenPow
			}
		} else {
			tok.Kind = TokenMul
		}
	case '/':
		if s.match('/') {
			s.lineComment(tok)
		} else if s.match('*') {
			return s.blockComment(tok)
		} else if s.match('=') {
			tok.Kind = TokenDivAssign
		} else {
			tok.Kind = TokenDiv
		}
	case '%':
		if s.match('=') {
			tok.Kind = TokenModAssign
		} else {
			tok.Kind = TokenMod
		}
	case '&':
		if s.match('&') {
			tok.Kind = TokenLogAnd
		} else if s.match('=') {
			tok.Kind = TokenAndAssign
		} else {
			tok.Kind = TokenBitAnd
		}
	case '|':
		if s.match('|') {
			tok.Kind = TokenLogOr
		} else if s.match('=') {
			tok.Kind = TokenOrAssign
		} else {
			tok.Kind = TokenBitOr
		}
	case '^':
		if s.match('=') {
			tok.Kind = TokenXorAssign
		} else {
			tok.Kind = TokenBitXor
		}
	case '~':
		if s.match('=') {
			tok.Kind = TokenNotAssign
		} else {
			tok.Kind = TokenBitNot
		}
	case '=':
		if s.match('=') {
			tok.Kind = TokenEQ
		} else {
			tok.Kind = TokenAssign
		}
	case '!':
		if s.match('=') {
			tok.Kind = TokenNE
		} else {
			tok.Kind = TokenLogNot
		}
	case '<':
		if s.match('<') {
			if s.match('=') {
				tok.Kind = TokenLeftAssign
			} else {
				tok.Kind = TokenLShift
			}
		} else if s.match('=') {
			tok.Kind = TokenLE
		} else {
			tok.Kind = TokenLT
		}
	case '>':
		if s.match('>') {
			if s.match('=') {
				tok.Kind = TokenRightAssign
			} else {
				tok.Kind = TokenRShift
			}
		} else if s.match('=') {
			tok.Kind = TokenGE
		} else {
			tok.Kind = TokenGT
		}
	default:
		tok.Kind = TokenType(string(c))
	}
	return nil
}

// blockComment consumes up to and including the closing delimiter. The
// opening "/*" has already been consumed.
func (s *Scanner) blockComment(tok *Token) error {
	start := s.current - 2
	for {
		if s.isAtEnd() {
			return s.syntaxError("EOF encountered in multi-line comment")
		}
		if s.peek() == '*' && s.peekNext() == '/' {
			s.advance()
			s.advance()
			break
		}
		s.advance()
	}
	tok.Kind = TokenBlockComment
	tok.Text = s.source[start:s.current]
	return nil
}

// lineComment consumes up to but not including the terminating newline.
func (s *Scanner) lineComment(tok *Token) {
	start := s.current - 2
	for !s.isAtEnd() && s.peek() != '\n' {
		s.advance()
	}
	tok.Kind = TokenLineComment
	tok.Text = s.source[start:s.current]
}

func (s *Scanner) skipWhitespace() {
	for !s.isAtEnd() && isSpace(s.peek()) {
		s.advance()
	}
}

func (s *Scanner) position() SourcePosition {
	return SourcePosition{Offset: s.current, Line: s.line, Column: s.column}
}

func (s *Scanner) syntaxError(message string) error {
	return errors.NewSyntaxError(message, s.filename, s.line, s.column)
}

func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++
	if c == '\n' {
		s.line++
		s.column = 0
	} else {
		s.column++
	}
	return c
}

func (s *Scanner) match(expected byte) bool {
	if s.isAtEnd() || s.source[s.current] != expected {
		return false
	}
	s.advance()
	return true
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

func isAlpha(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || isDecimal(c)
}

func isDecimal(c byte) bool {
	return '0' <= c && c <= '9'
}

func isHex(c byte) bool {
	return isDecimal(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func isBinary(c byte) bool {
	return c == '0' || c == '1'
}

func isOctal(c byte) bool {
	return '0' <= c && c <= '7'
}
