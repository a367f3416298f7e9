// Package lexer tokenizes Loom source code into the token stream the
// parser consumes.
package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/loom-lang/loom/pkg/token"
)

// Lexer tokenizes Loom source code.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      rune // current character
	line    int  // current line (1-based)
	col     int  // current column (1-based)
}

// New creates a lexer for the given input.
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, col: 0}
	l.readChar()
	return l
}

// Tokenize runs the lexer over the whole input and returns the token slice,
// without a trailing EOF token. The first lexical error aborts.
func Tokenize(input string) ([]token.Token, error) {
	l := New(input)
	var toks []token.Token
	for {
		t, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if t.Kind == token.EOF {
			return toks, nil
		}
		toks = append(toks, t)
	}
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
		l.pos = l.readPos
		l.col++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	if l.ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

func (l *Lexer) position() token.Position {
	return token.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) errorf(pos token.Position, format string, args ...any) error {
	return fmt.Errorf("lex error at %s: %s", pos, fmt.Sprintf(format, args...))
}

// skipWhitespaceAndComments advances past spaces and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// NextToken returns the next token, or an EOF token at end of input.
func (l *Lexer) NextToken() (token.Token, error) {
	l.skipWhitespaceAndComments()

	pos := l.position()

	single := func(k token.Kind, lit string) (token.Token, error) {
		l.readChar()
		return token.Token{Kind: k, Literal: lit, Pos: pos}, nil
	}

	switch l.ch {
	case 0:
		return token.Token{Kind: token.EOF, Pos: pos}, nil
	case '(':
		return single(token.LParen, "(")
	case ')':
		return single(token.RParen, ")")
	case '[':
		return single(token.LBracket, "[")
	case ']':
		return single(token.RBracket, "]")
	case '{':
		return single(token.LBrace, "{")
	case '}':
		return single(token.RBrace, "}")
	case ';':
		return single(token.Semicolon, ";")
	case ',':
		return single(token.Comma, ",")
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			return single(token.DColon, "::")
		}
		return single(token.Colon, ":")
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			return single(token.Eq, "==")
		}
		return single(token.Assign, "=")
	case '+':
		if l.peekChar() == '=' {
			l.readChar()
			return single(token.AddAssign, "+=")
		}
		return single(token.Plus, "+")
	case '-':
		switch l.peekChar() {
		case '=':
			l.readChar()
			return single(token.SubAssign, "-=")
		case '>':
			l.readChar()
			return single(token.Arrow, "->")
		}
		return single(token.Minus, "-")
	case '*':
		if l.peekChar() == '=' {
			l.readChar()
			return single(token.MulAssign, "*=")
		}
		return single(token.Star, "*")
	case '/':
		if l.peekChar() == '=' {
			l.readChar()
			return single(token.DivAssign, "/=")
		}
		return single(token.Slash, "/")
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			return single(token.Leq, "<=")
		}
		return single(token.Lt, "<")
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			return single(token.Geq, ">=")
		}
		return single(token.Gt, ">")
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			return single(token.Neq, "!=")
		}
		return token.Token{}, l.errorf(pos, "unexpected character %q", l.ch)
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			return single(token.And, "&&")
		}
		return token.Token{}, l.errorf(pos, "unexpected character %q (bitwise operators are not supported)", l.ch)
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			return single(token.Or, "||")
		}
		return token.Token{}, l.errorf(pos, "unexpected character %q (bitwise operators are not supported)", l.ch)
	case '\'':
		return l.readCharLiteral(pos)
	}

	if unicode.IsLetter(l.ch) || l.ch == '_' {
		return l.readIdentifier(pos), nil
	}
	if unicode.IsDigit(l.ch) {
		return l.readNumber(pos), nil
	}

	ch := l.ch
	l.readChar()
	return token.Token{}, l.errorf(pos, "unexpected character %q", ch)
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(pos token.Position) token.Token {
	start := l.pos
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	lit := l.input[start:l.pos]
	if kind, ok := token.Keywords[lit]; ok {
		return token.Token{Kind: kind, Literal: lit, Pos: pos}
	}
	return token.Token{Kind: token.Ident, Literal: lit, Pos: pos}
}

// readNumber reads an integer or float literal.
func (l *Lexer) readNumber(pos token.Position) token.Token {
	start := l.pos
	for unicode.IsDigit(l.ch) {
		l.readChar()
	}
	kind := token.IntLit
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		kind = token.FloatLit
		l.readChar()
		for unicode.IsDigit(l.ch) {
			l.readChar()
		}
	}
	return token.Token{Kind: kind, Literal: l.input[start:l.pos], Pos: pos}
}

// readCharLiteral reads 'x'. The literal must be exactly one character.
func (l *Lexer) readCharLiteral(pos token.Position) (token.Token, error) {
	l.readChar() // consume opening quote
	if l.ch == 0 || l.ch == '\'' {
		return token.Token{}, l.errorf(pos, "empty character literal")
	}
	ch := l.ch
	l.readChar()
	if l.ch != '\'' {
		return token.Token{}, l.errorf(pos, "character literals must be one character long")
	}
	l.readChar() // consume closing quote
	return token.Token{Kind: token.CharLit, Literal: string(ch), Pos: pos}, nil
}
