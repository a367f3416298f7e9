// Package token defines the lexical token stream consumed by the parser.
//
// Token kinds are string terminal names so they can be matched directly
// against the terminal symbols of the grammar table.
package token

import "fmt"

// Kind is the terminal name of a token class. The parser matches Kind
// against grammar terminals by string equality.
type Kind string

// Keyword terminals.
const (
	Node   Kind = "node"
	Export Kind = "export"
	Var    Kind = "var"
	Const  Kind = "const"
	Fn     Kind = "fn"
	While  Kind = "while"
	If     Kind = "if"
	Else   Kind = "else"
	Return Kind = "return"
	Struct Kind = "struct"
	Never  Kind = "never"
	Int    Kind = "int"
	Float  Kind = "float"
	Bool   Kind = "bool"
	Char   Kind = "char"
	True   Kind = "true"
	False  Kind = "false"
)

// Literal-carrying terminals.
const (
	Ident    Kind = "id"
	IntLit   Kind = "int_lit"
	FloatLit Kind = "float_lit"
	CharLit  Kind = "char_lit"
)

// Operator and delimiter terminals.
const (
	Assign    Kind = "assign"     // =
	AddAssign Kind = "add_assign" // +=
	SubAssign Kind = "sub_assign" // -=
	MulAssign Kind = "mul_assign" // *=
	DivAssign Kind = "div_assign" // /=
	Plus      Kind = "plus"       // +
	Minus     Kind = "minus"      // -
	Star      Kind = "star"       // *
	Slash     Kind = "slash"      // /
	LParen    Kind = "lparen"     // (
	RParen    Kind = "rparen"     // )
	LBracket  Kind = "lbracket"   // [
	RBracket  Kind = "rbracket"   // ]
	LBrace    Kind = "lbrace"     // {
	RBrace    Kind = "rbrace"     // }
	Semicolon Kind = "semicolon"  // ;
	Colon     Kind = "colon"      // :
	DColon    Kind = "dcolon"     // ::
	Arrow     Kind = "arrow"      // ->
	Comma     Kind = "comma"      // ,
	Eq        Kind = "eq"         // ==
	Neq       Kind = "neq"        // !=
	Lt        Kind = "lt"         // <
	Gt        Kind = "gt"         // >
	Leq       Kind = "leq"        // <=
	Geq       Kind = "geq"        // >=
	And       Kind = "and"        // &&
	Or        Kind = "or"         // ||
)

// EOF marks end of input. It matches the grammar's end marker.
const EOF Kind = "$"

// Keywords maps reserved words to their token kinds.
var Keywords = map[string]Kind{
	"node":   Node,
	"export": Export,
	"var":    Var,
	"const":  Const,
	"fn":     Fn,
	"while":  While,
	"if":     If,
	"else":   Else,
	"return": Return,
	"struct": Struct,
	"never":  Never,
	"int":    Int,
	"float":  Float,
	"bool":   Bool,
	"char":   Char,
	"true":   True,
	"false":  False,
}

// Position is a location in the source text.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexical unit: a terminal name, the literal text it was
// read from, and its source position.
type Token struct {
	Kind    Kind
	Literal string
	Pos     Position
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "EOF"
	case Ident, IntLit, FloatLit, CharLit:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Literal)
	}
	return string(t.Kind)
}

// Stream is the peek/advance interface the parser consumes tokens through.
// Implementations must return an EOF token once input is exhausted and keep
// returning it on further calls.
type Stream interface {
	// Peek returns the current token without consuming it.
	Peek() Token
	// Next returns the current token and advances past it.
	Next() Token
}

// SliceStream adapts a token slice to the Stream interface.
type SliceStream struct {
	tokens []Token
	pos    int
}

// NewSliceStream creates a Stream over the given tokens.
func NewSliceStream(tokens []Token) *SliceStream {
	return &SliceStream{tokens: tokens}
}

func (s *SliceStream) Peek() Token {
	if s.pos >= len(s.tokens) {
		return Token{Kind: EOF}
	}
	return s.tokens[s.pos]
}

func (s *SliceStream) Next() Token {
	t := s.Peek()
	if s.pos < len(s.tokens) {
		s.pos++
	}
	return t
}
