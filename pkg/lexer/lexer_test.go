package lexer

import (
	"strings"
	"testing"

	"github.com/loom-lang/loom/pkg/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeDeclaration(t *testing.T) {
	toks, err := Tokenize("node main :: dep { var x: int = 42; }")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []token.Kind{
		token.Node, token.Ident, token.DColon, token.Ident, token.LBrace,
		token.Var, token.Ident, token.Colon, token.Int, token.Assign,
		token.IntLit, token.Semicolon, token.RBrace,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %s, want %s", i, got[i], want[i])
		}
	}
	if toks[1].Literal != "main" || toks[10].Literal != "42" {
		t.Errorf("literals = %q, %q", toks[1].Literal, toks[10].Literal)
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		src  string
		want token.Kind
	}{
		{"=", token.Assign},
		{"==", token.Eq},
		{"!=", token.Neq},
		{"+", token.Plus},
		{"+=", token.AddAssign},
		{"-", token.Minus},
		{"-=", token.SubAssign},
		{"->", token.Arrow},
		{"*", token.Star},
		{"*=", token.MulAssign},
		{"/", token.Slash},
		{"/=", token.DivAssign},
		{"<", token.Lt},
		{"<=", token.Leq},
		{">", token.Gt},
		{">=", token.Geq},
		{"&&", token.And},
		{"||", token.Or},
		{":", token.Colon},
		{"::", token.DColon},
	}
	for _, tt := range tests {
		toks, err := Tokenize(tt.src)
		if err != nil {
			t.Errorf("Tokenize(%q): %v", tt.src, err)
			continue
		}
		if len(toks) != 1 || toks[0].Kind != tt.want {
			t.Errorf("Tokenize(%q) = %v, want single %s", tt.src, kinds(toks), tt.want)
		}
	}
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	toks, err := Tokenize("while whiles never nevermore true x_1")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []token.Kind{
		token.While, token.Ident, token.Never, token.Ident, token.True, token.Ident,
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d = %s, want %s", i, toks[i].Kind, k)
		}
	}
}

func TestNumbers(t *testing.T) {
	toks, err := Tokenize("0 123 4.5")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != token.IntLit || toks[1].Kind != token.IntLit {
		t.Errorf("ints = %v", kinds(toks[:2]))
	}
	if toks[2].Kind != token.FloatLit || toks[2].Literal != "4.5" {
		t.Errorf("float = %+v", toks[2])
	}

	// A bare trailing dot is not part of a number.
	if _, err := Tokenize("6."); err == nil {
		t.Error("Tokenize(\"6.\") should fail")
	}
}

func TestCharLiterals(t *testing.T) {
	toks, err := Tokenize("'a' 'z'")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != token.CharLit || toks[0].Literal != "a" {
		t.Errorf("char = %+v", toks[0])
	}

	for _, bad := range []string{"''", "'ab'", "'x"} {
		if _, err := Tokenize(bad); err == nil {
			t.Errorf("Tokenize(%q) should fail", bad)
		}
	}
}

func TestComments(t *testing.T) {
	toks, err := Tokenize("var // the rest is ignored\nx")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(toks) != 2 || toks[0].Kind != token.Var || toks[1].Kind != token.Ident {
		t.Errorf("got %v", kinds(toks))
	}
}

func TestPositions(t *testing.T) {
	toks, err := Tokenize("var\n  x")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Errorf("var pos = %s", toks[0].Pos)
	}
	if toks[1].Pos.Line != 2 || toks[1].Pos.Column != 3 {
		t.Errorf("x pos = %s", toks[1].Pos)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		src    string
		substr string
	}{
		{"x # y", "unexpected character"},
		{"a & b", "bitwise"},
		{"a | b", "bitwise"},
		{"a ! b", "unexpected character"},
	}
	for _, tt := range tests {
		_, err := Tokenize(tt.src)
		if err == nil {
			t.Errorf("Tokenize(%q) should fail", tt.src)
			continue
		}
		if !strings.Contains(err.Error(), tt.substr) {
			t.Errorf("Tokenize(%q) error = %v, want %q", tt.src, err, tt.substr)
		}
	}
}
