// Package parser implements the table-driven predictive parsing engine.
//
// The engine is entirely generic over the grammar table: it holds no
// knowledge of the Loom language beyond what the selection table encodes.
// One pass over the token stream, one token of lookahead, no backtracking.
package parser

import (
	"fmt"
	"strings"

	"github.com/loom-lang/loom/pkg/grammar"
	"github.com/loom-lang/loom/pkg/token"
)

// SyntaxError is a fatal parse failure: the offending token and the full set
// of terminals that would have been accepted at that point.
type SyntaxError struct {
	Expected []string    // sorted terminal names
	Got      token.Token // the offending token
}

func (e *SyntaxError) Error() string {
	if len(e.Expected) == 1 {
		return fmt.Sprintf("syntax error at %s: expected %s, got %s", e.Got.Pos, e.Expected[0], e.Got)
	}
	return fmt.Sprintf("syntax error at %s: expected one of {%s}, got %s",
		e.Got.Pos, strings.Join(e.Expected, ", "), e.Got)
}

// Tree is a node of the concrete syntax tree. Internal nodes carry the
// nonterminal name and the index of the production alternative that was
// selected; leaves carry the consumed token. Every node exclusively owns
// its children.
type Tree struct {
	Symbol   string      // nonterminal name, or terminal name for leaves
	Alt      int         // selected alternative (internal nodes only)
	Token    token.Token // consumed token (leaves only)
	Children []*Tree
}

// IsLeaf reports whether the node is a consumed terminal.
func (t *Tree) IsLeaf() bool { return t.Children == nil && t.Token.Kind != "" }

// Leaves returns the tree's tokens in left-to-right order. Read in order,
// the leaves reconstruct exactly the parsed token sequence.
func (t *Tree) Leaves() []token.Token {
	return t.appendLeaves(nil)
}

func (t *Tree) appendLeaves(out []token.Token) []token.Token {
	if t.IsLeaf() {
		return append(out, t.Token)
	}
	for _, c := range t.Children {
		out = c.appendLeaves(out)
	}
	return out
}

// Child returns the i-th child, or nil when out of range. Lowering code
// indexes children by the known shape of the selected production.
func (t *Tree) Child(i int) *Tree {
	if i < 0 || i >= len(t.Children) {
		return nil
	}
	return t.Children[i]
}

// Parse runs the predictive parse over the token stream and returns the
// concrete syntax tree for the grammar's start symbol, or a *SyntaxError.
func Parse(ts token.Stream, table *grammar.SelectionTable) (*Tree, error) {
	g := table.Grammar()
	root := &Tree{Symbol: g.Start}

	// Working stack of pending tree nodes; the end marker sits below the
	// start symbol. Production symbols are pushed in reverse so the
	// leftmost symbol is processed next.
	end := &Tree{Symbol: grammar.End}
	stack := []*Tree{end, root}

	lookahead := func() token.Token {
		t := ts.Peek()
		if t.Kind == "" {
			t.Kind = token.EOF
		}
		return t
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		la := lookahead()

		switch {
		case top.Symbol == grammar.End:
			if la.Kind != token.EOF {
				return nil, &SyntaxError{Expected: []string{grammar.End}, Got: la}
			}
			return root, nil

		case g.IsTerminal(top.Symbol):
			if string(la.Kind) != top.Symbol {
				return nil, &SyntaxError{Expected: []string{top.Symbol}, Got: la}
			}
			top.Token = ts.Next()

		default:
			alt, ok := table.LookupIndex(top.Symbol, string(la.Kind))
			if !ok {
				return nil, &SyntaxError{Expected: table.Expected(top.Symbol), Got: la}
			}
			prod := g.NonTerminals[top.Symbol].Productions[alt]
			top.Alt = alt

			// An epsilon alternative consumes no input and leaves the node
			// childless; it still counts as a successful match.
			top.Children = make([]*Tree, len(prod))
			for i, sym := range prod {
				top.Children[i] = &Tree{Symbol: sym}
			}
			for i := len(prod) - 1; i >= 0; i-- {
				stack = append(stack, top.Children[i])
			}
		}
	}

	// Unreachable: the end marker is always the bottom stack entry.
	return nil, fmt.Errorf("parser: working stack exhausted without end marker")
}

// ParseTokens is Parse over an in-memory token slice.
func ParseTokens(tokens []token.Token, table *grammar.SelectionTable) (*Tree, error) {
	return Parse(token.NewSliceStream(tokens), table)
}
