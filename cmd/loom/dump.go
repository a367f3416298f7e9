package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/loom-lang/loom/pkg/ast"
	"github.com/loom-lang/loom/pkg/parser"
)

// dumpCST prints the concrete syntax tree one node per line. Internal nodes
// show the nonterminal and the selected alternative, leaves the token.
func dumpCST(w io.Writer, t *parser.Tree, depth int) {
	indent := strings.Repeat("  ", depth)
	if t.IsLeaf() {
		fmt.Fprintf(w, "%s%s\n", indent, t.Token)
		return
	}
	fmt.Fprintf(w, "%s%s/%d\n", indent, t.Symbol, t.Alt)
	for _, c := range t.Children {
		dumpCST(w, c, depth+1)
	}
}

func dumpAST(w io.Writer, n *ast.Node, depth int) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), nodeLabel(n))
	for _, c := range n.Children {
		dumpAST(w, c, depth+1)
	}
}

func nodeLabel(n *ast.Node) string {
	label := n.Kind.String()
	switch n.Kind {
	case ast.NodeDecl:
		if len(n.Deps) > 0 {
			return fmt.Sprintf("%s %s deps=[%s]", label, n.Ident, strings.Join(n.Deps, " "))
		}
		return fmt.Sprintf("%s %s", label, n.Ident)
	case ast.VarDecl, ast.ConstDecl:
		if n.Export {
			return fmt.Sprintf("%s %s export", label, n.Ident)
		}
		return fmt.Sprintf("%s %s", label, n.Ident)
	case ast.Assign, ast.IndexAssign:
		return fmt.Sprintf("%s %s %s", label, n.Ident, n.AssignOp)
	case ast.StructDecl, ast.FuncDecl, ast.Param, ast.Field,
		ast.Call, ast.CallStmt, ast.Index, ast.Ident, ast.ScalarType:
		return fmt.Sprintf("%s %s", label, n.Ident)
	case ast.IntLit:
		return fmt.Sprintf("%s %d", label, n.Int)
	case ast.FloatLit:
		return fmt.Sprintf("%s %g", label, n.Float)
	case ast.CharLit:
		return fmt.Sprintf("%s %q", label, n.Char)
	case ast.BoolLit:
		return fmt.Sprintf("%s %t", label, n.Bool)
	case ast.ArrayType:
		return fmt.Sprintf("%s len=%d", label, n.Int)
	}
	return label
}
