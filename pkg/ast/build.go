package ast

import (
	"fmt"
	"strconv"

	"github.com/loom-lang/loom/pkg/parser"
)

// Build lowers a concrete syntax tree (as produced by parser.Parse over the
// Loom grammar) into the semantic tree. The tail-factored expression
// nonterminals are flattened into left-associative binary operators.
func Build(cst *parser.Tree) (*Node, error) {
	b := &builder{}
	root := b.program(cst)
	if b.err != nil {
		return nil, b.err
	}
	return root, nil
}

// builder carries the first lowering error; the CST shape is guaranteed by
// the grammar, so errors here are limited to literal conversion.
type builder struct {
	err error
}

func (b *builder) failf(t *parser.Tree, format string, args ...any) *Node {
	if b.err == nil {
		b.err = fmt.Errorf("ast: %s: %s", t.Token.Pos, fmt.Sprintf(format, args...))
	}
	return &Node{}
}

// lit returns the literal text of a terminal leaf child.
func lit(t *parser.Tree) string { return t.Token.Literal }

// program -> node_decl program | ε
func (b *builder) program(t *parser.Tree) *Node {
	prog := &Node{Kind: Program}
	for t.Alt == 0 {
		prog.Children = append(prog.Children, b.nodeDecl(t.Child(0)))
		t = t.Child(1)
	}
	return prog
}

// node_decl -> node id node_deps { node_body }
func (b *builder) nodeDecl(t *parser.Tree) *Node {
	n := &Node{Kind: NodeDecl, Ident: lit(t.Child(1)), Pos: t.Child(1).Token.Pos}

	// node_deps -> :: id dep_tail | ε
	if deps := t.Child(2); deps.Alt == 0 {
		n.Deps = append(n.Deps, lit(deps.Child(1)))
		for tail := deps.Child(2); tail.Alt == 0; tail = tail.Child(2) {
			n.Deps = append(n.Deps, lit(tail.Child(1)))
		}
	}

	// node_body -> node_item node_body | ε
	for body := t.Child(4); body.Alt == 0; body = body.Child(1) {
		n.Children = append(n.Children, b.nodeItem(body.Child(0)))
	}
	return n
}

// node_item -> struct_decl | func_decl | var_decl | const_decl | export_decl
func (b *builder) nodeItem(t *parser.Tree) *Node {
	inner := t.Child(0)
	switch t.Alt {
	case 0:
		return b.structDecl(inner)
	case 1:
		return b.funcDecl(inner)
	case 2:
		return b.varDecl(inner, false)
	case 3:
		return b.constDecl(inner, false)
	case 4:
		// export_decl -> export exportable; exportable -> var_decl | const_decl
		exportable := inner.Child(1)
		if exportable.Alt == 0 {
			return b.varDecl(exportable.Child(0), true)
		}
		return b.constDecl(exportable.Child(0), true)
	}
	return b.failf(t, "unknown node_item alternative %d", t.Alt)
}

// struct_decl -> struct id { field_list }
func (b *builder) structDecl(t *parser.Tree) *Node {
	n := &Node{Kind: StructDecl, Ident: lit(t.Child(1)), Pos: t.Child(1).Token.Pos}
	for fl := t.Child(3); fl.Alt == 0; fl = fl.Child(1) {
		f := fl.Child(0) // field -> id : type ;
		n.Children = append(n.Children, &Node{
			Kind:     Field,
			Ident:    lit(f.Child(0)),
			Pos:      f.Child(0).Token.Pos,
			Children: []*Node{b.typeNode(f.Child(2))},
		})
	}
	return n
}

// func_decl -> fn id ( params ) ret_type { stmt_list }
func (b *builder) funcDecl(t *parser.Tree) *Node {
	n := &Node{Kind: FuncDecl, Ident: lit(t.Child(1)), Pos: t.Child(1).Token.Pos}

	// params -> param param_tail | ε
	var params []*Node
	if ps := t.Child(3); ps.Alt == 0 {
		params = append(params, b.param(ps.Child(0)))
		for tail := ps.Child(1); tail.Alt == 0; tail = tail.Child(2) {
			params = append(params, b.param(tail.Child(1)))
		}
	}

	// ret_type -> -> ret_kind | ε; absent means the function returns nothing.
	var ret *Node
	if rt := t.Child(5); rt.Alt == 0 {
		kind := rt.Child(1) // ret_kind -> type | never
		if kind.Alt == 0 {
			ret = b.typeNode(kind.Child(0))
		} else {
			ret = &Node{Kind: NeverType, Pos: kind.Child(0).Token.Pos}
		}
	}

	body := b.block(t.Child(7))

	// Children: params..., then optional return type, then body (last).
	n.Children = append(n.Children, params...)
	if ret != nil {
		n.Children = append(n.Children, ret)
	}
	n.Children = append(n.Children, body)
	return n
}

// Params returns a FuncDecl's parameter nodes.
func (n *Node) Params() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == Param {
			out = append(out, c)
		}
	}
	return out
}

// ReturnType returns a FuncDecl's declared return type node, or nil when the
// function returns nothing.
func (n *Node) ReturnType() *Node {
	for _, c := range n.Children {
		switch c.Kind {
		case ScalarType, ArrayType, NeverType:
			return c
		}
	}
	return nil
}

// Body returns a FuncDecl's body block.
func (n *Node) Body() *Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

// param -> id : type
func (b *builder) param(t *parser.Tree) *Node {
	return &Node{
		Kind:     Param,
		Ident:    lit(t.Child(0)),
		Pos:      t.Child(0).Token.Pos,
		Children: []*Node{b.typeNode(t.Child(2))},
	}
}

// type -> int | float | bool | char | [ type ; int_lit ]
func (b *builder) typeNode(t *parser.Tree) *Node {
	if t.Alt < 4 {
		leaf := t.Child(0)
		return &Node{Kind: ScalarType, Ident: string(leaf.Token.Kind), Pos: leaf.Token.Pos}
	}
	length, err := strconv.ParseInt(lit(t.Child(3)), 10, 64)
	if err != nil {
		return b.failf(t.Child(3), "bad array length %q", lit(t.Child(3)))
	}
	return &Node{
		Kind:     ArrayType,
		Int:      length,
		Pos:      t.Child(0).Token.Pos,
		Children: []*Node{b.typeNode(t.Child(1))},
	}
}

// var_decl -> var id : type = expr ;
func (b *builder) varDecl(t *parser.Tree, export bool) *Node {
	return &Node{
		Kind:     VarDecl,
		Ident:    lit(t.Child(1)),
		Pos:      t.Child(1).Token.Pos,
		Export:   export,
		Children: []*Node{b.typeNode(t.Child(3)), b.expr(t.Child(5))},
	}
}

// const_decl -> const id : type = expr ;
func (b *builder) constDecl(t *parser.Tree, export bool) *Node {
	return &Node{
		Kind:     ConstDecl,
		Ident:    lit(t.Child(1)),
		Pos:      t.Child(1).Token.Pos,
		Export:   export,
		Children: []*Node{b.typeNode(t.Child(3)), b.expr(t.Child(5))},
	}
}

// block lowers stmt_list -> stmt stmt_list | ε into a Block node.
func (b *builder) block(t *parser.Tree) *Node {
	blk := &Node{Kind: Block}
	for ; t.Alt == 0; t = t.Child(1) {
		blk.Children = append(blk.Children, b.stmt(t.Child(0)))
	}
	return blk
}

// stmt -> var_decl | const_decl | while_stmt | if_stmt | return_stmt | id_stmt
func (b *builder) stmt(t *parser.Tree) *Node {
	inner := t.Child(0)
	switch t.Alt {
	case 0:
		return b.varDecl(inner, false)
	case 1:
		return b.constDecl(inner, false)
	case 2: // while ( expr ) { stmt_list }
		return &Node{
			Kind:     While,
			Pos:      inner.Child(0).Token.Pos,
			Children: []*Node{b.expr(inner.Child(2)), b.block(inner.Child(5))},
		}
	case 3: // if ( expr ) { stmt_list } else_clause
		n := &Node{
			Kind:     If,
			Pos:      inner.Child(0).Token.Pos,
			Children: []*Node{b.expr(inner.Child(2)), b.block(inner.Child(5))},
		}
		if els := inner.Child(7); els.Alt == 0 {
			n.Children = append(n.Children, b.block(els.Child(2)))
		}
		return n
	case 4: // return ret_val ;
		n := &Node{Kind: Return, Pos: inner.Child(0).Token.Pos}
		if rv := inner.Child(1); rv.Alt == 0 {
			n.Children = append(n.Children, b.expr(rv.Child(0)))
		}
		return n
	case 5:
		return b.idStmt(inner)
	}
	return b.failf(t, "unknown stmt alternative %d", t.Alt)
}

// id_stmt -> id id_stmt_tail ;
func (b *builder) idStmt(t *parser.Tree) *Node {
	name := lit(t.Child(0))
	pos := t.Child(0).Token.Pos
	tail := t.Child(1)

	switch tail.Alt {
	case 0: // assign_op expr
		return &Node{
			Kind:     Assign,
			Ident:    name,
			Pos:      pos,
			AssignOp: assignOpText(tail.Child(0)),
			Children: []*Node{b.expr(tail.Child(1))},
		}
	case 1: // ( args )
		return &Node{
			Kind:     CallStmt,
			Ident:    name,
			Pos:      pos,
			Children: b.args(tail.Child(1)),
		}
	case 2: // [ expr ] assign_op expr
		return &Node{
			Kind:     IndexAssign,
			Ident:    name,
			Pos:      pos,
			AssignOp: assignOpText(tail.Child(3)),
			Children: []*Node{b.expr(tail.Child(1)), b.expr(tail.Child(4))},
		}
	}
	return b.failf(t, "unknown id_stmt_tail alternative %d", tail.Alt)
}

// assign_op -> = | += | -= | *= | /=
func assignOpText(t *parser.Tree) string {
	return t.Child(0).Token.Literal
}

// args -> expr arg_tail | ε
func (b *builder) args(t *parser.Tree) []*Node {
	if t.Alt != 0 {
		return nil
	}
	out := []*Node{b.expr(t.Child(0))}
	for tail := t.Child(1); tail.Alt == 0; tail = tail.Child(2) {
		out = append(out, b.expr(tail.Child(1)))
	}
	return out
}

// expr -> and_expr or_tail
func (b *builder) expr(t *parser.Tree) *Node {
	left := b.andExpr(t.Child(0))
	for tail := t.Child(1); tail.Alt == 0; tail = tail.Child(2) {
		left = &Node{
			Kind:     LogicalOr,
			Pos:      tail.Child(0).Token.Pos,
			Children: []*Node{left, b.andExpr(tail.Child(1))},
		}
	}
	return left
}

// and_expr -> cmp_expr and_tail
func (b *builder) andExpr(t *parser.Tree) *Node {
	left := b.cmpExpr(t.Child(0))
	for tail := t.Child(1); tail.Alt == 0; tail = tail.Child(2) {
		left = &Node{
			Kind:     LogicalAnd,
			Pos:      tail.Child(0).Token.Pos,
			Children: []*Node{left, b.cmpExpr(tail.Child(1))},
		}
	}
	return left
}

// cmp_expr -> add_expr cmp_tail; cmp_tail -> cmp_op add_expr | ε
func (b *builder) cmpExpr(t *parser.Tree) *Node {
	left := b.addExpr(t.Child(0))
	tail := t.Child(1)
	if tail.Alt != 0 {
		return left
	}
	opLeaf := tail.Child(0).Child(0)
	var kind Kind
	switch tail.Child(0).Alt {
	case 0:
		kind = Eq
	case 1:
		kind = Neq
	case 2:
		kind = Lt
	case 3:
		kind = Gt
	case 4:
		kind = Leq
	case 5:
		kind = Geq
	}
	return &Node{
		Kind:     kind,
		Pos:      opLeaf.Token.Pos,
		Children: []*Node{left, b.addExpr(tail.Child(1))},
	}
}

// add_expr -> term add_tail
func (b *builder) addExpr(t *parser.Tree) *Node {
	left := b.term(t.Child(0))
	for tail := t.Child(1); tail.Alt != 2; tail = tail.Child(2) {
		kind := Add
		if tail.Alt == 1 {
			kind = Sub
		}
		left = &Node{
			Kind:     kind,
			Pos:      tail.Child(0).Token.Pos,
			Children: []*Node{left, b.term(tail.Child(1))},
		}
	}
	return left
}

// term -> factor term_tail
func (b *builder) term(t *parser.Tree) *Node {
	left := b.factor(t.Child(0))
	for tail := t.Child(1); tail.Alt != 2; tail = tail.Child(2) {
		kind := Mul
		if tail.Alt == 1 {
			kind = Div
		}
		left = &Node{
			Kind:     kind,
			Pos:      tail.Child(0).Token.Pos,
			Children: []*Node{left, b.factor(tail.Child(1))},
		}
	}
	return left
}

// factor -> ( expr ) | int_lit | float_lit | char_lit | true | false | id factor_tail
func (b *builder) factor(t *parser.Tree) *Node {
	switch t.Alt {
	case 0:
		return b.expr(t.Child(1))
	case 1:
		leaf := t.Child(0)
		v, err := strconv.ParseInt(lit(leaf), 10, 64)
		if err != nil {
			return b.failf(leaf, "bad integer literal %q", lit(leaf))
		}
		return &Node{Kind: IntLit, Int: v, Pos: leaf.Token.Pos}
	case 2:
		leaf := t.Child(0)
		v, err := strconv.ParseFloat(lit(leaf), 64)
		if err != nil {
			return b.failf(leaf, "bad float literal %q", lit(leaf))
		}
		return &Node{Kind: FloatLit, Float: v, Pos: leaf.Token.Pos}
	case 3:
		leaf := t.Child(0)
		s := lit(leaf)
		if len(s) != 1 {
			return b.failf(leaf, "bad character literal %q", s)
		}
		return &Node{Kind: CharLit, Char: s[0], Pos: leaf.Token.Pos}
	case 4:
		return &Node{Kind: BoolLit, Bool: true, Pos: t.Child(0).Token.Pos}
	case 5:
		return &Node{Kind: BoolLit, Bool: false, Pos: t.Child(0).Token.Pos}
	case 6:
		name := lit(t.Child(0))
		pos := t.Child(0).Token.Pos
		tail := t.Child(1)
		switch tail.Alt {
		case 0: // ( args )
			return &Node{Kind: Call, Ident: name, Pos: pos, Children: b.args(tail.Child(1))}
		case 1: // [ expr ]
			return &Node{Kind: Index, Ident: name, Pos: pos, Children: []*Node{b.expr(tail.Child(1))}}
		default:
			return &Node{Kind: Ident, Ident: name, Pos: pos}
		}
	}
	return b.failf(t, "unknown factor alternative %d", t.Alt)
}
