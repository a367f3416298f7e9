// Package sema analyzes a lowered program: it builds the node dependency
// graph, resolves names against lexical scopes, collects the symbol table,
// and checks expression types and function returns.
package sema

import (
	"fmt"

	"github.com/loom-lang/loom/pkg/ast"
	"github.com/loom-lang/loom/pkg/token"
)

// Error is one diagnostic with its source position.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// SymbolKind classifies a symbol table entry.
type SymbolKind int

const (
	SymVar SymbolKind = iota
	SymConst
	SymFunc
	SymStruct
)

func (k SymbolKind) String() string {
	switch k {
	case SymVar:
		return "variable"
	case SymConst:
		return "constant"
	case SymFunc:
		return "function"
	case SymStruct:
		return "struct"
	}
	return fmt.Sprintf("SymbolKind(%d)", int(k))
}

// Symbol is one named declaration. Type holds a rendered type ("int",
// "[char; 8]"); for arrays Elem holds the element type. Functions carry
// their parameter types in order, and an empty Type when they return
// nothing (Never set when declared `-> never`).
type Symbol struct {
	Kind   SymbolKind
	Name   string
	Node   string // owning node declaration
	Type   string
	Elem   string
	Params []string
	Never  bool
	Export bool
	Pos    token.Position
}

// Info is the analysis result consumed by later stages.
type Info struct {
	// Graph maps each node name to the names it declares dependencies on.
	Graph map[string][]string
	// Order lists node names in a dependency-respecting order.
	Order []string
	// Symbols maps "node.name" to each node-level declaration. Function
	// locals live in lexical scopes and are not recorded here.
	Symbols map[string]*Symbol
}

// Lookup resolves a name declared in the given node.
func (in *Info) Lookup(node, name string) (*Symbol, bool) {
	s, ok := in.Symbols[node+"."+name]
	return s, ok
}

// Analyze runs all checks over a Program node. The returned Info is valid
// only when the error list is empty; each pass accumulates what it finds
// instead of stopping at the first problem.
func Analyze(prog *ast.Node) (*Info, []error) {
	a := &analyzer{
		info: &Info{
			Graph:   make(map[string][]string),
			Symbols: make(map[string]*Symbol),
		},
	}
	a.buildGraph(prog)
	a.collectSymbols(prog)
	a.checkScopes(prog)
	if len(a.errs) == 0 {
		a.checkTypes(prog)
		a.checkReturns(prog)
	}
	return a.info, a.errs
}

type analyzer struct {
	info *Info
	errs []error

	node  string // current node declaration name
	scope []scopeElem
}

func (a *analyzer) errorf(pos token.Position, format string, args ...any) {
	a.errs = append(a.errs, &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

// ============ Node dependency graph ============

func (a *analyzer) buildGraph(prog *ast.Node) {
	for _, decl := range prog.Children {
		if _, dup := a.info.Graph[decl.Ident]; dup {
			a.errorf(decl.Pos, "node %q declared twice", decl.Ident)
			continue
		}
		a.info.Graph[decl.Ident] = decl.Deps
	}

	for _, decl := range prog.Children {
		for _, dep := range decl.Deps {
			if _, ok := a.info.Graph[dep]; !ok {
				a.errorf(decl.Pos, "node %q depends on undeclared node %q", decl.Ident, dep)
			}
		}
	}

	a.info.Order = a.topoSort(prog)
}

// topoSort orders nodes so dependencies come before their dependents, and
// reports dependency cycles.
func (a *analyzer) topoSort(prog *ast.Node) []string {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)
	var order []string

	var visit func(name string, pos token.Position) bool
	visit = func(name string, pos token.Position) bool {
		switch state[name] {
		case done:
			return true
		case visiting:
			a.errorf(pos, "node dependency cycle through %q", name)
			return false
		}
		state[name] = visiting
		for _, dep := range a.info.Graph[name] {
			if _, ok := a.info.Graph[dep]; ok {
				if !visit(dep, pos) {
					return false
				}
			}
		}
		state[name] = done
		order = append(order, name)
		return true
	}

	for _, decl := range prog.Children {
		visit(decl.Ident, decl.Pos)
	}
	return order
}

// ============ Symbol table ============

func (a *analyzer) collectSymbols(prog *ast.Node) {
	for _, decl := range prog.Children {
		for _, item := range decl.Children {
			a.declareItem(decl.Ident, item)
		}
	}
}

func (a *analyzer) declareItem(node string, item *ast.Node) {
	switch item.Kind {
	case ast.VarDecl, ast.ConstDecl:
		kind := SymVar
		if item.Kind == ast.ConstDecl {
			kind = SymConst
		}
		a.declare(item, &Symbol{
			Kind:   kind,
			Name:   item.Ident,
			Node:   node,
			Type:   item.Child(0).TypeString(),
			Elem:   elemOf(item.Child(0)),
			Export: item.Export,
			Pos:    item.Pos,
		})

	case ast.FuncDecl:
		sym := &Symbol{Kind: SymFunc, Name: item.Ident, Node: node, Pos: item.Pos}
		for _, p := range item.Params() {
			sym.Params = append(sym.Params, p.Child(0).TypeString())
		}
		if ret := item.ReturnType(); ret != nil {
			if ret.Kind == ast.NeverType {
				sym.Never = true
			} else {
				sym.Type = ret.TypeString()
				sym.Elem = elemOf(ret)
			}
		}
		a.declare(item, sym)

	case ast.StructDecl:
		sym := &Symbol{Kind: SymStruct, Name: item.Ident, Node: node, Pos: item.Pos}
		for _, f := range item.Children {
			sym.Params = append(sym.Params, f.Child(0).TypeString())
		}
		a.declare(item, sym)
	}
}

func (a *analyzer) declare(at *ast.Node, sym *Symbol) {
	key := sym.Node + "." + sym.Name
	if prev, dup := a.info.Symbols[key]; dup {
		a.errorf(at.Pos, "%s %q already declared in node %q at %d:%d",
			prev.Kind, sym.Name, sym.Node, prev.Pos.Line, prev.Pos.Column)
		return
	}
	a.info.Symbols[key] = sym
}

func elemOf(typ *ast.Node) string {
	if typ != nil && typ.Kind == ast.ArrayType {
		return typ.Child(0).TypeString()
	}
	return ""
}
