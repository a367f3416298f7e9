package sema

import "github.com/loom-lang/loom/pkg/ast"

// scopeKind distinguishes scope markers from named entries on the scope
// stack. Leaving a construct pops everything back to its marker, so block
// locals cannot leak.
type scopeKind int

const (
	scopeNode scopeKind = iota
	scopeFunc
	scopeWhile
	scopeIf
	scopeElse

	entryVar
	entryConst
	entryFunc
)

type scopeElem struct {
	kind scopeKind
	name string
}

func (a *analyzer) push(kind scopeKind, name string) {
	a.scope = append(a.scope, scopeElem{kind: kind, name: name})
}

// popTo unwinds the stack through the most recent marker of the given kind.
func (a *analyzer) popTo(kind scopeKind) {
	for len(a.scope) > 0 {
		top := a.scope[len(a.scope)-1]
		a.scope = a.scope[:len(a.scope)-1]
		if top.kind == kind {
			return
		}
	}
}

func (a *analyzer) inScope(kind scopeKind, name string) bool {
	for _, e := range a.scope {
		if e.kind == kind && e.name == name {
			return true
		}
	}
	return false
}

// ============ Scope checking ============

func (a *analyzer) checkScopes(prog *ast.Node) {
	for _, decl := range prog.Children {
		a.node = decl.Ident
		a.push(scopeNode, decl.Ident)
		a.importDeps(decl)

		for _, item := range decl.Children {
			a.scopeItem(item)
		}
		a.popTo(scopeNode)
	}
	a.node = ""
}

// importDeps brings the exported names of dependency nodes into scope.
func (a *analyzer) importDeps(decl *ast.Node) {
	for _, dep := range decl.Deps {
		for _, sym := range a.info.Symbols {
			if sym.Node != dep || !sym.Export {
				continue
			}
			switch sym.Kind {
			case SymVar:
				a.push(entryVar, sym.Name)
			case SymConst:
				a.push(entryConst, sym.Name)
			}
		}
	}
}

func (a *analyzer) scopeItem(item *ast.Node) {
	switch item.Kind {
	case ast.VarDecl:
		a.scopeExpr(item.Child(1))
		a.push(entryVar, item.Ident)
	case ast.ConstDecl:
		a.scopeExpr(item.Child(1))
		a.push(entryConst, item.Ident)
	case ast.FuncDecl:
		a.push(scopeFunc, item.Ident)
		for _, p := range item.Params() {
			a.push(entryVar, p.Ident)
		}
		a.scopeBlock(item.Body())
		a.popTo(scopeFunc)
		// The function becomes callable only after its body: no
		// self-recursion, no forward calls.
		a.push(entryFunc, item.Ident)
	case ast.StructDecl:
		// Field types carry no names to resolve.
	}
}

func (a *analyzer) scopeBlock(block *ast.Node) {
	if block == nil {
		return
	}
	for _, stmt := range block.Children {
		a.scopeStmt(stmt)
	}
}

func (a *analyzer) scopeStmt(stmt *ast.Node) {
	switch stmt.Kind {
	case ast.VarDecl:
		a.scopeExpr(stmt.Child(1))
		a.push(entryVar, stmt.Ident)
	case ast.ConstDecl:
		a.scopeExpr(stmt.Child(1))
		a.push(entryConst, stmt.Ident)

	case ast.While:
		a.scopeExpr(stmt.Child(0))
		a.push(scopeWhile, "")
		a.scopeBlock(stmt.Child(1))
		a.popTo(scopeWhile)

	case ast.If:
		a.scopeExpr(stmt.Child(0))
		a.push(scopeIf, "")
		a.scopeBlock(stmt.Child(1))
		a.popTo(scopeIf)
		if els := stmt.Child(2); els != nil {
			a.push(scopeElse, "")
			a.scopeBlock(els)
			a.popTo(scopeElse)
		}

	case ast.Assign:
		a.scopeExpr(stmt.Child(0))
		if a.inScope(entryConst, stmt.Ident) && !a.inScope(entryVar, stmt.Ident) {
			a.errorf(stmt.Pos, "cannot assign to constant %q", stmt.Ident)
		} else if !a.inScope(entryVar, stmt.Ident) {
			a.errorf(stmt.Pos, "assignment to undeclared variable %q", stmt.Ident)
		}

	case ast.IndexAssign:
		a.scopeExpr(stmt.Child(0))
		a.scopeExpr(stmt.Child(1))
		if a.inScope(entryConst, stmt.Ident) && !a.inScope(entryVar, stmt.Ident) {
			a.errorf(stmt.Pos, "cannot assign to constant %q", stmt.Ident)
		} else if !a.inScope(entryVar, stmt.Ident) {
			a.errorf(stmt.Pos, "assignment to undeclared variable %q", stmt.Ident)
		}

	case ast.Return:
		if v := stmt.Child(0); v != nil {
			a.scopeExpr(v)
		}

	case ast.CallStmt:
		for _, arg := range stmt.Children {
			a.scopeExpr(arg)
		}
		if !a.inScope(entryFunc, stmt.Ident) {
			a.errorf(stmt.Pos, "call to undeclared function %q", stmt.Ident)
		}
	}
}

func (a *analyzer) scopeExpr(expr *ast.Node) {
	if expr == nil {
		return
	}
	switch expr.Kind {
	case ast.Ident:
		if !a.inScope(entryVar, expr.Ident) && !a.inScope(entryConst, expr.Ident) {
			a.errorf(expr.Pos, "use of undeclared identifier %q", expr.Ident)
		}
	case ast.Index:
		a.scopeExpr(expr.Child(0))
		if !a.inScope(entryVar, expr.Ident) && !a.inScope(entryConst, expr.Ident) {
			a.errorf(expr.Pos, "use of undeclared identifier %q", expr.Ident)
		}
	case ast.Call:
		for _, arg := range expr.Children {
			a.scopeExpr(arg)
		}
		if !a.inScope(entryFunc, expr.Ident) {
			a.errorf(expr.Pos, "call to undeclared function %q", expr.Ident)
		}
	default:
		for _, c := range expr.Children {
			a.scopeExpr(c)
		}
	}
}
