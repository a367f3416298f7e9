package sema

import "github.com/loom-lang/loom/pkg/ast"

// env is the lexical environment for the type pass. The scope pass has
// already rejected unresolved names, so lookups here only fail on code the
// earlier pass refused.
type env []map[string]*Symbol

func (e env) bind(sym *Symbol) {
	e[len(e)-1][sym.Name] = sym
}

func (e env) resolve(name string) (*Symbol, bool) {
	for i := len(e) - 1; i >= 0; i-- {
		if sym, ok := e[i][name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// ============ Type checking ============

func (a *analyzer) checkTypes(prog *ast.Node) {
	for _, decl := range prog.Children {
		a.node = decl.Ident

		scope := make(map[string]*Symbol)
		for _, sym := range a.info.Symbols {
			if sym.Node == decl.Ident {
				scope[sym.Name] = sym
			}
		}
		for _, dep := range decl.Deps {
			for _, sym := range a.info.Symbols {
				if sym.Node == dep && sym.Export {
					scope[sym.Name] = sym
				}
			}
		}
		e := env{scope}

		for _, item := range decl.Children {
			switch item.Kind {
			case ast.VarDecl, ast.ConstDecl:
				a.typeDecl(e, item)
			case ast.FuncDecl:
				a.typeFunc(e, item)
			}
		}
	}
	a.node = ""
}

func (a *analyzer) typeFunc(e env, fn *ast.Node) {
	body := append(e, make(map[string]*Symbol))
	for _, p := range fn.Params() {
		body.bind(&Symbol{
			Kind: SymVar,
			Name: p.Ident,
			Node: a.node,
			Type: p.Child(0).TypeString(),
			Elem: elemOf(p.Child(0)),
			Pos:  p.Pos,
		})
	}

	want := ""
	if ret := fn.ReturnType(); ret != nil && ret.Kind != ast.NeverType {
		want = ret.TypeString()
	}
	a.typeBlock(body, fn.Body(), want)
}

func (a *analyzer) typeBlock(e env, block *ast.Node, want string) {
	if block == nil {
		return
	}
	e = append(e, make(map[string]*Symbol))
	for _, stmt := range block.Children {
		a.typeStmt(e, stmt, want)
	}
}

func (a *analyzer) typeStmt(e env, stmt *ast.Node, want string) {
	switch stmt.Kind {
	case ast.VarDecl, ast.ConstDecl:
		a.typeDecl(e, stmt)

	case ast.While:
		if t := a.exprType(e, stmt.Child(0)); t != "" && t != "bool" {
			a.errorf(stmt.Pos, "while condition is %s, not bool", t)
		}
		a.typeBlock(e, stmt.Child(1), want)

	case ast.If:
		if t := a.exprType(e, stmt.Child(0)); t != "" && t != "bool" {
			a.errorf(stmt.Pos, "if condition is %s, not bool", t)
		}
		a.typeBlock(e, stmt.Child(1), want)
		a.typeBlock(e, stmt.Child(2), want)

	case ast.Assign:
		sym, ok := e.resolve(stmt.Ident)
		if !ok || sym.Kind != SymVar {
			return
		}
		got := a.exprType(e, stmt.Child(0))
		if got != "" && got != sym.Type {
			a.errorf(stmt.Pos, "cannot assign %s to %s variable %q", got, sym.Type, sym.Name)
			return
		}
		if stmt.AssignOp != "=" && sym.Type != "int" && sym.Type != "float" {
			a.errorf(stmt.Pos, "operator %s needs a numeric variable, %q is %s",
				stmt.AssignOp, sym.Name, sym.Type)
		}

	case ast.IndexAssign:
		sym, ok := e.resolve(stmt.Ident)
		if !ok {
			return
		}
		if sym.Elem == "" {
			a.errorf(stmt.Pos, "%q is %s, not an array", sym.Name, sym.Type)
			return
		}
		if t := a.exprType(e, stmt.Child(0)); t != "" && t != "int" {
			a.errorf(stmt.Pos, "array index is %s, not int", t)
		}
		if got := a.exprType(e, stmt.Child(1)); got != "" && got != sym.Elem {
			a.errorf(stmt.Pos, "cannot store %s into %s array %q", got, sym.Elem, sym.Name)
		}

	case ast.Return:
		v := stmt.Child(0)
		switch {
		case want == "" && v != nil:
			a.errorf(stmt.Pos, "function does not return a value")
		case want != "" && v == nil:
			a.errorf(stmt.Pos, "function must return %s", want)
		case want != "" && v != nil:
			if got := a.exprType(e, v); got != "" && got != want {
				a.errorf(stmt.Pos, "return type mismatch: got %s, want %s", got, want)
			}
		}

	case ast.CallStmt:
		a.typeCall(e, stmt)
	}
}

func (a *analyzer) typeDecl(e env, decl *ast.Node) {
	declared := decl.Child(0).TypeString()

	// An array declaration seeds every element from one scalar initializer.
	want := declared
	if elem := elemOf(decl.Child(0)); elem != "" {
		want = elem
	}
	if got := a.exprType(e, decl.Child(1)); got != "" && got != want {
		a.errorf(decl.Pos, "cannot initialize %s %q with %s", declared, decl.Ident, got)
	}

	kind := SymVar
	if decl.Kind == ast.ConstDecl {
		kind = SymConst
	}
	e.bind(&Symbol{
		Kind:   kind,
		Name:   decl.Ident,
		Node:   a.node,
		Type:   declared,
		Elem:   elemOf(decl.Child(0)),
		Export: decl.Export,
		Pos:    decl.Pos,
	})
}

// exprType computes an expression's type, reporting mismatches as it goes.
// An empty result means the type could not be determined and the caller
// should stay quiet rather than cascade.
func (a *analyzer) exprType(e env, expr *ast.Node) string {
	if expr == nil {
		return ""
	}
	switch expr.Kind {
	case ast.IntLit:
		return "int"
	case ast.FloatLit:
		return "float"
	case ast.CharLit:
		return "char"
	case ast.BoolLit:
		return "bool"

	case ast.Ident:
		sym, ok := e.resolve(expr.Ident)
		if !ok {
			return ""
		}
		if sym.Kind == SymFunc || sym.Kind == SymStruct {
			a.errorf(expr.Pos, "%s %q used as a value", sym.Kind, sym.Name)
			return ""
		}
		return sym.Type

	case ast.Index:
		sym, ok := e.resolve(expr.Ident)
		if !ok {
			return ""
		}
		if sym.Elem == "" {
			a.errorf(expr.Pos, "%q is %s, not an array", sym.Name, sym.Type)
			return ""
		}
		if t := a.exprType(e, expr.Child(0)); t != "" && t != "int" {
			a.errorf(expr.Pos, "array index is %s, not int", t)
		}
		return sym.Elem

	case ast.Add, ast.Sub, ast.Mul, ast.Div:
		return a.arithType(e, expr)

	case ast.LogicalAnd, ast.LogicalOr:
		for _, operand := range expr.Children {
			if t := a.exprType(e, operand); t != "" && t != "bool" {
				a.errorf(expr.Pos, "logical operand is %s, not bool", t)
			}
		}
		return "bool"

	case ast.Eq, ast.Neq, ast.Lt, ast.Gt, ast.Leq, ast.Geq:
		l := a.exprType(e, expr.Child(0))
		r := a.exprType(e, expr.Child(1))
		if l != "" && r != "" && l != r {
			a.errorf(expr.Pos, "cannot compare %s with %s", l, r)
			return "bool"
		}
		if expr.Kind != ast.Eq && expr.Kind != ast.Neq {
			if l != "" && l != "int" && l != "float" && l != "char" {
				a.errorf(expr.Pos, "%s values are not ordered", l)
			}
		}
		return "bool"

	case ast.Call:
		return a.typeCall(e, expr)
	}
	return ""
}

func (a *analyzer) arithType(e env, expr *ast.Node) string {
	l := a.exprType(e, expr.Child(0))
	r := a.exprType(e, expr.Child(1))
	if l == "" || r == "" {
		return ""
	}

	// Chars shift by integer offsets.
	if l == "char" && r == "int" && (expr.Kind == ast.Add || expr.Kind == ast.Sub) {
		return "char"
	}

	if l != r {
		a.errorf(expr.Pos, "operand type mismatch: %s and %s", l, r)
		return ""
	}
	if l != "int" && l != "float" {
		a.errorf(expr.Pos, "arithmetic on %s values", l)
		return ""
	}
	return l
}

// typeCall checks a call's arguments against the declaration and yields the
// return type ("" for functions that return nothing).
func (a *analyzer) typeCall(e env, call *ast.Node) string {
	sym, ok := a.info.Lookup(a.node, call.Ident)
	if !ok || sym.Kind != SymFunc {
		return ""
	}

	if len(call.Children) != len(sym.Params) {
		a.errorf(call.Pos, "%q takes %d argument(s), got %d",
			sym.Name, len(sym.Params), len(call.Children))
		return sym.Type
	}
	for i, arg := range call.Children {
		if got := a.exprType(e, arg); got != "" && got != sym.Params[i] {
			a.errorf(arg.Pos, "argument %d of %q is %s, want %s",
				i+1, sym.Name, got, sym.Params[i])
		}
	}

	if call.Kind == ast.Call && sym.Type == "" {
		a.errorf(call.Pos, "%q returns no value", sym.Name)
	}
	return sym.Type
}

// ============ Return checking ============

// checkReturns verifies that functions declared `-> never` cannot finish:
// their body must end in a statement that does not fall through.
func (a *analyzer) checkReturns(prog *ast.Node) {
	for _, decl := range prog.Children {
		for _, item := range decl.Children {
			if item.Kind != ast.FuncDecl {
				continue
			}
			ret := item.ReturnType()
			if ret == nil || ret.Kind != ast.NeverType {
				continue
			}
			if returnsToCaller(item.Body()) {
				a.errorf(item.Pos, "function %q is declared never but can return", item.Ident)
			}
		}
	}
}

// returnsToCaller reports whether control can hand back to the caller from
// the block: through a return anywhere inside it, or by falling off its end.
func returnsToCaller(block *ast.Node) bool {
	if block == nil || len(block.Children) == 0 {
		return true
	}
	for _, stmt := range block.Children {
		if hasReturn(stmt) {
			return true
		}
	}
	last := block.Children[len(block.Children)-1]
	switch last.Kind {
	case ast.While:
		// An endless loop never falls through.
		if cond := last.Child(0); cond != nil && cond.Kind == ast.BoolLit && cond.Bool {
			return false
		}
		return true
	case ast.If:
		if els := last.Child(2); els != nil {
			return returnsToCaller(last.Child(1)) || returnsToCaller(els)
		}
		return true
	}
	return true
}

// hasReturn reports whether the statement or anything nested under it is a
// return, however deeply it sits inside if or while bodies.
func hasReturn(stmt *ast.Node) bool {
	switch stmt.Kind {
	case ast.Return:
		return true
	case ast.While:
		return blockHasReturn(stmt.Child(1))
	case ast.If:
		return blockHasReturn(stmt.Child(1)) || blockHasReturn(stmt.Child(2))
	}
	return false
}

func blockHasReturn(block *ast.Node) bool {
	if block == nil {
		return false
	}
	for _, s := range block.Children {
		if hasReturn(s) {
			return true
		}
	}
	return false
}
