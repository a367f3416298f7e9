// Package ast defines the semantic tree for Loom programs and the lowering
// pass that builds it from a concrete syntax tree.
//
// The tree is a single tagged-variant type: one Kind per construct, children
// owned exclusively by their parent, no sharing and no cycles. Helper fields
// on Node carry the scalar payload of leaf kinds.
package ast

import (
	"fmt"

	"github.com/loom-lang/loom/pkg/token"
)

// Kind tags a Node with the construct it represents.
type Kind int

const (
	// Structure.
	Program Kind = iota
	NodeDecl
	StructDecl
	Field
	FuncDecl
	Param
	Block

	// Declarations and statements.
	VarDecl   // Ident, Export; children: [type, init]
	ConstDecl // Ident, Export; children: [type, init]
	While     // children: [cond, body]
	If        // children: [cond, then] or [cond, then, else]
	Assign    // Ident, AssignOp; children: [value]
	IndexAssign
	Return   // children: [] or [value]
	CallStmt // Ident; children: args

	// Expressions.
	Add
	Sub
	Mul
	Div
	LogicalAnd
	LogicalOr
	Eq
	Neq
	Lt
	Gt
	Leq
	Geq
	Call  // Ident; children: args
	Index // Ident; children: [index]
	Ident
	IntLit
	FloatLit
	CharLit
	BoolLit

	// Types.
	ScalarType // Ident: "int", "float", "bool", "char"
	ArrayType  // Int: length; children: [element type]
	NeverType
)

var kindNames = map[Kind]string{
	Program:     "Program",
	NodeDecl:    "NodeDecl",
	StructDecl:  "StructDecl",
	Field:       "Field",
	FuncDecl:    "FuncDecl",
	Param:       "Param",
	Block:       "Block",
	VarDecl:     "VarDecl",
	ConstDecl:   "ConstDecl",
	While:       "While",
	If:          "If",
	Assign:      "Assign",
	IndexAssign: "IndexAssign",
	Return:      "Return",
	CallStmt:    "CallStmt",
	Add:         "Add",
	Sub:         "Sub",
	Mul:         "Mul",
	Div:         "Div",
	LogicalAnd:  "And",
	LogicalOr:   "Or",
	Eq:          "Eq",
	Neq:         "Neq",
	Lt:          "Lt",
	Gt:          "Gt",
	Leq:         "Leq",
	Geq:         "Geq",
	Call:        "Call",
	Index:       "Index",
	Ident:       "Ident",
	IntLit:      "IntLit",
	FloatLit:    "FloatLit",
	CharLit:     "CharLit",
	BoolLit:     "BoolLit",
	ScalarType:  "ScalarType",
	ArrayType:   "ArrayType",
	NeverType:   "NeverType",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one tagged variant of the semantic tree.
//
// Which payload fields and child slots are meaningful depends on Kind; the
// per-kind conventions are documented on the Kind constants above.
type Node struct {
	Kind Kind
	Pos  token.Position

	Ident    string   // declared or referenced name
	Deps     []string // NodeDecl: declared node dependencies
	Export   bool     // VarDecl/ConstDecl: cross-node visible
	AssignOp string   // Assign/IndexAssign: "=", "+=", "-=", "*=", "/="
	Int      int64    // IntLit value, ArrayType length
	Float    float64  // FloatLit value
	Char     byte     // CharLit value
	Bool     bool     // BoolLit value

	Children []*Node
}

// Child returns the i-th child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// IsBinary reports whether the node is a binary operator over two operand
// children.
func (n *Node) IsBinary() bool {
	switch n.Kind {
	case Add, Sub, Mul, Div, LogicalAnd, LogicalOr, Eq, Neq, Lt, Gt, Leq, Geq:
		return true
	}
	return false
}

// IsComparison reports whether the node compares two operands to a boolean.
func (n *Node) IsComparison() bool {
	switch n.Kind {
	case Eq, Neq, Lt, Gt, Leq, Geq:
		return true
	}
	return false
}

// TypeString renders a type node ("int", "[char; 8]", "never").
func (n *Node) TypeString() string {
	switch n.Kind {
	case ScalarType:
		return n.Ident
	case ArrayType:
		return fmt.Sprintf("[%s; %d]", n.Child(0).TypeString(), n.Int)
	case NeverType:
		return "never"
	}
	return ""
}
