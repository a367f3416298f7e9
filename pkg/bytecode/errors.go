package bytecode

import "fmt"

// ErrKind classifies fatal execution errors. Every one of these halts the
// machine; there is no recovery path inside a running program.
//
// The input instruction maps its failures onto this taxonomy rather than
// adding I/O-specific kinds: reading past the end of input is
// ErrOutOfBounds, and a word that parses as no value kind is
// ErrTypeMismatch.
type ErrKind int

const (
	ErrTypeMismatch ErrKind = iota
	ErrDivisionByZero
	ErrOutOfBounds
	ErrUseAfterFree
	ErrInvalidJumpTarget
	ErrStackUnderflow
)

var errKindNames = map[ErrKind]string{
	ErrTypeMismatch:      "type mismatch",
	ErrDivisionByZero:    "division by zero",
	ErrOutOfBounds:       "out of bounds",
	ErrUseAfterFree:      "use after free",
	ErrInvalidJumpTarget: "invalid jump target",
	ErrStackUnderflow:    "stack underflow",
}

func (k ErrKind) String() string {
	if name, ok := errKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrKind(%d)", int(k))
}

// VMError is a fatal execution error. PC is the index of the instruction
// that faulted.
type VMError struct {
	Kind ErrKind
	PC   int
	Msg  string
}

func (e *VMError) Error() string {
	return fmt.Sprintf("vm: %s at instruction %d: %s", e.Kind, e.PC, e.Msg)
}

func vmErrorf(kind ErrKind, pc int, format string, args ...any) *VMError {
	return &VMError{Kind: kind, PC: pc, Msg: fmt.Sprintf(format, args...)}
}
