package bytecode

import "fmt"

// Opcode identifies a VM instruction. Values are fixed by the bytecode file
// format and organized into ranges by family; they must not be renumbered.
type Opcode byte

const (
	// ========================================================================
	// Stack (0x10-0x1F)
	// ========================================================================

	OpPushI  Opcode = 0x10 // Push int literal: pushi <int>
	OpPushF  Opcode = 0x11 // Push float literal: pushf <float>
	OpPushB  Opcode = 0x12 // Push bool literal: pushb <bool>
	OpPushC  Opcode = 0x13 // Push char literal: pushc <char>
	OpPushSP Opcode = 0x14 // Push the current stack pointer as an int
	OpPop    Opcode = 0x15 // Discard top of stack

	// ========================================================================
	// Memory (0x20-0x2F): decl/load/stor/dstr per value kind.
	// Slots have explicit lifetimes: decl* creates, dstr* releases, and any
	// access to a released or never-declared slot is a fatal error.
	// ========================================================================

	OpDeclI Opcode = 0x20 // Allocate zeroed int slot: decli <addr>
	OpDeclF Opcode = 0x21
	OpDeclB Opcode = 0x22
	OpDeclC Opcode = 0x23
	OpLoadI Opcode = 0x24 // Push slot value: loadi <addr>
	OpLoadF Opcode = 0x25
	OpLoadB Opcode = 0x26
	OpLoadC Opcode = 0x27
	OpStorI Opcode = 0x28 // Pop value and write slot: stori <addr>
	OpStorF Opcode = 0x29
	OpStorB Opcode = 0x2A
	OpStorC Opcode = 0x2B
	OpDstrI Opcode = 0x2C // Release slot: dstri <addr>
	OpDstrF Opcode = 0x2D
	OpDstrB Opcode = 0x2E
	OpDstrC Opcode = 0x2F

	// ========================================================================
	// Arithmetic (0x30-0x3F). Binary ops pop two operands (right on top) and
	// push one result; integer division truncates toward zero; addc/subc
	// offset a char by an int, pointer style.
	// ========================================================================

	OpAddI Opcode = 0x30
	OpSubI Opcode = 0x31
	OpMulI Opcode = 0x32
	OpDivI Opcode = 0x33
	OpAddF Opcode = 0x34
	OpSubF Opcode = 0x35
	OpMulF Opcode = 0x36
	OpDivF Opcode = 0x37
	OpAddC Opcode = 0x38
	OpSubC Opcode = 0x39

	// ========================================================================
	// Comparison and boolean (0x40-0x4F). Pop two, push bool. and/or are
	// eager: both operands are already on the stack, no short-circuit.
	// ========================================================================

	OpEqI Opcode = 0x40
	OpNeI Opcode = 0x41
	OpLtI Opcode = 0x42
	OpLeI Opcode = 0x43
	OpGtI Opcode = 0x44
	OpGeI Opcode = 0x45
	OpEqF Opcode = 0x46
	OpNeF Opcode = 0x47
	OpLtF Opcode = 0x48
	OpLeF Opcode = 0x49
	OpGtF Opcode = 0x4A
	OpGeF Opcode = 0x4B
	OpEqB Opcode = 0x4C
	OpEqC Opcode = 0x4D
	OpAnd Opcode = 0x4E
	OpOr  Opcode = 0x4F

	// ========================================================================
	// Control flow (0x50-0x5F). Jump targets are instruction indices.
	// ========================================================================

	OpIfTrue  Opcode = 0x50 // Pop bool; jump to operand when true
	OpIfFalse Opcode = 0x51 // Pop bool; jump to operand when false
	OpJump    Opcode = 0x5A // Unconditional jump
	OpRet     Opcode = 0x5B // Halt the current program region
	OpRetVal  Opcode = 0x5C // Pop the region's return value, then halt

	// ========================================================================
	// Arrays (0x80-0x8F). Fixed-length contiguous blocks of one element
	// kind; loada*/stora* take the index (and for stora* the value, below
	// the index) from the stack.
	// ========================================================================

	OpDeclA  Opcode = 0x80 // decla <addr> <elem kind> <length>
	OpLoadAI Opcode = 0x81 // Pop index; push element: loadai <addr>
	OpLoadAF Opcode = 0x82
	OpLoadAB Opcode = 0x83
	OpLoadAC Opcode = 0x84
	OpStorAI Opcode = 0x85 // Pop index, pop value; write element: storai <addr>
	OpStorAF Opcode = 0x86
	OpStorAB Opcode = 0x87
	OpStorAC Opcode = 0x88
	OpDstrA  Opcode = 0x89 // Release the whole array

	// ========================================================================
	// I/O (0x90-0x9F)
	// ========================================================================

	OpPrntI Opcode = 0x90 // Pop int and print it
	OpPrntF Opcode = 0x91
	OpPrntB Opcode = 0x92
	OpPrntC Opcode = 0x93
	OpInput Opcode = 0x94 // Read one value from input and push it
)

// OperandKind describes what follows an opcode, both on the wire and in
// assembly text.
type OperandKind int

const (
	OperandNone   OperandKind = iota
	OperandInt                // int literal
	OperandFloat              // float literal
	OperandBool               // bool literal
	OperandChar               // char literal
	OperandAddr               // memory slot address
	OperandTarget             // jump target (instruction index)
	OperandArray              // address + element kind + length (decla)
)

// OpcodeInfo provides per-opcode metadata used by the codec, the assembler,
// the disassembler, and validation.
type OpcodeInfo struct {
	Name    string // assembly mnemonic
	Pops    int    // values popped from the operand stack
	Pushes  int    // values pushed
	Operand OperandKind
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack
	OpPushI:  {"pushi", 0, 1, OperandInt},
	OpPushF:  {"pushf", 0, 1, OperandFloat},
	OpPushB:  {"pushb", 0, 1, OperandBool},
	OpPushC:  {"pushc", 0, 1, OperandChar},
	OpPushSP: {"pushsp", 0, 1, OperandNone},
	OpPop:    {"pop", 1, 0, OperandNone},

	// Memory
	OpDeclI: {"decli", 0, 0, OperandAddr},
	OpDeclF: {"declf", 0, 0, OperandAddr},
	OpDeclB: {"declb", 0, 0, OperandAddr},
	OpDeclC: {"declc", 0, 0, OperandAddr},
	OpLoadI: {"loadi", 0, 1, OperandAddr},
	OpLoadF: {"loadf", 0, 1, OperandAddr},
	OpLoadB: {"loadb", 0, 1, OperandAddr},
	OpLoadC: {"loadc", 0, 1, OperandAddr},
	OpStorI: {"stori", 1, 0, OperandAddr},
	OpStorF: {"storf", 1, 0, OperandAddr},
	OpStorB: {"storb", 1, 0, OperandAddr},
	OpStorC: {"storc", 1, 0, OperandAddr},
	OpDstrI: {"dstri", 0, 0, OperandAddr},
	OpDstrF: {"dstrf", 0, 0, OperandAddr},
	OpDstrB: {"dstrb", 0, 0, OperandAddr},
	OpDstrC: {"dstrc", 0, 0, OperandAddr},

	// Arithmetic
	OpAddI: {"addi", 2, 1, OperandNone},
	OpSubI: {"subi", 2, 1, OperandNone},
	OpMulI: {"muli", 2, 1, OperandNone},
	OpDivI: {"divi", 2, 1, OperandNone},
	OpAddF: {"addf", 2, 1, OperandNone},
	OpSubF: {"subf", 2, 1, OperandNone},
	OpMulF: {"mulf", 2, 1, OperandNone},
	OpDivF: {"divf", 2, 1, OperandNone},
	OpAddC: {"addc", 2, 1, OperandNone},
	OpSubC: {"subc", 2, 1, OperandNone},

	// Comparison / boolean
	OpEqI: {"eqi", 2, 1, OperandNone},
	OpNeI: {"nei", 2, 1, OperandNone},
	OpLtI: {"lti", 2, 1, OperandNone},
	OpLeI: {"lei", 2, 1, OperandNone},
	OpGtI: {"gti", 2, 1, OperandNone},
	OpGeI: {"gei", 2, 1, OperandNone},
	OpEqF: {"eqf", 2, 1, OperandNone},
	OpNeF: {"nef", 2, 1, OperandNone},
	OpLtF: {"ltf", 2, 1, OperandNone},
	OpLeF: {"lef", 2, 1, OperandNone},
	OpGtF: {"gtf", 2, 1, OperandNone},
	OpGeF: {"gef", 2, 1, OperandNone},
	OpEqB: {"eqb", 2, 1, OperandNone},
	OpEqC: {"eqc", 2, 1, OperandNone},
	OpAnd: {"and", 2, 1, OperandNone},
	OpOr:  {"or", 2, 1, OperandNone},

	// Control flow
	OpIfTrue:  {"ifTrue", 1, 0, OperandTarget},
	OpIfFalse: {"ifFalse", 1, 0, OperandTarget},
	OpJump:    {"jump", 0, 0, OperandTarget},
	OpRet:     {"ret", 0, 0, OperandNone},
	OpRetVal:  {"retval", 1, 0, OperandNone},

	// Arrays
	OpDeclA:  {"decla", 0, 0, OperandArray},
	OpLoadAI: {"loadai", 1, 1, OperandAddr},
	OpLoadAF: {"loadaf", 1, 1, OperandAddr},
	OpLoadAB: {"loadab", 1, 1, OperandAddr},
	OpLoadAC: {"loadac", 1, 1, OperandAddr},
	OpStorAI: {"storai", 2, 0, OperandAddr},
	OpStorAF: {"storaf", 2, 0, OperandAddr},
	OpStorAB: {"storab", 2, 0, OperandAddr},
	OpStorAC: {"storac", 2, 0, OperandAddr},
	OpDstrA:  {"dstra", 0, 0, OperandAddr},

	// I/O
	OpPrntI: {"prnti", 1, 0, OperandNone},
	OpPrntF: {"prntf", 1, 0, OperandNone},
	OpPrntB: {"prntb", 1, 0, OperandNone},
	OpPrntC: {"prntc", 1, 0, OperandNone},
	OpInput: {"input", 0, 1, OperandNone},
}

// mnemonics maps assembly names back to opcodes, built from the info table.
var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode. Unknown opcodes get a
// synthetic UNKNOWN name.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// ByMnemonic resolves an assembly mnemonic to its opcode.
func ByMnemonic(name string) (Opcode, bool) {
	op, ok := mnemonics[name]
	return op, ok
}

// Valid reports whether the opcode is defined.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the assembly mnemonic of the opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Operand returns the opcode's operand kind.
func (op Opcode) Operand() OperandKind {
	return GetOpcodeInfo(op).Operand
}

// IsJump reports whether the opcode may redirect the program counter.
func (op Opcode) IsJump() bool {
	return op == OpIfTrue || op == OpIfFalse || op == OpJump
}

// IsReturn reports whether the opcode halts the current program region.
func (op Opcode) IsReturn() bool {
	return op == OpRet || op == OpRetVal
}

// AllOpcodes returns every defined opcode. Useful for exhaustive tests.
func AllOpcodes() []Opcode {
	out := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		out = append(out, op)
	}
	return out
}
