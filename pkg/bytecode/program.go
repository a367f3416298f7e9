package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FormatVersion is the current bytecode file format version. Increment when
// making incompatible changes.
const FormatVersion uint16 = 1

// Magic bytes for bytecode files: "LOBC" (LOom ByteCode).
var Magic = []byte{'L', 'O', 'B', 'C'}

// Instruction is one decoded VM instruction: an opcode and at most one
// operand. Arg carries int literals, slot addresses and jump targets (float,
// bool and char literals are packed into Arg as well); Elem and Len are only
// meaningful for decla, whose operand is an address plus a type/length
// descriptor.
type Instruction struct {
	Op   Opcode
	Arg  int64
	Elem ValueKind // decla: element kind
	Len  int64     // decla: element count
}

// Instr builds an instruction with an integer operand (or none).
func Instr(op Opcode, arg int64) Instruction {
	return Instruction{Op: op, Arg: arg}
}

// PushF builds a pushf instruction; the float is bit-packed into Arg.
func PushF(v float64) Instruction {
	return Instruction{Op: OpPushF, Arg: int64(math.Float64bits(v))}
}

// PushB builds a pushb instruction.
func PushB(v bool) Instruction {
	var arg int64
	if v {
		arg = 1
	}
	return Instruction{Op: OpPushB, Arg: arg}
}

// PushC builds a pushc instruction.
func PushC(v byte) Instruction {
	return Instruction{Op: OpPushC, Arg: int64(v)}
}

// DeclA builds a decla instruction for an array of elem kind and length at
// the given address.
func DeclA(addr int64, elem ValueKind, length int64) Instruction {
	return Instruction{Op: OpDeclA, Arg: addr, Elem: elem, Len: length}
}

// FloatArg unpacks a float literal operand.
func (in Instruction) FloatArg() float64 { return math.Float64frombits(uint64(in.Arg)) }

// BoolArg unpacks a bool literal operand.
func (in Instruction) BoolArg() bool { return in.Arg != 0 }

// CharArg unpacks a char literal operand.
func (in Instruction) CharArg() byte { return byte(in.Arg) }

func (in Instruction) String() string {
	info := GetOpcodeInfo(in.Op)
	switch info.Operand {
	case OperandNone:
		return info.Name
	case OperandFloat:
		return fmt.Sprintf("%s %g", info.Name, in.FloatArg())
	case OperandBool:
		return fmt.Sprintf("%s %t", info.Name, in.BoolArg())
	case OperandChar:
		return fmt.Sprintf("%s %s", info.Name, charLitString(in.CharArg()))
	case OperandAddr:
		return fmt.Sprintf("%s &%d", info.Name, in.Arg)
	case OperandArray:
		return fmt.Sprintf("%s &%d %s %d", info.Name, in.Arg, in.Elem, in.Len)
	default:
		return fmt.Sprintf("%s %d", info.Name, in.Arg)
	}
}

// Program is an ordered instruction sequence. Jump targets are instruction
// indices, resolved and fixed before execution begins.
type Program []Instruction

// Validate checks that every opcode is defined and every jump target lies
// within program bounds (or one past the end, the implicit-halt position).
func (p Program) Validate() error {
	for i, in := range p {
		if !in.Op.Valid() {
			return fmt.Errorf("bytecode: instruction %d: unknown opcode 0x%02X", i, byte(in.Op))
		}
		if in.Op.IsJump() {
			if in.Arg < 0 || in.Arg > int64(len(p)) {
				return fmt.Errorf("bytecode: instruction %d: jump target %d outside program of %d instructions",
					i, in.Arg, len(p))
			}
		}
		if in.Op == OpDeclA && in.Len < 0 {
			return fmt.Errorf("bytecode: instruction %d: negative array length %d", i, in.Len)
		}
	}
	return nil
}

// Serialize encodes the program for storage. Format:
//
//	[magic:4] [version:2] [count:4]
//	per instruction: [opcode:1] and, depending on the opcode's operand kind,
//	nothing, [arg:8], or for decla [addr:8] [elem:1] [len:4].
func (p Program) Serialize() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 10+len(p)*9)
	buf = append(buf, Magic...)
	buf = binary.BigEndian.AppendUint16(buf, FormatVersion)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(p)))

	for _, in := range p {
		buf = append(buf, byte(in.Op))
		switch in.Op.Operand() {
		case OperandNone:
		case OperandArray:
			buf = binary.BigEndian.AppendUint64(buf, uint64(in.Arg))
			buf = append(buf, byte(in.Elem))
			buf = binary.BigEndian.AppendUint32(buf, uint32(in.Len))
		default:
			buf = binary.BigEndian.AppendUint64(buf, uint64(in.Arg))
		}
	}
	return buf, nil
}

// Deserialize decodes a serialized program, validating magic, version and
// truncation.
func Deserialize(data []byte) (Program, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("bytecode: file too short: need at least 10 bytes, got %d", len(data))
	}
	if string(data[0:4]) != string(Magic) {
		return nil, fmt.Errorf("bytecode: invalid magic: expected %q, got %q", Magic, data[0:4])
	}
	version := binary.BigEndian.Uint16(data[4:6])
	if version > FormatVersion {
		return nil, fmt.Errorf("bytecode: format version %d is newer than supported version %d", version, FormatVersion)
	}
	count := binary.BigEndian.Uint32(data[6:10])

	// The declared count is untrusted; at one byte per instruction minimum
	// the payload bounds how many can actually follow.
	capHint := int(count)
	if max := len(data) - 10; capHint > max {
		capHint = max
	}
	p := make(Program, 0, capHint)
	pos := 10
	for i := uint32(0); i < count; i++ {
		if pos >= len(data) {
			return nil, fmt.Errorf("bytecode: unexpected end of file reading instruction %d", i)
		}
		op := Opcode(data[pos])
		pos++
		if !op.Valid() {
			return nil, fmt.Errorf("bytecode: instruction %d: unknown opcode 0x%02X", i, byte(op))
		}

		in := Instruction{Op: op}
		switch op.Operand() {
		case OperandNone:
		case OperandArray:
			if pos+13 > len(data) {
				return nil, fmt.Errorf("bytecode: unexpected end of file reading decla operand at instruction %d", i)
			}
			in.Arg = int64(binary.BigEndian.Uint64(data[pos:]))
			in.Elem = ValueKind(data[pos+8])
			in.Len = int64(binary.BigEndian.Uint32(data[pos+9:]))
			pos += 13
		default:
			if pos+8 > len(data) {
				return nil, fmt.Errorf("bytecode: unexpected end of file reading operand at instruction %d", i)
			}
			in.Arg = int64(binary.BigEndian.Uint64(data[pos:]))
			pos += 8
		}
		p = append(p, in)
	}
	if pos != len(data) {
		return nil, fmt.Errorf("bytecode: %d trailing bytes after %d instructions", len(data)-pos, count)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
