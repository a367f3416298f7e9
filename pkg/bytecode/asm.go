package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// AsmError reports an assembly failure with its source line.
type AsmError struct {
	Line int
	Msg  string
}

func (e *AsmError) Error() string {
	return fmt.Sprintf("asm: line %d: %s", e.Line, e.Msg)
}

func asmErrorf(line int, format string, args ...any) *AsmError {
	return &AsmError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

// asmLine is one significant source line after label stripping.
type asmLine struct {
	num    int
	fields []string
}

// Assemble translates mnemonic text into a Program.
//
// One instruction per line. `;` starts a comment. A line may be prefixed
// with one or more `name:` labels; jump operands name a label or give a
// bare instruction index. Addresses are written `&name` (names are assigned
// addresses in order of first use) or `&N` for a literal address. decla
// takes an address, an element type and a length: `decla &buf int 8`.
func Assemble(src string) (Program, error) {
	labels := make(map[string]int)
	names := make(map[string]int64)
	var lines []asmLine

	// First pass: strip comments, record label positions. `;` and `:`
	// inside a char literal are operand text, not comment or label.
	for num, raw := range strings.Split(src, "\n") {
		line := raw
		if i := indexUnquoted(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)

		for {
			i := indexUnquoted(line, ':')
			if i < 0 {
				break
			}
			label := strings.TrimSpace(line[:i])
			if label == "" || strings.ContainsAny(label, " \t") {
				return nil, asmErrorf(num+1, "malformed label %q", line[:i])
			}
			if _, dup := labels[label]; dup {
				return nil, asmErrorf(num+1, "duplicate label %q", label)
			}
			labels[label] = len(lines)
			line = strings.TrimSpace(line[i+1:])
		}
		if line == "" {
			continue
		}
		lines = append(lines, asmLine{num: num + 1, fields: strings.Fields(line)})
	}

	// Second pass: encode instructions, resolving labels and names.
	p := make(Program, 0, len(lines))
	for _, ln := range lines {
		in, err := assembleLine(ln, labels, names)
		if err != nil {
			return nil, err
		}
		p = append(p, in)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func assembleLine(ln asmLine, labels map[string]int, names map[string]int64) (Instruction, error) {
	op, ok := ByMnemonic(ln.fields[0])
	if !ok {
		return Instruction{}, asmErrorf(ln.num, "unknown instruction %q", ln.fields[0])
	}
	info := GetOpcodeInfo(op)
	args := ln.fields[1:]

	want := operandArity(info.Operand)
	if len(args) != want {
		return Instruction{}, asmErrorf(ln.num, "%s takes %d operand(s), got %d", info.Name, want, len(args))
	}

	in := Instruction{Op: op}
	switch info.Operand {
	case OperandNone:

	case OperandInt:
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return Instruction{}, asmErrorf(ln.num, "%s: bad int operand %q", info.Name, args[0])
		}
		in.Arg = n

	case OperandFloat:
		f, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return Instruction{}, asmErrorf(ln.num, "%s: bad float operand %q", info.Name, args[0])
		}
		in = PushF(f)

	case OperandBool:
		switch args[0] {
		case "true":
			in = PushB(true)
		case "false":
			in = PushB(false)
		default:
			return Instruction{}, asmErrorf(ln.num, "%s: bad bool operand %q", info.Name, args[0])
		}

	case OperandChar:
		c, err := parseCharLit(args[0])
		if err != nil {
			return Instruction{}, asmErrorf(ln.num, "%s: %v", info.Name, err)
		}
		in = PushC(c)

	case OperandAddr:
		addr, err := resolveAddr(ln.num, args[0], names)
		if err != nil {
			return Instruction{}, err
		}
		in.Arg = addr

	case OperandTarget:
		if n, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			in.Arg = n
			break
		}
		target, ok := labels[args[0]]
		if !ok {
			return Instruction{}, asmErrorf(ln.num, "undefined label %q", args[0])
		}
		in.Arg = int64(target)

	case OperandArray:
		addr, err := resolveAddr(ln.num, args[0], names)
		if err != nil {
			return Instruction{}, err
		}
		elem, ok := KindByName(args[1])
		if !ok {
			return Instruction{}, asmErrorf(ln.num, "unknown element type %q", args[1])
		}
		length, err := strconv.ParseInt(args[2], 10, 32)
		if err != nil || length < 0 {
			return Instruction{}, asmErrorf(ln.num, "bad array length %q", args[2])
		}
		in = DeclA(addr, elem, length)
	}
	return in, nil
}

func operandArity(kind OperandKind) int {
	switch kind {
	case OperandNone:
		return 0
	case OperandArray:
		return 3
	default:
		return 1
	}
}

func resolveAddr(line int, s string, names map[string]int64) (int64, error) {
	if !strings.HasPrefix(s, "&") {
		return 0, asmErrorf(line, "address operand must start with &, got %q", s)
	}
	name := s[1:]
	if name == "" {
		return 0, asmErrorf(line, "empty address operand")
	}
	if n, err := strconv.ParseInt(name, 10, 64); err == nil {
		return n, nil
	}
	if addr, ok := names[name]; ok {
		return addr, nil
	}
	addr := int64(len(names))
	names[name] = addr
	return addr, nil
}

// indexUnquoted returns the index of the first c outside a char literal,
// or -1. An unclosed quote is treated as ordinary text so the error
// surfaces in operand parsing.
func indexUnquoted(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			if end := charLitEnd(s, i); end > 0 {
				i = end
			}
		case c:
			return i
		}
	}
	return -1
}

// charLitEnd returns the index of the closing quote of the char literal
// opening at s[i], or -1 when it is not closed.
func charLitEnd(s string, i int) int {
	j := i + 1
	if j < len(s) && s[j] == '\\' {
		j++
	}
	j++
	if j < len(s) && s[j] == '\'' {
		return j
	}
	return -1
}

func parseCharLit(s string) (byte, error) {
	if len(s) < 3 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return 0, fmt.Errorf("bad char literal %q", s)
	}
	body := s[1 : len(s)-1]
	if len(body) == 2 && body[0] == '\\' {
		switch body[1] {
		case 'n':
			return '\n', nil
		case 't':
			return '\t', nil
		case '\\':
			return '\\', nil
		case '\'':
			return '\'', nil
		case '0':
			return 0, nil
		}
		return 0, fmt.Errorf("unknown escape in char literal %q", s)
	}
	if len(body) != 1 {
		return 0, fmt.Errorf("char literal %q must hold one character", s)
	}
	return body[0], nil
}

// charLitString renders c in the escape forms parseCharLit accepts, so a
// disassembled char operand always assembles back to the same byte.
func charLitString(c byte) string {
	switch c {
	case '\n':
		return `'\n'`
	case '\t':
		return `'\t'`
	case '\\':
		return `'\\'`
	case '\'':
		return `'\''`
	case 0:
		return `'\0'`
	}
	return fmt.Sprintf("'%c'", c)
}
