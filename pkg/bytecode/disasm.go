package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing for the program.
func (p Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header. Instructions
// that are jump targets get a synthetic label so the output assembles back
// to the same program.
func (p Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Loom Bytecode v%d\n", FormatVersion))
	sb.WriteString(fmt.Sprintf("; Instructions: %d\n", len(p)))
	sb.WriteString("\n")

	labels := make(map[int64]string)
	for _, in := range p {
		if in.Op.IsJump() {
			if _, ok := labels[in.Arg]; !ok {
				labels[in.Arg] = fmt.Sprintf("L%d", len(labels))
			}
		}
	}

	for i, in := range p {
		if label, ok := labels[int64(i)]; ok {
			sb.WriteString(label)
			sb.WriteString(":\n")
		}
		sb.WriteString(fmt.Sprintf("    %-36s ; [%04d]", disasmInstr(in, labels), i))
		sb.WriteString("\n")
	}
	if label, ok := labels[int64(len(p))]; ok {
		sb.WriteString(label)
		sb.WriteString(":\n")
	}

	return sb.String()
}

func disasmInstr(in Instruction, labels map[int64]string) string {
	if in.Op.IsJump() {
		if label, ok := labels[in.Arg]; ok {
			return fmt.Sprintf("%s %s", GetOpcodeInfo(in.Op).Name, label)
		}
	}
	return in.String()
}
