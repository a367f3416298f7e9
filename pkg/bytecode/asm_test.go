package bytecode

import (
	"reflect"
	"strings"
	"testing"
)

func TestAssembleBasics(t *testing.T) {
	src := `
        ; compute 3 + 4
        pushi 3
        pushi 4   ; second operand
        addi
        retval
    `
	p, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := Program{
		Instr(OpPushI, 3),
		Instr(OpPushI, 4),
		Instr(OpAddI, 0),
		Instr(OpRetVal, 0),
	}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("got %v, want %v", p, want)
	}
}

func TestAssembleLabelsAndNames(t *testing.T) {
	src := `
        decli &count
    top:
        loadi &count
        pushi 3
        lti
        ifFalse end
        loadi &count
        pushi 1
        addi
        stori &count
        jump top
    end:
        ret
    `
	p, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// top is instruction 1, end is instruction 10.
	if p[4].Op != OpIfFalse || p[4].Arg != 10 {
		t.Errorf("ifFalse = %v, want target 10", p[4])
	}
	if p[9].Op != OpJump || p[9].Arg != 1 {
		t.Errorf("jump = %v, want target 1", p[9])
	}
	// &count resolves to the same address everywhere.
	if p[0].Arg != p[1].Arg || p[0].Arg != p[8].Arg {
		t.Error("&count resolved to different addresses")
	}
}

func TestAssembleNumericAddressAndTarget(t *testing.T) {
	p, err := Assemble("decli &5\njump 0")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if p[0].Arg != 5 {
		t.Errorf("literal address = %d, want 5", p[0].Arg)
	}
	if p[1].Arg != 0 {
		t.Errorf("numeric target = %d, want 0", p[1].Arg)
	}
}

func TestAssembleDeclA(t *testing.T) {
	p, err := Assemble("decla &buf char 16\nret")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := DeclA(0, KindChar, 16)
	if p[0] != want {
		t.Errorf("got %v, want %v", p[0], want)
	}
}

func TestAssembleLiterals(t *testing.T) {
	p, err := Assemble("pushf -0.5\npushb false\npushc '\\n'\nret")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if p[0].FloatArg() != -0.5 {
		t.Errorf("float = %g", p[0].FloatArg())
	}
	if p[1].BoolArg() {
		t.Error("bool should be false")
	}
	if p[2].CharArg() != '\n' {
		t.Errorf("char = %q", p[2].CharArg())
	}
}

func TestAssemblePunctuationCharLiterals(t *testing.T) {
	// ';' and ':' inside a char literal are operand text, not a comment
	// start or a label separator.
	src := "start: pushc ';' ; trailing comment\npushc ':'\npushc '\\''\nret"
	p, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []byte{';', ':', '\''}
	for i, c := range want {
		if got := p[i].CharArg(); got != c {
			t.Errorf("instruction %d: char = %q, want %q", i, got, c)
		}
	}

	// Every char operand must disassemble to text that assembles back to
	// the same byte.
	for _, c := range []byte{'\n', '\t', '\\', '\'', 0, ';', ':', 'q'} {
		in := PushC(c)
		back, err := Assemble(in.String())
		if err != nil {
			t.Fatalf("Assemble(%s): %v", in, err)
		}
		if got := back[0].CharArg(); got != c {
			t.Errorf("round trip of %q came back as %q", c, got)
		}
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown instruction", "frobnicate"},
		{"missing operand", "pushi"},
		{"extra operand", "addi 3"},
		{"bad int", "pushi abc"},
		{"bad bool", "pushb maybe"},
		{"bad char", "pushc 'ab'"},
		{"address without amp", "loadi x"},
		{"undefined label", "jump nowhere"},
		{"duplicate label", "a:\nret\na:\nret"},
		{"bad array elem", "decla &b string 4"},
		{"negative array length", "decla &b int -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(tt.src)
			if err == nil {
				t.Fatal("expected assembly error")
			}
			if _, ok := err.(*AsmError); !ok {
				t.Errorf("expected *AsmError, got %T", err)
			}
		})
	}
}

func TestDisassembleRoundTrip(t *testing.T) {
	src := `
        decli &i
    loop:
        loadi &i
        pushi 10
        lti
        ifFalse done
        loadi &i
        prnti
        loadi &i
        pushi 1
        addi
        stori &i
        jump loop
    done:
        decla &scratch float 4
        pushf 3.5
        pushi 0
        storaf &scratch
        pushc '\n'
        prntc
        pushc ';'
        prntc
        ret
    `
	p, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	listing := p.Disassemble()
	back, err := Assemble(listing)
	if err != nil {
		t.Fatalf("Assemble(listing): %v\n%s", err, listing)
	}
	if !reflect.DeepEqual(back, p) {
		t.Errorf("round trip mismatch:\n%s", listing)
	}
}

func TestDisassembleHeader(t *testing.T) {
	p := Program{Instr(OpRet, 0)}
	listing := p.DisassembleWithName("halt")
	if !strings.Contains(listing, "; === halt ===") {
		t.Errorf("missing name header:\n%s", listing)
	}
	if !strings.Contains(listing, "ret") {
		t.Errorf("missing instruction:\n%s", listing)
	}
}
