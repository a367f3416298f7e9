package bytecode

import (
	"strings"
	"testing"
)

// run executes a program with the given input, returning the result, the
// captured output and any error.
func run(t *testing.T, p Program, input string) (Result, string, error) {
	t.Helper()
	vm := NewVM()
	var out strings.Builder
	vm.SetOutput(&out)
	vm.SetInput(strings.NewReader(input))
	res, err := vm.Execute(p)
	return res, out.String(), err
}

// runSrc assembles and executes mnemonic source.
func runSrc(t *testing.T, src, input string) (Result, string, error) {
	t.Helper()
	p, err := Assemble(src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return run(t, p, input)
}

func mustResult(t *testing.T, res Result, err error) Value {
	t.Helper()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.HasValue {
		t.Fatal("program halted without a value")
	}
	return res.Value
}

func wantVMError(t *testing.T, err error, kind ErrKind) *VMError {
	t.Helper()
	if err == nil {
		t.Fatal("expected execution to fault")
	}
	vmErr, ok := err.(*VMError)
	if !ok {
		t.Fatalf("expected *VMError, got %T: %v", err, err)
	}
	if vmErr.Kind != kind {
		t.Fatalf("expected %s, got %s: %v", kind, vmErr.Kind, vmErr)
	}
	return vmErr
}

func TestIntArithmetic(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int64
	}{
		{"add", "pushi 3\npushi 4\naddi\nretval", 7},
		{"sub", "pushi 10\npushi 3\nsubi\nretval", 7},
		{"mul", "pushi 6\npushi 7\nmuli\nretval", 42},
		{"div", "pushi 20\npushi 3\ndivi\nretval", 6},
		{"div negative", "pushi -20\npushi 3\ndivi\nretval", -6},
		{"nested", "pushi 2\npushi 3\npushi 4\nmuli\naddi\nretval", 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := runSrc(t, tt.src, "")
			v := mustResult(t, res, err)
			if v.Kind != KindInt || v.I != tt.want {
				t.Errorf("got %s, want %d", v, tt.want)
			}
		})
	}
}

func TestFloatArithmetic(t *testing.T) {
	res, _, err := runSrc(t, "pushf 1.5\npushf 2.25\naddf\nretval", "")
	v := mustResult(t, res, err)
	if v.Kind != KindFloat || v.F != 3.75 {
		t.Errorf("got %s, want 3.75", v)
	}
}

func TestCharArithmetic(t *testing.T) {
	res, _, err := runSrc(t, "pushc 'a'\npushi 2\naddc\nretval", "")
	v := mustResult(t, res, err)
	if v.Kind != KindChar || v.C != 'c' {
		t.Errorf("got %s, want 'c'", v)
	}

	res, _, err = runSrc(t, "pushc 'c'\npushi 2\nsubc\nretval", "")
	v = mustResult(t, res, err)
	if v.C != 'a' {
		t.Errorf("got %s, want 'a'", v)
	}
}

func TestDivisionByZero(t *testing.T) {
	_, _, err := runSrc(t, "pushi 1\npushi 0\ndivi\nretval", "")
	wantVMError(t, err, ErrDivisionByZero)

	_, _, err = runSrc(t, "pushf 1.0\npushf 0.0\ndivf\nretval", "")
	wantVMError(t, err, ErrDivisionByZero)
}

func TestTypeMismatch(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"addi on floats", "pushf 1.0\npushf 2.0\naddi\nretval"},
		{"addf on ints", "pushi 1\npushi 2\naddf\nretval"},
		{"iftrue on int", "pushi 1\nifTrue 0"},
		{"and on ints", "pushi 1\npushi 0\nand\nretval"},
		{"store wrong kind", "decli &x\npushf 1.0\nstori &x"},
		{"load wrong kind", "decli &x\nloadf &x\nretval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runSrc(t, tt.src, "")
			wantVMError(t, err, ErrTypeMismatch)
		})
	}
}

func TestStackUnderflow(t *testing.T) {
	_, _, err := runSrc(t, "pushi 1\naddi\nretval", "")
	wantVMError(t, err, ErrStackUnderflow)

	_, _, err = runSrc(t, "retval", "")
	wantVMError(t, err, ErrStackUnderflow)
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{"eqi true", "pushi 3\npushi 3\neqi\nretval", true},
		{"eqi false", "pushi 3\npushi 4\neqi\nretval", false},
		{"nei", "pushi 3\npushi 4\nnei\nretval", true},
		{"lti", "pushi 3\npushi 4\nlti\nretval", true},
		{"lei equal", "pushi 4\npushi 4\nlei\nretval", true},
		{"gti", "pushi 3\npushi 4\ngti\nretval", false},
		{"gei", "pushi 4\npushi 3\ngei\nretval", true},
		{"ltf", "pushf 1.5\npushf 2.5\nltf\nretval", true},
		{"eqb", "pushb true\npushb true\neqb\nretval", true},
		{"eqc", "pushc 'x'\npushc 'y'\neqc\nretval", false},
		{"and", "pushb true\npushb false\nand\nretval", false},
		{"or", "pushb true\npushb false\nor\nretval", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := runSrc(t, tt.src, "")
			v := mustResult(t, res, err)
			if v.Kind != KindBool || v.B != tt.want {
				t.Errorf("got %s, want %t", v, tt.want)
			}
		})
	}
}

func TestMemorySlots(t *testing.T) {
	src := `
        decli &x
        pushi 41
        stori &x
        loadi &x
        pushi 1
        addi
        retval
    `
	res, _, err := runSrc(t, src, "")
	v := mustResult(t, res, err)
	if v.I != 42 {
		t.Errorf("got %s, want 42", v)
	}
}

func TestDeclInitializesToZero(t *testing.T) {
	res, _, err := runSrc(t, "decli &x\nloadi &x\nretval", "")
	v := mustResult(t, res, err)
	if v.I != 0 {
		t.Errorf("got %s, want 0", v)
	}
}

func TestUseAfterFree(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"load after dstr", "decli &x\ndstri &x\nloadi &x\nretval"},
		{"store after dstr", "decli &x\ndstri &x\npushi 1\nstori &x"},
		{"double dstr", "decli &x\ndstri &x\ndstri &x"},
		{"never declared", "loadi &x\nretval"},
		{"array after dstr", "decla &a int 3\ndstra &a\npushi 0\nloadai &a\nretval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runSrc(t, tt.src, "")
			wantVMError(t, err, ErrUseAfterFree)
		})
	}
}

func TestRedeclareResetsSlot(t *testing.T) {
	src := `
        decli &x
        pushi 9
        stori &x
        decli &x
        loadi &x
        retval
    `
	res, _, err := runSrc(t, src, "")
	v := mustResult(t, res, err)
	if v.I != 0 {
		t.Errorf("got %s, want 0 after redeclare", v)
	}
}

func TestArrays(t *testing.T) {
	src := `
        decla &buf int 3
        pushi 10
        pushi 0
        storai &buf
        pushi 20
        pushi 1
        storai &buf
        pushi 0
        loadai &buf
        pushi 1
        loadai &buf
        addi
        retval
    `
	res, _, err := runSrc(t, src, "")
	v := mustResult(t, res, err)
	if v.I != 30 {
		t.Errorf("got %s, want 30", v)
	}
}

func TestArrayOutOfBounds(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"read past end", "decla &a int 3\npushi 3\nloadai &a\nretval"},
		{"negative index", "decla &a int 3\npushi -1\nloadai &a\nretval"},
		{"write past end", "decla &a float 2\npushf 1.0\npushi 5\nstoraf &a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runSrc(t, tt.src, "")
			wantVMError(t, err, ErrOutOfBounds)
		})
	}
}

func TestArrayElementTypeChecked(t *testing.T) {
	_, _, err := runSrc(t, "decla &a int 3\npushi 0\nloadaf &a\nretval", "")
	wantVMError(t, err, ErrTypeMismatch)
}

func TestControlFlow(t *testing.T) {
	// while (i < 5) { i += 1 } then return i
	src := `
        decli &i
    loop:
        loadi &i
        pushi 5
        lti
        ifFalse done
        loadi &i
        pushi 1
        addi
        stori &i
        jump loop
    done:
        loadi &i
        retval
    `
	res, _, err := runSrc(t, src, "")
	v := mustResult(t, res, err)
	if v.I != 5 {
		t.Errorf("got %s, want 5", v)
	}
}

func TestFalseConditionSkipsBody(t *testing.T) {
	src := `
    loop:
        pushb false
        ifFalse done
        pushi 1
        prnti
        jump loop
    done:
        ret
    `
	res, out, err := runSrc(t, src, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.HasValue {
		t.Error("ret should not produce a value")
	}
	if out != "" {
		t.Errorf("loop body ran: output %q", out)
	}
}

func TestInvalidJumpTargetRejected(t *testing.T) {
	p := Program{Instr(OpJump, 99)}
	vm := NewVM()
	_, err := vm.Execute(p)
	wantVMError(t, err, ErrInvalidJumpTarget)
}

func TestJumpToEndHalts(t *testing.T) {
	// Target one past the last instruction is the implicit halt position.
	p := Program{Instr(OpJump, 1)}
	vm := NewVM()
	res, err := vm.Execute(p)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.HasValue {
		t.Error("fall-off halt should not produce a value")
	}
}

func TestPrint(t *testing.T) {
	src := `
        pushi 42
        prnti
        pushf 2.5
        prntf
        pushb true
        prntb
        pushc 'z'
        prntc
        ret
    `
	_, out, err := runSrc(t, src, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := "42\n2.5\ntrue\nz\n"
	if out != want {
		t.Errorf("output %q, want %q", out, want)
	}
}

func TestInput(t *testing.T) {
	src := `
        input
        input
        addi
        retval
    `
	res, _, err := runSrc(t, src, "3 4")
	v := mustResult(t, res, err)
	if v.I != 7 {
		t.Errorf("got %s, want 7", v)
	}
}

func TestInputKinds(t *testing.T) {
	res, _, err := runSrc(t, "input\nretval", "2.5")
	v := mustResult(t, res, err)
	if v.Kind != KindFloat || v.F != 2.5 {
		t.Errorf("got %s, want 2.5", v)
	}

	res, _, err = runSrc(t, "input\nretval", "true")
	v = mustResult(t, res, err)
	if v.Kind != KindBool || !v.B {
		t.Errorf("got %s, want true", v)
	}

	res, _, err = runSrc(t, "input\nretval", "q")
	v = mustResult(t, res, err)
	if v.Kind != KindChar || v.C != 'q' {
		t.Errorf("got %s, want 'q'", v)
	}
}

func TestPushSP(t *testing.T) {
	res, _, err := runSrc(t, "pushi 1\npushi 2\npushsp\nretval", "")
	v := mustResult(t, res, err)
	if v.I != 2 {
		t.Errorf("got %s, want stack depth 2", v)
	}
}

func TestRetStopsExecution(t *testing.T) {
	src := `
        pushi 1
        prnti
        ret
        pushi 2
        prnti
    `
	_, out, err := runSrc(t, src, "")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "1\n" {
		t.Errorf("output %q, want %q", out, "1\n")
	}
}
