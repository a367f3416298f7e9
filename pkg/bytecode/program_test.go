package bytecode

import (
	"reflect"
	"testing"
)

// Encoding values are load-bearing: stored programs must decode on every
// node, so the numbering is pinned here.
func TestOpcodeValues(t *testing.T) {
	tests := []struct {
		op   Opcode
		want byte
	}{
		{OpPushI, 0x10},
		{OpAddI, 0x30},
		{OpIfTrue, 0x50},
		{OpJump, 0x5A},
		{OpDeclA, 0x80},
		{OpPrntI, 0x90},
	}
	for _, tt := range tests {
		if byte(tt.op) != tt.want {
			t.Errorf("%s = 0x%02X, want 0x%02X", tt.op, byte(tt.op), tt.want)
		}
	}
}

func TestOpcodeTableComplete(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" {
			t.Errorf("opcode 0x%02X has no mnemonic", byte(op))
			continue
		}
		back, ok := ByMnemonic(info.Name)
		if !ok || back != op {
			t.Errorf("mnemonic %q does not round-trip to 0x%02X", info.Name, byte(op))
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	p := Program{
		Instr(OpPushI, 3),
		PushF(2.5),
		PushB(true),
		PushC('x'),
		Instr(OpPop, 0),
		Instr(OpPop, 0),
		Instr(OpPop, 0),
		Instr(OpDeclI, 7),
		DeclA(8, KindChar, 16),
		Instr(OpJump, 10),
		Instr(OpRetVal, 0),
	}
	data, err := p.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Errorf("round trip mismatch:\n got %v\nwant %v", got, p)
	}
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	good, err := Program{Instr(OpPushI, 1), Instr(OpRetVal, 0)}.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", []byte("LOB")},
		{"bad magic", append([]byte("XXXX"), good[4:]...)},
		{"truncated operand", good[:len(good)-3]},
		{"trailing bytes", append(append([]byte{}, good...), 0xFF)},
		// A header claiming ~4 billion instructions with no payload must
		// fail on the missing bytes, not allocate for the claimed count.
		{"absurd count", []byte{'L', 'O', 'B', 'C', 0, 1, 0xFF, 0xFF, 0xFF, 0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Deserialize(tt.data); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestDeserializeRejectsUnknownOpcode(t *testing.T) {
	p := Program{Instr(OpRet, 0)}
	data, err := p.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	data[10] = 0xFF
	if _, err := Deserialize(data); err == nil {
		t.Error("expected unknown opcode to be rejected")
	}
}

func TestValidateJumpBounds(t *testing.T) {
	if err := (Program{Instr(OpJump, 2)}).Validate(); err == nil {
		t.Error("expected out-of-range jump to fail validation")
	}
	if err := (Program{Instr(OpJump, 1)}).Validate(); err != nil {
		t.Errorf("jump to end position should validate: %v", err)
	}
	if err := (Program{Instr(OpJump, -1)}).Validate(); err == nil {
		t.Error("expected negative jump to fail validation")
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{Instr(OpPushI, -5), "pushi -5"},
		{PushF(1.5), "pushf 1.5"},
		{PushC('q'), "pushc 'q'"},
		{PushC('\n'), `pushc '\n'`},
		{PushC(0), `pushc '\0'`},
		{Instr(OpLoadI, 3), "loadi &3"},
		{DeclA(2, KindFloat, 8), "decla &2 float 8"},
		{Instr(OpRet, 0), "ret"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestImageRoundTrip(t *testing.T) {
	p := Program{Instr(OpPushI, 42), Instr(OpRetVal, 0)}
	img, err := NewImage("answer", p)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	data, err := MarshalImage(img)
	if err != nil {
		t.Fatalf("MarshalImage: %v", err)
	}
	back, err := UnmarshalImage(data)
	if err != nil {
		t.Fatalf("UnmarshalImage: %v", err)
	}
	if back.Name != "answer" {
		t.Errorf("name %q, want %q", back.Name, "answer")
	}
	got, err := back.Program()
	if err != nil {
		t.Fatalf("Program: %v", err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Errorf("program mismatch after image round trip")
	}
}

func TestImageDetectsTampering(t *testing.T) {
	p := Program{Instr(OpPushI, 42), Instr(OpRetVal, 0)}
	img, err := NewImage("answer", p)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	img.Code[len(img.Code)-1] ^= 0x01
	if _, err := img.Program(); err == nil {
		t.Error("expected hash mismatch for tampered code")
	}
}

func TestMarshalImageDeterministic(t *testing.T) {
	p := Program{Instr(OpPushI, 1), Instr(OpRetVal, 0)}
	img, err := NewImage("p", p)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	a, err := MarshalImage(img)
	if err != nil {
		t.Fatalf("MarshalImage: %v", err)
	}
	b, err := MarshalImage(img)
	if err != nil {
		t.Fatalf("MarshalImage: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("canonical encoding should be byte-stable")
	}
}
