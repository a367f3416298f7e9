package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
)

// slot is one memory cell. A slot stays in the memory map after dstr with
// Live cleared, so later touches can be reported as use-after-free instead
// of as an unknown address.
type slot struct {
	Kind  ValueKind
	Array bool
	Val   Value
	Elems []Value
	Live  bool
}

// Result is the outcome of a finished execution. Value is only meaningful
// when HasValue is set (the program halted through retval).
type Result struct {
	HasValue bool
	Value    Value
}

// VM executes a validated Program. The zero value is not usable; construct
// with NewVM.
type VM struct {
	program Program
	pc      int
	stack   []Value
	memory  map[int64]*slot
	halted  bool
	result  Result

	stdin  *bufio.Scanner
	stdout io.Writer

	// Trace prints each instruction with the stack depth before dispatch.
	Trace bool
}

// NewVM creates a machine reading from stdin and writing to stdout.
func NewVM() *VM {
	return &VM{
		memory: make(map[int64]*slot),
		stdin:  newWordScanner(os.Stdin),
		stdout: os.Stdout,
	}
}

// SetInput redirects the input instruction to r.
func (vm *VM) SetInput(r io.Reader) {
	vm.stdin = newWordScanner(r)
}

// SetOutput redirects the print instructions to w.
func (vm *VM) SetOutput(w io.Writer) {
	vm.stdout = w
}

func newWordScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)
	return s
}

// Execute validates the program's jump targets and runs it to completion.
// Any returned error is a *VMError and the machine state is not reusable
// afterwards.
func (vm *VM) Execute(p Program) (Result, error) {
	for i, in := range p {
		if !in.Op.Valid() {
			return Result{}, vmErrorf(ErrInvalidJumpTarget, i, "unknown opcode 0x%02X", byte(in.Op))
		}
		if in.Op.IsJump() && (in.Arg < 0 || in.Arg > int64(len(p))) {
			return Result{}, vmErrorf(ErrInvalidJumpTarget, i,
				"jump target %d outside program of %d instructions", in.Arg, len(p))
		}
	}
	vm.program = p
	vm.pc = 0
	vm.stack = vm.stack[:0]
	vm.halted = false
	vm.result = Result{}
	return vm.run()
}

func (vm *VM) run() (Result, error) {
	for !vm.halted && vm.pc < len(vm.program) {
		in := vm.program[vm.pc]
		at := vm.pc
		vm.pc++

		if vm.Trace {
			fmt.Fprintf(vm.stdout, "[%04d] %-24s depth=%d\n", at, in.String(), len(vm.stack))
		}

		var err error
		switch in.Op {
		// ============ Stack ============
		case OpPushI:
			vm.push(IntValue(in.Arg))
		case OpPushF:
			vm.push(FloatValue(in.FloatArg()))
		case OpPushB:
			vm.push(BoolValue(in.BoolArg()))
		case OpPushC:
			vm.push(CharValue(in.CharArg()))
		case OpPushSP:
			vm.push(IntValue(int64(len(vm.stack))))
		case OpPop:
			_, err = vm.pop(at)

		// ============ Memory ============
		case OpDeclI, OpDeclF, OpDeclB, OpDeclC:
			vm.memory[in.Arg] = &slot{Kind: declKind(in.Op), Val: zeroValue(declKind(in.Op)), Live: true}
		case OpLoadI, OpLoadF, OpLoadB, OpLoadC:
			err = vm.load(at, in.Arg, loadKind(in.Op))
		case OpStorI, OpStorF, OpStorB, OpStorC:
			err = vm.store(at, in.Arg, storKind(in.Op))
		case OpDstrI, OpDstrF, OpDstrB, OpDstrC:
			err = vm.destroy(at, in.Arg, false)

		// ============ Arithmetic ============
		case OpAddI, OpSubI, OpMulI, OpDivI:
			err = vm.intArith(at, in.Op)
		case OpAddF, OpSubF, OpMulF, OpDivF:
			err = vm.floatArith(at, in.Op)
		case OpAddC, OpSubC:
			err = vm.charArith(at, in.Op)

		// ============ Comparison ============
		case OpEqI, OpNeI, OpLtI, OpLeI, OpGtI, OpGeI:
			err = vm.intCompare(at, in.Op)
		case OpEqF, OpNeF, OpLtF, OpLeF, OpGtF, OpGeF:
			err = vm.floatCompare(at, in.Op)
		case OpEqB:
			var a, b bool
			if b, err = vm.popBool(at); err == nil {
				if a, err = vm.popBool(at); err == nil {
					vm.push(BoolValue(a == b))
				}
			}
		case OpEqC:
			var a, b byte
			if b, err = vm.popChar(at); err == nil {
				if a, err = vm.popChar(at); err == nil {
					vm.push(BoolValue(a == b))
				}
			}
		case OpAnd, OpOr:
			var a, b bool
			if b, err = vm.popBool(at); err == nil {
				if a, err = vm.popBool(at); err == nil {
					if in.Op == OpAnd {
						vm.push(BoolValue(a && b))
					} else {
						vm.push(BoolValue(a || b))
					}
				}
			}

		// ============ Control Flow ============
		case OpIfTrue, OpIfFalse:
			var cond bool
			if cond, err = vm.popBool(at); err == nil {
				if cond == (in.Op == OpIfTrue) {
					vm.pc = int(in.Arg)
				}
			}
		case OpJump:
			vm.pc = int(in.Arg)
		case OpRet:
			vm.halted = true
		case OpRetVal:
			var v Value
			if v, err = vm.pop(at); err == nil {
				vm.result = Result{HasValue: true, Value: v}
				vm.halted = true
			}

		// ============ Arrays ============
		case OpDeclA:
			elems := make([]Value, in.Len)
			for i := range elems {
				elems[i] = zeroValue(in.Elem)
			}
			vm.memory[in.Arg] = &slot{Kind: in.Elem, Array: true, Elems: elems, Live: true}
		case OpLoadAI, OpLoadAF, OpLoadAB, OpLoadAC:
			err = vm.loadElem(at, in.Arg, arrayKind(in.Op))
		case OpStorAI, OpStorAF, OpStorAB, OpStorAC:
			err = vm.storeElem(at, in.Arg, arrayKind(in.Op))
		case OpDstrA:
			err = vm.destroy(at, in.Arg, true)

		// ============ I/O ============
		case OpPrntI, OpPrntF, OpPrntB, OpPrntC:
			err = vm.print(at, in.Op)
		case OpInput:
			err = vm.input(at)

		default:
			err = vmErrorf(ErrInvalidJumpTarget, at, "unhandled opcode %s", in.Op)
		}

		if err != nil {
			return Result{}, err
		}
	}
	return vm.result, nil
}

// ============ Stack helpers ============

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop(pc int) (Value, error) {
	if len(vm.stack) == 0 {
		return Value{}, vmErrorf(ErrStackUnderflow, pc, "pop on empty stack")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) popKind(pc int, want ValueKind) (Value, error) {
	v, err := vm.pop(pc)
	if err != nil {
		return Value{}, err
	}
	if v.Kind != want {
		return Value{}, vmErrorf(ErrTypeMismatch, pc, "expected %s on stack, got %s", want, v.Kind)
	}
	return v, nil
}

func (vm *VM) popInt(pc int) (int64, error) {
	v, err := vm.popKind(pc, KindInt)
	return v.I, err
}

func (vm *VM) popFloat(pc int) (float64, error) {
	v, err := vm.popKind(pc, KindFloat)
	return v.F, err
}

func (vm *VM) popBool(pc int) (bool, error) {
	v, err := vm.popKind(pc, KindBool)
	return v.B, err
}

func (vm *VM) popChar(pc int) (byte, error) {
	v, err := vm.popKind(pc, KindChar)
	return v.C, err
}

// ============ Memory helpers ============

func (vm *VM) slotAt(pc int, addr int64, array bool) (*slot, error) {
	s, ok := vm.memory[addr]
	if !ok {
		return nil, vmErrorf(ErrUseAfterFree, pc, "address &%d was never declared", addr)
	}
	if !s.Live {
		return nil, vmErrorf(ErrUseAfterFree, pc, "address &%d was destroyed", addr)
	}
	if s.Array != array {
		if array {
			return nil, vmErrorf(ErrTypeMismatch, pc, "address &%d holds a scalar, not an array", addr)
		}
		return nil, vmErrorf(ErrTypeMismatch, pc, "address &%d holds an array, not a scalar", addr)
	}
	return s, nil
}

func (vm *VM) load(pc int, addr int64, kind ValueKind) error {
	s, err := vm.slotAt(pc, addr, false)
	if err != nil {
		return err
	}
	if s.Kind != kind {
		return vmErrorf(ErrTypeMismatch, pc, "address &%d holds %s, load expects %s", addr, s.Kind, kind)
	}
	vm.push(s.Val)
	return nil
}

func (vm *VM) store(pc int, addr int64, kind ValueKind) error {
	s, err := vm.slotAt(pc, addr, false)
	if err != nil {
		return err
	}
	if s.Kind != kind {
		return vmErrorf(ErrTypeMismatch, pc, "address &%d holds %s, store expects %s", addr, s.Kind, kind)
	}
	v, err := vm.popKind(pc, kind)
	if err != nil {
		return err
	}
	s.Val = v
	return nil
}

func (vm *VM) destroy(pc int, addr int64, array bool) error {
	s, err := vm.slotAt(pc, addr, array)
	if err != nil {
		return err
	}
	s.Live = false
	s.Elems = nil
	return nil
}

func (vm *VM) loadElem(pc int, addr int64, kind ValueKind) error {
	s, err := vm.slotAt(pc, addr, true)
	if err != nil {
		return err
	}
	if s.Kind != kind {
		return vmErrorf(ErrTypeMismatch, pc, "array &%d holds %s elements, load expects %s", addr, s.Kind, kind)
	}
	idx, err := vm.popInt(pc)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= int64(len(s.Elems)) {
		return vmErrorf(ErrOutOfBounds, pc, "index %d outside array &%d of length %d", idx, addr, len(s.Elems))
	}
	vm.push(s.Elems[idx])
	return nil
}

func (vm *VM) storeElem(pc int, addr int64, kind ValueKind) error {
	s, err := vm.slotAt(pc, addr, true)
	if err != nil {
		return err
	}
	if s.Kind != kind {
		return vmErrorf(ErrTypeMismatch, pc, "array &%d holds %s elements, store expects %s", addr, s.Kind, kind)
	}
	idx, err := vm.popInt(pc)
	if err != nil {
		return err
	}
	v, err := vm.popKind(pc, kind)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= int64(len(s.Elems)) {
		return vmErrorf(ErrOutOfBounds, pc, "index %d outside array &%d of length %d", idx, addr, len(s.Elems))
	}
	s.Elems[idx] = v
	return nil
}

// ============ Arithmetic ============

func (vm *VM) intArith(pc int, op Opcode) error {
	b, err := vm.popInt(pc)
	if err != nil {
		return err
	}
	a, err := vm.popInt(pc)
	if err != nil {
		return err
	}
	switch op {
	case OpAddI:
		vm.push(IntValue(a + b))
	case OpSubI:
		vm.push(IntValue(a - b))
	case OpMulI:
		vm.push(IntValue(a * b))
	case OpDivI:
		if b == 0 {
			return vmErrorf(ErrDivisionByZero, pc, "%d / 0", a)
		}
		vm.push(IntValue(a / b))
	}
	return nil
}

func (vm *VM) floatArith(pc int, op Opcode) error {
	b, err := vm.popFloat(pc)
	if err != nil {
		return err
	}
	a, err := vm.popFloat(pc)
	if err != nil {
		return err
	}
	switch op {
	case OpAddF:
		vm.push(FloatValue(a + b))
	case OpSubF:
		vm.push(FloatValue(a - b))
	case OpMulF:
		vm.push(FloatValue(a * b))
	case OpDivF:
		if b == 0 {
			return vmErrorf(ErrDivisionByZero, pc, "%g / 0", a)
		}
		vm.push(FloatValue(a / b))
	}
	return nil
}

// charArith shifts a char by an int offset. The offset is on top.
func (vm *VM) charArith(pc int, op Opcode) error {
	off, err := vm.popInt(pc)
	if err != nil {
		return err
	}
	c, err := vm.popChar(pc)
	if err != nil {
		return err
	}
	var r int64
	if op == OpAddC {
		r = int64(c) + off
	} else {
		r = int64(c) - off
	}
	if r < 0 || r > 255 {
		return vmErrorf(ErrOutOfBounds, pc, "char value %d outside byte range", r)
	}
	vm.push(CharValue(byte(r)))
	return nil
}

// ============ Comparison ============

func (vm *VM) intCompare(pc int, op Opcode) error {
	b, err := vm.popInt(pc)
	if err != nil {
		return err
	}
	a, err := vm.popInt(pc)
	if err != nil {
		return err
	}
	var r bool
	switch op {
	case OpEqI:
		r = a == b
	case OpNeI:
		r = a != b
	case OpLtI:
		r = a < b
	case OpLeI:
		r = a <= b
	case OpGtI:
		r = a > b
	case OpGeI:
		r = a >= b
	}
	vm.push(BoolValue(r))
	return nil
}

func (vm *VM) floatCompare(pc int, op Opcode) error {
	b, err := vm.popFloat(pc)
	if err != nil {
		return err
	}
	a, err := vm.popFloat(pc)
	if err != nil {
		return err
	}
	var r bool
	switch op {
	case OpEqF:
		r = a == b
	case OpNeF:
		r = a != b
	case OpLtF:
		r = a < b
	case OpLeF:
		r = a <= b
	case OpGtF:
		r = a > b
	case OpGeF:
		r = a >= b
	}
	vm.push(BoolValue(r))
	return nil
}

// ============ I/O ============

func (vm *VM) print(pc int, op Opcode) error {
	var kind ValueKind
	switch op {
	case OpPrntI:
		kind = KindInt
	case OpPrntF:
		kind = KindFloat
	case OpPrntB:
		kind = KindBool
	case OpPrntC:
		kind = KindChar
	}
	v, err := vm.popKind(pc, kind)
	if err != nil {
		return err
	}
	switch kind {
	case KindChar:
		fmt.Fprintf(vm.stdout, "%c\n", v.C)
	default:
		fmt.Fprintln(vm.stdout, v.String())
	}
	return nil
}

// input reads one whitespace-delimited word and pushes the value it parses
// as: int, then float, then bool, otherwise a single char.
func (vm *VM) input(pc int) error {
	if !vm.stdin.Scan() {
		return vmErrorf(ErrOutOfBounds, pc, "input exhausted")
	}
	word := vm.stdin.Text()
	if n, err := strconv.ParseInt(word, 10, 64); err == nil {
		vm.push(IntValue(n))
		return nil
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		vm.push(FloatValue(f))
		return nil
	}
	if word == "true" || word == "false" {
		vm.push(BoolValue(word == "true"))
		return nil
	}
	if len(word) == 1 {
		vm.push(CharValue(word[0]))
		return nil
	}
	return vmErrorf(ErrTypeMismatch, pc, "input %q is not a value", word)
}

// ============ Kind dispatch tables ============

func declKind(op Opcode) ValueKind { return ValueKind(op - OpDeclI) }
func loadKind(op Opcode) ValueKind { return ValueKind(op - OpLoadI) }
func storKind(op Opcode) ValueKind { return ValueKind(op - OpStorI) }

func arrayKind(op Opcode) ValueKind {
	if op >= OpStorAI {
		return ValueKind(op - OpStorAI)
	}
	return ValueKind(op - OpLoadAI)
}

func zeroValue(kind ValueKind) Value {
	return Value{Kind: kind}
}
