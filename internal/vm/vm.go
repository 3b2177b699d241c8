package vm

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/tliron/commonlog"

	"github.com/kleopatra999/pop/internal/bytecode"
	"github.com/kleopatra999/pop/internal/errors"
)

var log = commonlog.GetLogger("pop.vm")

// ExitPaused is the sentinel exit code Execute returns after a
// cooperative pause.
const ExitPaused = -1

// frame is one entry of the call-return stack: where to resume and
// which environment the caller was in.
type frame struct {
	retAddr uint32
	env     *Env
}

// VM is the byte-code interpreter: a fetch-decode-execute loop over a
// byte-code image, an operand stack of value references, a call-return
// stack and a chain of lexical environments. One VM owns all of its
// values; nothing is shared across instances.
type VM struct {
	code     []byte
	ip       uint32
	stack    []Value
	frames   []frame
	env      *Env
	running  bool
	paused   bool
	exitCode int
	stdout   io.Writer
	args     []string
}

type Option func(*VM)

// WithStdout redirects the PRINT instruction's output.
func WithStdout(w io.Writer) Option {
	return func(vm *VM) { vm.stdout = w }
}

// WithArgs supplies program arguments.
func WithArgs(args []string) Option {
	return func(vm *VM) { vm.args = args }
}

// WithRootEnv starts the machine with an already-open scope. The REPL
// uses it with interactively-compiled chunks, which carry no scope
// frame of their own, so top-level bindings land here and survive
// ResetWithCode.
func WithRootEnv() Option {
	return func(vm *VM) { vm.env = NewEnv(nil) }
}

func New(code []byte, opts ...Option) *VM {
	vm := &VM{
		code:   code,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// ResetWithCode swaps in a new byte-code image and entry point,
// clearing the operand and call stacks but keeping the environment
// chain, so bindings persist across runs. The REPL appends each
// entry's chunk to one growing image and resets to the chunk's start.
func (vm *VM) ResetWithCode(code []byte, entry uint32) {
	vm.code = code
	vm.ip = entry
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
}

// Pause asks the loop to stop before the next instruction; Execute
// then returns ExitPaused. Resume and re-invoke Execute to continue.
func (vm *VM) Pause() {
	if vm.running && !vm.paused {
		vm.paused = true
	}
	vm.exitCode = ExitPaused
}

// Resume clears the paused flag; the caller must re-invoke Execute.
func (vm *VM) Resume() {
	if vm.running && vm.paused {
		vm.paused = false
	}
}

// Exit stops the machine with the given exit code.
func (vm *VM) Exit(code int) {
	if vm.running {
		vm.exitCode = code
		vm.running = false
		vm.paused = false
	}
}

// StackDepth reports the operand stack depth; after a clean HALT it is
// zero.
func (vm *VM) StackDepth() int {
	return len(vm.stack)
}

// Execute runs the fetch-decode-execute loop until HALT, a pause or a
// runtime error. It returns the exit code. Flags are only checked
// between instructions.
func (vm *VM) Execute() (int, error) {
	vm.running = true
	vm.paused = false
	vm.exitCode = 0

	for vm.running && !vm.paused {
		if err := vm.step(); err != nil {
			vm.running = false
			return 1, err
		}
	}
	if vm.paused {
		log.Debugf("paused at 0x%08X", vm.ip)
	}
	return vm.exitCode, nil
}

func (vm *VM) step() error {
	opAddr := vm.ip
	opByte, err := vm.readU8()
	if err != nil {
		return err
	}

	switch op := bytecode.OpCode(opByte); op {
	case bytecode.OpHalt:
		vm.running = false

	case bytecode.OpNop:

	case bytecode.OpPrint:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		fmt.Fprintln(vm.stdout, v.Repr())

	case bytecode.OpOpenScope:
		vm.env = NewEnv(vm.env)

	case bytecode.OpCloseScope:
		if vm.env == nil {
			return errors.NewRuntimeError("close scope without an open scope")
		}
		vm.env = vm.env.Parent()

	case bytecode.OpBind:
		name, err := vm.readName()
		if err != nil {
			return err
		}
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if vm.env == nil {
			return errors.NewRuntimeError("bind without an open scope")
		}
		vm.env.Define(name, v)

	case bytecode.OpCall:
		if _, err := vm.readU8(); err != nil { // argument count
			return err
		}
		callee, err := vm.pop()
		if err != nil {
			return err
		}
		fn, ok := callee.(*Function)
		if !ok {
			return errors.NewRuntimeError(fmt.Sprintf(
				"value type '%s' is not callable at 0x%08X", callee.Kind(), opAddr))
		}
		vm.frames = append(vm.frames, frame{retAddr: vm.ip, env: vm.env})
		vm.env = fn.Env
		vm.ip = fn.Addr

	case bytecode.OpReturn:
		if len(vm.frames) == 0 {
			return errors.NewRuntimeError("return with an empty call stack")
		}
		f := vm.frames[len(vm.frames)-1]
		vm.frames = vm.frames[:len(vm.frames)-1]
		vm.ip = f.retAddr
		vm.env = f.env

	case bytecode.OpJump:
		addr, err := vm.readAddr()
		if err != nil {
			return err
		}
		vm.ip = addr

	case bytecode.OpJumpTrue:
		addr, err := vm.readAddr()
		if err != nil {
			return err
		}
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Truthy() {
			vm.ip = addr
		}

	case bytecode.OpJumpFalse:
		addr, err := vm.readAddr()
		if err != nil {
			return err
		}
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if !v.Truthy() {
			vm.ip = addr
		}

	case bytecode.OpPopTop:
		if _, err := vm.pop(); err != nil {
			return err
		}

	case bytecode.OpPushNull:
		vm.push(&Null{})

	case bytecode.OpPushTrue:
		vm.push(&Bool{Value: true})

	case bytecode.OpPushFalse:
		vm.push(&Bool{Value: false})

	case bytecode.OpPushInt:
		v, err := vm.readU64()
		if err != nil {
			return err
		}
		vm.push(&Int{Value: int64(v)})

	case bytecode.OpPushFloat:
		bits, err := vm.readU64()
		if err != nil {
			return err
		}
		vm.push(&Float{Value: math.Float64frombits(bits)})

	case bytecode.OpPushString:
		s, err := vm.readString()
		if err != nil {
			return err
		}
		vm.push(&String{Value: s})

	case bytecode.OpPushSymbol:
		name, err := vm.readName()
		if err != nil {
			return err
		}
		if vm.env != nil {
			if v, ok := vm.env.Lookup(name, true); ok {
				vm.push(v)
				break
			}
		}
		return errors.NewRuntimeError(fmt.Sprintf("unbound symbol '%s'", name))

	case bytecode.OpPushList:
		n, err := vm.readU32()
		if err != nil {
			return err
		}
		list := &List{}
		for i := uint32(0); i < n; i++ {
			v, err := vm.pop()
			if err != nil {
				return err
			}
			list.Append(v)
		}
		vm.push(list)

	case bytecode.OpPushDict:
		n, err := vm.readU32()
		if err != nil {
			return err
		}
		dict := NewDict()
		for i := uint32(0); i < n; i++ {
			key, err := vm.pop()
			if err != nil {
				return err
			}
			value, err := vm.pop()
			if err != nil {
				return err
			}
			if err := dict.Set(key, value); err != nil {
				return err
			}
		}
		vm.push(dict)

	case bytecode.OpPushSlice:
		step, err := vm.pop()
		if err != nil {
			return err
		}
		stop, err := vm.pop()
		if err != nil {
			return err
		}
		start, err := vm.pop()
		if err != nil {
			return err
		}
		vm.push(&Slice{Start: start, Stop: stop, Step: step})

	case bytecode.OpPushFunction:
		addr, err := vm.readAddr()
		if err != nil {
			return err
		}
		vm.push(&Function{Addr: addr, Env: vm.env})

	case bytecode.OpIndex:
		index, err := vm.pop()
		if err != nil {
			return err
		}
		object, err := vm.pop()
		if err != nil {
			return err
		}
		v, err := Index(object, index)
		if err != nil {
			return err
		}
		vm.push(v)

	case bytecode.OpMember:
		nameVal, err := vm.pop()
		if err != nil {
			return err
		}
		object, err := vm.pop()
		if err != nil {
			return err
		}
		name, ok := nameVal.(*String)
		if !ok {
			return errors.NewRuntimeError(fmt.Sprintf(
				"value of type '%s' is not a member name", nameVal.Kind()))
		}
		v, err := Member(object, name.Value)
		if err != nil {
			return err
		}
		vm.push(v)

	case bytecode.OpIPAssign:
		left, err := vm.pop()
		if err != nil {
			return err
		}
		right, err := vm.pop()
		if err != nil {
			return err
		}
		v, err := IPAssign(left, right)
		if err != nil {
			// the kinds differ, so the value cannot morph in place;
			// rebuild the binding instead, pointing every name that
			// held the old value at the new one
			if !vm.rebind(left, right) {
				return err
			}
			v = right
		}
		vm.push(v)

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
		bytecode.OpMod, bytecode.OpPow, bytecode.OpLogAnd, bytecode.OpLogOr,
		bytecode.OpBitAnd, bytecode.OpBitOr, bytecode.OpBitXor,
		bytecode.OpLeftShift, bytecode.OpRightShift,
		bytecode.OpIPAdd, bytecode.OpIPSub, bytecode.OpIPMul, bytecode.OpIPDiv,
		bytecode.OpIPMod, bytecode.OpIPAnd, bytecode.OpIPOr, bytecode.OpIPXor,
		bytecode.OpIPNot, bytecode.OpIPLeft, bytecode.OpIPRight,
		bytecode.OpEq, bytecode.OpNe, bytecode.OpGt, bytecode.OpGe,
		bytecode.OpLt, bytecode.OpLe:
		// the left operand is on top: the code generator pushes the
		// right-hand side first
		left, err := vm.pop()
		if err != nil {
			return err
		}
		right, err := vm.pop()
		if err != nil {
			return err
		}
		v, err := binop(op)(left, right)
		if err != nil {
			return err
		}
		vm.push(v)

	case bytecode.OpPos, bytecode.OpNeg, bytecode.OpLogNot, bytecode.OpBitNot,
		bytecode.OpIPPreInc, bytecode.OpIPPreDec,
		bytecode.OpIPPostInc, bytecode.OpIPPostDec:
		operand, err := vm.pop()
		if err != nil {
			return err
		}
		v, err := unop(op)(operand)
		if err != nil {
			return err
		}
		vm.push(v)

	default:
		return errors.NewRuntimeError(fmt.Sprintf(
			"unknown op-code 0x%02X at 0x%08X", opByte, opAddr))
	}
	return nil
}

func binop(op bytecode.OpCode) func(Value, Value) (Value, error) {
	switch op {
	case bytecode.OpAdd:
		return Add
	case bytecode.OpSub:
		return Sub
	case bytecode.OpMul:
		return Mul
	case bytecode.OpDiv:
		return Div
	case bytecode.OpMod:
		return Mod
	case bytecode.OpPow:
		return Pow
	case bytecode.OpLogAnd:
		return LogAnd
	case bytecode.OpLogOr:
		return LogOr
	case bytecode.OpBitAnd:
		return BitAnd
	case bytecode.OpBitOr:
		return BitOr
	case bytecode.OpBitXor:
		return BitXor
	case bytecode.OpLeftShift:
		return LeftShift
	case bytecode.OpRightShift:
		return RightShift
	case bytecode.OpIPAdd:
		return IPAdd
	case bytecode.OpIPSub:
		return IPSub
	case bytecode.OpIPMul:
		return IPMul
	case bytecode.OpIPDiv:
		return IPDiv
	case bytecode.OpIPMod:
		return IPMod
	case bytecode.OpIPAnd:
		return IPBitAnd
	case bytecode.OpIPOr:
		return IPBitOr
	case bytecode.OpIPXor:
		return IPBitXor
	case bytecode.OpIPNot:
		return IPBitNot
	case bytecode.OpIPLeft:
		return IPLeftShift
	case bytecode.OpIPRight:
		return IPRightShift
	case bytecode.OpEq:
		return Eq
	case bytecode.OpNe:
		return Ne
	case bytecode.OpGt:
		return Gt
	case bytecode.OpGe:
		return Ge
	case bytecode.OpLt:
		return Lt
	case bytecode.OpLe:
		return Le
	}
	panic(fmt.Sprintf("no binary handler for %s", op))
}

func unop(op bytecode.OpCode) func(Value) (Value, error) {
	switch op {
	case bytecode.OpPos:
		return Pos
	case bytecode.OpNeg:
		return Neg
	case bytecode.OpLogNot:
		return LogNot
	case bytecode.OpBitNot:
		return BitNot
	case bytecode.OpIPPreInc:
		return PreInc
	case bytecode.OpIPPreDec:
		return PreDec
	case bytecode.OpIPPostInc:
		return PostInc
	case bytecode.OpIPPostDec:
		return PostDec
	}
	panic(fmt.Sprintf("no unary handler for %s", op))
}

// rebind walks the environment chain and points every binding holding
// exactly old at replacement. Assignment uses it when the target's
// kind differs from the assigned value's, since a value object cannot
// change kind in place. It reports whether any binding was replaced.
func (vm *VM) rebind(old, replacement Value) bool {
	found := false
	for env := vm.env; env != nil; env = env.Parent() {
		if env.replaceValue(old, replacement) {
			found = true
		}
	}
	return found
}

// --- Stack and decode helpers ---

func (vm *VM) push(v Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() (Value, error) {
	if len(vm.stack) == 0 {
		return nil, errors.NewRuntimeError("pop from an empty operand stack")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *VM) readU8() (byte, error) {
	if int(vm.ip) >= len(vm.code) {
		return 0, errors.NewRuntimeError("unexpected end of byte-code")
	}
	b := vm.code[vm.ip]
	vm.ip++
	return b, nil
}

func (vm *VM) readU32() (uint32, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		b, err := vm.readU8()
		if err != nil {
			return 0, err
		}
		v = v<<8 | uint32(b)
	}
	return v, nil
}

func (vm *VM) readU64() (uint64, error) {
	var v uint64
	for i := 0; i < 8; i++ {
		b, err := vm.readU8()
		if err != nil {
			return 0, err
		}
		v = v<<8 | uint64(b)
	}
	return v, nil
}

func (vm *VM) readAddr() (uint32, error) {
	return vm.readU32()
}

func (vm *VM) readName() (string, error) {
	n, err := vm.readU8()
	if err != nil {
		return "", err
	}
	return vm.readBytes(int(n))
}

func (vm *VM) readString() (string, error) {
	n, err := vm.readU32()
	if err != nil {
		return "", err
	}
	return vm.readBytes(int(n))
}

func (vm *VM) readBytes(n int) (string, error) {
	if int(vm.ip)+n > len(vm.code) {
		return "", errors.NewRuntimeError("unexpected end of byte-code")
	}
	s := string(vm.code[vm.ip : vm.ip+uint32(n)])
	vm.ip += uint32(n)
	return s, nil
}
