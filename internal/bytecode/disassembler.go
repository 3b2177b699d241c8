package bytecode

import (
	"fmt"

	"github.com/kleopatra999/pop/internal/errors"
)

// Disassemble reads a byte-code image sequentially back into an
// instruction list for listing display. Jump and PUSH_FUNCTION payloads
// are formatted as 0x-prefixed offsets. It stops after HALT.
func Disassemble(image []byte) ([]Instruction, error) {
	r := NewReader(image)
	var out []Instruction

	for !r.AtEnd() {
		addr := r.Pos()
		op, err := r.ReadOp()
		if err != nil {
			return nil, err
		}

		in := Instruction{Op: op, Addr: addr}
		switch op {
		case OpBind, OpPushSymbol:
			if in.Name, err = r.ReadName(); err != nil {
				return nil, err
			}
		case OpJump, OpJumpTrue, OpJumpFalse, OpPushFunction:
			target, err := r.ReadAddr()
			if err != nil {
				return nil, err
			}
			in.Label = FormatAddr(target)
		case OpPushInt:
			if in.Int, err = r.ReadU64(); err != nil {
				return nil, err
			}
		case OpPushFloat:
			if in.Float, err = r.ReadF64(); err != nil {
				return nil, err
			}
		case OpPushString:
			if in.Str, err = r.ReadString(); err != nil {
				return nil, err
			}
		case OpPushList, OpPushDict:
			if in.Len, err = r.ReadU32(); err != nil {
				return nil, err
			}
		case OpCall:
			if in.Argc, err = r.ReadU8(); err != nil {
				return nil, err
			}
		default:
			if _, known := opcodeNames[op]; !known || op == OpLabel {
				return nil, errors.NewRuntimeError(
					fmt.Sprintf("unknown op-code 0x%02X at 0x%08X", byte(op), addr))
			}
		}

		out = append(out, in)
		if op == OpHalt {
			break
		}
	}
	return out, nil
}
