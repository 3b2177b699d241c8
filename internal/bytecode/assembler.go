package bytecode

import (
	"fmt"

	"github.com/kleopatra999/pop/internal/errors"
)

// LabelMap maps label names to resolved byte offsets.
type LabelMap map[string]uint32

// ResolveLabels is the assembler's first pass: it records each label's
// byte offset and drops it, returning the surviving instructions and
// the populated label map. A duplicate label name fails.
func ResolveLabels(ops []Instruction) ([]Instruction, LabelMap, error) {
	return ResolveLabelsAt(ops, 0)
}

// ResolveLabelsAt is ResolveLabels with offsets counted from base, for
// chunks assembled to live at a non-zero position in a larger image.
func ResolveLabelsAt(ops []Instruction, base uint32) ([]Instruction, LabelMap, error) {
	labels := make(LabelMap)
	survivors := make([]Instruction, 0, len(ops))
	offset := base

	for _, op := range ops {
		if op.Op == OpLabel {
			if _, exists := labels[op.Name]; exists {
				return nil, nil, errors.NewRuntimeError(
					fmt.Sprintf("multiple labels named '%s'", op.Name))
			}
			labels[op.Name] = offset
			continue
		}
		offset += uint32(op.EncodedSize())
		survivors = append(survivors, op)
	}
	return survivors, labels, nil
}

// Assemble runs both passes over a lowered instruction sequence and
// returns the binary byte-code image. Jump and PUSH_FUNCTION payloads
// are rewritten from symbolic labels to absolute byte offsets; an
// unknown label reference fails.
func Assemble(ops []Instruction) ([]byte, error) {
	return AssembleWithBase(ops, 0)
}

// AssembleWithBase assembles a chunk whose first byte will sit at base
// in the final image, so every resolved address is absolute in that
// image. The REPL appends such chunks to one growing image.
func AssembleWithBase(ops []Instruction, base uint32) ([]byte, error) {
	survivors, labels, err := ResolveLabelsAt(ops, base)
	if err != nil {
		return nil, err
	}

	var w Writer
	for _, op := range survivors {
		w.PutU8(byte(op.Op))
		switch op.Op {
		case OpBind, OpPushSymbol:
			w.PutName(op.Name)
		case OpJump, OpJumpTrue, OpJumpFalse, OpPushFunction:
			addr, ok := labels[op.Label]
			if !ok {
				return nil, errors.NewRuntimeError(
					fmt.Sprintf("reference to undefined label '%s'", op.Label))
			}
			w.PutAddr(addr)
		case OpPushInt:
			w.PutU64(op.Int)
		case OpPushFloat:
			w.PutF64(op.Float)
		case OpPushString:
			w.PutString(op.Str)
		case OpPushList, OpPushDict:
			w.PutU32(op.Len)
		case OpCall:
			w.PutU8(op.Argc)
		}
	}
	return w.Bytes(), nil
}
