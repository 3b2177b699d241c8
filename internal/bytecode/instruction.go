package bytecode

import (
	"fmt"
	"io"
)

// AddrSize is the encoded width of a code address in bytes.
const AddrSize = 4

// Instruction is one entry of a lowered instruction sequence. Only the
// payload fields relevant to Op are meaningful. Label instructions
// (Op == OpLabel) and symbolic jump targets exist only before assembly;
// the assembler strips the former and resolves the latter to byte
// offsets.
type Instruction struct {
	Op    OpCode
	Name  string  // BIND, PUSH_SYMBOL payload; label name for OpLabel
	Label string  // symbolic target of JUMP*/PUSH_FUNCTION
	Int   uint64  // PUSH_INT payload
	Float float64 // PUSH_FLOAT payload
	Str   string  // PUSH_STRING payload
	Len   uint32  // PUSH_LIST / PUSH_DICT element count
	Argc  byte    // CALL argument count
	Addr  uint32  // byte offset, filled in by the disassembler
}

// EncodedSize is the number of bytes the instruction occupies in a
// byte-code image. Labels occupy nothing.
func (in *Instruction) EncodedSize() int {
	switch in.Op {
	case OpLabel:
		return 0
	case OpBind, OpPushSymbol:
		return 2 + len(in.Name)
	case OpJump, OpJumpTrue, OpJumpFalse, OpPushFunction:
		return 1 + AddrSize
	case OpPushInt, OpPushFloat:
		return 1 + 8
	case OpPushString:
		return 5 + len(in.Str)
	case OpPushList, OpPushDict:
		return 5
	case OpCall:
		return 2
	default:
		return 1
	}
}

// operand renders the instruction's payload for listings, or "" for
// parameterless ops.
func (in *Instruction) operand() string {
	switch in.Op {
	case OpBind, OpPushSymbol:
		return in.Name
	case OpJump, OpJumpTrue, OpJumpFalse, OpPushFunction:
		return in.Label
	case OpPushInt:
		return fmt.Sprintf("%d", in.Int)
	case OpPushFloat:
		return fmt.Sprintf("%g", in.Float)
	case OpPushString:
		return fmt.Sprintf("%q", in.Str)
	case OpPushList, OpPushDict:
		return fmt.Sprintf("%d", in.Len)
	case OpCall:
		return fmt.Sprintf("%d", in.Argc)
	default:
		return ""
	}
}

// List writes the instruction's listing line: labels as "name:", other
// instructions indented with their operand.
func (in *Instruction) List(w io.Writer) {
	if in.Op == OpLabel {
		fmt.Fprintf(w, "%s:\n", in.Name)
		return
	}
	if operand := in.operand(); operand != "" {
		fmt.Fprintf(w, "\t%s %s\n", in.Op, operand)
		return
	}
	fmt.Fprintf(w, "\t%s\n", in.Op)
}

// Dis writes the instruction's disassembly line, prefixed with its
// byte offset.
func (in *Instruction) Dis(w io.Writer) {
	if operand := in.operand(); operand != "" {
		fmt.Fprintf(w, "0x%08X:\t%s %s\n", in.Addr, in.Op, operand)
		return
	}
	fmt.Fprintf(w, "0x%08X:\t%s\n", in.Addr, in.Op)
}

// FormatAddr renders a resolved code address the way disassembly
// listings display jump targets.
func FormatAddr(addr uint32) string {
	return fmt.Sprintf("0x%08X", addr)
}
