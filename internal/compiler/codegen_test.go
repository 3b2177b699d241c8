package compiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kleopatra999/pop/internal/bytecode"
	"github.com/kleopatra999/pop/internal/errors"
	"github.com/kleopatra999/pop/internal/parser"
)

// Test helper to lower a source string, failing on any error.
func lower(t *testing.T, source string) []bytecode.Instruction {
	t.Helper()
	ops, err := CompileToInstructions(source, "<test>")
	if err != nil {
		t.Fatalf("lower %q: %v", source, err)
	}
	return ops
}

// listing renders instructions one per line the way build listings do,
// trimmed for easy comparison.
func listing(ops []bytecode.Instruction) []string {
	var lines []string
	for i := range ops {
		var buf bytes.Buffer
		ops[i].List(&buf)
		lines = append(lines, strings.TrimSpace(buf.String()))
	}
	return lines
}

func assertListing(t *testing.T, source string, want []string) {
	t.Helper()
	got := listing(lower(t, source))
	if len(got) != len(want) {
		t.Fatalf("%q:\n got %d instructions %v\nwant %d %v",
			source, len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%q: line %d is %q, want %q", source, i, got[i], want[i])
		}
	}
}

func TestEmptyModule(t *testing.T) {
	assertListing(t, "", []string{
		"JUMP _pop_start_",
		"_pop_start_:",
		"OPEN_SCOPE",
		"CLOSE_SCOPE",
		"HALT",
	})
}

// Interactive chunks carry no scope frame: bindings go into the
// machine's persistent root scope.
func TestInteractiveLowering(t *testing.T) {
	mod, err := parser.Parse("let x = 1;", "<test>")
	if err != nil {
		t.Fatal(err)
	}
	ops, err := LowerInteractive(mod)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"JUMP _pop_start_",
		"_pop_start_:",
		"PUSH_INT 1",
		"BIND x",
		"HALT",
	}
	got := listing(ops)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d is %q, want %q", i, got[i], want[i])
		}
	}
}

// The machine pops the left operand first, so the code generator pushes
// the right-hand side first.
func TestBinaryOperandOrder(t *testing.T) {
	assertListing(t, "let d = 6 - 2;", []string{
		"JUMP _pop_start_",
		"_pop_start_:",
		"OPEN_SCOPE",
		"PUSH_INT 2",
		"PUSH_INT 6",
		"SUB",
		"BIND d",
		"CLOSE_SCOPE",
		"HALT",
	})
}

func TestLetAndPrint(t *testing.T) {
	assertListing(t, "let x = 1 + 2; print(x);", []string{
		"JUMP _pop_start_",
		"_pop_start_:",
		"OPEN_SCOPE",
		"PUSH_INT 2",
		"PUSH_INT 1",
		"ADD",
		"BIND x",
		"PUSH_SYMBOL x",
		"PRINT",
		"CLOSE_SCOPE",
		"HALT",
	})
}

func TestExprStmtPopsItsValue(t *testing.T) {
	assertListing(t, "1 + 2;", []string{
		"JUMP _pop_start_",
		"_pop_start_:",
		"OPEN_SCOPE",
		"PUSH_INT 2",
		"PUSH_INT 1",
		"ADD",
		"POP_TOP",
		"CLOSE_SCOPE",
		"HALT",
	})
}

func TestWhileLowering(t *testing.T) {
	assertListing(t, "while (1) break;", []string{
		"JUMP _pop_start_",
		"_pop_start_:",
		"OPEN_SCOPE",
		"_pop_0_begin_:",
		"PUSH_INT 1",
		"JUMP_FALSE _pop_0_end_",
		"JUMP _pop_0_end_",
		"JUMP _pop_0_begin_",
		"_pop_0_end_:",
		"CLOSE_SCOPE",
		"HALT",
	})
}

func TestUntilLowering(t *testing.T) {
	assertListing(t, "until (0) continue;", []string{
		"JUMP _pop_start_",
		"_pop_start_:",
		"OPEN_SCOPE",
		"_pop_0_begin_:",
		"PUSH_INT 0",
		"JUMP_TRUE _pop_0_end_",
		"JUMP _pop_0_begin_",
		"JUMP _pop_0_begin_",
		"_pop_0_end_:",
		"CLOSE_SCOPE",
		"HALT",
	})
}

func TestDoWhileLowering(t *testing.T) {
	assertListing(t, "do ; while (0);", []string{
		"JUMP _pop_start_",
		"_pop_start_:",
		"OPEN_SCOPE",
		"_pop_0_begin_:",
		"PUSH_INT 0",
		"JUMP_TRUE _pop_0_begin_",
		"_pop_0_end_:",
		"CLOSE_SCOPE",
		"HALT",
	})
}

func TestIfElseLowering(t *testing.T) {
	assertListing(t, "if (1) ; else ;", []string{
		"JUMP _pop_start_",
		"_pop_start_:",
		"OPEN_SCOPE",
		"PUSH_INT 1",
		"JUMP_FALSE _pop_0_else_",
		"JUMP _pop_0_endif_",
		"_pop_0_else_:",
		"_pop_0_endif_:",
		"CLOSE_SCOPE",
		"HALT",
	})
}

func TestGotoAndLabelLowering(t *testing.T) {
	assertListing(t, "top: goto top;", []string{
		"JUMP _pop_start_",
		"_pop_start_:",
		"OPEN_SCOPE",
		"_pop_label_top:",
		"JUMP _pop_label_top",
		"CLOSE_SCOPE",
		"HALT",
	})
}

// Function bodies land in the declaration sequence before the start
// label; arguments bind in declaration order and the body ends with an
// implicit return of null.
func TestFunctionLowering(t *testing.T) {
	assertListing(t, "let id = function(a, b) { return a; };", []string{
		"JUMP _pop_start_",
		"_pop_0_:",
		"OPEN_SCOPE",
		"BIND a",
		"BIND b",
		"PUSH_SYMBOL a",
		"CLOSE_SCOPE",
		"RETURN",
		"PUSH_NULL",
		"CLOSE_SCOPE",
		"RETURN",
		"_pop_start_:",
		"OPEN_SCOPE",
		"PUSH_FUNCTION _pop_0_",
		"BIND id",
		"CLOSE_SCOPE",
		"HALT",
	})
}

// Call sites push arguments in reverse so the callee binds them in
// declaration order; calling the identifier print emits PRINT instead.
func TestCallLowering(t *testing.T) {
	assertListing(t, "let f = function(x) { return x; }; f(1, 2);", []string{
		"JUMP _pop_start_",
		"_pop_0_:",
		"OPEN_SCOPE",
		"BIND x",
		"PUSH_SYMBOL x",
		"CLOSE_SCOPE",
		"RETURN",
		"PUSH_NULL",
		"CLOSE_SCOPE",
		"RETURN",
		"_pop_start_:",
		"OPEN_SCOPE",
		"PUSH_FUNCTION _pop_0_",
		"BIND f",
		"PUSH_INT 2",
		"PUSH_INT 1",
		"PUSH_SYMBOL f",
		"CALL 2",
		"POP_TOP",
		"CLOSE_SCOPE",
		"HALT",
	})
}

func TestNestedLoopLabels(t *testing.T) {
	ops := lower(t, "while (1) { while (1) break; break; }")
	lines := listing(ops)

	var inner, outer string
	for _, line := range lines {
		if strings.HasPrefix(line, "_pop_") && strings.HasSuffix(line, "begin_:") {
			name := strings.TrimSuffix(line, "begin_:")
			if outer == "" {
				outer = name
			} else {
				inner = name
			}
		}
	}
	if outer != "_pop_0_" {
		t.Errorf("outer loop label base %q, want _pop_0_", outer)
	}
	if inner != "_pop_1_0_" {
		t.Errorf("inner loop label base %q, want _pop_1_0_", inner)
	}

	// the inner break targets the inner loop
	found := false
	for _, line := range lines {
		if line == "JUMP "+inner+"end_" {
			found = true
			break
		}
	}
	if !found {
		t.Error("no jump to the inner loop's end label")
	}
}

func TestBreakOutsideLoopFails(t *testing.T) {
	_, err := CompileToInstructions("break;", "<test>")
	if err == nil {
		t.Fatal("expected an error")
	}
	if perr, ok := err.(*errors.PopError); !ok || perr.Type != errors.CompileError {
		t.Errorf("error %v, want a CompileError", err)
	}
}

func TestUnsupportedConstructs(t *testing.T) {
	for _, source := range []string{
		"for (x in [1]) ;",
		"let o = { a: 1 };",
	} {
		if _, err := CompileToInstructions(source, "<test>"); err == nil {
			t.Errorf("%q: expected a compile error", source)
		}
	}
}

// Every label referenced by a jump is defined, and every jump resolves
// to the first byte of a surviving instruction.
func TestJumpTargetsResolve(t *testing.T) {
	source := `
let fact = function(n) {
	if (n <= 1) return 1;
	return n * fact(n - 1);
};
let i = 0;
while (i < 5) {
	print(fact(i));
	i += 1;
}
`
	ops := lower(t, source)
	survivors, labels, err := bytecode.ResolveLabels(ops)
	if err != nil {
		t.Fatal(err)
	}

	starts := map[uint32]bool{}
	offset := uint32(0)
	for i := range survivors {
		starts[offset] = true
		offset += uint32(survivors[i].EncodedSize())
	}

	for i := range ops {
		switch ops[i].Op {
		case bytecode.OpJump, bytecode.OpJumpTrue, bytecode.OpJumpFalse,
			bytecode.OpPushFunction:
			addr, ok := labels[ops[i].Label]
			if !ok {
				t.Errorf("label %q is referenced but never defined", ops[i].Label)
				continue
			}
			if !starts[addr] {
				t.Errorf("label %q resolves to 0x%08X, not an instruction start",
					ops[i].Label, addr)
			}
		}
	}

	if _, err := bytecode.Assemble(ops); err != nil {
		t.Fatalf("assembly failed: %v", err)
	}
}

// The assembled image of the canonical example starts with a jump to
// the byte offset of OPEN_SCOPE.
func TestAssembledJumpTarget(t *testing.T) {
	image, err := Compile("let x = 1 + 2; print(x);", "<test>")
	if err != nil {
		t.Fatal(err)
	}
	if image[0] != byte(bytecode.OpJump) {
		t.Fatalf("image starts with %d, want JUMP", image[0])
	}
	target := uint32(image[1])<<24 | uint32(image[2])<<16 | uint32(image[3])<<8 | uint32(image[4])
	if target != 5 {
		t.Errorf("jump target %d, want 5", target)
	}
	if image[5] != byte(bytecode.OpOpenScope) {
		t.Errorf("byte 5 is %d, want OPEN_SCOPE", image[5])
	}
}
