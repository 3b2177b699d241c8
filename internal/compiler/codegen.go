// internal/compiler/codegen.go
package compiler

import (
	"fmt"
	"strconv"

	"github.com/kleopatra999/pop/internal/bytecode"
	"github.com/kleopatra999/pop/internal/errors"
	"github.com/kleopatra999/pop/internal/lexer"
	"github.com/kleopatra999/pop/internal/parser"
)

// codeGen lowers an AST post-order into two instruction sequences:
// decls collects function bodies, code collects top-level code. The
// final sequence jumps over the declarations into the program frame.
type codeGen struct {
	decls        []bytecode.Instruction
	code         []bytecode.Instruction
	depthStack   []int
	opsStack     []*[]bytecode.Instruction
	controlStack []string
	filename     string
}

// Lower converts a parsed module into a linear instruction sequence
// with symbolic labels, ready for assembly.
func Lower(mod *parser.Module) ([]bytecode.Instruction, error) {
	return lowerModule(mod, false)
}

// LowerInteractive lowers a module without the program's outer scope
// frame: top-level bindings go straight into whatever scope the
// machine already has open. The REPL compiles each entry this way so
// bindings persist between lines.
func LowerInteractive(mod *parser.Module) ([]bytecode.Instruction, error) {
	return lowerModule(mod, true)
}

func lowerModule(mod *parser.Module, interactive bool) (ops []bytecode.Instruction, err error) {
	defer func() {
		if r := recover(); r != nil {
			if perr, ok := r.(*errors.PopError); ok {
				ops, err = nil, perr
			} else {
				panic(r)
			}
		}
	}()

	g := &codeGen{
		depthStack: []int{0},
		filename:   mod.Filename,
	}
	g.beginCode()
	for _, stmt := range mod.Stmts {
		g.stmt(stmt)
	}
	g.endCode()
	return g.finish(interactive), nil
}

func (g *codeGen) finish(interactive bool) []bytecode.Instruction {
	combined := make([]bytecode.Instruction, 0, len(g.decls)+len(g.code)+5)
	combined = append(combined, bytecode.Instruction{Op: bytecode.OpJump, Label: "_pop_start_"})
	combined = append(combined, g.decls...)
	combined = append(combined, bytecode.Instruction{Op: bytecode.OpLabel, Name: "_pop_start_"})
	if !interactive {
		combined = append(combined, bytecode.Instruction{Op: bytecode.OpOpenScope})
	}
	combined = append(combined, g.code...)
	if !interactive {
		combined = append(combined, bytecode.Instruction{Op: bytecode.OpCloseScope})
	}
	combined = append(combined, bytecode.Instruction{Op: bytecode.OpHalt})
	return combined
}

func (g *codeGen) add(in bytecode.Instruction) {
	target := g.opsStack[len(g.opsStack)-1]
	*target = append(*target, in)
}

func (g *codeGen) op(op bytecode.OpCode) {
	g.add(bytecode.Instruction{Op: op})
}

func (g *codeGen) enter() {
	g.depthStack = append(g.depthStack, 0)
}

func (g *codeGen) leave() {
	g.depthStack = g.depthStack[:len(g.depthStack)-1]
}

func (g *codeGen) beginDecls() {
	g.opsStack = append(g.opsStack, &g.decls)
}

func (g *codeGen) beginCode() {
	g.opsStack = append(g.opsStack, &g.code)
}

func (g *codeGen) endDecls() {
	g.opsStack = g.opsStack[:len(g.opsStack)-1]
}

func (g *codeGen) endCode() {
	g.opsStack = g.opsStack[:len(g.opsStack)-1]
}

// autoName builds a fresh label base name from the per-depth counters
// and bumps the innermost one.
func (g *codeGen) autoName() string {
	name := "_pop_"
	for _, cnt := range g.depthStack {
		name += strconv.Itoa(cnt) + "_"
	}
	g.depthStack[len(g.depthStack)-1]++
	return name
}

func (g *codeGen) errorAt(n parser.Node, message string) *errors.PopError {
	pos := n.Range().Start
	return errors.NewCompileError(message, g.filename, pos.Line, pos.Column)
}

// --- Statements ---

func (g *codeGen) stmt(s parser.Stmt) {
	switch s := s.(type) {
	case *parser.LetBinding:
		if s.Value != nil {
			g.expr(s.Value)
		} else {
			g.op(bytecode.OpPushNull)
		}
		g.add(bytecode.Instruction{Op: bytecode.OpBind, Name: s.Name})

	case *parser.LabelDecl:
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: "_pop_label_" + s.Name})

	case *parser.EmptyStmt:
		// nothing to emit

	case *parser.ExprStmt:
		g.expr(s.Expr)
		// PRINT already consumed the value; everything else leaves one
		if !isPrintCall(s.Expr) {
			g.op(bytecode.OpPopTop)
		}

	case *parser.CompoundStmt:
		g.enter()
		for _, inner := range s.Stmts {
			g.stmt(inner)
		}
		g.leave()

	case *parser.BreakStmt:
		if len(g.controlStack) == 0 {
			panic(g.errorAt(s, "break outside of a loop"))
		}
		top := g.controlStack[len(g.controlStack)-1]
		g.add(bytecode.Instruction{Op: bytecode.OpJump, Label: top + "end_"})

	case *parser.ContinueStmt:
		if len(g.controlStack) == 0 {
			panic(g.errorAt(s, "continue outside of a loop"))
		}
		top := g.controlStack[len(g.controlStack)-1]
		g.add(bytecode.Instruction{Op: bytecode.OpJump, Label: top + "begin_"})

	case *parser.GotoStmt:
		g.add(bytecode.Instruction{Op: bytecode.OpJump, Label: "_pop_label_" + s.Label})

	case *parser.ReturnStmt:
		if s.Value != nil {
			g.expr(s.Value)
		} else {
			g.op(bytecode.OpPushNull)
		}
		g.op(bytecode.OpCloseScope)
		g.op(bytecode.OpReturn)

	case *parser.IfStmt:
		name := g.autoName()
		g.expr(s.Predicate)
		g.add(bytecode.Instruction{Op: bytecode.OpJumpFalse, Label: name + "else_"})
		g.stmt(s.Consequence)
		g.add(bytecode.Instruction{Op: bytecode.OpJump, Label: name + "endif_"})
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "else_"})
		if s.Alternative != nil {
			g.stmt(s.Alternative)
		}
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "endif_"})

	case *parser.UnlessStmt:
		name := g.autoName()
		g.expr(s.Predicate)
		g.add(bytecode.Instruction{Op: bytecode.OpJumpTrue, Label: name + "else_"})
		g.stmt(s.Consequence)
		g.add(bytecode.Instruction{Op: bytecode.OpJump, Label: name + "endif_"})
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "else_"})
		if s.Alternative != nil {
			g.stmt(s.Alternative)
		}
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "endif_"})

	case *parser.DoWhileStmt:
		name := g.autoName()
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "begin_"})
		g.pushControl(name)
		g.stmt(s.Body)
		g.popControl()
		g.expr(s.Predicate)
		g.add(bytecode.Instruction{Op: bytecode.OpJumpTrue, Label: name + "begin_"})
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "end_"})

	case *parser.DoUntilStmt:
		name := g.autoName()
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "begin_"})
		g.pushControl(name)
		g.stmt(s.Body)
		g.popControl()
		g.expr(s.Predicate)
		g.add(bytecode.Instruction{Op: bytecode.OpJumpFalse, Label: name + "begin_"})
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "end_"})

	case *parser.WhileStmt:
		name := g.autoName()
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "begin_"})
		g.expr(s.Predicate)
		g.add(bytecode.Instruction{Op: bytecode.OpJumpFalse, Label: name + "end_"})
		g.pushControl(name)
		g.stmt(s.Body)
		g.popControl()
		g.add(bytecode.Instruction{Op: bytecode.OpJump, Label: name + "begin_"})
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "end_"})

	case *parser.UntilStmt:
		name := g.autoName()
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "begin_"})
		g.expr(s.Predicate)
		g.add(bytecode.Instruction{Op: bytecode.OpJumpTrue, Label: name + "end_"})
		g.pushControl(name)
		g.stmt(s.Body)
		g.popControl()
		g.add(bytecode.Instruction{Op: bytecode.OpJump, Label: name + "begin_"})
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "end_"})

	case *parser.ForStmt:
		panic(g.errorAt(s, "for statements are not supported by the code generator"))

	default:
		panic(g.errorAt(s, fmt.Sprintf("cannot generate code for statement %T", s)))
	}
}

func (g *codeGen) pushControl(name string) {
	g.controlStack = append(g.controlStack, name)
}

func (g *codeGen) popControl() {
	g.controlStack = g.controlStack[:len(g.controlStack)-1]
}

// --- Expressions ---

func (g *codeGen) expr(e parser.Expr) {
	switch e := e.(type) {
	case *parser.NullLiteral:
		g.op(bytecode.OpPushNull)

	case *parser.BoolLiteral:
		if e.Value {
			g.op(bytecode.OpPushTrue)
		} else {
			g.op(bytecode.OpPushFalse)
		}

	case *parser.IntLiteral:
		g.add(bytecode.Instruction{Op: bytecode.OpPushInt, Int: e.Value})

	case *parser.FloatLiteral:
		g.add(bytecode.Instruction{Op: bytecode.OpPushFloat, Float: e.Value})

	case *parser.StringLiteral:
		g.add(bytecode.Instruction{Op: bytecode.OpPushString, Str: e.Value})

	case *parser.Identifier:
		g.add(bytecode.Instruction{Op: bytecode.OpPushSymbol, Name: e.Name})

	case *parser.ListLiteral:
		for i := len(e.Elements) - 1; i >= 0; i-- {
			g.expr(e.Elements[i])
		}
		g.add(bytecode.Instruction{Op: bytecode.OpPushList, Len: uint32(len(e.Elements))})

	case *parser.FunctionLiteral:
		g.function(e)

	case *parser.ObjectLiteral:
		panic(g.errorAt(e, "object literals are not supported by the code generator"))

	case *parser.UnaryExpr:
		g.expr(e.Operand)
		g.add(bytecode.Instruction{Op: g.opcodeFor(e, e.Op)})

	case *parser.BinaryExpr:
		// the machine pops the left operand first
		g.expr(e.Right)
		g.expr(e.Left)
		g.add(bytecode.Instruction{Op: g.opcodeFor(e, e.Op)})

	case *parser.SliceExpr:
		g.exprOrNull(e.Start)
		g.exprOrNull(e.Stop)
		g.exprOrNull(e.Step)
		g.op(bytecode.OpPushSlice)

	case *parser.IndexExpr:
		g.expr(e.Object)
		g.expr(e.Index)
		g.op(bytecode.OpIndex)

	case *parser.MemberExpr:
		g.expr(e.Object)
		g.add(bytecode.Instruction{Op: bytecode.OpPushString, Str: e.Member.Name})
		g.op(bytecode.OpMember)

	case *parser.CallExpr:
		g.call(e)

	case *parser.IfExpr:
		name := g.autoName()
		g.expr(e.Predicate)
		g.add(bytecode.Instruction{Op: bytecode.OpJumpFalse, Label: name + "else_"})
		g.expr(e.Consequence)
		g.add(bytecode.Instruction{Op: bytecode.OpJump, Label: name + "endif_"})
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "else_"})
		g.expr(e.Alternative)
		g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name + "endif_"})

	case *parser.ForExpr:
		panic(g.errorAt(e, "for expressions are not supported by the code generator"))

	default:
		panic(g.errorAt(e, fmt.Sprintf("cannot generate code for expression %T", e)))
	}
}

func (g *codeGen) exprOrNull(e parser.Expr) {
	if e != nil {
		g.expr(e)
	} else {
		g.op(bytecode.OpPushNull)
	}
}

func (g *codeGen) opcodeFor(n parser.Node, kind lexer.TokenType) bytecode.OpCode {
	op, ok := bytecode.OpcodeFromToken(kind)
	if !ok {
		panic(g.errorAt(n, fmt.Sprintf("no op-code for operator '%s'", kind)))
	}
	return op
}

// function emits the body into the declaration sequence and leaves a
// PUSH_FUNCTION in the current sequence. Arguments arrive on the
// operand stack in declaration order, so the prologue binds them one by
// one; the epilogue is an implicit "return null" so control cannot run
// off the end of the body.
func (g *codeGen) function(e *parser.FunctionLiteral) {
	name := g.autoName()
	g.enter()
	g.beginDecls()
	g.add(bytecode.Instruction{Op: bytecode.OpLabel, Name: name})
	g.op(bytecode.OpOpenScope)
	for _, arg := range e.Args {
		g.add(bytecode.Instruction{Op: bytecode.OpBind, Name: arg})
	}
	for _, stmt := range e.Body {
		g.stmt(stmt)
	}
	g.op(bytecode.OpPushNull)
	g.op(bytecode.OpCloseScope)
	g.op(bytecode.OpReturn)
	g.endDecls()
	g.leave()
	g.add(bytecode.Instruction{Op: bytecode.OpPushFunction, Label: name})
}

// isPrintCall recognizes the print intrinsic, which consumes its
// arguments without producing a value.
func isPrintCall(e parser.Expr) bool {
	call, ok := e.(*parser.CallExpr)
	if !ok {
		return false
	}
	id, ok := call.Callee.(*parser.Identifier)
	return ok && id.Name == "print"
}

// call pushes arguments in reverse order so the callee sees them in
// declaration order. A call to the bare identifier print is the one
// intrinsic and lowers to PRINT instead of CALL.
func (g *codeGen) call(e *parser.CallExpr) {
	for i := len(e.Args) - 1; i >= 0; i-- {
		g.expr(e.Args[i])
	}
	if id, ok := e.Callee.(*parser.Identifier); ok && id.Name == "print" {
		if len(e.Args) == 0 {
			g.op(bytecode.OpPushNull)
			g.op(bytecode.OpPrint)
			return
		}
		for range e.Args {
			g.op(bytecode.OpPrint)
		}
		return
	}
	g.expr(e.Callee)
	g.add(bytecode.Instruction{Op: bytecode.OpCall, Argc: byte(len(e.Args))})
}
