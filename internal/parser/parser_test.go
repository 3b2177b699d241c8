package parser

import (
	"fmt"
	"testing"

	"github.com/kleopatra999/pop/internal/errors"
	"github.com/kleopatra999/pop/internal/lexer"
)

// Test helper to parse a string and check for errors
func parseString(t *testing.T, input string) *Module {
	t.Helper()
	mod, err := Parse(input, "<test>")
	if err != nil {
		t.Fatalf("parse %q: %v", input, err)
	}
	return mod
}

func parseExprString(t *testing.T, input string) Expr {
	t.Helper()
	mod := parseString(t, input)
	if len(mod.Stmts) != 1 {
		t.Fatalf("%q: got %d statements, want 1", input, len(mod.Stmts))
	}
	stmt, ok := mod.Stmts[0].(*ExprStmt)
	if !ok {
		t.Fatalf("%q: got %T, want *ExprStmt", input, mod.Stmts[0])
	}
	return stmt.Expr
}

func assertParseError(t *testing.T, input string, description string) *errors.PopError {
	t.Helper()
	_, err := Parse(input, "<test>")
	if err == nil {
		t.Fatalf("%s: expected parsing to fail", description)
	}
	perr, ok := err.(*errors.PopError)
	if !ok {
		t.Fatalf("%s: error is %T, want *errors.PopError", description, err)
	}
	if perr.Type != errors.SyntaxError {
		t.Fatalf("%s: error type %s, want SyntaxError", description, perr.Type)
	}
	return perr
}

// ===== Statement tests =====

func TestStatementKinds(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"let", "let x = 5;", &LetBinding{}},
		{"empty", ";", &EmptyStmt{}},
		{"expr", "5;", &ExprStmt{}},
		{"compound", "{ 1; 2; }", &CompoundStmt{}},
		{"return", "return;", &ReturnStmt{}},
		{"return value", "return 5;", &ReturnStmt{}},
		{"goto", "goto top;", &GotoStmt{}},
		{"label", "top:", &LabelDecl{}},
		{"if", "if (1) ;", &IfStmt{}},
		{"if else", "if (1) ; else ;", &IfStmt{}},
		{"unless", "unless (1) ;", &UnlessStmt{}},
		{"do while", "do ; while (1);", &DoWhileStmt{}},
		{"do unless", "do ; unless (1);", &DoUntilStmt{}},
		{"while", "while (1) ;", &WhileStmt{}},
		{"until", "until (1) ;", &UntilStmt{}},
		{"for in", "for (x in xs) ;", &ForStmt{}},
		{"function decl", "function f(a) { return a; }", &LetBinding{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			mod := parseString(t, test.input)
			if len(mod.Stmts) != 1 {
				t.Fatalf("got %d statements, want 1", len(mod.Stmts))
			}
			// break/continue are covered in the loop-body test below;
			// the parser accepts them anywhere and the code generator
			// rejects them outside a loop
			if got, want := typeName(mod.Stmts[0]), typeName(test.want); got != want {
				t.Errorf("got %s, want %s", got, want)
			}
		})
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

func TestLoopBodyStatements(t *testing.T) {
	mod := parseString(t, "while (1) { break; continue; }")
	loop := mod.Stmts[0].(*WhileStmt)
	body := loop.Body.(*CompoundStmt)
	if len(body.Stmts) != 2 {
		t.Fatalf("got %d body statements, want 2", len(body.Stmts))
	}
	if _, ok := body.Stmts[0].(*BreakStmt); !ok {
		t.Errorf("first body statement is %T, want *BreakStmt", body.Stmts[0])
	}
	if _, ok := body.Stmts[1].(*ContinueStmt); !ok {
		t.Errorf("second body statement is %T, want *ContinueStmt", body.Stmts[1])
	}
}

func TestFunctionDeclSugar(t *testing.T) {
	mod := parseString(t, "function add(a, b) { return a + b; }")
	let, ok := mod.Stmts[0].(*LetBinding)
	if !ok {
		t.Fatalf("got %T, want *LetBinding", mod.Stmts[0])
	}
	if let.Name != "add" {
		t.Errorf("bound name %q, want add", let.Name)
	}
	fn, ok := let.Value.(*FunctionLiteral)
	if !ok {
		t.Fatalf("bound value is %T, want *FunctionLiteral", let.Value)
	}
	if len(fn.Args) != 2 || fn.Args[0] != "a" || fn.Args[1] != "b" {
		t.Errorf("args %v, want [a b]", fn.Args)
	}
	if len(fn.Body) != 1 {
		t.Errorf("got %d body statements, want 1", len(fn.Body))
	}
}

// ===== Expression precedence and associativity =====

func binary(t *testing.T, e Expr) *BinaryExpr {
	t.Helper()
	b, ok := e.(*BinaryExpr)
	if !ok {
		t.Fatalf("got %T, want *BinaryExpr", e)
	}
	return b
}

func TestPrecedenceMulOverAdd(t *testing.T) {
	// 1 + 2 * 3 parses as 1 + (2 * 3)
	b := binary(t, parseExprString(t, "1 + 2 * 3;"))
	if b.Op != lexer.TokenAdd {
		t.Fatalf("root op %s, want +", b.Op)
	}
	rhs := binary(t, b.Right)
	if rhs.Op != lexer.TokenMul {
		t.Errorf("right op %s, want *", rhs.Op)
	}
}

func TestPrecedenceLeftAssociative(t *testing.T) {
	// 1 - 2 - 3 parses as (1 - 2) - 3
	b := binary(t, parseExprString(t, "1 - 2 - 3;"))
	lhs := binary(t, b.Left)
	if lhs.Op != lexer.TokenSub {
		t.Errorf("left op %s, want -", lhs.Op)
	}
	if _, ok := b.Right.(*IntLiteral); !ok {
		t.Errorf("right is %T, want *IntLiteral", b.Right)
	}
}

func TestAssignmentRightAssociative(t *testing.T) {
	// a = b = c parses as a = (b = c)
	b := binary(t, parseExprString(t, "a = b = c;"))
	if b.Op != lexer.TokenAssign {
		t.Fatalf("root op %s, want =", b.Op)
	}
	if _, ok := b.Left.(*Identifier); !ok {
		t.Errorf("left is %T, want *Identifier", b.Left)
	}
	rhs := binary(t, b.Right)
	if rhs.Op != lexer.TokenAssign {
		t.Errorf("right op %s, want =", rhs.Op)
	}
}

func TestComparisonBindsLooserThanShift(t *testing.T) {
	// 1 << 2 < 3 parses as (1 << 2) < 3
	b := binary(t, parseExprString(t, "1 << 2 < 3;"))
	if b.Op != lexer.TokenLT {
		t.Fatalf("root op %s, want <", b.Op)
	}
	lhs := binary(t, b.Left)
	if lhs.Op != lexer.TokenLShift {
		t.Errorf("left op %s, want <<", lhs.Op)
	}
}

func TestLogicalOrBindsLoosest(t *testing.T) {
	// a && b || c & d parses as (a && b) || (c & d)
	b := binary(t, parseExprString(t, "a && b || c & d;"))
	if b.Op != lexer.TokenLogOr {
		t.Fatalf("root op %s, want ||", b.Op)
	}
	if binary(t, b.Left).Op != lexer.TokenLogAnd {
		t.Errorf("left is not &&")
	}
	if binary(t, b.Right).Op != lexer.TokenBitAnd {
		t.Errorf("right is not &")
	}
}

func TestUnaryOperators(t *testing.T) {
	tests := []struct {
		input string
		op    lexer.TokenType
	}{
		{"+x;", lexer.TokenUPlus},
		{"-x;", lexer.TokenUMinus},
		{"!x;", lexer.TokenLogNot},
		{"~x;", lexer.TokenBitNot},
		{"++x;", lexer.TokenPreInc},
		{"--x;", lexer.TokenPreDec},
		{"x++;", lexer.TokenPostInc},
		{"x--;", lexer.TokenPostDec},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			u, ok := parseExprString(t, test.input).(*UnaryExpr)
			if !ok {
				t.Fatalf("not a unary expression")
			}
			if u.Op != test.op {
				t.Errorf("op %s, want %s", u.Op, test.op)
			}
		})
	}
}

func TestTernaryExpr(t *testing.T) {
	// a if c else b
	e, ok := parseExprString(t, "a if c else b;").(*IfExpr)
	if !ok {
		t.Fatalf("not an if expression")
	}
	if _, ok := e.Predicate.(*Identifier); !ok {
		t.Errorf("predicate is %T", e.Predicate)
	}
	if e.Consequence.(*Identifier).Name != "a" {
		t.Errorf("consequence is not a")
	}
	if e.Alternative.(*Identifier).Name != "b" {
		t.Errorf("alternative is not b")
	}
}

func TestPostfixChains(t *testing.T) {
	// a.b.c is ((a.b).c)
	m, ok := parseExprString(t, "a.b.c;").(*MemberExpr)
	if !ok {
		t.Fatalf("not a member expression")
	}
	if m.Member.Name != "c" {
		t.Errorf("outer member %q, want c", m.Member.Name)
	}
	inner, ok := m.Object.(*MemberExpr)
	if !ok {
		t.Fatalf("inner is %T, want *MemberExpr", m.Object)
	}
	if inner.Member.Name != "b" {
		t.Errorf("inner member %q, want b", inner.Member.Name)
	}
}

func TestCallExpr(t *testing.T) {
	c, ok := parseExprString(t, "f(1, x, \"s\");").(*CallExpr)
	if !ok {
		t.Fatalf("not a call expression")
	}
	if len(c.Args) != 3 {
		t.Errorf("got %d args, want 3", len(c.Args))
	}
}

func TestIndexAndSlice(t *testing.T) {
	ix, ok := parseExprString(t, "a[1];").(*IndexExpr)
	if !ok {
		t.Fatalf("not an index expression")
	}
	if _, ok := ix.Index.(*IntLiteral); !ok {
		t.Errorf("index is %T, want *IntLiteral", ix.Index)
	}

	ix = parseExprString(t, "a[1:2:3];").(*IndexExpr)
	sl, ok := ix.Index.(*SliceExpr)
	if !ok {
		t.Fatalf("index is %T, want *SliceExpr", ix.Index)
	}
	if sl.Start == nil || sl.Stop == nil || sl.Step == nil {
		t.Errorf("slice components missing: %+v", sl)
	}

	ix = parseExprString(t, "a[:2];").(*IndexExpr)
	sl = ix.Index.(*SliceExpr)
	if sl.Start != nil || sl.Stop == nil {
		t.Errorf("open slice components wrong: %+v", sl)
	}
}

func TestLiteralExpressions(t *testing.T) {
	if _, ok := parseExprString(t, "null;").(*NullLiteral); !ok {
		t.Error("null is not a NullLiteral")
	}
	if b := parseExprString(t, "true;").(*BoolLiteral); !b.Value {
		t.Error("true is not true")
	}
	if l := parseExprString(t, "[1, 2, 3];").(*ListLiteral); len(l.Elements) != 3 {
		t.Error("list literal element count wrong")
	}
	// at statement position a brace opens a compound statement, so
	// object literals only appear in expression positions
	let := parseString(t, "let o = { a: 1, b: 2 };").Stmts[0].(*LetBinding)
	obj := let.Value.(*ObjectLiteral)
	if len(obj.Members) != 2 || obj.Members[0].Name != "a" {
		t.Errorf("object literal members wrong: %+v", obj.Members)
	}
	fnLet := parseString(t, "let f = function(x) { return x; };").Stmts[0].(*LetBinding)
	fn := fnLet.Value.(*FunctionLiteral)
	if len(fn.Args) != 1 {
		t.Error("function literal args wrong")
	}
}

func TestIntLiteralRadixes(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
	}{
		{"42;", 42},
		{"0x2A;", 42},
		{"0b101010;", 42},
		{"0o52;", 42},
		{"052;", 42},
		{"0d42;", 42},
		{"0;", 0},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			i := parseExprString(t, test.input).(*IntLiteral)
			if i.Value != test.want {
				t.Errorf("value %d, want %d", i.Value, test.want)
			}
		})
	}
}

func TestFloatLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"3.14;", 3.14},
		{".5;", 0.5},
		{"0.5;", 0.5},
		{"0x1.8;", 1.5},
		{"0b1.1;", 1.5},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			f := parseExprString(t, test.input).(*FloatLiteral)
			if f.Value != test.want {
				t.Errorf("value %g, want %g", f.Value, test.want)
			}
		})
	}
}

// ===== Parent links =====

func TestParentLinks(t *testing.T) {
	mod := parseString(t, "let x = 1 + 2; if (x) { print(x); }")

	if mod.Parent() != nil {
		t.Error("module root has a parent")
	}

	let := mod.Stmts[0].(*LetBinding)
	if let.Parent() != Node(mod) {
		t.Error("let statement's parent is not the module")
	}
	sum := let.Value.(*BinaryExpr)
	if sum.Parent() != Node(let) {
		t.Error("binary expression's parent is not the let binding")
	}
	if sum.Left.Parent() != Node(sum) {
		t.Error("left operand's parent is not the binary expression")
	}

	ifStmt := mod.Stmts[1].(*IfStmt)
	body := ifStmt.Consequence.(*CompoundStmt)
	if body.Parent() != Node(ifStmt) {
		t.Error("if body's parent is not the if statement")
	}
	call := body.Stmts[0].(*ExprStmt).Expr.(*CallExpr)
	if call.Args[0].Parent() != Node(call) {
		t.Error("call argument's parent is not the call")
	}
}

// ===== Errors =====

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"truncated call", "print("},
		{"let without name", "let = 5;"},
		{"let without init", "let x;"},
		{"missing semicolon", "1 + 2"},
		{"unterminated string", `let s = "abc`},
		{"unterminated comment", "/* forever"},
		{"two decimal points", "1.2.3;"},
		{"stray bracket", "];"},
		{"do without while or unless", "do ; until (1);"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assertParseError(t, test.input, test.name)
		})
	}
}

func TestErrorAtEOFPosition(t *testing.T) {
	perr := assertParseError(t, "print(", "truncated call")
	if perr.Location.Line != 1 {
		t.Errorf("error line %d, want 1", perr.Location.Line)
	}
	if perr.Location.Column != 6 {
		t.Errorf("error column %d, want 6", perr.Location.Column)
	}
}
