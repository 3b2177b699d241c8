package parser

import "github.com/kleopatra999/pop/internal/lexer"

// Node is implemented by every AST node. Edges point from parent to
// child; the parent links are derived by SetParents after parsing and
// are never authoritative.
type Node interface {
	Range() lexer.SourceRange
	Parent() Node
	setParent(Node)
}

type baseNode struct {
	Rng    lexer.SourceRange
	parent Node
}

func (n *baseNode) Range() lexer.SourceRange { return n.Rng }
func (n *baseNode) Parent() Node             { return n.parent }
func (n *baseNode) setParent(p Node)         { n.parent = p }

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Null literal: null
type NullLiteral struct {
	baseNode
}

// Bool literal: true or false
type BoolLiteral struct {
	baseNode
	Value bool
}

// Int literal: 42, 0x2A, 0b101010, 0o52, 052
type IntLiteral struct {
	baseNode
	Value uint64
}

// Float literal: 4.2
type FloatLiteral struct {
	baseNode
	Value float64
}

// String literal with escapes already decoded
type StringLiteral struct {
	baseNode
	Value string
}

// Identifier: x
type Identifier struct {
	baseNode
	Name string
}

// List literal: [1, 2, 3]
type ListLiteral struct {
	baseNode
	Elements []Expr
}

// Function literal: function(a, b) { ... }
type FunctionLiteral struct {
	baseNode
	Args []string
	Body []Stmt
}

// ObjectMember is one name: value pair of an object literal.
type ObjectMember struct {
	Name  string
	Value Expr
}

// Object literal: { name: expr, ... }
type ObjectLiteral struct {
	baseNode
	Members []ObjectMember
}

// Unary expression; Op is one of the synthetic prefix/postfix kinds or
// a prefix operator token.
type UnaryExpr struct {
	baseNode
	Op      lexer.TokenType
	Operand Expr
}

// Binary expression: a + b
type BinaryExpr struct {
	baseNode
	Op    lexer.TokenType
	Left  Expr
	Right Expr
}

// Slice expression: start:stop:step inside an index
type SliceExpr struct {
	baseNode
	Start Expr
	Stop  Expr
	Step  Expr
}

// Index expression: object[index]
type IndexExpr struct {
	baseNode
	Object Expr
	Index  Expr
}

// Member access: object.member
type MemberExpr struct {
	baseNode
	Object Expr
	Member *Identifier
}

// Call expression: callee(args...)
type CallExpr struct {
	baseNode
	Callee Expr
	Args   []Expr
}

// Ternary expression: consequence if predicate else alternative
type IfExpr struct {
	baseNode
	Predicate   Expr
	Consequence Expr
	Alternative Expr
}

// For expression: value for iterator in sequence
type ForExpr struct {
	baseNode
	Value    Expr
	Iterator *Identifier
	Sequence Expr
}

func (*NullLiteral) exprNode()     {}
func (*BoolLiteral) exprNode()     {}
func (*IntLiteral) exprNode()      {}
func (*FloatLiteral) exprNode()    {}
func (*StringLiteral) exprNode()   {}
func (*Identifier) exprNode()      {}
func (*ListLiteral) exprNode()     {}
func (*FunctionLiteral) exprNode() {}
func (*ObjectLiteral) exprNode()   {}
func (*UnaryExpr) exprNode()       {}
func (*BinaryExpr) exprNode()      {}
func (*SliceExpr) exprNode()       {}
func (*IndexExpr) exprNode()       {}
func (*MemberExpr) exprNode()      {}
func (*CallExpr) exprNode()        {}
func (*IfExpr) exprNode()          {}
func (*ForExpr) exprNode()         {}
