// internal/parser/parser.go
package parser

import (
	"fmt"
	"strings"

	"github.com/kleopatra999/pop/internal/errors"
	"github.com/kleopatra999/pop/internal/lexer"
)

type binopInfo struct {
	prec      int
	leftAssoc bool
}

var binopPrecedence = map[lexer.TokenType]binopInfo{
	lexer.TokenPostInc: {15, true},
	lexer.TokenPostDec: {15, true},
	lexer.TokenUPlus:   {15, true},
	lexer.TokenUMinus:  {15, true},
	lexer.TokenMember:  {15, true},
	lexer.TokenPreInc:  {14, false},
	lexer.TokenPreDec:  {14, false},
	lexer.TokenLogNot:  {14, false},
	lexer.TokenBitNot:  {14, false},
	lexer.TokenMul:     {12, true},
	lexer.TokenDiv:     {12, true},
	lexer.TokenMod:     {12, true},
	lexer.TokenPow:     {12, true},
	lexer.TokenAdd:     {11, true},
	lexer.TokenSub:     {11, true},
	lexer.TokenLShift:  {10, true},
	lexer.TokenRShift:  {10, true},
	lexer.TokenLT:      {9, true},
	lexer.TokenLE:      {9, true},
	lexer.TokenGT:      {9, true},
	lexer.TokenGE:      {9, true},
	lexer.TokenEQ:      {8, true},
	lexer.TokenNE:      {8, true},
	lexer.TokenBitAnd:  {7, true},
	lexer.TokenBitXor:  {6, true},
	lexer.TokenBitOr:   {5, true},
	lexer.TokenLogAnd:  {4, true},
	lexer.TokenLogOr:   {3, true},

	lexer.TokenAssign:      {2, false},
	lexer.TokenAddAssign:   {2, false},
	lexer.TokenSubAssign:   {2, false},
	lexer.TokenMulAssign:   {2, false},
	lexer.TokenDivAssign:   {2, false},
	lexer.TokenModAssign:   {2, false},
	lexer.TokenLeftAssign:  {2, false},
	lexer.TokenRightAssign: {2, false},
	lexer.TokenAndAssign:   {2, false},
	lexer.TokenXorAssign:   {2, false},
	lexer.TokenOrAssign:    {2, false},
}

// Parser is a recursive-descent statement parser with Pratt
// operator-precedence expression parsing. It holds one token of
// lookahead in tok, advanced through accept and expect.
type Parser struct {
	sc          *lexer.Scanner
	tok         lexer.Token
	filename    string
	sourceLines []string
}

func NewParser(sc *lexer.Scanner) *Parser {
	return &Parser{
		sc:       sc,
		filename: sc.Filename(),
	}
}

func NewParserWithSource(sc *lexer.Scanner, source string) *Parser {
	p := NewParser(sc)
	p.sourceLines = strings.Split(source, "\n")
	return p
}

// Parse scans and parses a whole module and derives parent links.
func Parse(source, filename string) (*Module, error) {
	sc := lexer.NewScannerWithFile(source, filename)
	return NewParserWithSource(sc, source).ParseModule()
}

func (p *Parser) ParseModule() (mod *Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			if perr, ok := r.(*errors.PopError); ok {
				mod, err = nil, perr
			} else {
				panic(r)
			}
		}
	}()

	p.next()
	mod = &Module{Filename: p.filename}
	for p.tok.Kind != lexer.TokenEOF {
		mod.Stmts = append(mod.Stmts, p.parseStmt())
	}
	SetParents(mod)
	return mod, nil
}

// --- Statements ---

func (p *Parser) parseStmt() Stmt {
	switch p.tok.Kind {
	case lexer.TokenLet:
		return p.parseLetBinding()
	case lexer.TokenBreak:
		start := p.tok.Range.Start
		p.next()
		end := p.tok.Range.End
		p.expect(lexer.TokenSemicolon)
		return &BreakStmt{baseNode: p.spanned(start, end)}
	case lexer.TokenContinue:
		start := p.tok.Range.Start
		p.next()
		end := p.tok.Range.End
		p.expect(lexer.TokenSemicolon)
		return &ContinueStmt{baseNode: p.spanned(start, end)}
	case lexer.TokenReturn:
		return p.parseReturnStmt()
	case lexer.TokenGoto:
		return p.parseGotoStmt()
	case lexer.TokenIf:
		return p.parseIfStmt()
	case lexer.TokenUnless:
		return p.parseUnlessStmt()
	case lexer.TokenDo:
		return p.parseDoStmt()
	case lexer.TokenWhile:
		return p.parseWhileStmt()
	case lexer.TokenUntil:
		return p.parseUntilStmt()
	case lexer.TokenFor:
		return p.parseForStmt()
	case lexer.TokenFunction:
		return p.parseFuncDecl()
	case lexer.TokenLBrace:
		return p.parseCompoundStmt()
	case lexer.TokenSemicolon:
		start := p.tok.Range.Start
		end := p.tok.Range.End
		p.next()
		return &EmptyStmt{baseNode: p.spanned(start, end)}
	default:
		start := p.tok.Range.Start
		expr := p.parseExpr()
		// a label declaration is an identifier followed by a colon
		if id, ok := expr.(*Identifier); ok && p.tok.Kind == lexer.TokenColon {
			end := p.tok.Range.End
			p.next()
			return &LabelDecl{baseNode: p.spanned(start, end), Name: id.Name}
		}
		end := p.tok.Range.End
		p.expect(lexer.TokenSemicolon)
		return &ExprStmt{baseNode: p.spanned(start, end), Expr: expr}
	}
}

func (p *Parser) parseLetBinding() Stmt {
	start := p.tok.Range.Start
	p.expect(lexer.TokenLet)
	name := p.tok.Text
	p.expect(lexer.TokenIdentifier)
	p.expect(lexer.TokenAssign)
	value := p.parseExpr()
	end := p.tok.Range.End
	p.expect(lexer.TokenSemicolon)
	return &LetBinding{baseNode: p.spanned(start, end), Name: name, Value: value}
}

func (p *Parser) parseReturnStmt() Stmt {
	start := p.tok.Range.Start
	end := p.tok.Range.End
	p.expect(lexer.TokenReturn)
	var value Expr
	if !p.accept(lexer.TokenSemicolon) {
		value = p.parseExpr()
		end = p.tok.Range.End
		p.expect(lexer.TokenSemicolon)
	}
	return &ReturnStmt{baseNode: p.spanned(start, end), Value: value}
}

func (p *Parser) parseGotoStmt() Stmt {
	start := p.tok.Range.Start
	p.expect(lexer.TokenGoto)
	name := p.tok.Text
	p.expect(lexer.TokenIdentifier)
	end := p.tok.Range.End
	p.expect(lexer.TokenSemicolon)
	return &GotoStmt{baseNode: p.spanned(start, end), Label: name}
}

func (p *Parser) parseCompoundStmt() Stmt {
	start := p.tok.Range.Start
	p.expect(lexer.TokenLBrace)
	var stmts []Stmt
	for p.tok.Kind != lexer.TokenRBrace && p.tok.Kind != lexer.TokenEOF {
		stmts = append(stmts, p.parseStmt())
	}
	end := p.tok.Range.End
	p.expect(lexer.TokenRBrace)
	return &CompoundStmt{baseNode: p.spanned(start, end), Stmts: stmts}
}

func (p *Parser) parseIfStmt() Stmt {
	start := p.tok.Range.Start
	p.expect(lexer.TokenIf)
	p.expect(lexer.TokenLParen)
	predicate := p.parseExpr()
	p.expect(lexer.TokenRParen)
	consequence := p.parseStmt()
	var alternative Stmt
	if p.accept(lexer.TokenElse) {
		alternative = p.parseStmt()
	}
	end := consequence.Range().End
	if alternative != nil {
		end = alternative.Range().End
	}
	return &IfStmt{
		baseNode:    p.spanned(start, end),
		Predicate:   predicate,
		Consequence: consequence,
		Alternative: alternative,
	}
}

func (p *Parser) parseUnlessStmt() Stmt {
	start := p.tok.Range.Start
	p.expect(lexer.TokenUnless)
	p.expect(lexer.TokenLParen)
	predicate := p.parseExpr()
	p.expect(lexer.TokenRParen)
	consequence := p.parseStmt()
	var alternative Stmt
	if p.accept(lexer.TokenElse) {
		alternative = p.parseStmt()
	}
	end := consequence.Range().End
	if alternative != nil {
		end = alternative.Range().End
	}
	return &UnlessStmt{
		baseNode:    p.spanned(start, end),
		Predicate:   predicate,
		Consequence: consequence,
		Alternative: alternative,
	}
}

func (p *Parser) parseDoStmt() Stmt {
	start := p.tok.Range.Start
	p.expect(lexer.TokenDo)
	body := p.parseStmt()
	isWhile := p.accept(lexer.TokenWhile)
	if !isWhile {
		p.expect(lexer.TokenUnless)
	}
	p.expect(lexer.TokenLParen)
	predicate := p.parseExpr()
	p.expect(lexer.TokenRParen)
	end := p.tok.Range.End
	p.expect(lexer.TokenSemicolon)
	if isWhile {
		return &DoWhileStmt{baseNode: p.spanned(start, end), Predicate: predicate, Body: body}
	}
	return &DoUntilStmt{baseNode: p.spanned(start, end), Predicate: predicate, Body: body}
}

func (p *Parser) parseWhileStmt() Stmt {
	start := p.tok.Range.Start
	p.expect(lexer.TokenWhile)
	p.expect(lexer.TokenLParen)
	predicate := p.parseExpr()
	p.expect(lexer.TokenRParen)
	body := p.parseStmt()
	return &WhileStmt{baseNode: p.spanned(start, body.Range().End), Predicate: predicate, Body: body}
}

func (p *Parser) parseUntilStmt() Stmt {
	start := p.tok.Range.Start
	p.expect(lexer.TokenUntil)
	p.expect(lexer.TokenLParen)
	predicate := p.parseExpr()
	p.expect(lexer.TokenRParen)
	body := p.parseStmt()
	return &UntilStmt{baseNode: p.spanned(start, body.Range().End), Predicate: predicate, Body: body}
}

func (p *Parser) parseForStmt() Stmt {
	start := p.tok.Range.Start
	p.expect(lexer.TokenFor)
	p.expect(lexer.TokenLParen)
	idTok := p.tok
	p.expect(lexer.TokenIdentifier)
	iterator := &Identifier{baseNode: baseNode{Rng: idTok.Range}, Name: idTok.Text}
	p.expect(lexer.TokenIn)
	sequence := p.parseExpr()
	p.expect(lexer.TokenRParen)
	body := p.parseStmt()
	return &ForStmt{
		baseNode: p.spanned(start, body.Range().End),
		Iterator: iterator,
		Sequence: sequence,
		Body:     body,
	}
}

// parseFuncDecl desugars "function name(args) { ... }" into
// "let name = function(args) { ... };".
func (p *Parser) parseFuncDecl() Stmt {
	start := p.tok.Range.Start
	p.expect(lexer.TokenFunction)
	name := p.tok.Text
	p.expect(lexer.TokenIdentifier)
	args := p.parseFormalArgs()
	body, end := p.parseFuncBody()
	fn := &FunctionLiteral{baseNode: p.spanned(start, end), Args: args, Body: body}
	return &LetBinding{baseNode: p.spanned(start, end), Name: name, Value: fn}
}

func (p *Parser) parseFormalArgs() []string {
	p.expect(lexer.TokenLParen)
	var args []string
	if p.accept(lexer.TokenRParen) {
		return args
	}
	for {
		name := p.tok.Text
		p.expect(lexer.TokenIdentifier)
		args = append(args, name)
		if !p.accept(lexer.TokenComma) {
			break
		}
	}
	p.expect(lexer.TokenRParen)
	return args
}

func (p *Parser) parseFuncBody() ([]Stmt, lexer.SourcePosition) {
	p.expect(lexer.TokenLBrace)
	var stmts []Stmt
	for p.tok.Kind != lexer.TokenRBrace && p.tok.Kind != lexer.TokenEOF {
		stmts = append(stmts, p.parseStmt())
	}
	end := p.tok.Range.End
	p.expect(lexer.TokenRBrace)
	return stmts, end
}

// --- Expressions ---

func (p *Parser) parseExpr() Expr {
	lhs := p.parseUnaryExpr()
	return p.parseBinopRHS(0, lhs)
}

func (p *Parser) parseBinopRHS(exprPrec int, lhs Expr) Expr {
	for {
		info, ok := binopPrecedence[p.tok.Kind]
		if !ok || info.prec < exprPrec {
			return lhs
		}
		op := p.tok.Kind
		p.next()
		rhs := p.parseUnaryExpr()
		if next, ok := binopPrecedence[p.tok.Kind]; ok && info.prec <= next.prec {
			if next.leftAssoc {
				rhs = p.parseBinopRHS(info.prec+1, rhs)
			} else {
				rhs = p.parseBinopRHS(info.prec, rhs)
			}
		}
		lhs = &BinaryExpr{
			baseNode: p.spanned(lhs.Range().Start, rhs.Range().End),
			Op:       op,
			Left:     lhs,
			Right:    rhs,
		}
	}
}

var unaryPreOps = map[lexer.TokenType]lexer.TokenType{
	lexer.TokenAdd:       lexer.TokenUPlus,
	lexer.TokenSub:       lexer.TokenUMinus,
	lexer.TokenLogNot:    lexer.TokenLogNot,
	lexer.TokenBitNot:    lexer.TokenBitNot,
	lexer.TokenIncrement: lexer.TokenPreInc,
	lexer.TokenDecrement: lexer.TokenPreDec,
}

func isUnaryPostOp(kind lexer.TokenType) bool {
	switch kind {
	case lexer.TokenIncrement, lexer.TokenDecrement, lexer.TokenIf,
		lexer.TokenLBracket, lexer.TokenLParen, lexer.TokenMember:
		return true
	}
	return false
}

func (p *Parser) parseUnaryExpr() Expr {
	start := p.tok.Range.Start
	if op, ok := unaryPreOps[p.tok.Kind]; ok {
		p.next()
		operand := p.parseUnaryExpr()
		return &UnaryExpr{
			baseNode: p.spanned(start, operand.Range().End),
			Op:       op,
			Operand:  operand,
		}
	}

	expr := p.parsePrimaryExpr()
	for isUnaryPostOp(p.tok.Kind) {
		kind := p.tok.Kind
		end := p.tok.Range.End
		p.next()
		switch kind {
		case lexer.TokenIncrement:
			expr = &UnaryExpr{baseNode: p.spanned(start, end), Op: lexer.TokenPostInc, Operand: expr}
		case lexer.TokenDecrement:
			expr = &UnaryExpr{baseNode: p.spanned(start, end), Op: lexer.TokenPostDec, Operand: expr}
		case lexer.TokenIf:
			predicate := p.parseExpr()
			p.expect(lexer.TokenElse)
			alternative := p.parseExpr()
			expr = &IfExpr{
				baseNode:    p.spanned(start, alternative.Range().End),
				Predicate:   predicate,
				Consequence: expr,
				Alternative: alternative,
			}
		case lexer.TokenLBracket:
			expr = p.parseIndexSuffix(start, expr)
		case lexer.TokenLParen:
			var args []Expr
			for p.tok.Kind != lexer.TokenRParen {
				args = append(args, p.parseExpr())
				if !p.accept(lexer.TokenComma) {
					break
				}
			}
			end = p.tok.Range.End
			p.expect(lexer.TokenRParen)
			expr = &CallExpr{baseNode: p.spanned(start, end), Callee: expr, Args: args}
		case lexer.TokenMember:
			idTok := p.tok
			p.expect(lexer.TokenIdentifier)
			member := &Identifier{baseNode: baseNode{Rng: idTok.Range}, Name: idTok.Text}
			expr = &MemberExpr{
				baseNode: p.spanned(expr.Range().Start, idTok.Range.End),
				Object:   expr,
				Member:   member,
			}
		}
	}
	return expr
}

// parseIndexSuffix parses the contents of "[...]" after the opening
// bracket has been consumed: either a plain index or a slice with up to
// two colons.
func (p *Parser) parseIndexSuffix(start lexer.SourcePosition, object Expr) Expr {
	sliceStart := p.tok.Range.Start
	var first Expr
	if p.tok.Kind != lexer.TokenColon && p.tok.Kind != lexer.TokenRBracket {
		first = p.parseExpr()
	}

	var index Expr
	if p.accept(lexer.TokenColon) {
		var stop, step Expr
		if p.tok.Kind != lexer.TokenColon && p.tok.Kind != lexer.TokenRBracket {
			stop = p.parseExpr()
		}
		if p.accept(lexer.TokenColon) && p.tok.Kind != lexer.TokenRBracket {
			step = p.parseExpr()
		}
		index = &SliceExpr{
			baseNode: p.spanned(sliceStart, p.tok.Range.End),
			Start:    first,
			Stop:     stop,
			Step:     step,
		}
	} else {
		if first == nil {
			panic(p.errorAt("unexpected ']', expecting an index expression"))
		}
		index = first
	}

	end := p.tok.Range.End
	p.expect(lexer.TokenRBracket)
	return &IndexExpr{baseNode: p.spanned(start, end), Object: object, Index: index}
}

func (p *Parser) parsePrimaryExpr() Expr {
	tok := p.tok
	switch tok.Kind {
	case lexer.TokenNull:
		p.next()
		return &NullLiteral{baseNode: baseNode{Rng: tok.Range}}
	case lexer.TokenTrue:
		p.next()
		return &BoolLiteral{baseNode: baseNode{Rng: tok.Range}, Value: true}
	case lexer.TokenFalse:
		p.next()
		return &BoolLiteral{baseNode: baseNode{Rng: tok.Range}, Value: false}
	case lexer.TokenIntLiteral:
		p.next()
		value, err := ParseInt(tok.Text)
		if err != nil {
			panic(errors.NewSyntaxError(
				fmt.Sprintf("invalid integer literal '%s'", tok.Text),
				p.filename, tok.Range.Start.Line, tok.Range.Start.Column))
		}
		return &IntLiteral{baseNode: baseNode{Rng: tok.Range}, Value: value}
	case lexer.TokenFloatLiteral:
		p.next()
		value, err := ParseFloat(tok.Text)
		if err != nil {
			panic(errors.NewSyntaxError(
				fmt.Sprintf("invalid float literal '%s'", tok.Text),
				p.filename, tok.Range.Start.Line, tok.Range.Start.Column))
		}
		return &FloatLiteral{baseNode: baseNode{Rng: tok.Range}, Value: value}
	case lexer.TokenStringLiteral:
		p.next()
		return &StringLiteral{baseNode: baseNode{Rng: tok.Range}, Value: tok.Text}
	case lexer.TokenIdentifier:
		p.next()
		return &Identifier{baseNode: baseNode{Rng: tok.Range}, Name: tok.Text}
	case lexer.TokenFunction:
		return p.parseFuncExpr()
	case lexer.TokenLParen:
		p.next()
		expr := p.parseExpr()
		p.expect(lexer.TokenRParen)
		return expr
	case lexer.TokenLBrace:
		return p.parseObjectExpr()
	case lexer.TokenLBracket:
		return p.parseListExpr()
	case lexer.TokenEOF:
		panic(p.errorAt("unexpected end of input, expecting an expression"))
	default:
		panic(p.errorAt(fmt.Sprintf("unexpected '%s', expecting an expression", tok.Kind)))
	}
}

func (p *Parser) parseFuncExpr() Expr {
	start := p.tok.Range.Start
	p.expect(lexer.TokenFunction)
	args := p.parseFormalArgs()
	body, end := p.parseFuncBody()
	return &FunctionLiteral{baseNode: p.spanned(start, end), Args: args, Body: body}
}

func (p *Parser) parseObjectExpr() Expr {
	start := p.tok.Range.Start
	p.expect(lexer.TokenLBrace)
	var members []ObjectMember
	for p.tok.Kind == lexer.TokenIdentifier {
		name := p.tok.Text
		p.next()
		p.expect(lexer.TokenColon)
		value := p.parseExpr()
		members = append(members, ObjectMember{Name: name, Value: value})
		if !p.accept(lexer.TokenComma) {
			break
		}
	}
	end := p.tok.Range.End
	p.expect(lexer.TokenRBrace)
	return &ObjectLiteral{baseNode: p.spanned(start, end), Members: members}
}

func (p *Parser) parseListExpr() Expr {
	start := p.tok.Range.Start
	p.expect(lexer.TokenLBracket)
	var elements []Expr
	for p.tok.Kind != lexer.TokenRBracket && p.tok.Kind != lexer.TokenEOF {
		elements = append(elements, p.parseExpr())
		if !p.accept(lexer.TokenComma) {
			break
		}
	}
	end := p.tok.Range.End
	p.expect(lexer.TokenRBracket)
	return &ListLiteral{baseNode: p.spanned(start, end), Elements: elements}
}

// --- Utility methods ---

// next advances to the following token, skipping comments. Scanner
// failures surface as syntax errors through the panic path that
// ParseModule recovers.
func (p *Parser) next() {
	for {
		tok, err := p.sc.NextToken()
		if err != nil {
			if perr, ok := err.(*errors.PopError); ok {
				panic(perr)
			}
			panic(errors.NewSyntaxError(err.Error(), p.filename, 0, 0))
		}
		if tok.IsComment() {
			continue
		}
		p.tok = tok
		return
	}
}

// accept advances past the current token if it has the given kind.
func (p *Parser) accept(kind lexer.TokenType) bool {
	if p.tok.Kind == kind {
		p.next()
		return true
	}
	return false
}

// expect is accept that fails with a syntax error, reporting the
// observed and expected kinds at the current position.
func (p *Parser) expect(kind lexer.TokenType) lexer.Token {
	if p.tok.Kind == kind {
		tok := p.tok
		p.next()
		return tok
	}
	panic(p.errorAt(fmt.Sprintf("unexpected '%s', expecting '%s'", p.tok.Kind, kind)))
}

func (p *Parser) errorAt(message string) *errors.PopError {
	pos := p.tok.Range.Start
	err := errors.NewSyntaxError(message, p.filename, pos.Line, pos.Column)
	if p.sourceLines != nil && pos.Line > 0 && pos.Line <= len(p.sourceLines) {
		err = err.WithSource(p.sourceLines[pos.Line-1])
	}
	return err
}

func (p *Parser) spanned(start, end lexer.SourcePosition) baseNode {
	return baseNode{Rng: lexer.SourceRange{Start: start, End: end}}
}
