// Package parser implements a recursive-descent parser over internal/token,
// producing the internal/ast syntax tree consumed by the resolver (§6.1).
//
// Grounded on the teacher's internal/parser package shape (a Parser struct
// holding tokens/current, one method per grammar production) generalized
// from Sentra's expression-oriented grammar to Kano's statement/declaration
// grammar, using original_source/Parser.cpp to resolve what spec.md leaves
// implicit (operator precedence, statement terminators).
package parser

import (
	"strconv"

	"kano/internal/ast"
	"kano/internal/diagnostics"
	"kano/internal/token"
)

type Parser struct {
	tokens  []token.Token
	current int
	diags   *diagnostics.Bag
}

func NewParser(tokens []token.Token, diags *diagnostics.Bag) *Parser {
	return &Parser{tokens: tokens, diags: diags}
}

// Parse consumes the whole token stream and returns the global scope node.
// Parse errors are collected (spec §7); the parser resynchronizes at the
// next top-level declaration keyword so later errors can still surface.
func (p *Parser) Parse() *ast.GlobalScope {
	scope := &ast.GlobalScope{}
	for !p.isAtEnd() {
		decl := p.declaration()
		if decl != nil {
			scope.Declarations = append(scope.Declarations, decl)
		}
	}
	return scope
}

func (p *Parser) declaration() *ast.Declaration {
	switch {
	case p.check(token.Proc):
		return p.procDeclaration()
	case p.check(token.Struct):
		return p.structDeclaration()
	case p.check(token.Var):
		d := p.varDeclaration()
		p.expect(token.Semicolon, "expected ';' after variable declaration")
		return d
	default:
		tok := p.peek()
		p.diags.Syntax(tok.Row, tok.Col, "expected a declaration, found %q", tok.Lexeme)
		p.synchronize()
		return nil
	}
}

func (p *Parser) loc(start token.Token) ast.Location {
	end := p.previous()
	return ast.Location{StartRow: start.Row, StartCol: start.Col, FinishRow: end.Row, FinishCol: end.Col}
}

func (p *Parser) procDeclaration() *ast.Declaration {
	start := p.advance() // 'proc'
	name := p.expectIdent("expected procedure name")

	p.expect(token.LParen, "expected '(' after procedure name")
	var params []*ast.ProcedureParameter
	variadic := false
	for !p.check(token.RParen) && !p.isAtEnd() {
		if p.match(token.Dot) { // "..." written as three dots, scanned as three Dot tokens
			p.match(token.Dot)
			p.match(token.Dot)
			variadic = true
			break
		}
		pname := p.expectIdent("expected parameter name")
		p.expect(token.Colon, "expected ':' after parameter name")
		ptype := p.parseType()
		params = append(params, &ast.ProcedureParameter{Name: pname, Type: ptype})
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "expected ')' after parameter list")

	var ret ast.Node
	if p.match(token.Colon) {
		ret = p.parseType()
	}

	body := p.block()

	proc := &ast.Procedure{Params: params, Variadic: variadic, Return: ret, Body: body}
	proc.Loc = p.loc(start)
	decl := &ast.Declaration{Name: name, Init: proc, Flags: ast.FlagConstant}
	decl.Loc = p.loc(start)
	return decl
}

func (p *Parser) structDeclaration() *ast.Declaration {
	start := p.advance() // 'struct'
	name := p.expectIdent("expected struct name")
	p.expect(token.LBrace, "expected '{' after struct name")

	var fields []*ast.ProcedureParameter
	for !p.check(token.RBrace) && !p.isAtEnd() {
		fname := p.expectIdent("expected field name")
		p.expect(token.Colon, "expected ':' after field name")
		ftype := p.parseType()
		fields = append(fields, &ast.ProcedureParameter{Name: fname, Type: ftype})
		p.expect(token.Semicolon, "expected ';' after struct field")
	}
	p.expect(token.RBrace, "expected '}' to close struct body")

	s := &ast.Struct{Name: name, Fields: fields}
	s.Loc = p.loc(start)
	decl := &ast.Declaration{Name: name, Init: s, Flags: ast.FlagConstant | ast.FlagType}
	decl.Loc = p.loc(start)
	return decl
}

func (p *Parser) varDeclaration() *ast.Declaration {
	start := p.advance() // 'var'
	name := p.expectIdent("expected variable name")

	var typ ast.Node
	if p.match(token.Colon) {
		typ = p.parseType()
	}
	var init ast.Node
	if p.match(token.Assign) {
		init = p.expression()
	}
	decl := &ast.Declaration{Name: name, Type: typ, Init: init}
	decl.Loc = p.loc(start)
	return decl
}

// parseType parses a type annotation: primitive/struct name, *T, [N]T, []T.
func (p *Parser) parseType() ast.Node {
	start := p.peek()
	if p.match(token.Star) {
		base := p.parseType()
		n := &ast.TypeNode{Pointer: base}
		n.Loc = p.loc(start)
		return n
	}
	if p.match(token.LBracket) {
		if p.match(token.RBracket) {
			elem := p.parseType()
			n := &ast.TypeNode{ArrayOf: elem}
			n.Loc = p.loc(start)
			return n
		}
		countTok := p.expect(token.Int, "expected array length")
		p.expect(token.RBracket, "expected ']' after array length")
		elem := p.parseType()
		n := &ast.TypeNode{StaticOf: elem, Count: parseIntLiteral(countTok.Lexeme)}
		n.Loc = p.loc(start)
		return n
	}
	name := p.expectIdent("expected a type name")
	n := &ast.TypeNode{Name: name}
	n.Loc = p.loc(start)
	return n
}

// --- statements ---

func (p *Parser) block() *ast.Block {
	start := p.expect(token.LBrace, "expected '{' to start a block")
	var stmts []ast.Node
	for !p.check(token.RBrace) && !p.isAtEnd() {
		stmts = append(stmts, p.statement())
	}
	p.expect(token.RBrace, "expected '}' to close block")
	b := &ast.Block{Statements: stmts}
	b.Loc = p.loc(start)
	return b
}

// controlBody parses an if/while/do/for body: a braced block, or a single
// statement when the next token isn't '{'.
func (p *Parser) controlBody() ast.Node {
	if p.check(token.LBrace) {
		return p.block()
	}
	return p.statement()
}

func (p *Parser) statement() ast.Node {
	start := p.peek()
	switch {
	case p.check(token.LBrace):
		return p.block()
	case p.check(token.Var):
		d := p.varDeclaration()
		p.expect(token.Semicolon, "expected ';' after variable declaration")
		return d
	case p.check(token.If):
		return p.ifStatement()
	case p.check(token.While):
		return p.whileStatement()
	case p.check(token.Do):
		return p.doStatement()
	case p.check(token.For):
		return p.forStatement()
	case p.check(token.Return):
		p.advance()
		var expr ast.Node
		if !p.check(token.Semicolon) {
			expr = p.expression()
		}
		p.expect(token.Semicolon, "expected ';' after return statement")
		r := &ast.Return{Expr: expr}
		r.Loc = p.loc(start)
		return r
	default:
		expr := p.expression()
		if isAssignOp(p.peek().Type) {
			op := p.advance()
			rhs := p.expression()
			p.expect(token.Semicolon, "expected ';' after assignment")
			a := &ast.Assignment{Op: string(op.Type), Dst: expr, Src: rhs}
			a.Loc = p.loc(start)
			return a
		}
		p.expect(token.Semicolon, "expected ';' after expression statement")
		e := &ast.Expression{Child: expr}
		e.Loc = p.loc(start)
		return e
	}
}

func isAssignOp(t token.Type) bool {
	switch t {
	case token.Assign, token.PlusEq, token.MinusEq, token.StarEq, token.SlashEq, token.PercentEq,
		token.ShlEq, token.ShrEq, token.AmpEq, token.CaretEq, token.PipeEq:
		return true
	default:
		return false
	}
}

func (p *Parser) ifStatement() ast.Node {
	start := p.advance() // 'if'
	p.expect(token.LParen, "expected '(' after 'if'")
	cond := p.expression()
	p.expect(token.RParen, "expected ')' after condition")
	then := p.controlBody()
	var els ast.Node
	if p.match(token.Else) {
		if p.check(token.If) {
			els = p.ifStatement()
		} else {
			els = p.controlBody()
		}
	}
	n := &ast.If{Cond: cond, Then: then, Else: els}
	n.Loc = p.loc(start)
	return n
}

func (p *Parser) whileStatement() ast.Node {
	start := p.advance() // 'while'
	p.expect(token.LParen, "expected '(' after 'while'")
	cond := p.expression()
	p.expect(token.RParen, "expected ')' after condition")
	body := p.controlBody()
	n := &ast.While{Cond: cond, Body: body}
	n.Loc = p.loc(start)
	return n
}

func (p *Parser) doStatement() ast.Node {
	start := p.advance() // 'do'
	body := p.controlBody()
	p.expect(token.While, "expected 'while' after do-block")
	p.expect(token.LParen, "expected '(' after 'while'")
	cond := p.expression()
	p.expect(token.RParen, "expected ')' after condition")
	p.expect(token.Semicolon, "expected ';' after do-while statement")
	n := &ast.Do{Body: body, Cond: cond}
	n.Loc = p.loc(start)
	return n
}

func (p *Parser) forStatement() ast.Node {
	start := p.advance() // 'for'
	p.expect(token.LParen, "expected '(' after 'for'")

	var init ast.Node
	if p.check(token.Var) {
		init = p.varDeclaration()
	} else if !p.check(token.Semicolon) {
		lhs := p.expression()
		if isAssignOp(p.peek().Type) {
			op := p.advance()
			rhs := p.expression()
			init = &ast.Assignment{Op: string(op.Type), Dst: lhs, Src: rhs}
		} else {
			init = &ast.Expression{Child: lhs}
		}
	}
	p.expect(token.Semicolon, "expected ';' after for-loop initializer")

	var cond ast.Node
	if !p.check(token.Semicolon) {
		cond = p.expression()
	}
	p.expect(token.Semicolon, "expected ';' after for-loop condition")

	var post ast.Node
	if !p.check(token.RParen) {
		lhs := p.expression()
		if isAssignOp(p.peek().Type) {
			op := p.advance()
			rhs := p.expression()
			post = &ast.Assignment{Op: string(op.Type), Dst: lhs, Src: rhs}
		} else {
			post = &ast.Expression{Child: lhs}
		}
	}
	p.expect(token.RParen, "expected ')' after for-loop clauses")
	body := p.controlBody()

	n := &ast.For{Init: init, Cond: cond, Post: post, Body: body}
	n.Loc = p.loc(start)
	return n
}

// --- expressions (precedence climbing) ---

func (p *Parser) expression() ast.Node { return p.castExpr() }

func (p *Parser) castExpr() ast.Node {
	expr := p.equality()
	for p.match(token.As) {
		typ := p.parseType()
		expr = &ast.TypeCast{Expr: expr, Type: typ}
	}
	return expr
}

func (p *Parser) equality() ast.Node {
	expr := p.relational()
	for p.checkAny(token.Eq, token.NotEq) {
		op := p.advance()
		rhs := p.relational()
		expr = &ast.BinaryOp{Op: string(op.Type), Left: expr, Right: rhs}
	}
	return expr
}

func (p *Parser) relational() ast.Node {
	expr := p.bitwiseOr()
	for p.checkAny(token.Lt, token.Gt, token.Le, token.Ge) {
		op := p.advance()
		rhs := p.bitwiseOr()
		expr = &ast.BinaryOp{Op: string(op.Type), Left: expr, Right: rhs}
	}
	return expr
}

func (p *Parser) bitwiseOr() ast.Node {
	expr := p.bitwiseXor()
	for p.match(token.Pipe) {
		rhs := p.bitwiseXor()
		expr = &ast.BinaryOp{Op: "|", Left: expr, Right: rhs}
	}
	return expr
}

func (p *Parser) bitwiseXor() ast.Node {
	expr := p.bitwiseAnd()
	for p.match(token.Caret) {
		rhs := p.bitwiseAnd()
		expr = &ast.BinaryOp{Op: "^", Left: expr, Right: rhs}
	}
	return expr
}

func (p *Parser) bitwiseAnd() ast.Node {
	expr := p.shift()
	for p.match(token.Amp) {
		rhs := p.shift()
		expr = &ast.BinaryOp{Op: "&", Left: expr, Right: rhs}
	}
	return expr
}

func (p *Parser) shift() ast.Node {
	expr := p.additive()
	for p.checkAny(token.Shl, token.Shr) {
		op := p.advance()
		rhs := p.additive()
		expr = &ast.BinaryOp{Op: string(op.Type), Left: expr, Right: rhs}
	}
	return expr
}

func (p *Parser) additive() ast.Node {
	expr := p.multiplicative()
	for p.checkAny(token.Plus, token.Minus) {
		op := p.advance()
		rhs := p.multiplicative()
		expr = &ast.BinaryOp{Op: string(op.Type), Left: expr, Right: rhs}
	}
	return expr
}

func (p *Parser) multiplicative() ast.Node {
	expr := p.unary()
	for p.checkAny(token.Star, token.Slash, token.Percent) {
		op := p.advance()
		rhs := p.unary()
		expr = &ast.BinaryOp{Op: string(op.Type), Left: expr, Right: rhs}
	}
	return expr
}

func (p *Parser) unary() ast.Node {
	if p.checkAny(token.Plus, token.Minus, token.Not, token.Tilde, token.Amp, token.Star) {
		op := p.advance()
		child := p.unary()
		return &ast.UnaryOp{Op: string(op.Type), Child: child}
	}
	return p.postfix()
}

func (p *Parser) postfix() ast.Node {
	expr := p.primary()
	for {
		switch {
		case p.match(token.LParen):
			var args []ast.Node
			for !p.check(token.RParen) && !p.isAtEnd() {
				args = append(args, p.expression())
				if !p.match(token.Comma) {
					break
				}
			}
			p.expect(token.RParen, "expected ')' after call arguments")
			expr = &ast.ProcedureCall{Callee: expr, Args: args}
		case p.match(token.LBracket):
			idx := p.expression()
			p.expect(token.RBracket, "expected ']' after subscript index")
			expr = &ast.Subscript{Base: expr, Index: idx}
		case p.match(token.Dot):
			name := p.expectIdent("expected member name after '.'")
			expr = &ast.Member{Base: expr, Name: name}
		default:
			return expr
		}
	}
}

func (p *Parser) primary() ast.Node {
	start := p.peek()
	switch {
	case p.match(token.Int):
		n := &ast.Literal{Kind: ast.IntegerLiteral, IntValue: parseIntLiteral(p.previous().Lexeme)}
		n.Loc = p.loc(start)
		return n
	case p.match(token.Float):
		n := &ast.Literal{Kind: ast.RealLiteral, RealValue: parseFloatLiteral(p.previous().Lexeme)}
		n.Loc = p.loc(start)
		return n
	case p.match(token.String):
		n := &ast.Literal{Kind: ast.StringLiteral, StrValue: p.previous().Lexeme}
		n.Loc = p.loc(start)
		return n
	case p.match(token.True):
		n := &ast.Literal{Kind: ast.BoolLiteral, BoolValue: true}
		n.Loc = p.loc(start)
		return n
	case p.match(token.False):
		n := &ast.Literal{Kind: ast.BoolLiteral, BoolValue: false}
		n.Loc = p.loc(start)
		return n
	case p.match(token.Null):
		n := &ast.Literal{Kind: ast.NullPointerLiteral}
		n.Loc = p.loc(start)
		return n
	case p.match(token.SizeOf):
		p.expect(token.LParen, "expected '(' after 'sizeof'")
		typ := p.parseType()
		p.expect(token.RParen, "expected ')' after sizeof operand")
		n := &ast.SizeOf{Type: typ}
		n.Loc = p.loc(start)
		return n
	case p.match(token.TypeOf):
		p.expect(token.LParen, "expected '(' after 'typeof'")
		expr := p.expression()
		p.expect(token.RParen, "expected ')' after typeof operand")
		n := &ast.TypeOf{Expr: expr}
		n.Loc = p.loc(start)
		return n
	case p.match(token.Ident):
		n := &ast.Identifier{Name: p.previous().Lexeme}
		n.Loc = p.loc(start)
		return n
	case p.match(token.LParen):
		expr := p.expression()
		p.expect(token.RParen, "expected ')' after expression")
		return expr
	default:
		tok := p.peek()
		p.diags.Syntax(tok.Row, tok.Col, "expected an expression, found %q", tok.Lexeme)
		p.advance()
		return &ast.Null{}
	}
}

// parseIntLiteral/parseFloatLiteral never see malformed text: the lexer only
// emits Int/Float tokens for scanned digit runs.
func parseIntLiteral(lexeme string) int64 {
	v, _ := strconv.ParseInt(lexeme, 10, 64)
	return v
}

func parseFloatLiteral(lexeme string) float64 {
	v, _ := strconv.ParseFloat(lexeme, 64)
	return v
}

// --- token-stream primitives ---

func (p *Parser) check(t token.Type) bool {
	return !p.isAtEnd() && p.peek().Type == t
}

func (p *Parser) checkAny(ts ...token.Type) bool {
	for _, t := range ts {
		if p.check(t) {
			return true
		}
	}
	return false
}

func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if !p.isAtEnd() {
		p.current++
	}
	return tok
}

func (p *Parser) peek() token.Token     { return p.tokens[p.current] }
func (p *Parser) previous() token.Token { return p.tokens[p.current-1] }
func (p *Parser) isAtEnd() bool         { return p.peek().Type == token.EOF }

func (p *Parser) expect(t token.Type, msg string) token.Token {
	if p.check(t) {
		return p.advance()
	}
	tok := p.peek()
	p.diags.Syntax(tok.Row, tok.Col, "%s (found %q)", msg, tok.Lexeme)
	return tok
}

func (p *Parser) expectIdent(msg string) string {
	tok := p.expect(token.Ident, msg)
	return tok.Lexeme
}

// synchronize discards tokens until the next likely declaration start, so
// one syntax error doesn't cascade into spurious follow-on errors (§7).
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.checkAny(token.Proc, token.Struct, token.Var) {
			return
		}
		p.advance()
	}
}
