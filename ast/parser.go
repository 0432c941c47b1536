// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package ast

import (
	"io"

	"github.com/paanil/mug/strtab"
	"github.com/paanil/mug/token"
)

// Diagnostics is the minimal surface the parser needs from the shared
// error sink: report one message at a source position.
type Diagnostics interface {
	Syntactic(line, column int, format string, args ...interface{})
}

// Parser is a recursive-descent, two-token-lookahead parser. It never
// attempts resynchronisation: after the first syntax error it stops and
// the resulting Ast is marked invalid.
type Parser struct {
	lex   *token.Lexer
	tok   token.Token
	next  token.Token
	strs  *strtab.Table
	diags Diagnostics
	error bool
}

func NewParser(r io.Reader, strs *strtab.Table, diags Diagnostics) *Parser {
	p := &Parser{lex: token.NewLexer(r), strs: strs, diags: diags}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() token.Kind {
	p.tok = p.next
	p.next = p.lex.Next()
	return p.tok.Kind
}

func (p *Parser) peek() token.Kind      { return p.tok.Kind }
func (p *Parser) lookAhead() token.Kind { return p.next.Kind }

func (p *Parser) errorf(format string, args ...interface{}) {
	p.diags.Syntactic(p.tok.Line, p.tok.Column, format, args...)
	p.error = true
}

func (p *Parser) accept(k token.Kind) bool {
	if p.peek() == k {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(k token.Kind) bool {
	if p.accept(k) {
		return true
	}
	p.errorf("expected '%s', found '%s'", k, p.tok.Kind)
	return false
}

func (p *Parser) ident() string {
	s := p.strs.Intern(p.tok.Text)
	return s.String()
}

// Parse runs the grammar in §4.4 against the whole input and returns the
// resulting Ast. A syntax error anywhere aborts parsing early.
func (p *Parser) Parse() Ast {
	root := p.parseTopLevel()
	return Ast{Root: root, Valid: root != nil}
}

func (p *Parser) parseTopLevel() *BlockStmt {
	var stmts []Statement

	for {
		s := p.parseStatement()
		if s == nil {
			if p.error {
				return nil
			}
			fn := p.parseFunctionDef()
			if fn == nil {
				break
			}
			s = fn
		}
		stmts = append(stmts, s)
	}

	if p.error {
		return nil
	}

	if p.accept(token.END) {
		return &BlockStmt{Stmts: stmts}
	}

	p.errorf("unexpected token '%s'", p.tok.Kind)
	return nil
}

func (p *Parser) parseStatements() []Statement {
	var stmts []Statement
	for {
		s := p.parseStatement()
		if s == nil {
			break
		}
		stmts = append(stmts, s)
	}
	if p.error {
		return nil
	}
	return stmts
}

func (p *Parser) parseStatement() Statement {
	if p.accept(token.SEMICOLON) {
		return &EmptyStmt{}
	}

	if p.accept(token.BREAK) {
		if !p.expect(token.SEMICOLON) {
			return nil
		}
		return &BreakStmt{}
	}
	if p.accept(token.CONTINUE) {
		if !p.expect(token.SEMICOLON) {
			return nil
		}
		return &ContinueStmt{}
	}

	// Plain assign must be tried before a general expression: `x = e;`
	// is not itself a valid expression.
	if p.peek() == token.IDENT && p.lookAhead() == token.ASSIGN {
		name := p.ident()
		p.advance() // ident
		p.advance() // '='

		value := p.parseExpression()
		if value == nil {
			p.errorf("expected expression after '='")
			return nil
		}
		if !p.expect(token.SEMICOLON) {
			return nil
		}
		return &AssignStmt{Name: name, Value: value}
	}

	// Compound assignment `x OP= e;` desugars to `x = x OP e;`.
	if p.peek() == token.IDENT {
		if op, ok := compoundOps[p.lookAhead()]; ok {
			name := p.ident()
			p.advance() // ident
			p.advance() // the OP= token

			rhs := p.parseExpression()
			if rhs == nil {
				p.errorf("expected expression after compound assignment")
				return nil
			}
			if !p.expect(token.SEMICOLON) {
				return nil
			}
			desugared := &BinaryExpr{Op: op, Left: &VarExpr{Name: name}, Right: rhs}
			return &AssignStmt{Name: name, Value: desugared}
		}
	}

	if dt, ok := p.parseType(); ok {
		name := p.ident()
		if !p.expect(token.IDENT) {
			return nil
		}

		var init Expression
		if p.accept(token.ASSIGN) {
			init = p.parseExpression()
			if init == nil {
				p.errorf("expected expression after '='")
				return nil
			}
		}
		if !p.expect(token.SEMICOLON) {
			return nil
		}
		return &DeclStmt{VarType: dt, Name: name, Init: init}
	}

	if p.accept(token.RETURN) {
		var value Expression
		if p.peek() != token.SEMICOLON {
			value = p.parseExpression()
			if value == nil {
				p.errorf("expected return value")
				return nil
			}
		}
		if !p.expect(token.SEMICOLON) {
			return nil
		}
		return &ReturnStmt{Value: value}
	}

	if p.accept(token.IF) {
		if !p.expect(token.LPAREN) {
			return nil
		}
		cond := p.parseExpression()
		if cond == nil {
			p.errorf("expected condition in parentheses")
			return nil
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		then := p.parseStatement()
		if then == nil {
			p.errorf("expected statement for if")
			return nil
		}
		var els Statement
		if p.accept(token.ELSE) {
			els = p.parseStatement()
			if els == nil {
				p.errorf("expected else statement")
				return nil
			}
		}
		return &IfStmt{Cond: cond, Then: then, Else: els}
	}

	if p.accept(token.WHILE) {
		if !p.expect(token.LPAREN) {
			return nil
		}
		cond := p.parseExpression()
		if cond == nil {
			p.errorf("expected condition in parentheses")
			return nil
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		body := p.parseStatement()
		if body == nil {
			p.errorf("expected statement for while")
			return nil
		}
		return &WhileStmt{Cond: cond, Body: body}
	}

	if p.accept(token.LBRACE) {
		stmts := p.parseStatements()
		if p.error {
			return nil
		}
		if !p.expect(token.RBRACE) {
			return nil
		}
		return &BlockStmt{Stmts: stmts}
	}

	if exp := p.parseExpression(); exp != nil {
		if !p.expect(token.SEMICOLON) {
			return nil
		}
		return &ExprStmt{Expr: exp}
	}

	return nil
}

var compoundOps = map[token.Kind]BinaryOp{
	token.PLUS_ASSIGN:  BinAdd,
	token.MINUS_ASSIGN: BinSub,
	token.STAR_ASSIGN:  BinMul,
	token.SLASH_ASSIGN: BinDiv,
}

func (p *Parser) parseFunctionDef() *FuncDef {
	external := p.accept(token.EXTERN)

	if !p.accept(token.FUNCTION) {
		if external {
			p.errorf("expected function declaration after 'extern'")
		}
		return nil
	}

	name := p.ident()
	if !p.expect(token.IDENT) {
		return nil
	}
	if !p.expect(token.LPAREN) {
		return nil
	}

	var params []Param
	if !p.accept(token.RPAREN) {
		params = p.parseParameters()
		if params == nil && p.error {
			return nil
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
	}

	retType := DataType{Kind: Void}
	if p.accept(token.ARROW) {
		dt, ok := p.parseType()
		if !ok {
			p.errorf("expected return type after '->'")
			return nil
		}
		retType = dt
	}

	if external {
		if !p.expect(token.SEMICOLON) {
			return nil
		}
		return &FuncDef{RetType: retType, Name: name, Params: params, Body: nil}
	}

	if !p.expect(token.LBRACE) {
		return nil
	}
	stmts := p.parseStatements()
	if p.error {
		return nil
	}
	if !p.expect(token.RBRACE) {
		return nil
	}
	return &FuncDef{RetType: retType, Name: name, Params: params, Body: &BlockStmt{Stmts: stmts}}
}

func (p *Parser) parseType() (DataType, bool) {
	switch {
	case token.IsSignedIntKeyword(p.peek()):
		p.advance()
		return DataType{Kind: Int}, true
	case token.IsUnsignedIntKeyword(p.peek()):
		p.advance()
		return DataType{Kind: Uint}, true
	case p.peek() == token.BOOL:
		p.advance()
		return DataType{Kind: Bool}, true
	default:
		return DataType{}, false
	}
}

func (p *Parser) parseParameters() []Param {
	var params []Param
	for {
		dt, ok := p.parseType()
		if !ok {
			p.errorf("expected parameter type")
			return nil
		}
		name := p.ident()
		if !p.expect(token.IDENT) {
			return nil
		}
		params = append(params, Param{Type: dt, Name: name})
		if !p.accept(token.COMMA) {
			break
		}
	}
	return params
}

// Expression grammar, precedence lowest to highest:
//
//	expression := and ('||' and)*
//	and        := cmp ('&&' cmp)*
//	cmp        := sum (cmpOp sum)?        -- zero or one, non-associative
//	sum        := term (('+'|'-') term)*
//	term       := pfx (('*'|'/') pfx)*
//	pfx        := ('-'|'!')? factor

func (p *Parser) parseExpression() Expression {
	return p.parseLeftAssoc(p.parseAnd, map[token.Kind]BinaryOp{token.OR: BinOr})
}

func (p *Parser) parseAnd() Expression {
	return p.parseLeftAssoc(p.parseComparison, map[token.Kind]BinaryOp{token.AND: BinAnd})
}

func (p *Parser) parseSum() Expression {
	return p.parseLeftAssoc(p.parseTerm, map[token.Kind]BinaryOp{token.PLUS: BinAdd, token.MINUS: BinSub})
}

func (p *Parser) parseTerm() Expression {
	return p.parseLeftAssoc(p.parsePrefixed, map[token.Kind]BinaryOp{token.STAR: BinMul, token.SLASH: BinDiv})
}

func (p *Parser) parseLeftAssoc(operand func() Expression, ops map[token.Kind]BinaryOp) Expression {
	left := operand()
	if left == nil {
		return nil
	}
	for {
		op, ok := ops[p.peek()]
		if !ok {
			return left
		}
		opTok := p.peek()
		p.advance()
		right := operand()
		if right == nil {
			p.errorf("expected operand for '%s'", opTok)
			return nil
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

var cmpOps = map[token.Kind]BinaryOp{
	token.EQ: BinEq, token.NE: BinNe,
	token.LT: BinLt, token.GT: BinGt,
	token.LE: BinLe, token.GE: BinGe,
}

// parseComparison differs from the other binary levels: exactly zero or
// one comparison operator is accepted per expression, never a chain.
func (p *Parser) parseComparison() Expression {
	left := p.parseSum()
	if left == nil {
		return nil
	}
	op, ok := cmpOps[p.peek()]
	if !ok {
		return left
	}
	p.advance()
	right := p.parseSum()
	if right == nil {
		p.errorf("expected operand for comparison")
		return nil
	}
	return &BinaryExpr{Op: op, Left: left, Right: right}
}

func (p *Parser) parsePrefixed() Expression {
	switch p.peek() {
	case token.NOT:
		p.advance()
		operand := p.parseFactor()
		if operand == nil {
			p.errorf("expected operand for '!'")
			return nil
		}
		return &UnaryExpr{Op: UnaryNot, Operand: operand}
	case token.MINUS:
		p.advance()
		operand := p.parseFactor()
		if operand == nil {
			p.errorf("expected operand for '-'")
			return nil
		}
		return &UnaryExpr{Op: UnaryNeg, Operand: operand}
	default:
		return p.parseFactor()
	}
}

func (p *Parser) parseFactor() Expression {
	switch {
	case p.accept(token.TRUE):
		return &BoolExpr{Value: true}
	case p.accept(token.FALSE):
		return &BoolExpr{Value: false}
	}

	if p.peek() == token.INT_LIT {
		v := p.tok.IntVal
		p.advance()
		return &ConstExpr{Value: v, Lit: Int}
	}
	if p.peek() == token.UINT_LIT {
		v := p.tok.IntVal
		p.advance()
		return &ConstExpr{Value: v, Lit: Uint}
	}

	if p.peek() == token.IDENT {
		name := p.ident()
		p.advance()

		if p.accept(token.LPAREN) {
			var args []Expression
			if !p.accept(token.RPAREN) {
				args = p.parseArguments()
				if args == nil && p.error {
					return nil
				}
				if !p.expect(token.RPAREN) {
					return nil
				}
			}
			return &CallExpr{Name: name, Args: args}
		}
		return &VarExpr{Name: name}
	}

	if p.accept(token.LPAREN) {
		exp := p.parseExpression()
		if exp == nil {
			p.errorf("expected expression in parentheses")
			return nil
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		return exp
	}

	return nil
}

func (p *Parser) parseArguments() []Expression {
	var args []Expression
	for {
		arg := p.parseExpression()
		if arg == nil {
			p.errorf("expected argument")
			return nil
		}
		args = append(args, arg)
		if !p.accept(token.COMMA) {
			break
		}
	}
	return args
}
