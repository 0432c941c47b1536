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

// Package check implements the two-phase static type checker: phase one
// registers every top-level function's signature so that mutual and
// forward recursion resolve, phase two walks every body and statement,
// filling each Expression's DataType slot as it goes.
package check

import (
	"github.com/paanil/mug/ast"
	"github.com/paanil/mug/symtab"
)

const returnSlot = "@return"

// Diagnostics is the minimal surface the checker needs from the shared
// error sink: report one semantic error. Position is unavailable here
// since the AST carries none, mirroring the original's line-free
// semantic diagnostics.
type Diagnostics interface {
	Semantic(format string, args ...interface{})
}

func isBool(e ast.Expression) bool   { return e.Type().Kind == ast.Bool }
func isSigned(e ast.Expression) bool { return e.Type().Kind == ast.Int }
func isVoid(e ast.Expression) bool   { return e.Type().Kind == ast.Void }

// canCast reports whether a value of type `from` may be used where `to`
// is expected. Int and Uint freely convert to each other; every other
// kind only matches itself, and nothing converts to or from Void/Func.
func canCast(from, to ast.DataType) bool {
	switch from.Kind {
	case ast.Int, ast.Uint:
		return to.Kind == ast.Int || to.Kind == ast.Uint
	case ast.Bool:
		return to.Kind == ast.Bool
	default:
		return false
	}
}

type checker struct {
	sym   *symtab.Table[ast.DataType]
	diags Diagnostics
	loops int
}

// Check runs both phases over ast and reports whether the program is
// well-typed. It mutates every Expression node's DataType slot in place.
func Check(a ast.Ast, diags Diagnostics) bool {
	if !a.Valid {
		return false
	}

	c := &checker{sym: symtab.New[ast.DataType](), diags: diags}

	if !c.declareSignatures(a.Root) {
		return false
	}
	return c.checkBlock(a.Root)
}

// declareSignatures is phase one: every top-level function's name and
// type are bound before any body is checked, so a call to a function
// defined later in the same file (or that calls back into an earlier
// one) resolves correctly.
func (c *checker) declareSignatures(root *ast.BlockStmt) bool {
	for _, fn := range ast.TopLevelFuncDefs(root) {
		if c.sym.Has(fn.Name) {
			c.diags.Semantic("function '%s' has already been defined", fn.Name)
			return false
		}
		c.sym.Put(fn.Name, ast.DataType{Kind: ast.Func, FuncDef: fn})
	}
	return true
}

func (c *checker) checkExpr(e ast.Expression) bool {
	switch e := e.(type) {
	case *ast.BoolExpr:
		e.SetType(ast.DataType{Kind: ast.Bool})
		return true

	case *ast.ConstExpr:
		e.SetType(ast.DataType{Kind: e.Lit})
		return true

	case *ast.VarExpr:
		t, ok := c.sym.Get(e.Name)
		if !ok {
			c.diags.Semantic("variable '%s' is not defined", e.Name)
			return false
		}
		e.SetType(t)
		return true

	case *ast.CallExpr:
		return c.checkCall(e)

	case *ast.UnaryExpr:
		return c.checkUnary(e)

	case *ast.BinaryExpr:
		return c.checkBinary(e)
	}
	return false
}

func (c *checker) checkCall(e *ast.CallExpr) bool {
	t, ok := c.sym.Get(e.Name)
	if !ok {
		c.diags.Semantic("function '%s' is not defined", e.Name)
		return false
	}
	if t.Kind != ast.Func {
		c.diags.Semantic("cannot call '%s'; it's not a function", e.Name)
		return false
	}

	params := t.FuncDef.Params
	for i, arg := range e.Args {
		if i >= len(params) {
			c.diags.Semantic("calling function '%s' with too many arguments", e.Name)
			return false
		}
		if !c.checkExpr(arg) {
			return false
		}
		if !canCast(arg.Type(), params[i].Type) {
			c.diags.Semantic("incompatible argument type; function takes %s, but %s was given",
				params[i].Type.Kind, arg.Type().Kind)
			return false
		}
	}
	if len(e.Args) < len(params) {
		c.diags.Semantic("calling function '%s' with too few arguments", e.Name)
		return false
	}

	e.SetType(t.FuncDef.RetType)
	return true
}

func (c *checker) checkUnary(e *ast.UnaryExpr) bool {
	if !c.checkExpr(e.Operand) {
		return false
	}
	if isVoid(e.Operand) {
		c.diags.Semantic("cannot do unary operations with void")
		return false
	}

	switch e.Op {
	case ast.UnaryNot:
		if !isBool(e.Operand) {
			c.diags.Semantic("incompatible type for unary not")
			return false
		}
		e.SetType(ast.DataType{Kind: ast.Bool})
	case ast.UnaryNeg:
		if isBool(e.Operand) {
			c.diags.Semantic("boolean cannot be negated")
			return false
		}
		e.SetType(ast.DataType{Kind: ast.Int})
	}
	return true
}

func (c *checker) checkBinary(e *ast.BinaryExpr) bool {
	if !c.checkExpr(e.Left) || !c.checkExpr(e.Right) {
		return false
	}
	if isVoid(e.Left) || isVoid(e.Right) {
		c.diags.Semantic("cannot do binary operations with voids")
		return false
	}

	switch e.Op {
	case ast.BinMul, ast.BinDiv, ast.BinAdd, ast.BinSub:
		if isBool(e.Left) || isBool(e.Right) {
			c.diags.Semantic("boolean used in binary arithmetic")
			return false
		}
		if isSigned(e.Left) || isSigned(e.Right) {
			e.SetType(ast.DataType{Kind: ast.Int})
		} else {
			e.SetType(ast.DataType{Kind: ast.Uint})
		}

	case ast.BinEq, ast.BinNe:
		if isBool(e.Left) != isBool(e.Right) {
			c.diags.Semantic("cannot equ nor nequ boolean and numeric value")
			return false
		}
		if !isBool(e.Left) && isSigned(e.Left) != isSigned(e.Right) {
			c.diags.Semantic("comparison of signed and unsigned values")
			return false
		}
		e.SetType(ast.DataType{Kind: ast.Bool})

	case ast.BinLt, ast.BinGt, ast.BinLe, ast.BinGe:
		if isBool(e.Left) || isBool(e.Right) {
			c.diags.Semantic("only boolean equality or inequality can be tested")
			return false
		}
		if isSigned(e.Left) != isSigned(e.Right) {
			c.diags.Semantic("comparison of signed and unsigned values")
			return false
		}
		e.SetType(ast.DataType{Kind: ast.Bool})

	case ast.BinAnd, ast.BinOr:
		if !isBool(e.Left) || !isBool(e.Right) {
			c.diags.Semantic("logical && and || can be used with booleans only")
			return false
		}
		e.SetType(ast.DataType{Kind: ast.Bool})
	}
	return true
}

func (c *checker) checkStmt(s ast.Statement) bool {
	switch s := s.(type) {
	case *ast.EmptyStmt:
		return true

	case *ast.ExprStmt:
		return c.checkExpr(s.Expr)

	case *ast.AssignStmt:
		return c.checkAssign(s)

	case *ast.DeclStmt:
		return c.checkDecl(s)

	case *ast.ReturnStmt:
		return c.checkReturn(s)

	case *ast.IfStmt:
		return c.checkIf(s)

	case *ast.WhileStmt:
		return c.checkWhile(s)

	case *ast.BlockStmt:
		return c.checkBlock(s)

	case *ast.BreakStmt:
		if c.loops == 0 {
			c.diags.Semantic("'break' outside a loop")
			return false
		}
		return true

	case *ast.ContinueStmt:
		if c.loops == 0 {
			c.diags.Semantic("'continue' outside a loop")
			return false
		}
		return true

	case *ast.FuncDef:
		return c.checkFuncDef(s)
	}
	return false
}

func (c *checker) checkAssign(s *ast.AssignStmt) bool {
	t, ok := c.sym.Get(s.Name)
	if !ok {
		c.diags.Semantic("variable '%s' is not defined", s.Name)
		return false
	}
	if !c.checkExpr(s.Value) {
		return false
	}
	if !canCast(s.Value.Type(), t) {
		c.diags.Semantic("incompatible types in assignment; trying to assign %s to %s",
			s.Value.Type().Kind, t.Kind)
		return false
	}
	return true
}

func (c *checker) checkDecl(s *ast.DeclStmt) bool {
	if c.sym.InCurrentScope(s.Name) {
		c.diags.Semantic("variable '%s' is already defined in current scope", s.Name)
		return false
	}
	if s.Init != nil {
		if !c.checkExpr(s.Init) {
			return false
		}
		if !canCast(s.Init.Type(), s.VarType) {
			c.diags.Semantic("incompatible types in variable declaration; "+
				"trying to initialize %s with %s", s.VarType.Kind, s.Init.Type().Kind)
			return false
		}
	}
	c.sym.Put(s.Name, s.VarType)
	return true
}

func (c *checker) checkReturn(s *ast.ReturnStmt) bool {
	retType, ok := c.sym.Get(returnSlot)
	if !ok {
		c.diags.Semantic("'return' outside a function")
		return false
	}
	if s.Value != nil {
		if !c.checkExpr(s.Value) {
			return false
		}
		if !canCast(s.Value.Type(), retType) {
			c.diags.Semantic("return value doesn't match function's return type")
			return false
		}
	} else if retType.Kind != ast.Void {
		c.diags.Semantic("non-void function should return something")
		return false
	}
	return true
}

func (c *checker) checkIf(s *ast.IfStmt) bool {
	if !c.checkExpr(s.Cond) {
		return false
	}
	if !isBool(s.Cond) {
		c.diags.Semantic("condition is not a boolean")
		return false
	}
	if !c.checkStmt(s.Then) {
		return false
	}
	if s.Else != nil {
		return c.checkStmt(s.Else)
	}
	return true
}

func (c *checker) checkWhile(s *ast.WhileStmt) bool {
	if !c.checkExpr(s.Cond) {
		return false
	}
	if !isBool(s.Cond) {
		c.diags.Semantic("condition is not a boolean")
		return false
	}
	c.loops++
	ok := c.checkStmt(s.Body)
	c.loops--
	return ok
}

func (c *checker) checkBlock(b *ast.BlockStmt) bool {
	c.sym.EnterScope()
	defer c.sym.ExitScope()

	for _, stmt := range b.Stmts {
		if !c.checkStmt(stmt) {
			return false
		}
	}
	return true
}

func (c *checker) checkFuncDef(fn *ast.FuncDef) bool {
	// The signature was already bound in phase one; re-declaring here
	// would reject the legitimate forward reference to itself.
	c.sym.EnterScope()
	defer c.sym.ExitScope()

	c.sym.Put(returnSlot, fn.RetType)
	for _, p := range fn.Params {
		c.sym.Put(p.Name, p.Type)
	}

	if fn.Body == nil {
		return true // extern: nothing to check
	}
	for _, stmt := range fn.Body.Stmts {
		if !c.checkStmt(stmt) {
			return false
		}
	}
	return true
}
