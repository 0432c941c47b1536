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

// Package ast defines the tagged AST node variants and the
// recursive-descent parser that produces them.
package ast

import "github.com/samber/lo"

// DataKind is the tag of the Void|Int|Uint|Bool|Func variant.
type DataKind int

const (
	Void DataKind = iota
	Int
	Uint
	Bool
	Func
)

func (k DataKind) String() string {
	switch k {
	case Void:
		return "void"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Bool:
		return "bool"
	case Func:
		return "function"
	default:
		return "?"
	}
}

// DataType is the tagged variant Void | Int | Uint | Bool | Func(&FuncDef).
// FuncDef is only meaningful when Kind == Func.
type DataType struct {
	Kind    DataKind
	FuncDef *FuncDef
}

// UnaryOp enumerates the two prefix operators.
type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNeg
)

// BinaryOp enumerates every infix operator.
type BinaryOp int

const (
	BinMul BinaryOp = iota
	BinDiv
	BinAdd
	BinSub
	BinEq
	BinNe
	BinLt
	BinGt
	BinLe
	BinGe
	BinAnd
	BinOr
)

// Expression is any AST expression node. Every variant carries a mutable
// DataType slot filled in by the type checker.
type Expression interface {
	exprNode()
	Type() DataType
	SetType(DataType)
}

type exprBase struct {
	dataType DataType
}

func (e *exprBase) exprNode()        {}
func (e *exprBase) Type() DataType   { return e.dataType }
func (e *exprBase) SetType(t DataType) { e.dataType = t }

// BoolExpr is a `true`/`false` literal.
type BoolExpr struct {
	exprBase
	Value bool
}

// ConstExpr is an integer literal; Lit records whether it was spelled
// with a trailing `u` (Uint) or not (Int).
type ConstExpr struct {
	exprBase
	Value uint64
	Lit   DataKind
}

// VarExpr references a variable by name.
type VarExpr struct {
	exprBase
	Name string
}

// CallExpr is a function call.
type CallExpr struct {
	exprBase
	Name string
	Args []Expression
}

// UnaryExpr is `!e` or `-e`.
type UnaryExpr struct {
	exprBase
	Op      UnaryOp
	Operand Expression
}

// BinaryExpr is any infix expression.
type BinaryExpr struct {
	exprBase
	Op    BinaryOp
	Left  Expression
	Right Expression
}

// Statement is any AST statement or declaration node.
type Statement interface {
	stmtNode()
}

type stmtBase struct{}

func (stmtBase) stmtNode() {}

// EmptyStmt is a bare `;`.
type EmptyStmt struct{ stmtBase }

// ExprStmt is an expression evaluated for its side effect (a call).
type ExprStmt struct {
	stmtBase
	Expr Expression
}

// AssignStmt is `name = value;`.
type AssignStmt struct {
	stmtBase
	Name  string
	Value Expression
}

// DeclStmt is `type name [= init];`. Init is nil when absent.
type DeclStmt struct {
	stmtBase
	VarType DataType
	Name    string
	Init    Expression
}

// ReturnStmt is `return [value];`. Value is nil for a bare return.
type ReturnStmt struct {
	stmtBase
	Value Expression
}

// IfStmt is `if (cond) then [else else_]`. Else is nil when absent.
type IfStmt struct {
	stmtBase
	Cond Expression
	Then Statement
	Else Statement
}

// WhileStmt is `while (cond) body`.
type WhileStmt struct {
	stmtBase
	Cond Expression
	Body Statement
}

// BlockStmt is `{ stmts... }`, also used as the top-level container.
type BlockStmt struct {
	stmtBase
	Stmts []Statement
}

// BreakStmt is `break;`, legal only inside a WhileStmt body.
type BreakStmt struct{ stmtBase }

// ContinueStmt is `continue;`, legal only inside a WhileStmt body.
type ContinueStmt struct{ stmtBase }

// Param is one `type name` entry in a function's parameter list.
type Param struct {
	Type DataType
	Name string
}

// FuncDef is a `function` declaration or definition. Body is nil exactly
// when the function was declared `extern`.
type FuncDef struct {
	stmtBase
	RetType DataType
	Name    string
	Params  []Param
	Body    *BlockStmt
}

// TopLevelFuncDefs picks the *FuncDef statements out of a block's
// top-level statement list, in source order. Shared by the checker's
// signature-declaration pass and the IR generator's routine-id
// assignment pass, which both need exactly this filter.
func TopLevelFuncDefs(root *BlockStmt) []*FuncDef {
	return lo.FilterMap(root.Stmts, func(s Statement, _ int) (*FuncDef, bool) {
		fn, ok := s.(*FuncDef)
		return fn, ok
	})
}

// Ast is the parser's result: a root block holding every top-level
// statement and function definition in source order, plus whether the
// input was grammatically valid.
type Ast struct {
	Root  *BlockStmt
	Valid bool
}
