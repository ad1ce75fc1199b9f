// Package ir defines the typed intermediate representation the resolver
// produces from internal/ast and the interpreter evaluates (spec §3.4).
//
// Every node carries (kind, type, flags); dispatch uses the same type-switch
// style as internal/ast, for the same reason — original_source/CodeNode.h is
// itself one tagged union switched on by kind, and a Go type switch is the
// direct translation of that shape rather than a reinvention.
package ir

import (
	"kano/internal/operators"
	"kano/internal/symbols"
	"kano/internal/types"
)

// Node is implemented by every IR node.
type Node interface {
	Type() *types.Type
	Flags() symbols.Flags
}

type base struct {
	Typ  *types.Type
	Flag symbols.Flags
}

func (b base) Type() *types.Type    { return b.Typ }
func (b base) Flags() symbols.Flags { return b.Flag }

// LiteralKind mirrors ast.LiteralKind for the resolved literal's payload.
type LiteralKind int

const (
	IntegerLiteral LiteralKind = iota
	RealLiteral
	BoolLiteral
	PointerLiteral // the null pointer constant; non-null pointers are never literals
	StringLiteral
)

type Literal struct {
	base
	Kind      LiteralKind
	IntValue  int64
	RealValue float64
	BoolValue bool
	StrValue  string
}

func NewLiteral(t *types.Type, kind LiteralKind) *Literal {
	return &Literal{base: base{Typ: t, Flag: 0}, Kind: kind}
}

// Address is either a symbol reference or a computed address built from a
// child node, each with an extra byte offset (member/element offset).
type Address struct {
	base
	Symbol      *symbols.Symbol // nil when Child is set
	Child       Node            // nil when Symbol is set
	ExtraOffset uint32
}

func NewSymbolAddress(sym *symbols.Symbol, extraOffset uint32, resultType *types.Type, flags symbols.Flags) *Address {
	return &Address{base: base{Typ: resultType, Flag: flags}, Symbol: sym, ExtraOffset: extraOffset}
}

func NewComputedAddress(child Node, extraOffset uint32, resultType *types.Type, flags symbols.Flags) *Address {
	return &Address{base: base{Typ: resultType, Flag: flags}, Child: child, ExtraOffset: extraOffset}
}

// IsCallable reports whether this address denotes a procedure (Code or
// CCall storage) rather than a storage location.
func (a *Address) IsCallable() bool {
	return a.Symbol != nil && (a.Symbol.Address.Kind == symbols.Code || a.Symbol.Address.Kind == symbols.CCall)
}

type TypeCast struct {
	base
	Child    Node
	Implicit bool
}

func NewTypeCast(child Node, target *types.Type, implicit bool) *TypeCast {
	return &TypeCast{base: base{Typ: target}, Child: child, Implicit: implicit}
}

type UnaryOp struct {
	base
	Op        operators.UnaryKind
	Child     Node
	ParamType *types.Type // the selected overload's operand type
}

func NewUnaryOp(op operators.UnaryKind, child Node, paramType, result *types.Type, flags symbols.Flags) *UnaryOp {
	return &UnaryOp{base: base{Typ: result, Flag: flags}, Op: op, Child: child, ParamType: paramType}
}

type BinaryOp struct {
	base
	Op                  operators.BinaryKind
	Left, Right         Node
	LeftType, RightType *types.Type // the selected overload's operand types
}

func NewBinaryOp(op operators.BinaryKind, left, right Node, result *types.Type) *BinaryOp {
	return &BinaryOp{base: base{Typ: result}, Op: op, Left: left, Right: right, LeftType: left.Type(), RightType: right.Type()}
}

// Expression wraps a bare expression to propagate type/flags uniformly to
// places (e.g. statement position) that only care about those two fields.
type Expression struct {
	base
	Child Node
}

func NewExpression(child Node) *Expression {
	return &Expression{base: base{Typ: child.Type(), Flag: child.Flags()}, Child: child}
}

type Assignment struct {
	base
	Dst, Src Node
}

func NewAssignment(dst, src Node) *Assignment {
	return &Assignment{base: base{Typ: dst.Type(), Flag: dst.Flags()}, Dst: dst, Src: src}
}

type Return struct {
	base
	Expr Node // nil for a bare `return;`
}

func NewReturn(expr Node) *Return {
	var t *types.Type
	if expr != nil {
		t = expr.Type()
	}
	return &Return{base: base{Typ: t}, Expr: expr}
}

// Statement is one link of a statement chain; Scope is the symbol table in
// effect at this point. Node is nil for a statement with nothing to execute
// (a local declaration without an initializer).
type Statement struct {
	base
	SourceRow int
	Node      Node
	Next      *Statement
	Scope     *symbols.Table
}

// ProcedureCall carries the resolver-computed frame_top (§4.4): the offset,
// relative to the caller's frame base, at which the callee's frame begins.
type ProcedureCall struct {
	base
	Callee    Node
	Args      []Node
	Variadics []Node
	FrameTop  uint32
}

func NewProcedureCall(callee Node, args, variadics []Node, frameTop uint32, result *types.Type) *ProcedureCall {
	return &ProcedureCall{base: base{Typ: result}, Callee: callee, Args: args, Variadics: variadics, FrameTop: frameTop}
}

type Subscript struct {
	base
	Base, Index Node
}

func NewSubscript(arrBase, index Node, elem *types.Type) *Subscript {
	return &Subscript{base: base{Typ: elem, Flag: symbols.LVALUE}, Base: arrBase, Index: index}
}

type If struct {
	base
	Cond       Node
	Then, Else *Statement
}

type For struct {
	base
	Init, Post *Statement
	Cond       Node
	Body       *Statement
	Scope      *symbols.Table
}

type While struct {
	base
	Cond Node
	Body *Statement
}

type Do struct {
	base
	Body *Statement
	Cond Node
}

type Block struct {
	base
	Statements     *Statement
	StatementCount int
	SymbolTable    *symbols.Table
	FrameSize      uint32 // the procedure's peak vstack watermark as of the end of this block
}

// Procedure is the resolved body of a *symbols.Symbol whose Address.Kind is
// Code: its parameter/local layout and its statement chain.
type Procedure struct {
	base
	Params       []*symbols.Symbol
	Variadic     bool
	Return       *types.Type
	ReturnOffset uint32 // frame-relative offset of the return slot, valid iff Return.Kind != types.Null
	Body         *Block
	FrameSize    uint32 // peak vstack watermark across the whole procedure
}

