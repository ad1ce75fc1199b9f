package resolver

import (
	"kano/internal/ast"
	"kano/internal/ir"
	"kano/internal/operators"
	"kano/internal/symbols"
	"kano/internal/types"
)

// resolveExpr lowers one syntax expression node to IR, per the per-kind
// rules of §4.3.
func (r *Resolver) resolveExpr(n ast.Node, scope *symbols.Table) ir.Node {
	switch e := n.(type) {
	case *ast.Null:
		return ir.NewLiteral(r.reg.Void(), ir.IntegerLiteral)

	case *ast.Literal:
		return r.resolveLiteral(e)

	case *ast.Identifier:
		sym, ok := scope.Lookup(e.Name)
		if !ok {
			r.errorAt(e.Loc, "undefined identifier '%s'", e.Name)
			return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
		}
		return ir.NewSymbolAddress(sym, 0, sym.Type, sym.Flags)

	case *ast.UnaryOp:
		return r.resolveUnary(e, scope)

	case *ast.BinaryOp:
		return r.resolveBinary(e, scope)

	case *ast.TypeCast:
		child := r.resolveExpr(e.Expr, scope)
		target := r.resolveType(e.Type)
		return r.explicitCast(child, target, e.Loc)

	case *ast.SizeOf:
		t := r.resolveType(e.Type)
		lit := ir.NewLiteral(r.reg.Int(), ir.IntegerLiteral)
		lit.IntValue = int64(t.Size)
		return lit

	case *ast.TypeOf:
		child := r.resolveExpr(e.Expr, scope)
		// typeof yields a compile-time-known type name as a string constant
		// (a supplemented reflection surface, not in the core operator
		// table); represented the same way a string literal is.
		lit := ir.NewLiteral(r.reg.PointerTo(r.reg.CharT()), ir.StringLiteral)
		lit.StrValue = child.Type().String()
		return lit

	case *ast.ProcedureCall:
		return r.resolveCall(e, scope)

	case *ast.Subscript:
		return r.resolveSubscript(e, scope)

	case *ast.Member:
		return r.resolveMember(e, scope)

	default:
		r.errorAt(n.Pos(), "internal error: unhandled expression kind %T", n)
		return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
	}
}

func (r *Resolver) resolveLiteral(e *ast.Literal) ir.Node {
	switch e.Kind {
	case ast.IntegerLiteral:
		lit := ir.NewLiteral(r.reg.Int(), ir.IntegerLiteral)
		lit.IntValue = e.IntValue
		return lit
	case ast.RealLiteral:
		lit := ir.NewLiteral(r.reg.Float(), ir.RealLiteral)
		lit.RealValue = e.RealValue
		return lit
	case ast.BoolLiteral:
		lit := ir.NewLiteral(r.reg.BoolT(), ir.BoolLiteral)
		lit.BoolValue = e.BoolValue
		return lit
	case ast.StringLiteral:
		lit := ir.NewLiteral(r.reg.PointerTo(r.reg.CharT()), ir.StringLiteral)
		lit.StrValue = e.StrValue
		return lit
	case ast.NullPointerLiteral:
		// Base left nil: the untyped null constant, implicitly castable to
		// any pointer type regardless of base (see canImplicitlyCast).
		nullType := &types.Type{Kind: types.Pointer, Size: types.PointerSize, Alignment: types.PointerSize}
		return ir.NewLiteral(nullType, ir.PointerLiteral)
	default:
		r.errorAt(e.Loc, "internal error: unhandled literal kind")
		return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
	}
}

var unaryOpKinds = map[string]operators.UnaryKind{
	"+": operators.Plus,
	"-": operators.Minus,
	"!": operators.LogicalNot,
	"~": operators.BitwiseNot,
	"&": operators.AddressOf,
	"*": operators.Dereference,
}

var binaryOpKinds = map[string]operators.BinaryKind{
	"+":  operators.Add,
	"-":  operators.Sub,
	"*":  operators.Mul,
	"/":  operators.Div,
	"%":  operators.Rem,
	"<<": operators.ShiftLeft,
	">>": operators.ShiftRight,
	"&":  operators.BitwiseAnd,
	"^":  operators.BitwiseXor,
	"|":  operators.BitwiseOr,
	">":  operators.Greater,
	"<":  operators.Less,
	">=": operators.GreaterEqual,
	"<=": operators.LessEqual,
	"==": operators.Equal,
	"!=": operators.NotEqual,
}

var compoundAssignKinds = map[string]operators.BinaryKind{
	"+=":  operators.CompoundAdd,
	"-=":  operators.CompoundSub,
	"*=":  operators.CompoundMul,
	"/=":  operators.CompoundDiv,
	"%=":  operators.CompoundRem,
	"<<=": operators.CompoundShiftLeft,
	">>=": operators.CompoundShiftRight,
	"&=":  operators.CompoundBitwiseAnd,
	"^=":  operators.CompoundBitwiseXor,
	"|=":  operators.CompoundBitwiseOr,
}

func (r *Resolver) resolveUnary(e *ast.UnaryOp, scope *symbols.Table) ir.Node {
	child := r.resolveExpr(e.Child, scope)
	kind, ok := unaryOpKinds[e.Op]
	if !ok {
		r.errorAt(e.Loc, "internal error: unknown unary operator '%s'", e.Op)
		return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
	}

	isLvalue := child.Flags().Has(symbols.LVALUE)
	overload, ok := r.ops.ResolveUnary(kind, child.Type(), isLvalue)
	if !ok {
		r.errorAt(e.Loc, "no '%s' operator for type '%s'", e.Op, child.Type().String())
		return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
	}

	switch kind {
	case operators.AddressOf:
		if !isLvalue {
			r.errorAt(e.Loc, "cannot take the address of a non-lvalue")
		}
		result := r.reg.PointerTo(child.Type())
		return ir.NewUnaryOp(kind, child, child.Type(), result, 0)
	case operators.Dereference:
		if child.Type().Kind != types.Pointer {
			r.errorAt(e.Loc, "cannot dereference a non-pointer")
			return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
		}
		result := child.Type().Base
		return ir.NewUnaryOp(kind, child, child.Type(), result, symbols.LVALUE)
	default:
		return ir.NewUnaryOp(kind, child, overload.Param, overload.Result, 0)
	}
}

func (r *Resolver) resolveBinary(e *ast.BinaryOp, scope *symbols.Table) ir.Node {
	left := r.resolveExpr(e.Left, scope)
	right := r.resolveExpr(e.Right, scope)
	kind, ok := binaryOpKinds[e.Op]
	if !ok {
		r.errorAt(e.Loc, "internal error: unknown binary operator '%s'", e.Op)
		return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
	}
	return r.buildBinary(kind, left, right, e.Loc)
}

// buildBinary resolves the overload for kind over left/right, inserting
// implicit casts where the operator table allows them, and is shared by
// plain binary operators and the non-compound half of compound assignment.
func (r *Resolver) buildBinary(kind operators.BinaryKind, left, right ir.Node, loc ast.Location) ir.Node {
	if overload, ok := r.ops.ResolveBinary(kind, left.Type(), right.Type()); ok {
		return ir.NewBinaryOp(kind, left, right, overload.Result)
	}
	// Retry with an implicit cast applied to whichever side admits one
	// (e.g. integer literal against a real operand).
	for _, target := range []*types.Type{left.Type(), right.Type()} {
		if canImplicitlyCast(left.Type(), target) && canImplicitlyCast(right.Type(), target) {
			l := r.implicitCast(left, target, loc)
			rr := r.implicitCast(right, target, loc)
			if overload, ok := r.ops.ResolveBinary(kind, l.Type(), rr.Type()); ok {
				return ir.NewBinaryOp(kind, l, rr, overload.Result)
			}
		}
	}
	r.errorAt(loc, "no operator for '%s' and '%s'", left.Type().String(), right.Type().String())
	return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
}

func (r *Resolver) resolveCall(e *ast.ProcedureCall, scope *symbols.Table) ir.Node {
	callee := r.resolveExpr(e.Callee, scope)
	if callee.Type().Kind != types.Procedure {
		r.errorAt(e.Loc, "cannot call a non-procedure value")
		return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
	}
	sig := callee.Type()

	args := make([]ir.Node, 0, len(e.Args))
	var variadics []ir.Node
	for i, argExpr := range e.Args {
		arg := r.resolveExpr(argExpr, scope)
		if i < len(sig.Args) {
			arg = r.implicitCast(arg, sig.Args[i], argExpr.Pos())
			args = append(args, arg)
		} else if sig.Variadic {
			variadics = append(variadics, arg)
		} else {
			r.errorAt(e.Loc, "too many arguments in call")
		}
	}
	if len(e.Args) < len(sig.Args) {
		r.errorAt(e.Loc, "too few arguments in call")
	}

	frameTop := uint32(0)
	if r.proc != nil {
		frameTop = uint32(r.proc.vstack)
	}
	ret := sig.Return
	if ret == nil {
		ret = r.reg.Void()
	}
	return ir.NewProcedureCall(callee, args, variadics, frameTop, ret)
}

func (r *Resolver) resolveSubscript(e *ast.Subscript, scope *symbols.Table) ir.Node {
	base := r.resolveExpr(e.Base, scope)
	index := r.resolveExpr(e.Index, scope)
	index = r.implicitCast(index, r.reg.Int(), e.Index.Pos())

	var elem *types.Type
	switch base.Type().Kind {
	case types.StaticArray, types.ArrayView, types.Pointer:
		elem = base.Type().Base
	default:
		r.errorAt(e.Loc, "cannot subscript a value of type '%s'", base.Type().String())
		return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
	}
	return ir.NewSubscript(base, index, elem)
}

func (r *Resolver) resolveMember(e *ast.Member, scope *symbols.Table) ir.Node {
	base := r.resolveExpr(e.Base, scope)
	structType := base.Type()
	flags := base.Flags()
	if structType.Kind == types.Pointer && structType.Base != nil && structType.Base.Kind == types.Struct {
		structType = structType.Base
		flags = symbols.LVALUE // dereferencing a pointer always yields an lvalue
	}
	if structType.Kind != types.Struct {
		r.errorAt(e.Loc, "'%s' is not a struct", base.Type().String())
		return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
	}
	member, ok := structType.Member(e.Name)
	if !ok {
		r.errorAt(e.Loc, "struct '%s' has no member '%s'", structType.Name, e.Name)
		return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
	}
	return ir.NewComputedAddress(base, member.Offset, member.Type, flags)
}

// explicitCast implements `expr as Type`: permits everything implicitCast
// does, plus pointer-to-pointer conversions (§4.2's "only when explicit").
func (r *Resolver) explicitCast(expr ir.Node, target *types.Type, loc ast.Location) ir.Node {
	if types.Equal(expr.Type(), target) {
		return expr
	}
	if canImplicitlyCast(expr.Type(), target) {
		return ir.NewTypeCast(expr, target, false)
	}
	if expr.Type().Kind == types.Pointer && target.Kind == types.Pointer {
		return ir.NewTypeCast(expr, target, false)
	}
	r.errorAt(loc, "cannot cast '%s' to '%s'", expr.Type().String(), target.String())
	return expr
}
