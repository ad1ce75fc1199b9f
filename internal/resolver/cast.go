package resolver

import (
	"kano/internal/ast"
	"kano/internal/ir"
	"kano/internal/types"
)

// canImplicitlyCast reports whether §4.2's allowed implicit-cast set permits
// converting a value of type from to type to.
func canImplicitlyCast(from, to *types.Type) bool {
	if types.Equal(from, to) {
		return true
	}
	switch {
	case from.Kind == types.Integer && to.Kind == types.Real:
		return true
	case from.Kind == types.Bool && to.Kind == types.Integer:
		return true
	case from.Kind == types.Integer && to.Kind == types.Bool:
		return true
	case from.Kind == types.Real && to.Kind == types.Bool:
		return true
	case from.Kind == types.Real && to.Kind == types.Integer:
		return true
	case from.Kind == types.StaticArray && to.Kind == types.ArrayView:
		return types.Equal(from.Base, to.Base)
	case from.Kind == types.Pointer && from.Base == nil && to.Kind == types.Pointer:
		return true
	// A void pointer (the type `allocate` and `free` traffic in) converts
	// implicitly to or from any other pointer type, same as C's void*.
	case from.Kind == types.Pointer && to.Kind == types.Pointer && (from.Base.Kind == types.Null || to.Base.Kind == types.Null):
		return true
	default:
		return false
	}
}

// implicitCast inserts a TypeCast node converting expr to target if expr's
// type differs and the conversion is in the allowed set (§4.2); otherwise it
// reports a resolve error and returns expr unchanged.
func (r *Resolver) implicitCast(expr ir.Node, target *types.Type, loc ast.Location) ir.Node {
	if types.Equal(expr.Type(), target) {
		return expr
	}
	if !canImplicitlyCast(expr.Type(), target) {
		r.errorAt(loc, "cannot convert '%s' to '%s'", expr.Type().String(), target.String())
		return expr
	}
	return ir.NewTypeCast(expr, target, true)
}
