package resolver

import (
	"kano/internal/ast"
	"kano/internal/symbols"
	"kano/internal/types"
)

// resolveType lowers a syntax-level type annotation (ast.TypeNode) to a
// *types.Type, per §3.1/§4.2.
func (r *Resolver) resolveType(n ast.Node) *types.Type {
	tn, ok := n.(*ast.TypeNode)
	if !ok {
		r.errorAt(n.Pos(), "expected a type")
		return r.errorType()
	}
	switch {
	case tn.Pointer != nil:
		return r.reg.PointerTo(r.resolveType(tn.Pointer))
	case tn.ArrayOf != nil:
		return r.reg.ArrayViewOf(r.resolveType(tn.ArrayOf))
	case tn.StaticOf != nil:
		elem := r.resolveType(tn.StaticOf)
		return r.reg.StaticArrayOf(elem, uint32(tn.Count))
	default:
		if prim, ok := r.reg.Primitive(tn.Name); ok {
			return prim
		}
		sym, ok := r.global.Lookup(tn.Name)
		if !ok || !sym.Flags.Has(symbols.TYPE) {
			r.errorAt(tn.Loc, "unknown type '%s'", tn.Name)
			return r.errorType()
		}
		return sym.Type
	}
}
