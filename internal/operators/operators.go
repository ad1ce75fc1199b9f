// Package operators implements the operator-overload table of spec §4.1: for
// each operator kind, a set of (operand types) -> result type overloads.
//
// The original implementation's binary dispatch table listed the
// bitwise-AND slot twice (spec §9, design note 3); this table enumerates
// every Binary_Operator_Kind exactly once.
package operators

import "kano/internal/types"

// UnaryKind enumerates the unary operator kinds of spec §3.4/§4.1.
type UnaryKind int

const (
	Plus UnaryKind = iota
	Minus
	BitwiseNot
	LogicalNot
	AddressOf
	Dereference

	unaryKindCount
)

// BinaryKind enumerates every binary operator kind exactly once.
type BinaryKind int

const (
	Add BinaryKind = iota
	Sub
	Mul
	Div
	Rem
	ShiftRight
	ShiftLeft
	BitwiseAnd
	BitwiseXor
	BitwiseOr
	Greater
	Less
	GreaterEqual
	LessEqual
	Equal
	NotEqual
	CompoundAdd
	CompoundSub
	CompoundMul
	CompoundDiv
	CompoundRem
	CompoundShiftRight
	CompoundShiftLeft
	CompoundBitwiseAnd
	CompoundBitwiseXor
	CompoundBitwiseOr

	binaryKindCount
)

// IsCompound reports whether a kind requires its lhs to be an lvalue.
func (k BinaryKind) IsCompound() bool {
	return k >= CompoundAdd && k <= CompoundBitwiseOr
}

// NonCompound maps a compound kind back to its plain arithmetic/bitwise
// equivalent, used by the interpreter to reuse one evaluation routine for
// both `+` and `+=`.
func (k BinaryKind) NonCompound() BinaryKind {
	switch k {
	case CompoundAdd:
		return Add
	case CompoundSub:
		return Sub
	case CompoundMul:
		return Mul
	case CompoundDiv:
		return Div
	case CompoundRem:
		return Rem
	case CompoundShiftRight:
		return ShiftRight
	case CompoundShiftLeft:
		return ShiftLeft
	case CompoundBitwiseAnd:
		return BitwiseAnd
	case CompoundBitwiseXor:
		return BitwiseXor
	case CompoundBitwiseOr:
		return BitwiseOr
	default:
		return k
	}
}

// UnaryOverload is a (param_type) -> result_type entry.
type UnaryOverload struct {
	Kind      UnaryKind
	Param     *types.Type
	Result    *types.Type
	AnyLvalue bool // true for &, matched against any lvalue regardless of type
	AnyPtr    bool // true for *, matched against any pointer regardless of base
}

// BinaryOverload is a (lhs_type, rhs_type) -> result_type entry.
type BinaryOverload struct {
	Kind     BinaryKind
	Lhs, Rhs *types.Type
	Result   *types.Type
	// AnyPtrLhs/AnyIntRhs widen matching for pointer arithmetic, which is
	// defined over "any pointer" x integer rather than one fixed base type.
	AnyPtrLhs bool
	AnyIntRhs bool
}

// Table holds the pre-registered overload lists described in spec §4.1.
// Resolution picks the first overload whose operand types structurally
// match (after an allowed implicit cast); absence of a match is an error.
type Table struct {
	unary  map[UnaryKind][]UnaryOverload
	binary map[BinaryKind][]BinaryOverload
}

// NewTable builds and pre-registers the built-in overload set against the
// primitive types held by reg.
func NewTable(reg *types.Registry) *Table {
	t := &Table{
		unary:  make(map[UnaryKind][]UnaryOverload),
		binary: make(map[BinaryKind][]BinaryOverload),
	}

	intT := reg.Int()
	realT := reg.Float()
	boolT := reg.BoolT()

	// Unary: + - on integer/real; ~ on integer; ! on bool; & on any
	// lvalue; * on any pointer.
	for _, numeric := range []*types.Type{intT, realT} {
		t.addUnary(UnaryOverload{Kind: Plus, Param: numeric, Result: numeric})
		t.addUnary(UnaryOverload{Kind: Minus, Param: numeric, Result: numeric})
	}
	t.addUnary(UnaryOverload{Kind: BitwiseNot, Param: intT, Result: intT})
	t.addUnary(UnaryOverload{Kind: LogicalNot, Param: boolT, Result: boolT})
	t.addUnary(UnaryOverload{Kind: AddressOf, AnyLvalue: true})
	t.addUnary(UnaryOverload{Kind: Dereference, AnyPtr: true})

	// Arithmetic + - * / on integer/real.
	for _, k := range []BinaryKind{Add, Sub, Mul, Div} {
		t.addBinary(BinaryOverload{Kind: k, Lhs: intT, Rhs: intT, Result: intT})
		t.addBinary(BinaryOverload{Kind: k, Lhs: realT, Rhs: realT, Result: realT})
	}
	// % << >> & ^ | integer only.
	for _, k := range []BinaryKind{Rem, ShiftLeft, ShiftRight, BitwiseAnd, BitwiseXor, BitwiseOr} {
		t.addBinary(BinaryOverload{Kind: k, Lhs: intT, Rhs: intT, Result: intT})
	}
	// Pointer arithmetic: (pointer, integer) -> pointer, in bytes (§9).
	t.addBinary(BinaryOverload{Kind: Add, AnyPtrLhs: true, AnyIntRhs: true})
	t.addBinary(BinaryOverload{Kind: Sub, AnyPtrLhs: true, AnyIntRhs: true})

	// Relational on integer/real; equality/inequality also on bool.
	for _, k := range []BinaryKind{Greater, Less, GreaterEqual, LessEqual} {
		t.addBinary(BinaryOverload{Kind: k, Lhs: intT, Rhs: intT, Result: boolT})
		t.addBinary(BinaryOverload{Kind: k, Lhs: realT, Rhs: realT, Result: boolT})
	}
	for _, k := range []BinaryKind{Equal, NotEqual} {
		t.addBinary(BinaryOverload{Kind: k, Lhs: intT, Rhs: intT, Result: boolT})
		t.addBinary(BinaryOverload{Kind: k, Lhs: realT, Rhs: realT, Result: boolT})
		t.addBinary(BinaryOverload{Kind: k, Lhs: boolT, Rhs: boolT, Result: boolT})
	}

	// Compound forms mirror the non-compound overloads with lvalue lhs;
	// the lvalue requirement is enforced by the resolver via IsCompound(),
	// not encoded in the operand-type match here.
	for _, k := range []BinaryKind{CompoundAdd, CompoundSub, CompoundMul, CompoundDiv} {
		t.addBinary(BinaryOverload{Kind: k, Lhs: intT, Rhs: intT, Result: intT})
		t.addBinary(BinaryOverload{Kind: k, Lhs: realT, Rhs: realT, Result: realT})
	}
	for _, k := range []BinaryKind{CompoundRem, CompoundShiftLeft, CompoundShiftRight, CompoundBitwiseAnd, CompoundBitwiseXor, CompoundBitwiseOr} {
		t.addBinary(BinaryOverload{Kind: k, Lhs: intT, Rhs: intT, Result: intT})
	}
	t.addBinary(BinaryOverload{Kind: CompoundAdd, AnyPtrLhs: true, AnyIntRhs: true})
	t.addBinary(BinaryOverload{Kind: CompoundSub, AnyPtrLhs: true, AnyIntRhs: true})

	return t
}

func (t *Table) addUnary(o UnaryOverload)   { t.unary[o.Kind] = append(t.unary[o.Kind], o) }
func (t *Table) addBinary(o BinaryOverload) { t.binary[o.Kind] = append(t.binary[o.Kind], o) }

// ResolveUnary finds the first overload matching kind/param. For AddressOf
// and Dereference, Result is left nil: the operand type determines the
// result (pointer-to-param, or param's pointee) and the resolver — which
// owns the type Registry needed to build/unwrap a pointer type — fills it
// in from the AnyLvalue/AnyPtr flag.
func (t *Table) ResolveUnary(kind UnaryKind, param *types.Type, isLvalue bool) (UnaryOverload, bool) {
	for _, o := range t.unary[kind] {
		if o.AnyLvalue {
			if isLvalue {
				return o, true
			}
			continue
		}
		if o.AnyPtr {
			if param.Kind == types.Pointer {
				return o, true
			}
			continue
		}
		if types.Equal(o.Param, param) {
			return o, true
		}
	}
	return UnaryOverload{}, false
}

// ResolveBinary finds the first overload matching kind/lhs/rhs.
func (t *Table) ResolveBinary(kind BinaryKind, lhs, rhs *types.Type) (BinaryOverload, bool) {
	for _, o := range t.binary[kind] {
		if o.AnyPtrLhs {
			if lhs.Kind == types.Pointer && o.AnyIntRhs && rhs.Kind == types.Integer {
				return BinaryOverload{Kind: kind, Lhs: lhs, Rhs: rhs, Result: lhs}, true
			}
			continue
		}
		if types.Equal(o.Lhs, lhs) && types.Equal(o.Rhs, rhs) {
			return o, true
		}
	}
	return BinaryOverload{}, false
}
