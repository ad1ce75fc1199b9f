package interp

import (
	"fmt"

	"kano/internal/ir"
	"kano/internal/operators"
	"kano/internal/types"
)

// eval implements §4.5's evaluator dispatch over one IR expression node,
// returning a value handle.
func (m *Machine) eval(n ir.Node) Value {
	switch v := n.(type) {
	case *ir.Literal:
		return m.evalLiteral(v)
	case *ir.Address:
		return m.evalAddress(v)
	case *ir.TypeCast:
		return m.evalCast(v)
	case *ir.UnaryOp:
		return m.evalUnary(v)
	case *ir.BinaryOp:
		return m.evalBinary(v)
	case *ir.Assignment:
		return m.evalAssignment(v)
	case *ir.ProcedureCall:
		return m.evalCall(v)
	case *ir.Subscript:
		return m.evalSubscript(v)
	case *ir.Expression:
		return m.eval(v.Child)
	default:
		panic(&RuntimeError{Message: fmt.Sprintf("interp: unhandled IR expression %T", n)})
	}
}

func (m *Machine) evalLiteral(l *ir.Literal) Value {
	switch l.Kind {
	case ir.IntegerLiteral:
		return immValue(l.Type(), encodeInt(l.IntValue))
	case ir.RealLiteral:
		return immValue(l.Type(), encodeFloat(l.RealValue))
	case ir.BoolLiteral:
		return immValue(l.Type(), encodeBool(l.BoolValue))
	case ir.PointerLiteral:
		return immValue(l.Type(), encodePointer(0))
	case ir.StringLiteral:
		addr, ok := m.rodata[l.StrValue]
		if !ok {
			// Defensive: every string literal is interned before Run starts.
			panic(&RuntimeError{Message: "interp: string literal was never interned"})
		}
		return immValue(l.Type(), encodePointer(addr))
	default:
		panic(&RuntimeError{Message: "interp: unhandled literal kind"})
	}
}

func (m *Machine) evalAddress(a *ir.Address) Value {
	if a.Symbol != nil {
		return addrValue(a.Type(), m.symbolAddr(a.Symbol)+uint64(a.ExtraOffset))
	}
	base := m.childAddress(a.Child)
	return addrValue(a.Type(), base+uint64(a.ExtraOffset))
}

// childAddress resolves the base address a computed Address/Subscript
// builds on top of: for a pointer-typed child, the child's own stored
// pointer *value*; for an aggregate (struct/static-array) child, the
// child's own storage address (it must already be an lvalue — aggregates
// are never passed around as bare immediates in this implementation).
func (m *Machine) childAddress(child ir.Node) uint64 {
	v := m.eval(child)
	switch child.Type().Kind {
	case types.Pointer:
		return m.asPointer(v)
	default:
		if !v.HasAddr {
			panic(&RuntimeError{Message: "interp: aggregate value has no storage address"})
		}
		return v.Addr
	}
}

func (m *Machine) evalCast(c *ir.TypeCast) Value {
	from := c.Child.Type()
	to := c.Type()
	src := m.eval(c.Child)

	if types.Equal(from, to) {
		return src
	}

	switch {
	case from.Kind == types.Integer && to.Kind == types.Real:
		return immValue(to, encodeFloat(float64(m.asInt(src))))
	case from.Kind == types.Bool && to.Kind == types.Integer:
		b := int64(0)
		if m.asBool(src) {
			b = 1
		}
		return immValue(to, encodeInt(b))
	case from.Kind == types.Integer && to.Kind == types.Bool:
		return immValue(to, encodeBool(m.asInt(src) != 0))
	case from.Kind == types.Real && to.Kind == types.Bool:
		return immValue(to, encodeBool(m.asFloat(src) != 0))
	case from.Kind == types.Real && to.Kind == types.Integer:
		return immValue(to, encodeInt(int64(m.asFloat(src))))
	case from.Kind == types.StaticArray && to.Kind == types.ArrayView:
		if !src.HasAddr {
			panic(&RuntimeError{Message: "interp: static array value has no storage address to view"})
		}
		return immValue(to, encodeArrayView(int64(from.Count), src.Addr))
	case from.Kind == types.Pointer && to.Kind == types.Pointer:
		return immValue(to, encodePointer(m.asPointer(src)))
	default:
		panic(&RuntimeError{Message: fmt.Sprintf("interp: unsupported cast %s -> %s", from.String(), to.String())})
	}
}

func encodeArrayView(count int64, data uint64) []byte {
	out := make([]byte, types.IntegerSize+types.PointerSize)
	copy(out[0:8], encodeInt(count))
	copy(out[8:16], encodePointer(data))
	return out
}

func decodeArrayView(b []byte) (count int64, data uint64) {
	return decodeInt(b[0:8]), decodePointer(b[8:16])
}

func (m *Machine) evalUnary(u *ir.UnaryOp) Value {
	switch u.Op {
	case operators.AddressOf:
		child := m.eval(u.Child)
		if !child.HasAddr {
			panic(&RuntimeError{Message: "interp: cannot take the address of a non-lvalue"})
		}
		return immValue(u.Type(), encodePointer(child.Addr))
	case operators.Dereference:
		child := m.eval(u.Child)
		return addrValue(u.Type(), m.asPointer(child))
	}

	child := m.eval(u.Child)
	switch u.ParamType.Kind {
	case types.Integer:
		n := m.asInt(child)
		switch u.Op {
		case operators.Plus:
			return immValue(u.Type(), encodeInt(n))
		case operators.Minus:
			return immValue(u.Type(), encodeInt(-n))
		case operators.BitwiseNot:
			return immValue(u.Type(), encodeInt(^n))
		}
	case types.Real:
		f := m.asFloat(child)
		switch u.Op {
		case operators.Plus:
			return immValue(u.Type(), encodeFloat(f))
		case operators.Minus:
			return immValue(u.Type(), encodeFloat(-f))
		}
	case types.Bool:
		if u.Op == operators.LogicalNot {
			return immValue(u.Type(), encodeBool(!m.asBool(child)))
		}
	}
	panic(&RuntimeError{Message: "interp: unhandled unary operator"})
}

func (m *Machine) evalBinary(b *ir.BinaryOp) Value {
	left := m.eval(b.Left)
	right := m.eval(b.Right)
	kind := b.Op
	if kind.IsCompound() {
		kind = kind.NonCompound()
	}

	// Pointer (+/-) integer is byte arithmetic, unscaled (§9 design note 1).
	if b.LeftType.Kind == types.Pointer && b.RightType.Kind == types.Integer {
		p := m.asPointer(left)
		n := m.asInt(right)
		switch kind {
		case operators.Add:
			return immValue(b.Type(), encodePointer(p+uint64(n)))
		case operators.Sub:
			return immValue(b.Type(), encodePointer(p-uint64(n)))
		}
	}

	if b.LeftType.Kind == types.Integer && b.RightType.Kind == types.Integer {
		l, r := m.asInt(left), m.asInt(right)
		switch kind {
		case operators.Add:
			return immValue(b.Type(), encodeInt(l+r))
		case operators.Sub:
			return immValue(b.Type(), encodeInt(l-r))
		case operators.Mul:
			return immValue(b.Type(), encodeInt(l*r))
		case operators.Div:
			if r == 0 {
				panic(&RuntimeError{Message: "interp: integer division by zero"})
			}
			return immValue(b.Type(), encodeInt(l/r))
		case operators.Rem:
			if r == 0 {
				panic(&RuntimeError{Message: "interp: integer division by zero"})
			}
			return immValue(b.Type(), encodeInt(l%r))
		case operators.ShiftLeft:
			return immValue(b.Type(), encodeInt(l<<uint64(r)))
		case operators.ShiftRight:
			return immValue(b.Type(), encodeInt(l>>uint64(r)))
		case operators.BitwiseAnd:
			return immValue(b.Type(), encodeInt(l&r))
		case operators.BitwiseXor:
			return immValue(b.Type(), encodeInt(l^r))
		case operators.BitwiseOr:
			return immValue(b.Type(), encodeInt(l|r))
		case operators.Greater:
			return immValue(b.Type(), encodeBool(l > r))
		case operators.Less:
			return immValue(b.Type(), encodeBool(l < r))
		case operators.GreaterEqual:
			return immValue(b.Type(), encodeBool(l >= r))
		case operators.LessEqual:
			return immValue(b.Type(), encodeBool(l <= r))
		case operators.Equal:
			return immValue(b.Type(), encodeBool(l == r))
		case operators.NotEqual:
			return immValue(b.Type(), encodeBool(l != r))
		}
	}

	if b.LeftType.Kind == types.Real && b.RightType.Kind == types.Real {
		l, r := m.asFloat(left), m.asFloat(right)
		switch kind {
		case operators.Add:
			return immValue(b.Type(), encodeFloat(l+r))
		case operators.Sub:
			return immValue(b.Type(), encodeFloat(l-r))
		case operators.Mul:
			return immValue(b.Type(), encodeFloat(l*r))
		case operators.Div:
			if r == 0 {
				panic(&RuntimeError{Message: "interp: floating-point division by zero"})
			}
			return immValue(b.Type(), encodeFloat(l/r))
		case operators.Greater:
			return immValue(b.Type(), encodeBool(l > r))
		case operators.Less:
			return immValue(b.Type(), encodeBool(l < r))
		case operators.GreaterEqual:
			return immValue(b.Type(), encodeBool(l >= r))
		case operators.LessEqual:
			return immValue(b.Type(), encodeBool(l <= r))
		case operators.Equal:
			return immValue(b.Type(), encodeBool(l == r))
		case operators.NotEqual:
			return immValue(b.Type(), encodeBool(l != r))
		}
	}

	if b.LeftType.Kind == types.Bool && b.RightType.Kind == types.Bool {
		l, r := m.asBool(left), m.asBool(right)
		switch kind {
		case operators.Equal:
			return immValue(b.Type(), encodeBool(l == r))
		case operators.NotEqual:
			return immValue(b.Type(), encodeBool(l != r))
		}
	}

	panic(&RuntimeError{Message: fmt.Sprintf("interp: unhandled binary operator over %s, %s", b.LeftType.String(), b.RightType.String())})
}

func (m *Machine) evalAssignment(a *ir.Assignment) Value {
	src := m.eval(a.Src)
	data := m.bytes(src)
	dst := m.eval(a.Dst)
	if !dst.HasAddr {
		panic(&RuntimeError{Message: "interp: assignment target has no storage address"})
	}
	m.mem.Write(dst.Addr, data[:dst.Type.Size])
	return dst
}

func (m *Machine) evalSubscript(s *ir.Subscript) Value {
	base := m.eval(s.Base)
	index := m.asInt(m.eval(s.Index))
	elemSize := int64(s.Type().Size)

	var dataAddr uint64
	switch s.Base.Type().Kind {
	case types.Pointer:
		dataAddr = m.asPointer(base)
	case types.StaticArray:
		if !base.HasAddr {
			panic(&RuntimeError{Message: "interp: static array value has no storage address"})
		}
		dataAddr = base.Addr
	case types.ArrayView:
		_, data := decodeArrayView(m.bytes(base))
		dataAddr = data
	default:
		panic(&RuntimeError{Message: "interp: cannot subscript this type at runtime"})
	}
	return addrValue(s.Type(), uint64(int64(dataAddr)+index*elemSize))
}
