// Package ffi registers Kano's foreign standard library (§6.2, §6.4): the
// handful of built-in procedures a program gets for free without declaring
// them — print, read_int, read_float, allocate, free, sin/cos/tan and the
// va_arg/va_arg_next intrinsics.
//
// Grounded on original_source/StdLib.h's include_basic: each built-in there
// is a Procedure_Builder-registered C function reading its arguments off the
// interpreter's own stack via Interp_Morph. Here each is a Go closure over
// the interp.Handle shape, registered through resolver.RegisterCCall, and
// reads its arguments from the []interp.Value slice the interpreter already
// evaluated rather than re-deriving stack offsets by hand.
package ffi

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"

	"kano/internal/interp"
	"kano/internal/resolver"
	"kano/internal/types"
)

// Register installs the standard library into res's global scope. Must be
// called before res.Resolve.
func Register(res *resolver.Resolver) {
	reg := res.Types()

	charPtr := reg.PointerTo(reg.CharT())
	voidPtr := reg.PointerTo(reg.Void())

	res.RegisterCCall("print", []*types.Type{charPtr}, true, reg.Void(), printHandle(reg.Void()))
	res.RegisterCCall("read_int", nil, false, reg.Int(), readIntHandle(reg.Int()))
	res.RegisterCCall("read_float", nil, false, reg.Float(), readFloatHandle(reg.Float()))
	res.RegisterCCall("allocate", []*types.Type{reg.Int()}, false, voidPtr, allocateHandle(voidPtr))
	res.RegisterCCall("free", []*types.Type{voidPtr}, false, nil, freeHandle(reg.Void()))
	res.RegisterCCall("sin", []*types.Type{reg.Float()}, false, reg.Float(), mathHandle(math.Sin))
	res.RegisterCCall("cos", []*types.Type{reg.Float()}, false, reg.Float(), mathHandle(math.Cos))
	res.RegisterCCall("tan", []*types.Type{reg.Float()}, false, reg.Float(), mathHandle(math.Tan))
	res.RegisterCCall("va_arg", []*types.Type{voidPtr}, false, voidPtr, interp.Handle(ffiVaArg))
	res.RegisterCCall("va_arg_next", []*types.Type{voidPtr}, false, voidPtr, interp.Handle(ffiVaArgNext))
}

func mathHandle(fn func(float64) float64) interp.Handle {
	return func(m *interp.Machine, args []interp.Value, _ []interp.VariadicArg) interp.Value {
		return interp.NewFloat(args[0].Type, fn(m.Float(args[0])))
	}
}

// printHandle implements basic_print: walk the format string, copying
// literal characters through, translating `\n`/`\\` escapes, and
// substituting one variadic argument's printed form per `%` (§6.2).
func printHandle(voidType *types.Type) interp.Handle {
	return func(m *interp.Machine, args []interp.Value, variadics []interp.VariadicArg) interp.Value {
		format := m.ReadCString(m.Pointer(args[0]))
		var out strings.Builder
		vi := 0
		for i := 0; i < len(format); i++ {
			switch format[i] {
			case '%':
				if vi < len(variadics) {
					va := variadics[vi]
					vi++
					renderValue(m, &out, va.Type, m.Bytes(va.Val))
				} else {
					out.WriteByte('%')
				}
			case '\\':
				if i+1 < len(format) {
					i++
					switch format[i] {
					case 'n':
						out.WriteByte('\n')
					case '\\':
						out.WriteByte('\\')
					default:
						out.WriteByte('\\')
						out.WriteByte(format[i])
					}
				} else {
					out.WriteByte('\\')
				}
			default:
				out.WriteByte(format[i])
			}
		}
		fmt.Fprint(m.Stdout, out.String())
		return interp.NewVoid(voidType)
	}
}

// renderValue mirrors original_source/StdLib.h's stdout_value: recursively
// renders a value's in-memory bytes according to its type, descending
// through pointers (if they refer to live storage) and aggregates.
func renderValue(m *interp.Machine, out *strings.Builder, t *types.Type, data []byte) {
	switch t.Kind {
	case types.Null:
		out.WriteString("(null)")
	case types.Character:
		out.WriteString(strconv.Itoa(int(data[0])))
	case types.Integer:
		out.WriteString(strconv.FormatInt(int64(leUint64(data)), 10))
	case types.Real:
		out.WriteString(strconv.FormatFloat(math.Float64frombits(leUint64(data)), 'f', 6, 64))
	case types.Bool:
		if data[0] != 0 {
			out.WriteString("true")
		} else {
			out.WriteString("false")
		}
	case types.Procedure:
		fmt.Fprintf(out, "0x%x", leUint64(data))
	case types.Pointer:
		addr := leUint64(data)
		out.WriteString("{ ")
		if addr != 0 {
			fmt.Fprintf(out, "raw: 0x%x, ", addr)
		} else {
			out.WriteString("raw: (null), ")
		}
		out.WriteString("value: ")
		if m.IsValidPointer(addr) {
			renderValue(m, out, t.Base, m.ReadMemory(addr, uint64(t.Base.Size)))
			out.WriteString(" ")
		} else if addr != 0 {
			out.WriteString("(garbage) ")
		} else {
			out.WriteString("(invalid) ")
		}
		out.WriteString("}")
	case types.Struct:
		out.WriteString("{ ")
		for i, mem := range t.Members {
			out.WriteString(mem.Name)
			out.WriteString(": ")
			renderValue(m, out, mem.Type, data[mem.Offset:mem.Offset+mem.Type.Size])
			if i < len(t.Members)-1 {
				out.WriteString(",")
			}
			out.WriteString(" ")
		}
		out.WriteString("}")
	case types.ArrayView:
		count := int64(leUint64(data[:8]))
		dataAddr := leUint64(data[8:16])
		out.WriteString("[ ")
		for i := int64(0); i < count; i++ {
			elemAddr := dataAddr + uint64(i)*uint64(t.Base.Size)
			renderValue(m, out, t.Base, m.ReadMemory(elemAddr, uint64(t.Base.Size)))
			out.WriteString(" ")
		}
		out.WriteString("]")
	case types.StaticArray:
		out.WriteString("[ ")
		for i := uint32(0); i < t.Count; i++ {
			off := i * t.Base.Size
			renderValue(m, out, t.Base, data[off:off+t.Base.Size])
			out.WriteString(" ")
		}
		out.WriteString("]")
	}
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func readIntHandle(intType *types.Type) interp.Handle {
	return func(m *interp.Machine, args []interp.Value, _ []interp.VariadicArg) interp.Value {
		tok, err := readToken(m.Stdin)
		var result int64
		if err == nil {
			result, _ = strconv.ParseInt(tok, 10, 64)
		} else {
			fmt.Fprintln(m.Stdout, "Failed read_int: Input buffer empty")
		}
		return interp.NewInt(intType, result)
	}
}

func readFloatHandle(floatType *types.Type) interp.Handle {
	return func(m *interp.Machine, args []interp.Value, _ []interp.VariadicArg) interp.Value {
		tok, err := readToken(m.Stdin)
		var result float64
		if err == nil {
			result, _ = strconv.ParseFloat(tok, 64)
		} else {
			fmt.Fprintln(m.Stdout, "Failed read_float: Input buffer empty")
		}
		return interp.NewFloat(floatType, result)
	}
}

func readToken(r *bufio.Reader) (string, error) {
	var b strings.Builder
	seenAny := false
	for {
		c, _, err := r.ReadRune()
		if err != nil {
			if seenAny {
				return b.String(), nil
			}
			return "", err
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			if seenAny {
				return b.String(), nil
			}
			continue
		}
		seenAny = true
		b.WriteRune(c)
	}
}

func allocateHandle(voidPtr *types.Type) interp.Handle {
	return func(m *interp.Machine, args []interp.Value, _ []interp.VariadicArg) interp.Value {
		n := m.Int(args[0])
		if n < 0 {
			m.Fault("interp: allocate called with negative size %d", n)
		}
		addr := m.AllocateHeap(uint64(n))
		return interp.NewPointer(voidPtr, addr)
	}
}

func freeHandle(voidType *types.Type) interp.Handle {
	return func(m *interp.Machine, args []interp.Value, _ []interp.VariadicArg) interp.Value {
		addr := m.Pointer(args[0])
		if addr != 0 {
			if err := m.FreeHeap(addr); err != nil {
				m.Fault("%s", err.Error())
			}
		}
		return interp.NewVoid(voidType)
	}
}

func ffiVaArg(m *interp.Machine, args []interp.Value, _ []interp.VariadicArg) interp.Value {
	ptr := m.Pointer(args[0])
	return interp.NewPointer(args[0].Type, m.VariadicValueAddr(ptr))
}

func ffiVaArgNext(m *interp.Machine, args []interp.Value, _ []interp.VariadicArg) interp.Value {
	ptr := m.Pointer(args[0])
	return interp.NewPointer(args[0].Type, m.VariadicNext(ptr))
}
