package interp

import (
	"encoding/binary"
	"math"

	"kano/internal/types"
)

// Value is the evaluator's value handle (spec §4.5): either a storage
// address (the lvalue path) or an immediate scalar copy. Imm always holds
// exactly Type.Size bytes when Addr is unset.
type Value struct {
	Type    *types.Type
	Addr    uint64
	HasAddr bool
	Imm     []byte
}

func immValue(t *types.Type, b []byte) Value { return Value{Type: t, Imm: b} }

func addrValue(t *types.Type, addr uint64) Value { return Value{Type: t, Addr: addr, HasAddr: true} }

// bytes returns the value's raw byte representation, reading through
// memory for an address-backed value.
func (m *Machine) bytes(v Value) []byte {
	if v.HasAddr {
		return m.mem.Read(v.Addr, uint64(v.Type.Size))
	}
	return v.Imm
}

func encodeInt(v int64) []byte {
	b := make([]byte, types.IntegerSize)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func encodeFloat(v float64) []byte {
	b := make([]byte, types.RealSize)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func encodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func encodePointer(v uint64) []byte {
	b := make([]byte, types.PointerSize)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func decodeInt(b []byte) int64 {
	padded := pad8(b)
	return int64(binary.LittleEndian.Uint64(padded))
}

func decodeFloat(b []byte) float64 {
	padded := pad8(b)
	return math.Float64frombits(binary.LittleEndian.Uint64(padded))
}

func decodeBool(b []byte) bool { return len(b) > 0 && b[0] != 0 }

func decodePointer(b []byte) uint64 {
	padded := pad8(b)
	return binary.LittleEndian.Uint64(padded)
}

func pad8(b []byte) []byte {
	if len(b) >= 8 {
		return b[:8]
	}
	out := make([]byte, 8)
	copy(out, b)
	return out
}

// asInt/asFloat/asBool/asPointer read v's scalar payload per its own type,
// the common path for operator evaluation and FFI argument marshalling.
func (m *Machine) asInt(v Value) int64       { return decodeInt(m.bytes(v)) }
func (m *Machine) asFloat(v Value) float64   { return decodeFloat(m.bytes(v)) }
func (m *Machine) asBool(v Value) bool       { return decodeBool(m.bytes(v)) }
func (m *Machine) asPointer(v Value) uint64  { return decodePointer(m.bytes(v)) }
func (m *Machine) asChar(v Value) byte {
	bs := m.bytes(v)
	if len(bs) == 0 {
		return 0
	}
	return bs[0]
}
