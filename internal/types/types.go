// Package types implements the Kano type registry described in spec §3.1 and
// §4.2: the canonical representation, size and alignment of every type a
// resolved program can mention, plus struct/array layout rules.
package types

import "fmt"

// Kind tags the variant a Type carries.
type Kind int

const (
	Null Kind = iota
	Integer
	Real
	Bool
	Character
	Pointer
	Procedure
	Struct
	ArrayView
	StaticArray

	kindCount
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "void"
	case Integer:
		return "int"
	case Real:
		return "float"
	case Bool:
		return "bool"
	case Character:
		return "char"
	case Pointer:
		return "pointer"
	case Procedure:
		return "procedure"
	case Struct:
		return "struct"
	case ArrayView:
		return "array_view"
	case StaticArray:
		return "static_array"
	default:
		return "unknown"
	}
}

// Primitive sizes, fixed by the source language (§3.1): Integer/Real are
// 64-bit, Bool is logically one byte, Character is a narrow integer, and
// every machine-pointer-sized quantity (Pointer, Procedure-as-value) matches
// the width of a Go uintptr on a 64-bit host.
const (
	PointerSize = 8
	IntegerSize = 8
	RealSize    = 8
	BoolSize    = 1
	CharSize    = 1
)

// Member describes one struct field: name, type and byte offset (§3.1).
type Member struct {
	Name   string
	Type   *Type
	Offset uint32
}

// Type is the tagged variant described in spec §3.1. Only the fields that
// apply to Kind are populated; the zero value of the others is ignored.
type Type struct {
	Kind      Kind
	Size      uint32
	Alignment uint32

	Base *Type // Pointer, ArrayView, StaticArray: element/pointee type

	// Procedure
	Args       []*Type
	Variadic   bool
	Return     *Type // nil means the procedure returns nothing

	// Struct
	Name    string
	ID      uint64
	Members []Member

	// StaticArray
	Count uint32
}

// Registry owns every Type object created while resolving one program (the
// "arena" of §9's design note: IR and symbols hold pointers into it, never
// copies, so recursive/self-referential types — a struct holding a pointer
// to itself — stay representable without deep copies).
type Registry struct {
	primitives map[Kind]*Type
	pointers   map[*Type]*Type
	arrays     map[*Type]*Type
	nextID     uint64
}

// NewRegistry installs the built-in primitive types.
func NewRegistry() *Registry {
	r := &Registry{
		primitives: make(map[Kind]*Type),
		pointers:   make(map[*Type]*Type),
		arrays:     make(map[*Type]*Type),
	}
	r.primitives[Null] = &Type{Kind: Null, Size: 0, Alignment: 1}
	r.primitives[Integer] = &Type{Kind: Integer, Size: IntegerSize, Alignment: IntegerSize}
	r.primitives[Real] = &Type{Kind: Real, Size: RealSize, Alignment: RealSize}
	r.primitives[Bool] = &Type{Kind: Bool, Size: BoolSize, Alignment: BoolSize}
	r.primitives[Character] = &Type{Kind: Character, Size: CharSize, Alignment: CharSize}
	return r
}

func (r *Registry) Void() *Type      { return r.primitives[Null] }
func (r *Registry) Int() *Type       { return r.primitives[Integer] }
func (r *Registry) Float() *Type     { return r.primitives[Real] }
func (r *Registry) BoolT() *Type     { return r.primitives[Bool] }
func (r *Registry) CharT() *Type     { return r.primitives[Character] }

// Primitive looks up a built-in type by source spelling, used when installing
// the global scope's `int`/`float`/`bool`/`void`/`char` type symbols.
func (r *Registry) Primitive(name string) (*Type, bool) {
	switch name {
	case "int":
		return r.Int(), true
	case "float":
		return r.Float(), true
	case "bool":
		return r.BoolT(), true
	case "char":
		return r.CharT(), true
	case "void":
		return r.Void(), true
	default:
		return nil, false
	}
}

// PointerTo returns (and interns) the pointer-to-base type.
func (r *Registry) PointerTo(base *Type) *Type {
	if t, ok := r.pointers[base]; ok {
		return t
	}
	t := &Type{Kind: Pointer, Size: PointerSize, Alignment: PointerSize, Base: base}
	r.pointers[base] = t
	return t
}

// ArrayViewOf returns (and interns) the array-view-of-element type: a
// length-prefixed fat reference, `{ int64 count, element* data }` (§3.1).
func (r *Registry) ArrayViewOf(elem *Type) *Type {
	if t, ok := r.arrays[elem]; ok {
		return t
	}
	t := &Type{Kind: ArrayView, Size: IntegerSize + PointerSize, Alignment: IntegerSize, Base: elem}
	r.arrays[elem] = t
	return t
}

// StaticArrayOf builds an inline, contiguous array type of count elements.
// Not interned: count varies per declaration site and callers may mutate the
// returned type's Count freely before it escapes the registry.
func (r *Registry) StaticArrayOf(elem *Type, count uint32) *Type {
	return &Type{
		Kind:      StaticArray,
		Size:      AlignUp(elem.Size*count, elem.Alignment),
		Alignment: elem.Alignment,
		Base:      elem,
		Count:     count,
	}
}

// NewProcedure builds a procedure type value (machine-pointer-sized when
// stored, per §3.1).
func (r *Registry) NewProcedure(args []*Type, variadic bool, ret *Type) *Type {
	return &Type{
		Kind:     Procedure,
		Size:     PointerSize,
		Alignment: PointerSize,
		Args:     args,
		Variadic: variadic,
		Return:   ret,
	}
}

// NewStruct lays out a struct per §4.2: each member at the next offset
// aligned up to its own type's alignment; the struct's alignment is the max
// of its members' alignments; its size rounds up to that alignment.
func (r *Registry) NewStruct(name string, memberNames []string, memberTypes []*Type) *Type {
	s := &Type{Kind: Struct, Name: name, ID: r.nextID}
	r.nextID++

	var offset uint32
	var align uint32 = 1
	members := make([]Member, len(memberNames))
	for i, mt := range memberTypes {
		offset = AlignUp(offset, mt.Alignment)
		members[i] = Member{Name: memberNames[i], Type: mt, Offset: offset}
		offset += mt.Size
		if mt.Alignment > align {
			align = mt.Alignment
		}
	}
	s.Members = members
	s.Alignment = align
	s.Size = AlignUp(offset, align)
	return s
}

// DeclareStruct allocates a struct type's stable identity (name + ID) ahead
// of resolving its member types, so a member can hold a pointer to the
// struct's own type (§9design note 2) without the registry needing a deep
// copy once the layout is known. Call FinishStruct once member types are
// resolved.
func (r *Registry) DeclareStruct(name string) *Type {
	s := &Type{Kind: Struct, Name: name, ID: r.nextID, Alignment: 1}
	r.nextID++
	return s
}

// FinishStruct lays out t's members in place (§4.2), so every reference to
// t obtained before layout (e.g. through a pointer field referring back to
// t) observes the final layout once resolution completes.
func (r *Registry) FinishStruct(t *Type, memberNames []string, memberTypes []*Type) {
	var offset uint32
	var align uint32 = 1
	members := make([]Member, len(memberNames))
	for i, mt := range memberTypes {
		offset = AlignUp(offset, mt.Alignment)
		members[i] = Member{Name: memberNames[i], Type: mt, Offset: offset}
		offset += mt.Size
		if mt.Alignment > align {
			align = mt.Alignment
		}
	}
	t.Members = members
	t.Alignment = align
	t.Size = AlignUp(offset, align)
}

// Member looks up a struct member by name.
func (t *Type) Member(name string) (Member, bool) {
	for _, m := range t.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// AlignUp rounds n up to the next multiple of align (align must be a power
// of two, or 1 for "no constraint").
func AlignUp(n, align uint32) uint32 {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// Equal reports structural equality (§3.1): kinds match and component data
// match recursively. Pointer identity (the common case once a Registry
// interns pointer/array-view types) is checked first as a fast path.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Null, Integer, Real, Bool, Character:
		return true
	case Pointer, ArrayView:
		return Equal(a.Base, b.Base)
	case StaticArray:
		return a.Count == b.Count && Equal(a.Base, b.Base)
	case Struct:
		return a.ID == b.ID
	case Procedure:
		if a.Variadic != b.Variadic || len(a.Args) != len(b.Args) {
			return false
		}
		if (a.Return == nil) != (b.Return == nil) {
			return false
		}
		if a.Return != nil && !Equal(a.Return, b.Return) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a type the way diagnostics and the pretty-printer refer to
// it (e.g. "*int", "[4]int", "struct V").
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Pointer:
		return "*" + t.Base.String()
	case ArrayView:
		return "[]" + t.Base.String()
	case StaticArray:
		return fmt.Sprintf("[%d]%s", t.Count, t.Base.String())
	case Struct:
		return "struct " + t.Name
	case Procedure:
		return "proc(...)"
	default:
		return t.Kind.String()
	}
}

// IsNumeric reports whether values of t participate in arithmetic.
func (t *Type) IsNumeric() bool {
	return t.Kind == Integer || t.Kind == Real
}
