// Package symbols implements the hierarchical symbol table of spec §3.2–3.3:
// a name → (type, address, flags) map per scope, chained to a parent scope,
// with lookup walking the chain and insertion only ever touching the
// innermost scope.
package symbols

import (
	"fmt"

	"kano/internal/types"
)

// Flags is a bit set drawn from spec §3.2.
type Flags uint32

const (
	LVALUE Flags = 1 << iota
	CONSTANT
	TYPE
	CONST_EXPR
	COMPILER_DEF
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// AddressKind tags a Symbol's storage location (§3.2).
type AddressKind int

const (
	Stack AddressKind = iota
	Global
	Code
	CCall
)

// Address is the tagged address value of spec §3.2. Block and CCall are
// opaque to this package — callers (the resolver and interpreter) know the
// concrete type (*ir.Procedure, interp.Handle) and type-assert it themselves.
type Address struct {
	Kind   AddressKind
	Offset uint64
	Block  interface{}
	CCall  interface{}
}

func StackAddress(offset uint64) Address  { return Address{Kind: Stack, Offset: offset} }
func GlobalAddress(offset uint64) Address { return Address{Kind: Global, Offset: offset} }
func CodeAddress(block interface{}) Address {
	return Address{Kind: Code, Block: block}
}
func CCallAddress(handle interface{}) Address {
	return Address{Kind: CCall, CCall: handle}
}

// Location mirrors the syntax-location shape consumed from the syntax tree
// (spec §6.1), kept on the symbol for diagnostics.
type Location struct {
	Row, Col int
}

// Symbol binds a name to (type, address, flags, location), spec §3.2.
type Symbol struct {
	Name     string
	Type     *types.Type
	Address  Address
	Flags    Flags
	Location Location

	// Ordinal is a stable index assigned in declaration order within the
	// owning Table.
	Ordinal int
}

// Table is a hash map from name to symbol with a parent pointer forming a
// chain from the innermost scope up to the global scope (§3.3).
type Table struct {
	names  map[string]*Symbol
	order  []*Symbol
	Parent *Table
}

// NewTable creates a scope chained to parent (parent may be nil for the
// global scope).
func NewTable(parent *Table) *Table {
	return &Table{
		names:  make(map[string]*Symbol),
		Parent: parent,
	}
}

// Declare inserts name into the innermost scope. Duplicate insertion in the
// same scope is an error (§3.3); shadowing an outer scope's binding is not.
func (t *Table) Declare(sym *Symbol) error {
	if _, exists := t.names[sym.Name]; exists {
		return fmt.Errorf("'%s' is already declared in this scope", sym.Name)
	}
	sym.Ordinal = len(t.order)
	t.names[sym.Name] = sym
	t.order = append(t.order, sym)
	return nil
}

// Lookup walks the scope chain from t upward and returns the first binding
// found, implementing shadowing (§3.3, "Symbol scoping" in §8).
func (t *Table) Lookup(name string) (*Symbol, bool) {
	for scope := t; scope != nil; scope = scope.Parent {
		if sym, ok := scope.names[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupLocal looks up name only in this exact scope, without walking to
// parents. Declare does its own duplicate check and does not call it.
func (t *Table) LookupLocal(name string) (*Symbol, bool) {
	sym, ok := t.names[name]
	return sym, ok
}

// Symbols returns every symbol declared directly in this scope, in
// declaration order.
func (t *Table) Symbols() []*Symbol {
	return t.order
}
