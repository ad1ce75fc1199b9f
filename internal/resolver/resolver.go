// Package resolver implements spec §4.3: the two-stage walk that lowers an
// internal/ast tree into the typed internal/ir tree the interpreter runs,
// installing symbols, allocating stack/global storage, and resolving
// operators and implicit casts along the way.
//
// Grounded on the teacher's internal/resolver-shaped passes (the sentra
// interpreter type-checks inline during evaluation; Kano's resolver does it
// ahead of time, in the style of original_source/Resolver.cpp's two visits:
// declare, then descend).
package resolver

import (
	"fmt"

	"kano/internal/ast"
	"kano/internal/diagnostics"
	"kano/internal/ir"
	"kano/internal/operators"
	"kano/internal/symbols"
	"kano/internal/types"
)

// Program is everything the interpreter needs to start a run.
type Program struct {
	Types      *types.Registry
	Operators  *operators.Table
	Globals    *symbols.Table
	GlobalInit []*ir.Statement // global initializers, in declaration order
	GlobalSize uint64          // BSS watermark: size of the global/BSS segment
	Procedures []*symbols.Symbol
	Main       *symbols.Symbol // nil if no `main` was declared
}

type Resolver struct {
	reg     *types.Registry
	ops     *operators.Table
	diags   *diagnostics.Bag
	global  *symbols.Table
	bssTop  uint64
	structs map[string]*types.Type
	procs   []*symbols.Symbol

	// proc holds the state of the procedure currently under body
	// resolution; nil at global scope.
	proc *procContext
}

// procContext tracks per-procedure resolution state: the running stack
// watermark (vstack, §4.3) and the peak it ever reached.
type procContext struct {
	vstack uint64
	peak   uint64
	ret    *types.Type
}

func New(diags *diagnostics.Bag) *Resolver {
	reg := types.NewRegistry()
	return &Resolver{
		reg:     reg,
		ops:     operators.NewTable(reg),
		diags:   diags,
		global:  symbols.NewTable(nil),
		structs: make(map[string]*types.Type),
	}
}

// Resolve runs both stages of §4.3 over scope and returns the program. On
// resolve errors the returned Program may be partial; callers should check
// diags.HasErrors() before proceeding to interpretation.
func (r *Resolver) Resolve(scope *ast.GlobalScope) *Program {
	r.installPrimitiveTypeNames()

	// Stage 1a: struct stubs, so pointer-to-self and forward struct
	// references resolve regardless of declaration order.
	for _, decl := range scope.Declarations {
		if s, ok := decl.Init.(*ast.Struct); ok {
			r.declareStructStub(decl, s)
		}
	}
	// Stage 1b: finish struct layouts now that every stub exists.
	for _, decl := range scope.Declarations {
		if s, ok := decl.Init.(*ast.Struct); ok {
			r.finishStruct(decl, s)
		}
	}
	// Stage 1c: procedure signatures and symbols (Code address, body
	// filled in during stage 2).
	for _, decl := range scope.Declarations {
		if p, ok := decl.Init.(*ast.Procedure); ok {
			r.declareProcedure(decl, p)
		}
	}
	// Stage 1d: global variables, resolving their initializer eagerly and
	// allocating a BSS offset.
	var globalInit []*ir.Statement
	for _, decl := range scope.Declarations {
		switch decl.Init.(type) {
		case *ast.Struct, *ast.Procedure:
			continue
		default:
			if stmt := r.declareGlobalVar(decl); stmt != nil {
				globalInit = append(globalInit, stmt)
			}
		}
	}

	// Stage 2: resolve every procedure body.
	for _, decl := range scope.Declarations {
		if p, ok := decl.Init.(*ast.Procedure); ok && p.Body != nil {
			r.resolveProcedureBody(decl.Name, p)
		}
	}

	mainSym, _ := r.global.Lookup("main")
	return &Program{
		Types:      r.reg,
		Operators:  r.ops,
		Globals:    r.global,
		GlobalInit: globalInit,
		GlobalSize: r.bssTop,
		Procedures: r.procs,
		Main:       mainSym,
	}
}

// RegisterCCall installs a foreign-procedure symbol in the global scope
// (§6.4's register_ccall): name bound to a Procedure type with address kind
// CCall carrying handle, an opaque value the interpreter type-asserts back
// to its own foreign-call representation. Must be called before Resolve.
func (r *Resolver) RegisterCCall(name string, argTypes []*types.Type, variadic bool, ret *types.Type, handle interface{}) {
	if ret == nil {
		ret = r.reg.Void()
	}
	procType := r.reg.NewProcedure(argTypes, variadic, ret)
	sym := &symbols.Symbol{
		Name:    name,
		Type:    procType,
		Flags:   symbols.CONSTANT | symbols.COMPILER_DEF,
		Address: symbols.CCallAddress(handle),
	}
	if err := r.global.Declare(sym); err != nil {
		panic(fmt.Sprintf("resolver: duplicate built-in %q: %v", name, err))
	}
}

// Types exposes the resolver's type registry so a caller wiring built-ins
// (internal/ffi) can build argument/return types before calling Resolve.
func (r *Resolver) Types() *types.Registry { return r.reg }

func (r *Resolver) installPrimitiveTypeNames() {
	for _, name := range []string{"int", "float", "bool", "void", "char"} {
		t, _ := r.reg.Primitive(name)
		sym := &symbols.Symbol{Name: name, Type: t, Flags: symbols.TYPE | symbols.CONSTANT | symbols.COMPILER_DEF}
		_ = r.global.Declare(sym)
	}
}

func (r *Resolver) declareStructStub(decl *ast.Declaration, s *ast.Struct) {
	t := r.reg.DeclareStruct(s.Name)
	r.structs[s.Name] = t
	sym := &symbols.Symbol{
		Name:     s.Name,
		Type:     t,
		Flags:    symbols.TYPE | symbols.CONSTANT,
		Location: symbols.Location{Row: decl.Loc.StartRow, Col: decl.Loc.StartCol},
	}
	if err := r.global.Declare(sym); err != nil {
		r.errorAt(decl.Loc, "%s", err.Error())
	}
}

func (r *Resolver) finishStruct(decl *ast.Declaration, s *ast.Struct) {
	t := r.structs[s.Name]
	if t == nil {
		return
	}
	names := make([]string, len(s.Fields))
	memberTypes := make([]*types.Type, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
		memberTypes[i] = r.resolveType(f.Type)
	}
	r.reg.FinishStruct(t, names, memberTypes)
}

func (r *Resolver) declareProcedure(decl *ast.Declaration, p *ast.Procedure) {
	argTypes := make([]*types.Type, len(p.Params))
	for i, param := range p.Params {
		argTypes[i] = r.resolveType(param.Type)
	}
	var ret *types.Type
	if p.Return != nil {
		ret = r.resolveType(p.Return)
	} else {
		ret = r.reg.Void()
	}
	procType := r.reg.NewProcedure(argTypes, p.Variadic, ret)

	irProc := &ir.Procedure{Return: ret, Variadic: p.Variadic}
	sym := &symbols.Symbol{
		Name:     decl.Name,
		Type:     procType,
		Flags:    symbols.CONSTANT,
		Address:  symbols.CodeAddress(irProc),
		Location: symbols.Location{Row: decl.Loc.StartRow, Col: decl.Loc.StartCol},
	}
	if err := r.global.Declare(sym); err != nil {
		r.errorAt(decl.Loc, "%s", err.Error())
		return
	}
	r.procs = append(r.procs, sym)
}

func (r *Resolver) declareGlobalVar(decl *ast.Declaration) *ir.Statement {
	var declType *types.Type
	var initIR ir.Node
	if decl.Type != nil {
		declType = r.resolveType(decl.Type)
	}
	if decl.Init != nil {
		initIR = r.resolveExpr(decl.Init, r.global)
		if declType == nil {
			declType = initIR.Type()
		} else {
			initIR = r.implicitCast(initIR, declType, decl.Loc)
		}
	}
	if declType == nil {
		r.errorAt(decl.Loc, "cannot infer type for '%s' without an initializer", decl.Name)
		declType = r.reg.Void()
	}

	offset := types.AlignUp(uint32(r.bssTop), declType.Alignment)
	r.bssTop = uint64(offset) + uint64(declType.Size)

	sym := &symbols.Symbol{
		Name:     decl.Name,
		Type:     declType,
		Flags:    symbols.LVALUE,
		Address:  symbols.GlobalAddress(uint64(offset)),
		Location: symbols.Location{Row: decl.Loc.StartRow, Col: decl.Loc.StartCol},
	}
	if err := r.global.Declare(sym); err != nil {
		r.errorAt(decl.Loc, "%s", err.Error())
		return nil
	}
	if initIR == nil {
		return nil
	}
	dst := ir.NewSymbolAddress(sym, 0, declType, symbols.LVALUE)
	assign := ir.NewAssignment(dst, initIR)
	return &ir.Statement{Node: assign, SourceRow: decl.Loc.StartRow, Scope: r.global}
}

func (r *Resolver) resolveProcedureBody(name string, p *ast.Procedure) {
	sym, ok := r.global.Lookup(name)
	if !ok {
		return
	}
	irProc, _ := sym.Address.Block.(*ir.Procedure)
	if irProc == nil {
		return
	}

	scope := symbols.NewTable(r.global)
	r.proc = &procContext{ret: irProc.Return}

	params := make([]*symbols.Symbol, len(p.Params))
	for i, param := range p.Params {
		pt := r.resolveType(param.Type)
		offset := r.allocStack(pt)
		psym := &symbols.Symbol{
			Name:     param.Name,
			Type:     pt,
			Flags:    symbols.LVALUE,
			Address:  symbols.StackAddress(offset),
			Location: symbols.Location{Row: param.Loc.StartRow, Col: param.Loc.StartCol},
		}
		if err := scope.Declare(psym); err != nil {
			r.errorAt(param.Loc, "%s", err.Error())
		}
		params[i] = psym
	}
	if irProc.Return.Kind != types.Null {
		// The return slot occupies its own watermark-tracked region so
		// that locals never alias it (§4.4's frame layout).
		irProc.ReturnOffset = uint32(r.allocStack(irProc.Return))
	}

	body := p.Body.(*ast.Block)
	block := r.resolveBlock(body, scope)

	irProc.Params = params
	irProc.Body = block
	irProc.FrameSize = uint32(r.proc.peak)
	r.proc = nil
}

// allocStack implements §4.3's stack-slot allocation: align vstack up to
// the symbol's alignment, take the aligned offset, then bump vstack by the
// symbol's size. Callers must be inside procedure body resolution.
func (r *Resolver) allocStack(t *types.Type) uint64 {
	offset := types.AlignUp(uint32(r.proc.vstack), t.Alignment)
	r.proc.vstack = uint64(offset) + uint64(t.Size)
	if r.proc.vstack > r.proc.peak {
		r.proc.peak = r.proc.vstack
	}
	return uint64(offset)
}

func (r *Resolver) errorAt(loc ast.Location, format string, args ...interface{}) {
	r.diags.Resolve(loc.StartRow, loc.StartCol, format, args...)
}

// errorType is synthesised whenever resolution fails partway through an
// expression, so the resolver can keep walking and surface further
// diagnostics in the same pass (§7) instead of aborting immediately.
func (r *Resolver) errorType() *types.Type { return r.reg.Void() }
