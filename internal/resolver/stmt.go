package resolver

import (
	"kano/internal/ast"
	"kano/internal/ir"
	"kano/internal/symbols"
	"kano/internal/types"
)

// resolveBlock implements §4.3's Block rule: push scope (already created by
// the caller), resolve each statement in order, remember the watermark
// reached, then restore vstack to its value on entry before returning.
func (r *Resolver) resolveBlock(b *ast.Block, scope *symbols.Table) *ir.Block {
	save := r.proc.vstack
	var head, tail *ir.Statement
	count := 0
	for _, s := range b.Statements {
		node := r.resolveStatement(s, scope)
		st := &ir.Statement{Node: node, SourceRow: s.Pos().StartRow, Scope: scope}
		if head == nil {
			head = st
		} else {
			tail.Next = st
		}
		tail = st
		count++
	}
	blk := &ir.Block{Statements: head, StatementCount: count, SymbolTable: scope, FrameSize: uint32(r.proc.peak)}
	r.proc.vstack = save
	return blk
}

func (r *Resolver) resolveStatement(n ast.Node, scope *symbols.Table) ir.Node {
	switch v := n.(type) {
	case *ast.Block:
		return r.resolveBlock(v, symbols.NewTable(scope))
	case *ast.Declaration:
		return r.resolveLocalVar(v, scope)
	case *ast.If:
		return r.resolveIf(v, scope)
	case *ast.While:
		return r.resolveWhile(v, scope)
	case *ast.Do:
		return r.resolveDo(v, scope)
	case *ast.For:
		return r.resolveFor(v, scope)
	case *ast.Return:
		return r.resolveReturn(v, scope)
	case *ast.Assignment:
		return r.resolveAssignment(v, scope)
	case *ast.Expression:
		child := r.resolveExpr(v.Child, scope)
		return ir.NewExpression(child)
	default:
		r.errorAt(n.Pos(), "internal error: unhandled statement kind %T", n)
		return ir.NewLiteral(r.errorType(), ir.IntegerLiteral)
	}
}

// stmtNode resolves n and wraps it as a single-link statement chain, used
// for If/For/While/Do bodies and clauses that aren't themselves a Block.
func (r *Resolver) stmtNode(n ast.Node, scope *symbols.Table) *ir.Statement {
	if n == nil {
		return nil
	}
	node := r.resolveStatement(n, scope)
	return &ir.Statement{Node: node, SourceRow: n.Pos().StartRow, Scope: scope}
}

func (r *Resolver) resolveLocalVar(d *ast.Declaration, scope *symbols.Table) ir.Node {
	var declType *types.Type
	var initIR ir.Node
	if d.Type != nil {
		declType = r.resolveType(d.Type)
	}
	if d.Init != nil {
		initIR = r.resolveExpr(d.Init, scope)
		if declType == nil {
			declType = initIR.Type()
		} else {
			initIR = r.implicitCast(initIR, declType, d.Loc)
		}
	}
	if declType == nil {
		r.errorAt(d.Loc, "cannot infer type for '%s' without an initializer", d.Name)
		declType = r.reg.Void()
	}

	offset := r.allocStack(declType)
	sym := &symbols.Symbol{
		Name:     d.Name,
		Type:     declType,
		Flags:    symbols.LVALUE,
		Address:  symbols.StackAddress(offset),
		Location: symbols.Location{Row: d.Loc.StartRow, Col: d.Loc.StartCol},
	}
	if err := scope.Declare(sym); err != nil {
		r.errorAt(d.Loc, "%s", err.Error())
	}
	if initIR == nil {
		// Nothing to execute: the statement's node stays nil.
		return nil
	}
	dst := ir.NewSymbolAddress(sym, 0, declType, symbols.LVALUE)
	return ir.NewAssignment(dst, initIR)
}

func (r *Resolver) resolveIf(f *ast.If, scope *symbols.Table) *ir.If {
	cond := r.resolveExpr(f.Cond, scope)
	cond = r.implicitCast(cond, r.reg.BoolT(), f.Cond.Pos())
	then := r.stmtNode(f.Then, scope)
	var els *ir.Statement
	if f.Else != nil {
		els = r.stmtNode(f.Else, scope)
	}
	return &ir.If{Cond: cond, Then: then, Else: els}
}

func (r *Resolver) resolveWhile(w *ast.While, scope *symbols.Table) *ir.While {
	cond := r.resolveExpr(w.Cond, scope)
	cond = r.implicitCast(cond, r.reg.BoolT(), w.Cond.Pos())
	body := r.stmtNode(w.Body, scope)
	return &ir.While{Cond: cond, Body: body}
}

func (r *Resolver) resolveDo(d *ast.Do, scope *symbols.Table) *ir.Do {
	body := r.stmtNode(d.Body, scope)
	cond := r.resolveExpr(d.Cond, scope)
	cond = r.implicitCast(cond, r.reg.BoolT(), d.Cond.Pos())
	return &ir.Do{Body: body, Cond: cond}
}

// resolveFor implements §4.3's For rule: a dedicated scope holds the
// induction variable, and its stack slot is released (vstack restored) once
// the loop's IR is built, just like any other nested scope.
func (r *Resolver) resolveFor(f *ast.For, scope *symbols.Table) *ir.For {
	save := r.proc.vstack
	forScope := symbols.NewTable(scope)

	var init *ir.Statement
	if f.Init != nil {
		init = r.stmtNode(f.Init, forScope)
	}
	var cond ir.Node
	if f.Cond != nil {
		cond = r.resolveExpr(f.Cond, forScope)
		cond = r.implicitCast(cond, r.reg.BoolT(), f.Cond.Pos())
	}
	var post *ir.Statement
	if f.Post != nil {
		post = r.stmtNode(f.Post, forScope)
	}
	body := r.stmtNode(f.Body, forScope)

	r.proc.vstack = save
	return &ir.For{Init: init, Cond: cond, Post: post, Body: body, Scope: forScope}
}

func (r *Resolver) resolveReturn(ret *ast.Return, scope *symbols.Table) *ir.Return {
	wantsValue := r.proc != nil && r.proc.ret != nil && r.proc.ret.Kind != types.Null
	var expr ir.Node
	if ret.Expr != nil {
		expr = r.resolveExpr(ret.Expr, scope)
		if wantsValue {
			expr = r.implicitCast(expr, r.proc.ret, ret.Loc)
		} else if r.proc != nil {
			r.errorAt(ret.Loc, "procedure returning void cannot return a value")
		}
	} else if wantsValue {
		r.errorAt(ret.Loc, "missing return value")
	}
	return ir.NewReturn(expr)
}

func (r *Resolver) resolveAssignment(a *ast.Assignment, scope *symbols.Table) ir.Node {
	dst := r.resolveExpr(a.Dst, scope)
	if !dst.Flags().Has(symbols.LVALUE) {
		r.errorAt(a.Loc, "left-hand side of assignment is not an lvalue")
	}
	if dst.Flags().Has(symbols.CONSTANT) {
		r.errorAt(a.Loc, "cannot assign to a constant")
	}

	if a.Op == "=" {
		src := r.resolveExpr(a.Src, scope)
		src = r.implicitCast(src, dst.Type(), a.Loc)
		return ir.NewAssignment(dst, src)
	}

	kind, ok := compoundAssignKinds[a.Op]
	if !ok {
		r.errorAt(a.Loc, "internal error: unknown assignment operator '%s'", a.Op)
		return ir.NewAssignment(dst, dst)
	}
	rhs := r.resolveExpr(a.Src, scope)
	combined := r.buildBinary(kind, dst, rhs, a.Loc)
	result := r.implicitCast(combined, dst.Type(), a.Loc)
	return ir.NewAssignment(dst, result)
}
