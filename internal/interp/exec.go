package interp

import (
	"fmt"

	"kano/internal/ir"
)

// execBlock runs a Block's statement chain in order, stopping early once a
// Return inside it (or inside a nested block/loop) pushes return_depth past
// save (§4.5's "Block/Statement — iterate; stop when return_depth
// increases").
func (m *Machine) execBlock(b *ir.Block, save int) {
	for s := b.Statements; s != nil; s = s.Next {
		m.execStatement(s, save)
		if m.returnDepth > save {
			return
		}
	}
}

func (m *Machine) execStatement(s *ir.Statement, save int) {
	if m.Trace != nil {
		m.Trace(s.SourceRow)
	}
	m.execNode(s.Node, save)
}

func (m *Machine) execNode(n ir.Node, save int) {
	switch v := n.(type) {
	case *ir.Block:
		m.execBlock(v, save)
	case *ir.If:
		m.execIf(v, save)
	case *ir.While:
		m.execWhile(v, save)
	case *ir.Do:
		m.execDo(v, save)
	case *ir.For:
		m.execFor(v, save)
	case *ir.Return:
		m.execReturn(v, save)
	case *ir.Assignment:
		m.evalAssignment(v)
	case *ir.Expression:
		m.eval(v.Child)
	case nil:
	default:
		panic(&RuntimeError{Message: fmt.Sprintf("interp: unhandled IR statement %T", n)})
	}
}

func (m *Machine) execIf(f *ir.If, save int) {
	if m.asBool(m.eval(f.Cond)) {
		if f.Then != nil {
			m.execStatement(f.Then, save)
		}
	} else if f.Else != nil {
		m.execStatement(f.Else, save)
	}
}

func (m *Machine) execWhile(w *ir.While, save int) {
	for m.asBool(m.eval(w.Cond)) {
		if w.Body != nil {
			m.execStatement(w.Body, save)
		}
		if m.returnDepth > save {
			return
		}
	}
}

func (m *Machine) execDo(d *ir.Do, save int) {
	for {
		if d.Body != nil {
			m.execStatement(d.Body, save)
		}
		if m.returnDepth > save {
			return
		}
		if !m.asBool(m.eval(d.Cond)) {
			return
		}
	}
}

func (m *Machine) execFor(f *ir.For, save int) {
	if f.Init != nil {
		m.execStatement(f.Init, save)
	}
	for f.Cond == nil || m.asBool(m.eval(f.Cond)) {
		if f.Body != nil {
			m.execStatement(f.Body, save)
		}
		if m.returnDepth > save {
			return
		}
		if f.Post != nil {
			m.execStatement(f.Post, save)
		}
	}
}

func (m *Machine) execReturn(r *ir.Return, save int) {
	fr := m.currentFrame()
	if r.Expr != nil {
		val := m.eval(r.Expr)
		m.mem.Write(fr.base+uint64(fr.returnOffset), m.bytes(val)[:fr.returnType.Size])
	}
	m.returnDepth++
}
