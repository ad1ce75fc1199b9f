package interp

import "kano/internal/ir"

// collectStrings walks every reachable IR node in prog and returns the
// distinct string literal values it contains, in first-seen order. String
// literals have no dedicated storage in the resolver's BSS watermark (§3.1
// models a string as Pointer-to-Character with no byte payload); the
// interpreter instead lays them out itself, in a rodata region appended
// after the global segment, before a run starts.
func (m *Machine) collectStrings() []string {
	seen := make(map[string]bool)
	var order []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			order = append(order, s)
		}
	}

	var walkStmt func(*ir.Statement)
	var walkNode func(ir.Node)

	walkNode = func(n ir.Node) {
		switch v := n.(type) {
		case nil:
		case *ir.Literal:
			if v.Kind == ir.StringLiteral {
				add(v.StrValue)
			}
		case *ir.Address:
			walkNode(v.Child)
		case *ir.TypeCast:
			walkNode(v.Child)
		case *ir.UnaryOp:
			walkNode(v.Child)
		case *ir.BinaryOp:
			walkNode(v.Left)
			walkNode(v.Right)
		case *ir.Expression:
			walkNode(v.Child)
		case *ir.Assignment:
			walkNode(v.Dst)
			walkNode(v.Src)
		case *ir.Return:
			walkNode(v.Expr)
		case *ir.ProcedureCall:
			walkNode(v.Callee)
			for _, a := range v.Args {
				walkNode(a)
			}
			for _, a := range v.Variadics {
				walkNode(a)
			}
		case *ir.Subscript:
			walkNode(v.Base)
			walkNode(v.Index)
		case *ir.If:
			walkNode(v.Cond)
			walkStmt(v.Then)
			walkStmt(v.Else)
		case *ir.For:
			walkStmt(v.Init)
			walkNode(v.Cond)
			walkStmt(v.Post)
			walkStmt(v.Body)
		case *ir.While:
			walkNode(v.Cond)
			walkStmt(v.Body)
		case *ir.Do:
			walkStmt(v.Body)
			walkNode(v.Cond)
		case *ir.Block:
			for s := v.Statements; s != nil; s = s.Next {
				walkStmt(s)
			}
		}
	}
	walkStmt = func(s *ir.Statement) {
		if s == nil {
			return
		}
		walkNode(s.Node)
	}

	for _, s := range m.prog.GlobalInit {
		walkStmt(s)
	}
	for _, sym := range m.prog.Procedures {
		if p := procOf(sym); p != nil && p.Body != nil {
			walkNode(p.Body)
		}
	}
	return order
}

// internStrings lays out every distinct string literal as a NUL-terminated
// byte run in the tail of the global segment and records its address, so
// `ir.StringLiteral` evaluation is a map lookup rather than a fresh
// allocation on every evaluation.
func (m *Machine) internStrings() {
	for _, s := range m.collectStrings() {
		addr := uint64(len(m.mem.global))
		m.mem.global = append(m.mem.global, []byte(s)...)
		m.mem.global = append(m.mem.global, 0)
		m.rodata[s] = globalBase + addr
	}
}
