// Package printer renders a parsed internal/ast tree back to indented
// source text (SPEC_FULL.md §11), grounded on the teacher's
// internal/formatter.Formatter: an indent-tracking strings.Builder walking
// the syntax tree by type switch, blank-line heuristics between top-level
// declarations, one source line per statement. Multi-line bodies are
// indented with github.com/kr/text rather than a hand-rolled per-line
// prefixer, consistent with the rest of the ambient stack's text tooling.
package printer

import (
	"fmt"
	"strings"

	"github.com/kr/text"

	"kano/internal/ast"
)

const indentUnit = "    "

type Printer struct {
	out strings.Builder
}

func New() *Printer { return &Printer{} }

// Format renders scope's declarations in source order, with a blank line
// between procedure/struct declarations (mirroring the teacher's
// needsBlankLine heuristic for function/import boundaries).
func (p *Printer) Format(scope *ast.GlobalScope) string {
	p.out.Reset()
	for i, decl := range scope.Declarations {
		p.formatDeclaration(decl)
		if i < len(scope.Declarations)-1 && p.needsBlankLine(decl, scope.Declarations[i+1]) {
			p.out.WriteString("\n")
		}
	}
	return p.out.String()
}

func (p *Printer) needsBlankLine(curr, next *ast.Declaration) bool {
	_, currProc := curr.Init.(*ast.Procedure)
	_, nextProc := next.Init.(*ast.Procedure)
	_, currStruct := curr.Init.(*ast.Struct)
	_, nextStruct := next.Init.(*ast.Struct)
	return currProc || nextProc || currStruct || nextStruct
}

func (p *Printer) formatDeclaration(decl *ast.Declaration) {
	switch init := decl.Init.(type) {
	case *ast.Struct:
		p.formatStruct(decl.Name, init)
	case *ast.Procedure:
		p.formatProcedure(decl.Name, init)
	default:
		p.formatVarDecl(decl)
	}
}

func (p *Printer) formatVarDecl(decl *ast.Declaration) {
	fmt.Fprintf(&p.out, "var %s", decl.Name)
	if decl.Type != nil {
		fmt.Fprintf(&p.out, " : %s", formatType(decl.Type))
	}
	if decl.Init != nil {
		fmt.Fprintf(&p.out, " = %s", formatExpr(decl.Init))
	}
	p.out.WriteString(";\n")
}

func (p *Printer) formatStruct(name string, s *ast.Struct) {
	fmt.Fprintf(&p.out, "struct %s {\n", name)
	var body strings.Builder
	for _, f := range s.Fields {
		fmt.Fprintf(&body, "%s : %s;\n", f.Name, formatType(f.Type))
	}
	p.out.WriteString(text.Indent(body.String(), indentUnit))
	p.out.WriteString("}\n")
}

func (p *Printer) formatProcedure(name string, proc *ast.Procedure) {
	fmt.Fprintf(&p.out, "proc %s(", name)
	for i, param := range proc.Params {
		if i > 0 {
			p.out.WriteString(", ")
		}
		fmt.Fprintf(&p.out, "%s : %s", param.Name, formatType(param.Type))
	}
	if proc.Variadic {
		if len(proc.Params) > 0 {
			p.out.WriteString(", ")
		}
		p.out.WriteString("...")
	}
	p.out.WriteString(")")
	if proc.Return != nil {
		fmt.Fprintf(&p.out, " : %s", formatType(proc.Return))
	}
	if proc.Body == nil {
		p.out.WriteString(";\n")
		return
	}
	p.out.WriteString(" {\n")
	body := formatBlock(proc.Body.(*ast.Block))
	p.out.WriteString(text.Indent(body, indentUnit))
	p.out.WriteString("}\n")
}

func formatBlock(b *ast.Block) string {
	var out strings.Builder
	for _, stmt := range b.Statements {
		formatStatementInto(&out, stmt)
	}
	return out.String()
}

// formatBody renders an if/while/do/for body. The parser hands back a
// braced *ast.Block for `{ ... }` bodies and a bare statement node for a
// braceless single-statement body; fmt always normalizes output to brace
// form either way.
func formatBody(n ast.Node) string {
	if s, ok := n.(*ast.Statement); ok {
		n = s.Node
	}
	if b, ok := n.(*ast.Block); ok {
		return formatBlock(b)
	}
	var out strings.Builder
	formatStatementInto(&out, n)
	return out.String()
}

func formatStatementInto(out *strings.Builder, n ast.Node) {
	s, ok := n.(*ast.Statement)
	if ok {
		n = s.Node
	}
	switch v := n.(type) {
	case *ast.Declaration:
		out.WriteString("var ")
		out.WriteString(v.Name)
		if v.Type != nil {
			out.WriteString(" : ")
			out.WriteString(formatType(v.Type))
		}
		if v.Init != nil {
			out.WriteString(" = ")
			out.WriteString(formatExpr(v.Init))
		}
		out.WriteString(";\n")
	case *ast.Assignment:
		fmt.Fprintf(out, "%s %s %s;\n", formatExpr(v.Dst), v.Op, formatExpr(v.Src))
	case *ast.Expression:
		out.WriteString(formatExpr(v.Child))
		out.WriteString(";\n")
	case *ast.Return:
		out.WriteString("return")
		if v.Expr != nil {
			out.WriteString(" ")
			out.WriteString(formatExpr(v.Expr))
		}
		out.WriteString(";\n")
	case *ast.If:
		fmt.Fprintf(out, "if (%s) {\n", formatExpr(v.Cond))
		out.WriteString(text.Indent(formatBody(v.Then), indentUnit))
		if v.Else != nil {
			out.WriteString("} else {\n")
			out.WriteString(text.Indent(formatBody(v.Else), indentUnit))
		}
		out.WriteString("}\n")
	case *ast.While:
		fmt.Fprintf(out, "while (%s) {\n", formatExpr(v.Cond))
		out.WriteString(text.Indent(formatBody(v.Body), indentUnit))
		out.WriteString("}\n")
	case *ast.Do:
		out.WriteString("do {\n")
		out.WriteString(text.Indent(formatBody(v.Body), indentUnit))
		fmt.Fprintf(out, "} while (%s);\n", formatExpr(v.Cond))
	case *ast.For:
		out.WriteString("for (")
		if v.Init != nil {
			var init strings.Builder
			formatStatementInto(&init, v.Init)
			out.WriteString(strings.TrimSuffix(strings.TrimSuffix(init.String(), "\n"), ";"))
		}
		out.WriteString("; ")
		if v.Cond != nil {
			out.WriteString(formatExpr(v.Cond))
		}
		out.WriteString("; ")
		if v.Post != nil {
			var post strings.Builder
			formatStatementInto(&post, v.Post)
			out.WriteString(strings.TrimSuffix(strings.TrimSuffix(post.String(), "\n"), ";"))
		}
		out.WriteString(") {\n")
		out.WriteString(text.Indent(formatBody(v.Body), indentUnit))
		out.WriteString("}\n")
	case *ast.Block:
		out.WriteString("{\n")
		out.WriteString(text.Indent(formatBlock(v), indentUnit))
		out.WriteString("}\n")
	case nil:
	default:
		out.WriteString(formatExpr(n))
		out.WriteString(";\n")
	}
}

func formatType(n ast.Node) string {
	t, ok := n.(*ast.TypeNode)
	if !ok {
		return formatExpr(n)
	}
	switch {
	case t.Pointer != nil:
		return "*" + formatType(t.Pointer)
	case t.ArrayOf != nil:
		return "[]" + formatType(t.ArrayOf)
	case t.StaticOf != nil:
		return fmt.Sprintf("[%d]%s", t.Count, formatType(t.StaticOf))
	default:
		return t.Name
	}
}

func formatExpr(n ast.Node) string {
	switch v := n.(type) {
	case nil:
		return ""
	case *ast.Literal:
		switch v.Kind {
		case ast.IntegerLiteral:
			return fmt.Sprintf("%d", v.IntValue)
		case ast.RealLiteral:
			return fmt.Sprintf("%g", v.RealValue)
		case ast.BoolLiteral:
			return fmt.Sprintf("%t", v.BoolValue)
		case ast.StringLiteral:
			return fmt.Sprintf("%q", v.StrValue)
		case ast.NullPointerLiteral:
			return "null"
		}
		return ""
	case *ast.Identifier:
		return v.Name
	case *ast.UnaryOp:
		return v.Op + formatExpr(v.Child)
	case *ast.BinaryOp:
		return fmt.Sprintf("%s %s %s", formatExpr(v.Left), v.Op, formatExpr(v.Right))
	case *ast.TypeCast:
		return fmt.Sprintf("%s as %s", formatExpr(v.Expr), formatType(v.Type))
	case *ast.SizeOf:
		return fmt.Sprintf("sizeof(%s)", formatType(v.Type))
	case *ast.TypeOf:
		return fmt.Sprintf("typeof(%s)", formatExpr(v.Expr))
	case *ast.ProcedureCall:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = formatExpr(a)
		}
		return fmt.Sprintf("%s(%s)", formatExpr(v.Callee), strings.Join(args, ", "))
	case *ast.Subscript:
		return fmt.Sprintf("%s[%s]", formatExpr(v.Base), formatExpr(v.Index))
	case *ast.Member:
		return fmt.Sprintf("%s.%s", formatExpr(v.Base), v.Name)
	case *ast.TypeNode:
		return formatType(v)
	default:
		return ""
	}
}
