package ast

import (
	"fmt"
	"strings"
)

type Decl interface {
	Node
	declNode()
}

type VarDecl struct {
	LineNo int
	Name   string
	Type   TypeExpr
}

type ConstDecl struct {
	LineNo int
	Name   string
	Value  Expr
}

type TypeDecl struct {
	LineNo int
	Name   string
	Type   TypeExpr
}

type Param struct {
	LineNo int
	Name   string
	Type   TypeExpr
	Mode   ParamMode
}

type ProcDecl struct {
	LineNo int
	Name   string
	Params []Param
	Decls  []Decl // local DECLARE/CONSTANT/TYPE, preceding Body
	Body   *Block
}

type FuncDecl struct {
	LineNo     int
	Name       string
	Params     []Param
	ReturnType TypeExpr
	Decls      []Decl
	Body       *Block
}

type ConstructorDecl struct {
	LineNo int
	Params []Param
	Decls  []Decl
	Body   *Block
}

// ClassMember is either a field (VarDecl), a method (ProcDecl/FuncDecl), or
// the single constructor (ConstructorDecl), each tagged with its access
// section.
type ClassMember struct {
	Access Access
	Field  *VarDecl
	Proc   *ProcDecl
	Func   *FuncDecl
	Ctor   *ConstructorDecl
}

type ClassDecl struct {
	LineNo  int
	Name    string
	Base    string // "" if no EXTENDS clause
	Members []ClassMember
}

func (*VarDecl) declNode()         {}
func (*ConstDecl) declNode()       {}
func (*TypeDecl) declNode()        {}
func (*ProcDecl) declNode()        {}
func (*FuncDecl) declNode()        {}
func (*ConstructorDecl) declNode() {}
func (*ClassDecl) declNode()       {}

func (d *VarDecl) Line() int         { return d.LineNo }
func (d *ConstDecl) Line() int       { return d.LineNo }
func (d *TypeDecl) Line() int        { return d.LineNo }
func (d *ProcDecl) Line() int        { return d.LineNo }
func (d *FuncDecl) Line() int        { return d.LineNo }
func (d *ConstructorDecl) Line() int { return d.LineNo }
func (d *ClassDecl) Line() int       { return d.LineNo }

func (d *VarDecl) String() string   { return fmt.Sprintf("DECLARE %s : %s", d.Name, d.Type) }
func (d *ConstDecl) String() string { return fmt.Sprintf("CONSTANT %s = %s", d.Name, d.Value) }
func (d *TypeDecl) String() string  { return fmt.Sprintf("TYPE %s = %s", d.Name, d.Type) }

func (p Param) String() string {
	mode := "BYVAL"
	if p.Mode == ByRef {
		mode = "BYREF"
	}
	return fmt.Sprintf("%s %s : %s", mode, p.Name, p.Type)
}

func paramList(params []Param) string {
	var ps []string
	for _, p := range params {
		ps = append(ps, p.String())
	}
	return strings.Join(ps, ", ")
}

func (d *ProcDecl) String() string {
	return fmt.Sprintf("PROCEDURE %s(%s) ... ENDPROCEDURE", d.Name, paramList(d.Params))
}
func (d *FuncDecl) String() string {
	return fmt.Sprintf("FUNCTION %s(%s) RETURNS %s ... ENDFUNCTION", d.Name, paramList(d.Params), d.ReturnType)
}
func (d *ConstructorDecl) String() string {
	return fmt.Sprintf("CONSTRUCTOR NEW(%s) ... ENDCONSTRUCTOR", paramList(d.Params))
}
func (d *ClassDecl) String() string {
	if d.Base != "" {
		return fmt.Sprintf("CLASS %s EXTENDS %s ... ENDCLASS", d.Name, d.Base)
	}
	return fmt.Sprintf("CLASS %s ... ENDCLASS", d.Name)
}

// Program is the root AST node: PROGRAM <name> <decls+stmts> ENDPROGRAM.
type Program struct {
	LineNo     int
	Name       string
	Decls      []Decl
	Statements []Stmt
}

func (p *Program) Line() int { return p.LineNo }
func (p *Program) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PROGRAM %s\n", p.Name)
	for _, d := range p.Decls {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	for _, s := range p.Statements {
		sb.WriteString(s.String())
		sb.WriteString("\n")
	}
	sb.WriteString("ENDPROGRAM\n")
	return sb.String()
}
