// Package ast defines the typed node model produced by the parser: one
// family each for declarations, statements, expressions, and type
// expressions. Every node carries its originating source line so later
// stages (checker, interpreter) can report diagnostics against it.
package ast

import (
	"fmt"
	"strings"

	"github.com/mkyuone/prescribe/internal/lexer"
)

// Node is the root interface implemented by every AST node.
type Node interface {
	Line() int
	String() string
}

// ParamMode distinguishes by-value from by-reference parameters.
type ParamMode int

const (
	ByValue ParamMode = iota
	ByRef
)

// Access is the visibility modifier of a class member.
type Access int

const (
	AccessDefault Access = iota
	Public
	Private
)

func (a Access) String() string {
	switch a {
	case Public:
		return "PUBLIC"
	case Private:
		return "PRIVATE"
	default:
		return ""
	}
}

// ---------------------------------------------------------------------
// Type expressions
// ---------------------------------------------------------------------

// TypeExpr is the AST representation of a type as written in source.
type TypeExpr interface {
	Node
	typeExprNode()
}

type BasicType struct {
	LineNo int
	Name   string // INTEGER, REAL, BOOLEAN, CHAR, STRING, DATE
}

type ArrayBound struct {
	Low, High Expr
}

type ArrayType struct {
	LineNo  int
	Bounds  []ArrayBound
	Element TypeExpr
}

type RecordField struct {
	LineNo int
	Name   string
	Type   TypeExpr
}

type RecordType struct {
	LineNo int
	Fields []RecordField
}

type EnumType struct {
	LineNo  int
	Members []string
}

type SetType struct {
	LineNo  int
	OfName  string // name of the base enum type
	IsOfExp TypeExpr
}

type PointerType struct {
	LineNo int
	Target TypeExpr
}

type TextFileType struct{ LineNo int }

type RandomFileType struct {
	LineNo int
	Record TypeExpr // named reference to a record type
}

// NamedType is a reference to a previously declared type or class by name.
type NamedType struct {
	LineNo int
	Name   string
}

func (t *BasicType) typeExprNode()      {}
func (t *ArrayType) typeExprNode()      {}
func (t *RecordType) typeExprNode()     {}
func (t *EnumType) typeExprNode()       {}
func (t *SetType) typeExprNode()        {}
func (t *PointerType) typeExprNode()    {}
func (t *TextFileType) typeExprNode()   {}
func (t *RandomFileType) typeExprNode() {}
func (t *NamedType) typeExprNode()      {}

func (t *BasicType) Line() int      { return t.LineNo }
func (t *ArrayType) Line() int      { return t.LineNo }
func (t *RecordType) Line() int     { return t.LineNo }
func (t *EnumType) Line() int       { return t.LineNo }
func (t *SetType) Line() int        { return t.LineNo }
func (t *PointerType) Line() int    { return t.LineNo }
func (t *TextFileType) Line() int   { return t.LineNo }
func (t *RandomFileType) Line() int { return t.LineNo }
func (t *NamedType) Line() int      { return t.LineNo }

func (t *BasicType) String() string { return t.Name }
func (t *ArrayType) String() string {
	var bounds []string
	for _, b := range t.Bounds {
		bounds = append(bounds, fmt.Sprintf("%s:%s", b.Low, b.High))
	}
	return fmt.Sprintf("ARRAY[%s] OF %s", strings.Join(bounds, ", "), t.Element)
}
func (t *RecordType) String() string {
	var fields []string
	for _, f := range t.Fields {
		fields = append(fields, fmt.Sprintf("%s : %s", f.Name, f.Type))
	}
	return fmt.Sprintf("RECORD %s ENDRECORD", strings.Join(fields, " "))
}
func (t *EnumType) String() string {
	return fmt.Sprintf("(%s)", strings.Join(t.Members, ", "))
}
func (t *SetType) String() string        { return fmt.Sprintf("SET OF %s", t.OfName) }
func (t *PointerType) String() string    { return fmt.Sprintf("POINTER TO %s", t.Target) }
func (t *TextFileType) String() string   { return "TEXTFILE" }
func (t *RandomFileType) String() string { return fmt.Sprintf("RANDOMFILE OF %s", t.Record) }
func (t *NamedType) String() string      { return t.Name }

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

type Expr interface {
	Node
	exprNode()
}

type IntLit struct {
	LineNo int
	Value  int32
}

type RealLit struct {
	LineNo int
	Value  float64
}

type BoolLit struct {
	LineNo int
	Value  bool
}

type CharLit struct {
	LineNo int
	Value  rune
}

type StringLit struct {
	LineNo int
	Value  string
}

type DateLit struct {
	LineNo int
	Raw    string // unparsed "YYYY-MM-DD" text, validated by the checker
}

type NullLit struct{ LineNo int }

type NameExpr struct {
	LineNo int
	Name   string
}

type BinaryExpr struct {
	LineNo      int
	Op          lexer.TokenType
	Left, Right Expr
}

type UnaryExpr struct {
	LineNo int
	Op     lexer.TokenType // PLUS, MINUS, NOT, AT (a prefix CARET builds a DerefExpr)
	Operand Expr
}

// DerefExpr is produced when CARET is used as a prefix unary operator; it is
// kept distinct from UnaryExpr so the checker/interpreter can treat it as an
// lvalue without a type switch on Op.
type DerefExpr struct {
	LineNo  int
	Operand Expr
}

type CallExpr struct {
	LineNo int
	Callee Expr // NameExpr or FieldExpr (Obj.Method)
	Args   []Expr
}

type IndexExpr struct {
	LineNo  int
	Base    Expr
	Indices []Expr
}

type FieldExpr struct {
	LineNo int
	Base   Expr
	Field  string
}

// NewExpr covers both "NEW ClassName(args)" object construction and
// "NEW Type" pointer-target allocation.
type NewExpr struct {
	LineNo    int
	TypeName  string
	Args      []Expr // non-nil only for class construction
	IsClass   bool
}

type EOFExpr struct {
	LineNo int
	Handle string
}

func (*IntLit) exprNode()    {}
func (*RealLit) exprNode()   {}
func (*BoolLit) exprNode()   {}
func (*CharLit) exprNode()   {}
func (*StringLit) exprNode() {}
func (*DateLit) exprNode()   {}
func (*NullLit) exprNode()   {}
func (*NameExpr) exprNode()  {}
func (*BinaryExpr) exprNode(){}
func (*UnaryExpr) exprNode() {}
func (*DerefExpr) exprNode() {}
func (*CallExpr) exprNode()  {}
func (*IndexExpr) exprNode() {}
func (*FieldExpr) exprNode() {}
func (*NewExpr) exprNode()   {}
func (*EOFExpr) exprNode()   {}

func (e *IntLit) Line() int     { return e.LineNo }
func (e *RealLit) Line() int    { return e.LineNo }
func (e *BoolLit) Line() int    { return e.LineNo }
func (e *CharLit) Line() int    { return e.LineNo }
func (e *StringLit) Line() int  { return e.LineNo }
func (e *DateLit) Line() int    { return e.LineNo }
func (e *NullLit) Line() int    { return e.LineNo }
func (e *NameExpr) Line() int   { return e.LineNo }
func (e *BinaryExpr) Line() int { return e.LineNo }
func (e *UnaryExpr) Line() int  { return e.LineNo }
func (e *DerefExpr) Line() int  { return e.LineNo }
func (e *CallExpr) Line() int   { return e.LineNo }
func (e *IndexExpr) Line() int  { return e.LineNo }
func (e *FieldExpr) Line() int  { return e.LineNo }
func (e *NewExpr) Line() int    { return e.LineNo }
func (e *EOFExpr) Line() int    { return e.LineNo }

func (e *IntLit) String() string    { return fmt.Sprintf("%d", e.Value) }
func (e *RealLit) String() string   { return fmt.Sprintf("%g", e.Value) }
func (e *BoolLit) String() string {
	if e.Value {
		return "TRUE"
	}
	return "FALSE"
}
func (e *CharLit) String() string   { return fmt.Sprintf("'%c'", e.Value) }
func (e *StringLit) String() string { return fmt.Sprintf("%q", e.Value) }
func (e *DateLit) String() string   { return fmt.Sprintf("DATE %q", e.Raw) }
func (e *NullLit) String() string   { return "NULL" }
func (e *NameExpr) String() string  { return e.Name }
func (e *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}
func (e *UnaryExpr) String() string { return fmt.Sprintf("(%s%s)", e.Op, e.Operand) }
func (e *DerefExpr) String() string { return fmt.Sprintf("^%s", e.Operand) }
func (e *CallExpr) String() string {
	var args []string
	for _, a := range e.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s(%s)", e.Callee, strings.Join(args, ", "))
}
func (e *IndexExpr) String() string {
	var idx []string
	for _, i := range e.Indices {
		idx = append(idx, i.String())
	}
	return fmt.Sprintf("%s[%s]", e.Base, strings.Join(idx, ", "))
}
func (e *FieldExpr) String() string { return fmt.Sprintf("%s.%s", e.Base, e.Field) }
func (e *NewExpr) String() string {
	if e.IsClass {
		var args []string
		for _, a := range e.Args {
			args = append(args, a.String())
		}
		return fmt.Sprintf("NEW %s(%s)", e.TypeName, strings.Join(args, ", "))
	}
	return fmt.Sprintf("NEW %s", e.TypeName)
}
func (e *EOFExpr) String() string { return fmt.Sprintf("EOF(%s)", e.Handle) }
