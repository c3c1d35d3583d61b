// Package semantic implements Prescribe's symbol binding, constant folding,
// and static type checking: the "Symbol table & scopes", "Constant
// evaluator", and "Type checker" components of the spec.
package semantic

import (
	"github.com/mkyuone/prescribe/internal/ast"
	"github.com/mkyuone/prescribe/internal/types"
)

// Kind is the category of a bound name.
type Kind int

const (
	KindVar Kind = iota
	KindConst
	KindType
	KindProc
	KindFunc
	KindClass
	KindField
	KindMethod
	KindConstructor
	KindParam
	KindEnumMember
)

// ParamInfo is the resolved signature of one parameter.
type ParamInfo struct {
	Name string
	Type types.Type
	Mode ast.ParamMode
}

// Signature is the resolved parameter/return shape of a routine or method.
// Return is nil for procedures.
type Signature struct {
	Params []ParamInfo
	Return types.Type
}

// Symbol is one bound name: a variable, constant, type alias, routine,
// class, or class member.
type Symbol struct {
	Name       string
	Kind       Kind
	Type       types.Type // variable/const/field/param type, alias target, function return type, or class reference; nil for procedures and constructors
	Signature  *Signature // non-nil for Proc/Func/Method/Constructor
	IsFunction bool       // for Method: true if FUNCTION, false if PROCEDURE
	Access     ast.Access
	Owner      *ClassInfo // non-nil for Field/Method/Constructor
	Decl       ast.Node   // the declaring AST node
	Const      *Const     // non-nil for Const/EnumMember
	IsLoopVar  bool        // true while a FOR loop counter is in scope
}

// ClassInfo collects a class's flattened member tables and inheritance link.
type ClassInfo struct {
	Name        string
	BaseName    string
	Base        *ClassInfo
	Decl        *ast.ClassDecl
	Fields      []*Symbol // declared order, this class only (not inherited)
	Methods     []*Symbol // declared order, this class only
	Constructor *Symbol   // nil if none declared
}

// AllFields returns fields from the root base downward, then this class's
// own fields — the order objects are initialized in.
func (c *ClassInfo) AllFields() []*Symbol {
	if c == nil {
		return nil
	}
	var fields []*Symbol
	fields = append(fields, c.Base.AllFields()...)
	fields = append(fields, c.Fields...)
	return fields
}

// LookupMethod walks this class then its base chain for a method named
// name, returning the symbol and the ClassInfo that declares it.
func (c *ClassInfo) LookupMethod(name string) (*Symbol, *ClassInfo) {
	for cur := c; cur != nil; cur = cur.Base {
		for _, m := range cur.Methods {
			if m.Name == name {
				return m, cur
			}
		}
	}
	return nil, nil
}

// LookupField walks this class then its base chain for a field named name.
func (c *ClassInfo) LookupField(name string) (*Symbol, *ClassInfo) {
	for cur := c; cur != nil; cur = cur.Base {
		for _, f := range cur.Fields {
			if f.Name == name {
				return f, cur
			}
		}
	}
	return nil, nil
}

// IsDescendantOf reports whether c is o or derives from o, directly or
// transitively, used for the assignability of class references.
func (c *ClassInfo) IsDescendantOf(o *ClassInfo) bool {
	for cur := c; cur != nil; cur = cur.Base {
		if cur == o {
			return true
		}
	}
	return false
}

// Scope is one nested lexical block: a map of names visible only within it,
// chained to its enclosing scope.
type Scope struct {
	symbols map[string]*Symbol
	outer   *Scope
}

func newScope(outer *Scope) *Scope {
	return &Scope{symbols: make(map[string]*Symbol), outer: outer}
}

// Define binds name in this scope, replacing any existing binding of the
// same name in this scope; callers check ResolveLocal first where
// redeclaration is an error.
func (s *Scope) Define(sym *Symbol) { s.symbols[sym.Name] = sym }

// ResolveLocal looks up name only in this scope, not its ancestors.
func (s *Scope) ResolveLocal(name string) (*Symbol, bool) {
	sym, ok := s.symbols[name]
	return sym, ok
}

// Resolve looks up name in this scope and, failing that, every enclosing
// scope — "every declared name resolves to exactly one symbol in the
// innermost enclosing scope".
func (s *Scope) Resolve(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.outer {
		if sym, ok := sc.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// SymbolTable owns the global scope, the current scope chain during
// checking, and the class metadata table.
type SymbolTable struct {
	Global  *Scope
	current *Scope
	Classes map[string]*ClassInfo
}

func NewSymbolTable() *SymbolTable {
	g := newScope(nil)
	return &SymbolTable{Global: g, current: g, Classes: make(map[string]*ClassInfo)}
}

// Current returns the innermost active scope.
func (t *SymbolTable) Current() *Scope { return t.current }

// Push enters a new child scope of the current one.
func (t *SymbolTable) Push() *Scope {
	t.current = newScope(t.current)
	return t.current
}

// Pop exits the current scope, returning to its parent.
func (t *SymbolTable) Pop() {
	if t.current.outer != nil {
		t.current = t.current.outer
	}
}

// Define binds sym in the current scope.
func (t *SymbolTable) Define(sym *Symbol) { t.current.Define(sym) }

// Resolve looks up name starting from the current scope.
func (t *SymbolTable) Resolve(name string) (*Symbol, bool) { return t.current.Resolve(name) }
