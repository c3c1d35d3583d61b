package semantic

import (
	"fmt"

	"github.com/mkyuone/prescribe/internal/ast"
	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/types"
)

// Result is everything the interpreter needs after a successful check: the
// symbol table (global scope + class metadata) and a per-expression type
// map recording what the checker inferred for every expression node.
type Result struct {
	Syms  *SymbolTable
	Types map[ast.Expr]types.Type
}

// TypeOf returns the checker-recorded type of e; it panics if e was never
// type-checked, which would indicate an interpreter/checker mismatch.
func (r *Result) TypeOf(e ast.Expr) types.Type {
	t, ok := r.Types[e]
	if !ok {
		panic(fmt.Sprintf("internal error: no recorded type for expression %s", e))
	}
	return t
}

// Analyzer performs the two-phase symbol binding and full static type
// check described in the spec's §4.4.
type Analyzer struct {
	syms         *SymbolTable
	types        map[ast.Expr]types.Type
	currentClass *ClassInfo
	returnType   types.Type // nil while inside a procedure/program body
	inFunction   bool
}

// Analyze type-checks prog from scratch and returns the bound symbol table
// and type map, or the first diagnostic encountered.
func Analyze(prog *ast.Program) (*Result, error) {
	a := &Analyzer{syms: NewSymbolTable(), types: make(map[ast.Expr]types.Type)}
	if err := a.checkBody(prog.Decls, prog.Statements); err != nil {
		return nil, err
	}
	return &Result{Syms: a.syms, Types: a.types}, nil
}

func (a *Analyzer) setType(e ast.Expr, t types.Type) types.Type {
	a.types[e] = t
	return t
}

// preDeclare registers the *names* of types, classes, procedures, and
// functions in the current scope so mutually recursive bodies can refer to
// each other regardless of textual order.
func (a *Analyzer) preDeclare(decls []ast.Decl) error {
	for _, d := range decls {
		switch dd := d.(type) {
		case *ast.TypeDecl:
			if _, exists := a.syms.Current().ResolveLocal(dd.Name); exists {
				return perr.New(perr.NameError, dd.Line(), "type %q already declared", dd.Name)
			}
			a.syms.Define(&Symbol{Name: dd.Name, Kind: KindType, Decl: dd})
		case *ast.ClassDecl:
			if _, exists := a.syms.Classes[dd.Name]; exists {
				return perr.New(perr.NameError, dd.Line(), "class %q already declared", dd.Name)
			}
			ci := &ClassInfo{Name: dd.Name, BaseName: dd.Base, Decl: dd}
			a.syms.Classes[dd.Name] = ci
			a.syms.Define(&Symbol{Name: dd.Name, Kind: KindClass, Type: &types.ClassType{Name: dd.Name}, Decl: dd})
		case *ast.ProcDecl:
			if _, exists := a.syms.Current().ResolveLocal(dd.Name); exists {
				return perr.New(perr.NameError, dd.Line(), "%q already declared", dd.Name)
			}
			sig, err := a.resolveSignature(dd.Params, nil)
			if err != nil {
				return err
			}
			a.syms.Define(&Symbol{Name: dd.Name, Kind: KindProc, Signature: sig, Decl: dd})
		case *ast.FuncDecl:
			if _, exists := a.syms.Current().ResolveLocal(dd.Name); exists {
				return perr.New(perr.NameError, dd.Line(), "%q already declared", dd.Name)
			}
			rt, err := a.resolveTypeExpr(dd.ReturnType)
			if err != nil {
				return err
			}
			sig, err := a.resolveSignature(dd.Params, rt)
			if err != nil {
				return err
			}
			a.syms.Define(&Symbol{Name: dd.Name, Kind: KindFunc, Signature: sig, Type: rt, Decl: dd})
		}
	}
	return nil
}

func (a *Analyzer) resolveSignature(params []ast.Param, ret types.Type) (*Signature, error) {
	sig := &Signature{Return: ret}
	for _, p := range params {
		t, err := a.resolveTypeExpr(p.Type)
		if err != nil {
			return nil, err
		}
		sig.Params = append(sig.Params, ParamInfo{Name: p.Name, Type: t, Mode: p.Mode})
	}
	return sig, nil
}

// resolveTypesAndClasses fills in the concrete Type for every pre-declared
// TYPE alias and completes each ClassInfo's base link, field table, and
// method table.
func (a *Analyzer) resolveTypesAndClasses(decls []ast.Decl) error {
	for _, d := range decls {
		if dd, ok := d.(*ast.TypeDecl); ok {
			t, err := a.resolveTypeExpr(dd.Type)
			if err != nil {
				return err
			}
			sym, _ := a.syms.Current().ResolveLocal(dd.Name)
			sym.Type = t
			if enumType, ok := t.(*types.EnumType); ok {
				enumType.Name = dd.Name
				for i, m := range enumType.Members {
					a.syms.Define(&Symbol{
						Name: m, Kind: KindEnumMember, Type: enumType,
						Const: &Const{Type: enumType, I: int32(i)},
					})
				}
			}
		}
	}
	// Link base classes before flattening any fields/methods, so inherited
	// lookups work regardless of declaration order.
	for _, ci := range a.syms.Classes {
		if ci.BaseName != "" {
			base, ok := a.syms.Classes[ci.BaseName]
			if !ok {
				return perr.New(perr.NameError, ci.Decl.Line(), "unknown base class %q", ci.BaseName)
			}
			ci.Base = base
		}
	}
	for _, d := range decls {
		if cd, ok := d.(*ast.ClassDecl); ok {
			if err := a.resolveClassMembers(a.syms.Classes[cd.Name]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Analyzer) resolveClassMembers(ci *ClassInfo) error {
	for _, m := range ci.Decl.Members {
		switch {
		case m.Field != nil:
			t, err := a.resolveTypeExpr(m.Field.Type)
			if err != nil {
				return err
			}
			ci.Fields = append(ci.Fields, &Symbol{
				Name: m.Field.Name, Kind: KindField, Type: t, Access: m.Access,
				Owner: ci, Decl: m.Field,
			})
		case m.Proc != nil:
			sig, err := a.resolveSignature(m.Proc.Params, nil)
			if err != nil {
				return err
			}
			ci.Methods = append(ci.Methods, &Symbol{
				Name: m.Proc.Name, Kind: KindMethod, Signature: sig, Access: m.Access,
				Owner: ci, Decl: m.Proc, IsFunction: false,
			})
		case m.Func != nil:
			rt, err := a.resolveTypeExpr(m.Func.ReturnType)
			if err != nil {
				return err
			}
			sig, err := a.resolveSignature(m.Func.Params, rt)
			if err != nil {
				return err
			}
			ci.Methods = append(ci.Methods, &Symbol{
				Name: m.Func.Name, Kind: KindMethod, Signature: sig, Type: rt, Access: m.Access,
				Owner: ci, Decl: m.Func, IsFunction: true,
			})
		case m.Ctor != nil:
			if ci.Constructor != nil {
				return perr.New(perr.SyntaxError, m.Ctor.Line(), "class %q already has a constructor", ci.Name)
			}
			sig, err := a.resolveSignature(m.Ctor.Params, nil)
			if err != nil {
				return err
			}
			ci.Constructor = &Symbol{Name: "NEW", Kind: KindConstructor, Signature: sig, Access: m.Access, Owner: ci, Decl: m.Ctor}
		}
	}
	return nil
}

// resolveTypeExpr converts an ast.TypeExpr into a semantic types.Type,
// evaluating array bounds as compile-time constants.
func (a *Analyzer) resolveTypeExpr(t ast.TypeExpr) (types.Type, error) {
	switch tt := t.(type) {
	case *ast.BasicType:
		switch tt.Name {
		case "INTEGER":
			return types.IntegerType, nil
		case "REAL":
			return types.RealType, nil
		case "BOOLEAN":
			return types.BooleanType, nil
		case "CHAR":
			return types.CharType, nil
		case "STRING":
			return types.StringType, nil
		case "DATE":
			return types.DateType, nil
		}
		return nil, perr.New(perr.TypeError, tt.Line(), "unknown basic type %q", tt.Name)
	case *ast.ArrayType:
		var bounds []types.Bound
		for _, b := range tt.Bounds {
			lo, err := a.evalConst(b.Low)
			if err != nil {
				return nil, err
			}
			hi, err := a.evalConst(b.High)
			if err != nil {
				return nil, err
			}
			if lo.Type.Tag() != types.Integer || hi.Type.Tag() != types.Integer {
				return nil, perr.New(perr.TypeError, tt.Line(), "array bounds must be Integer")
			}
			if hi.I < lo.I {
				return nil, perr.New(perr.RangeError, tt.Line(), "array bound %d:%d is empty", lo.I, hi.I)
			}
			bounds = append(bounds, types.Bound{Low: lo.I, High: hi.I})
		}
		elem, err := a.resolveTypeExpr(tt.Element)
		if err != nil {
			return nil, err
		}
		return &types.ArrayType{Bounds: bounds, Element: elem}, nil
	case *ast.RecordType:
		var fields []types.Field
		for _, f := range tt.Fields {
			ft, err := a.resolveTypeExpr(f.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, types.Field{Name: f.Name, Type: ft})
		}
		return &types.RecordType{Fields: fields}, nil
	case *ast.EnumType:
		return &types.EnumType{Members: tt.Members}, nil
	case *ast.SetType:
		sym, ok := a.syms.Resolve(tt.OfName)
		if !ok {
			return nil, perr.New(perr.NameError, tt.Line(), "unknown type %q", tt.OfName)
		}
		enumT, ok := sym.Type.(*types.EnumType)
		if !ok {
			return nil, perr.New(perr.TypeError, tt.Line(), "%q is not an enum type", tt.OfName)
		}
		return &types.SetType{Base: enumT}, nil
	case *ast.PointerType:
		target, err := a.resolveTypeExpr(tt.Target)
		if err != nil {
			return nil, err
		}
		return &types.PointerType{Target: target}, nil
	case *ast.TextFileType:
		return types.TextFileType, nil
	case *ast.RandomFileType:
		rt, err := a.resolveTypeExpr(tt.Record)
		if err != nil {
			return nil, err
		}
		rec, ok := rt.(*types.RecordType)
		if !ok {
			return nil, perr.New(perr.TypeError, tt.Line(), "RANDOMFILE OF requires a record type")
		}
		if !types.IsFixedLayout(rec) {
			return nil, perr.New(perr.TypeError, tt.Line(), "random-file records cannot contain String, Set, Pointer, or Class fields")
		}
		name := ""
		if named, ok := tt.Record.(*ast.NamedType); ok {
			name = named.Name
		}
		return &types.RandomFileType{Record: rec, Name: name}, nil
	case *ast.NamedType:
		sym, ok := a.syms.Resolve(tt.Name)
		if !ok {
			return nil, perr.New(perr.NameError, tt.Line(), "unknown type %q", tt.Name)
		}
		switch sym.Kind {
		case KindClass:
			return &types.ClassType{Name: tt.Name}, nil
		case KindType:
			if sym.Type == nil {
				return nil, perr.New(perr.NameError, tt.Line(), "type %q is not yet resolved (forward alias cycle?)", tt.Name)
			}
			return sym.Type, nil
		default:
			return nil, perr.New(perr.TypeError, tt.Line(), "%q is not a type", tt.Name)
		}
	}
	return nil, perr.New(perr.SyntaxError, t.Line(), "unrecognized type expression")
}
