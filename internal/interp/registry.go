package interp

import (
	"github.com/mkyuone/prescribe/internal/ast"
	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/lexer"
	"github.com/mkyuone/prescribe/internal/numeric"
	"github.com/mkyuone/prescribe/internal/semantic"
	"github.com/mkyuone/prescribe/internal/types"
)

// Registry is the whole-program namespace the interpreter resolves against:
// every TYPE alias, CONSTANT, PROCEDURE, and FUNCTION in the program,
// flattened to one name table regardless of declaration nesting, plus the
// class metadata the checker already flattened the same way. A routine
// declared inside another routine's body can call its siblings (mutual
// recursion, per the checker's pre-declare pass) and is callable from the
// enclosing body, but its own body runs against only this flat table and
// its own frame — it does not close over the enclosing call's locals. The
// store model is a frame stack, not a display of static links, so this is
// the runtime counterpart of that stack.
type Registry struct {
	Types      map[string]types.Type
	Consts     map[string]Value
	EnumConsts map[string]Value
	Procs      map[string]*ast.ProcDecl
	Funcs      map[string]*ast.FuncDecl
	Classes    map[string]*semantic.ClassInfo
}

func buildRegistry(prog *ast.Program, result *semantic.Result) (*Registry, error) {
	reg := &Registry{
		Types:      make(map[string]types.Type),
		Consts:     make(map[string]Value),
		EnumConsts: make(map[string]Value),
		Procs:      make(map[string]*ast.ProcDecl),
		Funcs:      make(map[string]*ast.FuncDecl),
		Classes:    result.Syms.Classes,
	}
	var walk func(decls []ast.Decl) error
	walk = func(decls []ast.Decl) error {
		for _, d := range decls {
			switch dd := d.(type) {
			case *ast.TypeDecl:
				t, err := reg.resolveType(dd.Type)
				if err != nil {
					return err
				}
				reg.Types[dd.Name] = t
				if et, ok := t.(*types.EnumType); ok {
					et.Name = dd.Name
					for i, m := range et.Members {
						reg.EnumConsts[m] = Value{Type: et, I: int32(i)}
					}
				}
			case *ast.ConstDecl:
				v, err := reg.evalConst(dd.Value)
				if err != nil {
					return err
				}
				reg.Consts[dd.Name] = v
			case *ast.ProcDecl:
				reg.Procs[dd.Name] = dd
				if err := walk(dd.Decls); err != nil {
					return err
				}
			case *ast.FuncDecl:
				reg.Funcs[dd.Name] = dd
				if err := walk(dd.Decls); err != nil {
					return err
				}
			case *ast.ClassDecl:
				for _, m := range dd.Members {
					switch {
					case m.Proc != nil:
						if err := walk(m.Proc.Decls); err != nil {
							return err
						}
					case m.Func != nil:
						if err := walk(m.Func.Decls); err != nil {
							return err
						}
					case m.Ctor != nil:
						if err := walk(m.Ctor.Decls); err != nil {
							return err
						}
					}
				}
			}
		}
		return nil
	}
	if err := walk(prog.Decls); err != nil {
		return nil, err
	}
	return reg, nil
}

// resolveType mirrors the checker's type-expression resolution, producing
// runtime types.Type values directly rather than reusing the checker's
// Analyzer (which discards its internal state once Analyze returns).
func (r *Registry) resolveType(t ast.TypeExpr) (types.Type, error) {
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
			lo, err := r.evalConst(b.Low)
			if err != nil {
				return nil, err
			}
			hi, err := r.evalConst(b.High)
			if err != nil {
				return nil, err
			}
			bounds = append(bounds, types.Bound{Low: lo.I, High: hi.I})
		}
		elem, err := r.resolveType(tt.Element)
		if err != nil {
			return nil, err
		}
		return &types.ArrayType{Bounds: bounds, Element: elem}, nil
	case *ast.RecordType:
		var fields []types.Field
		for _, f := range tt.Fields {
			ft, err := r.resolveType(f.Type)
			if err != nil {
				return nil, err
			}
			fields = append(fields, types.Field{Name: f.Name, Type: ft})
		}
		return &types.RecordType{Fields: fields}, nil
	case *ast.EnumType:
		return &types.EnumType{Members: tt.Members}, nil
	case *ast.SetType:
		t, ok := r.Types[tt.OfName]
		if !ok {
			return nil, perr.New(perr.NameError, tt.Line(), "unknown type %q", tt.OfName)
		}
		enumT, ok := t.(*types.EnumType)
		if !ok {
			return nil, perr.New(perr.TypeError, tt.Line(), "%q is not an enum type", tt.OfName)
		}
		return &types.SetType{Base: enumT}, nil
	case *ast.PointerType:
		target, err := r.resolveType(tt.Target)
		if err != nil {
			return nil, err
		}
		return &types.PointerType{Target: target}, nil
	case *ast.TextFileType:
		return types.TextFileType, nil
	case *ast.RandomFileType:
		rt, err := r.resolveType(tt.Record)
		if err != nil {
			return nil, err
		}
		rec := rt.(*types.RecordType)
		name := ""
		if named, ok := tt.Record.(*ast.NamedType); ok {
			name = named.Name
		}
		return &types.RandomFileType{Record: rec, Name: name}, nil
	case *ast.NamedType:
		if _, ok := r.Classes[tt.Name]; ok {
			return &types.ClassType{Name: tt.Name}, nil
		}
		if t, ok := r.Types[tt.Name]; ok {
			return t, nil
		}
		return nil, perr.New(perr.NameError, tt.Line(), "unknown type %q", tt.Name)
	}
	return nil, perr.New(perr.SyntaxError, t.Line(), "unrecognized type expression")
}

// evalConst folds the restricted compile-time expression language used for
// CONSTANT declarations and array bounds: literals, previously-registered
// constants/enum members, and a fixed operator set. It does not observe any
// mutable frame state.
func (r *Registry) evalConst(e ast.Expr) (Value, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return Value{Type: types.IntegerType, I: x.Value}, nil
	case *ast.RealLit:
		return Value{Type: types.RealType, R: x.Value}, nil
	case *ast.BoolLit:
		return Value{Type: types.BooleanType, B: x.Value}, nil
	case *ast.CharLit:
		return Value{Type: types.CharType, C: x.Value}, nil
	case *ast.StringLit:
		return Value{Type: types.StringType, S: x.Value}, nil
	case *ast.DateLit:
		d, err := numeric.ParseDate(x.Line(), x.Raw)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.DateType, D: d}, nil
	case *ast.NameExpr:
		if v, ok := r.Consts[x.Name]; ok {
			return v, nil
		}
		if v, ok := r.EnumConsts[x.Name]; ok {
			return v, nil
		}
		return Value{}, perr.New(perr.NameError, x.Line(), "%q is not a known constant", x.Name)
	case *ast.UnaryExpr:
		v, err := r.evalConst(x.Operand)
		if err != nil {
			return Value{}, err
		}
		switch x.Op {
		case lexer.PLUS:
			return v, nil
		case lexer.MINUS:
			if v.Type.Tag() == types.Real {
				return Value{Type: types.RealType, R: -v.R}, nil
			}
			n, err := numeric.NegInt(x.Line(), v.I)
			if err != nil {
				return Value{}, err
			}
			return Value{Type: types.IntegerType, I: n}, nil
		case lexer.NOT:
			return Value{Type: types.BooleanType, B: !v.B}, nil
		}
	case *ast.BinaryExpr:
		l, err := r.evalConst(x.Left)
		if err != nil {
			return Value{}, err
		}
		rr, err := r.evalConst(x.Right)
		if err != nil {
			return Value{}, err
		}
		return constBinary(x.Line(), x.Op, l, rr)
	}
	return Value{}, perr.New(perr.SyntaxError, e.Line(), "expression is not a compile-time constant")
}

func constBinary(line int, op lexer.TokenType, l, r Value) (Value, error) {
	switch op {
	case lexer.PLUS, lexer.MINUS, lexer.STAR:
		if l.Type.Tag() == types.Integer {
			var v int32
			var err error
			switch op {
			case lexer.PLUS:
				v, err = numeric.AddInt(line, l.I, r.I)
			case lexer.MINUS:
				v, err = numeric.SubInt(line, l.I, r.I)
			case lexer.STAR:
				v, err = numeric.MulInt(line, l.I, r.I)
			}
			if err != nil {
				return Value{}, err
			}
			return Value{Type: types.IntegerType, I: v}, nil
		}
		var v float64
		switch op {
		case lexer.PLUS:
			v = l.R + r.R
		case lexer.MINUS:
			v = l.R - r.R
		case lexer.STAR:
			v = l.R * r.R
		}
		v, err := numeric.CheckReal(line, v)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.RealType, R: v}, nil
	case lexer.SLASH:
		lf, rf := asReal(l), asReal(r)
		v, err := numeric.RealDivide(line, lf, rf)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.RealType, R: v}, nil
	case lexer.DIV, lexer.MOD:
		q, m, err := numeric.DivMod(line, l.I, r.I)
		if err != nil {
			return Value{}, err
		}
		if op == lexer.DIV {
			return Value{Type: types.IntegerType, I: q}, nil
		}
		return Value{Type: types.IntegerType, I: m}, nil
	case lexer.AMP:
		return Value{Type: types.StringType, S: asString(l) + asString(r)}, nil
	case lexer.AND:
		return Value{Type: types.BooleanType, B: l.B && r.B}, nil
	case lexer.OR:
		return Value{Type: types.BooleanType, B: l.B || r.B}, nil
	case lexer.EQ, lexer.NEQ, lexer.LT, lexer.LTE, lexer.GT, lexer.GTE:
		cmp := compareValues(l, r)
		var result bool
		switch op {
		case lexer.EQ:
			result = cmp == 0
		case lexer.NEQ:
			result = cmp != 0
		case lexer.LT:
			result = cmp < 0
		case lexer.LTE:
			result = cmp <= 0
		case lexer.GT:
			result = cmp > 0
		case lexer.GTE:
			result = cmp >= 0
		}
		return Value{Type: types.BooleanType, B: result}, nil
	}
	return Value{}, perr.New(perr.SyntaxError, line, "operator not permitted in a constant expression")
}

func asReal(v Value) float64 {
	if v.Type.Tag() == types.Integer {
		return float64(v.I)
	}
	return v.R
}

func asString(v Value) string {
	if v.Type.Tag() == types.CharT {
		return string(v.C)
	}
	return v.S
}

// compareValues orders two values of identical comparable type; callers
// (checker-validated call sites) guarantee matching, comparable types.
func compareValues(l, r Value) int {
	switch l.Type.Tag() {
	case types.Integer:
		return compareInt(int64(l.I), int64(r.I))
	case types.Real:
		return compareFloat(l.R, r.R)
	case types.CharT:
		return compareInt(int64(l.C), int64(r.C))
	case types.StringT:
		return compareString(l.S, r.S)
	case types.DateT:
		return l.D.Compare(r.D)
	case types.Enum:
		return compareInt(int64(l.I), int64(r.I))
	case types.BooleanT:
		return compareInt(boolToInt(l.B), boolToInt(r.B))
	}
	return 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
