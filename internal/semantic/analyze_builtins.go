package semantic

import (
	"github.com/mkyuone/prescribe/internal/ast"
	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/types"
)

// builtinNames is the fixed standard-library surface from §4.6; anything
// else spelled like a call resolves as a user procedure/function/method.
var builtinNames = map[string]bool{
	"LENGTH": true, "RIGHT": true, "MID": true, "LCASE": true, "UCASE": true,
	"INT": true, "REAL": true, "STRING": true, "CHAR": true, "BOOLEAN": true,
	"DATE": true, "ORD": true, "ENUMVALUE": true, "SIZE": true, "RAND": true,
}

func (a *Analyzer) checkCall(x *ast.CallExpr) (types.Type, error) {
	if name, ok := calleeName(x.Callee); ok && builtinNames[name] {
		return a.checkBuiltinCall(x, name)
	}
	switch callee := x.Callee.(type) {
	case *ast.NameExpr:
		sym, ok := a.syms.Resolve(callee.Name)
		if !ok || (sym.Kind != KindFunc && sym.Kind != KindProc) {
			if a.currentClass != nil {
				if m, owner := a.currentClass.LookupMethod(callee.Name); m != nil {
					if m.Access == ast.Private && a.currentClass != owner {
						return nil, perr.New(perr.AccessError, x.Line(), "method %q is private to %q", callee.Name, owner.Name)
					}
					if err := a.checkArgs(x.Line(), m.Signature, x.Args); err != nil {
						return nil, err
					}
					if !m.IsFunction {
						return a.setType(x, nil), nil
					}
					return a.setType(x, m.Type), nil
				}
			}
			return nil, perr.New(perr.NameError, x.Line(), "%q is not a known procedure or function", callee.Name)
		}
		if err := a.checkArgs(x.Line(), sym.Signature, x.Args); err != nil {
			return nil, err
		}
		if sym.Kind == KindProc {
			return a.setType(x, nil), nil
		}
		return a.setType(x, sym.Type), nil
	case *ast.FieldExpr:
		bt, err := a.checkExpr(callee.Base)
		if err != nil {
			return nil, err
		}
		ct, ok := bt.(*types.ClassType)
		if !ok {
			return nil, perr.New(perr.TypeError, x.Line(), "method call requires a class reference")
		}
		ci, ok := a.syms.Classes[ct.Name]
		if !ok {
			return nil, perr.New(perr.NameError, x.Line(), "unknown class %q", ct.Name)
		}
		m, owner := ci.LookupMethod(callee.Field)
		if m == nil {
			return nil, perr.New(perr.NameError, x.Line(), "class %q has no method %q", ct.Name, callee.Field)
		}
		if m.Access == ast.Private && a.currentClass != owner {
			return nil, perr.New(perr.AccessError, x.Line(), "method %q is private to %q", callee.Field, owner.Name)
		}
		if err := a.checkArgs(x.Line(), m.Signature, x.Args); err != nil {
			return nil, err
		}
		if !m.IsFunction {
			return a.setType(x, nil), nil
		}
		return a.setType(x, m.Type), nil
	}
	return nil, perr.New(perr.TypeError, x.Line(), "expression is not callable")
}

func calleeName(e ast.Expr) (string, bool) {
	if n, ok := e.(*ast.NameExpr); ok {
		return n.Name, true
	}
	return "", false
}

func (a *Analyzer) checkBuiltinCall(x *ast.CallExpr, name string) (types.Type, error) {
	line := x.Line()
	argTypes := func() ([]types.Type, error) {
		var ts []types.Type
		for _, arg := range x.Args {
			t, err := a.checkExpr(arg)
			if err != nil {
				return nil, err
			}
			ts = append(ts, t)
		}
		return ts, nil
	}
	switch name {
	case "LENGTH":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 1 || ts[0].Tag() != types.StringT {
			return nil, perr.New(perr.TypeError, line, "LENGTH expects (String)")
		}
		return a.setType(x, types.IntegerType), nil
	case "RIGHT":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 2 || ts[0].Tag() != types.StringT || ts[1].Tag() != types.Integer {
			return nil, perr.New(perr.TypeError, line, "RIGHT expects (String, Integer)")
		}
		return a.setType(x, types.StringType), nil
	case "MID":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 3 || ts[0].Tag() != types.StringT || ts[1].Tag() != types.Integer || ts[2].Tag() != types.Integer {
			return nil, perr.New(perr.TypeError, line, "MID expects (String, Integer, Integer)")
		}
		return a.setType(x, types.StringType), nil
	case "LCASE", "UCASE":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 1 || ts[0].Tag() != types.StringT {
			return nil, perr.New(perr.TypeError, line, "%s expects (String)", name)
		}
		return a.setType(x, types.StringType), nil
	case "INT":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 1 || ts[0].Tag() != types.Real {
			return nil, perr.New(perr.TypeError, line, "INT expects (Real)")
		}
		return a.setType(x, types.IntegerType), nil
	case "REAL":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 1 || ts[0].Tag() != types.Integer {
			return nil, perr.New(perr.TypeError, line, "REAL expects (Integer)")
		}
		return a.setType(x, types.RealType), nil
	case "STRING":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 1 || !isOutputtableScalar(ts[0]) {
			return nil, perr.New(perr.TypeError, line, "STRING expects a single scalar argument")
		}
		return a.setType(x, types.StringType), nil
	case "CHAR":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 1 || ts[0].Tag() != types.Integer {
			return nil, perr.New(perr.TypeError, line, "CHAR expects (Integer)")
		}
		return a.setType(x, types.CharType), nil
	case "BOOLEAN":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 1 || ts[0].Tag() != types.StringT {
			return nil, perr.New(perr.TypeError, line, "BOOLEAN expects (String)")
		}
		return a.setType(x, types.BooleanType), nil
	case "DATE":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 1 || ts[0].Tag() != types.StringT {
			return nil, perr.New(perr.TypeError, line, "DATE expects (String)")
		}
		return a.setType(x, types.DateType), nil
	case "ORD":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 1 || ts[0].Tag() != types.Enum {
			return nil, perr.New(perr.TypeError, line, "ORD expects an enum value")
		}
		return a.setType(x, types.IntegerType), nil
	case "SIZE":
		ts, err := argTypes()
		if err != nil {
			return nil, err
		}
		if len(ts) != 1 || ts[0].Tag() != types.SetOf {
			return nil, perr.New(perr.TypeError, line, "SIZE expects a set value")
		}
		return a.setType(x, types.IntegerType), nil
	case "RAND":
		if len(x.Args) != 0 {
			return nil, perr.New(perr.TypeError, line, "RAND expects no arguments")
		}
		return a.setType(x, types.RealType), nil
	case "ENUMVALUE":
		if len(x.Args) != 2 {
			return nil, perr.New(perr.TypeError, line, "ENUMVALUE expects (type name, Integer)")
		}
		nameExpr, ok := x.Args[0].(*ast.NameExpr)
		if !ok {
			return nil, perr.New(perr.TypeError, line, "ENUMVALUE's first argument must be a compile-time known enum type name")
		}
		sym, ok := a.syms.Resolve(nameExpr.Name)
		if !ok || sym.Kind != KindType {
			return nil, perr.New(perr.NameError, line, "unknown type %q", nameExpr.Name)
		}
		enumT, ok := sym.Type.(*types.EnumType)
		if !ok {
			return nil, perr.New(perr.TypeError, line, "%q is not an enum type", nameExpr.Name)
		}
		a.setType(nameExpr, enumT)
		kt, err := a.checkExpr(x.Args[1])
		if err != nil {
			return nil, err
		}
		if kt.Tag() != types.Integer {
			return nil, perr.New(perr.TypeError, line, "ENUMVALUE's second argument must be Integer")
		}
		return a.setType(x, enumT), nil
	}
	return nil, perr.New(perr.NameError, line, "unknown built-in %q", name)
}

func isOutputtableScalar(t types.Type) bool {
	switch t.Tag() {
	case types.Array, types.Record, types.SetOf, types.Pointer, types.ClassT, types.TextFile, types.RandomFile:
		return false
	}
	return true
}
