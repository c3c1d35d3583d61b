package semantic

import (
	"github.com/mkyuone/prescribe/internal/ast"
	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/lexer"
	"github.com/mkyuone/prescribe/internal/numeric"
	"github.com/mkyuone/prescribe/internal/types"
)

// checkExpr type-checks e, recording its type in the checker's type map and
// returning it.
func (a *Analyzer) checkExpr(e ast.Expr) (types.Type, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return a.setType(e, types.IntegerType), nil
	case *ast.RealLit:
		return a.setType(e, types.RealType), nil
	case *ast.BoolLit:
		return a.setType(e, types.BooleanType), nil
	case *ast.CharLit:
		return a.setType(e, types.CharType), nil
	case *ast.StringLit:
		return a.setType(e, types.StringType), nil
	case *ast.DateLit:
		if _, err := numeric.ParseDate(x.Line(), x.Raw); err != nil {
			return nil, err
		}
		return a.setType(e, types.DateType), nil
	case *ast.NullLit:
		return a.setType(e, types.NullType), nil
	case *ast.NameExpr:
		return a.checkName(x)
	case *ast.BinaryExpr:
		return a.checkBinary(x)
	case *ast.UnaryExpr:
		return a.checkUnary(x)
	case *ast.DerefExpr:
		return a.checkDeref(x)
	case *ast.CallExpr:
		return a.checkCall(x)
	case *ast.IndexExpr:
		return a.checkIndex(x)
	case *ast.FieldExpr:
		return a.checkField(x)
	case *ast.NewExpr:
		return a.checkNew(x)
	case *ast.EOFExpr:
		if _, ok := a.syms.Resolve(x.Handle); !ok {
			return nil, perr.New(perr.NameError, x.Line(), "undeclared file handle %q", x.Handle)
		}
		return a.setType(e, types.BooleanType), nil
	}
	return nil, perr.New(perr.SyntaxError, e.Line(), "unrecognized expression")
}

func (a *Analyzer) checkName(x *ast.NameExpr) (types.Type, error) {
	sym, ok := a.syms.Resolve(x.Name)
	if !ok {
		if a.currentClass != nil {
			if fld, owner := a.currentClass.LookupField(x.Name); fld != nil {
				if fld.Access == ast.Private && a.currentClass != owner {
					return nil, perr.New(perr.AccessError, x.Line(), "field %q is private to %q", x.Name, owner.Name)
				}
				return a.setType(x, fld.Type), nil
			}
		}
		return nil, perr.New(perr.NameError, x.Line(), "undeclared identifier %q", x.Name)
	}
	switch sym.Kind {
	case KindVar, KindConst, KindParam, KindEnumMember:
		return a.setType(x, sym.Type), nil
	case KindField:
		return a.setType(x, sym.Type), nil
	default:
		return nil, perr.New(perr.TypeError, x.Line(), "%q is not a value", x.Name)
	}
}

// isLvalue reports whether e denotes a storable place: a variable/field
// name, an index, a field access, or a dereference.
func isLvalue(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.NameExpr:
		return true
	case *ast.IndexExpr:
		return isLvalue(x.Base)
	case *ast.FieldExpr:
		return isLvalue(x.Base)
	case *ast.DerefExpr:
		return true
	}
	return false
}

func (a *Analyzer) checkUnary(x *ast.UnaryExpr) (types.Type, error) {
	if x.Op == lexer.AT {
		if !isLvalue(x.Operand) {
			return nil, perr.New(perr.TypeError, x.Line(), "@ requires an lvalue operand")
		}
		t, err := a.checkExpr(x.Operand)
		if err != nil {
			return nil, err
		}
		return a.setType(x, &types.PointerType{Target: t}), nil
	}
	t, err := a.checkExpr(x.Operand)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case lexer.PLUS, lexer.MINUS:
		if t.Tag() != types.Integer && t.Tag() != types.Real {
			return nil, perr.New(perr.TypeError, x.Line(), "unary %s requires a numeric operand", x.Op)
		}
		return a.setType(x, t), nil
	case lexer.NOT:
		if t.Tag() != types.BooleanT {
			return nil, perr.New(perr.TypeError, x.Line(), "NOT requires a boolean operand")
		}
		return a.setType(x, types.BooleanType), nil
	}
	return nil, perr.New(perr.SyntaxError, x.Line(), "unrecognized unary operator")
}

func (a *Analyzer) checkDeref(x *ast.DerefExpr) (types.Type, error) {
	t, err := a.checkExpr(x.Operand)
	if err != nil {
		return nil, err
	}
	pt, ok := t.(*types.PointerType)
	if !ok {
		return nil, perr.New(perr.TypeError, x.Line(), "^ requires a pointer operand")
	}
	return a.setType(x, pt.Target), nil
}

func (a *Analyzer) checkBinary(x *ast.BinaryExpr) (types.Type, error) {
	lt, err := a.checkExpr(x.Left)
	if err != nil {
		return nil, err
	}
	rt, err := a.checkExpr(x.Right)
	if err != nil {
		return nil, err
	}
	line := x.Line()
	switch x.Op {
	case lexer.PLUS, lexer.MINUS, lexer.STAR:
		if lt.Tag() == types.Integer && rt.Tag() == types.Integer {
			return a.setType(x, types.IntegerType), nil
		}
		if lt.Tag() == types.Real && rt.Tag() == types.Real {
			return a.setType(x, types.RealType), nil
		}
		return nil, perr.New(perr.TypeError, line, "%s requires matching Integer or Real operands; use INT()/REAL() to convert", x.Op)
	case lexer.SLASH:
		if lt.Tag() != rt.Tag() || (lt.Tag() != types.Integer && lt.Tag() != types.Real) {
			return nil, perr.New(perr.TypeError, line, "/ requires matching Integer or Real operands")
		}
		return a.setType(x, types.RealType), nil
	case lexer.DIV, lexer.MOD:
		if lt.Tag() != types.Integer || rt.Tag() != types.Integer {
			return nil, perr.New(perr.TypeError, line, "DIV/MOD require Integer operands")
		}
		return a.setType(x, types.IntegerType), nil
	case lexer.AMP:
		if !isStringOrChar(lt) || !isStringOrChar(rt) {
			return nil, perr.New(perr.TypeError, line, "& requires String or Char operands")
		}
		return a.setType(x, types.StringType), nil
	case lexer.AND, lexer.OR:
		if lt.Tag() != types.BooleanT || rt.Tag() != types.BooleanT {
			return nil, perr.New(perr.TypeError, line, "%s requires boolean operands", x.Op)
		}
		return a.setType(x, types.BooleanType), nil
	case lexer.EQ, lexer.NEQ:
		if !types.Equal(lt, rt) || !types.ComparableEq(lt) {
			return nil, perr.New(perr.TypeError, line, "%s requires two values of the same comparable type", x.Op)
		}
		return a.setType(x, types.BooleanType), nil
	case lexer.LT, lexer.LTE, lexer.GT, lexer.GTE:
		if !types.Equal(lt, rt) || !types.Ordered(lt) {
			return nil, perr.New(perr.TypeError, line, "%s requires two values of the same ordered type", x.Op)
		}
		return a.setType(x, types.BooleanType), nil
	case lexer.IN:
		st, ok := rt.(*types.SetType)
		if !ok || lt.Tag() != types.Enum || !types.Equal(lt, st.Base) {
			return nil, perr.New(perr.TypeError, line, "IN requires (enum, set of that enum)")
		}
		return a.setType(x, types.BooleanType), nil
	case lexer.UNION, lexer.INTERSECT, lexer.DIFF:
		lst, lok := lt.(*types.SetType)
		rst, rok := rt.(*types.SetType)
		if !lok || !rok || !types.Equal(lst.Base, rst.Base) {
			return nil, perr.New(perr.TypeError, line, "%s requires two sets of the same base enum", x.Op)
		}
		return a.setType(x, lt), nil
	}
	return nil, perr.New(perr.SyntaxError, line, "unrecognized binary operator")
}

func isStringOrChar(t types.Type) bool {
	return t.Tag() == types.StringT || t.Tag() == types.CharT
}

func (a *Analyzer) checkIndex(x *ast.IndexExpr) (types.Type, error) {
	bt, err := a.checkExpr(x.Base)
	if err != nil {
		return nil, err
	}
	at, ok := bt.(*types.ArrayType)
	if !ok {
		return nil, perr.New(perr.TypeError, x.Line(), "indexing requires an array")
	}
	if len(x.Indices) != len(at.Bounds) {
		return nil, perr.New(perr.TypeError, x.Line(), "expected %d index expression(s), got %d", len(at.Bounds), len(x.Indices))
	}
	for _, idx := range x.Indices {
		it, err := a.checkExpr(idx)
		if err != nil {
			return nil, err
		}
		if it.Tag() != types.Integer {
			return nil, perr.New(perr.TypeError, idx.Line(), "array index must be Integer")
		}
	}
	return a.setType(x, at.Element), nil
}

func (a *Analyzer) checkField(x *ast.FieldExpr) (types.Type, error) {
	bt, err := a.checkExpr(x.Base)
	if err != nil {
		return nil, err
	}
	switch bt.Tag() {
	case types.Record:
		rt := bt.(*types.RecordType)
		for _, f := range rt.Fields {
			if f.Name == x.Field {
				return a.setType(x, f.Type), nil
			}
		}
		return nil, perr.New(perr.NameError, x.Line(), "record has no field %q", x.Field)
	case types.ClassT:
		ct := bt.(*types.ClassType)
		ci, ok := a.syms.Classes[ct.Name]
		if !ok {
			return nil, perr.New(perr.NameError, x.Line(), "unknown class %q", ct.Name)
		}
		fld, owner := ci.LookupField(x.Field)
		if fld == nil {
			return nil, perr.New(perr.NameError, x.Line(), "class %q has no field %q", ct.Name, x.Field)
		}
		if fld.Access == ast.Private && a.currentClass != owner {
			return nil, perr.New(perr.AccessError, x.Line(), "field %q is private to %q", x.Field, owner.Name)
		}
		return a.setType(x, fld.Type), nil
	default:
		return nil, perr.New(perr.TypeError, x.Line(), "field access requires a record or class value")
	}
}

func (a *Analyzer) checkNew(x *ast.NewExpr) (types.Type, error) {
	if x.IsClass {
		ci, ok := a.syms.Classes[x.TypeName]
		if !ok {
			return nil, perr.New(perr.NameError, x.Line(), "unknown class %q", x.TypeName)
		}
		var sig *Signature
		if ci.Constructor != nil {
			sig = ci.Constructor.Signature
		}
		if err := a.checkArgs(x.Line(), sig, x.Args); err != nil {
			return nil, err
		}
		return a.setType(x, &types.ClassType{Name: x.TypeName}), nil
	}
	sym, ok := a.syms.Resolve(x.TypeName)
	if !ok || sym.Kind != KindType {
		return nil, perr.New(perr.NameError, x.Line(), "unknown type %q", x.TypeName)
	}
	return a.setType(x, &types.PointerType{Target: sym.Type}), nil
}

// checkArgs validates argument arity, assignability, and by-reference
// lvalue-ness against a resolved signature; sig == nil means zero parameters.
func (a *Analyzer) checkArgs(line int, sig *Signature, args []ast.Expr) error {
	var params []ParamInfo
	if sig != nil {
		params = sig.Params
	}
	if len(args) != len(params) {
		return perr.New(perr.TypeError, line, "expected %d argument(s), got %d", len(params), len(args))
	}
	for i, arg := range args {
		at, err := a.checkExpr(arg)
		if err != nil {
			return err
		}
		p := params[i]
		if !types.Assignable(p.Type, at) {
			return perr.New(perr.TypeError, arg.Line(), "argument %d: cannot assign %s to %s", i+1, at, p.Type)
		}
		if p.Mode == ast.ByRef && !isLvalue(arg) {
			return perr.New(perr.TypeError, arg.Line(), "argument %d: BYREF parameter requires an lvalue", i+1)
		}
	}
	return nil
}
