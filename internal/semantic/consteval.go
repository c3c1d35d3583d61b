package semantic

import (
	"github.com/mkyuone/prescribe/internal/ast"
	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/lexer"
	"github.com/mkyuone/prescribe/internal/numeric"
	"github.com/mkyuone/prescribe/internal/types"
)

// Const is a compile-time constant value, produced by folding a restricted
// expression language over literals, named constants, enum members, and a
// fixed operator set. It deliberately mirrors the runtime value shapes
// without depending on the interp package, since the checker runs before
// any runtime store exists.
type Const struct {
	Type types.Type
	I    int32
	R    float64
	B    bool
	C    rune
	S    string
	D    numeric.Date
}

func intConst(t types.Type, v int32) *Const  { return &Const{Type: t, I: v} }
func realConst(v float64) *Const             { return &Const{Type: types.RealType, R: v} }
func boolConst(v bool) *Const                { return &Const{Type: types.BooleanType, B: v} }
func charConst(v rune) *Const                { return &Const{Type: types.CharType, C: v} }
func strConst(v string) *Const               { return &Const{Type: types.StringType, S: v} }
func dateConst(v numeric.Date) *Const        { return &Const{Type: types.DateType, D: v} }

// evalConst folds a restricted compile-time expression. It must not observe
// mutable state: only literals, resolved constants/enum members, and the
// fixed operator set below are permitted.
func (a *Analyzer) evalConst(e ast.Expr) (*Const, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return intConst(types.IntegerType, x.Value), nil
	case *ast.RealLit:
		return realConst(x.Value), nil
	case *ast.BoolLit:
		return boolConst(x.Value), nil
	case *ast.CharLit:
		return charConst(x.Value), nil
	case *ast.StringLit:
		return strConst(x.Value), nil
	case *ast.DateLit:
		d, err := numeric.ParseDate(x.Line(), x.Raw)
		if err != nil {
			return nil, err
		}
		return dateConst(d), nil
	case *ast.NameExpr:
		sym, ok := a.syms.Resolve(x.Name)
		if !ok || sym.Const == nil {
			return nil, perr.New(perr.NameError, x.Line(), "%q is not a known constant", x.Name)
		}
		return sym.Const, nil
	case *ast.UnaryExpr:
		return a.evalConstUnary(x)
	case *ast.BinaryExpr:
		return a.evalConstBinary(x)
	default:
		return nil, perr.New(perr.SyntaxError, e.Line(), "expression is not a compile-time constant")
	}
}

func (a *Analyzer) evalConstUnary(x *ast.UnaryExpr) (*Const, error) {
	v, err := a.evalConst(x.Operand)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case lexer.PLUS:
		if v.Type.Tag() != types.Integer && v.Type.Tag() != types.Real {
			return nil, perr.New(perr.TypeError, x.Line(), "unary + requires a numeric operand")
		}
		return v, nil
	case lexer.MINUS:
		switch v.Type.Tag() {
		case types.Integer:
			n, err := numeric.NegInt(x.Line(), v.I)
			if err != nil {
				return nil, err
			}
			return intConst(types.IntegerType, n), nil
		case types.Real:
			return realConst(-v.R), nil
		default:
			return nil, perr.New(perr.TypeError, x.Line(), "unary - requires a numeric operand")
		}
	case lexer.NOT:
		if v.Type.Tag() != types.BooleanT {
			return nil, perr.New(perr.TypeError, x.Line(), "NOT requires a boolean operand")
		}
		return boolConst(!v.B), nil
	}
	return nil, perr.New(perr.SyntaxError, x.Line(), "operator not permitted in a constant expression")
}

func (a *Analyzer) evalConstBinary(x *ast.BinaryExpr) (*Const, error) {
	l, err := a.evalConst(x.Left)
	if err != nil {
		return nil, err
	}
	r, err := a.evalConst(x.Right)
	if err != nil {
		return nil, err
	}
	line := x.Line()
	switch x.Op {
	case lexer.PLUS, lexer.MINUS, lexer.STAR:
		return constArith(line, x.Op, l, r)
	case lexer.SLASH:
		if l.Type.Tag() != r.Type.Tag() {
			return nil, perr.New(perr.TypeError, line, "/ requires matching operand types")
		}
		lf, rf := constAsReal(l), constAsReal(r)
		v, err := numeric.RealDivide(line, lf, rf)
		if err != nil {
			return nil, err
		}
		return realConst(v), nil
	case lexer.DIV, lexer.MOD:
		if l.Type.Tag() != types.Integer || r.Type.Tag() != types.Integer {
			return nil, perr.New(perr.TypeError, line, "DIV/MOD require integer operands")
		}
		q, m, err := numeric.DivMod(line, l.I, r.I)
		if err != nil {
			return nil, err
		}
		if x.Op == lexer.DIV {
			return intConst(types.IntegerType, q), nil
		}
		return intConst(types.IntegerType, m), nil
	case lexer.AMP:
		return strConst(constAsString(l) + constAsString(r)), nil
	case lexer.AND:
		if l.Type.Tag() != types.BooleanT || r.Type.Tag() != types.BooleanT {
			return nil, perr.New(perr.TypeError, line, "AND requires boolean operands")
		}
		return boolConst(l.B && r.B), nil
	case lexer.OR:
		if l.Type.Tag() != types.BooleanT || r.Type.Tag() != types.BooleanT {
			return nil, perr.New(perr.TypeError, line, "OR requires boolean operands")
		}
		return boolConst(l.B || r.B), nil
	case lexer.EQ, lexer.NEQ, lexer.LT, lexer.LTE, lexer.GT, lexer.GTE:
		return constCompare(line, x.Op, l, r)
	}
	return nil, perr.New(perr.SyntaxError, line, "operator not permitted in a constant expression")
}

func constAsReal(c *Const) float64 {
	if c.Type.Tag() == types.Integer {
		return float64(c.I)
	}
	return c.R
}

func constAsString(c *Const) string {
	switch c.Type.Tag() {
	case types.CharT:
		return string(c.C)
	default:
		return c.S
	}
}

func constArith(line int, op lexer.TokenType, l, r *Const) (*Const, error) {
	if l.Type.Tag() != r.Type.Tag() {
		return nil, perr.New(perr.TypeError, line, "operands of arithmetic must have the same type")
	}
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
			return nil, err
		}
		return intConst(types.IntegerType, v), nil
	}
	if l.Type.Tag() == types.Real {
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
			return nil, err
		}
		return realConst(v), nil
	}
	return nil, perr.New(perr.TypeError, line, "arithmetic requires Integer or Real operands")
}

func constCompare(line int, op lexer.TokenType, l, r *Const) (*Const, error) {
	if l.Type.Tag() != r.Type.Tag() {
		return nil, perr.New(perr.TypeError, line, "comparison requires matching operand types")
	}
	var cmp int
	switch l.Type.Tag() {
	case types.Integer:
		cmp = compareInt(int64(l.I), int64(r.I))
	case types.Real:
		cmp = compareFloat(l.R, r.R)
	case types.CharT:
		cmp = compareInt(int64(l.C), int64(r.C))
	case types.StringT:
		cmp = compareString(l.S, r.S)
	case types.DateT:
		cmp = l.D.Compare(r.D)
	case types.BooleanT:
		if op != lexer.EQ && op != lexer.NEQ {
			return nil, perr.New(perr.TypeError, line, "only = and <> are defined on Boolean")
		}
		cmp = compareInt(boolToInt(l.B), boolToInt(r.B))
	default:
		return nil, perr.New(perr.TypeError, line, "type is not comparable in a constant expression")
	}
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
	return boolConst(result), nil
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
