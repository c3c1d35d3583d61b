package interp

import (
	"strings"

	"github.com/mkyuone/prescribe/internal/ast"
	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/numeric"
	"github.com/mkyuone/prescribe/internal/types"
)

// rngModulus and rngMultiplier/rngIncrement implement the spec's fixed LCG:
// state <- (1103515245*state + 12345) mod 2^31, seeded to 1.
const (
	rngModulus    = 1 << 31
	rngMultiplier = 1103515245
	rngIncrement  = 12345
)

func (it *Interp) rand() Value {
	it.rngState = (rngMultiplier*it.rngState + rngIncrement) % rngModulus
	return Value{Type: types.RealType, R: float64(it.rngState) / float64(rngModulus)}
}

func runesOf(s string) []rune { return []rune(s) }

func (it *Interp) callBuiltin(ctx *execCtx, name string, call *ast.CallExpr) (Value, error) {
	line := call.Line()
	args := make([]Value, len(call.Args))
	for i, a := range call.Args {
		if name == "ENUMVALUE" && i == 0 {
			continue
		}
		v, err := it.evalExpr(ctx, a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	switch name {
	case "LENGTH":
		return Value{Type: types.IntegerType, I: int32(len(runesOf(args[0].S)))}, nil
	case "RIGHT":
		rs := runesOf(args[0].S)
		n := args[1].I
		if n < 0 || int(n) > len(rs) {
			return Value{}, perr.New(perr.RangeError, line, "RIGHT: n=%d out of range for string of length %d", n, len(rs))
		}
		return Value{Type: types.StringType, S: string(rs[len(rs)-int(n):])}, nil
	case "MID":
		rs := runesOf(args[0].S)
		start, n := args[1].I, args[2].I
		if start < 1 || n < 0 || int(start-1+n) > len(rs) {
			return Value{}, perr.New(perr.RangeError, line, "MID: start=%d, n=%d out of range for string of length %d", start, n, len(rs))
		}
		return Value{Type: types.StringType, S: string(rs[start-1 : start-1+n])}, nil
	case "LCASE":
		return Value{Type: types.StringType, S: asciiLower(args[0].S)}, nil
	case "UCASE":
		return Value{Type: types.StringType, S: asciiUpper(args[0].S)}, nil
	case "INT":
		v, err := numeric.CheckInt32(line, int64(args[0].R))
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.IntegerType, I: v}, nil
	case "REAL":
		return Value{Type: types.RealType, R: float64(args[0].I)}, nil
	case "STRING":
		return Value{Type: types.StringType, S: OutputString(args[0])}, nil
	case "CHAR":
		if args[0].I < 0 || args[0].I > 127 {
			return Value{}, perr.New(perr.RangeError, line, "CHAR: %d is not in 0..127", args[0].I)
		}
		return Value{Type: types.CharType, C: rune(args[0].I)}, nil
	case "BOOLEAN":
		switch strings.ToUpper(args[0].S) {
		case "TRUE":
			return Value{Type: types.BooleanType, B: true}, nil
		case "FALSE":
			return Value{Type: types.BooleanType, B: false}, nil
		}
		return Value{}, perr.New(perr.RangeError, line, "BOOLEAN: %q is not TRUE or FALSE", args[0].S)
	case "DATE":
		d, err := numeric.ParseDate(line, args[0].S)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: types.DateType, D: d}, nil
	case "ORD":
		return Value{Type: types.IntegerType, I: args[0].I}, nil
	case "SIZE":
		return Value{Type: types.IntegerType, I: int32(len(args[0].Set))}, nil
	case "RAND":
		return it.rand(), nil
	case "ENUMVALUE":
		nameExpr := call.Args[0].(*ast.NameExpr)
		enumT := it.reg.Types[nameExpr.Name].(*types.EnumType)
		k, err := it.evalExpr(ctx, call.Args[1])
		if err != nil {
			return Value{}, err
		}
		if k.I < 0 || int(k.I) >= len(enumT.Members) {
			return Value{}, perr.New(perr.RangeError, line, "ENUMVALUE: %d is not a valid ordinal for %s", k.I, nameExpr.Name)
		}
		return Value{Type: enumT, I: k.I}, nil
	}
	return Value{}, perr.New(perr.NameError, line, "unknown built-in %q", name)
}

func asciiLower(s string) string {
	rs := []rune(s)
	for i, r := range rs {
		if r >= 'A' && r <= 'Z' {
			rs[i] = r + ('a' - 'A')
		}
	}
	return string(rs)
}

func asciiUpper(s string) string {
	rs := []rune(s)
	for i, r := range rs {
		if r >= 'a' && r <= 'z' {
			rs[i] = r - ('a' - 'A')
		}
	}
	return string(rs)
}
