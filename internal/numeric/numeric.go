// Package numeric implements Prescribe's strict numeric semantics: range
// checked 32-bit integer arithmetic, Euclidean DIV/MOD, IEEE-754 real
// arithmetic that rejects NaN/Inf, and the fixed-point OUTPUT formatting
// rule for reals.
package numeric

import (
	"math"
	"strconv"
	"strings"

	perr "github.com/mkyuone/prescribe/internal/errors"
)

const (
	MinInt32 = math.MinInt32
	MaxInt32 = math.MaxInt32
)

// CheckInt32 range-checks a widened 64-bit result of an integer operation.
// The reference implementation's open question directs checked integer
// arithmetic rather than a floating-point modulus test; this is that check.
func CheckInt32(line int, v int64) (int32, error) {
	if v < MinInt32 || v > MaxInt32 {
		return 0, perr.New(perr.RangeError, line, "integer overflow: %d is outside [%d, %d]", v, MinInt32, MaxInt32)
	}
	return int32(v), nil
}

func AddInt(line int, a, b int32) (int32, error) {
	return CheckInt32(line, int64(a)+int64(b))
}

func SubInt(line int, a, b int32) (int32, error) {
	return CheckInt32(line, int64(a)-int64(b))
}

func MulInt(line int, a, b int32) (int32, error) {
	return CheckInt32(line, int64(a)*int64(b))
}

func NegInt(line int, a int32) (int32, error) {
	return CheckInt32(line, -int64(a))
}

// DivMod computes Euclidean division: 0 <= r < |b| and a = b*q + r.
func DivMod(line int, a, b int32) (q, r int32, err error) {
	if b == 0 {
		return 0, 0, perr.New(perr.RuntimeError, line, "division by zero")
	}
	bigA, bigB := int64(a), int64(b)
	bigQ := bigA / bigB
	bigR := bigA % bigB
	if bigR < 0 {
		if bigB > 0 {
			bigQ--
			bigR += bigB
		} else {
			bigQ++
			bigR -= bigB
		}
	}
	q32, err := CheckInt32(line, bigQ)
	if err != nil {
		return 0, 0, err
	}
	r32, err := CheckInt32(line, bigR)
	if err != nil {
		return 0, 0, err
	}
	return q32, r32, nil
}

// RealDivide implements "/" on two reals; callers widen integer operands to
// float64 before calling it.
func RealDivide(line int, a, b float64) (float64, error) {
	if b == 0 {
		return 0, perr.New(perr.RuntimeError, line, "division by zero")
	}
	return CheckReal(line, a/b)
}

// CheckReal rejects NaN/Inf results, which can never be observed at rest.
func CheckReal(line int, v float64) (float64, error) {
	if math.IsNaN(v) {
		return 0, perr.New(perr.RuntimeError, line, "real result is not a number")
	}
	if math.IsInf(v, 0) {
		return 0, perr.New(perr.RangeError, line, "real overflow")
	}
	return v, nil
}

// FormatReal implements the OUTPUT conversion rule: fixed-point, up to 6
// fractional digits, half-away-from-zero rounding, trailing zeros and an
// isolated trailing '.' stripped, "" collapsing to "0".
//
// strconv.FormatFloat rounds half-to-even, which disagrees with the spec's
// half-away-from-zero rule at exact tie points, so the value is scaled to an
// integer number of millionths and rounded by hand before formatting.
func FormatReal(v float64) string {
	neg := math.Signbit(v)
	abs := math.Abs(v)
	scaled := abs*1e6 + 0.5 // half-away-from-zero: always add before truncating
	units := int64(math.Floor(scaled))

	whole := units / 1_000_000
	frac := units % 1_000_000

	var sb strings.Builder
	if neg && units != 0 {
		sb.WriteByte('-')
	}
	sb.WriteString(strconv.FormatInt(whole, 10))
	if frac != 0 {
		fracStr := strconv.FormatInt(frac, 10)
		fracStr = strings.Repeat("0", 6-len(fracStr)) + fracStr
		fracStr = strings.TrimRight(fracStr, "0")
		sb.WriteByte('.')
		sb.WriteString(fracStr)
	}
	return sb.String()
}
