package interp

import (
	"strings"
	"testing"

	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/types"
)

func TestAverageOfScores(t *testing.T) {
	src := `PROGRAM AverageScores
DECLARE Count : INTEGER
DECLARE Sum : INTEGER
DECLARE Score : INTEGER
DECLARE Avg : REAL
Sum <- 0
INPUT Count
FOR i <- 1 TO Count
  INPUT Score
  Sum <- Sum + Score
NEXT i
Avg <- REAL(Sum) / REAL(Count)
OUTPUT "Average = " & STRING(Avg)
ENDPROGRAM`
	got := mustRun(t, src, "3 10 20 30")
	if got != "Average = 20\n" {
		t.Errorf("got %q", got)
	}
}

func TestEuclideanMod(t *testing.T) {
	got := mustRun(t, `PROGRAM P
OUTPUT -7 MOD 3
ENDPROGRAM`, "")
	if got != "2\n" {
		t.Errorf("got %q", got)
	}
}

func TestNoShortCircuit(t *testing.T) {
	src := `PROGRAM P
DECLARE Count : INTEGER
FUNCTION F() RETURNS BOOLEAN
  Count <- Count + 1
  RETURN FALSE
ENDFUNCTION
FUNCTION G() RETURNS BOOLEAN
  Count <- Count + 1
  RETURN FALSE
ENDFUNCTION
Count <- 0
IF F() AND G() THEN
  OUTPUT "unreachable"
ENDIF
OUTPUT Count
ENDPROGRAM`
	got := mustRun(t, src, "")
	if got != "2\n" {
		t.Errorf("want Count=2 (both sides evaluated), got %q", got)
	}
}

func TestNullDereference(t *testing.T) {
	src := `PROGRAM P
DECLARE Ptr : POINTER TO INTEGER
Ptr <- NULL
OUTPUT ^Ptr
ENDPROGRAM`
	err := runExpectError(t, src, "")
	d, ok := perr.AsDiagnostic(err)
	if !ok {
		t.Fatalf("expected a *errors.Diagnostic, got %T: %v", err, err)
	}
	if d.Kind != perr.RuntimeError {
		t.Errorf("want RuntimeError, got %s", d.Kind)
	}
}

func TestClassDispatch(t *testing.T) {
	src := `PROGRAM P
CLASS Animal
  FUNCTION Speak() RETURNS STRING
    RETURN "base"
  ENDFUNCTION
ENDCLASS
CLASS Dog EXTENDS Animal
  FUNCTION Speak() RETURNS STRING
    RETURN "woof"
  ENDFUNCTION
ENDCLASS
DECLARE A : Animal
A <- NEW Dog()
OUTPUT A.Speak()
ENDPROGRAM`
	got := mustRun(t, src, "")
	if got != "woof\n" {
		t.Errorf("got %q", got)
	}
}

func TestForLoopBodySeesEnclosingLocals(t *testing.T) {
	src := `PROGRAM P
PROCEDURE Accumulate()
  DECLARE Total : INTEGER
  Total <- 0
  FOR i <- 1 TO 5
    Total <- Total + i
  NEXT i
  OUTPUT Total
ENDPROCEDURE
Accumulate()
ENDPROGRAM`
	got := mustRun(t, src, "")
	if got != "15\n" {
		t.Errorf("got %q", got)
	}
}

func TestForLoopZeroTrip(t *testing.T) {
	src := `PROGRAM P
DECLARE N : INTEGER
N <- 0
FOR i <- 5 TO 1
  N <- N + 1
NEXT i
OUTPUT N
ENDPROGRAM`
	got := mustRun(t, src, "")
	if got != "0\n" {
		t.Errorf("want zero-trip, got %q", got)
	}
}

func TestArrayAssignmentIsolation(t *testing.T) {
	src := `PROGRAM P
DECLARE A : ARRAY[1:3] OF INTEGER
DECLARE B : ARRAY[1:3] OF INTEGER
A[1] <- 1
A[2] <- 2
A[3] <- 3
B <- A
A[1] <- 99
OUTPUT B[1]
ENDPROGRAM`
	got := mustRun(t, src, "")
	if got != "1\n" {
		t.Errorf("want B unaffected by later mutation of A, got %q", got)
	}
}

func TestDeterministicPRNG(t *testing.T) {
	src := `PROGRAM P
OUTPUT RAND()
OUTPUT RAND()
ENDPROGRAM`
	got := mustRun(t, src, "")
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", got)
	}
	const state1 = (1103515245*1 + 12345) % (1 << 31)
	const state2 = (1103515245*state1 + 12345) % (1 << 31)
	want1 := formatExpectedReal(float64(state1) / float64(int64(1)<<31))
	want2 := formatExpectedReal(float64(state2) / float64(int64(1)<<31))
	if lines[0] != want1 || lines[1] != want2 {
		t.Errorf("got %v, want [%s %s]", lines, want1, want2)
	}
}

func formatExpectedReal(f float64) string {
	return OutputString(Value{Type: types.RealType, R: f})
}
