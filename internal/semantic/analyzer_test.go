package semantic

import (
	"testing"

	perr "github.com/mkyuone/prescribe/internal/errors"
	"github.com/mkyuone/prescribe/internal/parser"
)

func analyzeSource(t *testing.T, src string) error {
	t.Helper()
	p, err := parser.New(src)
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	_, err = Analyze(prog)
	return err
}

func TestAnalyzeAcceptsWellTypedProgram(t *testing.T) {
	src := `PROGRAM P
DECLARE X : INTEGER
DECLARE Y : REAL
X <- 2
Y <- REAL(X) / 4.0
OUTPUT STRING(Y)
ENDPROGRAM`
	if err := analyzeSource(t, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAnalyzeRejectsUndeclaredName(t *testing.T) {
	src := `PROGRAM P
OUTPUT X
ENDPROGRAM`
	err := analyzeSource(t, src)
	d, ok := perr.AsDiagnostic(err)
	if !ok {
		t.Fatalf("expected a diagnostic, got %T: %v", err, err)
	}
	if d.Kind != perr.NameError {
		t.Errorf("want NameError, got %s", d.Kind)
	}
}

func TestAnalyzeRejectsTypeMismatch(t *testing.T) {
	src := `PROGRAM P
DECLARE X : INTEGER
X <- "not a number"
ENDPROGRAM`
	err := analyzeSource(t, src)
	d, ok := perr.AsDiagnostic(err)
	if !ok {
		t.Fatalf("expected a diagnostic, got %T: %v", err, err)
	}
	if d.Kind != perr.TypeError {
		t.Errorf("want TypeError, got %s", d.Kind)
	}
}

func TestAnalyzeRejectsWrongArgumentCount(t *testing.T) {
	src := `PROGRAM P
PROCEDURE Greet(Name : STRING)
  OUTPUT "Hi " & Name
ENDPROCEDURE
Greet()
ENDPROGRAM`
	err := analyzeSource(t, src)
	if _, ok := perr.AsDiagnostic(err); !ok {
		t.Fatalf("expected a diagnostic, got %T: %v", err, err)
	}
}

func TestAnalyzeAcceptsClassHierarchy(t *testing.T) {
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
	if err := analyzeSource(t, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAnalyzeRejectsUnknownMember(t *testing.T) {
	src := `PROGRAM P
CLASS Animal
  FUNCTION Speak() RETURNS STRING
    RETURN "base"
  ENDFUNCTION
ENDCLASS
DECLARE A : Animal
A <- NEW Animal()
OUTPUT A.Bark()
ENDPROGRAM`
	err := analyzeSource(t, src)
	if _, ok := perr.AsDiagnostic(err); !ok {
		t.Fatalf("expected a diagnostic, got %T: %v", err, err)
	}
}

func TestAnalyzeMutualRecursionAcrossProcedures(t *testing.T) {
	src := `PROGRAM P
FUNCTION IsEven(N : INTEGER) RETURNS BOOLEAN
  IF N = 0 THEN
    RETURN TRUE
  ENDIF
  RETURN IsOdd(N - 1)
ENDFUNCTION
FUNCTION IsOdd(N : INTEGER) RETURNS BOOLEAN
  IF N = 0 THEN
    RETURN FALSE
  ENDIF
  RETURN IsEven(N - 1)
ENDFUNCTION
OUTPUT IsEven(4)
ENDPROGRAM`
	if err := analyzeSource(t, src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
