package parser

import (
	"testing"

	"github.com/mkyuone/prescribe/internal/ast"
	perr "github.com/mkyuone/prescribe/internal/errors"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p, err := New(src)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return prog
}

func TestParseMinimalProgram(t *testing.T) {
	prog := mustParse(t, "PROGRAM Empty\nENDPROGRAM")
	if prog.Name != "Empty" {
		t.Errorf("got name %q", prog.Name)
	}
}

func TestParseVarDeclAndAssign(t *testing.T) {
	prog := mustParse(t, `PROGRAM P
DECLARE X : INTEGER
X <- 1 + 2 * 3
ENDPROGRAM`)
	if len(prog.Decls) != 1 {
		t.Fatalf("expected 1 decl, got %d", len(prog.Decls))
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 stmt, got %d", len(prog.Statements))
	}
	assign, ok := prog.Statements[0].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected AssignStmt, got %T", prog.Statements[0])
	}
	bin, ok := assign.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr, got %T", assign.Value)
	}
	if _, ok := bin.Right.(*ast.BinaryExpr); !ok {
		t.Errorf("expected * to bind tighter than +: %s", bin)
	}
}

func TestParseIfElse(t *testing.T) {
	prog := mustParse(t, `PROGRAM P
IF TRUE THEN
  OUTPUT 1
ELSE
  OUTPUT 2
ENDIF
ENDPROGRAM`)
	ifs, ok := prog.Statements[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected IfStmt, got %T", prog.Statements[0])
	}
	if len(ifs.Then.Statements) != 1 || len(ifs.Else.Statements) != 1 {
		t.Errorf("expected one statement per branch")
	}
}

func TestParseForWithStep(t *testing.T) {
	prog := mustParse(t, `PROGRAM P
FOR I <- 10 TO 1 STEP -1
  OUTPUT I
NEXT I
ENDPROGRAM`)
	forStmt, ok := prog.Statements[0].(*ast.ForStmt)
	if !ok {
		t.Fatalf("expected ForStmt, got %T", prog.Statements[0])
	}
	if forStmt.Step == nil {
		t.Fatal("expected STEP to be parsed")
	}
}

func TestParseCaseWithRangeAndOtherwise(t *testing.T) {
	prog := mustParse(t, `PROGRAM P
CASE X OF
  1: OUTPUT "one"
  2, 3: OUTPUT "two or three"
  4 TO 10: OUTPUT "range"
  OTHERWISE: OUTPUT "other"
ENDCASE
ENDPROGRAM`)
	cs, ok := prog.Statements[0].(*ast.CaseStmt)
	if !ok {
		t.Fatalf("expected CaseStmt, got %T", prog.Statements[0])
	}
	if len(cs.Branches) != 3 {
		t.Fatalf("expected 3 branches, got %d", len(cs.Branches))
	}
	if cs.Otherwise == nil {
		t.Error("expected OTHERWISE block")
	}
	if cs.Branches[2].Labels[0].Low == nil {
		t.Error("expected range label on third branch")
	}
}

func TestParseClassWithExtends(t *testing.T) {
	prog := mustParse(t, `PROGRAM P
CLASS Animal
  PUBLIC
  FUNCTION Speak() RETURNS STRING
    RETURN "base"
  ENDFUNCTION
ENDCLASS

CLASS Dog EXTENDS Animal
  PUBLIC
  FUNCTION Speak() RETURNS STRING
    RETURN "woof"
  ENDFUNCTION
ENDCLASS
ENDPROGRAM`)
	dog, ok := prog.Decls[1].(*ast.ClassDecl)
	if !ok {
		t.Fatalf("expected ClassDecl, got %T", prog.Decls[1])
	}
	if dog.Base != "Animal" {
		t.Errorf("expected base Animal, got %q", dog.Base)
	}
}

func TestParsePointerDerefAndAddressOf(t *testing.T) {
	prog := mustParse(t, `PROGRAM P
DECLARE P : POINTER TO INTEGER
DECLARE X : INTEGER
P <- @X
OUTPUT ^P
ENDPROGRAM`)
	assign := prog.Statements[0].(*ast.AssignStmt)
	un, ok := assign.Value.(*ast.UnaryExpr)
	if !ok {
		t.Fatalf("expected UnaryExpr for @X, got %T", assign.Value)
	}
	_ = un
	out := prog.Statements[1].(*ast.OutputStmt)
	if _, ok := out.Values[0].(*ast.DerefExpr); !ok {
		t.Fatalf("expected DerefExpr, got %T", out.Values[0])
	}
}

func TestParseFunctionCallPrecedence(t *testing.T) {
	prog := mustParse(t, `PROGRAM P
DECLARE A : REAL
A <- REAL(1) / REAL(2)
ENDPROGRAM`)
	assign := prog.Statements[0].(*ast.AssignStmt)
	bin, ok := assign.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr, got %T", assign.Value)
	}
	if _, ok := bin.Left.(*ast.CallExpr); !ok {
		t.Errorf("expected REAL(1) to parse as a call, got %T", bin.Left)
	}
}

func TestParseNoShortCircuitStillSingleTree(t *testing.T) {
	prog := mustParse(t, `PROGRAM P
OUTPUT F() AND G()
ENDPROGRAM`)
	out := prog.Statements[0].(*ast.OutputStmt)
	bin, ok := out.Values[0].(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr, got %T", out.Values[0])
	}
	if _, ok := bin.Left.(*ast.CallExpr); !ok {
		t.Error("expected left operand to be a call expression")
	}
	if _, ok := bin.Right.(*ast.CallExpr); !ok {
		t.Error("expected right operand to be a call expression")
	}
}

func TestUnexpectedTokenIsSyntaxError(t *testing.T) {
	_, err := New("PROGRAM P\nENDPROGRAM")
	if err != nil {
		t.Fatal(err)
	}
	p, _ := New("PROGRAM P\n)\nENDPROGRAM")
	_, err = p.ParseProgram()
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if d, ok := perr.AsDiagnostic(err); !ok || d.Kind != perr.SyntaxError {
		t.Errorf("want SyntaxError, got %v", err)
	}
}
