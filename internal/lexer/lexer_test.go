package lexer

import "testing"

func TestNextBasicTokens(t *testing.T) {
	src := `DECLARE Count : INTEGER
Count <- 1 + 2 * 3`
	want := []TokenType{
		DECLARE, IDENT, COLON, INTEGER,
		IDENT, ASSIGN, INT, PLUS, INT, STAR, INT,
		EOFTOK,
	}
	toks, err := All(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Type, tt)
		}
	}
}

func TestKeywordsCaseInsensitive(t *testing.T) {
	toks, err := All("declare X : integer")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Type != DECLARE || toks[0].Literal != "DECLARE" {
		t.Errorf("expected normalized DECLARE keyword, got %+v", toks[0])
	}
	if toks[2].Type != COLON {
		t.Fatalf("expected colon: %+v", toks[2])
	}
	if toks[3].Type != INTEGER || toks[3].Literal != "INTEGER" {
		t.Errorf("expected normalized INTEGER keyword, got %+v", toks[3])
	}
}

func TestIdentifierPreservesCase(t *testing.T) {
	toks, err := All("MyVar")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Literal != "MyVar" {
		t.Errorf("expected case preserved, got %q", toks[0].Literal)
	}
}

func TestUnicodeAssignArrow(t *testing.T) {
	toks, err := All("X ← 1")
	if err != nil {
		t.Fatal(err)
	}
	if toks[1].Type != ASSIGN || toks[1].Literal != "<-" {
		t.Errorf("expected ASSIGN, got %+v", toks[1])
	}
}

func TestNumberLiterals(t *testing.T) {
	cases := []struct {
		src  string
		want TokenType
	}{
		{"123", INT},
		{"1.5", REALNUM},
		{"1.5e10", REALNUM},
		{"1.5E-10", REALNUM},
		{"1e5", REALNUM},
		{"10", INT},
	}
	for _, c := range cases {
		toks, err := All(c.src)
		if err != nil {
			t.Fatalf("%s: %v", c.src, err)
		}
		if toks[0].Type != c.want {
			t.Errorf("%s: got %s want %s", c.src, toks[0].Type, c.want)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	toks, err := All(`"a\nb\t\"c\""`)
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Literal != "a\nb\t\"c\"" {
		t.Errorf("got %q", toks[0].Literal)
	}
}

func TestInvalidEscapeIsSyntaxError(t *testing.T) {
	_, err := All(`"a\qb"`)
	if err == nil {
		t.Fatal("expected error for invalid escape")
	}
}

func TestCharLiteralMustBeSingleCodePoint(t *testing.T) {
	_, err := All(`'ab'`)
	if err == nil {
		t.Fatal("expected error for multi-rune char literal")
	}
}

func TestCommentSkipped(t *testing.T) {
	toks, err := All("X // a comment\nY")
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 3 || toks[0].Literal != "X" || toks[1].Literal != "Y" {
		t.Errorf("got %v", toks)
	}
}

func TestLongestMatchOperators(t *testing.T) {
	toks, err := All("<= >= <> <-")
	if err != nil {
		t.Fatal(err)
	}
	want := []TokenType{LTE, GTE, NEQ, ASSIGN, EOFTOK}
	for i, tt := range want {
		if toks[i].Type != tt {
			t.Errorf("token %d: got %s want %s", i, toks[i].Type, tt)
		}
	}
}

func TestIdentifierTooLong(t *testing.T) {
	long := ""
	for i := 0; i < 65; i++ {
		long += "a"
	}
	_, err := All(long)
	if err == nil {
		t.Fatal("expected error for overlong identifier")
	}
}

func TestPositionsTrackLineAndColumn(t *testing.T) {
	toks, err := All("X\nY")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Pos.Line != 1 {
		t.Errorf("expected line 1, got %d", toks[0].Pos.Line)
	}
	if toks[1].Pos.Line != 2 {
		t.Errorf("expected line 2, got %d", toks[1].Pos.Line)
	}
}
