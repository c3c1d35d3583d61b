package interp

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestRandomFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.dat")
	src := fmt.Sprintf(`PROGRAM P
TYPE Rec = RECORD
  N : INTEGER
  D : DATE
ENDRECORD
DECLARE F : RANDOMFILE OF Rec
DECLARE R : Rec
OPENFILE F, %q, "RANDOM"
R.N <- 7
R.D <- DATE "2024-02-29"
PUTRECORD F, R
CLOSEFILE F
OPENFILE F, %q, "RANDOM"
SEEK F, 1
GETRECORD F, R
OUTPUT STRING(R.N) & " " & STRING(R.D)
ENDPROGRAM`, path, path)
	got := mustRun(t, src, "")
	if got != "7 2024-02-29\n" {
		t.Errorf("got %q", got)
	}
}
