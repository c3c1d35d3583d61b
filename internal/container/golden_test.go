package container

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

// stdinFor supplies the input stream a golden program expects, keyed by file
// name. Programs that read nothing are absent and get "".
var stdinFor = map[string]string{
	"average_scores.prsd": "3 10 20 30",
}

// TestGoldenPrograms runs every fixture under testdata/programs through the
// container pipeline and snapshots its stdout (or, for a program expected to
// abort, its diagnostic message).
func TestGoldenPrograms(t *testing.T) {
	paths, err := filepath.Glob("../../testdata/programs/*.prsd")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no golden programs found")
	}

	for _, path := range paths {
		name := filepath.Base(path)
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read %s: %v", path, err)
			}
			out, err := Run(string(src), DefaultFence, stdinFor[name], nil)
			snapshot := out
			if err != nil {
				snapshot = fmt.Sprintf("%sERROR: %s", out, err.Error())
			}
			snaps.MatchSnapshot(t, name, snapshot)
		})
	}
}
