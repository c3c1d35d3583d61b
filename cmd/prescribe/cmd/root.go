// Package cmd is the prescribe command-line tree: run, lex, parse, check
// and version, built on cobra in the teacher's layout.
package cmd

import (
	"fmt"
	"os"
	"strings"

	perr "github.com/mkyuone/prescribe/internal/errors"

	"github.com/hashicorp/logutils"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags).
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:     "prescribe",
	Short:   "Prescribe/Lucid interpreter",
	Version: Version,
	Long: `prescribe is a tree-walking interpreter for Prescribe, a small
statically-typed pedagogical pseudocode language (its surface syntax is
called Lucid).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
}

// newLogger wraps the standard log package with logutils's level filter
// (grounded on the hashicorp/logutils dependency): WARN by default, DEBUG
// under --verbose. It is the only thing in this binary that writes to
// stderr above the single diagnostic line.
func newLogger() *logutils.LevelFilter {
	min := logutils.LogLevel("WARN")
	if verbose {
		min = logutils.LogLevel("DEBUG")
	}
	return &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"},
		MinLevel: min,
		Writer:   os.Stderr,
	}
}

// usageError marks a failure that should exit 2 (bad invocation) even
// though it is surfaced as a plain Go error rather than a language
// Diagnostic: wrong suffix, unreadable file or stdin. Cobra's own flag and
// argument errors are not wrapped in it; they exit 2 through Execute's
// non-Diagnostic fallback.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// requirePrsdSuffix enforces the container format's file extension rule.
func requirePrsdSuffix(path string) error {
	if !strings.HasSuffix(path, ".prsd") {
		return usageErrorf("%s: expected a .prsd file", path)
	}
	return nil
}

// Execute runs the command tree and returns the process exit code: 0 on
// success, 1 when a program Diagnostic (§7's seven error kinds) aborted
// execution, 2 on any other invocation failure — including cobra's own
// argument-count/flag-parsing errors, which never carry a Diagnostic.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	if _, ok := perr.AsDiagnostic(err); ok {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	fmt.Fprintln(os.Stderr, err.Error())
	return 2
}
