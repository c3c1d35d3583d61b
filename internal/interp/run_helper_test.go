package interp

import (
	"testing"

	"github.com/mkyuone/prescribe/internal/parser"
	"github.com/mkyuone/prescribe/internal/semantic"
)

func mustRun(t *testing.T, src, stdin string) string {
	t.Helper()
	p, err := parser.New(src)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	result, err := semantic.Analyze(prog)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	out, err := Run(prog, result, stdin)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return out
}

// runExpectError parses, checks and runs src, asserting it fails, and
// returns the error (whose message is the diagnostic line).
func runExpectError(t *testing.T, src, stdin string) error {
	t.Helper()
	p, err := parser.New(src)
	if err != nil {
		return err
	}
	prog, err := p.ParseProgram()
	if err != nil {
		return err
	}
	result, err := semantic.Analyze(prog)
	if err != nil {
		return err
	}
	_, err = Run(prog, result, stdin)
	if err == nil {
		t.Fatalf("expected a runtime error, got none")
	}
	return err
}
