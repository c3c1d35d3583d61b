// Package errors defines Prescribe's seven diagnostic kinds and the single
// line format the host boundary prints on failure.
package errors

import "fmt"

// Kind is one of the seven diagnostic categories fixed by the language spec.
type Kind string

const (
	SyntaxError  Kind = "SyntaxError"
	NameError    Kind = "NameError"
	TypeError    Kind = "TypeError"
	RangeError   Kind = "RangeError"
	RuntimeError Kind = "RuntimeError"
	FileError    Kind = "FileError"
	AccessError  Kind = "AccessError"
)

// Diagnostic is the single typed error that aborts a running program or a
// failed compile. It always carries the source line where the violation was
// first detected.
type Diagnostic struct {
	Kind    Kind
	Line    int
	Message string
}

func New(kind Kind, line int, format string, args ...any) *Diagnostic {
	return &Diagnostic{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface using the exact wire format from the
// spec's external-interfaces section: "<ErrorKind> at line <N>: <message>".
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s at line %d: %s", d.Kind, d.Line, d.Message)
}

// AsDiagnostic unwraps err (following any github.com/pkg/errors wrapping) to
// the first *Diagnostic in its chain, if any.
func AsDiagnostic(err error) (*Diagnostic, bool) {
	type causer interface{ Cause() error }
	for err != nil {
		if d, ok := err.(*Diagnostic); ok {
			return d, true
		}
		c, ok := err.(causer)
		if !ok {
			return nil, false
		}
		err = c.Cause()
	}
	return nil, false
}
