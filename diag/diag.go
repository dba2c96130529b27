// Package diag accumulates source-positioned diagnostics so a single
// compilation pass can report every problem it finds instead of stopping
// at the first one.
package diag

import (
	"fmt"
	"go/token"
	"strings"
)

// Diagnostic is one recorded problem and where it came from.
type Diagnostic struct {
	Pos     token.Position
	Message string
}

func (d Diagnostic) String() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", d.Pos, d.Message)
	}
	return d.Message
}

// Errors collects diagnostics in record order. The zero value is ready to use.
// Recording never aborts; callers keep validating and call Resolve once at
// the end of the pass.
type Errors struct {
	diags []Diagnostic
}

// Add records one diagnostic. A zero position is allowed for module-level
// problems that have no single source location.
func (e *Errors) Add(pos token.Position, msg string) {
	e.diags = append(e.diags, Diagnostic{Pos: pos, Message: msg})
}

// Addf records one formatted diagnostic.
func (e *Errors) Addf(pos token.Position, format string, args ...any) {
	e.Add(pos, fmt.Sprintf(format, args...))
}

// Merge appends every diagnostic recorded in other, preserving order.
func (e *Errors) Merge(other *Errors) {
	if other == nil {
		return
	}
	e.diags = append(e.diags, other.diags...)
}

// IsEmpty reports whether nothing has been recorded.
func (e *Errors) IsEmpty() bool {
	return len(e.diags) == 0
}

// Len returns the number of recorded diagnostics.
func (e *Errors) Len() int {
	return len(e.diags)
}

// Diagnostics returns the recorded diagnostics in record order.
func (e *Errors) Diagnostics() []Diagnostic {
	return e.diags
}

// Resolve returns nil when the pass recorded nothing, otherwise a single
// *CompileError embedding every diagnostic.
func (e *Errors) Resolve() error {
	if e.IsEmpty() {
		return nil
	}
	return &CompileError{Diags: e.diags}
}

// CompileError is the combined failure of one compilation pass.
type CompileError struct {
	Diags []Diagnostic
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d error(s):", len(e.Diags))
	for _, d := range e.Diags {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}
