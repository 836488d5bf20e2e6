package diag

import (
	"fmt"
	"strings"

	"fasmgo/engine"
)

// Failure is the error returned for a failed assemble call. It is built once
// and not changed afterwards.
type Failure struct {
	Kind      Kind
	Code      Code
	Condition engine.Condition // ConditionError for FASMERR codes, zero for local failures
	Message   string

	// Line is 1-based over the caller's flattened text, 0 when unknown.
	Line int
	// Column is 1-based within Line, 0 when unknown.
	Column int
	// Offset is the engine's byte offset made relative to the caller's text.
	Offset int

	// Origin and LocalLine name the file (for file input) and the line
	// inside it; for other input Origin is empty and LocalLine equals Line.
	Origin    string
	LocalLine int
	// Macro is set when the engine failed inside a macro expansion; Line
	// then points at the invocation.
	Macro bool
	// Include names a file pulled in by the source itself when the engine
	// failed there; Line is 0 in that case.
	Include     string
	IncludeLine int

	// Mnemonics is the caller's text exactly as submitted.
	Mnemonics string

	// Err is the underlying cause for local failures.
	Err error
}

func (f *Failure) Error() string {
	var sb strings.Builder
	sb.WriteString(f.Message)
	switch {
	case f.Include != "":
		fmt.Fprintf(&sb, " at %s:%d", f.Include, f.IncludeLine)
	case f.Line > 0 && f.Origin != "":
		fmt.Fprintf(&sb, " at line %d (%s:%d)", f.Line, f.Origin, f.LocalLine)
	case f.Line > 0:
		fmt.Fprintf(&sb, " at line %d", f.Line)
	case f.Origin != "":
		fmt.Fprintf(&sb, " (%s)", f.Origin)
	}
	if f.Line > 0 && f.Column > 0 {
		fmt.Fprintf(&sb, ", column %d", f.Column)
	}
	if f.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(f.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes the kind's sentinel and the cause.
func (f *Failure) Unwrap() []error {
	if f.Err != nil {
		return []error{f.Kind.Sentinel(), f.Err}
	}
	return []error{f.Kind.Sentinel()}
}

// SourceLine returns the text of the failing line, or "".
func (f *Failure) SourceLine() string {
	if f.Line <= 0 {
		return ""
	}
	lines := strings.Split(f.Mnemonics, "\n")
	if f.Line > len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[f.Line-1], "\r")
}

// Diagnostic converts f into a render-friendly record.
func (f *Failure) Diagnostic() Diagnostic {
	line := f.LocalLine
	if f.Origin == "" {
		line = f.Line
	}
	d := NewError(f.Code, f.Message).At(f.Origin, line, f.Column)
	d.Kind, d.Text = f.Kind, f.SourceLine()
	if f.Macro {
		d = d.WithNote("error inside a macro expansion invoked here")
	}
	if f.Include != "" {
		d.Path, d.Line, d.Text = f.Include, f.IncludeLine, ""
		d = d.WithNote("in a file included by the source")
	}
	if f.Err != nil {
		d = d.WithNote(f.Err.Error())
	}
	return d
}
