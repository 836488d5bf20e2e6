package diagfmt

import "fasmgo/internal/diag"

// LocationJSON is a position; line and column are zero unless
// JSONOpts.IncludePositions is set.
type LocationJSON struct {
	File   string `json:"file,omitempty" msgpack:"file,omitempty"`
	Line   int    `json:"line,omitempty" msgpack:"line,omitempty"`
	Column int    `json:"column,omitempty" msgpack:"column,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message" msgpack:"message"`
	Location LocationJSON `json:"location" msgpack:"location"`
}

// DiagnosticJSON is the serialised form of diag.Diagnostic.
type DiagnosticJSON struct {
	Severity string       `json:"severity" msgpack:"severity"`
	Code     string       `json:"code" msgpack:"code"`
	Kind     string       `json:"kind" msgpack:"kind"`
	Message  string       `json:"message" msgpack:"message"`
	Location LocationJSON `json:"location" msgpack:"location"`
	Source   string       `json:"source,omitempty" msgpack:"source,omitempty"`
	Notes    []NoteJSON   `json:"notes,omitempty" msgpack:"notes,omitempty"`
}

// DiagnosticsOutput is the batch-wide list, sorted, cut at JSONOpts.Max.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics" msgpack:"diagnostics"`
	Count       int              `json:"count" msgpack:"count"`
}

func makeLocation(path string, line, col int, opts JSONOpts) LocationJSON {
	loc := LocationJSON{File: formatPath(path, opts.PathMode, opts.BaseDir)}
	if opts.IncludePositions {
		loc.Line, loc.Column = line, col
	}
	return loc
}

// MakeDiagnostic converts one diagnostic.
func MakeDiagnostic(d diag.Diagnostic, opts JSONOpts) DiagnosticJSON {
	out := DiagnosticJSON{
		Severity: d.Severity.String(),
		Code:     d.Code.ID(),
		Kind:     d.Kind.String(),
		Message:  d.Message,
		Location: makeLocation(d.Path, d.Line, d.Column, opts),
	}
	if opts.IncludeSource {
		out.Source = d.Text
	}
	if opts.IncludeNotes && len(d.Notes) > 0 {
		for _, n := range d.Notes {
			out.Notes = append(out.Notes, NoteJSON{
				Message:  n.Msg,
				Location: makeLocation(n.Path, n.Line, 0, opts),
			})
		}
	}
	return out
}

// BuildDiagnosticsOutput converts the bag; Count is what was kept.
func BuildDiagnosticsOutput(bag *diag.Bag, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	if opts.Max > 0 {
		items = items[:min(opts.Max, len(items))]
	}
	out := DiagnosticsOutput{Diagnostics: make([]DiagnosticJSON, len(items))}
	for i, d := range items {
		out.Diagnostics[i] = MakeDiagnostic(d, opts)
	}
	out.Count = len(items)
	return out
}
