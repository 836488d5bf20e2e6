package fasmgo

import (
	"slices"
	"strconv"
	"strings"

	"fasmgo/internal/diag"
	"fasmgo/internal/source"
	"fasmgo/internal/trace"
)

// Session is an editable list of source lines. A Session is not safe for
// concurrent use.
type Session struct {
	asm   *Assembler
	id    uint64
	lines []string
}

// NewSession starts an empty Session.
func (a *Assembler) NewSession() *Session {
	s := &Session{asm: a, id: trace.NextSpanID()}
	trace.Point(a.opts.Tracer, trace.ScopeSession, "session", "open #"+strconv.FormatUint(s.id, 10), 0)
	return s
}

// AddLine appends a line. With args, {N} placeholders are replaced by the
// N-th argument.
func (s *Session) AddLine(format string, args ...any) error {
	line, err := source.Format(format, args...)
	if err != nil {
		return diag.BadFormat(err)
	}
	s.lines = append(s.lines, line)
	return nil
}

// InsertLine puts a line before index i; i == Len() appends.
func (s *Session) InsertLine(i int, format string, args ...any) error {
	if i < 0 || i > len(s.lines) {
		return diag.IndexOutOfRange(i, len(s.lines))
	}
	line, err := source.Format(format, args...)
	if err != nil {
		return diag.BadFormat(err)
	}
	s.lines = slices.Insert(s.lines, i, line)
	return nil
}

// Clear drops every line.
func (s *Session) Clear() {
	s.lines = s.lines[:0]
	trace.Point(s.asm.opts.Tracer, trace.ScopeSession, "session", "clear #"+strconv.FormatUint(s.id, 10), 0)
}

// Len returns the number of lines.
func (s *Session) Len() int { return len(s.lines) }

// Lines returns a copy of the lines.
func (s *Session) Lines() []string { return slices.Clone(s.lines) }

// Mnemonics is the text handed to the engine: every line followed by
// LineSeparator.
func (s *Session) Mnemonics() string {
	var sb strings.Builder
	for _, line := range s.lines {
		sb.WriteString(line)
		sb.WriteString(source.LineSeparator)
	}
	return sb.String()
}

// Assemble assembles the current lines. The Session is left unchanged.
func (s *Session) Assemble() ([]byte, error) {
	return output(s.run(0, false))
}

// AssembleAt assembles the current lines loaded at origin. Lines reported
// in failures stay those of the Session.
func (s *Session) AssembleAt(origin uint64) ([]byte, error) {
	return output(s.run(origin, true))
}

// Result assembles the current lines and returns the full result.
func (s *Session) Result() *Result {
	return s.run(0, false)
}

func (s *Session) run(origin uint64, hasOrigin bool) *Result {
	lines := slices.Clone(s.lines)
	return s.asm.run("session #"+strconv.FormatUint(s.id, 10), origin, hasOrigin, func(b *source.Builder) error {
		b.AddLines(lines)
		return nil
	})
}
