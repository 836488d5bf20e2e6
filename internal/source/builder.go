package source

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// LoadError reports a file the Builder could not read.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string { return "load " + e.Path + ": " + e.Err.Error() }
func (e *LoadError) Unwrap() error { return e.Err }

// Builder flattens text, lines and files into one Document, recording
// a fragment per input. A Builder is not safe for concurrent use.
type Builder struct {
	loader  LineLoader
	prelude []string

	body  strings.Builder
	frags FragmentMap // относительно body: строки с 1, байты с 0
	lines int
	open  bool // body не заканчивается переводом строки
}

// NewBuilder returns a Builder reading files through loader; a nil loader
// means a fresh FileSet.
func NewBuilder(loader LineLoader) *Builder {
	if loader == nil {
		loader = NewFileSet()
	}
	return &Builder{loader: loader}
}

// AddText appends text verbatim. It may span lines and may lack a final
// terminator; the next fragment then starts on a new line.
func (b *Builder) AddText(text string) {
	b.add(FragmentText, "", text)
}

// AddLine appends one line, substituting {N} placeholders when args are given.
func (b *Builder) AddLine(format string, args ...any) error {
	line, err := Format(format, args...)
	if err != nil {
		return err
	}
	b.add(FragmentLine, "", line+LineSeparator)
	return nil
}

// AddLines appends lines as they are, each with a terminator.
func (b *Builder) AddLines(lines []string) {
	for _, line := range lines {
		b.add(FragmentLine, "", line+LineSeparator)
	}
}

// AddFile appends every line of the file at path.
func (b *Builder) AddFile(path string) error {
	return b.AddFiles(path)
}

// AddFiles loads paths concurrently and appends them in argument order.
// Nothing is appended if any file fails to load.
func (b *Builder) AddFiles(paths ...string) error {
	loaded := make([][]string, len(paths))
	var g errgroup.Group
	g.SetLimit(max(1, min(runtime.GOMAXPROCS(0), len(paths))))
	for i, path := range paths {
		g.Go(func() error {
			lines, err := b.loader.LoadLines(path)
			if err != nil {
				return &LoadError{Path: path, Err: err}
			}
			// индекс i уникален, мьютекс не нужен
			loaded[i] = lines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, lines := range loaded {
		var sb strings.Builder
		for _, line := range lines {
			sb.WriteString(line)
			sb.WriteString(LineSeparator)
		}
		b.add(FragmentFile, paths[i], sb.String())
	}
	return nil
}

// Prelude adds a synthetic line placed before everything else. Prelude
// lines reach the engine but are not part of Document.Mnemonics.
func (b *Builder) Prelude(line string) {
	b.prelude = append(b.prelude, line)
}

// Len returns the number of lines appended so far, prelude excluded.
func (b *Builder) Len() int { return b.lines }

func (b *Builder) add(kind FragmentKind, origin, text string) {
	if b.open {
		b.body.WriteString(LineSeparator)
		b.frags[len(b.frags)-1].Size += len(LineSeparator)
		b.open = false
	}
	count := countLines(text)
	b.frags = append(b.frags, Fragment{
		ID:     len(b.frags),
		Kind:   kind,
		Origin: origin,
		Start:  b.lines + 1,
		Count:  count,
		Offset: b.body.Len(),
		Size:   len(text),
	})
	b.body.WriteString(text)
	b.lines += count
	b.open = text != "" && !strings.HasSuffix(text, "\n")
}

// Build returns the flattened document. The Builder can keep accumulating
// afterwards.
func (b *Builder) Build() *Document {
	var pre strings.Builder
	for _, line := range b.prelude {
		pre.WriteString(line)
		pre.WriteString(LineSeparator)
	}
	mnemonics := b.body.String()
	doc := &Document{
		Text:         pre.String() + mnemonics,
		Mnemonics:    mnemonics,
		PreludeLines: countLines(pre.String()),
		PreludeSize:  pre.Len(),
		starts:       lineStarts(mnemonics),
	}

	frags := make(FragmentMap, 0, len(b.frags)+1)
	if doc.PreludeLines > 0 {
		frags = append(frags, Fragment{
			Kind:  FragmentPrelude,
			Start: 1,
			Count: doc.PreludeLines,
			Size:  doc.PreludeSize,
		})
	}
	for _, f := range b.frags {
		f.ID = len(frags)
		f.Start += doc.PreludeLines
		f.Offset += doc.PreludeSize
		frags = append(frags, f)
	}
	doc.Fragments = frags
	return doc
}

// Document is a flattened source ready for the engine.
type Document struct {
	// Text is submitted to the engine, prelude included.
	Text string
	// Mnemonics is the caller's text byte for byte, prelude excluded.
	Mnemonics string
	// Fragments maps lines of Text back to their inputs.
	Fragments FragmentMap

	PreludeLines int
	PreludeSize  int

	starts []int // начала строк Mnemonics
}

// Lines returns the caller's line count.
func (d *Document) Lines() int { return countLines(d.Mnemonics) }

// CallerLine converts a line of Text into a line of Mnemonics.
// ok is false for prelude lines and lines past the end.
func (d *Document) CallerLine(engineLine int) (int, bool) {
	f, ok := d.Fragments.Locate(engineLine)
	if !ok || f.Kind == FragmentPrelude {
		return 0, false
	}
	return engineLine - d.PreludeLines, true
}

// CallerOffset converts a byte offset of Text into one of Mnemonics.
func (d *Document) CallerOffset(engineOffset int) (int, bool) {
	off := engineOffset - d.PreludeSize
	if off < 0 || off > len(d.Mnemonics) {
		return 0, false
	}
	return off, true
}

// Position returns the line and column of a byte offset of Mnemonics.
func (d *Document) Position(off int) LineCol {
	if off < 0 {
		off = 0
	}
	if off > len(d.Mnemonics) {
		off = len(d.Mnemonics)
	}
	return positionOf(d.starts, off)
}

// Line returns caller line n (1-based) without its terminator.
func (d *Document) Line(n int) string {
	return strings.TrimSuffix(lineAt(d.Mnemonics, d.starts, n), "\r")
}

// Origin names where caller line n came from and its line number there.
// Inputs other than files report an empty origin and n itself.
func (d *Document) Origin(n int) (string, int) {
	f, ok := d.Fragments.Locate(n + d.PreludeLines)
	if !ok || f.Kind != FragmentFile {
		return "", n
	}
	return f.Origin, n + d.PreludeLines - f.Start + 1
}

// String is a short summary used in traces.
func (d *Document) String() string {
	return fmt.Sprintf("%d line(s), %d fragment(s), %d byte(s)", d.Lines(), len(d.Fragments), len(d.Text))
}
