package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"fasmgo/internal/diag"
)

const tabWidth = 4

type palette struct {
	sev    map[diag.Severity]*color.Color
	code   *color.Color
	msg    *color.Color
	gutter *color.Color
	caret  *color.Color
	note   *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
		},
		code:   color.New(color.FgMagenta),
		msg:    color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgRed, color.Bold),
		note:   color.New(color.FgCyan),
	}
	all := []*color.Color{p.code, p.msg, p.gutter, p.caret, p.note}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем строку исходника с подчёркиванием ^~~~ под токеном, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		prettyOne(w, p, d, opts)
	}
}

func prettyOne(w io.Writer, p palette, d diag.Diagnostic, opts PrettyOpts) {
	sev, ok := p.sev[d.Severity]
	if !ok {
		sev = p.sev[diag.SevError]
	}
	fmt.Fprintf(w, "%s: %s %s: %s\n",
		location(d, opts.PathMode, opts.BaseDir, opts.Source),
		sev.Sprint(d.Severity.String()),
		p.code.Sprint(d.Code.ID()),
		p.msg.Sprint(d.Message),
	)

	if d.Line > 0 && d.Text != "" {
		num := strconv.Itoa(d.Line)
		pad := strings.Repeat(" ", len(num))
		shown, caretPad, caretLen := caretLayout(d.Text, d.Column)
		fmt.Fprintf(w, " %s %s %s\n", p.gutter.Sprint(num), p.gutter.Sprint("|"), shown)
		if d.Column > 0 {
			fmt.Fprintf(w, " %s %s %s%s\n", pad, p.gutter.Sprint("|"),
				strings.Repeat(" ", caretPad),
				p.caret.Sprint("^"+strings.Repeat("~", caretLen-1)))
		}
	}

	if opts.ShowNotes {
		for _, n := range d.Notes {
			where := ""
			if n.Path != "" {
				where = formatPath(n.Path, opts.PathMode, opts.BaseDir)
				if n.Line > 0 {
					where += ":" + strconv.Itoa(n.Line)
				}
				where += ": "
			}
			fmt.Fprintf(w, "  %s %s%s\n", p.note.Sprint("note:"), where, n.Msg)
		}
	}
}

func location(d diag.Diagnostic, mode PathMode, baseDir, fallback string) string {
	path := formatPath(d.Path, mode, baseDir)
	if path == "" {
		path = fallback
	}
	if path == "" {
		path = "<source>"
	}
	if d.Line <= 0 {
		return path
	}
	loc := path + ":" + strconv.Itoa(d.Line)
	if d.Column > 0 {
		loc += ":" + strconv.Itoa(d.Column)
	}
	return loc
}

// caretLayout expands tabs and measures, in terminal cells, where the caret
// starts and how long the token under col (1-based byte column) is.
func caretLayout(text string, col int) (shown string, pad, length int) {
	expand := func(s string) string { return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth)) }
	shown = expand(text)
	if col <= 0 {
		return shown, 0, 1
	}
	start := min(col-1, len(text))
	end := start
	for end < len(text) {
		r := rune(text[end])
		if r < 0x80 && unicode.IsSpace(r) {
			break
		}
		end++
	}
	pad = runewidth.StringWidth(expand(text[:start]))
	length = max(1, runewidth.StringWidth(text[start:end]))
	return shown, pad, length
}

// Short prints one line per diagnostic: <location>: <CODE> <message>.
func Short(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	for _, d := range bag.Items() {
		fmt.Fprintf(w, "%s: %s %s\n", location(d, opts.PathMode, opts.BaseDir, opts.Source), d.Code.ID(), d.Message)
	}
}
