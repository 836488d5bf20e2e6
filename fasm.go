// Package fasmgo assembles x86 mnemonics with the flat assembler.
//
// Source text is accumulated from strings, lines or files, handed to the
// engine through regions it can address, and the result is either the
// machine code or a *Failure locating the fault in the caller's text:
//
//	code, err := fasmgo.AssembleText("use32\npush eax\nretn")
//	var f *fasmgo.Failure
//	if errors.As(err, &f) {
//		fmt.Println(f.Line, f.SourceLine())
//	}
//
// All engine calls in the process are serialised; the engine is not
// reentrant.
package fasmgo

import (
	"sync"

	"fasmgo/engine"
	"fasmgo/internal/diag"
	"fasmgo/internal/driver"
	"fasmgo/internal/membuf"
	"fasmgo/internal/source"
	"fasmgo/internal/trace"
)

// Option configures an Assembler.
type Option func(*Assembler)

// WithEngine selects the backend. Without it the default engine is opened
// on first use.
func WithEngine(e engine.Engine) Option {
	return func(a *Assembler) { a.opts.Engine = e }
}

// WithMemorySize sets the first work region size in bytes.
func WithMemorySize(n int) Option {
	return func(a *Assembler) { a.opts.MemorySize = n }
}

// WithMaxGrowth sets how many times the work region may double.
func WithMaxGrowth(n int) Option {
	return func(a *Assembler) { a.opts.MaxGrowth = n }
}

// WithPasses sets the pass limit handed to the engine.
func WithPasses(n uint16) Option {
	return func(a *Assembler) { a.opts.Passes = n }
}

// WithTracer records call, invoke and buffer events.
func WithTracer(t trace.Tracer) Option {
	return func(a *Assembler) { a.opts.Tracer = t }
}

// WithLoader replaces the file reader used by AssembleFile(s).
func WithLoader(l source.LineLoader) Option {
	return func(a *Assembler) { a.opts.Loader = l }
}

// WithTimings fills Result.Timings.
func WithTimings() Option {
	return func(a *Assembler) { a.opts.EnableTimings = true }
}

// WithStateObserver is called on every state change of every call.
func WithStateObserver(fn driver.StateObserver) Option {
	return func(a *Assembler) { a.opts.Observer = fn }
}

// Assembler runs assemble calls with a fixed configuration. Safe for
// concurrent use; calls into the engine are serialised.
type Assembler struct {
	opts driver.Options

	openOnce sync.Once
	openErr  error

	verOnce sync.Once
	ver     Version
}

// New returns an Assembler with default sizes and the given options.
func New(opts ...Option) *Assembler {
	a := &Assembler{opts: driver.Options{
		MemorySize: membuf.DefaultMemorySize,
		MaxGrowth:  membuf.DefaultMaxGrowth,
		Passes:     membuf.DefaultPasses,
	}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assembler) open() error {
	a.openOnce.Do(func() {
		if a.opts.Engine != nil {
			return
		}
		e, err := engine.Default()
		if err != nil {
			a.openErr = err
			return
		}
		a.opts.Engine = e
	})
	return a.openErr
}

// Input is everything one call assembles, in this order: Text, Lines,
// Files.
type Input struct {
	// Name labels the call in traces.
	Name  string
	Text  string
	Lines []string
	Files []string
	// Origin is the load address when HasOrigin is set.
	Origin    uint64
	HasOrigin bool
}

// Run assembles in and returns the full result, states and timings
// included.
func (a *Assembler) Run(in Input) *Result {
	return a.run(in.Name, in.Origin, in.HasOrigin, func(b *source.Builder) error {
		if in.Text != "" {
			b.AddText(in.Text)
		}
		b.AddLines(in.Lines)
		if len(in.Files) > 0 {
			return b.AddFiles(in.Files...)
		}
		return nil
	})
}

func (a *Assembler) run(name string, origin uint64, hasOrigin bool, fill func(*source.Builder) error) *Result {
	if err := a.open(); err != nil {
		return &Result{Failure: diag.Unavailable(err)}
	}
	return driver.Assemble(a.opts, driver.Request{
		Name:      name,
		Fill:      fill,
		Origin:    origin,
		HasOrigin: hasOrigin,
	})
}

// AssembleText assembles text as is. Text may hold several lines.
func (a *Assembler) AssembleText(text string) ([]byte, error) {
	return output(a.Run(Input{Name: "text", Text: text}))
}

// AssembleLines assembles lines, each terminated by LineSeparator.
func (a *Assembler) AssembleLines(lines []string) ([]byte, error) {
	return output(a.Run(Input{Name: "lines", Lines: lines}))
}

// AssembleFile assembles the file at path.
func (a *Assembler) AssembleFile(path string) ([]byte, error) {
	return output(a.Run(Input{Name: path, Files: []string{path}}))
}

// AssembleFiles assembles the files concatenated in argument order.
func (a *Assembler) AssembleFiles(paths ...string) ([]byte, error) {
	return output(a.Run(Input{Name: "files", Files: paths}))
}

// Version returns the engine version, asked once per Assembler.
func (a *Assembler) Version() (Version, error) {
	if err := a.open(); err != nil {
		return Version{}, diag.Unavailable(err)
	}
	a.verOnce.Do(func() {
		a.ver = engine.QueryVersion(a.opts.Engine)
	})
	return a.ver, nil
}

func output(res *Result) ([]byte, error) {
	if res.Failure != nil {
		return nil, res.Failure
	}
	return res.Output, nil
}

var (
	defaultMu  sync.Mutex
	defaultAsm *Assembler
)

// Default returns the Assembler used by the package-level functions.
func Default() *Assembler {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultAsm == nil {
		defaultAsm = New()
	}
	return defaultAsm
}

// SetDefaultEngine replaces the engine of the package-level functions and
// forgets the cached version.
func SetDefaultEngine(e engine.Engine) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultAsm = New(WithEngine(e))
}

// AssembleText assembles text with the default Assembler.
func AssembleText(text string) ([]byte, error) { return Default().AssembleText(text) }

// AssembleLines assembles lines with the default Assembler.
func AssembleLines(lines []string) ([]byte, error) { return Default().AssembleLines(lines) }

// AssembleFile assembles a file with the default Assembler.
func AssembleFile(path string) ([]byte, error) { return Default().AssembleFile(path) }

// AssembleFiles assembles files with the default Assembler.
func AssembleFiles(paths ...string) ([]byte, error) { return Default().AssembleFiles(paths...) }

// NewSession starts a Session on the default Assembler.
func NewSession() *Session { return Default().NewSession() }

// QueryVersion returns the default engine's version. It does not need a
// Session.
func QueryVersion() (Version, error) { return Default().Version() }
