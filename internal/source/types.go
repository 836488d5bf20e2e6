package source

// FileFlags records what loading had to do to the raw bytes.
type FileFlags uint8

const (
	FileHadBOM FileFlags = 1 << iota
	FileNormalizedCRLF
	FileTranscoded // был UTF-16
)

// LineCol is a 1-based position in a text.
type LineCol struct {
	Line int
	Col  int
}

// FragmentKind tells where a fragment of the flattened text came from.
type FragmentKind uint8

const (
	FragmentText    FragmentKind = iota // verbatim text, may span lines
	FragmentLine                        // one formatted line
	FragmentFile                        // whole file
	FragmentPrelude                     // synthetic, not part of the caller's text
)

func (k FragmentKind) String() string {
	switch k {
	case FragmentText:
		return "text"
	case FragmentLine:
		return "line"
	case FragmentFile:
		return "file"
	case FragmentPrelude:
		return "prelude"
	default:
		return "unknown"
	}
}

// Fragment is a contiguous range of lines of the flattened text.
type Fragment struct {
	ID     int
	Kind   FragmentKind
	Origin string // file path for FragmentFile
	Start  int    // first line, 1-based, in the flattened text
	Count  int    // number of lines
	Offset int    // byte offset of the first line
	Size   int    // bytes, including the terminator of the last line
}

// End returns the line after the last line of f.
func (f Fragment) End() int { return f.Start + f.Count }

// Contains reports whether line belongs to f.
func (f Fragment) Contains(line int) bool {
	return line >= f.Start && line < f.End()
}
