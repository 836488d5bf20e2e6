package source

import (
	"bytes"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decode turns raw file bytes into the text fasm reads: UTF-8 without a
// byte order mark, LF line ends. Lone CRs are kept.
func decode(raw []byte) ([]byte, FileFlags, error) {
	var flags FileFlags
	if bytes.HasPrefix(raw, bomUTF16LE) || bytes.HasPrefix(raw, bomUTF16BE) {
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(dec, raw)
		if err != nil {
			return nil, 0, err
		}
		raw, flags = out, FileTranscoded|FileHadBOM
	}
	if bytes.HasPrefix(raw, bomUTF8) {
		raw, flags = raw[len(bomUTF8):], flags|FileHadBOM
	}
	if bytes.Contains(raw, []byte("\r\n")) {
		raw, flags = bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n")), flags|FileNormalizedCRLF
	}
	return raw, flags, nil
}

// lineStarts returns the byte offset of every line of text.
func lineStarts(text string) []int {
	starts := make([]int, 1, strings.Count(text, "\n")+1)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' && i+1 < len(text) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// positionOf converts off into a 1-based line and column.
func positionOf(starts []int, off int) LineCol {
	// последняя строка, начинающаяся не позже off
	i := sort.SearchInts(starts, off+1) - 1
	if i < 0 {
		i = 0
	}
	return LineCol{Line: i + 1, Col: off - starts[i] + 1}
}

// lineAt returns line n (1-based) of text without its terminator.
func lineAt(text string, starts []int, n int) string {
	if n <= 0 || n > len(starts) {
		return ""
	}
	line := text[starts[n-1]:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return line
}

// countLines counts lines the way fasm does: LF separates lines, a final
// line without terminator counts, a trailing terminator does not open a
// new one.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if text[len(text)-1] != '\n' {
		n++
	}
	return n
}

// splitLines is the inverse of joining lines with terminators.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
