package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// DefaultExecPath is the flat assembler binary looked up on PATH.
const DefaultExecPath = "fasm"

// outputOffset is where engines in this package place produced code: right
// after the state header, 16-byte aligned like fasm itself.
const outputOffset = 16

// Exec drives the fasm command line binary. The source region is written to
// a scratch file, the work region size becomes fasm's -m memory limit, and
// the result is written back into the work region using the same layout the
// library build of fasm produces.
type Exec struct {
	*Heap
	// Path of the fasm binary; DefaultExecPath when empty.
	Path string
}

// NewExec returns an engine running the binary at path.
func NewExec(path string) *Exec {
	if path == "" {
		path = DefaultExecPath
	}
	return &Exec{Heap: NewHeap(), Path: path}
}

// Check reports whether the binary can be found.
func (e *Exec) Check() error {
	if _, err := exec.LookPath(e.binary()); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (e *Exec) binary() string {
	if e.Path == "" {
		return DefaultExecPath
	}
	return e.Path
}

var versionPattern = regexp.MustCompile(`version\s+(\d+)\.(\d+)`)

// Version runs fasm without arguments and parses its banner.
func (e *Exec) Version() uint32 {
	// fasm без аргументов печатает баннер и usage, код возврата ненулевой
	out, _ := exec.Command(e.binary()).CombinedOutput() //nolint:errcheck
	return parseVersion(out)
}

func parseVersion(banner []byte) uint32 {
	m := versionPattern.FindSubmatch(banner)
	if m == nil {
		return 0
	}
	major, err := strconv.ParseUint(string(m[1]), 10, 16)
	if err != nil {
		return 0
	}
	minor, err := strconv.ParseUint(string(m[2]), 10, 16)
	if err != nil {
		return 0
	}
	return Version{Major: uint16(major), Minor: uint16(minor)}.Pack()
}

// Assemble implements Engine.
func (e *Exec) Assemble(src, mem Region, passes uint16) Condition {
	text := src.Bytes()
	if n := bytes.IndexByte(text, 0); n >= 0 {
		text = text[:n]
	}
	if len(mem.Bytes()) < outputOffset {
		return PutCondition(mem, ConditionOutOfMemory)
	}

	dir, err := os.MkdirTemp("", "fasmgo-")
	if err != nil {
		return PutCondition(mem, ConditionWriteFailed)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "source.asm")
	output := filepath.Join(dir, "output.bin")
	if err := os.WriteFile(input, text, 0o600); err != nil {
		return PutCondition(mem, ConditionWriteFailed)
	}

	args := make([]string, 0, 6)
	if kb := len(mem.Bytes()) / 1024; kb > 0 {
		args = append(args, "-m", strconv.Itoa(kb))
	}
	if passes > 0 {
		args = append(args, "-p", strconv.Itoa(int(passes)))
	}
	args = append(args, input, output)

	cmd := exec.Command(e.binary(), args...)
	cmd.Dir = dir
	report, runErr := cmd.CombinedOutput()
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return PutCondition(mem, ConditionInvalidParameter)
		}
		return writeFailure(mem, parseFailure(report, input, text))
	}

	code, err := os.ReadFile(output)
	if err != nil {
		return PutCondition(mem, ConditionWriteFailed)
	}
	n, err := safecast.Conv[uint32](len(code))
	if err != nil || outputOffset+len(code) > len(mem.Bytes()) {
		return PutCondition(mem, ConditionOutOfMemory)
	}
	copy(mem.Bytes()[outputOffset:], code)
	return PutSuccess(mem, outputOffset, n)
}

// failure is what could be recovered from fasm's textual report.
type failure struct {
	cond  Condition
	code  ErrorCode
	chain []LineHeader
}

func writeFailure(mem Region, f failure) Condition {
	if f.cond != ConditionError {
		return PutCondition(mem, f.cond)
	}
	return PutError(mem, f.code, outputOffset, f.chain)
}

var locationPattern = regexp.MustCompile(`^(.+?) \[(\d+)\](?: .+ \[\d+\])?:$`)

// parseFailure reads fasm's error report:
//
//	source.asm [2]:
//	retnj
//	processed: retnj
//	error: illegal instruction.
//
// Macro expansions print one location block per level, outermost first.
func parseFailure(report []byte, input string, text []byte) failure {
	var blocks []LineHeader
	var message string
	for _, line := range strings.Split(strings.ReplaceAll(string(report), "\r\n", "\n"), "\n") {
		if msg, ok := strings.CutPrefix(line, "error: "); ok {
			message = strings.TrimSuffix(strings.TrimSpace(msg), ".")
			continue
		}
		m := locationPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		number, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		path := m[1]
		if samePath(path, input) {
			path = ""
		}
		blocks = append(blocks, LineHeader{Path: path, Number: number})
	}

	cond, code := classifyMessage(message)
	f := failure{cond: cond, code: code}
	if cond != ConditionError {
		return f
	}

	// innermost first; every level but the outermost is macro generated
	for i := len(blocks) - 1; i >= 0; i-- {
		h := blocks[i]
		h.Macro = i > 0
		if !h.Macro && h.Path == "" {
			h.Offset = lineOffset(text, h.Number)
		}
		f.chain = append(f.chain, h)
	}
	return f
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b) || a == filepath.Base(b)
}

type messageRule struct {
	prefix string
	cond   Condition
	code   ErrorCode
}

var messageRules = buildMessageRules()

func buildMessageRules() []messageRule {
	rules := []messageRule{
		{"out of memory", ConditionOutOfMemory, CodeNone},
		{"source file not found", ConditionSourceNotFound, CodeNone},
		{"stack overflow", ConditionStackOverflow, CodeNone},
		{"unexpected end of file", ConditionUnexpectedEnd, CodeNone},
		{"code cannot be generated", ConditionCannotGenerateCode, CodeNone},
		{"format limitations exceeded", ConditionFormatLimitations, CodeNone},
		{"write failed", ConditionWriteFailed, CodeNone},
		{"invalid definition provided", ConditionInvalidDefinition, CodeNone},
	}
	for code, msg := range codeMessages {
		rules = append(rules, messageRule{msg, ConditionError, code})
	}
	return rules
}

func classifyMessage(message string) (Condition, ErrorCode) {
	best := -1
	for i, rule := range messageRules {
		if !strings.HasPrefix(message, rule.prefix) {
			continue
		}
		if best < 0 || len(rule.prefix) > len(messageRules[best].prefix) {
			best = i
		}
	}
	if best < 0 {
		// текст от директивы err или неизвестное сообщение
		return ConditionError, CodeUserError
	}
	return messageRules[best].cond, messageRules[best].code
}

// lineOffset returns the byte offset at which 1-based line starts in text.
func lineOffset(text []byte, line int) int {
	if line <= 1 {
		return 0
	}
	seen := 1
	for i, b := range text {
		if b == '\n' {
			seen++
			if seen == line {
				return i + 1
			}
		}
	}
	return len(text)
}
