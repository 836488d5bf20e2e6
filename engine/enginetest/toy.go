// Package enginetest provides an in-process engine for tests.
//
// Toy speaks the same memory protocol as the flat assembler library: it
// reads a NUL-terminated source region and writes FASM_STATE, LINE_HEADER
// records and output into the work region. It understands only a handful of
// mnemonics, enough to exercise the interop and diagnostics layers:
//
//	use16 | use32 | use64        org N          label:
//	push reg | pop reg           retn | ret     nop | int3
//	jmp target                   db v[, v...]   times N <instruction>
//
// Everything else is reported as an illegal instruction.
package enginetest

import (
	"bytes"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"fasmgo/engine"
)

// DefaultVersion is what Toy reports unless told otherwise.
var DefaultVersion = engine.Version{Major: 1, Minor: 70}

const outputOffset = 16

// Toy is a deterministic stand-in for the flat assembler.
type Toy struct {
	*engine.Heap

	// Ver is reported by Version.
	Ver engine.Version
	// Delay is slept inside Assemble; widens the window for reentrancy tests.
	Delay time.Duration

	calls      atomic.Int64
	inflight   atomic.Int32
	reentrancy atomic.Int32
}

// New returns a Toy with its own heap.
func New() *Toy {
	return &Toy{Heap: engine.NewHeap(), Ver: DefaultVersion}
}

// Calls reports how many Assemble calls were made.
func (t *Toy) Calls() int64 { return t.calls.Load() }

// Reentered reports how many times Assemble was entered while another call
// was still running.
func (t *Toy) Reentered() int32 { return t.reentrancy.Load() }

// Version implements engine.Engine.
func (t *Toy) Version() uint32 {
	t.enter()
	defer t.leave()
	return t.Ver.Pack()
}

func (t *Toy) enter() {
	if t.inflight.Add(1) > 1 {
		t.reentrancy.Add(1)
	}
}

func (t *Toy) leave() { t.inflight.Add(-1) }

// Assemble implements engine.Engine.
func (t *Toy) Assemble(src, mem engine.Region, passes uint16) engine.Condition {
	t.enter()
	defer t.leave()
	t.calls.Add(1)
	if t.Delay > 0 {
		time.Sleep(t.Delay)
	}

	text := src.Bytes()
	n := bytes.IndexByte(text, 0)
	if n < 0 {
		return engine.PutCondition(mem, engine.ConditionInvalidParameter)
	}
	if len(mem.Bytes()) < outputOffset {
		return engine.PutCondition(mem, engine.ConditionOutOfMemory)
	}
	if passes == 0 {
		passes = 100
	}

	out, fail := assemble(string(text[:n]), int(passes))
	if fail != nil {
		if fail.cond != engine.ConditionError {
			return engine.PutCondition(mem, fail.cond)
		}
		return engine.PutError(mem, fail.code, outputOffset, []engine.LineHeader{{
			Number: fail.line,
			Offset: fail.offset,
		}})
	}
	if outputOffset+len(out) > len(mem.Bytes()) {
		return engine.PutCondition(mem, engine.ConditionOutOfMemory)
	}
	copy(mem.Bytes()[outputOffset:], out)
	return engine.PutSuccess(mem, outputOffset, uint32(len(out)))
}

type toyError struct {
	cond   engine.Condition
	code   engine.ErrorCode
	line   int
	offset int
}

type sourceLine struct {
	number int
	offset int
	text   string
}

func splitLines(text string) []sourceLine {
	var lines []sourceLine
	offset := 0
	for i := 1; offset < len(text); i++ {
		end := strings.IndexByte(text[offset:], '\n')
		next := len(text)
		if end >= 0 {
			next = offset + end + 1
			end += offset
		} else {
			end = len(text)
		}
		lines = append(lines, sourceLine{number: i, offset: offset, text: strings.TrimRight(text[offset:end], "\r")})
		offset = next
	}
	return lines
}

type pass struct {
	mode    int
	addr    int64
	labels  map[string]int64
	prev    map[string]int64
	missing bool
	out     []byte
}

func assemble(text string, passes int) ([]byte, *toyError) {
	lines := splitLines(text)
	var prev map[string]int64
	for i := 0; i < passes; i++ {
		p := &pass{mode: 16, labels: make(map[string]int64), prev: prev}
		for _, ln := range lines {
			if err := p.line(ln); err != nil {
				if err.code == engine.CodeUndefinedSymbol && prev == nil {
					// на первом проходе метка может быть объявлена ниже
					p.missing = true
					continue
				}
				err.line, err.offset = ln.number, ln.offset
				return nil, err
			}
		}
		if !p.missing && sameLabels(prev, p.labels) {
			return p.out, nil
		}
		prev = p.labels
	}
	return nil, &toyError{cond: engine.ConditionCannotGenerateCode}
}

func sameLabels(a, b map[string]int64) bool {
	if a == nil || len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func codeErr(code engine.ErrorCode) *toyError {
	return &toyError{cond: engine.ConditionError, code: code}
}

func (p *pass) line(ln sourceLine) *toyError {
	text := ln.text
	if i := strings.IndexByte(text, ';'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if name, rest, ok := strings.Cut(text, ":"); ok && isIdent(strings.TrimSpace(name)) {
		name = strings.TrimSpace(name)
		if _, dup := p.labels[name]; dup {
			return codeErr(engine.CodeSymbolAlreadyDefined)
		}
		p.labels[name] = p.addr
		text = strings.TrimSpace(rest)
	}
	if text == "" {
		return nil
	}
	return p.instruction(text)
}

func (p *pass) emit(b ...byte) {
	p.out = append(p.out, b...)
	p.addr += int64(len(b))
}

func (p *pass) instruction(text string) *toyError {
	mnemonic, operands := splitWord(text)
	mnemonic = strings.ToLower(mnemonic)

	switch mnemonic {
	case "use16", "use32", "use64":
		if operands != "" {
			return codeErr(engine.CodeExtraCharactersOnLine)
		}
		p.mode, _ = strconv.Atoi(mnemonic[3:])
	case "org":
		v, err := p.value(operands)
		if err != nil {
			return err
		}
		p.addr = v
	case "retn", "ret":
		p.emit(0xC3)
	case "nop":
		p.emit(0x90)
	case "int3":
		p.emit(0xCC)
	case "push", "pop":
		r, ok := p.register(strings.ToLower(operands))
		if !ok {
			return codeErr(engine.CodeInvalidOperand)
		}
		base := byte(0x50)
		if mnemonic == "pop" {
			base = 0x58
		}
		p.emit(base + r)
	case "jmp":
		return p.jump(operands)
	case "db":
		for _, item := range strings.Split(operands, ",") {
			v, err := p.value(strings.TrimSpace(item))
			if err != nil {
				return err
			}
			if v < -128 || v > 255 {
				return codeErr(engine.CodeValueOutOfRange)
			}
			p.emit(byte(v))
		}
	case "times":
		count, body := splitWord(operands)
		if body == "" {
			return codeErr(engine.CodeInvalidArgument)
		}
		n, err := p.value(count)
		if err != nil {
			return err
		}
		if n < 0 || n > 1<<24 {
			return codeErr(engine.CodeTooManyRepeats)
		}
		for range n {
			if err := p.instruction(body); err != nil {
				return err
			}
		}
	default:
		return codeErr(engine.CodeIllegalInstruction)
	}
	return nil
}

func splitWord(text string) (string, string) {
	i := strings.IndexAny(text, " \t")
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i+1:])
}

func (p *pass) jump(operand string) *toyError {
	target, err := p.value(operand)
	if err != nil {
		return err
	}
	short := target - (p.addr + 2)
	if short >= -128 && short <= 127 && !p.missing {
		p.emit(0xEB, byte(short))
		return nil
	}
	if p.mode == 16 {
		rel := target - (p.addr + 3)
		p.emit(0xE9, byte(rel), byte(rel>>8))
		return nil
	}
	rel := target - (p.addr + 5)
	if rel < -1<<31 || rel > 1<<31-1 {
		return codeErr(engine.CodeRelativeJumpOutOfRange)
	}
	p.emit(0xE9, byte(rel), byte(rel>>8), byte(rel>>16), byte(rel>>24))
	return nil
}

var registers = map[int][]string{
	16: {"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"},
	32: {"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"},
	64: {"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi"},
}

func (p *pass) register(name string) (byte, bool) {
	for i, r := range registers[p.mode] {
		if r == name {
			return byte(i), true
		}
	}
	return 0, false
}

func (p *pass) value(s string) (int64, *toyError) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, codeErr(engine.CodeInvalidExpression)
	}
	if v, ok := parseNumber(s); ok {
		return v, nil
	}
	if !isIdent(s) {
		return 0, codeErr(engine.CodeInvalidExpression)
	}
	if v, ok := p.labels[s]; ok {
		return v, nil
	}
	if v, ok := p.prev[s]; ok {
		return v, nil
	}
	return 0, codeErr(engine.CodeUndefinedSymbol)
}

func parseNumber(s string) (int64, bool) {
	lower := strings.ToLower(s)
	var (
		v   int64
		err error
	)
	switch {
	case strings.HasPrefix(lower, "0x"):
		v, err = strconv.ParseInt(lower[2:], 16, 64)
	case strings.HasSuffix(lower, "h") && len(lower) > 1 && lower[0] >= '0' && lower[0] <= '9':
		v, err = strconv.ParseInt(lower[:len(lower)-1], 16, 64)
	default:
		v, err = strconv.ParseInt(lower, 10, 64)
	}
	return v, err == nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '.' || r == '@':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
