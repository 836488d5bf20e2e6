package engine

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"fortio.org/safecast"
)

// Layout of the structures the engine writes into the work region.
// All fields are little-endian 32-bit values; pointers are absolute
// addresses in the engine's view (see Region.Base).
//
//	FASM_STATE  { condition; output_length | error_code; output_data | error_line }
//	LINE_HEADER { file_path; line_number; file_offset | macro_offset; macro_line }
const (
	StateSize      = 12
	LineHeaderSize = 16

	macroLineFlag = 0x80000000
	maxMacroDepth = 64
	maxPathLength = 4096
)

// ErrBadState is returned when the engine's report points outside the region.
var ErrBadState = errors.New("engine: malformed state in work region")

// Raw is the undecorated result of one engine call.
type Raw struct {
	Condition Condition
	// Success: output bytes live at OutputOffset..OutputOffset+Length in mem.
	Length       uint32
	OutputOffset uint32
	// outputLost is set when output_data did not point into the region.
	outputLost bool
	// Failure with ConditionError.
	ErrorCode ErrorCode
	Line      *LineHeader
}

// LineHeader is a decoded LINE_HEADER.
type LineHeader struct {
	Path   string // empty for the submitted source itself
	Number int    // 1-based
	Offset int    // byte offset of the line in its file; macro offset for generated lines
	Macro  bool
	Caller *LineHeader // macro invocation line when Macro is set
}

// SourceLine follows the macro chain to the line written in a source file.
func (h *LineHeader) SourceLine() *LineHeader {
	cur := h
	for i := 0; cur != nil && cur.Macro && i < maxMacroDepth; i++ {
		if cur.Caller == nil {
			break
		}
		cur = cur.Caller
	}
	return cur
}

// Output returns a view of the produced code inside mem.
func (r Raw) Output(mem Region) ([]byte, error) {
	if r.outputLost {
		return nil, fmt.Errorf("%w: output pointer outside the region", ErrBadState)
	}
	buf := mem.Bytes()
	end := uint64(r.OutputOffset) + uint64(r.Length)
	if end > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: output %d+%d exceeds region of %d bytes", ErrBadState, r.OutputOffset, r.Length, len(buf))
	}
	return buf[r.OutputOffset:end], nil
}

func decodeState(mem Region) Raw {
	buf := mem.Bytes()
	if len(buf) < StateSize {
		return Raw{}
	}
	le := binary.LittleEndian
	raw := Raw{Condition: Condition(int32(le.Uint32(buf[0:])))}
	switch raw.Condition {
	case ConditionOK:
		raw.Length = le.Uint32(buf[4:])
		off, ok := relative(mem, le.Uint32(buf[8:]))
		raw.OutputOffset = off
		raw.outputLost = !ok && raw.Length > 0
	case ConditionError:
		raw.ErrorCode = ErrorCode(int32(le.Uint32(buf[4:])))
		raw.Line = decodeLine(mem, le.Uint32(buf[8:]), 0)
	}
	return raw
}

func decodeLine(mem Region, ptr uint32, depth int) *LineHeader {
	if ptr == 0 || depth >= maxMacroDepth {
		return nil
	}
	off, ok := relative(mem, ptr)
	buf := mem.Bytes()
	if !ok || uint64(off)+LineHeaderSize > uint64(len(buf)) {
		return nil
	}
	le := binary.LittleEndian
	rec := buf[off : off+LineHeaderSize]
	number := le.Uint32(rec[4:])
	h := &LineHeader{
		Path:   readCString(mem, le.Uint32(rec[0:])),
		Number: int(number &^ macroLineFlag),
		Offset: int(int32(le.Uint32(rec[8:]))),
		Macro:  number&macroLineFlag != 0,
	}
	if h.Macro {
		h.Caller = decodeLine(mem, le.Uint32(rec[12:]), depth+1)
	}
	return h
}

func readCString(mem Region, ptr uint32) string {
	if ptr == 0 {
		return ""
	}
	off, ok := relative(mem, ptr)
	buf := mem.Bytes()
	if !ok || int(off) >= len(buf) {
		return ""
	}
	tail := buf[off:]
	if len(tail) > maxPathLength {
		tail = tail[:maxPathLength]
	}
	if n := bytes.IndexByte(tail, 0); n >= 0 {
		return string(tail[:n])
	}
	return ""
}

// relative converts an engine pointer into an offset inside mem.
func relative(mem Region, ptr uint32) (uint32, bool) {
	base := uint64(mem.Base())
	p := uint64(ptr)
	if p < base {
		return 0, false
	}
	off, err := safecast.Conv[uint32](p - base)
	if err != nil || uint64(off) >= uint64(len(mem.Bytes())) {
		return 0, false
	}
	return off, true
}

// pointer converts an offset inside mem into the engine's view.
func pointer(mem Region, off uint32) uint32 {
	return uint32(uint64(mem.Base()) + uint64(off))
}

// PutSuccess stores a ConditionOK state describing n output bytes at off.
func PutSuccess(mem Region, off, n uint32) Condition {
	buf := mem.Bytes()
	if len(buf) < StateSize {
		return ConditionOutOfMemory
	}
	le := binary.LittleEndian
	le.PutUint32(buf[0:], uint32(ConditionOK))
	le.PutUint32(buf[4:], n)
	le.PutUint32(buf[8:], pointer(mem, off))
	return ConditionOK
}

// PutCondition stores a bare condition with no payload.
func PutCondition(mem Region, cond Condition) Condition {
	buf := mem.Bytes()
	if len(buf) < StateSize {
		return cond
	}
	le := binary.LittleEndian
	le.PutUint32(buf[0:], uint32(int32(cond)))
	le.PutUint32(buf[4:], 0)
	le.PutUint32(buf[8:], 0)
	return cond
}

// PutError stores a ConditionError state with the chain of line headers
// written from off onwards. chain[0] is the failing line; each following
// entry is the macro caller of the previous one. Paths are appended after
// the headers. Returns ConditionOutOfMemory if the records do not fit.
func PutError(mem Region, code ErrorCode, off uint32, chain []LineHeader) Condition {
	buf := mem.Bytes()
	need := uint64(off) + uint64(len(chain))*LineHeaderSize
	for _, h := range chain {
		if h.Path != "" {
			need += uint64(len(h.Path)) + 1
		}
	}
	if len(buf) < StateSize || need > uint64(len(buf)) {
		return PutCondition(mem, ConditionOutOfMemory)
	}
	le := binary.LittleEndian
	strOff := off + uint32(len(chain))*LineHeaderSize
	for i, h := range chain {
		rec := buf[off+uint32(i)*LineHeaderSize:]
		var pathPtr uint32
		if h.Path != "" {
			pathPtr = pointer(mem, strOff)
			copy(buf[strOff:], h.Path)
			buf[strOff+uint32(len(h.Path))] = 0
			strOff += uint32(len(h.Path)) + 1
		}
		number := uint32(h.Number) &^ macroLineFlag
		var caller uint32
		if h.Macro {
			number |= macroLineFlag
			if i+1 < len(chain) {
				caller = pointer(mem, off+uint32(i+1)*LineHeaderSize)
			}
		}
		le.PutUint32(rec[0:], pathPtr)
		le.PutUint32(rec[4:], number)
		le.PutUint32(rec[8:], uint32(int32(h.Offset)))
		le.PutUint32(rec[12:], caller)
	}
	le.PutUint32(buf[0:], uint32(int32(ConditionError)))
	le.PutUint32(buf[4:], uint32(int32(code)))
	if len(chain) > 0 {
		le.PutUint32(buf[8:], pointer(mem, off))
	} else {
		le.PutUint32(buf[8:], 0)
	}
	return ConditionError
}
