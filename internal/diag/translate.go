package diag

import (
	"errors"
	"fmt"

	"fasmgo/engine"
	"fasmgo/internal/source"
)

// Translate builds the Failure for a failed engine call over doc.
// raw.Condition must not be ConditionOK.
func Translate(raw engine.Raw, doc *source.Document) *Failure {
	f := &Failure{
		Condition: raw.Condition,
		Mnemonics: doc.Mnemonics,
	}
	if raw.Condition != engine.ConditionError {
		f.Code = FromCondition(raw.Condition)
		f.Kind = f.Code.Kind()
		f.Message = f.Code.Title()
		return f
	}

	f.Code = FromError(raw.ErrorCode)
	f.Kind = f.Code.Kind()
	f.Message = f.Code.Title()
	if raw.Line == nil {
		return f
	}

	// ищем строку основного исходника: сначала по цепочке макросов
	h := raw.Line
	f.Macro = h.Macro
	for depth := 0; h != nil && h.Macro && depth < 64; depth++ {
		h = h.Caller
	}
	if h == nil {
		return f
	}
	if h.Path != "" {
		f.Include, f.IncludeLine = h.Path, h.Number
		return f
	}

	line, ok := doc.CallerLine(h.Number)
	if !ok {
		// ошибка в синтетической прелюдии: вызывающему показать нечего
		return f
	}
	f.Line = line
	f.Origin, f.LocalLine = doc.Origin(line)
	f.Column = 1
	if off, ok := doc.CallerOffset(h.Offset); ok {
		f.Offset = off
		if pos := doc.Position(off); pos.Line == line {
			f.Column = pos.Col
		}
	}
	return f
}

// Exhausted is the local failure for a buffer that could not grow enough.
func Exhausted(doc *source.Document, size, attempts int) *Failure {
	return &Failure{
		Kind:      KindOutOfMemory,
		Code:      CodeGrowthExhausted,
		Message:   fmt.Sprintf("%s after %d attempt(s), last buffer %d bytes", CodeGrowthExhausted.Title(), attempts, size),
		Mnemonics: mnemonics(doc),
	}
}

// IndexOutOfRange is the local failure for editing a line that does not exist.
func IndexOutOfRange(index, count int) *Failure {
	return &Failure{
		Kind:    KindIndexOutOfRange,
		Code:    CodeIndexOutOfRange,
		Message: fmt.Sprintf("line index %d outside [0, %d]", index, count),
	}
}

// LoadFailed wraps an error returned while reading input files. A missing
// file is CodeLoadFailed (FileNotFound); any other read error is
// CodeReadFailed (AssemblerInternal).
func LoadFailed(err error) *Failure {
	code := CodeReadFailed
	if errors.Is(err, source.ErrFileNotFound) {
		code = CodeLoadFailed
	}
	f := &Failure{Kind: code.Kind(), Code: code, Message: code.Title(), Err: err}
	var le *source.LoadError
	if errors.As(err, &le) {
		f.Origin = le.Path
		f.Err = le.Err
	}
	return f
}

// AllocFailed is the local OutOfMemory failure for a region the allocator
// refused before the engine ran.
func AllocFailed(doc *source.Document, err error) *Failure {
	return &Failure{
		Kind:      CodeAllocFailed.Kind(),
		Code:      CodeAllocFailed,
		Message:   CodeAllocFailed.Title(),
		Mnemonics: mnemonics(doc),
		Err:       err,
	}
}

// BadFormat wraps a positional formatting error.
func BadFormat(err error) *Failure {
	return &Failure{
		Kind:    KindSyntaxError,
		Code:    CodeBadFormat,
		Message: CodeBadFormat.Title(),
		Err:     err,
	}
}

// BadState wraps a report that could not be decoded.
func BadState(doc *source.Document, err error) *Failure {
	return &Failure{
		Kind:      KindAssemblerInternal,
		Code:      CodeBadState,
		Message:   CodeBadState.Title(),
		Mnemonics: mnemonics(doc),
		Err:       err,
	}
}

// Unavailable wraps a failure to open the engine backend.
func Unavailable(err error) *Failure {
	return &Failure{
		Kind:    KindAssemblerInternal,
		Code:    CodeUnavailable,
		Message: CodeUnavailable.Title(),
		Err:     err,
	}
}

func mnemonics(doc *source.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Mnemonics
}
