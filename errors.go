package fasmgo

import (
	"fasmgo/engine"
	"fasmgo/internal/diag"
	"fasmgo/internal/driver"
	"fasmgo/internal/source"
)

type (
	// Failure is the error returned by every failed call.
	Failure = diag.Failure
	// ErrorKind classifies a Failure.
	ErrorKind = diag.Kind
	// Version is the engine's major and minor version.
	Version = engine.Version
	// Result is the full outcome of Assembler.Run.
	Result = driver.Result
	// State is one step of an assemble call.
	State = driver.State
)

const (
	AssemblerInternal  = diag.KindAssemblerInternal
	IllegalInstruction = diag.KindIllegalInstruction
	UnknownSymbol      = diag.KindUnknownSymbol
	SyntaxError        = diag.KindSyntaxError
	FileNotFound       = diag.KindFileNotFound
	OutOfMemory        = diag.KindOutOfMemory
	IndexOutOfRange    = diag.KindIndexOutOfRange
)

// A Failure matches the sentinel of its kind with errors.Is.
var (
	ErrAssemblerInternal  = diag.ErrAssemblerInternal
	ErrIllegalInstruction = diag.ErrIllegalInstruction
	ErrUnknownSymbol      = diag.ErrUnknownSymbol
	ErrSyntax             = diag.ErrSyntax
	ErrFileNotFound       = diag.ErrFileNotFound
	ErrOutOfMemory        = diag.ErrOutOfMemory
	ErrIndexOutOfRange    = diag.ErrIndexOutOfRange
)

// LineSeparator terminates every line handed to the engine.
const LineSeparator = source.LineSeparator
