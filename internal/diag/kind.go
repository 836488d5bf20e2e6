package diag

import (
	"errors"

	"fasmgo/internal/source"
)

// Kind classifies failures.
type Kind uint8

const (
	KindAssemblerInternal Kind = iota
	KindIllegalInstruction
	KindUnknownSymbol
	KindSyntaxError
	KindFileNotFound
	KindOutOfMemory
	KindIndexOutOfRange
)

var kindNames = [...]string{
	KindAssemblerInternal:  "AssemblerInternal",
	KindIllegalInstruction: "IllegalInstruction",
	KindUnknownSymbol:      "UnknownSymbol",
	KindSyntaxError:        "SyntaxError",
	KindFileNotFound:       "FileNotFound",
	KindOutOfMemory:        "OutOfMemory",
	KindIndexOutOfRange:    "IndexOutOfRange",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Sentinel errors, one per kind; Failure unwraps to the one of its kind.
var (
	ErrAssemblerInternal  = errors.New("assembler internal error")
	ErrIllegalInstruction = errors.New("illegal instruction")
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrSyntax             = errors.New("syntax error")
	ErrFileNotFound       = source.ErrFileNotFound
	ErrOutOfMemory        = errors.New("out of memory")
	ErrIndexOutOfRange    = errors.New("index out of range")
)

// Sentinel returns the error errors.Is matches for k.
func (k Kind) Sentinel() error {
	switch k {
	case KindIllegalInstruction:
		return ErrIllegalInstruction
	case KindUnknownSymbol:
		return ErrUnknownSymbol
	case KindSyntaxError:
		return ErrSyntax
	case KindFileNotFound:
		return ErrFileNotFound
	case KindOutOfMemory:
		return ErrOutOfMemory
	case KindIndexOutOfRange:
		return ErrIndexOutOfRange
	default:
		return ErrAssemblerInternal
	}
}
