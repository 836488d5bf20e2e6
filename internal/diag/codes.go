package diag

import (
	"fmt"

	"fasmgo/engine"
)

// Code identifies what went wrong. Negative values are the engine's own
// numbers, positive ones are produced locally.
type Code int32

const (
	UnknownCode Code = 0

	// Локальные, до или после вызова движка
	CodeGrowthExhausted Code = 1
	CodeIndexOutOfRange Code = 2
	CodeLoadFailed      Code = 3
	CodeBadFormat       Code = 4
	CodeBadState        Code = 5
	CodeUnavailable     Code = 6
	CodeReadFailed      Code = 7
	CodeAllocFailed     Code = 8
)

var localDescription = map[Code]string{
	UnknownCode:         "unknown error",
	CodeGrowthExhausted: "output buffer growth limit reached",
	CodeIndexOutOfRange: "line index out of range",
	CodeLoadFailed:      "source file not found",
	CodeBadFormat:       "bad line format",
	CodeBadState:        "engine left a malformed report",
	CodeUnavailable:     "assembler engine unavailable",
	CodeReadFailed:      "source file could not be read",
	CodeAllocFailed:     "buffer allocation failed",
}

// FromCondition returns the code of a bare engine condition.
func FromCondition(c engine.Condition) Code { return Code(c) }

// FromError returns the code of a FASMERR value.
func FromError(e engine.ErrorCode) Code { return Code(e) }

// Engine reports whether c came from the engine.
func (c Code) Engine() bool { return c < 0 }

// ID is the stable short identifier used in rendered output.
func (c Code) ID() string {
	switch {
	case c <= -100:
		return fmt.Sprintf("ERR%04d", -int32(c))
	case c < 0:
		return fmt.Sprintf("CND%04d", -int32(c))
	default:
		return fmt.Sprintf("LOC%04d", int32(c))
	}
}

// Title is the human readable message, fasm's own wording for engine codes.
func (c Code) Title() string {
	switch {
	case c <= -100:
		return engine.ErrorCode(c).Message()
	case c < 0:
		return engine.Condition(c).String()
	}
	if desc, ok := localDescription[c]; ok {
		return desc
	}
	return localDescription[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Kind maps c through the fixed classification table. Engine codes not in
// the table are AssemblerInternal.
func (c Code) Kind() Kind {
	if k, ok := kindTable[c]; ok {
		return k
	}
	return KindAssemblerInternal
}

var kindTable = map[Code]Kind{
	CodeGrowthExhausted: KindOutOfMemory,
	CodeIndexOutOfRange: KindIndexOutOfRange,
	CodeLoadFailed:      KindFileNotFound,
	CodeBadFormat:       KindSyntaxError,
	CodeAllocFailed:     KindOutOfMemory,

	FromCondition(engine.ConditionSourceNotFound):    KindFileNotFound,
	FromCondition(engine.ConditionUnexpectedEnd):     KindSyntaxError,
	FromCondition(engine.ConditionInvalidDefinition): KindSyntaxError,

	FromError(engine.CodeFileNotFound):     KindFileNotFound,
	FromError(engine.CodeErrorReadingFile): KindFileNotFound,

	FromError(engine.CodeIllegalInstruction):          KindIllegalInstruction,
	FromError(engine.CodeInvalidOperand):              KindIllegalInstruction,
	FromError(engine.CodeInvalidOperandSize):          KindIllegalInstruction,
	FromError(engine.CodeOperandSizeNotSpecified):     KindIllegalInstruction,
	FromError(engine.CodeOperandSizesDoNotMatch):      KindIllegalInstruction,
	FromError(engine.CodeInvalidAddressSize):          KindIllegalInstruction,
	FromError(engine.CodeAddressSizesDoNotAgree):      KindIllegalInstruction,
	FromError(engine.CodeDisallowedCombinationOfRegs): KindIllegalInstruction,
	FromError(engine.CodeLongImmediateNotEncodable):   KindIllegalInstruction,
	FromError(engine.CodeRelativeJumpOutOfRange):      KindIllegalInstruction,

	FromError(engine.CodeUndefinedSymbol):  KindUnknownSymbol,
	FromError(engine.CodeSymbolOutOfScope): KindUnknownSymbol,

	FromError(engine.CodeInvalidMacroArguments):    KindSyntaxError,
	FromError(engine.CodeIncompleteMacro):          KindSyntaxError,
	FromError(engine.CodeUnexpectedCharacters):     KindSyntaxError,
	FromError(engine.CodeInvalidArgument):          KindSyntaxError,
	FromError(engine.CodeInvalidExpression):        KindSyntaxError,
	FromError(engine.CodeInvalidAddress):           KindSyntaxError,
	FromError(engine.CodeInvalidValue):             KindSyntaxError,
	FromError(engine.CodeValueOutOfRange):          KindSyntaxError,
	FromError(engine.CodeInvalidUseOfSymbol):       KindSyntaxError,
	FromError(engine.CodeNameTooLong):              KindSyntaxError,
	FromError(engine.CodeInvalidName):              KindSyntaxError,
	FromError(engine.CodeReservedWordUsedAsSymbol): KindSyntaxError,
	FromError(engine.CodeSymbolAlreadyDefined):     KindSyntaxError,
	FromError(engine.CodeMissingEndQuote):          KindSyntaxError,
	FromError(engine.CodeMissingEndDirective):      KindSyntaxError,
	FromError(engine.CodeUnexpectedInstruction):    KindSyntaxError,
	FromError(engine.CodeExtraCharactersOnLine):    KindSyntaxError,
}
