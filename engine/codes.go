package engine

import "fmt"

// Condition is the value fasm_Assemble returns and stores in FASM_STATE.
type Condition int32

const (
	ConditionOK                 Condition = 0
	ConditionWorking            Condition = 1
	ConditionError              Condition = 2 // ErrorCode and Line are valid
	ConditionInvalidParameter   Condition = -1
	ConditionOutOfMemory        Condition = -2
	ConditionStackOverflow      Condition = -3
	ConditionSourceNotFound     Condition = -4
	ConditionUnexpectedEnd      Condition = -5
	ConditionCannotGenerateCode Condition = -6
	ConditionFormatLimitations  Condition = -7
	ConditionWriteFailed        Condition = -8
	ConditionInvalidDefinition  Condition = -9
)

var conditionNames = map[Condition]string{
	ConditionOK:                 "ok",
	ConditionWorking:            "working",
	ConditionError:              "error",
	ConditionInvalidParameter:   "invalid parameter",
	ConditionOutOfMemory:        "out of memory",
	ConditionStackOverflow:      "stack overflow",
	ConditionSourceNotFound:     "source file not found",
	ConditionUnexpectedEnd:      "unexpected end of source",
	ConditionCannotGenerateCode: "code cannot be generated",
	ConditionFormatLimitations:  "format limitations exceeded",
	ConditionWriteFailed:        "write failed",
	ConditionInvalidDefinition:  "invalid definition provided",
}

func (c Condition) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("condition(%d)", int32(c))
}

// Known reports whether the condition is one the engine documents.
func (c Condition) Known() bool {
	_, ok := conditionNames[c]
	return ok
}

// ErrorCode is the FASMERR_* value stored in FASM_STATE when the condition
// is ConditionError.
type ErrorCode int32

const (
	CodeNone                        ErrorCode = 0
	CodeFileNotFound                ErrorCode = -101
	CodeErrorReadingFile            ErrorCode = -102
	CodeInvalidFileFormat           ErrorCode = -103
	CodeInvalidMacroArguments       ErrorCode = -104
	CodeIncompleteMacro             ErrorCode = -105
	CodeUnexpectedCharacters        ErrorCode = -106
	CodeInvalidArgument             ErrorCode = -107
	CodeIllegalInstruction          ErrorCode = -108
	CodeInvalidOperand              ErrorCode = -109
	CodeInvalidOperandSize          ErrorCode = -110
	CodeOperandSizeNotSpecified     ErrorCode = -111
	CodeOperandSizesDoNotMatch      ErrorCode = -112
	CodeInvalidAddressSize          ErrorCode = -113
	CodeAddressSizesDoNotAgree      ErrorCode = -114
	CodeDisallowedCombinationOfRegs ErrorCode = -115
	CodeLongImmediateNotEncodable   ErrorCode = -116
	CodeRelativeJumpOutOfRange      ErrorCode = -117
	CodeInvalidExpression           ErrorCode = -118
	CodeInvalidAddress              ErrorCode = -119
	CodeInvalidValue                ErrorCode = -120
	CodeValueOutOfRange             ErrorCode = -121
	CodeUndefinedSymbol             ErrorCode = -122
	CodeInvalidUseOfSymbol          ErrorCode = -123
	CodeNameTooLong                 ErrorCode = -124
	CodeInvalidName                 ErrorCode = -125
	CodeReservedWordUsedAsSymbol    ErrorCode = -126
	CodeSymbolAlreadyDefined        ErrorCode = -127
	CodeMissingEndQuote             ErrorCode = -128
	CodeMissingEndDirective         ErrorCode = -129
	CodeUnexpectedInstruction       ErrorCode = -130
	CodeExtraCharactersOnLine       ErrorCode = -131
	CodeSectionNotAlignedEnough     ErrorCode = -132
	CodeSettingAlreadySpecified     ErrorCode = -133
	CodeDataAlreadyDefined          ErrorCode = -134
	CodeTooManyRepeats              ErrorCode = -135
	CodeSymbolOutOfScope            ErrorCode = -136
	CodeUserError                   ErrorCode = -140
	CodeAssertionFailed             ErrorCode = -141
)

// Тексты совпадают с сообщениями самого fasm (без завершающей точки).
var codeMessages = map[ErrorCode]string{
	CodeFileNotFound:                "file not found",
	CodeErrorReadingFile:            "error reading file",
	CodeInvalidFileFormat:           "invalid file format",
	CodeInvalidMacroArguments:       "invalid macro arguments",
	CodeIncompleteMacro:             "incomplete macro",
	CodeUnexpectedCharacters:        "unexpected characters",
	CodeInvalidArgument:             "invalid argument",
	CodeIllegalInstruction:          "illegal instruction",
	CodeInvalidOperand:              "invalid operand",
	CodeInvalidOperandSize:          "invalid size of operand",
	CodeOperandSizeNotSpecified:     "operand size not specified",
	CodeOperandSizesDoNotMatch:      "operand sizes do not match",
	CodeInvalidAddressSize:          "invalid size of address value",
	CodeAddressSizesDoNotAgree:      "address sizes do not agree",
	CodeDisallowedCombinationOfRegs: "disallowed combination of registers",
	CodeLongImmediateNotEncodable:   "not encodable with long immediate",
	CodeRelativeJumpOutOfRange:      "relative jump out of range",
	CodeInvalidExpression:           "invalid expression",
	CodeInvalidAddress:              "invalid address",
	CodeInvalidValue:                "invalid value",
	CodeValueOutOfRange:             "value out of range",
	CodeUndefinedSymbol:             "undefined symbol",
	CodeInvalidUseOfSymbol:          "invalid use of symbol",
	CodeNameTooLong:                 "name too long",
	CodeInvalidName:                 "invalid name",
	CodeReservedWordUsedAsSymbol:    "reserved word used as symbol",
	CodeSymbolAlreadyDefined:        "symbol already defined",
	CodeMissingEndQuote:             "missing end quote",
	CodeMissingEndDirective:         "missing end directive",
	CodeUnexpectedInstruction:       "unexpected instruction",
	CodeExtraCharactersOnLine:       "extra characters on line",
	CodeSectionNotAlignedEnough:     "section is not aligned enough",
	CodeSettingAlreadySpecified:     "setting already specified",
	CodeDataAlreadyDefined:          "data already defined",
	CodeTooManyRepeats:              "too many repeats",
	CodeSymbolOutOfScope:            "symbol out of scope",
	CodeUserError:                   "error directive encountered",
	CodeAssertionFailed:             "assertion failed",
}

// Message returns the engine's wording for the code.
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("unknown error %d", int32(c))
}

func (c ErrorCode) String() string {
	return c.Message()
}

// Known reports whether the code is one the engine documents.
func (c ErrorCode) Known() bool {
	_, ok := codeMessages[c]
	return ok
}

// Version is the engine's major.minor pair.
type Version struct {
	Major uint16
	Minor uint16
}

// UnpackVersion splits the value returned by fasm_GetVersion.
func UnpackVersion(packed uint32) Version {
	return Version{Major: uint16(packed & 0xFFFF), Minor: uint16(packed >> 16)}
}

// Pack is the inverse of UnpackVersion.
func (v Version) Pack() uint32 {
	return uint32(v.Major) | uint32(v.Minor)<<16
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}
