// Package gwerror implements GW-BASIC's numbered error taxonomy: a closed
// set of error codes with fixed messages, the value ERR/ERL observe after
// a trap fires, and the wrapping used to carry an external shim's
// underlying OS error without exposing it to the interpreter.
package gwerror

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Code is one of GW-BASIC's ERRTAB numbers.
type Code int

// The closed set of error codes, 1..30 and 50..76 with gaps.
const (
	NextWithoutFor          Code = 1
	SyntaxError             Code = 2
	ReturnWithoutGosub      Code = 3
	OutOfData               Code = 4
	IllegalFunctionCall     Code = 5
	Overflow                Code = 6
	OutOfMemory             Code = 7
	UndefinedLineNumber     Code = 8
	SubscriptOutOfRange     Code = 9
	DuplicateDefinition     Code = 10
	DivisionByZero          Code = 11
	IllegalDirect           Code = 12
	TypeMismatch            Code = 13
	OutOfStringSpace        Code = 14
	StringTooLong           Code = 15
	StringFormulaComplex    Code = 16
	CantContinue            Code = 17
	UndefinedUserFunction   Code = 18
	NoResume                Code = 19
	ResumeWithoutError      Code = 20
	UnprintableError        Code = 21
	MissingOperand          Code = 22
	LineBufferOverflow      Code = 23
	DeviceTimeout           Code = 24
	DeviceFault             Code = 25
	ForWithoutNext          Code = 26
	OutOfPaper              Code = 27
	WhileWithoutWend        Code = 29
	WendWithoutWhile        Code = 30
	FieldOverflow           Code = 50
	InternalError           Code = 51
	BadFileNumber           Code = 52
	FileNotFound            Code = 53
	BadFileMode             Code = 54
	FileAlreadyOpen         Code = 56
	DeviceIOError           Code = 58
	FileAlreadyExists       Code = 60
	DiskFull                Code = 62
	InputPastEnd            Code = 63
	BadRecordNumber         Code = 64
	BadFileName             Code = 65
	DirectStatementInFile   Code = 67
	TooManyFiles            Code = 68
	DiskAlreadyExists       Code = 70
	PathNotFound            Code = 76
)

var messages = map[Code]string{
	NextWithoutFor:        "NEXT without FOR",
	SyntaxError:           "Syntax error",
	ReturnWithoutGosub:    "RETURN without GOSUB",
	OutOfData:             "Out of DATA",
	IllegalFunctionCall:   "Illegal function call",
	Overflow:              "Overflow",
	OutOfMemory:           "Out of memory",
	UndefinedLineNumber:   "Undefined line number",
	SubscriptOutOfRange:   "Subscript out of range",
	DuplicateDefinition:   "Duplicate Definition",
	DivisionByZero:        "Division by zero",
	IllegalDirect:         "Illegal direct",
	TypeMismatch:          "Type mismatch",
	OutOfStringSpace:      "Out of string space",
	StringTooLong:         "String too long",
	StringFormulaComplex:  "String formula too complex",
	CantContinue:          "Can't continue",
	UndefinedUserFunction: "Undefined user function",
	NoResume:              "No RESUME",
	ResumeWithoutError:    "RESUME without error",
	UnprintableError:      "Unprintable error",
	MissingOperand:        "Missing operand",
	LineBufferOverflow:    "Line buffer overflow",
	DeviceTimeout:         "Device Timeout",
	DeviceFault:           "Device Fault",
	ForWithoutNext:        "FOR without NEXT",
	OutOfPaper:            "Out of Paper",
	WhileWithoutWend:      "WHILE without WEND",
	WendWithoutWhile:      "WEND without WHILE",
	FieldOverflow:         "FIELD overflow",
	InternalError:         "Internal error",
	BadFileNumber:         "Bad file number",
	FileNotFound:          "File not found",
	BadFileMode:           "Bad file mode",
	FileAlreadyOpen:       "File already open",
	DeviceIOError:         "Device I/O Error",
	FileAlreadyExists:     "File already exists",
	DiskFull:              "Disk full",
	InputPastEnd:          "Input past end",
	BadRecordNumber:       "Bad record number",
	BadFileName:           "Bad file name",
	DirectStatementInFile: "Direct statement in file",
	TooManyFiles:          "Too many files",
	DiskAlreadyExists:     "Disk already exists",
	PathNotFound:          "Path not found",
}

// Message returns the canonical text for code, or "Unprintable error"
// for an unrecognized code.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[UnprintableError]
}

// Error is a raised GW-BASIC error: a code plus the message it renders
// with. It carries no line number itself — ERL is attached by the run
// loop, which knows the current line, when the error propagates to the
// error-trap state or the direct-mode prompt.
type Error struct {
	Code Code
	// Cause, when non-nil, is the underlying error from an external
	// shim (a file-system error, typically) that produced this code.
	// Wrapped with github.com/pkg/errors so the interpreter only ever
	// observes Code, while diagnostics/logging can still unwrap it.
	Cause error
}

func New(code Code) *Error {
	return &Error{Code: code}
}

// Wrap lifts an external shim error into a numbered GW-BASIC error,
// preserving cause for diagnostics via pkgerrors.Wrap.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Cause: pkgerrors.Wrap(cause, Message(code))}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s", Message(e.Code))
}

func (e *Error) Unwrap() error { return e.Cause }

// As reports whether err is (or wraps) a *Error and, if so, returns it.
func As(err error) (*Error, bool) {
	var ge *Error
	if pkgerrors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
