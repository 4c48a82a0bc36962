// Package interp holds the interpreter's runtime state: the variable
// and array tables, the control-flow stacks (FOR/GOSUB/WHILE), the DEF
// FN table, the DATA cursor, event-trap state and error-trap state.
// Everything here is threaded as an instance, never a package-level
// singleton, so tests can stand up and tear down independent
// interpreters.
package interp

import (
	"math/rand"

	"gwbasic/internal/program"
	"gwbasic/internal/value"
)

// Host abstracts the handful of built-ins that reach past the
// interpreter into real hardware/peripherals GW-BASIC ran on (memory
// peek/poke, I/O ports, the printer/screen column counters, joystick
// button and position state). The default nullHost answers every query
// with 0 (FreeMemory with a fixed 60000), matching a machine with
// nothing attached.
type Host interface {
	Peek(addr int) int16
	Poke(addr int, val int16)
	Inp(port int) int16
	Out(port int, val int16)
	Pos(device int) int16
	Lpos(device int) int16
	Pen(mode int) int16
	Stick(axis int) int16
	Strig(trigger int) int16
	FreeMemory() int32
}

type nullHost struct{}

func (nullHost) Peek(int) int16       { return 0 }
func (nullHost) Poke(int, int16)      {}
func (nullHost) Inp(int) int16        { return 0 }
func (nullHost) Out(int, int16)       {}
func (nullHost) Pos(int) int16        { return 0 }
func (nullHost) Lpos(int) int16       { return 0 }
func (nullHost) Pen(int) int16        { return 0 }
func (nullHost) Stick(int) int16      { return 0 }
func (nullHost) Strig(int) int16      { return 0 }
func (nullHost) FreeMemory() int32    { return 60000 }

// VarKey identifies a scalar or array variable by its (up to two
// significant characters) name and type tag, since A% and A! coexist as
// distinct variables.
type VarKey struct {
	Name string
	Typ  value.Type
}

// Array is a DIM'd variable: up to 8 dimensions, stored flat.
type Array struct {
	Dims     []int // extent of each dimension (inclusive upper bound minus OptionBase, stored as count)
	Elements []value.Value
}

// Index computes the flat offset for subscript indices (already
// adjusted for OptionBase), or false if any is out of range.
func (a *Array) Index(subs []int) (int, bool) {
	if len(subs) != len(a.Dims) {
		return 0, false
	}
	idx := 0
	for i, s := range subs {
		if s < 0 || s >= a.Dims[i] {
			return 0, false
		}
		idx = idx*a.Dims[i] + s
	}
	return idx, true
}

// ForFrame is one live FOR/NEXT loop.
type ForFrame struct {
	Var          VarKey
	Limit        value.Value
	Step         value.Value
	ResumeCursor Cursor // position just after FOR's operands
}

// GosubFrame is one pending RETURN target, optionally tagged as having
// been pushed by an event-trap firing rather than a GOSUB statement.
type GosubFrame struct {
	ReturnCursor Cursor
	TrapKind     TrapKind // TrapNone if this is a plain GOSUB
	TrapIndex    int      // index into KeyTraps when TrapKind == TrapKey
}

// WhileFrame is one live WHILE/WEND loop.
type WhileFrame struct {
	HeadCursor Cursor // position of the WHILE token itself
}

// FnDef is one DEF FN letter-slot.
type FnDef struct {
	Defined    bool
	ParamName  string
	ParamType  value.Type
	ReturnType value.Type
	BodyCursor Cursor
}

// TrapMode mirrors GW-BASIC's event_trap_t.mode.
type TrapMode int

const (
	TrapOff TrapMode = iota
	TrapOn
	TrapStop
)

// TrapKind distinguishes a GOSUB frame pushed by the timer trap from one
// pushed by a key trap, so RETURN knows which trap's in_handler to clear.
type TrapKind int

const (
	TrapNone TrapKind = iota
	TrapTimer
	TrapKey
)

// EventTrap is the shared shape of the timer trap and each key trap.
type EventTrap struct {
	Mode      TrapMode
	Target    uint16
	Pending   bool
	InHandler bool
}

// TimerTrap additionally tracks its firing interval.
type TimerTrap struct {
	EventTrap
	IntervalSeconds float64
	LastFireMono    float64
}

// ErrorTrapState is ON ERROR's configuration and the state needed to
// make RESUME meaningful.
type ErrorTrapState struct {
	OnErrorLine   uint16 // 0 = disabled
	InHandler     bool
	ResumeCursor  Cursor // cursor of the statement that failed
	LastErrLine   uint16
	LastErrNumber int
}

// FieldSlot is one name AS width clause of a FIELD statement: the byte
// range within the file's record buffer that name$ aliases.
type FieldSlot struct {
	Name   string
	Offset int
	Width  int
}

// ContState remembers where STOP/END paused execution, for CONT.
type ContState struct {
	Valid  bool
	Cursor Cursor
}

// IOHooks lets the evaluator reach the external terminal/graphics/file
// shims for the handful of pseudo-variables and functions that need
// them (CSRLIN, POINT, INKEY$, INPUT$, EOF/LOC/LOF) without importing
// the shim package into eval or threading a *dispatch.Runtime through
// every call to Eval. dispatch.NewRuntime overwrites these with hooks
// bound to its real Term/GFX/Files; New sets harmless zero-value
// defaults so a bare State (as used by package-level tests) still
// evaluates these without a nil-pointer panic.
type IOHooks struct {
	Csrlin     func() int16
	Point      func(x, y int) int16
	Inkey      func() string
	InputChars func(n int, fileNum int) (string, error)
	Eof        func(fileNum int) (bool, error)
	Loc        func(fileNum int) (int64, error)
	Lof        func(fileNum int) (int64, error)
}

func defaultIOHooks() IOHooks {
	return IOHooks{
		Csrlin:     func() int16 { return 1 },
		Point:      func(int, int) int16 { return -1 },
		Inkey:      func() string { return "" },
		InputChars: func(int, int) (string, error) { return "", nil },
		Eof:        func(int) (bool, error) { return true, nil },
		Loc:        func(int) (int64, error) { return 0, nil },
		Lof:        func(int) (int64, error) { return 0, nil },
	}
}

// State is one interpreter instance.
type State struct {
	Prog *program.Program

	// IO bridges to the external terminal/file/graphics shims; see
	// IOHooks.
	IO IOHooks

	Vars   map[VarKey]value.Value
	Arrays map[VarKey]*Array

	// DefType maps a variable's leading letter (0='A'..25='Z') to its
	// implicit type, mutated by DEFINT/DEFSNG/DEFDBL/DEFSTR.
	DefType [26]value.Type

	ForStack   []ForFrame
	GosubStack []GosubFrame
	WhileStack []WhileFrame

	DefFns [26]FnDef

	DataCursor Cursor
	// DataInStmt marks DataCursor as resting inside a DATA statement's
	// item list (just past a consumed item), as opposed to at an
	// arbitrary statement boundary it must scan forward from.
	DataInStmt bool

	OptionBase  int
	optionBaseSet bool

	// Common lists the variable names preserved across CHAIN.
	Common []string

	// Fields records each open random-access file's FIELD layout, so
	// LSET/RSET can locate a named field's slot in the record buffer and
	// GET can refresh every field variable after reading a new record.
	Fields map[int][]FieldSlot

	Timer    TimerTrap
	KeyTraps [10]EventTrap

	ErrorTrap ErrorTrapState
	Cont      ContState

	// Cursor is where the run loop is currently positioned.
	Cursor Cursor
	// Running is true while a program (as opposed to a direct-mode
	// statement) is executing.
	Running bool
	// BreakPending is set by the terminal layer's break signal and
	// polled at statement boundaries.
	BreakPending bool
	// Trace is TRON/TROFF's flag; the run loop echoes [nnn] as each
	// program line is entered while it is set.
	Trace bool
	// SystemRequested is set by SYSTEM so the prompt loop knows to exit
	// the process rather than print Ok again.
	SystemRequested bool

	// DirectBuf holds the crunched tokens of the line currently being
	// executed in direct mode (DirectLine). It has no home in the
	// program store since it is never addressable by GOTO/GOSUB.
	DirectBuf []byte

	// Host answers the PEEK/POKE/INP/OUT/POS/LPOS/PEN/STICK/STRIG/FRE
	// peripheral built-ins.
	Host Host

	// Rnd is RND's generator. GW-BASIC's RND(0) repeats the last value,
	// RND(negative) reseeds deterministically from the argument, and
	// RND() / RND(positive) draws the next value in sequence; LastRnd
	// tracks the value RND(0) replays.
	Rnd     *rand.Rand
	LastRnd float64
}

// LineTokens returns the token bytes addressed by line, whether that is
// a stored program line or the direct-mode buffer.
func (s *State) LineTokens(line uint16) ([]byte, bool) {
	if line == DirectLine {
		return s.DirectBuf, true
	}
	l, _, ok := s.Prog.Find(line)
	if !ok {
		return nil, false
	}
	return l.Tokens, true
}

// ByteAt returns the byte at c, and whether c is still in range (false
// at end-of-line/NUL or on a line that no longer exists).
func (s *State) ByteAt(c Cursor) (byte, bool) {
	toks, ok := s.LineTokens(c.Line)
	if !ok || c.Offset < 0 || c.Offset >= len(toks) {
		return 0, false
	}
	return toks[c.Offset], toks[c.Offset] != 0
}

// New returns a freshly initialized interpreter sharing prog (NEW builds
// a new Program; CLEAR/RUN reuse the existing one).
func New(prog *program.Program) *State {
	s := &State{Prog: prog, Host: nullHost{}, IO: defaultIOHooks(), Rnd: rand.New(rand.NewSource(1))}
	s.resetRuntime()
	for i := range s.DefType {
		s.DefType[i] = value.Sng
	}
	return s
}

// resetRuntime is CLEAR's scope: variables, arrays, stacks, DEF FN
// table, DATA cursor, option base and error/event-trap state, but not
// the program store or the DEF-type table (DEFINT/etc persist across
// CLEAR and RUN, only NEW resets them).
func (s *State) resetRuntime() {
	s.Vars = make(map[VarKey]value.Value)
	s.Arrays = make(map[VarKey]*Array)
	s.ForStack = nil
	s.GosubStack = nil
	s.WhileStack = nil
	s.DefFns = [26]FnDef{}
	s.DataCursor = Cursor{}
	s.DataInStmt = false
	s.OptionBase = 0
	s.optionBaseSet = false
	s.Timer = TimerTrap{}
	s.KeyTraps = [10]EventTrap{}
	s.ErrorTrap = ErrorTrapState{}
	s.Cont = ContState{}
	s.BreakPending = false
	s.Fields = make(map[int][]FieldSlot)
}

// Clear implements the CLEAR statement's scope.
func (s *State) Clear() {
	s.resetRuntime()
}

// NewProgram implements NEW's scope: everything CLEAR resets, plus the
// DEF-type table, COMMON list, and the program store itself.
func (s *State) NewProgram() {
	s.resetRuntime()
	s.Prog.Clear()
	s.Common = nil
	s.Trace = false
	for i := range s.DefType {
		s.DefType[i] = value.Sng
	}
}

// SetOptionBase records OPTION BASE's value. It may only be set once,
// and only before any array has been auto-dimensioned or explicitly
// DIM'd; callers enforce that ordering (Duplicate Definition / Illegal
// function call territory lives in the dispatcher, not here).
func (s *State) SetOptionBase(n int) {
	s.OptionBase = n
	s.optionBaseSet = true
}

// OptionBaseSet reports whether OPTION BASE has already been declared,
// which makes a second declaration a Duplicate Definition.
func (s *State) OptionBaseSet() bool {
	return s.optionBaseSet
}

// DefaultType returns the implicit type for a bare name's leading
// letter.
func (s *State) DefaultType(leadingLetter byte) value.Type {
	if leadingLetter < 'A' || leadingLetter > 'Z' {
		return value.Sng
	}
	return s.DefType[leadingLetter-'A']
}
