// Package dispatch implements the statement dispatcher: one branch per
// statement opcode, driving variable/array assignment, control flow
// (FOR/NEXT, GOTO/GOSUB/RETURN, IF/THEN/ELSE, WHILE/WEND, ON...),
// DATA/READ/RESTORE, DEF FN, and the external-shim-backed statements
// (PRINT, INPUT, OPEN/CLOSE/FIELD/PUT/GET, graphics/sound). Each
// statement is one method on Runtime, returning an error instead of
// panicking.
package dispatch

import (
	"fmt"
	"math/rand"
	"strconv"

	"gwbasic/internal/eval"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/shim"
	"gwbasic/internal/token"
	"gwbasic/internal/value"
)

// Runtime bundles the interpreter state with the external shims a
// statement may need to reach: the terminal, the file table, and the
// graphics/sound sink. These are the "external collaborators" the core
// only touches through narrow interfaces.
type Runtime struct {
	State *interp.State
	Term  shim.Terminal
	Files *shim.FileSystem
	GFX   shim.GraphicsSound
}

// NewRuntime wires a Runtime against the default OS-backed shims.
func NewRuntime(s *interp.State) *Runtime {
	r := &Runtime{
		State: s,
		Term:  shim.NewConsoleTerminal(),
		Files: shim.NewFileSystem(),
		GFX:   shim.NullGraphics{},
	}
	r.BindIO()
	return r
}

// BindIO points the evaluator's pseudo-variable hooks (CSRLIN, POINT,
// INKEY$, INPUT$, EOF/LOC/LOF) at this Runtime's shims. Call it again
// after swapping Term, Files or GFX.
func (r *Runtime) BindIO() {
	r.State.IO = interp.IOHooks{
		Csrlin: func() int16 { return int16(r.Term.Row()) },
		Point:  func(x, y int) int16 { return int16(r.GFX.Point(x, y)) },
		Inkey: func() string {
			if b, ok := r.Term.NonBlockingRead(); ok {
				return string(b)
			}
			return ""
		},
		InputChars: func(n, fileNum int) (string, error) {
			if fileNum > 0 {
				return r.Files.ReadChars(fileNum, n)
			}
			buf := make([]byte, 0, n)
			for len(buf) < n {
				buf = append(buf, r.Term.BlockingRead())
			}
			return string(buf), nil
		},
		Eof: func(fileNum int) (bool, error) { return r.Files.EOF(fileNum) },
		Loc: func(fileNum int) (int64, error) { return r.Files.Loc(fileNum) },
		Lof: func(fileNum int) (int64, error) { return r.Files.Lof(fileNum) },
	}
}

// Signal is returned by Step to tell the run loop what happened besides
// an ordinary fall-through to the next statement.
type Signal int

const (
	SigNone Signal = iota
	SigGoto
	SigEnd
	SigStop
)

// Step executes exactly one statement at r.State.Cursor, which must be
// positioned at a statement opcode (the run loop skips whitespace/':'
// before calling in). It returns how control should continue.
func (r *Runtime) Step() (Signal, error) {
	s := r.State
	cur := &s.Cursor
	skipSpaces(s, cur)
	op := token.Opcode(peekByte(s, cur))
	if isLetterByte(byte(op)) {
		// Implicit LET: a statement opening with a variable name.
		return SigNone, r.doAssign(cur)
	}
	if op == token.PrefixFunc {
		if second, ok := s.ByteAt(interp.Cursor{Line: cur.Line, Offset: cur.Offset + 1}); ok &&
			token.Opcode(second) == token.FuncMid {
			cur.Offset += 2
			return SigNone, r.doMidAssign(cur)
		}
	}
	cur.Offset++
	switch op {
	case token.End:
		return r.doEnd()
	case token.Stop:
		return r.doStop()
	case token.Let:
		return SigNone, r.doAssign(cur)
	case token.Print, token.LPrint:
		skipSpaces(s, cur)
		if op == token.Print && peekByte(s, cur) == '#' {
			return SigNone, r.doPrintFile(cur, false)
		}
		return SigNone, r.doPrint(cur, op == token.LPrint)
	case token.For:
		return SigNone, r.doFor(cur)
	case token.Next:
		return r.doNext(cur)
	case token.Goto:
		return r.doGoto(cur)
	case token.Gosub:
		return r.doGosub(cur)
	case token.Return:
		return r.doReturn(cur)
	case token.If:
		return r.doIf(cur)
	case token.While:
		return r.doWhile(cur)
	case token.Wend:
		return r.doWend(cur)
	case token.On:
		return r.doOn(cur)
	case token.Dim:
		return SigNone, r.doDim(cur)
	case token.Erase:
		return SigNone, r.doErase(cur)
	case token.Option:
		return SigNone, r.doOptionBase(cur)
	case token.Read:
		return SigNone, r.doRead(cur)
	case token.Data:
		cur.Offset = lineEnd(s, cur.Line)
		return SigNone, nil
	case token.Restore:
		return SigNone, r.doRestore(cur)
	case token.Def:
		return SigNone, r.doDefFn(cur)
	case token.Run:
		return r.doRun(cur)
	case token.New:
		s.NewProgram()
		return SigEnd, nil
	case token.Clear:
		s.Clear()
		r.Files.CloseAll()
		return SigNone, nil
	case token.Cont:
		return r.doCont()
	case token.Error:
		return SigNone, r.doErrorStmt(cur)
	case token.Resume:
		return r.doResume(cur)
	case token.Defint, token.Defsng, token.Defdbl, token.Defstr:
		return SigNone, r.doDefType(cur, op)
	case token.Randomize:
		return SigNone, r.doRandomize(cur)
	case token.Rem, token.Squote:
		cur.Offset = lineEnd(s, cur.Line)
		return SigNone, nil
	case token.Cls:
		r.Term.ClearScreen()
		r.GFX.Cls()
		return SigNone, nil
	case token.Swap:
		return SigNone, r.doSwap(cur)
	case token.Width:
		return SigNone, r.doWidth(cur)
	case token.Color:
		return SigNone, r.doColor(cur)
	case token.Screen:
		return SigNone, r.doScreen(cur)
	case token.Locate:
		return SigNone, r.doLocate(cur)
	case token.Beep:
		r.GFX.Beep()
		return SigNone, nil
	case token.Sound:
		return SigNone, r.doSound(cur)
	case token.Pset:
		return SigNone, r.doPset(cur, true)
	case token.Preset:
		return SigNone, r.doPset(cur, false)
	case token.List, token.LList:
		return SigNone, r.doList(cur)
	case token.Delete:
		return SigNone, r.doDelete(cur)
	case token.Save:
		return SigNone, r.doSave(cur)
	case token.Load:
		return r.doLoad(cur)
	case token.Merge:
		return SigNone, r.doMerge(cur)
	case token.Tron:
		s.Trace = true
		return SigNone, nil
	case token.Troff:
		s.Trace = false
		return SigNone, nil
	case token.Poke:
		return SigNone, r.doPoke(cur)
	case token.Out:
		return SigNone, r.doOut(cur)
	case token.Wait:
		return SigNone, r.doWait(cur)
	case token.Key:
		return r.doKey(cur)
	case token.Motor:
		skipSpaces(s, cur)
		if b := peekByte(s, cur); b != 0 && token.Opcode(b) != token.Colon && token.Opcode(b) != token.Else {
			_, err := evalIntExpr(s, cur)
			return SigNone, err
		}
		return SigNone, nil
	case token.Open:
		return SigNone, r.doOpen(cur)
	case token.Close:
		return SigNone, r.doClose(cur)
	case token.Input:
		return SigNone, r.doInputDispatch(cur)
	case token.Write:
		return SigNone, r.doWriteDispatch(cur)
	case token.PrefixExtStmt:
		return r.dispatchExtStmt(cur)
	case token.Line:
		return SigNone, r.doLineDispatch(cur)
	default:
		return SigNone, gwerror.New(gwerror.SyntaxError)
	}
}

// doInputDispatch distinguishes INPUT#n,... from console INPUT ["p";]var.
func (r *Runtime) doInputDispatch(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	if peekByte(s, cur) == '#' {
		return r.doInputFile(cur)
	}
	return r.doInputConsole(cur)
}

// doWriteDispatch distinguishes WRITE#n,... from console WRITE expr,....
// Bare WRITE (no file channel) formats like PRINT with comma separators
// and quoted strings.
func (r *Runtime) doWriteDispatch(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	if peekByte(s, cur) == '#' {
		return r.doPrintFile(cur, true)
	}
	return r.doWriteConsole(cur)
}

func peekByte(s *interp.State, cur *interp.Cursor) byte {
	b, _ := s.ByteAt(*cur)
	return b
}

func skipSpaces(s *interp.State, cur *interp.Cursor) {
	for {
		b, ok := s.ByteAt(*cur)
		if !ok || b != ' ' {
			return
		}
		cur.Offset++
	}
}

// skipStatementBody advances cur to the next ':' separator, ELSE, or
// end of line, stepping over string literals and embedded-constant
// payload bytes (whose raw values may alias ':' or '"').
func skipStatementBody(s *interp.State, cur *interp.Cursor) {
	toks, ok := s.LineTokens(cur.Line)
	if !ok {
		return
	}
	for cur.Offset < len(toks) && toks[cur.Offset] != 0 {
		b := toks[cur.Offset]
		switch {
		case b == '"':
			cur.Offset++
			for cur.Offset < len(toks) && toks[cur.Offset] != '"' && toks[cur.Offset] != 0 {
				cur.Offset++
			}
			if cur.Offset < len(toks) && toks[cur.Offset] == '"' {
				cur.Offset++
			}
		case token.Opcode(b) == token.Colon || token.Opcode(b) == token.Else:
			return
		default:
			cur.Offset += 1 + constPayloadLen(b)
		}
	}
}

// constPayloadLen returns how many raw data bytes follow an embedded-
// constant opcode (0 for everything else).
func constPayloadLen(b byte) int {
	switch token.Opcode(b) {
	case token.ConstInt1:
		return 1
	case token.ConstInt2:
		return 2
	case token.ConstSng:
		return 4
	case token.ConstDbl:
		return 8
	}
	return 0
}

func lineEnd(s *interp.State, line uint16) int {
	toks, _ := s.LineTokens(line)
	return len(toks)
}

func atEOL(s *interp.State, cur *interp.Cursor) bool {
	b, ok := s.ByteAt(*cur)
	return !ok || b == byte(token.Colon)
}

func expect(s *interp.State, cur *interp.Cursor, b byte) error {
	skipSpaces(s, cur)
	got, ok := s.ByteAt(*cur)
	if !ok || got != b {
		return gwerror.New(gwerror.SyntaxError)
	}
	cur.Offset++
	return nil
}

// readLineNumber reads a bare line-number operand (GOTO/GOSUB/THEN/
// RESUME/RUN target) by direct token read, not a full expression. The
// tokenizer encodes one as an unsigned two-byte constant, but a
// narrower constant (from a context it couldn't recognize) is accepted
// too.
func readLineNumber(s *interp.State, cur *interp.Cursor) (uint16, bool) {
	skipSpaces(s, cur)
	toks, _ := s.LineTokens(cur.Line)
	if cur.Offset >= len(toks) {
		return 0, false
	}
	b := token.Opcode(toks[cur.Offset])
	if d, ok := token.IsLiteralDigit(b); ok {
		cur.Offset++
		return uint16(d), true
	}
	switch b {
	case token.ConstInt1:
		if cur.Offset+1 >= len(toks) {
			return 0, false
		}
		n := uint16(toks[cur.Offset+1])
		cur.Offset += 2
		return n, true
	case token.ConstInt2:
		if cur.Offset+2 >= len(toks) {
			return 0, false
		}
		n := uint16(toks[cur.Offset+1]) | uint16(toks[cur.Offset+2])<<8
		cur.Offset += 3
		if n > 65529 {
			return 0, false
		}
		return n, true
	}
	// ASCII digits appear when callers hand-build token buffers.
	start := cur.Offset
	for cur.Offset < len(toks) && toks[cur.Offset] >= '0' && toks[cur.Offset] <= '9' {
		cur.Offset++
	}
	if cur.Offset == start {
		return 0, false
	}
	n, err := strconv.Atoi(string(toks[start:cur.Offset]))
	if err != nil || n < 0 || n > 65529 {
		return 0, false
	}
	return uint16(n), true
}

func (r *Runtime) doEnd() (Signal, error) {
	r.State.Cont = interp.ContState{Valid: true, Cursor: r.State.Cursor}
	r.State.Running = false
	return SigEnd, nil
}

func (r *Runtime) doStop() (Signal, error) {
	r.State.Cont = interp.ContState{Valid: true, Cursor: r.State.Cursor}
	r.State.Running = false
	if r.State.Cursor.Line != interp.DirectLine {
		r.Term.WriteString(fmt.Sprintf("Break in %d\n", r.State.Cursor.Line))
	}
	return SigStop, nil
}

func (r *Runtime) doCont() (Signal, error) {
	if !r.State.Cont.Valid {
		return SigNone, gwerror.New(gwerror.CantContinue)
	}
	r.State.Cursor = r.State.Cont.Cursor
	r.State.Running = true
	return SigGoto, nil
}

func (r *Runtime) doErrorStmt(cur *interp.Cursor) error {
	v, err := eval.Eval(r.State, cur)
	if err != nil {
		return err
	}
	n, err := toIntOperand(v)
	if err != nil {
		return err
	}
	return gwerror.New(gwerror.Code(n))
}

func toIntOperand(v value.Value) (int16, error) {
	if v.IsString() {
		return 0, gwerror.New(gwerror.TypeMismatch)
	}
	return value.CInt(value.ToDbl(v))
}

func (r *Runtime) doRandomize(cur *interp.Cursor) error {
	skipSpaces(r.State, cur)
	if atEOL(r.State, cur) {
		return nil
	}
	v, err := eval.Eval(r.State, cur)
	if err != nil {
		return err
	}
	n, err := toIntOperand(v)
	if err != nil {
		return err
	}
	r.State.Rnd = rand.New(rand.NewSource(int64(n)))
	return nil
}
