package dispatch

import (
	"gwbasic/internal/eval"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/token"
	"gwbasic/internal/value"
)

// doOn implements ON ERROR GOTO, ON KEY(n) GOSUB, ON TIMER(n) GOSUB, and
// the classic ON expr GOTO/GOSUB n1,n2,... computed jump.
func (r *Runtime) doOn(cur *interp.Cursor) (Signal, error) {
	s := r.State
	skipSpaces(s, cur)
	switch token.Opcode(peekByte(s, cur)) {
	case token.Error:
		cur.Offset++
		return SigNone, r.doOnError(cur)
	case token.Key:
		cur.Offset++
		return SigNone, r.doOnEvent(cur, keyTrapTarget(s))
	case token.PrefixExtStmt:
		mark := *cur
		cur.Offset++
		if token.Opcode(peekByte(s, cur)) == token.XStmtTimer {
			cur.Offset++
			return SigNone, r.doOnTimer(cur)
		}
		*cur = mark
	}
	return r.doOnComputedJump(cur)
}

// doOnError implements ON ERROR GOTO line (line 0 disables the trap).
func (r *Runtime) doOnError(cur *interp.Cursor) error {
	s := r.State
	skipSpaces(s, cur)
	if err := expect(s, cur, byte(token.Goto)); err != nil {
		return err
	}
	skipSpaces(s, cur)
	n, ok := readLineNumber(s, cur)
	if !ok {
		return gwerror.New(gwerror.SyntaxError)
	}
	if n != 0 {
		if _, _, found := s.Prog.Find(n); !found {
			return gwerror.New(gwerror.UndefinedLineNumber)
		}
	}
	s.ErrorTrap.OnErrorLine = n
	return nil
}

// keyTrapTarget reads the (n) selector for ON KEY(n) GOSUB, 1-indexed
// into s.KeyTraps.
func keyTrapTarget(s *interp.State) func(*interp.Cursor) (*interp.EventTrap, error) {
	return func(cur *interp.Cursor) (*interp.EventTrap, error) {
		if err := expect(s, cur, '('); err != nil {
			return nil, err
		}
		skipSpaces(s, cur)
		v, err := eval.Eval(s, cur)
		if err != nil {
			return nil, err
		}
		n, err := toIntOperand(v)
		if err != nil {
			return nil, err
		}
		if err := expect(s, cur, ')'); err != nil {
			return nil, err
		}
		if n < 1 || int(n) > len(s.KeyTraps) {
			return nil, gwerror.New(gwerror.IllegalFunctionCall)
		}
		return &s.KeyTraps[n-1], nil
	}
}

// doOnEvent implements the shared ON KEY(n) GOSUB line tail once the
// event's selector has been resolved to a specific *EventTrap.
func (r *Runtime) doOnEvent(cur *interp.Cursor, selector func(*interp.Cursor) (*interp.EventTrap, error)) error {
	s := r.State
	trap, err := selector(cur)
	if err != nil {
		return err
	}
	skipSpaces(s, cur)
	if err := expect(s, cur, byte(token.Gosub)); err != nil {
		return err
	}
	skipSpaces(s, cur)
	n, ok := readLineNumber(s, cur)
	if !ok {
		return gwerror.New(gwerror.SyntaxError)
	}
	if _, _, found := s.Prog.Find(n); !found {
		return gwerror.New(gwerror.UndefinedLineNumber)
	}
	trap.Target = n // configuring the target does not implicitly enable it
	return nil
}

// doOnTimer implements ON TIMER(n) GOSUB line, where n is the firing
// interval in seconds.
func (r *Runtime) doOnTimer(cur *interp.Cursor) error {
	s := r.State
	if err := expect(s, cur, '('); err != nil {
		return err
	}
	skipSpaces(s, cur)
	v, err := eval.Eval(s, cur)
	if err != nil {
		return err
	}
	secs := value.ToDbl(v)
	if err := expect(s, cur, ')'); err != nil {
		return err
	}
	skipSpaces(s, cur)
	if err := expect(s, cur, byte(token.Gosub)); err != nil {
		return err
	}
	skipSpaces(s, cur)
	n, ok := readLineNumber(s, cur)
	if !ok {
		return gwerror.New(gwerror.SyntaxError)
	}
	if _, _, found := s.Prog.Find(n); !found {
		return gwerror.New(gwerror.UndefinedLineNumber)
	}
	s.Timer.Target = n
	s.Timer.IntervalSeconds = secs
	return nil
}

// pushGosubAndJump pushes a plain (non-trap) return frame and jumps, the
// ON expr GOSUB counterpart to doGosub.
func (r *Runtime) pushGosubAndJump(n uint16, cur *interp.Cursor) (Signal, error) {
	r.State.GosubStack = append(r.State.GosubStack, interp.GosubFrame{ReturnCursor: *cur})
	return r.jumpToLine(n)
}

// doOnComputedJump implements ON expr GOTO/GOSUB n1,n2,...: expr
// (rounded to an integer) selects the 1-indexed line in the list; an
// out-of-range value is a silent fall-through.
func (r *Runtime) doOnComputedJump(cur *interp.Cursor) (Signal, error) {
	s := r.State
	v, err := eval.Eval(s, cur)
	if err != nil {
		return SigNone, err
	}
	sel, err := toIntOperand(v)
	if err != nil {
		return SigNone, err
	}
	skipSpaces(s, cur)
	isGosub := false
	switch token.Opcode(peekByte(s, cur)) {
	case token.Goto:
		cur.Offset++
	case token.Gosub:
		cur.Offset++
		isGosub = true
	default:
		return SigNone, gwerror.New(gwerror.SyntaxError)
	}
	// Parse the whole list before jumping, so a GOSUB's return cursor
	// lands after the statement rather than inside its operands.
	var lines []uint16
	for {
		skipSpaces(s, cur)
		n, ok := readLineNumber(s, cur)
		if !ok {
			return SigNone, gwerror.New(gwerror.SyntaxError)
		}
		lines = append(lines, n)
		skipSpaces(s, cur)
		if peekByte(s, cur) == ',' {
			cur.Offset++
			continue
		}
		break
	}
	if sel < 1 || int(sel) > len(lines) {
		return SigNone, nil
	}
	n := lines[sel-1]
	if isGosub {
		return r.pushGosubAndJump(n, cur)
	}
	return r.jumpToLine(n)
}
