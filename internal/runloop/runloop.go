// Package runloop drives the statement dispatcher: fetch one statement
// at the current cursor, execute it, poll event traps, advance to the
// next statement or line, and turn an uncaught runtime error into an
// ON ERROR transfer when one is configured. It is the one place that
// ties dispatch.Runtime.Step, trap.Manager and the error-trap fields on
// interp.State together into a single executing program.
package runloop

import (
	"fmt"

	"gwbasic/internal/dispatch"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/token"
	"gwbasic/internal/trap"
)

// Outcome reports why Run returned.
type Outcome int

const (
	// Ended means the program ran to its end, hit END, or (in direct
	// mode) ran out of statements on the line being executed.
	Ended Outcome = iota
	// Stopped means STOP, Ctrl-Break, or an uncaught error halted
	// execution; on error Run's second return value is non-nil.
	Stopped
)

// Run executes statements at r.State.Cursor until the program ends,
// STOPs, a break is pending, or an error escapes every configured
// handler. traps may be nil (direct-mode single statements have no use
// for event polling).
func Run(r *dispatch.Runtime, traps *trap.Manager) (Outcome, error) {
	s := r.State
	traceLine := uint32(1 << 16) // out of line-number range until first trace
	for {
		if s.BreakPending {
			s.BreakPending = false
			s.Cont = interp.ContState{Valid: true, Cursor: s.Cursor}
			s.Running = false
			return Stopped, nil
		}
		if s.Running && traps != nil && traps.Poll(s) {
			continue
		}

		for {
			b, ok := s.ByteAt(s.Cursor)
			if !ok || b != ' ' {
				break
			}
			s.Cursor.Offset++
		}

		b, ok := s.ByteAt(s.Cursor)
		switch {
		case !ok:
			// End of line: move to the next program line, or finish.
			if !nextLine(s) {
				s.Running = false
				return Ended, nil
			}
			continue
		case b == byte(token.Colon):
			s.Cursor.Offset++
			continue
		case b == byte(token.Else):
			// An ELSE reached in normal flow (the THEN branch already
			// ran) owns the rest of the line.
			if !nextLine(s) {
				s.Running = false
				return Ended, nil
			}
			continue
		}

		if s.Trace && s.Cursor.Line != interp.DirectLine && uint32(s.Cursor.Line) != traceLine {
			traceLine = uint32(s.Cursor.Line)
			r.Term.WriteString(fmt.Sprintf("[%d]", s.Cursor.Line))
		}

		stmtStart := s.Cursor
		sig, err := r.Step()
		if err != nil {
			if enterHandler(s, stmtStart, err) {
				continue
			}
			s.Running = false
			return Stopped, err
		}

		switch sig {
		case dispatch.SigEnd:
			return Ended, nil
		case dispatch.SigStop:
			return Stopped, nil
		}
	}
}

// enterHandler records ERL/ERR for the error that just occurred and,
// if ON ERROR GOTO is configured and the failure did not itself occur
// inside the handler, transfers control there. An error raised while
// already InHandler is not trapped again — it propagates as an
// uncaught error, matching GW-BASIC's refusal to trap
// recursively.
func enterHandler(s *interp.State, stmtStart interp.Cursor, err error) bool {
	ge, ok := gwerror.As(err)
	if !ok {
		return false
	}
	if stmtStart.Line == interp.DirectLine {
		s.ErrorTrap.LastErrLine = 0
	} else {
		s.ErrorTrap.LastErrLine = stmtStart.Line
	}
	s.ErrorTrap.LastErrNumber = int(ge.Code)
	if s.ErrorTrap.OnErrorLine == 0 || s.ErrorTrap.InHandler {
		return false
	}
	if _, _, found := s.Prog.Find(s.ErrorTrap.OnErrorLine); !found {
		return false
	}
	s.ErrorTrap.InHandler = true
	s.ErrorTrap.ResumeCursor = stmtStart
	s.Cursor = interp.Cursor{Line: s.ErrorTrap.OnErrorLine, Offset: 0}
	return true
}

// nextLine moves the cursor to the start of the following program
// line, reporting false at the end of the program or of the
// direct-mode buffer.
func nextLine(s *interp.State) bool {
	_, idx, found := s.Prog.Find(s.Cursor.Line)
	if !found {
		return false
	}
	next, ok := s.Prog.At(idx + 1)
	if !ok {
		return false
	}
	s.Cursor = interp.Cursor{Line: next.Num, Offset: 0}
	return true
}
