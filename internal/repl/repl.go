// Package repl runs the direct-mode edit/run cycle: read a line from
// the terminal, store it under its line number if it has one, otherwise
// crunch and execute it immediately, reporting errors the way the
// prompt does ("<message>" in direct mode, "<message> in <line>" when a
// program was running).
package repl

import (
	"fmt"
	"strings"

	"gwbasic/internal/dispatch"
	"gwbasic/internal/gwerror"
	"gwbasic/internal/interp"
	"gwbasic/internal/lexer"
	"gwbasic/internal/runloop"
	"gwbasic/internal/trap"
)

// Session is one interactive interpreter session over a Runtime.
type Session struct {
	RT    *dispatch.Runtime
	Traps *trap.Manager
}

func NewSession(rt *dispatch.Runtime, traps *trap.Manager) *Session {
	return &Session{RT: rt, Traps: traps}
}

// Loop reads and processes lines until end-of-stream or SYSTEM. The Ok
// prompt is printed before each read, matching the edit cycle.
func (se *Session) Loop() {
	for {
		se.RT.Term.WriteString("Ok\n")
		line, ok := se.RT.Term.ReadLine()
		if !ok {
			return
		}
		if !se.Submit(line) {
			return
		}
	}
}

// Submit processes one input line. It reports false when the session
// should end (SYSTEM).
func (se *Session) Submit(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return true
	}
	if trimmed[0] >= '0' && trimmed[0] <= '9' {
		se.storeLine(trimmed)
		return true
	}
	return se.ExecDirect(line)
}

// storeLine parses a leading line number and inserts, replaces or (on
// an empty body) deletes that program line. Any edit invalidates CONT.
func (se *Session) storeLine(text string) {
	s := se.RT.State
	i := 0
	var num uint32
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		num = num*10 + uint32(text[i]-'0')
		if num > 65529 {
			se.reportError(gwerror.New(gwerror.SyntaxError), false)
			return
		}
		i++
	}
	body := text[i:]
	if strings.HasPrefix(body, " ") {
		body = body[1:]
	}
	s.Cont = interp.ContState{}
	if strings.TrimSpace(body) == "" {
		if _, _, ok := s.Prog.Find(uint16(num)); !ok {
			se.reportError(gwerror.New(gwerror.UndefinedLineNumber), false)
			return
		}
		s.Prog.Delete(uint16(num))
		return
	}
	toks, err := lexer.Crunch(body)
	if err != nil {
		se.reportError(err, false)
		return
	}
	s.Prog.Put(uint16(num), toks)
}

// ExecDirect crunches and runs one direct-mode line, as if it had been
// typed at the prompt. It reports false when the statement ended the
// session (SYSTEM).
func (se *Session) ExecDirect(text string) bool {
	s := se.RT.State
	toks, err := lexer.Crunch(text)
	if err != nil {
		se.reportError(err, false)
		return true
	}
	s.DirectBuf = toks
	s.Cursor = interp.Cursor{Line: interp.DirectLine, Offset: 0}
	if _, err := runloop.Run(se.RT, se.Traps); err != nil {
		se.reportError(err, true)
		return true
	}
	return !s.SystemRequested
}

// reportError prints an error the way the prompt does. For an error
// that escaped a running program, the line number recorded by the run
// loop is appended.
func (se *Session) reportError(err error, fromRun bool) {
	ge, ok := gwerror.As(err)
	if !ok {
		se.RT.Term.WriteString(err.Error() + "\n")
		return
	}
	if line := se.RT.State.ErrorTrap.LastErrLine; fromRun && line != 0 {
		se.RT.Term.WriteString(fmt.Sprintf("%s in %d\n", gwerror.Message(ge.Code), line))
		return
	}
	se.RT.Term.WriteString(gwerror.Message(ge.Code) + "\n")
}
