// Package basictest stands up a whole interpreter against an in-memory
// terminal so end-to-end tests can feed source lines and assert on
// exactly what the screen would show.
package basictest

import (
	"strings"

	"gwbasic/internal/dispatch"
	"gwbasic/internal/interp"
	"gwbasic/internal/program"
	"gwbasic/internal/repl"
	"gwbasic/internal/shim"
	"gwbasic/internal/trap"
)

// CaptureTerminal implements shim.Terminal over in-memory buffers: a
// queue of input lines and a transcript of everything written.
type CaptureTerminal struct {
	out    strings.Builder
	inputs []string
	row    int
	col    int
}

func NewCaptureTerminal(inputs ...string) *CaptureTerminal {
	return &CaptureTerminal{inputs: inputs, row: 1, col: 1}
}

func (t *CaptureTerminal) WriteString(s string) {
	t.out.WriteString(s)
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			t.row++
			t.col = 1
		} else {
			t.col++
		}
	}
}

func (t *CaptureTerminal) ClearScreen()        { t.row, t.col = 1, 1 }
func (t *CaptureTerminal) Locate(row, col int) { t.row, t.col = row, col }
func (t *CaptureTerminal) Row() int            { return t.row }
func (t *CaptureTerminal) Col() int            { return t.col }
func (t *CaptureTerminal) Width() int          { return 80 }
func (t *CaptureTerminal) SetRawMode(bool)     {}
func (t *CaptureTerminal) Interactive() bool   { return false }

func (t *CaptureTerminal) NonBlockingRead() (byte, bool) { return 0, false }

func (t *CaptureTerminal) BlockingRead() byte {
	line, ok := t.ReadLine()
	if !ok || line == "" {
		return 0
	}
	return line[0]
}

func (t *CaptureTerminal) ReadLine() (string, bool) {
	if len(t.inputs) == 0 {
		return "", false
	}
	line := t.inputs[0]
	t.inputs = t.inputs[1:]
	return line, true
}

// Output returns everything written so far.
func (t *CaptureTerminal) Output() string { return t.out.String() }

// Harness is one throwaway interpreter wired to a CaptureTerminal.
type Harness struct {
	RT      *dispatch.Runtime
	Session *repl.Session
	Term    *CaptureTerminal
}

// New builds a fresh interpreter with optional queued INPUT responses.
func New(inputs ...string) *Harness {
	term := NewCaptureTerminal(inputs...)
	rt := dispatch.NewRuntime(interp.New(program.New()))
	rt.Term = term
	rt.GFX = shim.NullGraphics{}
	rt.BindIO()
	return &Harness{
		RT:      rt,
		Session: repl.NewSession(rt, trap.NewManager()),
		Term:    term,
	}
}

// Feed submits source lines to the session exactly as if typed at the
// prompt: numbered lines are stored, everything else runs directly.
func (h *Harness) Feed(lines ...string) {
	for _, l := range lines {
		h.Session.Submit(l)
	}
}

// Run feeds the lines and returns the transcript.
func Run(lines ...string) string {
	h := New()
	h.Feed(lines...)
	return h.Term.Output()
}

// Output returns the transcript so far.
func (h *Harness) Output() string { return h.Term.Output() }
