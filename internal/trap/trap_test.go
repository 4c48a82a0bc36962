package trap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gwbasic/internal/interp"
	"gwbasic/internal/program"
)

func newState() *interp.State {
	prog := program.New()
	prog.Put(10, []byte{0x90, 0}) // any statement body
	prog.Put(100, []byte{0x90, 0})
	return interp.New(prog)
}

func TestKeyTrapFires(t *testing.T) {
	s := newState()
	m := NewManager()
	s.KeyTraps[0] = interp.EventTrap{Mode: interp.TrapOn, Target: 100}
	s.Cursor = interp.Cursor{Line: 10, Offset: 3}

	m.NotifyKey(s, 1)
	assert.True(t, s.KeyTraps[0].Pending)

	fired := m.Poll(s)
	assert.True(t, fired)
	assert.Equal(t, interp.Cursor{Line: 100, Offset: 0}, s.Cursor)
	assert.True(t, s.KeyTraps[0].InHandler)
	assert.False(t, s.KeyTraps[0].Pending)
	if assert.Len(t, s.GosubStack, 1) {
		assert.Equal(t, interp.TrapKey, s.GosubStack[0].TrapKind)
		assert.Equal(t, interp.Cursor{Line: 10, Offset: 3}, s.GosubStack[0].ReturnCursor)
	}

	// Already in the handler: a second event stays pending, not fired.
	m.NotifyKey(s, 1)
	assert.False(t, m.Poll(s))
}

func TestKeyTrapStopHoldsPending(t *testing.T) {
	s := newState()
	m := NewManager()
	s.KeyTraps[2] = interp.EventTrap{Mode: interp.TrapStop, Target: 100}

	m.NotifyKey(s, 3)
	assert.False(t, m.Poll(s), "STOP mode records but does not fire")
	assert.True(t, s.KeyTraps[2].Pending)

	// Turning the trap back on releases the held event.
	s.KeyTraps[2].Mode = interp.TrapOn
	assert.True(t, m.ResumeIfPending(s))
	assert.Equal(t, uint16(100), s.Cursor.Line)
}

func TestKeyTrapOffIgnoresEvents(t *testing.T) {
	s := newState()
	m := NewManager()
	s.KeyTraps[0] = interp.EventTrap{Mode: interp.TrapOff, Target: 100}
	m.NotifyKey(s, 1)
	assert.False(t, m.Poll(s))
	assert.Equal(t, uint16(0), s.Cursor.Line)
}

func TestTrapWithoutTargetNeverFires(t *testing.T) {
	s := newState()
	m := NewManager()
	s.KeyTraps[0] = interp.EventTrap{Mode: interp.TrapOn}
	m.NotifyKey(s, 1)
	assert.False(t, m.Poll(s))
}

func TestPollFiresOneTrapPerCall(t *testing.T) {
	s := newState()
	m := NewManager()
	s.KeyTraps[0] = interp.EventTrap{Mode: interp.TrapOn, Target: 100, Pending: true}
	s.KeyTraps[1] = interp.EventTrap{Mode: interp.TrapOn, Target: 100, Pending: true}

	assert.True(t, m.Poll(s))
	assert.Len(t, s.GosubStack, 1)
}
