// Package trap implements the background half of event traps: a poller
// that keeps TIMER's elapsed-interval check accurate even while the run
// loop is blocked in a terminal read, and a Manager that fires due
// timer/key traps on the single execution thread the run loop polls
// from at each statement boundary.
//
// Event traps are cooperative, not preemptive. Traps are checked only
// between statements, never mid-statement: the background goroutine
// here only ever updates an atomic clock reading, never interpreter
// state directly. Firing (pushing a GOSUB frame and moving the cursor)
// stays on whichever goroutine calls Manager.Poll, which the run loop
// guarantees is the same one executing the program.
package trap

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"gwbasic/internal/interp"
)

// Poller refreshes a monotonic seconds reading in the background so
// Manager.Poll's interval math stays correct regardless of how long the
// run loop spends between poll points.
type Poller struct {
	start  time.Time
	nowNs  atomic.Int64
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewPoller returns a Poller anchored to the current time. Seconds
// reads 0 until Start runs.
func NewPoller() *Poller {
	return &Poller{start: time.Now()}
}

// Start launches the background ticker, supervised by an errgroup so
// Stop can wait for clean shutdown instead of leaking a goroutine.
// Calling Start again restarts it.
func (p *Poller) Start(parent context.Context, tick time.Duration) {
	p.Stop()
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	g, ctx := errgroup.WithContext(ctx)
	p.group = g
	g.Go(func() error {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case t := <-ticker.C:
				p.nowNs.Store(int64(t.Sub(p.start)))
			}
		}
	})
}

// Stop cancels the background goroutine and waits for it to exit.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.group.Wait()
	p.cancel, p.group = nil, nil
}

// Seconds returns elapsed seconds since the Poller was created, as of
// the last tick.
func (p *Poller) Seconds() float64 {
	return time.Duration(p.nowNs.Load()).Seconds()
}

// Manager fires timer and key traps against an *interp.State at each
// poll point the run loop offers it.
type Manager struct {
	poller *Poller
}

// NewManager returns a Manager backed by its own Poller. Callers own
// starting/stopping the poller (Start/Stop) around a program run.
func NewManager() *Manager {
	return &Manager{poller: NewPoller()}
}

// Start begins the background monotonic-clock ticker. 50ms matches the
// granularity GW-BASIC's own 18.2Hz timer tick was coarser than, plenty
// fine for TIMER's one-second resolution.
func (m *Manager) Start(ctx context.Context) {
	m.poller.Start(ctx, 50*time.Millisecond)
}

// Stop tears down the background ticker.
func (m *Manager) Stop() {
	m.poller.Stop()
}

// NotifyKey marks key trap n (1-indexed, matching ON KEY(n)) pending. A
// real keyboard backend calls this when one of the trappable keys
// (function keys, cursor keys) is seen; it never fires the trap itself.
func (m *Manager) NotifyKey(s *interp.State, n int) {
	if n < 1 || n > len(s.KeyTraps) {
		return
	}
	s.KeyTraps[n-1].Pending = true
}

// Poll checks the timer trap and all ten key traps, firing (pushing a
// GosubFrame and repositioning s.Cursor) at most one trap per call, the
// way GW-BASIC's interpreter loop only ever honors one trap per
// statement boundary. It reports whether it fired one, so the run loop
// knows to treat the cursor as already repositioned.
func (m *Manager) Poll(s *interp.State) bool {
	m.pollTimerDue(s)
	if m.fireTimer(s) {
		return true
	}
	return m.fireKey(s)
}

// pollTimerDue checks elapsed time against the configured interval and
// marks the timer pending, independent of its current mode — matching
// GW-BASIC, where a trap that elapses while stopped stays pending for
// when it is turned back on.
func (m *Manager) pollTimerDue(s *interp.State) {
	if s.Timer.IntervalSeconds <= 0 || s.Timer.Target == 0 {
		return
	}
	now := m.poller.Seconds()
	if now-s.Timer.LastFireMono >= s.Timer.IntervalSeconds {
		s.Timer.LastFireMono = now
		s.Timer.Pending = true
	}
}

func (m *Manager) fireTimer(s *interp.State) bool {
	t := &s.Timer.EventTrap
	if !t.Pending || t.Mode != interp.TrapOn || t.InHandler || t.Target == 0 {
		return false
	}
	if _, _, found := s.Prog.Find(t.Target); !found {
		return false
	}
	t.Pending = false
	t.InHandler = true
	s.GosubStack = append(s.GosubStack, interp.GosubFrame{
		ReturnCursor: s.Cursor,
		TrapKind:     interp.TrapTimer,
	})
	s.Cursor = interp.Cursor{Line: t.Target, Offset: 0}
	return true
}

func (m *Manager) fireKey(s *interp.State) bool {
	for i := range s.KeyTraps {
		t := &s.KeyTraps[i]
		if !t.Pending || t.Mode != interp.TrapOn || t.InHandler || t.Target == 0 {
			continue
		}
		if _, _, found := s.Prog.Find(t.Target); !found {
			continue
		}
		t.Pending = false
		t.InHandler = true
		s.GosubStack = append(s.GosubStack, interp.GosubFrame{
			ReturnCursor: s.Cursor,
			TrapKind:     interp.TrapKey,
			TrapIndex:    i,
		})
		s.Cursor = interp.Cursor{Line: t.Target, Offset: 0}
		return true
	}
	return false
}

// ResumeIfPending implements the rule that turning a stopped trap back
// on (KEY(n) ON or TIMER ON after STOP) fires immediately if a trap
// event arrived while it was stopped, instead of waiting for the next
// natural poll point.
func (m *Manager) ResumeIfPending(s *interp.State) bool {
	return m.Poll(s)
}
