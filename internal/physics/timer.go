package physics

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer measures the wall time between passes of the simulation loop.
type Timer interface {
	// Tick returns the seconds elapsed since the previous Tick or Reset.
	Tick() float64
	Reset()
}

type WallTimer struct {
	clock clockwork.Clock
	last  time.Time
}

func NewWallTimer(c clockwork.Clock) *WallTimer {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &WallTimer{clock: c, last: c.Now()}
}

func (t *WallTimer) Tick() float64 {
	now := t.clock.Now()
	dt := now.Sub(t.last).Seconds()
	t.last = now
	if dt < 0 {
		return 0
	}
	return dt
}

func (t *WallTimer) Reset() {
	t.last = t.clock.Now()
}

// ScriptedTimer replays a fixed list of tick deltas, then returns zero.
type ScriptedTimer struct {
	mu     sync.Mutex
	deltas []float64
	resets int
}

func NewScriptedTimer(deltas ...float64) *ScriptedTimer {
	return &ScriptedTimer{deltas: deltas}
}

func (t *ScriptedTimer) Tick() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.deltas) == 0 {
		return 0
	}
	dt := t.deltas[0]
	t.deltas = t.deltas[1:]
	return dt
}

func (t *ScriptedTimer) Reset() {
	t.mu.Lock()
	t.resets++
	t.mu.Unlock()
}

// Push queues more deltas.
func (t *ScriptedTimer) Push(deltas ...float64) {
	t.mu.Lock()
	t.deltas = append(t.deltas, deltas...)
	t.mu.Unlock()
}

func (t *ScriptedTimer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.deltas)
}

func (t *ScriptedTimer) Resets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resets
}
