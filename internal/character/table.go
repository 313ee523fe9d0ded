// Package character holds the virtual character controllers shared between
// the simulation goroutine and the render goroutine.
//
// Every character lives in its own [Table] slot with its own RW lock. The
// simulation goroutine takes the exclusive lock for the per-tick callback,
// [Table.Mutate] takes it for out-of-band writes, and [Table.Position] and
// [Table.Read] take the shared lock. Locks are per character, so mutating
// one character never blocks a read of another.
package character

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

var ErrUnknownCharacter = errors.New("character: unknown handle")

// UpdateFunc is called once per simulation sub-step with the character's
// exclusive lock held.
type UpdateFunc func(dt float64, c *Controller, world Ground)

// Handle identifies a character for the lifetime of its table.
type Handle int

type lockedCharacter struct {
	mu     sync.RWMutex
	ctrl   *Controller
	update UpdateFunc
}

// Table is an append-only set of characters. Slots are stored by pointer,
// so growing the table never moves a slot another goroutine has locked.
type Table struct {
	mu      sync.RWMutex
	entries []*lockedCharacter

	// step guards snapshot, the slot list Update walks.
	step     sync.Mutex
	snapshot []*lockedCharacter
}

func NewTable() *Table {
	return &Table{}
}

// Create validates settings and appends a new character. A nil fn leaves
// the character untouched by the simulation goroutine.
func (t *Table) Create(settings Settings, fn UpdateFunc) (Handle, error) {
	if err := settings.Validate(); err != nil {
		return -1, err
	}
	e := &lockedCharacter{ctrl: NewController(settings), update: fn}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	return Handle(len(t.entries) - 1), nil
}

func (t *Table) entry(h Handle) (*lockedCharacter, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if h < 0 || int(h) >= len(t.entries) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCharacter, h)
	}
	return t.entries[h], nil
}

// Mutate runs fn with exclusive access to the character.
func (t *Table) Mutate(h Handle, fn func(*Controller)) error {
	e, err := t.entry(h)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.ctrl)
	return nil
}

// Read runs fn with shared access to the character. fn must not modify it.
func (t *Table) Read(h Handle, fn func(*Controller)) error {
	e, err := t.entry(h)
	if err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.ctrl)
	return nil
}

func (t *Table) Position(h Handle) (mgl64.Vec3, error) {
	var p mgl64.Vec3
	err := t.Read(h, func(c *Controller) { p = c.Position() })
	return p, err
}

// Update runs every registered callback. The slot list is copied under the
// table lock and the callbacks run after it is released, so a callback may
// itself create characters. The copy reuses one buffer across calls.
func (t *Table) Update(dt float64, world Ground) {
	t.step.Lock()
	defer t.step.Unlock()

	t.mu.RLock()
	t.snapshot = append(t.snapshot[:0], t.entries...)
	t.mu.RUnlock()

	for _, e := range t.snapshot {
		e.tick(dt, world)
	}
}

func (e *lockedCharacter) tick(dt float64, world Ground) {
	if e.update == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.update(dt, e.ctrl, world)
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
