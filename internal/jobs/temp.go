package jobs

import "sync"

// TempAllocator hands out reusable scratch slices for per-step data such as
// candidate pairs and contacts.
type TempAllocator[T any] struct {
	pool     sync.Pool
	capacity int
}

func NewTempAllocator[T any](capacity int) *TempAllocator[T] {
	a := &TempAllocator[T]{capacity: capacity}
	a.pool.New = func() any {
		s := make([]T, 0, capacity)
		return &s
	}
	return a
}

// Get returns an empty slice with at least the allocator's capacity.
func (a *TempAllocator[T]) Get() *[]T {
	s := a.pool.Get().(*[]T)
	*s = (*s)[:0]
	return s
}

// Put hands a slice back. Slices that grew far past the configured capacity
// are dropped so one bad frame does not pin memory.
func (a *TempAllocator[T]) Put(s *[]T) {
	if s == nil || cap(*s) > a.capacity*4 {
		return
	}
	clear(*s)
	*s = (*s)[:0]
	a.pool.Put(s)
}

func (a *TempAllocator[T]) Capacity() int { return a.capacity }
