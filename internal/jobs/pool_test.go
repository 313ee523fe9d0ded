package jobs

import (
	"sync/atomic"
	"testing"

	. "github.com/onsi/gomega"
)

func TestDefaultWorkers(t *testing.T) {
	g := NewWithT(t)
	g.Expect(DefaultWorkers()).To(BeNumerically(">=", 2))
}

func TestParallelForCoversRange(t *testing.T) {
	g := NewWithT(t)
	p := NewPool(4)
	defer p.Close()

	const n = 1000
	hits := make([]int32, n)
	p.ParallelFor(n, 16, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})

	for i, h := range hits {
		g.Expect(h).To(Equal(int32(1)), "index %d", i)
	}
}

func TestParallelForSmallRangeInline(t *testing.T) {
	g := NewWithT(t)
	p := NewPool(4)
	defer p.Close()

	calls := 0
	p.ParallelFor(3, 16, func(start, end int) {
		calls++
		g.Expect(start).To(Equal(0))
		g.Expect(end).To(Equal(3))
	})
	g.Expect(calls).To(Equal(1))
}

func TestClosedPoolRunsInline(t *testing.T) {
	g := NewWithT(t)
	p := NewPool(2)
	p.Close()
	p.Close()

	g.Expect(p.Submit(func() {})).To(BeFalse())

	var total int64
	p.ParallelFor(100, 10, func(start, end int) {
		atomic.AddInt64(&total, int64(end-start))
	})
	g.Expect(total).To(Equal(int64(100)))
}

func TestWorkerPanicDoesNotKillPool(t *testing.T) {
	g := NewWithT(t)
	p := NewPool(1)
	defer p.Close()

	p.Submit(func() { panic("boom") })

	done := make(chan struct{})
	p.Submit(func() { close(done) })
	g.Eventually(done).Should(BeClosed())
}

func TestTempAllocator(t *testing.T) {
	g := NewWithT(t)
	a := NewTempAllocator[int](8)

	s := a.Get()
	g.Expect(*s).To(BeEmpty())
	g.Expect(cap(*s)).To(BeNumerically(">=", 8))

	*s = append(*s, 1, 2, 3)
	a.Put(s)

	s2 := a.Get()
	g.Expect(*s2).To(BeEmpty())
}
