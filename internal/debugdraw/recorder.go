// Package debugdraw captures the solver's debug geometry and streams it to
// browser viewers over a websocket.
package debugdraw

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/simhost/internal/dynamo"
)

type Line struct {
	From  mgl64.Vec3   `json:"from"`
	To    mgl64.Vec3   `json:"to"`
	Color dynamo.Color `json:"color"`
}

type Triangle struct {
	A     mgl64.Vec3   `json:"a"`
	B     mgl64.Vec3   `json:"b"`
	C     mgl64.Vec3   `json:"c"`
	Color dynamo.Color `json:"color"`
}

// Frame is the geometry of one completed step.
type Frame struct {
	Seq       uint64     `json:"seq"`
	Lines     []Line     `json:"lines"`
	Triangles []Triangle `json:"triangles"`
}

// Recorder is a dynamo.FrameRenderer. It is written by the simulation
// goroutine and read by any number of viewers; readers only ever see
// complete frames.
type Recorder struct {
	mu       sync.Mutex
	building Frame
	seq      uint64

	latest atomic.Pointer[Frame]
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) BeginFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.building = Frame{}
}

func (r *Recorder) DrawLine(from, to mgl64.Vec3, c dynamo.Color) {
	r.mu.Lock()
	r.building.Lines = append(r.building.Lines, Line{From: from, To: to, Color: c})
	r.mu.Unlock()
}

func (r *Recorder) DrawTriangle(a, b, c mgl64.Vec3, col dynamo.Color) {
	r.mu.Lock()
	r.building.Triangles = append(r.building.Triangles, Triangle{A: a, B: b, C: c, Color: col})
	r.mu.Unlock()
}

// EndFrame publishes the frame built since BeginFrame, replacing the
// previous one.
func (r *Recorder) EndFrame() {
	r.mu.Lock()
	r.seq++
	f := r.building
	f.Seq = r.seq
	r.building = Frame{}
	r.mu.Unlock()
	r.latest.Store(&f)
}

// Latest returns the last published frame, or nil before the first one.
func (r *Recorder) Latest() *Frame {
	return r.latest.Load()
}

var _ dynamo.FrameRenderer = (*Recorder)(nil)
