package rigid

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/gomega"
	"github.com/san-kum/simhost/internal/dynamo"
	"github.com/san-kum/simhost/internal/jobs"
	"github.com/san-kum/simhost/internal/layers"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/zeebo/xxh3"
)

const dt = 1.0 / 60.0

func newTestSolver(t *testing.T, settings Settings) *Solver {
	t.Helper()
	pool := jobs.NewPool(2)
	log, _ := test.NewNullLogger()
	s := New(settings, layers.NewTable(), pool, log)
	t.Cleanup(func() {
		s.Close()
		pool.Close()
	})
	return s
}

func ground(t *testing.T, s *Solver) dynamo.BodyID {
	t.Helper()
	id, err := s.CreateBody(dynamo.BodySettings{
		Shape:      dynamo.FlatHeightField(5, 0, 1),
		Position:   mgl64.Vec3{-2, 0, -2},
		MotionType: dynamo.Static,
		Layer:      layers.NonMoving,
	})
	if err != nil {
		t.Fatalf("create ground: %v", err)
	}
	return id
}

func ball(t *testing.T, s *Solver, pos mgl64.Vec3, layer layers.ObjectLayer) dynamo.BodyID {
	t.Helper()
	id, err := s.CreateBody(dynamo.BodySettings{
		Shape:      &dynamo.Sphere{Radius: 0.5},
		Position:   pos,
		MotionType: dynamo.Dynamic,
		Layer:      layer,
		Mass:       1,
	})
	if err != nil {
		t.Fatalf("create ball: %v", err)
	}
	return id
}

func steps(t *testing.T, s *Solver, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.Step(dt); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func TestCreateBodyInvalid(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())

	_, err := s.CreateBody(dynamo.BodySettings{Shape: &dynamo.Sphere{Radius: -1}, MotionType: dynamo.Dynamic, Mass: 1})
	g.Expect(errors.Is(err, dynamo.ErrInvalidShape)).To(BeTrue())
	g.Expect(s.BodyCount()).To(Equal(0))
}

func TestCreateBodyCapacity(t *testing.T) {
	g := NewWithT(t)
	settings := DefaultSettings()
	settings.MaxBodies = 2
	s := newTestSolver(t, settings)

	ball(t, s, mgl64.Vec3{0, 5, 0}, layers.Moving)
	ball(t, s, mgl64.Vec3{3, 5, 0}, layers.Moving)
	_, err := s.CreateBody(dynamo.BodySettings{Shape: &dynamo.Sphere{Radius: 1}, MotionType: dynamo.Dynamic, Mass: 1, Layer: layers.Moving})
	g.Expect(errors.Is(err, dynamo.ErrBodyCapacity)).To(BeTrue())
}

func TestBallComesToRestOnHeightField(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())
	ground(t, s)
	id := ball(t, s, mgl64.Vec3{0, 2, 0}, layers.Moving)

	steps(t, s, 300)

	pos, err := s.Position(id)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(pos[1]).To(BeNumerically("~", 0.5, 1e-6))

	active, _ := s.IsActive(id)
	g.Expect(active).To(BeFalse(), "resting ball should fall asleep")
}

func TestNonMovingLayersDoNotCollide(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())
	ground(t, s)
	id := ball(t, s, mgl64.Vec3{0, 2, 0}, layers.NonMoving)

	steps(t, s, 120)

	pos, _ := s.Position(id)
	g.Expect(pos[1]).To(BeNumerically("<", -5), "ball on the static layer should fall through the ground")
}

func TestStaticAndKinematicBodies(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())
	floor := ground(t, s)

	kin, err := s.CreateBody(dynamo.BodySettings{
		Shape:          &dynamo.Box{HalfExtent: mgl64.Vec3{0.5, 0.5, 0.5}},
		Position:       mgl64.Vec3{0, 3, 0},
		MotionType:     dynamo.Kinematic,
		Layer:          layers.Moving,
		LinearVelocity: mgl64.Vec3{1, 0, 0},
	})
	g.Expect(err).NotTo(HaveOccurred())

	steps(t, s, 60)

	pos, _ := s.Position(kin)
	g.Expect(pos[0]).To(BeNumerically("~", 1.0, 1e-9))
	g.Expect(pos[1]).To(BeNumerically("~", 3.0, 1e-12), "kinematic bodies ignore gravity")

	floorPos, _ := s.Position(floor)
	g.Expect(floorPos).To(Equal(mgl64.Vec3{-2, 0, -2}))

	mt, _ := s.MotionType(floor)
	g.Expect(mt).To(Equal(dynamo.Static))
	active, _ := s.IsActive(floor)
	g.Expect(active).To(BeFalse())
}

func TestSetPositionWakesBody(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())
	ground(t, s)
	id := ball(t, s, mgl64.Vec3{0, 0.5, 0}, layers.Moving)

	steps(t, s, 60)
	active, _ := s.IsActive(id)
	g.Expect(active).To(BeFalse())

	g.Expect(s.SetPosition(id, mgl64.Vec3{0, 1.5, 0}, false)).To(Succeed())
	active, _ = s.IsActive(id)
	g.Expect(active).To(BeFalse(), "moving without activate keeps the body asleep")

	g.Expect(s.SetPosition(id, mgl64.Vec3{0, 1.5, 0}, true)).To(Succeed())
	active, _ = s.IsActive(id)
	g.Expect(active).To(BeTrue())

	steps(t, s, 1)
	pos, _ := s.Position(id)
	g.Expect(pos[1]).To(BeNumerically("<", 1.5))
}

func TestUnknownBody(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())

	_, err := s.Position(42)
	g.Expect(errors.Is(err, dynamo.ErrBodyNotFound)).To(BeTrue())

	var be *dynamo.BodyError
	g.Expect(errors.As(err, &be)).To(BeTrue())
	g.Expect(be.ID).To(Equal(dynamo.BodyID(42)))
}

func TestGroundHeight(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())
	ground(t, s)
	_, err := s.CreateBody(dynamo.BodySettings{
		Shape:      &dynamo.Box{HalfExtent: mgl64.Vec3{0.5, 0.5, 0.5}},
		Position:   mgl64.Vec3{1, 0.5, 1},
		MotionType: dynamo.Static,
		Layer:      layers.NonMoving,
	})
	g.Expect(err).NotTo(HaveOccurred())

	h, ok := s.GroundHeight(-1, -1)
	g.Expect(ok).To(BeTrue())
	g.Expect(h).To(BeNumerically("~", 0, 1e-12))

	h, ok = s.GroundHeight(1, 1)
	g.Expect(ok).To(BeTrue())
	g.Expect(h).To(BeNumerically("~", 1, 1e-12), "box top is above the field")

	_, ok = s.GroundHeight(50, 50)
	g.Expect(ok).To(BeFalse())
}

func TestBallsPushApart(t *testing.T) {
	g := NewWithT(t)
	settings := DefaultSettings()
	settings.Gravity = mgl64.Vec3{}
	s := newTestSolver(t, settings)

	a := ball(t, s, mgl64.Vec3{0, 0, 0}, layers.Moving)
	b := ball(t, s, mgl64.Vec3{0.8, 0, 0}, layers.Moving)

	steps(t, s, 1)

	pa, _ := s.Position(a)
	pb, _ := s.Position(b)
	g.Expect(pb.Sub(pa).Len()).To(BeNumerically("~", 1.0, 1e-9))
}

type countingRenderer struct {
	lines, triangles int
}

func (c *countingRenderer) DrawLine(from, to mgl64.Vec3, col dynamo.Color) { c.lines++ }
func (c *countingRenderer) DrawTriangle(a, b, v mgl64.Vec3, col dynamo.Color) {
	c.triangles++
}

func TestDrawBodies(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())
	ground(t, s)
	ball(t, s, mgl64.Vec3{0, 2, 0}, layers.Moving)
	_, err := s.CreateBody(dynamo.BodySettings{
		Shape:      &dynamo.Box{HalfExtent: mgl64.Vec3{1, 1, 1}},
		Position:   mgl64.Vec3{5, 5, 5},
		MotionType: dynamo.Dynamic,
		Layer:      layers.Moving,
		Mass:       2,
	})
	g.Expect(err).NotTo(HaveOccurred())

	r := &countingRenderer{}
	s.DrawBodies(r)

	g.Expect(r.lines).To(Equal(3*circleSegments + 12))
	g.Expect(r.triangles).To(Equal(4 * 4 * 2))
}

func TestDigestDeterministic(t *testing.T) {
	g := NewWithT(t)
	build := func() *Solver {
		s := newTestSolver(t, DefaultSettings())
		ground(t, s)
		ball(t, s, mgl64.Vec3{0, 2, 0}, layers.Moving)
		ball(t, s, mgl64.Vec3{0.2, 3.5, 0.1}, layers.Moving)
		return s
	}

	// both balls are still in free fall after half a second
	s1, s2 := build(), build()
	steps(t, s1, 30)
	steps(t, s2, 30)
	g.Expect(s1.Digest()).To(Equal(s2.Digest()))

	steps(t, s2, 1)
	g.Expect(s1.Digest()).NotTo(Equal(s2.Digest()))
}

func TestDigestLayout(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())
	id := ball(t, s, mgl64.Vec3{0.5, 2, -1}, layers.Moving)
	steps(t, s, 3)

	pos, _ := s.Position(id)
	rot, _ := s.Rotation(id)
	vel, _ := s.LinearVelocity(id)

	// position, rotation (w first), velocity as little-endian float64s
	var buf []byte
	for _, v := range []float64{pos[0], pos[1], pos[2], rot.W, rot.V[0], rot.V[1], rot.V[2], vel[0], vel[1], vel[2]} {
		var word [8]byte
		binary.LittleEndian.PutUint64(word[:], math.Float64bits(v))
		buf = append(buf, word[:]...)
	}
	g.Expect(s.Digest()).To(Equal(xxh3.Hash(buf)))
}

func TestQueriesDuringStep(t *testing.T) {
	s := newTestSolver(t, DefaultSettings())
	ground(t, s)
	id := ball(t, s, mgl64.Vec3{0, 10, 0}, layers.Moving)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if _, err := s.Position(id); err != nil {
				t.Errorf("position: %v", err)
				return
			}
			_, _ = s.GroundHeight(0, 0)
		}
	}()

	steps(t, s, 200)
	wg.Wait()
}

func TestClosedSolver(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())
	id := ball(t, s, mgl64.Vec3{}, layers.Moving)

	g.Expect(s.Close()).To(Succeed())
	g.Expect(s.Close()).To(Succeed())
	g.Expect(s.Step(dt)).To(MatchError(dynamo.ErrSolverClosed))

	_, err := s.Position(id)
	g.Expect(errors.Is(err, dynamo.ErrSolverClosed)).To(BeTrue())
}

func TestStepRejectsNonPositive(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())
	g.Expect(s.Step(0)).NotTo(Succeed())
	g.Expect(s.Step(-dt)).NotTo(Succeed())
}

func TestSetMotionType(t *testing.T) {
	g := NewWithT(t)
	s := newTestSolver(t, DefaultSettings())
	floor := ground(t, s)
	id := ball(t, s, mgl64.Vec3{0, 5, 0}, layers.Moving)

	steps(t, s, 10)
	g.Expect(s.SetMotionType(id, dynamo.Kinematic)).To(Succeed())
	vel, _ := s.LinearVelocity(id)
	g.Expect(vel).To(Equal(mgl64.Vec3{}))

	before, _ := s.Position(id)
	steps(t, s, 10)
	after, _ := s.Position(id)
	g.Expect(after).To(Equal(before), "a kinematic body without velocity holds still")

	g.Expect(s.SetMotionType(id, dynamo.Dynamic)).To(Succeed())
	steps(t, s, 1)
	after, _ = s.Position(id)
	g.Expect(after[1]).To(BeNumerically("<", before[1]))

	err := s.SetMotionType(floor, dynamo.Dynamic)
	g.Expect(errors.Is(err, dynamo.ErrInvalidSettings)).To(BeTrue())
	err = s.SetMotionType(id, dynamo.Static)
	g.Expect(errors.Is(err, dynamo.ErrInvalidSettings)).To(BeTrue())
}
