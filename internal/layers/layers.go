// Package layers defines the static collision policy between object layers
// and broad-phase layers.
//
// There are two object layers:
//
//   - [NonMoving]: static geometry (terrain, walls)
//   - [Moving]: everything that can move
//
// NonMoving objects only ever collide with Moving objects; Moving objects
// collide with everything. The tables are fixed at compile time and every
// function in this package is pure, so a [Table] may be shared freely between
// goroutines.
package layers

import "fmt"

type ObjectLayer uint8

const (
	NonMoving ObjectLayer = iota
	Moving

	NumObjectLayers
)

func (l ObjectLayer) String() string {
	switch l {
	case NonMoving:
		return "NON_MOVING"
	case Moving:
		return "MOVING"
	default:
		return fmt.Sprintf("ObjectLayer(%d)", uint8(l))
	}
}

func (l ObjectLayer) Valid() bool { return l < NumObjectLayers }

type BroadPhaseLayer uint8

const (
	BroadPhaseNonMoving BroadPhaseLayer = iota
	BroadPhaseMoving

	NumBroadPhaseLayers
)

func (l BroadPhaseLayer) String() string {
	switch l {
	case BroadPhaseNonMoving:
		return "NON_MOVING"
	case BroadPhaseMoving:
		return "MOVING"
	default:
		return fmt.Sprintf("BroadPhaseLayer(%d)", uint8(l))
	}
}

// objectPairs[a][b] reports whether object layer a may collide with b.
var objectPairs = [NumObjectLayers][NumObjectLayers]bool{
	NonMoving: {NonMoving: false, Moving: true},
	Moving:    {NonMoving: true, Moving: true},
}

var broadPhaseOf = [NumObjectLayers]BroadPhaseLayer{
	NonMoving: BroadPhaseNonMoving,
	Moving:    BroadPhaseMoving,
}

var objectVsBroadPhase = [NumObjectLayers][NumBroadPhaseLayers]bool{
	NonMoving: {BroadPhaseNonMoving: false, BroadPhaseMoving: true},
	Moving:    {BroadPhaseNonMoving: true, BroadPhaseMoving: true},
}

// ShouldCollide reports whether objects on layers a and b may interact.
// Unknown layers never collide.
func ShouldCollide(a, b ObjectLayer) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return objectPairs[a][b]
}

// BroadPhaseLayerOf maps an object layer to the broad-phase tree it lives in.
func BroadPhaseLayerOf(l ObjectLayer) BroadPhaseLayer {
	if !l.Valid() {
		return NumBroadPhaseLayers
	}
	return broadPhaseOf[l]
}

// ShouldCollideBroadPhase reports whether an object on layer l needs to be
// tested against the broad-phase tree bp.
func ShouldCollideBroadPhase(l ObjectLayer, bp BroadPhaseLayer) bool {
	if !l.Valid() || bp >= NumBroadPhaseLayers {
		return false
	}
	return objectVsBroadPhase[l][bp]
}

// Table bundles the layer policies behind the interface the solver consumes.
type Table struct{}

func NewTable() Table { return Table{} }

func (Table) ShouldCollide(a, b ObjectLayer) bool { return ShouldCollide(a, b) }

func (Table) BroadPhaseLayer(l ObjectLayer) BroadPhaseLayer { return BroadPhaseLayerOf(l) }

func (Table) ShouldCollideBroadPhase(l ObjectLayer, bp BroadPhaseLayer) bool {
	return ShouldCollideBroadPhase(l, bp)
}

func (Table) NumBroadPhaseLayers() int { return int(NumBroadPhaseLayers) }

// ParseObjectLayer accepts the names produced by String, case-sensitively,
// plus the lower-case forms used in config files.
func ParseObjectLayer(s string) (ObjectLayer, error) {
	switch s {
	case "NON_MOVING", "non_moving", "static":
		return NonMoving, nil
	case "MOVING", "moving":
		return Moving, nil
	}
	return 0, fmt.Errorf("unknown object layer: %s", s)
}
