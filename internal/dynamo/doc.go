// Package dynamo provides the core primitives shared by the simulation host.
//
// The package defines the vocabulary that the orchestration layer and the
// rigid-body solver speak:
//
//   - [Transform]: position and rotation of a body or character
//   - [Shape]: sphere, box and height-field collision shapes
//   - [BodySettings]: everything needed to create a body
//   - [Solver]: the rigid-body engine consumed through opaque [BodyID]s
//   - [DebugRenderer]: receiver for post-step collision geometry
//
// # Thread Safety
//
// Values in this package are plain data. A [Solver] implementation must allow
// its query methods to be called while Step is running on another goroutine;
// the orchestration layer adds no locking of its own around those reads.
package dynamo
