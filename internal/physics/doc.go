// Package physics runs the fixed-timestep simulation goroutine and exposes
// its control surface to the render goroutine.
//
// The main types are:
//
//   - [System]: the owned simulation context with Initialize/Shutdown and
//     Start/Stop/Pause/Unpause control
//   - [Bodies]: the body creation and query facade over the solver
//   - [ManualBody]: the only write path for manually positioned bodies
//   - [Timer]: the frame clock the loop ticks once per pass
//
// # Sub-steps
//
// Each pass ticks the timer, scales the elapsed time and then steps the
// solver by min(elapsed, FixedStep) until elapsed is used up. The final
// sub-step of a pass may be shorter than FixedStep:
//
//	elapsed := timer.Tick() * timeScale
//	for elapsed > 0 {
//	    solver.Step(min(elapsed, FixedStep))
//	    elapsed -= FixedStep
//	}
//
// # Thread Safety
//
// Only one [System] may be initialized per process. All control methods may
// be called from any goroutine; StopSimulation blocks until the simulation
// goroutine has exited, and Shutdown tears the solver and job pool down only
// after that join. Character callbacks and step observers run on the
// simulation goroutine and must not start, stop or shut it down. Body queries
// go straight to the solver, which must allow reads during Step.
package physics
