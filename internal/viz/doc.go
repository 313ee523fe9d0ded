// Package viz is the live terminal console for a running session.
//
// The console is a Bubble Tea program fed by the session's render loop
// through a [Feed]. It draws a top-down braille view of the scene (or of
// the solver's debug geometry when a recorder is attached), an asciigraph
// plot of one entity's height, and the simulation counters.
//
// # Key Bindings
//
//	Space - Pause/Resume the simulation
//	+ / - - Raise or lower the time scale
//	Tab   - Track the next entity in the height plot
//	?     - Show help overlay
//	Q     - Quit
package viz
