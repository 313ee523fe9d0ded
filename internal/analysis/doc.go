// Package analysis summarizes recorded trace columns: value range,
// settling time and the dominant oscillation frequency.
//
// A bouncing body shows up as a decaying oscillation in its height column;
// [Summarize] reports when it came to rest and how fast it bounced:
//
//	s := analysis.Summarize("ball_y", trace.Times, trace.Column("ball_y"), 0.01)
//	if s.Settled {
//	    fmt.Printf("at rest after %.2fs\n", s.SettleTime)
//	}
package analysis
