package analysis

import "math"

type Summary struct {
	Column     string
	Min, Max   float64
	Final      float64
	Settled    bool
	SettleTime float64
	Dominant   float64 // Hz, zero when there is no oscillation
}

// SettleTime returns the first time after which values stay within
// tolerance of the final value.
func SettleTime(times, values []float64, tolerance float64) (float64, bool) {
	n := min(len(times), len(values))
	if n == 0 {
		return 0, false
	}
	final := values[n-1]
	settled := n - 1
	for i := n - 1; i >= 0; i-- {
		if math.Abs(values[i]-final) > tolerance {
			break
		}
		settled = i
	}
	// settling on the very last sample says nothing
	if settled == n-1 && n > 1 {
		return 0, false
	}
	return times[settled], true
}

// Summarize describes one column. The sample rate is taken from the mean
// spacing of times.
func Summarize(column string, times, values []float64, tolerance float64) Summary {
	s := Summary{Column: column}
	n := min(len(times), len(values))
	if n == 0 {
		return s
	}

	s.Min, s.Max = values[0], values[0]
	for _, v := range values[:n] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Final = values[n-1]
	s.SettleTime, s.Settled = SettleTime(times[:n], values[:n], tolerance)

	if n > 1 && times[n-1] > times[0] {
		rate := float64(n-1) / (times[n-1] - times[0])
		s.Dominant, _ = DominantFrequency(values[:n], rate)
	}
	return s
}
