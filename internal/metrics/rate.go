// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package metrics

// Rate computes a per-second delta between two cumulative counter readings.
// If current has wrapped or reset below previous, the raw current value is
// treated as the delta since the reset (counter-reset heuristic). A
// non-positive elapsed duration yields 0 rather than dividing by zero or
// going negative.
func Rate(current, previous uint64, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	var delta uint64
	if current >= previous {
		delta = current - previous
	} else {
		delta = current
	}
	return float64(delta) / elapsedSeconds
}
