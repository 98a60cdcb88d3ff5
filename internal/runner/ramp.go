package runner

import "time"

// StartOffsets computes the staggered start offset for each simulated user so
// the population grows approximately linearly over the ramp-up window: the
// i-th of n users starts at i*rampUp/n. A zero ramp-up or a single user
// yields all-zero offsets; zero users yields an empty slice.
func StartOffsets(users int, rampUp time.Duration) []time.Duration {
	if users <= 0 {
		return nil
	}
	offsets := make([]time.Duration, users)
	if rampUp <= 0 || users == 1 {
		return offsets
	}
	step := float64(rampUp) / float64(users)
	for i := range offsets {
		offsets[i] = time.Duration(float64(i) * step)
	}
	return offsets
}
