// Package calibrate turns a user's raw time estimate into a calibrated
// prediction using the behavioral model: six bounded multipliers, a
// confidence score, and a plausible range.
package calibrate

// Calibrated wraps a computed value together with whether it came from real
// signal or is the neutral fallback for sparse data. Factor functions return
// Calibrated values so tests can assert neutrality directly instead of
// inferring it from equal multipliers.
type Calibrated[T any] struct {
	Value   T
	Neutral bool
	// Reason is a short human-readable explanation, set only when the
	// value deviates from neutral.
	Reason string
}

// neutralFactor is the identity multiplier for sparse or missing data.
func neutralFactor() Calibrated[float64] {
	return Calibrated[float64]{Value: 1.0, Neutral: true}
}

// factor wraps a data-driven multiplier with its explanation.
func factor(value float64, reason string) Calibrated[float64] {
	return Calibrated[float64]{Value: value, Reason: reason}
}
