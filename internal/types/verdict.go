package types

// Verdict is the outcome of classifying one discovered crash.
type Verdict int

const (
	// VerdictNotReproducible means the crash could not be replayed against
	// the candidate build inside the retry budget.
	VerdictNotReproducible Verdict = iota
	// VerdictNewRegression means the crash reproduces with the change under
	// test but not in the published baseline (or no baseline exists).
	VerdictNewRegression
	// VerdictPreExistingBug means the crash also reproduces in the published
	// baseline build and is not the change's fault.
	VerdictPreExistingBug
)

func (v Verdict) String() string {
	switch v {
	case VerdictNotReproducible:
		return "not_reproducible"
	case VerdictNewRegression:
		return "new_regression"
	case VerdictPreExistingBug:
		return "pre_existing_bug"
	}
	return "unknown"
}

// Blocking reports whether the verdict should fail the gate.
func (v Verdict) Blocking() bool {
	return v == VerdictNewRegression
}
