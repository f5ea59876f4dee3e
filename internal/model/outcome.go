package model

// Outcome distinguishes a transition that changed state from one that found
// nothing to do. Failures are reported as errors instead.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoOp    Outcome = "noop"
)

// AdvanceResult is the result of an advance request
type AdvanceResult struct {
	Outcome Outcome
	Game    Game

	// Ended is true when this call (not an earlier one) ended the game
	Ended bool
}
