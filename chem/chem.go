// Package chem describes molecule construction states and the contracts the
// search core consumes from its chemistry and learned-estimator collaborators.
// No chemistry lives here; a backend implementing Problem and an estimator
// implementing Evaluator are interchangeable with any other.
package chem

import "context"

// Problem enumerates the construction moves of a chemistry backend.
//
// Expand must be deterministic and idempotent for a given state (same input,
// same successor set, ordering ignored) because the engine may call it again
// across tree-reuse boundaries. Returning an error signals a contract
// violation; returning an empty set for a state IsTerminal claims is
// non-terminal makes the engine reclassify that state as a dead end.
type Problem interface {
	// Expand returns the set of legal successor molecules of s.
	Expand(s State) ([]State, error)

	// IsTerminal reports whether construction ends at s. Pure, no side effects.
	IsTerminal(s State) bool

	// Reward scores a finished molecule. Only called on terminal states.
	Reward(s State) float32
}

// Evaluation is what the learned estimator reports for a state: a scalar value
// estimate and prior weights over the state's legal successors. Priors need
// not sum to 1; the engine normalizes them over the successor set and falls
// back to uniform weights when the total mass vanishes.
type Evaluation struct {
	Value  float32
	Priors map[Fingerprint]float32
}

// Evaluator is the learned value/policy estimator. Evaluate may block for as
// long as it likes (remote inference, request batching); the engine issues
// calls from many in-flight simulations and workers concurrently, so a
// batching implementation can coalesce pending requests. Evaluate must honor
// ctx cancellation. Called on a terminal state it returns the terminal reward
// as Value and nil Priors.
type Evaluator interface {
	Evaluate(ctx context.Context, s State) (Evaluation, error)
}
