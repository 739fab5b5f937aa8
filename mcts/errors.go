package mcts

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/chemrl/molsearch/chem"
)

// ErrInvalidConfig is the sentinel wrapped by every configuration validation
// failure. Check with errors.Cause.
var ErrInvalidConfig = errors.New("invalid configuration")

// InvalidStateError reports a collaborator contract violation: the expander
// rejected a state the engine legitimately reached. These are never retried;
// retrying a deterministic expander cannot change the answer.
type InvalidStateError struct {
	State chem.State
	Msg   string
	Err   error
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %s: %s: %v", e.State.Smiles(), e.Msg, e.Err)
}

func (e *InvalidStateError) Unwrap() error { return e.Err }

// EvaluatorError reports an evaluation that kept failing after the
// simulation carrying it was retried. Attempts counts every try, the first
// one included.
type EvaluatorError struct {
	State    chem.State
	Attempts int
	Err      error
}

func (e *EvaluatorError) Error() string {
	return fmt.Sprintf("evaluating %s failed after %d attempt(s): %v", e.State.Smiles(), e.Attempts, e.Err)
}

func (e *EvaluatorError) Unwrap() error { return e.Err }
