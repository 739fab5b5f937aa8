package molsearch

import "github.com/chemrl/molsearch/chem"

// Step records one decision of a rollout: the state the search was rooted at,
// the successor states the expander offered (in canonical order), the
// normalized visit distribution over them, and the successor actually taken.
type Step struct {
	State      chem.State
	Successors []chem.State
	Policy     map[chem.Fingerprint]float32
	Chosen     chem.State
}

// Episode is the ordered record of one rollout. Once returned by a controller
// it is never mutated; the trainer can hold on to it.
type Episode struct {
	Name      string
	Steps     []Step
	Reward    float32
	Truncated bool
}

// Len returns the number of construction steps taken.
func (e Episode) Len() int { return len(e.Steps) }

// Final returns the state the episode ended at, or the zero state for an
// episode that never took a step.
func (e Episode) Final() chem.State {
	if len(e.Steps) == 0 {
		return chem.State{}
	}
	return e.Steps[len(e.Steps)-1].Chosen
}
