// Package chain is a toy chemistry backend: it grows unbranched hydrocarbon
// chains one carbon at a time, optionally capping them with a hydroxyl group.
// It exists so the search core can be exercised end to end without a real
// chemistry library, the way a tic-tac-toe backend exercises a board-game
// engine. Everything here is deterministic.
package chain

import (
	"context"
	"strings"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/chemrl/molsearch/chem"
)

// Builder enumerates chain-growing moves. From any open chain of k carbons it
// offers two successors: extend with another carbon, or cap with an oxygen
// (which ends construction). Construction also ends when MaxAtoms is reached.
type Builder struct {
	MaxAtoms int
	Target   int // preferred carbon count; Reward peaks here
}

// New returns a Builder. maxAtoms bounds the molecule size; target is the
// carbon count the reward function prefers.
func New(maxAtoms, target int) (*Builder, error) {
	if maxAtoms < 2 {
		return nil, errors.Errorf("chain: maxAtoms must be at least 2, got %d", maxAtoms)
	}
	if target < 1 || target > maxAtoms {
		return nil, errors.Errorf("chain: target %d out of range [1, %d]", target, maxAtoms)
	}
	return &Builder{MaxAtoms: maxAtoms, Target: target}, nil
}

// Root returns the single-carbon starting state.
func (b *Builder) Root() chem.State { return chem.NewState("C", 1, false) }

// Expand implements chem.Problem.
func (b *Builder) Expand(s chem.State) ([]chem.State, error) {
	if b.IsTerminal(s) {
		return nil, errors.Errorf("chain: expand called on terminal state %s", s.Smiles())
	}
	k := s.NumAtoms()
	grown := chem.NewState(s.Smiles()+"C", k+1, k+1 >= b.MaxAtoms)
	capped := chem.NewState(s.Smiles()+"O", k+1, true)
	return []chem.State{grown, capped}, nil
}

// IsTerminal implements chem.Problem.
func (b *Builder) IsTerminal(s chem.State) bool { return s.IsTerminal() }

// Reward implements chem.Problem. It peaks at Target carbons and halves for
// chains that ran into the atom budget without being capped.
func (b *Builder) Reward(s chem.State) float32 {
	carbons := strings.Count(s.Smiles(), "C")
	r := 1 - math32.Abs(float32(carbons-b.Target))/float32(b.MaxAtoms)
	if !strings.HasSuffix(s.Smiles(), "O") {
		r *= 0.5
	}
	return r
}

// Heuristic is a stand-in for a learned estimator: it scores states by the
// reward each successor would earn if capped immediately. Deterministic, so
// tests built on it reproduce exactly.
type Heuristic struct {
	B *Builder
}

// Evaluate implements chem.Evaluator.
func (h Heuristic) Evaluate(ctx context.Context, s chem.State) (chem.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return chem.Evaluation{}, err
	}
	if h.B.IsTerminal(s) {
		return chem.Evaluation{Value: h.B.Reward(s)}, nil
	}

	succ, err := h.B.Expand(s)
	if err != nil {
		return chem.Evaluation{}, err
	}
	ev := chem.Evaluation{Priors: make(map[chem.Fingerprint]float32, len(succ))}
	for _, next := range succ {
		w := h.potential(next)
		ev.Priors[next.Hash()] = w
		if w > ev.Value {
			ev.Value = w
		}
	}
	return ev, nil
}

// potential is the reward of the state as if construction stopped here.
func (h Heuristic) potential(s chem.State) float32 {
	if s.IsTerminal() {
		return h.B.Reward(s)
	}
	capped := chem.NewState(s.Smiles()+"O", s.NumAtoms()+1, true)
	return h.B.Reward(capped)
}
