package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemrl/molsearch/chem"
)

func TestExpand(t *testing.T) {
	b, err := New(4, 3)
	require.NoError(t, err)

	succ, err := b.Expand(b.Root())
	require.NoError(t, err)
	require.Len(t, succ, 2)
	assert.Equal(t, "CC", succ[0].Smiles())
	assert.False(t, succ[0].IsTerminal())
	assert.Equal(t, "CO", succ[1].Smiles())
	assert.True(t, succ[1].IsTerminal())

	// Growing into the atom budget terminates the chain.
	twoCarbons := succ[0]
	succ, err = b.Expand(twoCarbons)
	require.NoError(t, err)
	succ, err = b.Expand(succ[0])
	require.NoError(t, err)
	assert.True(t, succ[0].IsTerminal(), "CCCC hits MaxAtoms")

	_, err = b.Expand(succ[0])
	assert.Error(t, err, "expanding a terminal state is a contract violation")
}

func TestRewardPeaksAtTarget(t *testing.T) {
	b, err := New(6, 3)
	require.NoError(t, err)

	onTarget := b.Reward(mustState(t, b, "CCCO"))
	short := b.Reward(mustState(t, b, "CCO"))
	long := b.Reward(mustState(t, b, "CCCCCO"))
	assert.Greater(t, onTarget, short)
	assert.Greater(t, onTarget, long)

	// Uncapped chains score worse than capped ones of the same length.
	capped := b.Reward(mustState(t, b, "CCCO"))
	uncapped := b.Reward(mustState(t, b, "CCCC"))
	assert.Greater(t, capped, uncapped)
}

func TestHeuristicIsDeterministic(t *testing.T) {
	b, err := New(5, 3)
	require.NoError(t, err)
	h := Heuristic{B: b}

	s := b.Root()
	ev1, err := h.Evaluate(context.Background(), s)
	require.NoError(t, err)
	ev2, err := h.Evaluate(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, ev1, ev2)
	assert.Len(t, ev1.Priors, 2)
}

// mustState replays a SMILES string through the builder so the test states
// carry the same atom counts and terminal flags as real expansions.
func mustState(t *testing.T, b *Builder, smiles string) chem.State {
	t.Helper()
	cur := b.Root()
	for i := 1; i < len(smiles); i++ {
		succ, err := b.Expand(cur)
		require.NoError(t, err)
		found := false
		for _, next := range succ {
			if next.Smiles() == smiles[:i+1] {
				cur = next
				found = true
				break
			}
		}
		require.True(t, found, "no expansion path to %s", smiles)
	}
	return cur
}
