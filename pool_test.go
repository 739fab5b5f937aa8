package molsearch_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemrl/molsearch"
	"github.com/chemrl/molsearch/chem/chain"
)

func TestRunEpisodesIsolation(t *testing.T) {
	b, conf := chainConfig(t)
	conf.MCTS.Temperature = 1.0 // sampling, so workers actually diverge

	eps, err := molsearch.RunEpisodes(context.Background(),
		b, chain.Heuristic{B: b}, b.Root(), conf, 8, 4)
	require.NoError(t, err)
	require.Len(t, eps, 8)

	names := make(map[string]bool)
	for i, ep := range eps {
		require.NotZero(t, ep.Len(), "episode %d is empty", i)
		final := ep.Final()
		if !ep.Truncated {
			assert.True(t, b.IsTerminal(final), "episode %d ended mid-build at %s", i, final.Smiles())
		}
		assert.False(t, names[ep.Name], "episode names must be unique, got %s twice", ep.Name)
		names[ep.Name] = true
	}
}

func TestRunEpisodesAggregatesFailures(t *testing.T) {
	b, conf := chainConfig(t)
	conf.MCTS.RetryLimit = 0

	eps, err := molsearch.RunEpisodes(context.Background(),
		b, failingEval{}, b.Root(), conf, 4, 2)
	require.Error(t, err, "every episode fails, the aggregate must say so")
	assert.Len(t, eps, 4, "partial episodes are still returned")
}

func TestRunEpisodesHonorsCancellation(t *testing.T) {
	b, conf := chainConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eps, err := molsearch.RunEpisodes(ctx, b, chain.Heuristic{B: b}, b.Root(), conf, 64, 2)
	require.Error(t, err, "cancelling a batch is reported, not swallowed")
	assert.Contains(t, err.Error(), context.Canceled.Error())
	// never-attempted episodes are dropped rather than returned as zero
	// values that look like real zero-step episodes
	assert.True(t, len(eps) < 64, "got %d episodes from a cancelled batch", len(eps))
	for _, ep := range eps {
		assert.Zero(t, ep.Len())
	}
}
