package molsearch_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chemrl/molsearch"
)

func TestTrackEpisodes(t *testing.T) {
	eps := []molsearch.Episode{
		{Steps: make([]molsearch.Step, 4), Reward: 1.0},
		{Steps: make([]molsearch.Step, 2), Reward: 0.5},
		{Steps: make([]molsearch.Step, 3), Reward: 0.75, Truncated: true},
	}

	s := molsearch.TrackEpisodes(eps)
	assert.Equal(t, 1, s.Truncated)
	assert.InDelta(t, 0.75, s.MeanReward(), 1e-9)
	assert.InDelta(t, 3.0, s.MeanLength(), 1e-9)
	assert.InDelta(t, 0.25, s.StdDevReward(), 1e-9)
}

func TestStatisticsDump(t *testing.T) {
	eps := []molsearch.Episode{
		{Steps: make([]molsearch.Step, 4), Reward: 1.0},
		{Steps: make([]molsearch.Step, 2), Reward: 0.5},
	}
	s := molsearch.TrackEpisodes(eps)

	var buf bytes.Buffer
	require.NoError(t, s.Dump(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "episode,reward,steps", lines[0])
	assert.Equal(t, "0,1,4", lines[1])
	assert.Equal(t, "1,0.5,2", lines[2])
}
