package molsearch_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"

	"github.com/chemrl/molsearch"
	"github.com/chemrl/molsearch/chem"
)

// atomCounts is a toy featurization: heavy atom count and carbon count.
func atomCounts(s chem.State) []float32 {
	return []float32{
		float32(s.NumAtoms()),
		float32(strings.Count(s.Smiles(), "C")),
	}
}

func makeStep(root string, chosen int, probs []float32) molsearch.Step {
	succ := []chem.State{
		chem.NewState(root+"C", len(root)+1, false),
		chem.NewState(root+"O", len(root)+1, true),
	}
	policy := make(map[chem.Fingerprint]float32, len(succ))
	for i, s := range succ {
		policy[s.Hash()] = probs[i]
	}
	return molsearch.Step{
		State:      chem.NewState(root, len(root), false),
		Successors: succ,
		Policy:     policy,
		Chosen:     succ[chosen],
	}
}

func TestPolicyVector(t *testing.T) {
	step := makeStep("C", 0, []float32{0.75, 0.25})

	got := molsearch.PolicyVector(step, 4)
	want := []float32{0.75, 0.25, 0, 0}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestPolicyVectorClipsAndRenormalizes(t *testing.T) {
	step := makeStep("C", 0, []float32{0.75, 0.25})

	got := molsearch.PolicyVector(step, 1)
	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, float64(got[0]), 1e-6, "the surviving mass is renormalized")
}

func TestPolicyVectorEmptyPolicy(t *testing.T) {
	step := molsearch.Step{State: chem.NewState("C", 1, false)}
	got := molsearch.PolicyVector(step, 3)
	assert.Empty(t, cmp.Diff([]float32{0, 0, 0}, got))
}

func TestPrepareBatch(t *testing.T) {
	eps := []molsearch.Episode{
		{
			Steps:  []molsearch.Step{makeStep("C", 0, []float32{0.75, 0.25})},
			Reward: 1.0,
		},
		{
			Steps: []molsearch.Step{
				makeStep("C", 0, []float32{0.5, 0.5}),
				makeStep("CC", 1, []float32{0.25, 0.75}),
			},
			Reward: 0.5,
		},
		{}, // a failed episode contributes nothing
	}

	xs, policies, values, err := molsearch.PrepareBatch(eps, atomCounts, 4)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{3, 2}, xs.Shape())
	assert.Equal(t, tensor.Shape{3, 4}, policies.Shape())
	assert.Equal(t, tensor.Shape{3}, values.Shape())

	assert.Empty(t, cmp.Diff([]float32{1, 0.5, 0.5}, values.Data().([]float32)))
	assert.Empty(t, cmp.Diff([]float32{1, 1, 1, 1, 2, 2}, xs.Data().([]float32)))

	policyData := policies.Data().([]float32)
	assert.Empty(t, cmp.Diff([]float32{0.75, 0.25, 0, 0}, policyData[:4]))
	assert.Empty(t, cmp.Diff([]float32{0.25, 0.75, 0, 0}, policyData[8:]))
}

func TestPrepareBatchRejectsBadInput(t *testing.T) {
	good := []molsearch.Episode{{
		Steps:  []molsearch.Step{makeStep("C", 0, []float32{1, 0})},
		Reward: 1,
	}}

	_, _, _, err := molsearch.PrepareBatch(good, nil, 4)
	assert.Error(t, err, "nil encoder")

	_, _, _, err = molsearch.PrepareBatch(good, atomCounts, 0)
	assert.Error(t, err, "zero action space")

	_, _, _, err = molsearch.PrepareBatch(nil, atomCounts, 4)
	assert.Error(t, err, "no steps")

	ragged := func(s chem.State) []float32 {
		return make([]float32, s.NumAtoms())
	}
	two := []molsearch.Episode{{
		Steps: []molsearch.Step{
			makeStep("C", 0, []float32{1, 0}),
			makeStep("CC", 0, []float32{1, 0}),
		},
		Reward: 1,
	}}
	_, _, _, err = molsearch.PrepareBatch(two, ragged, 4)
	assert.Error(t, err, "inconsistent encoder width")
}
