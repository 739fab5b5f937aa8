package molsearch

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// PolicyVector flattens a step's visit distribution into a fixed-width
// vector, one slot per successor in canonical order. Successor sets wider
// than the action space are clipped and the remaining mass renormalized, so
// the vector always sums to 1 (or is all zero for a step with no policy).
func PolicyVector(step Step, actionSpace int) []float32 {
	vec := make([]float32, actionSpace)
	var mass float32
	for i, s := range step.Successors {
		if i >= actionSpace {
			break
		}
		p := step.Policy[s.Hash()]
		vec[i] = p
		mass += p
	}
	if mass > 0 && mass < 1 {
		vecf32.Scale(vec, 1/mass)
	}
	return vec
}

// Batch packs episodes with the configuration's encoder and action space.
func (c Config) Batch(episodes []Episode) (xs, policies, values *tensor.Dense, err error) {
	return PrepareBatch(episodes, c.Encoder, c.ActionSpace)
}

// PrepareBatch packs episodes into the three dense tensors a trainer
// consumes: encoded states, policy targets and value targets. Every step of
// an episode takes the episode's final reward as its value target. Failed or
// zero-step episodes contribute nothing.
func PrepareBatch(episodes []Episode, enc StateEncoder, actionSpace int) (xs, policies, values *tensor.Dense, err error) {
	if enc == nil {
		return nil, nil, nil, errors.New("prepare batch: nil state encoder")
	}
	if actionSpace <= 0 {
		return nil, nil, nil, errors.Errorf("prepare batch: action space must be positive, got %d", actionSpace)
	}

	var rows int
	for _, ep := range episodes {
		rows += ep.Len()
	}
	if rows == 0 {
		return nil, nil, nil, errors.New("prepare batch: no steps to encode")
	}

	var first Step
	for _, ep := range episodes {
		if ep.Len() > 0 {
			first = ep.Steps[0]
			break
		}
	}
	features := len(enc(first.State))
	if features == 0 {
		return nil, nil, nil, errors.New("prepare batch: encoder produced an empty feature vector")
	}

	xsData := make([]float32, 0, rows*features)
	policyData := make([]float32, 0, rows*actionSpace)
	valueData := make([]float32, 0, rows)

	for _, ep := range episodes {
		for _, step := range ep.Steps {
			feat := enc(step.State)
			if len(feat) != features {
				return nil, nil, nil, errors.Errorf("prepare batch: encoder width changed from %d to %d at %s",
					features, len(feat), step.State.Smiles())
			}
			xsData = append(xsData, feat...)
			policyData = append(policyData, PolicyVector(step, actionSpace)...)
			valueData = append(valueData, ep.Reward)
		}
	}

	xs = tensor.New(tensor.WithShape(rows, features), tensor.WithBacking(xsData))
	policies = tensor.New(tensor.WithShape(rows, actionSpace), tensor.WithBacking(policyData))
	values = tensor.New(tensor.WithShape(rows), tensor.WithBacking(valueData))
	return xs, policies, values, nil
}
