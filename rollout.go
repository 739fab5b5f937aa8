package molsearch

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/chemrl/molsearch/chem"
	"github.com/chemrl/molsearch/mcts"
)

// Rollout drives one search tree through whole episodes: root the tree, run a
// Search, record the visit distribution, advance to the chosen successor,
// repeat until the backend calls the molecule finished or the episode length
// cap is hit. One Rollout owns one tree and is not safe for concurrent use;
// run several Rollouts instead (see RunEpisodes).
type Rollout struct {
	problem chem.Problem
	eval    chem.Evaluator
	tree    *mcts.MCTS
	conf    Config
	log     zerolog.Logger
}

// NewRollout builds a controller over the given collaborators. Configuration
// problems surface here, never mid-episode.
func NewRollout(problem chem.Problem, eval chem.Evaluator, conf Config) (*Rollout, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	tree, err := mcts.New(problem, eval, conf.MCTS)
	if err != nil {
		return nil, err
	}
	return &Rollout{
		problem: problem,
		eval:    eval,
		tree:    tree,
		conf:    conf,
		log:     conf.Logger.With().Str("run", conf.Name).Logger(),
	}, nil
}

// Tree exposes the underlying search tree, mainly for diagnostics like ToDot.
func (r *Rollout) Tree() *mcts.MCTS { return r.tree }

// Run generates one episode rooted at the given state.
//
// A terminal root yields a zero-step episode carrying the terminal reward.
// Hitting the length cap truncates the episode and scores it with the
// evaluator's value estimate of the final state. A search that fails (the
// evaluator's retry budget exhausted, or a collaborator contract violation)
// returns the partial episode together with the error; the caller decides
// whether the steps are still worth training on.
func (r *Rollout) Run(ctx context.Context, root chem.State) (Episode, error) {
	ep := Episode{Name: r.conf.Name}
	r.tree.SetRoot(root)

	state := root
	deadEnd := false
	for len(ep.Steps) < r.conf.MaxEpisodeLength && !r.problem.IsTerminal(state) {
		best, err := r.tree.Search(ctx)
		if err != nil {
			return ep, errors.WithMessagef(err, "episode failed at step %d (%s)", len(ep.Steps), state.Smiles())
		}
		if ctx.Err() != nil {
			return ep, ctx.Err()
		}
		if best.Eq(state) {
			// the expander had nothing to offer; the engine reclassified the
			// state as a dead end
			deadEnd = true
			break
		}

		ep.Steps = append(ep.Steps, Step{
			State:      state,
			Successors: r.tree.RootChildren(),
			Policy:     r.tree.VisitDistribution(),
			Chosen:     best,
		})
		r.log.Debug().
			Int("step", len(ep.Steps)).
			Str("state", state.Smiles()).
			Str("chosen", best.Smiles()).
			Msg("advance")

		if err := r.tree.Advance(best); err != nil {
			return ep, err
		}
		state = best
	}

	switch {
	case r.problem.IsTerminal(state):
		ep.Reward = r.problem.Reward(state)
	case deadEnd:
		ep.Reward = r.conf.MCTS.DeadEndReward
	default:
		// length cap: score the unfinished molecule with the estimator's
		// value head
		ep.Truncated = true
		ev, err := r.eval.Evaluate(ctx, state)
		if err != nil {
			return ep, errors.WithMessagef(err, "scoring truncated episode at %s", state.Smiles())
		}
		ep.Reward = ev.Value
	}

	r.log.Info().
		Int("steps", ep.Len()).
		Str("final", state.Smiles()).
		Float32("reward", ep.Reward).
		Bool("truncated", ep.Truncated).
		Msg("episode done")
	return ep, nil
}
