// Package molsearch generates guided molecule construction episodes: a
// Rollout steps an MCTS engine through a chemistry backend under a learned
// (or heuristic) estimator, and the resulting episodes are packed into
// training tensors for whatever sits upstream.
package molsearch

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/chemrl/molsearch/chem"
	"github.com/chemrl/molsearch/mcts"
)

// StateEncoder turns a molecule state into the feature vector the upstream
// trainer consumes. The width must be the same for every state.
type StateEncoder func(s chem.State) []float32

// Config configures episode generation.
type Config struct {
	// Name identifies the run in logs and statistics dumps.
	Name string

	// MCTS configures the per-worker search tree.
	MCTS mcts.Config

	// MaxEpisodeLength is the hard cutoff on construction steps per episode.
	// An episode that hits it is truncated, which is a normal outcome rather
	// than an error.
	MaxEpisodeLength int

	// ActionSpace is the fixed width of the policy vectors handed to the
	// trainer. Successor sets larger than this are clipped at encoding time.
	ActionSpace int

	// Encoder featurizes states for PrepareBatch. Only needed when episodes
	// are encoded for training.
	Encoder StateEncoder

	// Logger receives progress events. Defaults to a no-op logger.
	Logger zerolog.Logger
}

// DefaultConfig returns a single-worker configuration with the engine
// defaults and logging off.
func DefaultConfig() Config {
	return Config{
		Name:             "molsearch",
		MCTS:             mcts.DefaultConfig(),
		MaxEpisodeLength: 64,
		ActionSpace:      32,
		Logger:           zerolog.Nop(),
	}
}

// Validate checks the configuration, delegating the engine options to the
// engine's own validation.
func (c Config) Validate() error {
	if c.MaxEpisodeLength <= 0 {
		return errors.Wrapf(mcts.ErrInvalidConfig, "max episode length must be positive, got %d", c.MaxEpisodeLength)
	}
	if c.ActionSpace < 0 {
		return errors.Wrapf(mcts.ErrInvalidConfig, "action space cannot be negative, got %d", c.ActionSpace)
	}
	return c.MCTS.Validate()
}
