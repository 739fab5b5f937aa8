// Command molsearch runs guided molecule construction episodes over the toy
// chain backend and reports reward statistics. It is the end-to-end smoke
// test for the search core; swap the backend and the estimator for real ones
// to search real chemistry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/chemrl/molsearch"
	"github.com/chemrl/molsearch/chem/chain"
)

var (
	episodes = flag.Int("episodes", 16, "number of episodes to run")
	workers  = flag.Int("workers", 4, "concurrent episode workers")
	budget   = flag.Int("budget", 200, "simulations per move")
	maxAtoms = flag.Int("maxatoms", 10, "atom budget per molecule")
	target   = flag.Int("target", 6, "preferred carbon count")
	temp     = flag.Float64("temperature", 1.0, "move sampling temperature (0 = greedy)")
	seed     = flag.Int64("seed", 0, "random seed (0 = from the clock)")
	csvOut   = flag.String("csv", "", "write per-episode statistics to this file")
	verbose  = flag.Bool("v", false, "log every move")
)

func main() {
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	builder, err := chain.New(*maxAtoms, *target)
	if err != nil {
		log.Fatal().Err(err).Msg("bad backend parameters")
	}

	conf := molsearch.DefaultConfig()
	conf.Name = "chain"
	conf.MaxEpisodeLength = *maxAtoms
	conf.Logger = log
	conf.MCTS.Budget = int32(*budget)
	conf.MCTS.Temperature = float32(*temp)
	conf.MCTS.Seed = *seed

	eps, err := molsearch.RunEpisodes(context.Background(),
		builder, chain.Heuristic{B: builder}, builder.Root(),
		conf, *episodes, *workers)
	if err != nil {
		log.Error().Err(err).Msg("some episodes failed")
	}

	stats := molsearch.TrackEpisodes(eps)
	log.Info().
		Int("episodes", len(eps)).
		Int("truncated", stats.Truncated).
		Float64("mean_reward", stats.MeanReward()).
		Float64("stddev_reward", stats.StdDevReward()).
		Float64("mean_steps", stats.MeanLength()).
		Msg("run complete")

	for _, ep := range eps {
		fmt.Printf("%-12s %-16s reward %.3f steps %d\n", ep.Name, ep.Final().Smiles(), ep.Reward, ep.Len())
	}

	if *csvOut != "" {
		f, err := os.Create(*csvOut)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot create csv")
		}
		defer f.Close()
		if err := stats.Dump(f); err != nil {
			log.Fatal().Err(err).Msg("cannot write csv")
		}
	}
}
