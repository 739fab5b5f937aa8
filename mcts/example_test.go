package mcts_test

import (
	"context"
	"fmt"

	"github.com/chemrl/molsearch/chem/chain"
	"github.com/chemrl/molsearch/mcts"
)

func Example() {
	b, err := chain.New(6, 4)
	if err != nil {
		panic(err)
	}

	conf := mcts.DefaultConfig()
	conf.Budget = 256
	conf.Seed = 1

	tree, err := mcts.New(b, chain.Heuristic{B: b}, conf)
	if err != nil {
		panic(err)
	}

	state := b.Root()
	tree.SetRoot(state)
	for !b.IsTerminal(state) {
		next, err := tree.Search(context.Background())
		if err != nil {
			panic(err)
		}
		if next.Eq(state) {
			break
		}
		if err := tree.Advance(next); err != nil {
			panic(err)
		}
		state = next
	}
	fmt.Printf("built %s, reward %.2f\n", state.Smiles(), b.Reward(state))

	// Output:
	// built CCCCO, reward 1.00
}
