package mcts

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/sampleuv"
	"gorgonia.org/vecf32"

	"github.com/chemrl/molsearch/chem"
)

/*
Here lies the majority of the search code, while node.go and tree.go handle
the data structure stuff.

One simulation is one SELECT -> EXPAND -> EVALUATE -> BACKPROPAGATE pass
starting and ending at the current root. Search runs the configured budget of
simulations (possibly concurrently under virtual loss), then picks the actual
move from the root's visit statistics.
*/

// Search runs the simulation budget from the current root and returns the
// chosen successor state.
//
// A search rooted at a terminal state returns that state unchanged, with the
// terminal reward cached on the root and zero evaluator calls made. A search
// cancelled via ctx stops between simulations and still returns the best move
// found so far; only evaluator failures that survive the retry limit and
// collaborator contract violations surface as errors. An aborted simulation
// never leaves partial visit or value sums behind.
func (t *MCTS) Search(ctx context.Context) (retVal chem.State, err error) {
	if t.root == nilNode {
		return chem.State{}, errors.New("search: no root state set")
	}

	// anything Advance discarded can be reclaimed now: no simulation is in
	// flight between Search calls
	t.Lock()
	for _, f := range t.freeables {
		t.free(f)
	}
	t.freeables = t.freeables[:0]
	t.Unlock()

	rootState := t.State(t.root)
	root := t.nodeFromNaughty(t.root)
	t.log("SEARCH %v, budget %d", rootState, t.Budget)

	if t.problem.IsTerminal(rootState) {
		root.setValue(t.problem.Reward(rootState))
		root.markTerminal()
		return rootState, nil
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	var iter int32
	if t.Goroutines > 1 {
		err = t.searchParallel(ctx, &iter)
	} else {
		err = t.searchSerial(ctx, &iter)
	}
	if err != nil {
		return chem.State{}, err
	}
	t.log("search done: %d iterations, %d playouts, %d nodes", iter, t.Playouts(), t.Nodes())

	children := t.Children(t.root)
	if len(children) == 0 {
		// dead-end root, or cancelled before the first simulation could
		// expand it: the root state itself is the best answer there is
		return rootState, nil
	}

	var best naughty
	if t.Temperature > 0 {
		best = t.sampleChild(children)
	} else {
		best = t.bestChild(children)
	}
	return t.State(best), nil
}

func (t *MCTS) searchSerial(ctx context.Context, iter *int32) error {
	for *iter < t.Budget {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := t.simulateWithRetry(ctx); err != nil {
			return err
		}
		*iter++
	}
	return nil
}

// searchParallel runs simulations over a pool of goroutines sharing the tree.
// Virtual loss keeps the concurrent selections from collapsing onto the same
// path; the first error cancels everything else.
func (t *MCTS) searchParallel(ctx context.Context, iter *int32) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	for i := 0; i < t.Goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				if atomic.AddInt32(iter, 1) > t.Budget {
					return
				}
				if err := t.simulateWithRetry(ctx); err != nil {
					errOnce.Do(func() { firstErr = err })
					cancel()
					return
				}
			}
		}()
	}
	wg.Wait()
	return firstErr
}

// simulateWithRetry reruns a simulation aborted by an evaluator failure up to
// RetryLimit times. Contract violations are never retried, and a simulation
// aborted by cancellation is not an error - its effects are already rolled
// back.
func (t *MCTS) simulateWithRetry(ctx context.Context) error {
	var last error
	for attempt := 0; attempt <= t.RetryLimit; attempt++ {
		err := t.simulate(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		if _, ok := errors.Cause(err).(*InvalidStateError); ok {
			return err
		}
		t.log("simulation attempt %d failed: %v", attempt, err)
		last = err
	}
	if ee, ok := errors.Cause(last).(*EvaluatorError); ok {
		ee.Attempts = t.RetryLimit + 1
		return last
	}
	return last
}

// simulate runs one full SELECT -> EXPAND -> EVALUATE -> BACKPROPAGATE pass.
// Virtual loss is applied to every node on the way down and lifted during
// backpropagation; when the pass aborts, the virtual losses are lifted
// without touching any visit or value sums.
func (t *MCTS) simulate(ctx context.Context) error {
	path := make([]naughty, 1, 32)
	path[0] = t.root
	t.nodeFromNaughty(t.root).addVirtualLoss()

	// SELECT: descend until a node that has no materialized children, or a
	// terminal
	n := t.nodeFromNaughty(t.root)
	for n.IsExpanded() && !n.IsTerminal() {
		kid := n.Select()
		if kid == nilNode {
			break
		}
		t.nodeFromNaughty(kid).addVirtualLoss()
		path = append(path, kid)
		n = t.nodeFromNaughty(kid)
	}

	// EXPAND and EVALUATE
	value, err := t.expandAndEvaluate(ctx, path[len(path)-1])
	if err != nil {
		for _, h := range path {
			t.nodeFromNaughty(h).undoVirtualLoss()
		}
		return err
	}

	// BACKPROPAGATE, strictly along this simulation's own selection path
	for i := len(path) - 1; i >= 0; i-- {
		N := t.nodeFromNaughty(path[i])
		N.Update(value)
		N.undoVirtualLoss()
		if t.SignFlip {
			value = -value
		}
	}
	t.incrementPlayout()
	return nil
}

// expandAndEvaluate materializes the leaf's children and asks the estimator
// for a value and priors. Terminal leaves skip both and return the cached
// reward. Expansion of a node is serialized on its own lock, never on an
// engine-wide one.
func (t *MCTS) expandAndEvaluate(ctx context.Context, leaf naughty) (value float32, err error) {
	n := t.nodeFromNaughty(leaf)
	if n.IsTerminal() {
		return n.Value(), nil
	}

	t.RLock()
	lock := t.childLock[int(leaf)]
	t.RUnlock()
	lock.Lock()
	defer lock.Unlock()

	if n.IsTerminal() {
		return n.Value(), nil
	}
	if n.IsExpanded() {
		// a concurrent simulation got here first; its stored estimate stands
		return n.Value(), nil
	}

	// terminal nodes are marked and priced when minted (SetRoot, newNode), so
	// any state that gets here is expandable
	state := t.State(leaf)
	succ, err := t.problem.Expand(state)
	if err != nil {
		return 0, errors.WithStack(&InvalidStateError{State: state, Msg: "expander failed", Err: err})
	}
	if len(succ) == 0 {
		// claimed non-terminal but nowhere to go: reclassify as a dead end
		t.log("dead end at %v", state)
		n.setValue(t.DeadEndReward)
		n.markTerminal()
		return t.DeadEndReward, nil
	}
	// canonical ordering, so priors, tie-breaks and policy vectors never
	// depend on map iteration order
	sort.Slice(succ, func(i, j int) bool { return succ[i].Smiles() < succ[j].Smiles() })

	ev, err := t.eval.Evaluate(ctx, state)
	if err != nil {
		return 0, errors.WithStack(&EvaluatorError{State: state, Attempts: 1, Err: err})
	}

	priors := make([]float32, len(succ))
	var mass float32
	for i, s := range succ {
		p := ev.Priors[s.Hash()]
		if p < 0 || math32.IsNaN(p) || math32.IsInf(p, 0) {
			return 0, errors.WithStack(&EvaluatorError{
				State: state, Attempts: 1,
				Err: errors.Errorf("prior for %s is %v, want a finite non-negative weight", s.Smiles(), p),
			})
		}
		priors[i] = p
		mass += p
	}
	if mass > math32.SmallestNonzeroFloat32 {
		vecf32.Scale(priors, 1/mass)
	} else {
		uniform := 1 / float32(len(succ))
		for i := range priors {
			priors[i] = uniform
		}
	}

	if t.Nodes()+len(succ) > MAXTREESIZE {
		// out of arena: evaluate but leave the node unexpanded
		n.setValue(ev.Value)
		return ev.Value, nil
	}
	for i, s := range succ {
		kid := t.newNode(s, priors[i], ev.Value)
		n.AddChild(kid)
	}
	n.setValue(ev.Value)
	n.setExpanded()
	return ev.Value, nil
}

func (t *MCTS) incrementPlayout() { atomic.AddInt32(&t.playouts, 1) }

// bestChild picks greedily by visit count; ties break on prior, then on the
// canonical ordering of the children.
func (t *MCTS) bestChild(children []naughty) naughty {
	best := nilNode
	var bestVisits uint32
	var bestPrior float32
	for _, kid := range children {
		child := t.nodeFromNaughty(kid)
		if !child.IsActive() {
			continue
		}
		visits := child.Visits()
		prior := child.Prior()
		if best == nilNode || visits > bestVisits || (visits == bestVisits && prior > bestPrior) {
			best, bestVisits, bestPrior = kid, visits, prior
		}
	}
	return best
}

// sampleChild draws a child proportionally to visits^(1/Temperature). The
// draw comes from the tree's seeded source, so a fixed seed reproduces the
// choice.
func (t *MCTS) sampleChild(children []naughty) naughty {
	live := make([]naughty, 0, len(children))
	weights := make([]float64, 0, len(children))
	var mass float64
	for _, kid := range children {
		child := t.nodeFromNaughty(kid)
		if !child.IsActive() {
			continue
		}
		w := float64(math32.Pow(float32(child.Visits()), 1/t.Temperature))
		live = append(live, kid)
		weights = append(weights, w)
		mass += w
	}
	if len(live) == 0 {
		return nilNode
	}
	if mass == 0 {
		return t.bestChild(children)
	}

	sampler := sampleuv.NewWeighted(weights, t.src)
	i, ok := sampler.Take()
	if !ok {
		return t.bestChild(children)
	}
	return live[i]
}
