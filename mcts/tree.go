package mcts

import (
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	exprand "golang.org/x/exp/rand"

	"github.com/chemrl/molsearch/chem"
)

// Config is the structure to configure a search tree.
type Config struct {
	// PUCT is the exploration constant c weighting the prior term of the
	// selection score.
	PUCT float32

	// Budget is the number of simulations one Search call runs.
	Budget int32

	// Timeout optionally bounds one Search call by wall clock. Zero means no
	// wall-clock cutoff; the budget alone decides.
	Timeout time.Duration

	// Temperature scales the visit distribution when picking the actual move.
	// Zero selects greedily by visit count; larger values sample
	// proportionally to visits^(1/Temperature).
	Temperature float32

	// TreeReuse keeps the promoted subtree's accumulated statistics when the
	// root advances. Off, every move starts from a fresh node.
	TreeReuse bool

	// VirtualLoss is the value penalty applied to a node per in-flight
	// simulation. It only matters when Goroutines > 1.
	VirtualLoss float32

	// SignFlip negates the backpropagated value at each ply, for adversarial
	// alternating-turn settings. Molecule construction is single-agent, so it
	// defaults to off.
	SignFlip bool

	// Goroutines is how many simulations may traverse the tree concurrently
	// within one Search call.
	Goroutines int

	// RetryLimit is how many times a simulation aborted by an evaluator
	// failure is retried before the whole search fails.
	RetryLimit int

	// DeadEndReward is backpropagated for states the expander claims are
	// non-terminal but offers no successors for.
	DeadEndReward float32

	// Seed fixes the random source for reproducible searches. Zero seeds from
	// the clock.
	Seed int64
}

// DefaultConfig returns a serial, greedy, reuse-enabled configuration.
func DefaultConfig() Config {
	return Config{
		PUCT:        1.0,
		Budget:      1000,
		TreeReuse:   true,
		VirtualLoss: 1.0,
		Goroutines:  1,
		RetryLimit:  1,
	}
}

// IsValid reports whether the configuration passes Validate.
func (c Config) IsValid() bool { return c.Validate() == nil }

// Validate checks option combinations. It runs at construction time so a bad
// configuration can never surface mid-search.
func (c Config) Validate() error {
	switch {
	case c.Budget <= 0:
		return errors.Wrapf(ErrInvalidConfig, "simulation budget must be positive, got %d", c.Budget)
	case c.PUCT <= 0:
		return errors.Wrapf(ErrInvalidConfig, "exploration constant must be positive, got %v", c.PUCT)
	case c.Temperature < 0:
		return errors.Wrapf(ErrInvalidConfig, "temperature cannot be negative, got %v", c.Temperature)
	case c.Goroutines < 1:
		return errors.Wrapf(ErrInvalidConfig, "goroutines must be at least 1, got %d", c.Goroutines)
	case c.Goroutines > 1 && c.VirtualLoss <= 0:
		return errors.Wrapf(ErrInvalidConfig, "concurrent simulations require a positive virtual loss, got %v", c.VirtualLoss)
	case c.VirtualLoss < 0:
		return errors.Wrapf(ErrInvalidConfig, "virtual loss cannot be negative, got %v", c.VirtualLoss)
	case c.RetryLimit < 0:
		return errors.Wrapf(ErrInvalidConfig, "retry limit cannot be negative, got %d", c.RetryLimit)
	case c.Timeout < 0:
		return errors.Wrapf(ErrInvalidConfig, "timeout cannot be negative, got %v", c.Timeout)
	}
	return nil
}

// MCTS is the manager of one search tree. The goal is to build MCTS without
// much pointer chasing: nodes, states and child lists live in parallel arenas
// indexed by naughty handles. One MCTS value is exclusively owned by one
// rollout worker; trees are never shared across workers.
type MCTS struct {
	sync.RWMutex
	Config
	problem chem.Problem
	eval    chem.Evaluator
	rand    *rand.Rand
	src     exprand.Source

	// memory related fields. Nodes live in fixed-size chunks so a *Node taken
	// by one simulation stays valid while another grows the arena; the
	// childLock entries are pointers for the same reason.
	nodes     []*[chunkSize]Node
	nused     int
	states    []chem.State
	children  [][]naughty
	childLock []*sync.Mutex

	freelist  []naughty
	freeables []naughty // subtrees discarded by Advance, freed on the next Search

	root     naughty
	playouts int32 // atomic pls

	lumberjack
}

// New creates a search tree over the given collaborators. The configuration
// is validated here; a ConfigurationError never surfaces during a run.
func New(problem chem.Problem, eval chem.Evaluator, conf Config) (*MCTS, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if problem == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "nil problem")
	}
	if eval == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "nil evaluator")
	}
	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	t := &MCTS{
		Config:  conf,
		problem: problem,
		eval:    eval,
		rand:    rand.New(rand.NewSource(seed)),
		src:     exprand.NewSource(uint64(seed)),

		states:    make([]chem.State, 0, defaultArenaSize),
		children:  make([][]naughty, 0, defaultArenaSize),
		childLock: make([]*sync.Mutex, 0, defaultArenaSize),

		root:       nilNode,
		lumberjack: makeLumberJack(),
	}
	go t.start()
	return t, nil
}

// SetRoot resets the tree and roots it at the given state. Call it once per
// episode; Advance moves the root between episode steps.
func (t *MCTS) SetRoot(s chem.State) {
	t.Reset()
	t.Lock()
	t.root = t.allocLocked(s)
	t.Unlock()

	root := t.nodeFromNaughty(t.root)
	root.Activate()
	if t.problem.IsTerminal(s) {
		root.setValue(t.problem.Reward(s))
		root.markTerminal()
	}
}

// Root returns the state the tree is currently rooted at.
func (t *MCTS) Root() chem.State { return t.State(t.root) }

// Nodes returns the number of live slots in the node arena.
func (t *MCTS) Nodes() int {
	t.RLock()
	defer t.RUnlock()
	return t.nused
}

// Playouts returns the number of completed simulations since the root was
// last reset.
func (t *MCTS) Playouts() int32 { return atomic.LoadInt32(&t.playouts) }

// RootVisits returns the root's visit count: completed simulations plus any
// pre-existing visits retained by tree reuse.
func (t *MCTS) RootVisits() uint32 { return t.nodeFromNaughty(t.root).Visits() }

// RootValue returns the root's mean backpropagated value, or its raw
// estimator value (terminal reward for terminal roots) when unvisited.
func (t *MCTS) RootValue() float32 { return t.nodeFromNaughty(t.root).Mean() }

// newNode allocates an Active node for a successor state. Terminal successors
// cache the problem's terminal reward as their value; the evaluator's estimate
// of the parent only seeds non-terminal children.
func (t *MCTS) newNode(s chem.State, prior, value float32) naughty {
	t.Lock()
	n := t.allocLocked(s)
	t.Unlock()

	N := t.nodeFromNaughty(n)
	atomic.StoreUint32(&N.status, uint32(Active))
	atomic.StoreUint32(&N.prior, math32.Float32bits(prior))
	if t.problem.IsTerminal(s) {
		N.setValue(t.problem.Reward(s))
		N.markTerminal()
	} else {
		N.setValue(value)
	}
	return n
}

// allocLocked takes a node from the freelist, or grows the arenas. The tree
// lock must be held.
func (t *MCTS) allocLocked(s chem.State) naughty {
	if l := len(t.freelist); l > 0 {
		n := t.freelist[l-1]
		t.freelist = t.freelist[:l-1]
		t.states[int(n)] = s
		return n
	}

	id := naughty(t.nused)
	// Reset keeps the chunks around; only grow when the arena has never
	// reached this boundary before
	if t.nused>>chunkShift >= len(t.nodes) {
		t.nodes = append(t.nodes, new([chunkSize]Node))
	}
	N := &t.nodes[t.nused>>chunkShift][t.nused&chunkMask]
	N.tree = ptrFromTree(t)
	N.id = id
	t.nused++
	t.states = append(t.states, s)
	t.children = append(t.children, make([]naughty, 0, 8))
	t.childLock = append(t.childLock, new(sync.Mutex))
	return id
}

// free puts the node back into the freelist.
//
// There is no strong reference tracking, so use-after-free is possible; any
// call to free has to be done with careful consideration.
func (t *MCTS) free(n naughty) {
	t.children[int(n)] = t.children[int(n)][:0]
	t.freelist = append(t.freelist, n)
	t.states[int(n)] = chem.State{}
	N := &t.nodes[int(n)>>chunkShift][int(n)&chunkMask]
	N.reset()
}

// Advance makes next the new root. With TreeReuse on, the subtree rooted at
// the matching child is promoted with all its accumulated statistics and the
// discarded siblings are queued for the freelist; otherwise the arena is
// reset and next becomes a fresh root.
func (t *MCTS) Advance(next chem.State) error {
	if t.root == nilNode {
		return errors.New("advance: no root state set")
	}

	if !t.TreeReuse {
		t.SetRoot(next)
		return nil
	}

	oldRoot := t.root
	root := t.nodeFromNaughty(oldRoot)
	newRoot := root.findChild(next.Hash())
	if newRoot == nilNode {
		// the chosen state was never materialized under this root
		t.SetRoot(next)
		return nil
	}

	t.Lock()
	t.root = newRoot
	t.Unlock()
	t.cleanup(oldRoot, newRoot)
	return nil
}

// cleanup invalidates everything that is not under the new root. The actual
// freeing happens at the start of the next Search, when no simulation can
// hold a stale handle.
func (t *MCTS) cleanup(oldRoot, newRoot naughty) {
	children := t.Children(oldRoot)
	for _, kid := range children {
		if kid != newRoot {
			t.nodeFromNaughty(kid).Invalidate()
			t.freeables = append(t.freeables, kid)
			t.cleanChildren(kid)
		}
	}
	t.nodeFromNaughty(oldRoot).Invalidate()
	t.freeables = append(t.freeables, oldRoot)
	t.Lock()
	t.children[oldRoot] = t.children[oldRoot][:0]
	t.Unlock()
}

func (t *MCTS) cleanChildren(root naughty) {
	children := t.Children(root)
	for _, kid := range children {
		t.nodeFromNaughty(kid).Invalidate()
		t.freeables = append(t.freeables, kid)
		t.cleanChildren(kid) // recursively clean children
	}
	t.Lock()
	t.children[root] = t.children[root][:0] // empty it
	t.Unlock()
}

// RootChildren returns the root's successor states in their canonical
// (expansion) order.
func (t *MCTS) RootChildren() []chem.State {
	children := t.Children(t.root)
	retVal := make([]chem.State, 0, len(children))
	for _, kid := range children {
		if !t.nodeFromNaughty(kid).IsActive() {
			continue
		}
		retVal = append(retVal, t.State(kid))
	}
	return retVal
}

// VisitDistribution returns the root children's visit counts normalized to
// sum to 1, keyed by state fingerprint. This is the policy target handed
// upstream for training.
func (t *MCTS) VisitDistribution() map[chem.Fingerprint]float32 {
	children := t.Children(t.root)
	retVal := make(map[chem.Fingerprint]float32, len(children))
	var sum float32
	for _, kid := range children {
		child := t.nodeFromNaughty(kid)
		if !child.IsActive() {
			continue
		}
		v := float32(child.Visits())
		retVal[t.State(kid).Hash()] = v
		sum += v
	}
	if sum > 0 {
		for k := range retVal {
			retVal[k] /= sum
		}
	}
	return retVal
}

// Reset empties the tree for reuse, keeping the allocated arenas.
func (t *MCTS) Reset() {
	t.Lock()
	defer t.Unlock()

	t.freelist = t.freelist[:0]
	t.freeables = t.freeables[:0]
	for i := 0; i < t.nused; i++ {
		t.nodes[i>>chunkShift][i&chunkMask].reset()
	}

	// the arenas keep their chunks and capacity; the live lengths shrink in
	// lockstep so handles minted after the reset line up again
	t.nused = 0
	t.states = t.states[:0]
	t.children = t.children[:0]
	t.childLock = t.childLock[:0]
	t.root = nilNode
	atomic.StoreInt32(&t.playouts, 0)
	runtime.GC()
}
