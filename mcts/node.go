package mcts

import (
	"fmt"
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/chemrl/molsearch/chem"
)

type Status uint32

const (
	Invalid Status = iota
	Active
	Pruned
)

func (a Status) String() string {
	switch a {
	case Invalid:
		return "Invalid"
	case Active:
		return "Active"
	case Pruned:
		return "Pruned"
	}
	return "UNKNOWN STATUS"
}

// Node is one vertex of the visitation tree. All counters are a single shared
// mutable resource under concurrent simulations, so every field is accessed
// atomically - there is no per-node mutex and no engine-wide lock on the hot
// path. The float-valued statistics are stored as float32 bits in uint32s and
// accumulated with CAS loops.
type Node struct {

	// atomic access only
	visits   uint32 // N(s,a): backpropagation passes through this node
	status   uint32
	expanded uint32 // 1 once children have been materialized
	terminal uint32 // 1 for terminal states and reclassified dead ends
	vloss    uint32 // in-flight simulations currently traversing this node

	// float32s stored as bits
	totalValue uint32 // W(s,a): running sum of backpropagated returns
	prior      uint32 // P(s,a): estimator prior assigned at expansion
	value      uint32 // raw estimator value of this state (terminal reward for terminal nodes)

	// naughty things
	id   naughty // index of this node in the arena
	tree uintptr // pointer to the tree
}

func (n *Node) Format(s fmt.State, c rune) {
	t := treeFromUintptr(n.tree)
	fmt.Fprintf(s, "{NodeID: %v State: %v Prior: %v Value: %v Visits: %v Mean: %v Status: %v}",
		n.id, t.State(n.id), n.Prior(), n.Value(), n.Visits(), n.Mean(), Status(atomic.LoadUint32(&n.status)))
}

// AddChild adds a child to the node.
func (n *Node) AddChild(child naughty) {
	tree := treeFromUintptr(n.tree)
	tree.Lock()
	tree.children[n.id] = append(tree.children[n.id], child)
	tree.Unlock()
}

// IsNotVisited returns true if this node hasn't ever been visited.
func (n *Node) IsNotVisited() bool {
	visits := atomic.LoadUint32(&n.visits)
	return visits == 0
}

// Update applies one backpropagation pass: the visit count goes up by one and
// value joins the running sum.
func (n *Node) Update(value float32) {
	atomic.AddUint32(&n.visits, 1)
	n.accumulate(value)
}

// Visits returns N(s,a).
func (n *Node) Visits() uint32 { return atomic.LoadUint32(&n.visits) }

// Prior returns the estimator prior assigned when the parent expanded.
func (n *Node) Prior() float32 {
	v := atomic.LoadUint32(&n.prior)
	return math32.Float32frombits(v)
}

// Value returns the raw estimator value of this node's state. For terminal
// nodes it is the cached terminal reward.
func (n *Node) Value() float32 {
	v := atomic.LoadUint32(&n.value)
	return math32.Float32frombits(v)
}

// TotalValue returns W(s,a), the sum of backpropagated returns.
func (n *Node) TotalValue() float32 {
	v := atomic.LoadUint32(&n.totalValue)
	return math32.Float32frombits(v)
}

// Mean returns W/N when the node has been visited, and the raw estimator
// value otherwise (the configured default for unvisited nodes).
func (n *Node) Mean() float32 {
	visits := n.Visits()
	if visits == 0 {
		return n.Value()
	}
	return n.TotalValue() / float32(visits)
}

// IsExpanded returns true once the node's children have been materialized.
func (n *Node) IsExpanded() bool { return atomic.LoadUint32(&n.expanded) == 1 }

func (n *Node) setExpanded() { atomic.StoreUint32(&n.expanded, 1) }

// IsTerminal returns true for terminal states, including non-terminal states
// the engine reclassified as dead ends.
func (n *Node) IsTerminal() bool { return atomic.LoadUint32(&n.terminal) == 1 }

func (n *Node) markTerminal() { atomic.StoreUint32(&n.terminal, 1) }

func (n *Node) setValue(v float32) { atomic.StoreUint32(&n.value, math32.Float32bits(v)) }

// Activate activates the node.
func (n *Node) Activate() { atomic.StoreUint32(&n.status, uint32(Active)) }

// Prune prunes the node.
func (n *Node) Prune() { atomic.StoreUint32(&n.status, uint32(Pruned)) }

// Invalidate invalidates the node.
func (n *Node) Invalidate() { atomic.StoreUint32(&n.status, uint32(Invalid)) }

// IsValid returns true if it's valid.
func (n *Node) IsValid() bool {
	status := atomic.LoadUint32(&n.status)
	return Status(status) != Invalid
}

// IsActive returns true if the node is active.
func (n *Node) IsActive() bool {
	status := atomic.LoadUint32(&n.status)
	return Status(status) == Active
}

// IsPruned returns true if the node has been pruned.
func (n *Node) IsPruned() bool {
	status := atomic.LoadUint32(&n.status)
	return Status(status) == Pruned
}

// VirtualLosses returns how many simulations are currently in flight through
// this node.
func (n *Node) VirtualLosses() uint32 { return atomic.LoadUint32(&n.vloss) }

func (n *Node) addVirtualLoss() { atomic.AddUint32(&n.vloss, 1) }

func (n *Node) undoVirtualLoss() { atomic.AddUint32(&n.vloss, ^uint32(0)) }

// ID returns the node's arena index.
func (n *Node) ID() int { return int(n.id) }

// Select picks the child maximizing the selection score
//
//	U(s,a) = Q(s,a) + c * P(s,a) * sqrt(parent visits) / (1 + child visits)
//
// where Q of an unvisited child defaults to the parent's raw estimator value
// (first play urgency). In-flight simulations count as lost visits, so
// concurrent selection spreads over siblings instead of collapsing onto one
// path. Ties break toward the child with fewer visits, then toward the
// earlier child in the canonical successor ordering, keeping search
// reproducible under a fixed seed.
func (n *Node) Select() naughty {
	tree := treeFromUintptr(n.tree)
	children := tree.Children(n.id)

	fpu := n.Value()
	parentVisits := float32(n.Visits() + n.VirtualLosses())
	numerator := math32.Sqrt(parentVisits)

	best := nilNode
	bestValue := math32.Inf(-1)
	var bestVisits uint32

	for _, kid := range children {
		child := tree.nodeFromNaughty(kid)
		if !child.IsActive() {
			continue
		}

		visits := child.Visits()
		vl := child.VirtualLosses()
		qsa := fpu
		if visits+vl > 0 {
			qsa = (child.TotalValue() - float32(vl)*tree.VirtualLoss) / float32(visits+vl)
		}
		psa := child.Prior()
		denominator := 1.0 + float32(visits+vl)
		usa := qsa + tree.PUCT*psa*(numerator/denominator)

		switch {
		case usa > bestValue:
			best, bestValue, bestVisits = kid, usa, visits
		case usa == bestValue && visits < bestVisits:
			// children are iterated in canonical order, so on a full tie the
			// earlier child stands
			best, bestVisits = kid, visits
		}
	}
	return best
}

// accumulate adds to the running value sum atomically. Concurrent
// backpropagation passes may interleave here, hence the CAS loop.
func (n *Node) accumulate(value float32) {
	for {
		old := atomic.LoadUint32(&n.totalValue)
		sum := math32.Float32bits(math32.Float32frombits(old) + value)
		if atomic.CompareAndSwapUint32(&n.totalValue, old, sum) {
			return
		}
	}
}

// countDescendants counts the node's children and grandchildren recursively.
func (n *Node) countDescendants() (retVal int) {
	tree := treeFromUintptr(n.tree)
	children := tree.Children(n.id)
	for _, kid := range children {
		child := tree.nodeFromNaughty(kid)
		if child.IsActive() {
			retVal += child.countDescendants()
		}
		retVal++ // plus the child itself
	}
	return
}

// findChild finds the child whose state fingerprint matches fp.
func (n *Node) findChild(fp chem.Fingerprint) naughty {
	tree := treeFromUintptr(n.tree)
	children := tree.Children(n.id)
	for _, kid := range children {
		if tree.State(kid).Hash() == fp {
			return kid
		}
	}
	return nilNode
}

func (n *Node) reset() {
	atomic.StoreUint32(&n.visits, 0)
	atomic.StoreUint32(&n.status, 0)
	atomic.StoreUint32(&n.expanded, 0)
	atomic.StoreUint32(&n.terminal, 0)
	atomic.StoreUint32(&n.vloss, 0)
	atomic.StoreUint32(&n.totalValue, 0)
	atomic.StoreUint32(&n.prior, 0)
	atomic.StoreUint32(&n.value, 0)
}
