// +build !unsafe

package mcts

import "github.com/chemrl/molsearch/chem"

// nodeFromNaughty gets the node given the handle.
func (t *MCTS) nodeFromNaughty(ptr naughty) *Node {
	t.RLock()
	chunk := t.nodes[int(ptr)>>chunkShift]
	t.RUnlock()
	retVal := &chunk[int(ptr)&chunkMask]
	return retVal
}

// Children returns the list of children handles of a node.
func (t *MCTS) Children(of naughty) []naughty {
	t.RLock()
	retVal := t.children[of]
	t.RUnlock()
	return retVal
}

// State returns the molecule state a node stands for.
func (t *MCTS) State(of naughty) chem.State {
	t.RLock()
	retVal := t.states[of]
	t.RUnlock()
	return retVal
}
