// +build unsafe

package mcts

import "github.com/chemrl/molsearch/chem"

// nodeFromNaughty gets the node given the handle.
func (t *MCTS) nodeFromNaughty(ptr naughty) *Node {
	retVal := &t.nodes[int(ptr)>>chunkShift][int(ptr)&chunkMask]
	return retVal
}

// Children returns the list of children handles of a node.
func (t *MCTS) Children(of naughty) []naughty {
	retVal := t.children[of]
	return retVal
}

// State returns the molecule state a node stands for.
func (t *MCTS) State(of naughty) chem.State {
	retVal := t.states[of]
	return retVal
}
