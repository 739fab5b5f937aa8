package mcts

// naughty is essentially *Node - an index into the tree's node arena. Using a
// handle instead of a raw pointer keeps the tree relocatable and the nodes
// free of GC-visible cycles.
type naughty int

func (n naughty) isValid() bool { return n >= 0 }

const (
	nilNode naughty = -1
)
