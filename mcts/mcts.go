// Package mcts drives Monte-Carlo tree search over molecular graph
// construction. It builds partial molecules incrementally, biases exploration
// with a learned value/policy estimator (chem.Evaluator), and stays correct
// when several in-flight simulations share one visitation tree under virtual
// loss. The tree is an arena of nodes addressed by integer handles; promoting
// a subtree to be the new root after a move is an O(1) re-pointing of handles,
// never a deep copy.
package mcts

const (
	// MAXTREESIZE caps the number of nodes a single tree may hold - at about
	// 48 bytes per node that is roughly 1.2GB of memory.
	MAXTREESIZE = 25000000

	defaultArenaSize = 12288

	// nodes are arena-allocated in fixed chunks; a chunk's backing array never
	// moves, so a *Node stays valid while the arena grows
	chunkShift = 11
	chunkSize  = 1 << chunkShift
	chunkMask  = chunkSize - 1
)
