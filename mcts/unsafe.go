package mcts

import "unsafe"

// Nodes carry a uintptr back to their tree instead of a *MCTS so the Node
// struct stays pointer-free for the garbage collector.

func treeFromUintptr(ptr uintptr) *MCTS { return (*MCTS)(unsafe.Pointer(ptr)) }

func ptrFromTree(t *MCTS) uintptr { return uintptr(unsafe.Pointer(t)) }
