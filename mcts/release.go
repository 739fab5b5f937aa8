// +build !debug

package mcts

// lumberjack is the in-tree trace logger. In release builds it compiles away
// to nothing; build with -tags debug to capture a full search trace.
type lumberjack struct{}

func makeLumberJack() lumberjack { return lumberjack{} }

func (l lumberjack) start() {}

func (l lumberjack) log(msg string, args ...interface{}) {}

// Log returns the accumulated search trace.
func (l lumberjack) Log() string { return "" }

func (l lumberjack) Reset() {}
