package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateIdentity(t *testing.T) {
	a := NewState("CCO", 3, true)
	b := NewState("CCO", 3, true)
	c := NewState("CCC", 3, false)

	assert.True(t, a.Eq(b), "independently constructed states for the same molecule must compare equal")
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Eq(c))
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestStateAccessors(t *testing.T) {
	s := NewState("CC", 2, false)
	assert.Equal(t, "CC", s.Smiles())
	assert.Equal(t, 2, s.NumAtoms())
	assert.False(t, s.IsTerminal())
	assert.False(t, s.IsEmpty())

	var zero State
	assert.True(t, zero.IsEmpty())
}
