package chem

import (
	"fmt"
	"hash/fnv"
)

// Fingerprint is a hash of a molecule's canonical encoding. Like a zobrist hash
// in board games, it is what the search tree keys children on, so two
// independently constructed states for the same molecule must fingerprint
// identically.
type Fingerprint uint64

// State is an immutable snapshot of a partially (or fully) built molecule.
//
// Identity is the canonical SMILES encoding: equality and hashing ignore how
// the state was reached, so transpositions in the construction graph collapse
// onto one another. The zero State is the empty molecule.
type State struct {
	smiles   string
	numAtoms int
	terminal bool
}

// NewState builds a state from a canonical SMILES encoding. The caller (the
// chemistry backend) is responsible for canonicalization; this package never
// rewrites the encoding.
func NewState(smiles string, numAtoms int, terminal bool) State {
	return State{smiles: smiles, numAtoms: numAtoms, terminal: terminal}
}

// Smiles returns the canonical encoding.
func (s State) Smiles() string { return s.smiles }

// NumAtoms returns the heavy-atom count.
func (s State) NumAtoms() int { return s.numAtoms }

// IsTerminal reports whether construction ends at this state.
func (s State) IsTerminal() bool { return s.terminal }

// IsEmpty reports whether this is the empty molecule.
func (s State) IsEmpty() bool { return s.smiles == "" }

// Eq compares canonical encodings, not object identity.
func (s State) Eq(other State) bool { return s.smiles == other.smiles }

// Hash returns the state's fingerprint (FNV-1a over the canonical encoding).
func (s State) Hash() Fingerprint {
	h := fnv.New64a()
	h.Write([]byte(s.smiles))
	return Fingerprint(h.Sum64())
}

func (s State) Format(f fmt.State, c rune) {
	switch c {
	case 'v':
		if s.terminal {
			fmt.Fprintf(f, "%s*", s.smiles)
			return
		}
		fmt.Fprint(f, s.smiles)
	case 's':
		fmt.Fprint(f, s.smiles)
	}
}
