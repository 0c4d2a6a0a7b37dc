// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"github.com/wren-vcs/wren/modules/plumbing"
)

// ReplacementMap is the mapping CommitId -> set of CommitId described by
// spec.md §3/§4.1. The empty set encodes abandoned; a singleton encodes
// a linear rewrite; a set of size >= 2 encodes divergent rewrite.
//
// record_abandon does not override an existing rewrite: per the
// reference semantics in §4.1, if any successors are already recorded
// for a commit, it is treated as rewritten even after record_abandon is
// also called on it. abandoned tracks the call separately so callers
// that only care about abandonment (not rewrite) can still observe it.
type ReplacementMap struct {
	successors map[plumbing.Hash]map[plumbing.Hash]bool
	abandoned  map[plumbing.Hash]bool
}

// NewReplacementMap returns an empty map.
func NewReplacementMap() *ReplacementMap {
	return &ReplacementMap{
		successors: make(map[plumbing.Hash]map[plumbing.Hash]bool),
		abandoned:  make(map[plumbing.Hash]bool),
	}
}

// RecordRewrite adds new to the successor set of old. Fails if
// new == old, which would encode a self-cycle.
func (m *ReplacementMap) RecordRewrite(old, new plumbing.Hash) error {
	if old == new {
		return &ErrSelfRewrite{ID: old}
	}
	set, ok := m.successors[old]
	if !ok {
		set = make(map[plumbing.Hash]bool)
		m.successors[old] = set
	}
	set[new] = true
	return nil
}

// RecordAbandon marks c as abandoned. If c already has recorded
// successors, those are kept; c is treated as rewritten rather than
// abandoned for substitution purposes, per the reference semantics
// documented on ReplacementMap.
func (m *ReplacementMap) RecordAbandon(c plumbing.Hash) {
	m.abandoned[c] = true
	if _, ok := m.successors[c]; !ok {
		m.successors[c] = make(map[plumbing.Hash]bool)
	}
}

// IsAbandoned reports whether RecordAbandon was ever called for c,
// regardless of whether c also has recorded successors.
func (m *ReplacementMap) IsAbandoned(c plumbing.Hash) bool {
	return m.abandoned[c]
}

// HasEntry reports whether c is a key of the map at all (was either
// rewritten or abandoned), i.e. whether c is one of the "changed"
// commits the DAG Walker seeds from.
func (m *ReplacementMap) HasEntry(c plumbing.Hash) bool {
	_, ok := m.successors[c]
	return ok
}

// Keys returns every commit with an entry in the map (rewritten,
// abandoned, or both), in byte-lex order. This is the "changed set"
// the DAG Walker seeds from (spec.md §4.2).
func (m *ReplacementMap) Keys() []plumbing.Hash {
	out := make([]plumbing.Hash, 0, len(m.successors))
	for k := range m.successors {
		out = append(out, k)
	}
	plumbing.HashesSort(out)
	return out
}

// DirectSuccessors returns the immediate (non-transitive) successor set
// recorded for c, in byte-lex order. Returns (nil, false) if c has no
// entry at all.
func (m *ReplacementMap) DirectSuccessors(c plumbing.Hash) ([]plumbing.Hash, bool) {
	set, ok := m.successors[c]
	if !ok {
		return nil, false
	}
	return sortedKeys(set), true
}

// Successors returns the transitive successor set of c: the fixpoint
// obtained by repeatedly substituting each element using the map.
// Abandonment (an entry with an empty successor set) terminates a path
// without contributing an element. Ordering is deterministic byte-lex.
// Returns ErrCycleDetected if the substitution does not terminate.
func (m *ReplacementMap) Successors(c plumbing.Hash) ([]plumbing.Hash, error) {
	result := make(map[plumbing.Hash]bool)
	visiting := make(map[plumbing.Hash]bool)
	if err := m.collectSuccessors(c, result, visiting, []plumbing.Hash{c}); err != nil {
		return nil, err
	}
	return sortedKeys(result), nil
}

func (m *ReplacementMap) collectSuccessors(c plumbing.Hash, result, visiting map[plumbing.Hash]bool, path []plumbing.Hash) error {
	set, ok := m.successors[c]
	if !ok {
		// c has no entry: it is its own (only) successor.
		result[c] = true
		return nil
	}
	if len(set) == 0 {
		// abandoned, no rewrites: contributes nothing.
		return nil
	}
	if visiting[c] {
		return &ErrCycleDetected{Path: append([]plumbing.Hash(nil), path...)}
	}
	visiting[c] = true
	defer delete(visiting, c)
	for _, s := range sortedKeys(set) {
		if err := m.collectSuccessors(s, result, visiting, append(path, s)); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(set map[plumbing.Hash]bool) []plumbing.Hash {
	out := make([]plumbing.Hash, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	plumbing.HashesSort(out)
	return out
}
