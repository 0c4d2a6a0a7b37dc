// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"

	"github.com/wren-vcs/wren/modules/object"
	"github.com/wren-vcs/wren/modules/plumbing"
	"github.com/wren-vcs/wren/pkg/store"
)

// RebasedDescendant is one rewritten commit produced by a rebase
// session (spec.md §6's Rebaser public surface). Simplified reports
// whether degenerate-merge removal actually pruned a redundant parent,
// a detail jj's own RebasedDescendant also tracks so callers can report
// "n commits simplified" separately from "n commits rebased".
type RebasedDescendant struct {
	OldID      plumbing.Hash
	NewID      plumbing.Hash
	NewParents []plumbing.Hash
	Simplified bool
}

// Rewriter implements §4.3: parent substitution, degenerate-merge
// removal, the no-op short circuit, and 3-way tree composition.
type Rewriter struct {
	store  store.CommitStore
	rm     *ReplacementMap
	rootID plumbing.Hash
}

func NewRewriter(s store.CommitStore, rm *ReplacementMap, rootID plumbing.Hash) *Rewriter {
	return &Rewriter{store: s, rm: rm, rootID: rootID}
}

// Rewrite rebases c onto its effective new parents and records the
// result in the Replacement Map. It is the per-commit body the DAG
// Walker's topological order drives.
func (rw *Rewriter) Rewrite(ctx context.Context, c *object.Commit) (*RebasedDescendant, error) {
	var rawNewParents []plumbing.Hash
	for _, p := range c.Parents {
		eff, err := rw.effectiveNewParents(ctx, p, make(map[plumbing.Hash]bool))
		if err != nil {
			return nil, err
		}
		rawNewParents = append(rawNewParents, eff...)
	}

	newParents, err := rw.simplify(ctx, rawNewParents)
	if err != nil {
		return nil, err
	}
	simplified := len(newParents) != len(dedupe(rawNewParents))
	if len(newParents) == 0 {
		newParents = []plumbing.Hash{rw.rootID}
	}

	if sameParents(c.Parents, newParents) {
		// A genuine no-op: c is already placed correctly, so no new
		// commit is allocated and no Replacement Map entry is recorded.
		// c has no entry at all, so Successors(c) already resolves to
		// c itself (§4.3 step 3); recording c->c here would instead be
		// rejected as a self-rewrite and would wrongly abort descendants
		// that are themselves no-ops (spec.md §4.2).
		return &RebasedDescendant{OldID: c.Hash, NewID: c.Hash, NewParents: newParents}, nil
	}

	newTree, err := rw.composeTree(ctx, c, newParents)
	if err != nil {
		return nil, err
	}

	newCommit := c.WithRewrite(newParents, newTree)
	newID, err := rw.store.WriteCommit(ctx, newCommit)
	if err != nil {
		return nil, err
	}
	if err := rw.rm.RecordRewrite(c.Hash, newID); err != nil {
		return nil, err
	}
	return &RebasedDescendant{OldID: c.Hash, NewID: newID, NewParents: newParents, Simplified: simplified}, nil
}

// effectiveNewParents implements §4.3 step 1. visiting guards against a
// pure-abandonment chain that cycles back on itself.
func (rw *Rewriter) effectiveNewParents(ctx context.Context, p plumbing.Hash, visiting map[plumbing.Hash]bool) ([]plumbing.Hash, error) {
	if rw.isPureAbandon(p) {
		if visiting[p] {
			return nil, &ErrCycleDetected{Path: []plumbing.Hash{p}}
		}
		visiting[p] = true
		defer delete(visiting, p)

		pc, err := rw.store.GetCommit(ctx, p)
		if err != nil {
			return nil, &ErrMissingCommit{ID: p}
		}
		var out []plumbing.Hash
		for _, gp := range pc.Parents {
			sub, err := rw.effectiveNewParents(ctx, gp, visiting)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	}
	return rw.rm.Successors(p)
}

func (rw *Rewriter) isPureAbandon(p plumbing.Hash) bool {
	if !rw.rm.IsAbandoned(p) {
		return false
	}
	direct, ok := rw.rm.DirectSuccessors(p)
	return ok && len(direct) == 0
}

// simplify implements §4.3 step 2: dedupe preserving first occurrence,
// then drop any parent that is a transitive ancestor of another.
func (rw *Rewriter) simplify(ctx context.Context, raw []plumbing.Hash) ([]plumbing.Hash, error) {
	uniq := dedupe(raw)
	var survivors []plumbing.Hash
	for i, p := range uniq {
		ancestorOfOther := false
		for j, q := range uniq {
			if i == j {
				continue
			}
			ok, err := isAncestor(ctx, rw.store, rw.rootID, p, q)
			if err != nil {
				return nil, err
			}
			if ok {
				ancestorOfOther = true
				break
			}
		}
		if !ancestorOfOther {
			survivors = append(survivors, p)
		}
	}
	return survivors, nil
}

// composeTree implements §4.3 step 4: the new tree is the 3-way merge
// of (original first parent's tree, c's tree, new first parent's tree),
// folded pairwise across any additional new parents using the
// corresponding original parent, or the nearest common ancestor when
// the parent counts differ, as that pair's base.
func (rw *Rewriter) composeTree(ctx context.Context, c *object.Commit, newParents []plumbing.Hash) (plumbing.Hash, error) {
	merged := c.Tree
	for i, newParent := range newParents {
		var baseID plumbing.Hash
		var err error
		if i < len(c.Parents) {
			baseID = c.Parents[i]
		} else {
			anchor := rw.rootID
			if len(c.Parents) > 0 {
				anchor = c.Parents[0]
			}
			baseID, err = rw.nearestCommonAncestor(ctx, anchor, newParent)
			if err != nil {
				return plumbing.ZeroHash, err
			}
		}
		baseTree, err := rw.treeOf(ctx, baseID)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		rightTree, err := rw.treeOf(ctx, newParent)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		merged, err = rw.store.MergeTrees(ctx, baseTree, merged, rightTree)
		if err != nil {
			return plumbing.ZeroHash, err
		}
	}
	return merged, nil
}

func (rw *Rewriter) treeOf(ctx context.Context, id plumbing.Hash) (plumbing.Hash, error) {
	c, err := rw.store.GetCommit(ctx, id)
	if err != nil {
		return plumbing.ZeroHash, &ErrMissingCommit{ID: id}
	}
	return c.Tree, nil
}

// nearestCommonAncestor finds the common ancestor of a and b that
// minimizes combined distance, tie-broken by CommitId byte-lex. The
// root commit is a common ancestor of everything, so this always
// terminates with at least that answer.
func (rw *Rewriter) nearestCommonAncestor(ctx context.Context, a, b plumbing.Hash) (plumbing.Hash, error) {
	distA, orderA, err := rw.ancestorDistances(ctx, a)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	distB, _, err := rw.ancestorDistances(ctx, b)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	best := rw.rootID
	bestScore := -1
	for _, id := range orderA {
		db, ok := distB[id]
		if !ok {
			continue
		}
		score := distA[id] + db
		if bestScore == -1 || score < bestScore || (score == bestScore && id.Less(best)) {
			bestScore = score
			best = id
		}
	}
	return best, nil
}

func (rw *Rewriter) ancestorDistances(ctx context.Context, start plumbing.Hash) (map[plumbing.Hash]int, []plumbing.Hash, error) {
	dist := map[plumbing.Hash]int{start: 0}
	order := []plumbing.Hash{start}
	queue := []plumbing.Hash{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == rw.rootID {
			continue
		}
		c, err := rw.store.GetCommit(ctx, id)
		if err != nil {
			return nil, nil, &ErrMissingCommit{ID: id}
		}
		for _, p := range c.Parents {
			if _, seen := dist[p]; !seen {
				dist[p] = dist[id] + 1
				order = append(order, p)
				queue = append(queue, p)
			}
		}
	}
	return dist, order, nil
}

func dedupe(in []plumbing.Hash) []plumbing.Hash {
	seen := make(map[plumbing.Hash]bool, len(in))
	var out []plumbing.Hash
	for _, id := range in {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sameParents(a, b []plumbing.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
