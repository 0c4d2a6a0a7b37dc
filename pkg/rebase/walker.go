// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/wren-vcs/wren/modules/plumbing"
	"github.com/wren-vcs/wren/pkg/repo"
	"github.com/wren-vcs/wren/pkg/store"
)

// Walker enumerates the descendants of the Replacement Map's changed
// set in parent-before-child (topological) order, excluding the changed
// commits themselves (spec.md §4.2). It is grounded in the teacher's
// commit_walker_topo_order.go in/out-degree + binary-heap shape, walked
// over children edges instead of parent edges and tie-broken by
// CommitId byte-lex instead of commit time, since the rebaser has no
// notion of "most recent" and determinism is the only requirement.
type Walker struct {
	store store.CommitStore
	repo  repo.MutableRepo
	rm    *ReplacementMap
}

func NewWalker(s store.CommitStore, r repo.MutableRepo, rm *ReplacementMap) *Walker {
	return &Walker{store: s, repo: r, rm: rm}
}

// TopoOrder computes the full descendant order once, up front: the
// transaction holds the whole frontier in memory (spec.md §5), so there
// is no benefit to a lazy per-step walk and considerable simplicity in
// computing the order eagerly via Kahn's algorithm.
func (w *Walker) TopoOrder(ctx context.Context) ([]plumbing.Hash, error) {
	changed := w.rm.Keys()
	raw, err := w.repo.EnumerateDescendants(ctx, changed)
	if err != nil {
		return nil, err
	}

	// A commit already present as a key in the map is superseded by its
	// own rewrite/abandon entry rather than walked as an ordinary
	// descendant (spec.md §4.2: "not yielded at all... superseded by a
	// rewrite already present in the map").
	//
	// A commit that is itself an ancestor of one of the map's direct
	// successor values is also not yielded, even though it is not a key:
	// this is the "forward rewrite" case of §4.2, where a rewrite's
	// destination already lies below the source in the original graph,
	// and the commits on the path between source and destination need
	// no change. They are not walked or rewritten into a new commit, but
	// they must still be recorded in the Replacement Map as rewritten to
	// that destination: the walk excludes them only because they are
	// already "in place" as the destination's own ancestors, not because
	// their descendants should keep pointing at them instead of at the
	// destination.
	rootID := w.repo.RootCommitID(ctx)
	destinations := make(map[plumbing.Hash]bool)
	for _, k := range w.rm.Keys() {
		direct, _ := w.rm.DirectSuccessors(k)
		for _, d := range direct {
			destinations[d] = true
		}
	}
	sortedDestinations := make([]plumbing.Hash, 0, len(destinations))
	for d := range destinations {
		sortedDestinations = append(sortedDestinations, d)
	}
	plumbing.HashesSort(sortedDestinations)

	candidates := make(map[plumbing.Hash]bool, len(raw))
	for _, id := range raw {
		if w.rm.HasEntry(id) {
			continue
		}
		superseded := false
		for _, dest := range sortedDestinations {
			// A destination is already the correct node: it needs no
			// rewrite and, unlike its strict ancestors, no Replacement
			// Map entry either (recording dest->dest would itself be a
			// rejected self-rewrite, and is unnecessary since
			// Successors(dest) already resolves to dest by identity).
			if id == dest {
				superseded = true
				continue
			}
			anc, err := isAncestor(ctx, w.store, rootID, id, dest)
			if err != nil {
				return nil, err
			}
			if anc {
				superseded = true
				if err := w.rm.RecordRewrite(id, dest); err != nil {
					return nil, err
				}
			}
		}
		if superseded {
			continue
		}
		candidates[id] = true
	}

	inDegree := make(map[plumbing.Hash]int, len(candidates))
	children := make(map[plumbing.Hash][]plumbing.Hash)
	for id := range candidates {
		c, err := w.store.GetCommit(ctx, id)
		if err != nil {
			return nil, &ErrMissingCommit{ID: id}
		}
		for _, p := range c.Parents {
			if candidates[p] {
				inDegree[id]++
				children[p] = append(children[p], id)
			}
		}
	}
	for _, list := range children {
		plumbing.HashesSort(list)
	}

	heap := binaryheap.NewWith(func(a, b any) int {
		return a.(plumbing.Hash).Compare(b.(plumbing.Hash))
	})
	for id := range candidates {
		if inDegree[id] == 0 {
			heap.Push(id)
		}
	}

	order := make([]plumbing.Hash, 0, len(candidates))
	for heap.Size() > 0 {
		v, _ := heap.Pop()
		id := v.(plumbing.Hash)
		order = append(order, id)
		for _, ch := range children[id] {
			inDegree[ch]--
			if inDegree[ch] == 0 {
				heap.Push(ch)
			}
		}
	}
	if len(order) != len(candidates) {
		return nil, &ErrCycleDetected{}
	}
	return order, nil
}
