// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package rebase implements the descendant rebaser core: given a set of
// commit rewrites and abandonments, it walks every affected descendant
// in topological order, rewrites each one onto its new effective
// parents, and finally repoints local branches through the conflict
// algebra. File-content merging, revset resolution, and the operation
// log are external collaborators; this package only consumes their
// capabilities (pkg/store.CommitStore, pkg/repo.MutableRepo).
package rebase

import (
	"context"

	"github.com/wren-vcs/wren/modules/plumbing"
	"github.com/wren-vcs/wren/pkg/config"
	"github.com/wren-vcs/wren/pkg/repo"
	"github.com/wren-vcs/wren/pkg/store"
)

// Rebaser is the public surface described by spec.md §6. A session owns
// one Replacement Map, populated via RecordRewrite/RecordAbandon before
// RebaseNext/RebaseAll are called, and runs single-threaded against one
// MutableRepo.
type Rebaser struct {
	store  store.CommitStore
	repo   repo.MutableRepo
	rm     *ReplacementMap
	walker *Walker
	writer *Rewriter

	order   []plumbing.Hash
	pos     int
	started bool
}

// New constructs a Rebaser. rewrites and abandoned seed the
// Replacement Map up front, matching the constructor signature spec.md
// §6 describes (`new(store, repo, rewrites, abandoned)`); callers that
// want to build the map incrementally can pass nil/empty and drive
// RecordRewrite/RecordAbandon through Map() before the first
// RebaseNext call.
func New(s store.CommitStore, r repo.MutableRepo, rewrites map[plumbing.Hash][]plumbing.Hash, abandoned []plumbing.Hash) (*Rebaser, error) {
	ctx := context.Background()
	rm := NewReplacementMap()
	for old, news := range rewrites {
		for _, n := range news {
			if err := rm.RecordRewrite(old, n); err != nil {
				return nil, err
			}
		}
		if len(news) >= 2 {
			oldCommit, err := s.GetCommit(ctx, old)
			if err != nil {
				return nil, &ErrMissingCommit{ID: old}
			}
			r.RecordDivergentChangeID(ctx, string(oldCommit.ChangeId))
		}
	}
	for _, c := range abandoned {
		rm.RecordAbandon(c)
	}
	rootID := r.RootCommitID(ctx)
	return &Rebaser{
		store:  s,
		repo:   r,
		rm:     rm,
		walker: NewWalker(s, r, rm),
		writer: NewRewriter(s, rm, rootID),
	}, nil
}

// Map exposes the session's Replacement Map so callers can record
// additional rewrites/abandonments before the walk starts.
func (rb *Rebaser) Map() *ReplacementMap {
	return rb.rm
}

func (rb *Rebaser) ensureStarted(ctx context.Context) error {
	if rb.started {
		return nil
	}
	order, err := rb.walker.TopoOrder(ctx)
	if err != nil {
		return err
	}
	rb.order = order
	rb.started = true
	return nil
}

// RebaseNext yields one rewritten commit, or (nil, nil) when the walk
// is exhausted.
func (rb *Rebaser) RebaseNext(ctx context.Context) (*RebasedDescendant, error) {
	if err := rb.ensureStarted(ctx); err != nil {
		return nil, err
	}
	if rb.pos >= len(rb.order) {
		return nil, nil
	}
	id := rb.order[rb.pos]
	rb.pos++
	c, err := rb.store.GetCommit(ctx, id)
	if err != nil {
		return nil, &ErrMissingCommit{ID: id}
	}
	return rb.writer.Rewrite(ctx, c)
}

// RebaseAll drains RebaseNext and then runs the Ref Updater once over
// localBranches, per spec.md §4's session lifecycle: "a rebase session
// ends when the walker is exhausted and the Ref Updater has run once."
func (rb *Rebaser) RebaseAll(ctx context.Context, localBranches []string, policy config.EmptyBranchPolicy) ([]*RebasedDescendant, error) {
	var out []*RebasedDescendant
	for {
		d, err := rb.RebaseNext(ctx)
		if err != nil {
			return nil, err
		}
		if d == nil {
			break
		}
		out = append(out, d)
	}
	rootID := rb.repo.RootCommitID(ctx)
	updater := NewRefUpdater(rb.repo, rb.store, rb.rm, rootID, policy)
	if err := updater.Run(ctx, localBranches); err != nil {
		return nil, err
	}
	return out, nil
}

// Rebased returns the accumulated direct old->new mapping for every
// commit actually rewritten this session. Commits yielded as genuine
// no-ops carry no Replacement Map entry at all (§4.3 step 3) and so are
// absent here, the same way an untouched commit is absent.
func (rb *Rebaser) Rebased() map[plumbing.Hash]plumbing.Hash {
	out := make(map[plumbing.Hash]plumbing.Hash)
	for _, id := range rb.order {
		if succ, ok := rb.rm.DirectSuccessors(id); ok && len(succ) == 1 {
			out[id] = succ[0]
		}
	}
	return out
}
