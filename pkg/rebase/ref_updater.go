// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"

	"github.com/wren-vcs/wren/modules/plumbing"
	"github.com/wren-vcs/wren/pkg/config"
	"github.com/wren-vcs/wren/pkg/repo"
	"github.com/wren-vcs/wren/pkg/store"
)

// RefUpdater implements §4.4: it runs once after the walk completes,
// substituting every reference's target through the Replacement Map and
// applying the conflict simplification algebra. Only local branches are
// updated automatically; remote branches and tags are externally owned.
type RefUpdater struct {
	repo   repo.MutableRepo
	store  store.CommitStore
	rm     *ReplacementMap
	rootID plumbing.Hash
	policy config.EmptyBranchPolicy
}

func NewRefUpdater(r repo.MutableRepo, s store.CommitStore, rm *ReplacementMap, rootID plumbing.Hash, policy config.EmptyBranchPolicy) *RefUpdater {
	return &RefUpdater{repo: r, store: s, rm: rm, rootID: rootID, policy: policy}
}

// Run updates every local branch named in names against the
// Replacement Map. Remote branches and tags are read-only to the
// rebaser and are not touched here; callers that track them only need
// to re-resolve through Successors themselves if they choose to.
func (u *RefUpdater) Run(ctx context.Context, names []string) error {
	for _, name := range names {
		target, ok, err := u.repo.GetLocalBranch(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		newTarget, deleted, err := u.update(ctx, target)
		if err != nil {
			return err
		}
		if deleted {
			if u.policy == config.EmptyBranchPreserve {
				if err := u.repo.SetLocalBranch(ctx, name, plumbing.NewConflict(nil, nil)); err != nil {
					return err
				}
				continue
			}
			if err := u.repo.RemoveLocalBranch(ctx, name); err != nil {
				return err
			}
			continue
		}
		if err := u.repo.SetLocalBranch(ctx, name, newTarget); err != nil {
			return err
		}
	}
	return nil
}

// update computes a reference's new target per §4.4. deleted reports
// that the reference should be removed (adds collapsed to empty).
func (u *RefUpdater) update(ctx context.Context, target plumbing.RefTarget) (newTarget plumbing.RefTarget, deleted bool, err error) {
	if target.Kind == plumbing.RefNormal {
		successors, err := u.rm.Successors(target.Normal)
		if err != nil {
			return plumbing.RefTarget{}, false, err
		}
		switch len(successors) {
		case 0:
			return plumbing.RefTarget{}, true, nil
		case 1:
			return plumbing.NewNormal(successors[0]), false, nil
		default:
			removes := make([]plumbing.Hash, len(successors)-1)
			for i := range removes {
				removes[i] = target.Normal
			}
			return u.simplifyConflict(ctx, removes, successors)
		}
	}

	var removes, adds []plumbing.Hash
	for _, r := range target.Removes {
		s, err := u.rm.Successors(r)
		if err != nil {
			return plumbing.RefTarget{}, false, err
		}
		removes = append(removes, s...)
	}
	for _, a := range target.Adds {
		s, err := u.rm.Successors(a)
		if err != nil {
			return plumbing.RefTarget{}, false, err
		}
		adds = append(adds, s...)
	}
	return u.simplifyConflict(ctx, removes, adds)
}

// simplifyConflict applies the conflict simplification algebra of
// §4.4: cancellation of elements appearing in both multisets, then
// ancestry-based reduction of a dominated add together with its
// ancestor remove, preserving |adds| - |removes| == 1 throughout.
func (u *RefUpdater) simplifyConflict(ctx context.Context, removes, adds []plumbing.Hash) (plumbing.RefTarget, bool, error) {
	removes, adds = cancel(removes, adds)

	// Ancestry-based reduction: an r that is an ancestor of two distinct
	// adds a1, a2 where a1 is itself an ancestor of a2 is redundant
	// together with the dominated a1 — a1 carries no information a2
	// doesn't already carry forward, so dropping both r and a1 preserves
	// the invariant |adds| - |removes| == 1 while collapsing the
	// conflict onto its single surviving descendant a2.
	for changed := true; changed; {
		changed = false
	removeLoop:
		for ri, r := range removes {
			for ai1, a1 := range adds {
				rAncestorOfA1, err := isAncestor(ctx, u.store, u.rootID, r, a1)
				if err != nil {
					return plumbing.RefTarget{}, false, err
				}
				if !rAncestorOfA1 {
					continue
				}
				for ai2, a2 := range adds {
					if ai1 == ai2 {
						continue
					}
					a1AncestorOfA2, err := isAncestor(ctx, u.store, u.rootID, a1, a2)
					if err != nil {
						return plumbing.RefTarget{}, false, err
					}
					if !a1AncestorOfA2 {
						continue
					}
					removes = append(append([]plumbing.Hash(nil), removes[:ri]...), removes[ri+1:]...)
					adds = append(append([]plumbing.Hash(nil), adds[:ai1]...), adds[ai1+1:]...)
					changed = true
					break removeLoop
				}
			}
		}
	}

	if len(adds) == 0 {
		return plumbing.RefTarget{}, true, nil
	}
	if len(removes) == 0 && len(adds) == 1 {
		return plumbing.NewNormal(adds[0]), false, nil
	}
	return plumbing.NewConflict(removes, adds), false, nil
}

// cancel removes, one-for-one, every CommitId that appears in both
// multisets.
func cancel(removes, adds []plumbing.Hash) ([]plumbing.Hash, []plumbing.Hash) {
	removeCounts := make(map[plumbing.Hash]int, len(removes))
	for _, r := range removes {
		removeCounts[r]++
	}
	var survivingAdds []plumbing.Hash
	for _, a := range adds {
		if removeCounts[a] > 0 {
			removeCounts[a]--
			continue
		}
		survivingAdds = append(survivingAdds, a)
	}
	var survivingRemoves []plumbing.Hash
	for r, n := range removeCounts {
		for i := 0; i < n; i++ {
			survivingRemoves = append(survivingRemoves, r)
		}
	}
	plumbing.HashesSort(survivingRemoves)
	plumbing.HashesSort(survivingAdds)
	return survivingRemoves, survivingAdds
}
