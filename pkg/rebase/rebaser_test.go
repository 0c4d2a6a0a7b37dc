// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wren-vcs/wren/modules/object"
	"github.com/wren-vcs/wren/modules/plumbing"
	"github.com/wren-vcs/wren/pkg/config"
	"github.com/wren-vcs/wren/pkg/merge"
	"github.com/wren-vcs/wren/pkg/repo"
	"github.com/wren-vcs/wren/pkg/store"
)

// fixture builds commits by label on top of a shared MemoryStore and
// tracks the resulting hashes so scenario tests can write them the way
// spec.md §8 names them ("A; B<-A; C<-B; ...").
type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *store.MemoryStore
	byName map[string]plumbing.Hash
	parents map[plumbing.Hash][]plumbing.Hash
	order   []plumbing.Hash
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := store.NewMemoryStore(merge.DefaultTextMerger{})
	require.NoError(t, err)
	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		store:   s,
		byName:  map[string]plumbing.Hash{"root": store.RootCommitID},
		parents: map[plumbing.Hash][]plumbing.Hash{},
		order:   []plumbing.Hash{store.RootCommitID},
	}
	return f
}

// commit writes a new commit named name with the given parent labels,
// each carrying distinct tree content so commits never collide by hash.
func (f *fixture) commit(name string, parentNames ...string) plumbing.Hash {
	f.t.Helper()
	parents := make([]plumbing.Hash, 0, len(parentNames))
	for _, p := range parentNames {
		id, ok := f.byName[p]
		require.True(f.t, ok, "unknown parent %q", p)
		parents = append(parents, id)
	}
	tree := object.NewTree([]object.TreeEntry{{Name: name, Mode: object.ModeFile, Hash: plumbing.SumBytes([]byte(name))}})
	treeID, err := f.store.WriteTree(f.ctx, tree)
	require.NoError(f.t, err)
	c := &object.Commit{
		ChangeId: object.NewChangeId(),
		Parents:  parents,
		Tree:     treeID,
		Message:  name,
	}
	id, err := f.store.WriteCommit(f.ctx, c)
	require.NoError(f.t, err)
	f.byName[name] = id
	f.parents[id] = parents
	f.order = append(f.order, id)
	return id
}

func (f *fixture) id(name string) plumbing.Hash {
	id, ok := f.byName[name]
	require.True(f.t, ok, "unknown commit %q", name)
	return id
}

func (f *fixture) repo() *repo.InMemoryRepo {
	return repo.NewInMemoryRepo(store.RootCommitID, f.order, f.parents)
}

func (f *fixture) rebaser(rewrites map[string][]string, abandoned []string) *Rebaser {
	f.t.Helper()
	rw := make(map[plumbing.Hash][]plumbing.Hash, len(rewrites))
	for old, news := range rewrites {
		ids := make([]plumbing.Hash, len(news))
		for i, n := range news {
			ids[i] = f.id(n)
		}
		rw[f.id(old)] = ids
	}
	ab := make([]plumbing.Hash, len(abandoned))
	for i, n := range abandoned {
		ab[i] = f.id(n)
	}
	rb, err := New(f.store, f.repo(), rw, ab)
	require.NoError(f.t, err)
	return rb
}

// labelsOf resolves ids, the final effective parent set of a rewritten
// descendant, back to its original labels for assertion purposes. It
// understands that a descendant might map to itself (no-op) or to an
// id minted during this session (looked up in rewritten).
func (f *fixture) labelsOf(ids []plumbing.Hash, rewritten map[plumbing.Hash]string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if id == store.RootCommitID {
			out[i] = "root"
			continue
		}
		if label, ok := rewritten[id]; ok {
			out[i] = label
			continue
		}
		for name, hid := range f.byName {
			if hid == id {
				out[i] = name
				break
			}
		}
	}
	return out
}

func rebaseAllNamed(t *testing.T, f *fixture, rb *Rebaser) map[string]*RebasedDescendant {
	t.Helper()
	out := map[string]*RebasedDescendant{}
	for {
		d, err := rb.RebaseNext(f.ctx)
		require.NoError(t, err)
		if d == nil {
			break
		}
		for name, id := range f.byName {
			if id == d.OldID {
				out[name] = d
				break
			}
		}
	}
	return out
}

// --- §8 end-to-end scenarios ---

func TestScenarioSideways(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "B")
	f.commit("D", "C")
	f.commit("E", "B")
	f.commit("F", "A")

	rb := f.rebaser(map[string][]string{"B": {"F"}}, nil)
	results := rebaseAllNamed(t, f, rb)

	require.Len(t, results, 3)
	rewritten := map[plumbing.Hash]string{}
	for name, d := range results {
		rewritten[d.NewID] = name + "'"
	}

	cNew := results["C"]
	require.Equal(t, []string{"F"}, f.labelsOf(cNew.NewParents, rewritten))

	dNew := results["D"]
	require.Equal(t, []string{"C'"}, f.labelsOf(dNew.NewParents, rewritten))

	eNew := results["E"]
	require.Equal(t, []string{"F"}, f.labelsOf(eNew.NewParents, rewritten))
}

func TestScenarioForward(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "B")
	f.commit("D", "B")
	f.commit("E", "D")
	f.commit("F", "D")
	f.commit("G", "F")

	rb := f.rebaser(map[string][]string{"B": {"F"}}, nil)
	results := rebaseAllNamed(t, f, rb)

	// D is an ancestor of the destination F and is not yielded at all.
	// G is already placed: it is yielded but only as a no-op, since its
	// parent F was never touched.
	require.NotContains(t, results, "D")
	if g, ok := results["G"]; ok {
		require.Equal(t, g.OldID, g.NewID, "G must only ever appear as a no-op")
	}

	var rewritten int
	rewrittenNames := map[plumbing.Hash]string{}
	for name, d := range results {
		if d.OldID == d.NewID {
			continue
		}
		rewritten++
		rewrittenNames[d.NewID] = name + "'"
	}
	require.Equal(t, 2, rewritten, "only C and E are genuinely rewritten")
	require.Equal(t, []string{"F"}, f.labelsOf(results["C"].NewParents, rewrittenNames))
	require.Equal(t, []string{"F"}, f.labelsOf(results["E"].NewParents, rewrittenNames))
}

func TestScenarioBackward(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "B")
	f.commit("D", "C")

	rb := f.rebaser(map[string][]string{"C": {"B"}}, nil)
	results := rebaseAllNamed(t, f, rb)

	require.Len(t, results, 1)
	rewritten := map[plumbing.Hash]string{}
	for name, d := range results {
		rewritten[d.NewID] = name + "'"
	}
	require.Equal(t, []string{"B"}, f.labelsOf(results["D"].NewParents, rewritten))
}

func TestScenarioAbandonDegenerateMerge(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "A")
	f.commit("D", "B", "C")

	rb := f.rebaser(nil, []string{"B"})
	results := rebaseAllNamed(t, f, rb)

	require.Len(t, results, 1)
	rewritten := map[plumbing.Hash]string{}
	for name, d := range results {
		rewritten[d.NewID] = name + "'"
	}
	require.Equal(t, []string{"C"}, f.labelsOf(results["D"].NewParents, rewritten))
	require.True(t, results["D"].Simplified)
}

func TestScenarioAbandonWidenMerge(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "A")
	f.commit("D", "A")
	f.commit("E", "B", "C")
	f.commit("F", "E", "D")

	rb := f.rebaser(nil, []string{"E"})
	results := rebaseAllNamed(t, f, rb)

	require.Len(t, results, 1)
	rewritten := map[plumbing.Hash]string{}
	for name, d := range results {
		rewritten[d.NewID] = name + "'"
	}
	require.Equal(t, []string{"B", "C", "D"}, f.labelsOf(results["F"].NewParents, rewritten))
}

func TestScenarioDivergentRewriteBranchConflict(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("B2", "A")
	f.commit("B3", "A")
	f.commit("B4", "A")

	ctx := context.Background()
	r := f.repo()
	require.NoError(t, r.SetLocalBranch(ctx, "main", plumbing.NewNormal(f.id("B"))))

	rb, err := New(f.store, r, map[plumbing.Hash][]plumbing.Hash{
		f.id("B"): {f.id("B2"), f.id("B3"), f.id("B4")},
	}, nil)
	require.NoError(t, err)
	_, err = rb.RebaseAll(ctx, []string{"main"}, config.EmptyBranchDelete)
	require.NoError(t, err)

	target, ok, err := r.GetLocalBranch(ctx, "main")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, target.IsConflict())
	require.ElementsMatch(t, []plumbing.Hash{f.id("B"), f.id("B")}, target.Removes)
	require.ElementsMatch(t, []plumbing.Hash{f.id("B2"), f.id("B3"), f.id("B4")}, target.Adds)
}

func TestScenarioConflictResolutionViaAncestry(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "A")
	f.commit("B2", "C")

	ctx := context.Background()
	r := f.repo()
	require.NoError(t, r.SetLocalBranch(ctx, "main", plumbing.NewConflict(
		[]plumbing.Hash{f.id("A")},
		[]plumbing.Hash{f.id("B"), f.id("C")},
	)))

	rb, err := New(f.store, r, map[plumbing.Hash][]plumbing.Hash{
		f.id("B"): {f.id("B2")},
	}, nil)
	require.NoError(t, err)
	_, err = rb.RebaseAll(ctx, []string{"main"}, config.EmptyBranchDelete)
	require.NoError(t, err)

	target, ok, err := r.GetLocalBranch(ctx, "main")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, target.IsConflict())
	require.Equal(t, f.id("B2"), target.Normal)
}

// --- §8 invariants ---

func TestInvariantNoAbandonedOrRedundantParents(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "A")
	f.commit("D", "B", "C")

	rb := f.rebaser(nil, []string{"B"})
	ctx := context.Background()
	for {
		d, err := rb.RebaseNext(ctx)
		require.NoError(t, err)
		if d == nil {
			break
		}
		for _, p := range d.NewParents {
			require.NotEqual(t, f.id("B"), p, "abandoned commit must not survive as a parent")
		}
	}
}

func TestInvariantUntouchedRefUnchanged(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "A")

	ctx := context.Background()
	r := f.repo()
	require.NoError(t, r.SetLocalBranch(ctx, "other", plumbing.NewNormal(f.id("C"))))

	rb, err := New(f.store, r, map[plumbing.Hash][]plumbing.Hash{f.id("B"): {f.id("A")}}, nil)
	require.NoError(t, err)
	_, err = rb.RebaseAll(ctx, []string{"other"}, config.EmptyBranchDelete)
	require.NoError(t, err)

	target, ok, err := r.GetLocalBranch(ctx, "other")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, target.IsConflict())
	require.Equal(t, f.id("C"), target.Normal)
}

func TestInvariantSingleRewriteBranchFollowsNormal(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("B2", "A")

	ctx := context.Background()
	r := f.repo()
	require.NoError(t, r.SetLocalBranch(ctx, "main", plumbing.NewNormal(f.id("B"))))

	rb, err := New(f.store, r, map[plumbing.Hash][]plumbing.Hash{f.id("B"): {f.id("B2")}}, nil)
	require.NoError(t, err)
	_, err = rb.RebaseAll(ctx, []string{"main"}, config.EmptyBranchDelete)
	require.NoError(t, err)

	target, ok, err := r.GetLocalBranch(ctx, "main")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, plumbing.NewNormal(f.id("B2")), target)
}

func TestInvariantReplacementMapClosedUnderSubstitution(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "B")

	rb := f.rebaser(map[string][]string{"A": {"root"}}, nil)
	ctx := context.Background()
	for {
		d, err := rb.RebaseNext(ctx)
		require.NoError(t, err)
		if d == nil {
			break
		}
	}

	for _, name := range []string{"A", "B", "C"} {
		once, err := rb.Map().Successors(f.id(name))
		require.NoError(t, err)
		var twice []plumbing.Hash
		for _, id := range once {
			s, err := rb.Map().Successors(id)
			require.NoError(t, err)
			twice = append(twice, s...)
		}
		require.ElementsMatch(t, once, dedupe(twice))
	}
}

func TestInvariantRebaseAllIdempotent(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "B")
	f.commit("D", "C")

	ctx := context.Background()
	r := f.repo()
	require.NoError(t, r.SetLocalBranch(ctx, "main", plumbing.NewNormal(f.id("D"))))

	rb, err := New(f.store, r, map[plumbing.Hash][]plumbing.Hash{f.id("B"): {f.id("A")}}, nil)
	require.NoError(t, err)
	_, err = rb.RebaseAll(ctx, []string{"main"}, config.EmptyBranchDelete)
	require.NoError(t, err)
	firstBranch, _, err := r.GetLocalBranch(ctx, "main")
	require.NoError(t, err)

	rb2, err := New(f.store, r, map[plumbing.Hash][]plumbing.Hash{f.id("B"): {f.id("A")}}, nil)
	require.NoError(t, err)
	_, err = rb2.RebaseAll(ctx, []string{"main"}, config.EmptyBranchDelete)
	require.NoError(t, err)
	secondBranch, _, err := r.GetLocalBranch(ctx, "main")
	require.NoError(t, err)

	require.Equal(t, firstBranch, secondBranch)
}

func TestInvariantDeterministicAcrossInputOrder(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "B")
	f.commit("D", "B")
	f.commit("E", "C")

	run := func(rewrites map[plumbing.Hash][]plumbing.Hash) map[plumbing.Hash]plumbing.Hash {
		rb, err := New(f.store, f.repo(), rewrites, nil)
		require.NoError(t, err)
		ctx := context.Background()
		for {
			d, err := rb.RebaseNext(ctx)
			require.NoError(t, err)
			if d == nil {
				break
			}
		}
		return rb.Rebased()
	}

	first := run(map[plumbing.Hash][]plumbing.Hash{
		f.id("B"): {f.id("A")},
		f.id("C"): {f.id("D")},
	})
	second := run(map[plumbing.Hash][]plumbing.Hash{
		f.id("C"): {f.id("D")},
		f.id("B"): {f.id("A")},
	})
	require.Equal(t, first, second)
}

func TestRecordRewriteRejectsSelfCycle(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	rm := NewReplacementMap()
	err := rm.RecordRewrite(f.id("A"), f.id("A"))
	var selfErr *ErrSelfRewrite
	require.ErrorAs(t, err, &selfErr)
}

func TestAbandonedParentElidesToRoot(t *testing.T) {
	f := newFixture(t)
	f.commit("A", "root")
	f.commit("B", "A")
	f.commit("C", "B")

	rb := f.rebaser(nil, []string{"A"})
	ctx := context.Background()
	var sawB bool
	for {
		d, err := rb.RebaseNext(ctx)
		require.NoError(t, err)
		if d == nil {
			break
		}
		if d.OldID == f.id("B") {
			sawB = true
			require.Equal(t, []plumbing.Hash{store.RootCommitID}, d.NewParents)
		}
	}
	require.True(t, sawB)
}
