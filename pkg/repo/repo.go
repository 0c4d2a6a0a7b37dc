// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package repo implements the MutableRepo capability the rebaser
// consumes (spec.md §6): the workspace holding in-progress commits and
// refs during a transaction. It is grounded in the teacher's
// modules/zeta/refs Backend interface shape, adapted from a filesystem
// backend to an in-memory one and widened with the RefTarget conflict
// algebra the rebaser's Ref Updater needs.
package repo

import (
	"context"
	"sort"

	"github.com/wren-vcs/wren/modules/plumbing"
)

// MutableRepo is the workspace capability the rebaser consumes during a
// transaction (spec.md §6). Operations on it are serial.
type MutableRepo interface {
	// EnumerateDescendants returns every commit with at least one
	// ancestor in changed, in unspecified order; the DAG Walker imposes
	// topological order on top.
	EnumerateDescendants(ctx context.Context, changed []plumbing.Hash) ([]plumbing.Hash, error)

	GetLocalBranch(ctx context.Context, name string) (plumbing.RefTarget, bool, error)
	SetLocalBranch(ctx context.Context, name string, target plumbing.RefTarget) error
	RemoveLocalBranch(ctx context.Context, name string) error

	GetRemoteBranch(ctx context.Context, remote, name string) (plumbing.RefTarget, bool, error)
	SetRemoteBranch(ctx context.Context, remote, name string, target plumbing.RefTarget) error

	GetTag(ctx context.Context, name string) (plumbing.RefTarget, bool, error)
	SetTag(ctx context.Context, name string, target plumbing.RefTarget) error

	RootCommitID(ctx context.Context) plumbing.Hash

	// RecordDivergentChangeID and DivergentChangeIDs track which
	// logical changes currently have more than one visible commit, a
	// jj-derived reporting surface independent of ref conflicts (see
	// SPEC_FULL.md's supplemented-features section). The rebaser never
	// reads this back; it only writes to it when a rewrite it is
	// seeded with produces a successor set of size >= 2.
	RecordDivergentChangeID(ctx context.Context, changeID string)
	DivergentChangeIDs(ctx context.Context) []string
}

// ParentsOf answers the one query the DAG Walker needs beyond
// MutableRepo itself: a commit's direct parents. The rebaser composes
// this from the commit store rather than from MutableRepo, since
// parentage is commit data, not ref/workspace state. Nothing in this
// package uses it: InMemoryRepo below is built from a plain parent map.
type ParentsOf func(ctx context.Context, id plumbing.Hash) ([]plumbing.Hash, error)

// InMemoryRepo is a MutableRepo backed by plain maps, adequate for a
// single transaction's lifetime. It is seeded with the full parent
// graph up front (EnumerateDescendants needs to walk it), mirroring how
// the teacher's refs.DB loads the whole packed-refs file into memory
// before answering queries.
type InMemoryRepo struct {
	root plumbing.Hash

	parents map[plumbing.Hash][]plumbing.Hash
	// children is the reverse index of parents, built once at
	// construction, used only to answer EnumerateDescendants.
	children map[plumbing.Hash][]plumbing.Hash

	localBranches  map[string]plumbing.RefTarget
	remoteBranches map[string]map[string]plumbing.RefTarget
	tags           map[string]plumbing.RefTarget

	divergent map[string]bool
}

// NewInMemoryRepo builds a repo whose descendant graph is the one
// implied by parents looked up for every id in allCommits.
func NewInMemoryRepo(root plumbing.Hash, allCommits []plumbing.Hash, parents map[plumbing.Hash][]plumbing.Hash) *InMemoryRepo {
	r := &InMemoryRepo{
		root:           root,
		parents:        parents,
		children:       make(map[plumbing.Hash][]plumbing.Hash),
		localBranches:  make(map[string]plumbing.RefTarget),
		remoteBranches: make(map[string]map[string]plumbing.RefTarget),
		tags:           make(map[string]plumbing.RefTarget),
		divergent:      make(map[string]bool),
	}
	for _, id := range allCommits {
		for _, p := range parents[id] {
			r.children[p] = append(r.children[p], id)
		}
	}
	for p := range r.children {
		sort.Slice(r.children[p], func(i, j int) bool { return r.children[p][i].Less(r.children[p][j]) })
	}
	return r
}

func (r *InMemoryRepo) EnumerateDescendants(_ context.Context, changed []plumbing.Hash) ([]plumbing.Hash, error) {
	seed := make(map[plumbing.Hash]bool, len(changed))
	for _, c := range changed {
		seed[c] = true
	}
	visited := make(map[plumbing.Hash]bool)
	var out []plumbing.Hash
	var stack []plumbing.Hash
	for _, c := range changed {
		stack = append(stack, r.children[c]...)
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] || seed[id] {
			continue
		}
		visited[id] = true
		out = append(out, id)
		stack = append(stack, r.children[id]...)
	}
	return out, nil
}

func (r *InMemoryRepo) GetLocalBranch(_ context.Context, name string) (plumbing.RefTarget, bool, error) {
	t, ok := r.localBranches[name]
	return t, ok, nil
}

func (r *InMemoryRepo) SetLocalBranch(_ context.Context, name string, target plumbing.RefTarget) error {
	r.localBranches[name] = target
	return nil
}

func (r *InMemoryRepo) RemoveLocalBranch(_ context.Context, name string) error {
	delete(r.localBranches, name)
	return nil
}

func (r *InMemoryRepo) GetRemoteBranch(_ context.Context, remote, name string) (plumbing.RefTarget, bool, error) {
	byName, ok := r.remoteBranches[remote]
	if !ok {
		return plumbing.RefTarget{}, false, nil
	}
	t, ok := byName[name]
	return t, ok, nil
}

func (r *InMemoryRepo) SetRemoteBranch(_ context.Context, remote, name string, target plumbing.RefTarget) error {
	byName, ok := r.remoteBranches[remote]
	if !ok {
		byName = make(map[string]plumbing.RefTarget)
		r.remoteBranches[remote] = byName
	}
	byName[name] = target
	return nil
}

func (r *InMemoryRepo) GetTag(_ context.Context, name string) (plumbing.RefTarget, bool, error) {
	t, ok := r.tags[name]
	return t, ok, nil
}

func (r *InMemoryRepo) SetTag(_ context.Context, name string, target plumbing.RefTarget) error {
	r.tags[name] = target
	return nil
}

func (r *InMemoryRepo) RootCommitID(_ context.Context) plumbing.Hash {
	return r.root
}

func (r *InMemoryRepo) RecordDivergentChangeID(_ context.Context, changeID string) {
	r.divergent[changeID] = true
}

func (r *InMemoryRepo) DivergentChangeIDs(_ context.Context) []string {
	out := make([]string, 0, len(r.divergent))
	for id := range r.divergent {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
