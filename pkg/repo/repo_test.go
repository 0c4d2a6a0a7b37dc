// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wren-vcs/wren/modules/plumbing"
)

func h(b byte) plumbing.Hash {
	var out plumbing.Hash
	out[0] = b
	return out
}

// root -- a -- b -- c
//          \-- d
func buildChain(t *testing.T) *InMemoryRepo {
	t.Helper()
	root := h(0)
	a, b, c, d := h(1), h(2), h(3), h(4)
	parents := map[plumbing.Hash][]plumbing.Hash{
		a: {root},
		b: {a},
		c: {b},
		d: {a},
	}
	return NewInMemoryRepo(root, []plumbing.Hash{root, a, b, c, d}, parents)
}

func TestEnumerateDescendants(t *testing.T) {
	r := buildChain(t)
	a := h(1)
	descendants, err := r.EnumerateDescendants(context.Background(), []plumbing.Hash{a})
	require.NoError(t, err)
	require.ElementsMatch(t, []plumbing.Hash{h(2), h(3), h(4)}, descendants)
}

func TestLocalBranchRoundtrip(t *testing.T) {
	r := buildChain(t)
	ctx := context.Background()
	_, ok, err := r.GetLocalBranch(ctx, "main")
	require.NoError(t, err)
	require.False(t, ok)

	target := plumbing.NewNormal(h(3))
	require.NoError(t, r.SetLocalBranch(ctx, "main", target))
	got, ok, err := r.GetLocalBranch(ctx, "main")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, target, got)

	require.NoError(t, r.RemoveLocalBranch(ctx, "main"))
	_, ok, err = r.GetLocalBranch(ctx, "main")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoteBranchRoundtrip(t *testing.T) {
	r := buildChain(t)
	ctx := context.Background()
	target := plumbing.NewNormal(h(2))
	require.NoError(t, r.SetRemoteBranch(ctx, "origin", "main", target))
	got, ok, err := r.GetRemoteBranch(ctx, "origin", "main")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, target, got)
}

func TestRootCommitID(t *testing.T) {
	r := buildChain(t)
	require.Equal(t, h(0), r.RootCommitID(context.Background()))
}
