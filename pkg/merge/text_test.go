// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTextMergerNoConflict(t *testing.T) {
	base := "one\ntwo\nthree\n"
	ours := "one\nTWO\nthree\n"
	theirs := "one\ntwo\nthree\nfour\n"

	merged, conflicted, err := (DefaultTextMerger{}).Merge(context.Background(), base, ours, theirs)
	require.NoError(t, err)
	require.False(t, conflicted)
	require.Equal(t, "one\nTWO\nthree\nfour\n", merged)
}

func TestDefaultTextMergerConflict(t *testing.T) {
	base := "one\ntwo\nthree\n"
	ours := "one\nTWO\nthree\n"
	theirs := "one\nTHIRTY-TWO\nthree\n"

	merged, conflicted, err := (DefaultTextMerger{}).Merge(context.Background(), base, ours, theirs)
	require.NoError(t, err)
	require.True(t, conflicted)
	require.Contains(t, merged, markerOurs)
	require.Contains(t, merged, markerTheir)
	require.Contains(t, merged, "TWO\n")
	require.Contains(t, merged, "THIRTY-TWO\n")
}

func TestDefaultTextMergerIdenticalEdit(t *testing.T) {
	base := "a\nb\nc\n"
	ours := "a\nB\nc\n"
	theirs := "a\nB\nc\n"

	merged, conflicted, err := (DefaultTextMerger{}).Merge(context.Background(), base, ours, theirs)
	require.NoError(t, err)
	require.False(t, conflicted)
	require.Equal(t, "a\nB\nc\n", merged)
}

func TestDiffLinesPureInsertAnchors(t *testing.T) {
	hunks := diffLines([]string{"a", "c"}, []string{"a", "b", "c"})
	require.Len(t, hunks, 1)
	require.Equal(t, 1, hunks[0].baseStart)
	require.Equal(t, 1, hunks[0].baseEnd)
	require.Equal(t, []string{"b"}, hunks[0].ins)
}

func TestDiffLinesPureDelete(t *testing.T) {
	hunks := diffLines([]string{"a", "b", "c"}, []string{"a", "c"})
	require.Len(t, hunks, 1)
	require.Equal(t, 1, hunks[0].baseStart)
	require.Equal(t, 2, hunks[0].baseEnd)
	require.Empty(t, hunks[0].ins)
}
