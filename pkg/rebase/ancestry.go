// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"context"

	"github.com/wren-vcs/wren/modules/plumbing"
	"github.com/wren-vcs/wren/pkg/store"
)

// isAncestor reports whether a is a strict ancestor of b (false when
// a == b) by walking b's parents via s. Shared by the Commit Rewriter's
// degenerate-merge removal and the Ref Updater's conflict
// simplification algebra, both of which need the same ancestry query.
func isAncestor(ctx context.Context, s store.CommitStore, rootID, a, b plumbing.Hash) (bool, error) {
	if a == b {
		return false, nil
	}
	visited := map[plumbing.Hash]bool{}
	queue := []plumbing.Hash{b}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		if id == a {
			return true, nil
		}
		if id == rootID {
			continue
		}
		c, err := s.GetCommit(ctx, id)
		if err != nil {
			return false, &ErrMissingCommit{ID: id}
		}
		queue = append(queue, c.Parents...)
	}
	return false, nil
}
