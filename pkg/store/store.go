// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store implements the commit store capability consumed by the
// rebaser (spec.md §6): content-addressed, read-through access to
// commits and trees, plus the store-side 3-way tree merge the Commit
// Rewriter composes per descendant.
package store

import (
	"context"

	"github.com/wren-vcs/wren/modules/object"
	"github.com/wren-vcs/wren/modules/plumbing"
)

// CommitStore is the capability the rebaser consumes to read and write
// commits and trees, and to compose the pairwise 3-way tree merge
// described in §4.3 step 4. Implementations are content-addressed:
// writing the same Commit or Tree twice yields the same id.
type CommitStore interface {
	GetCommit(ctx context.Context, id plumbing.Hash) (*object.Commit, error)
	WriteCommit(ctx context.Context, c *object.Commit) (plumbing.Hash, error)
	GetTree(ctx context.Context, id plumbing.Hash) (*object.Tree, error)
	WriteTree(ctx context.Context, t *object.Tree) (plumbing.Hash, error)
	// MergeTrees performs the pairwise 3-way merge base/left/right →
	// Tree, embedding content-level conflicts as markers rather than
	// failing (spec.md §4.3, §7: tree-content conflicts are not
	// errors). The resulting Tree is written and its id returned.
	MergeTrees(ctx context.Context, base, left, right plumbing.Hash) (plumbing.Hash, error)
}

// StoreIoError wraps an underlying I/O failure from the commit store
// (spec.md §7). It is recoverable at the transaction level: the caller
// discards the transaction rather than retrying inside the core.
type StoreIoError struct {
	Op  string
	Err error
}

func (e *StoreIoError) Error() string {
	return "wren: store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreIoError) Unwrap() error {
	return e.Err
}

func NewStoreIoError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreIoError{Op: op, Err: err}
}
