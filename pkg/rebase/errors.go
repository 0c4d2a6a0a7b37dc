// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package rebase

import (
	"fmt"

	"github.com/wren-vcs/wren/modules/plumbing"
)

// ErrCycleDetected is returned when the Replacement Map's rewrites form
// a cycle that abandonment cannot break (spec.md §7). Fatal to the
// session.
type ErrCycleDetected struct {
	Path []plumbing.Hash
}

func (e *ErrCycleDetected) Error() string {
	return fmt.Sprintf("wren: cycle detected in replacement map: %v", e.Path)
}

// ErrMissingCommit is returned when the store does not contain a
// CommitId referenced by a rewrite or by a descendant's parent. Fatal.
type ErrMissingCommit struct {
	ID plumbing.Hash
}

func (e *ErrMissingCommit) Error() string {
	return fmt.Sprintf("wren: missing commit %s", e.ID.Prefix())
}

// ErrSelfRewrite is returned by record_rewrite when new == old.
type ErrSelfRewrite struct {
	ID plumbing.Hash
}

func (e *ErrSelfRewrite) Error() string {
	return fmt.Sprintf("wren: self-rewrite of %s", e.ID.Prefix())
}
