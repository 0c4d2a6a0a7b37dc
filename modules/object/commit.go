// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"time"

	"github.com/google/uuid"
	"github.com/wren-vcs/wren/modules/plumbing"
)

// Signature identifies who authored or committed a change, and when.
type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	When  time.Time `json:"when"`
}

// ChangeId is the secondary, stable identity of a logical change,
// preserved across rewrites of the commit that implements it (§3).
// Two commits sharing a ChangeId are divergent siblings.
type ChangeId string

// NewChangeId mints a fresh logical-change identity for a commit that
// does not descend from an existing one (i.e. not produced by rewriting
// another commit).
func NewChangeId() ChangeId {
	return ChangeId(uuid.NewString())
}

// Commit is the immutable record described by §3. Parents has length
// >= 1 for every commit except the synthetic root (RootCommitID in
// pkg/store), which has zero parents and an empty Tree.
type Commit struct {
	Hash      plumbing.Hash   `json:"hash"`
	ChangeId  ChangeId        `json:"change_id"`
	Parents   []plumbing.Hash `json:"parents"`
	Tree      plumbing.Hash   `json:"tree"`
	Author    Signature       `json:"author"`
	Committer Signature       `json:"committer"`
	Message   string          `json:"message"`
}

// WithRewrite returns a copy of c suitable for writing as the rewritten
// version of the same logical change: same ChangeId, author, message,
// and committer, but new parents and tree (§4.3 step 5). The Hash field
// is left zero; the store assigns it on write, since it is
// content-addressed.
func (c *Commit) WithRewrite(parents []plumbing.Hash, tree plumbing.Hash) *Commit {
	return &Commit{
		ChangeId:  c.ChangeId,
		Parents:   parents,
		Tree:      tree,
		Author:    c.Author,
		Committer: c.Committer,
		Message:   c.Message,
	}
}

// HasParent reports whether p appears in c's parent list.
func (c *Commit) HasParent(p plumbing.Hash) bool {
	for _, h := range c.Parents {
		if h == p {
			return true
		}
	}
	return false
}

// IsRoot reports whether c is a commit with no parents (only the
// synthetic root should satisfy this once a repository is populated).
func (c *Commit) IsRoot() bool {
	return len(c.Parents) == 0
}
