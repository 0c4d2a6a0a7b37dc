// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"sort"

	"github.com/wren-vcs/wren/modules/plumbing"
)

// FileMode is a restricted subset of the POSIX mode bits a TreeEntry
// needs to distinguish regular files from executables.
type FileMode uint32

const (
	ModeFile FileMode = 0o100644
	ModeExec FileMode = 0o100755
)

// TreeEntry is one path entry of a Tree: Name is the entry's full,
// slash-separated path and Hash identifies its FileId (blob content).
// Paths are flat rather than nested per-directory subtrees, a
// simplification of §3's "mapping from path to (FileId, executable-bit)
// or to a subtree" — on-disk tree/directory representation is itself
// out of scope per §1 (external commit/tree storage).
type TreeEntry struct {
	Name string        `json:"name"`
	Mode FileMode      `json:"mode"`
	Hash plumbing.Hash `json:"hash"`
}

func (e TreeEntry) Equal(o TreeEntry) bool {
	return e.Name == o.Name && e.Mode == o.Mode && e.Hash == o.Hash
}

// Tree is the content-addressed mapping from full path to entry
// described by §3. Entries are kept sorted by Name so two trees with
// the same contents always hash to the same TreeId regardless of
// construction order.
type Tree struct {
	Entries []TreeEntry `json:"entries"`
}

// NewTree builds a Tree from entries, normalizing their order.
func NewTree(entries []TreeEntry) *Tree {
	t := &Tree{Entries: append([]TreeEntry(nil), entries...)}
	t.Sort()
	return t
}

func (t *Tree) Sort() {
	sort.Slice(t.Entries, func(i, j int) bool { return t.Entries[i].Name < t.Entries[j].Name })
}

// Find returns the entry named name, if present.
func (t *Tree) Find(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}

// Equal reports whether t and o contain the same entries (order
// independent once both are sorted, which NewTree guarantees).
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Entries) != len(o.Entries) {
		return false
	}
	for i, e := range t.Entries {
		if !e.Equal(o.Entries[i]) {
			return false
		}
	}
	return true
}

// With returns a copy of t with name set to entry (added or
// replaced), or removed if ok is false.
func (t *Tree) With(name string, entry TreeEntry, ok bool) *Tree {
	entries := make([]TreeEntry, 0, len(t.Entries)+1)
	found := false
	for _, e := range t.Entries {
		if e.Name == name {
			found = true
			if ok {
				entries = append(entries, entry)
			}
			continue
		}
		entries = append(entries, e)
	}
	if ok && !found {
		entries = append(entries, entry)
	}
	return NewTree(entries)
}
