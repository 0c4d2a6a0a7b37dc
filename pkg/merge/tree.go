// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package merge

import (
	"context"

	"github.com/wren-vcs/wren/modules/object"
	"github.com/wren-vcs/wren/modules/plumbing"
)

// GetBlob reads file content by its FileId.
type GetBlob func(id plumbing.Hash) ([]byte, error)

// PutBlob stores merged file content, returning its FileId.
type PutBlob func(content []byte) (plumbing.Hash, error)

// MergeTrees performs the pairwise 3-way tree merge the Commit Rewriter
// composes when the new parent set diverges from the old one (spec.md
// §4.3 step 4). Each path in the union of base/left/right is resolved
// independently:
//
//   - unchanged on one side: take the other side's entry (fast-forward);
//   - changed identically on both sides: take that entry (converged edit);
//   - changed differently on both sides, both still present and both
//     regular files: merge content with merger, embedding conflict
//     markers rather than failing;
//   - one side deleted, the other modified: the modification wins, same
//     as jj's and git's default merge-driver behavior;
//   - deleted on both sides: the path is dropped.
func MergeTrees(ctx context.Context, merger TextMerger, base, left, right *object.Tree, getBlob GetBlob, putBlob PutBlob) (*object.Tree, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	names := make(map[string]struct{})
	for _, t := range []*object.Tree{base, left, right} {
		if t == nil {
			continue
		}
		for _, e := range t.Entries {
			names[e.Name] = struct{}{}
		}
	}

	var entries []object.TreeEntry
	for name := range names {
		baseEntry, baseOk := findEntry(base, name)
		leftEntry, leftOk := findEntry(left, name)
		rightEntry, rightOk := findEntry(right, name)

		leftChanged := !entryEqual(baseEntry, baseOk, leftEntry, leftOk)
		rightChanged := !entryEqual(baseEntry, baseOk, rightEntry, rightOk)

		var resolved object.TreeEntry
		var ok bool
		switch {
		case !leftChanged && !rightChanged:
			resolved, ok = baseEntry, baseOk
		case !leftChanged:
			resolved, ok = rightEntry, rightOk
		case !rightChanged:
			resolved, ok = leftEntry, leftOk
		case entryEqual(leftEntry, leftOk, rightEntry, rightOk):
			resolved, ok = leftEntry, leftOk
		case !leftOk && !rightOk:
			ok = false
		case leftOk != rightOk:
			// modify/delete conflict: the modification wins.
			if leftOk {
				resolved, ok = leftEntry, true
			} else {
				resolved, ok = rightEntry, true
			}
		default:
			merged, err := mergeFileContent(ctx, merger, getBlob, putBlob, baseEntry, baseOk, leftEntry, rightEntry)
			if err != nil {
				return nil, err
			}
			resolved, ok = merged, true
		}
		if ok {
			entries = append(entries, resolved)
		}
	}
	return object.NewTree(entries), nil
}

func mergeFileContent(ctx context.Context, merger TextMerger, getBlob GetBlob, putBlob PutBlob, baseEntry object.TreeEntry, baseOk bool, left, right object.TreeEntry) (object.TreeEntry, error) {
	var baseContent []byte
	if baseOk {
		b, err := getBlob(baseEntry.Hash)
		if err != nil {
			return object.TreeEntry{}, err
		}
		baseContent = b
	}
	leftContent, err := getBlob(left.Hash)
	if err != nil {
		return object.TreeEntry{}, err
	}
	rightContent, err := getBlob(right.Hash)
	if err != nil {
		return object.TreeEntry{}, err
	}

	merged, _, err := merger.Merge(ctx, string(baseContent), string(leftContent), string(rightContent))
	if err != nil {
		return object.TreeEntry{}, err
	}
	id, err := putBlob([]byte(merged))
	if err != nil {
		return object.TreeEntry{}, err
	}
	mode := left.Mode
	if left.Mode != right.Mode {
		mode = left.Mode // deliberate: mode conflicts favor the left side
	}
	return object.TreeEntry{Name: left.Name, Mode: mode, Hash: id}, nil
}

func findEntry(t *object.Tree, name string) (object.TreeEntry, bool) {
	if t == nil {
		return object.TreeEntry{}, false
	}
	return t.Find(name)
}

func entryEqual(a object.TreeEntry, aOk bool, b object.TreeEntry, bOk bool) bool {
	if aOk != bOk {
		return false
	}
	if !aOk {
		return true
	}
	return a.Equal(b)
}
