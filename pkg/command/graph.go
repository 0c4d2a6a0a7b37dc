// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/wren-vcs/wren/modules/object"
	"github.com/wren-vcs/wren/modules/plumbing"
	"github.com/wren-vcs/wren/pkg/merge"
	"github.com/wren-vcs/wren/pkg/repo"
	"github.com/wren-vcs/wren/pkg/store"
)

// rootLabel is the one label every graph document may reference without
// declaring it: the synthetic root commit every MemoryStore is seeded
// with (store.RootCommitID).
const rootLabel = "root"

// commitSpec is one entry of a graph document's "commits" array. Tree
// content is out of scope for this frontend (pkg/merge only exercises
// its blob path when two parents actually touch the same file, which a
// label-only graph never does), so every commit gets a distinct,
// deterministic single-entry tree keyed by its own label.
type commitSpec struct {
	Label   string   `json:"label"`
	Parents []string `json:"parents"`
	Message string   `json:"message"`
}

// graphDocument is the on-disk shape cmd/wren reads and writes. It is a
// stand-in for a real repository: commit/tree storage and revset
// resolution are external collaborators the rebaser core does not own
// (spec.md §1), so exercising it end to end needs some concrete input,
// and a label-addressed JSON description is the simplest one that
// still exercises every shape RecordRewrite/RecordAbandon/RebaseAll
// take.
type graphDocument struct {
	Commits           []commitSpec        `json:"commits"`
	Branches          map[string]string   `json:"branches"`
	Rewrites          map[string][]string `json:"rewrites"`
	Abandoned         []string            `json:"abandoned"`
	EmptyBranchPolicy string               `json:"empty_branch_policy"`
}

// loadedGraph is a graphDocument realized into a CommitStore and
// MutableRepo, with the label<->Hash correspondence kept around so
// results can be reported back in the document's own vocabulary.
type loadedGraph struct {
	store      *store.MemoryStore
	repo       *repo.InMemoryRepo
	byLabel    map[string]plumbing.Hash
	labelOf    map[plumbing.Hash]string
	branches   []string
	rewrites   map[plumbing.Hash][]plumbing.Hash
	abandoned  []plumbing.Hash
	policyName string
}

func loadGraphFile(path string) (*graphDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc graphDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("wren: parse %s: %w", path, err)
	}
	return &doc, nil
}

func build(doc *graphDocument) (*loadedGraph, error) {
	s, err := store.NewMemoryStore(merge.DefaultTextMerger{})
	if err != nil {
		return nil, err
	}
	byLabel := map[string]plumbing.Hash{rootLabel: store.RootCommitID}
	labelOf := map[plumbing.Hash]string{store.RootCommitID: rootLabel}
	parents := map[plumbing.Hash][]plumbing.Hash{store.RootCommitID: nil}
	allCommits := []plumbing.Hash{store.RootCommitID}

	ctx := context.Background()
	for _, spec := range doc.Commits {
		if _, exists := byLabel[spec.Label]; exists {
			return nil, fmt.Errorf("wren: duplicate commit label %q", spec.Label)
		}
		var ps []plumbing.Hash
		for _, pl := range spec.Parents {
			ph, ok := byLabel[pl]
			if !ok {
				return nil, fmt.Errorf("wren: commit %q references unknown parent %q (commits must be listed parent-before-child)", spec.Label, pl)
			}
			ps = append(ps, ph)
		}
		tree, err := commitTree(ctx, s, spec.Label)
		if err != nil {
			return nil, err
		}
		c := &object.Commit{
			ChangeId: object.NewChangeId(),
			Parents:  ps,
			Tree:     tree,
			Author:   object.Signature{Name: "wren", Email: "wren@localhost"},
			Message:  spec.Message,
		}
		c.Committer = c.Author
		id, err := s.WriteCommit(ctx, c)
		if err != nil {
			return nil, err
		}
		byLabel[spec.Label] = id
		labelOf[id] = spec.Label
		parents[id] = ps
		allCommits = append(allCommits, id)
	}

	r := repo.NewInMemoryRepo(store.RootCommitID, allCommits, parents)
	var branchNames []string
	for name, label := range doc.Branches {
		id, ok := byLabel[label]
		if !ok {
			return nil, fmt.Errorf("wren: branch %q references unknown commit %q", name, label)
		}
		if err := r.SetLocalBranch(ctx, name, plumbing.NewNormal(id)); err != nil {
			return nil, err
		}
		branchNames = append(branchNames, name)
	}

	rewrites := make(map[plumbing.Hash][]plumbing.Hash, len(doc.Rewrites))
	for fromLabel, toLabels := range doc.Rewrites {
		from, ok := byLabel[fromLabel]
		if !ok {
			return nil, fmt.Errorf("wren: rewrite references unknown commit %q", fromLabel)
		}
		for _, toLabel := range toLabels {
			to, ok := byLabel[toLabel]
			if !ok {
				return nil, fmt.Errorf("wren: rewrite of %q references unknown destination %q", fromLabel, toLabel)
			}
			rewrites[from] = append(rewrites[from], to)
		}
	}
	var abandoned []plumbing.Hash
	for _, label := range doc.Abandoned {
		id, ok := byLabel[label]
		if !ok {
			return nil, fmt.Errorf("wren: abandon references unknown commit %q", label)
		}
		abandoned = append(abandoned, id)
	}

	return &loadedGraph{
		store:      s,
		repo:       r,
		byLabel:    byLabel,
		labelOf:    labelOf,
		branches:   branchNames,
		rewrites:   rewrites,
		abandoned:  abandoned,
		policyName: doc.EmptyBranchPolicy,
	}, nil
}

// commitTree gives every labeled commit a single-entry tree named after
// its own label, so distinct commits never hash to the same tree and
// composeTree's fast paths (fast-forward, converged) are exercised the
// same way a real content change would exercise them.
func commitTree(ctx context.Context, s *store.MemoryStore, label string) (plumbing.Hash, error) {
	blobID, err := s.WriteBlob(ctx, []byte(label+"\n"))
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return s.WriteTree(ctx, object.NewTree([]object.TreeEntry{{Name: label, Mode: object.ModeFile, Hash: blobID}}))
}

// label returns a display name for id: its original label if the
// document declared one, otherwise its hex id (Hash.Prefix), since rewrites
// mint brand-new commit ids that were never part of the input document.
func (g *loadedGraph) label(id plumbing.Hash) string {
	if l, ok := g.labelOf[id]; ok {
		return l
	}
	return id.Prefix()
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
