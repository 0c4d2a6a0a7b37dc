// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wren-vcs/wren/pkg/config"
	"github.com/wren-vcs/wren/pkg/rebase"
)

// Rebase runs a full descendant-rebase session over the graph file's
// rewrites/abandoned sets and reports every commit it touched.
type Rebase struct {
	JSON bool `name:"json" short:"j" help:"Print results as JSON"`
}

type rebaseResult struct {
	Old        string   `json:"old"`
	New        string   `json:"new"`
	NewParents []string `json:"new_parents"`
	NoOp       bool     `json:"no_op"`
	Simplified bool     `json:"simplified"`
}

func (c *Rebase) Run(g *Globals) error {
	doc, err := loadGraphFile(g.Graph)
	if err != nil {
		return err
	}
	graph, err := build(doc)
	if err != nil {
		return err
	}

	policy := config.EmptyBranchDelete
	if doc.EmptyBranchPolicy == string(config.EmptyBranchPreserve) {
		policy = config.EmptyBranchPreserve
	}

	ctx := context.Background()
	rb, err := rebase.New(graph.store, graph.repo, graph.rewrites, graph.abandoned)
	if err != nil {
		return err
	}
	descendants, err := rb.RebaseAll(ctx, graph.branches, policy)
	if err != nil {
		return err
	}

	results := make([]rebaseResult, 0, len(descendants))
	for _, d := range descendants {
		r := rebaseResult{
			Old:        graph.label(d.OldID),
			New:        graph.label(d.NewID),
			NoOp:       d.OldID == d.NewID,
			Simplified: d.Simplified,
		}
		for _, p := range d.NewParents {
			r.NewParents = append(r.NewParents, graph.label(p))
		}
		results = append(results, r)
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(results)
	}
	for _, r := range results {
		if r.NoOp {
			g.DbgPrint("%s unchanged", r.Old)
			continue
		}
		fmt.Printf("%s -> %s (parents: %v)\n", r.Old, r.New, r.NewParents)
	}
	for _, name := range graph.branches {
		target, ok, err := graph.repo.GetLocalBranch(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("branch %s deleted\n", name)
			continue
		}
		fmt.Printf("branch %s -> %s\n", name, target.String())
	}
	return nil
}
