// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"

	"github.com/wren-vcs/wren/pkg/config"
	"github.com/wren-vcs/wren/pkg/rebase"
)

// Abandon runs a rebase session that additionally abandons the named
// commits, on top of whatever the graph file's own "abandoned" list
// already declares. It exists so a one-off abandon doesn't require
// editing the graph file by hand.
type Abandon struct {
	Labels []string `arg:"" help:"Commit labels to abandon"`
}

func (c *Abandon) Run(g *Globals) error {
	if len(c.Labels) == 0 {
		return ErrArgRequired
	}
	doc, err := loadGraphFile(g.Graph)
	if err != nil {
		return err
	}
	graph, err := build(doc)
	if err != nil {
		return err
	}
	for _, label := range c.Labels {
		id, ok := graph.byLabel[label]
		if !ok {
			return fmt.Errorf("wren: abandon references unknown commit %q", label)
		}
		graph.abandoned = append(graph.abandoned, id)
	}

	policy := config.EmptyBranchDelete
	if graph.policyName == string(config.EmptyBranchPreserve) {
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
	for _, d := range descendants {
		if d.OldID == d.NewID {
			continue
		}
		fmt.Printf("%s -> %s\n", graph.label(d.OldID), graph.label(d.NewID))
	}
	return nil
}
