// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/wren-vcs/wren/pkg/rebase"
)

// Log prints the graph file's commits in input order, along with the
// current branch targets and any change ids the rebaser has flagged as
// divergent during this session (spec.md's supplemented
// divergent-change reporting surface).
type Log struct {
	JSON bool `name:"json" short:"j" help:"Data will be returned in JSON format"`
}

type logEntry struct {
	Label    string   `json:"label"`
	Parents  []string `json:"parents"`
	Message  string   `json:"message"`
	ChangeId string   `json:"change_id"`
}

type logReport struct {
	GeneratedAt string            `json:"generated_at"`
	Commits     []logEntry        `json:"commits"`
	Branches    map[string]string `json:"branches"`
	Divergent   []string          `json:"divergent_change_ids"`
}

func (c *Log) Run(g *Globals) error {
	doc, err := loadGraphFile(g.Graph)
	if err != nil {
		return err
	}
	graph, err := build(doc)
	if err != nil {
		return err
	}
	ctx := context.Background()
	// Seeding a rebaser with the document's rewrites records every change
	// id rewritten to two or more commits; no commit is rewritten here.
	if _, err := rebase.New(graph.store, graph.repo, graph.rewrites, graph.abandoned); err != nil {
		return err
	}

	report := logReport{
		GeneratedAt: nowRFC3339(),
		Branches:    make(map[string]string),
		Divergent:   graph.repo.DivergentChangeIDs(ctx),
	}
	for _, spec := range doc.Commits {
		id := graph.byLabel[spec.Label]
		commit, err := graph.store.GetCommit(ctx, id)
		if err != nil {
			return err
		}
		report.Commits = append(report.Commits, logEntry{
			Label:    spec.Label,
			Parents:  spec.Parents,
			Message:  spec.Message,
			ChangeId: string(commit.ChangeId),
		})
	}
	for name, label := range doc.Branches {
		report.Branches[name] = label
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(report)
	}
	for _, e := range report.Commits {
		fmt.Printf("%s %v %q\n", e.Label, e.Parents, e.Message)
	}
	for name, label := range report.Branches {
		fmt.Printf("branch %s -> %s\n", name, label)
	}
	if len(report.Divergent) > 0 {
		fmt.Printf("divergent change ids: %v\n", report.Divergent)
	}
	return nil
}
