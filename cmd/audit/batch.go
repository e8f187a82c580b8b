package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stemsi/degree-audit-backend/internal/audit"
	"github.com/stemsi/degree-audit-backend/internal/pdftext"
	"golang.org/x/sync/errgroup"
)

// fileResult is the outcome for one input file. Exactly one of Result and
// Error is set.
type fileResult struct {
	File   string        `json:"file"`
	Result *audit.Result `json:"result,omitempty"`
	Plan   *audit.Plan   `json:"plan,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type batch struct {
	engine    *audit.Engine
	table     audit.RequirementTable
	degreeKey string
	withPlan  bool
	jobs      int
	extract   func([]byte) (string, error)
}

// run audits every file with at most b.jobs in flight. Per-file failures are
// reported in the results; only cancellation stops the batch. Results keep
// the order of files.
func (b *batch) run(ctx context.Context, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if b.jobs > 0 {
		g.SetLimit(b.jobs)
	}

	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.one(file)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *batch) one(file string) fileResult {
	out := fileResult{File: file}

	text, err := b.readText(file)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	if strings.TrimSpace(text) == "" {
		out.Error = "document has no text"
		return out
	}

	if b.degreeKey != "" {
		out.Result = b.engine.RunFor(text, b.table, b.degreeKey)
	} else {
		out.Result = b.engine.Run(text, b.table)
	}

	if b.withPlan {
		cfg := b.engine.Config()
		plan := audit.BuildPlan(out.Result, cfg.PlanYears, cfg.PlanCreditsPerYear, cfg.RemainingCourseUnits)
		out.Plan = &plan
	}
	return out
}

func (b *batch) readText(file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}

	if strings.EqualFold(filepath.Ext(file), ".pdf") {
		extract := b.extract
		if extract == nil {
			extract = pdftext.Extract
		}
		text, err := extract(data)
		if err != nil {
			return "", fmt.Errorf("extract text: %w", err)
		}
		return text, nil
	}
	return string(data), nil
}
