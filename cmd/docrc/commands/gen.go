// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/cmd/docrc/opts"
	"github.com/walteh/docrc/pkg/batch"
	"github.com/walteh/docrc/pkg/failure"
	"github.com/walteh/docrc/pkg/log"
	"github.com/walteh/docrc/pkg/workflow"
)

// genFlags override the configuration for one run
type genFlags struct {
	dryRun      bool
	strategy    string
	force       bool
	commit      bool
	noCommit    bool
	interactive bool
}

func NewGenCmd(o *opts.RootOpts) *cobra.Command {
	flags := &genFlags{}

	cmd := &cobra.Command{
		Use:   "gen [path]...",
		Short: "Generate documentation for files and directories",
		Long: `Gen generates index.md and history.md for every file under the given paths
(the whole project by default). Files are processed one at a time in sorted order.
For each file it will:
1. Validate the file and the documentation store
2. Resolve a conflict with existing documentation, if any
3. Take a restore point in the isolated repository
4. Generate, and optionally commit, the documentation
5. Roll back to the restore point if generation or commit fails`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd.Context(), o, flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "list the files that would be documented and exit")
	cmd.Flags().StringVar(&flags.strategy, "strategy", "", "conflict strategy: overwrite, skip or backup-then-overwrite")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "replace existing documentation without asking, keeping copies")
	cmd.Flags().BoolVar(&flags.commit, "commit", false, "commit generated documentation")
	cmd.Flags().BoolVar(&flags.noCommit, "no-commit", false, "leave generated documentation uncommitted")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "ask how to handle existing documentation")
	cmd.MarkFlagsMutuallyExclusive("commit", "no-commit")
	return cmd
}

func runGen(ctx context.Context, o *opts.RootOpts, flags *genFlags, args []string) error {
	cfg := o.Config

	autoCommit := cfg.AutoCommit
	if flags.commit {
		autoCommit = true
	}
	if flags.noCommit {
		autoCommit = false
	}

	raw := cfg.ConflictStrategy
	if flags.strategy != "" {
		raw = flags.strategy
	}
	strategy, err := workflow.ParseStrategy(raw)
	if err != nil {
		return failure.Wrap(failure.InvalidConfig, "", err)
	}

	matcher, err := o.Matcher(ctx)
	if err != nil {
		return failure.Wrap(failure.InvalidConfig, "", err)
	}

	var resolver workflow.ConflictResolver
	if flags.interactive {
		resolver = workflow.ResolverFunc(promptConflict)
	}

	gen := o.Generator()
	orch, err := workflow.New(workflow.Options{
		Backend:          o.Backend,
		Generator:        gen,
		Resolver:         o.Resolver,
		Docs:             o.Docs,
		ConflictResolver: resolver,
		Strategy:         strategy,
		Force:            flags.force,
		AutoCommit:       autoCommit,
		CommitMessage:    cfg.CommitMessage,
		Variables:        cfg.Templates.Variables,
	})
	if err != nil {
		return errors.Errorf("creating orchestrator: %w", err)
	}

	proc, err := batch.NewProcessor(batch.Options{
		Resolver:         o.Resolver,
		Matcher:          matcher,
		Generator:        gen,
		Orchestrator:     orch,
		ProgressInterval: cfg.ProgressInterval,
		Listener:         &consoleListener{ctx: ctx, logger: o.Logger},
	})
	if err != nil {
		return errors.Errorf("creating processor: %w", err)
	}

	candidates, err := proc.Plan(ctx, args)
	if err != nil {
		return err
	}

	if flags.dryRun {
		for _, c := range candidates {
			o.Logger.Plain(fmt.Sprintf("%s -> %s", filepath.ToSlash(c), filepath.ToSlash(o.Resolver.ToDocumentationPath(c))))
		}
		o.Logger.Infof("%d files would be documented", len(candidates))
		return nil
	}

	inputs := args
	if len(inputs) == 0 {
		inputs = []string{"."}
	}
	o.Logger.Header("generating documentation")
	o.Logger.StartBatch(ctx, log.BatchOperation{
		Inputs:     inputs,
		Candidates: len(candidates),
		DocRoot:    filepath.ToSlash(cfg.DocRoot),
		AutoCommit: autoCommit,
	})

	sum, err := proc.Run(ctx, candidates)
	o.Logger.EndBatch(ctx)
	if err != nil {
		return err
	}

	printSummary(o.Logger, sum)

	switch {
	case sum.Aborted:
		return errors.Errorf("batch stopped after %d of %d files: %s", sum.Processed, len(sum.Candidates), sum.AbortReason)
	case sum.Failed > 0:
		return errors.Errorf("%d of %d files failed", sum.Failed, sum.Processed)
	}
	return nil
}

// 👂 consoleListener turns batch events into console lines
type consoleListener struct {
	ctx    context.Context
	logger *log.Logger
}

func (l *consoleListener) OnEvent(e batch.Event) {
	switch e.Type {
	case batch.EventCompleted:
		l.logger.LogFileOperation(l.ctx, fileOperation(e.Path, *e.Outcome))
	case batch.EventSnapshot:
		l.logger.Progress(e.Snapshot.Processed, e.Snapshot.Total)
	}
}

func fileOperation(path string, out batch.Outcome) log.FileOperation {
	op := log.FileOperation{
		Path:      filepath.ToSlash(path),
		Artifacts: out.Artifacts,
		Conflict:  string(out.Strategy),
	}
	if out.Conflicted && out.Strategy == workflow.StrategyNone {
		op.Conflict = "unresolved"
	}

	switch {
	case out.Status == batch.StatusSkipped:
		op.Outcome = log.OutcomeSkipped
		op.Detail = out.Reason
	case out.Status == batch.StatusSucceeded && out.Unchanged:
		op.Outcome = log.OutcomeUnchanged
	case out.Status == batch.StatusSucceeded:
		op.Outcome = log.OutcomeGenerated
		if out.Commit != "" {
			op.Detail = "committed " + out.Commit
		}
	case out.Kind == failure.UnrecoverableFailure:
		op.Outcome = log.OutcomeFatal
		op.Detail = out.Kind.String()
	case out.RolledBack:
		op.Outcome = log.OutcomeRolledBack
		op.Detail = out.Kind.String()
	default:
		op.Outcome = log.OutcomeFailed
		op.Detail = out.Kind.String()
	}
	return op
}

// promptConflict asks the user what to do with existing documentation
func promptConflict(ctx context.Context, c workflow.Conflict) (workflow.Strategy, error) {
	const abort = "leave it (fail this file)"
	choices := []string{
		string(workflow.StrategyOverwrite),
		string(workflow.StrategyBackupThenOverwrite),
		string(workflow.StrategySkip),
		abort,
	}

	choice, err := pterm.DefaultInteractiveSelect.
		WithOptions(choices).
		WithDefaultOption(string(workflow.StrategySkip)).
		Show(fmt.Sprintf("%s already has documentation", filepath.ToSlash(c.Path)))
	if err != nil {
		return workflow.StrategyNone, errors.Errorf("reading choice: %w", err)
	}
	if choice == abort {
		return workflow.StrategyNone, nil
	}
	return workflow.Strategy(choice), nil
}

// printSummary renders the batch totals and every failure
func printSummary(logger *log.Logger, sum *batch.Summary) {
	data := pterm.TableData{
		{"processed", "succeeded", "failed", "skipped", "success", "elapsed"},
		{
			fmt.Sprint(sum.Processed),
			fmt.Sprint(sum.Succeeded),
			fmt.Sprint(sum.Failed),
			fmt.Sprint(sum.Skipped),
			log.FormatRate(sum.SuccessRate),
			log.FormatDuration(sum.Elapsed),
		},
	}
	if table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender(); err == nil {
		logger.LogNewline()
		logger.Plain(table)
	}

	if len(sum.Errors) > 0 {
		cats := make([]string, 0, len(sum.Errors))
		for c := range sum.Errors {
			cats = append(cats, string(c))
		}
		sort.Strings(cats)
		for _, c := range cats {
			logger.Warningf("%d %s failures", sum.Errors[failure.Category(c)], c)
		}
		for _, p := range sum.Paths(batch.StatusFailed) {
			logger.Errorf("%s: %s", filepath.ToSlash(p), sum.Results[p].Reason)
		}
	}

	if len(sum.Strategies) > 0 {
		for _, s := range []workflow.Strategy{workflow.StrategyOverwrite, workflow.StrategyBackupThenOverwrite, workflow.StrategySkip} {
			if n := sum.Strategies[s]; n > 0 {
				logger.Infof("%d conflicts resolved with %s", n, s)
			}
		}
	}

	if n := len(sum.Unprocessed()); n > 0 {
		logger.Warningf("%d files were not processed", n)
	}
	if sum.OK() {
		logger.Successf("documented %d files", sum.Succeeded)
	}
}
