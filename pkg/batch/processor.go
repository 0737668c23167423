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

package batch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/failure"
	"github.com/walteh/docrc/pkg/generate"
	"github.com/walteh/docrc/pkg/ignore"
	"github.com/walteh/docrc/pkg/paths"
	"github.com/walteh/docrc/pkg/workflow"
)

// 🔧 Options contains the collaborators of a processor
type Options struct {
	Resolver     *paths.Resolver
	Matcher      *ignore.Matcher
	Generator    generate.Generator
	Orchestrator *workflow.Orchestrator

	// ProgressInterval emits a snapshot every N completions
	ProgressInterval int
	Listener         Listener
}

// 📦 Processor runs the workflow over every candidate of a batch, one at a time
type Processor struct {
	opts Options
	now  func() time.Time
}

// 🏭 NewProcessor creates a processor
func NewProcessor(opts Options) (*Processor, error) {
	if opts.Resolver == nil {
		return nil, errors.Errorf("path resolver is required")
	}
	if opts.Matcher == nil {
		return nil, errors.Errorf("ignore matcher is required")
	}
	if opts.Generator == nil {
		return nil, errors.Errorf("generator is required")
	}
	if opts.Orchestrator == nil {
		return nil, errors.Errorf("orchestrator is required")
	}
	return &Processor{opts: opts, now: time.Now}, nil
}

// 🗺️ Plan resolves inputs into the sorted, deduplicated candidate list.
// Nothing is mutated.
func (p *Processor) Plan(ctx context.Context, inputs []string) ([]string, error) {
	logger := zerolog.Ctx(ctx)
	if len(inputs) == 0 {
		inputs = []string{"."}
	}

	seen := map[string]bool{}
	var out []string
	add := func(rel string) {
		if !seen[rel] {
			seen[rel] = true
			out = append(out, rel)
		}
	}

	for _, input := range inputs {
		rel, err := p.opts.Resolver.ResolveInput(input)
		if err != nil {
			return nil, err
		}
		if p.excluded(rel) {
			logger.Debug().Str("input", input).Msg("input is inside the docrc store, skipping")
			continue
		}

		info, err := os.Stat(p.opts.Resolver.Abs(rel))
		if err == nil && info.IsDir() {
			files, err := p.walk(ctx, rel)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
			continue
		}

		// missing files stay candidates so that validation reports them
		if !p.opts.Matcher.ShouldIgnore(rel) {
			add(rel)
		}
	}

	sort.Strings(out)
	logger.Debug().Strs("inputs", inputs).Int("candidates", len(out)).Msg("planned batch")
	return out, nil
}

// excluded reports paths that are never documentation sources
func (p *Processor) excluded(rel string) bool {
	if rel == "." {
		return false
	}
	return p.opts.Resolver.IsWithinStore(rel) || p.opts.Resolver.IsWithinDocRoot(rel)
}

// walk lists the non-ignored regular files under dir, pruning what it can
func (p *Processor) walk(ctx context.Context, dir string) ([]string, error) {
	root := p.opts.Resolver.Root()
	var files []string

	err := filepath.WalkDir(p.opts.Resolver.Abs(dir), func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				zerolog.Ctx(ctx).Warn().Str("path", failure.Sanitize(abs, root)).Msg("skipping unreadable path")
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			return err
		}

		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if p.excluded(rel) || p.opts.Matcher.CanPrune(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		// symlinks could point outside the project
		if !d.Type().IsRegular() {
			return nil
		}
		if !p.opts.Matcher.ShouldIgnore(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", filepath.ToSlash(dir), failure.SanitizeError(err, root))
	}
	return files, nil
}

// ▶️ Process plans inputs and runs every candidate.
func (p *Processor) Process(ctx context.Context, inputs []string) (*Summary, error) {
	candidates, err := p.Plan(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, candidates)
}

// ▶️ Run documents the planned candidates in order. A failed file never stops
// the batch; an unrecoverable one stops everything after it. Cancellation is
// honoured between files only.
func (p *Processor) Run(ctx context.Context, candidates []string) (*Summary, error) {
	logger := zerolog.Ctx(ctx)
	start := p.now()

	agg := NewAggregator(candidates)
	if len(candidates) == 0 {
		logger.Info().Msg("no files to document")
		sum := agg.Summarize()
		sum.Elapsed = p.now().Sub(start)
		return sum, nil
	}

	if err := p.opts.Generator.Load(ctx); err != nil {
		return nil, failure.Wrap(failure.GenerationFailed, "", errors.Errorf("loading templates: %w", err))
	}

	validation, err := p.opts.Orchestrator.Validator().ValidateBatch(ctx, candidates)
	if err != nil {
		return nil, err
	}

	tracker := NewTracker(len(candidates), p.opts.ProgressInterval, p.opts.Listener)
	var aborted bool
	var abortReason string

	for _, file := range candidates {
		if err := ctx.Err(); err != nil {
			aborted, abortReason = true, "cancelled: "+err.Error()
			logger.Warn().Err(err).Msg("batch cancelled")
			break
		}

		tracker.Start(file)

		var outcome Outcome
		if ferr, ok := validation.Invalid[file]; ok {
			outcome = OutcomeFromError(ferr)
		} else {
			res := p.opts.Orchestrator.Run(context.WithoutCancel(ctx), file)
			outcome = OutcomeFromResult(res)
		}

		if err := agg.Add(file, outcome); err != nil {
			return nil, err
		}
		tracker.Complete(file, outcome)

		if outcome.Kind == failure.UnrecoverableFailure {
			aborted, abortReason = true, outcome.Reason
			logger.Error().Str("file", file).Msg("unrecoverable failure, stopping batch")
			break
		}
	}

	tracker.Finish()

	sum := agg.Summarize()
	sum.Aborted = aborted
	sum.AbortReason = abortReason
	sum.Elapsed = p.now().Sub(start)

	logger.Info().
		Int("processed", sum.Processed).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Bool("aborted", sum.Aborted).
		Msg("batch finished")
	return sum, nil
}
