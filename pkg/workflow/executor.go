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

package workflow

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/docdir"
	"github.com/walteh/docrc/pkg/failure"
	"github.com/walteh/docrc/pkg/generate"
	"github.com/walteh/docrc/pkg/paths"
	"github.com/walteh/docrc/pkg/text"
	"github.com/walteh/docrc/pkg/vcs"
)

// 📦 ExecutionResult is the outcome of one Execute call
type ExecutionResult struct {
	Success        bool
	GeneratedFiles map[string]string // artifact name to absolute path
	Unchanged      bool              // generation found nothing to rewrite
	Commit         *vcs.CommitInfo   // nil without auto commit or with nothing staged
	Err            *failure.Error
	Cleaned        []string // scratch files removed during cleanup
}

// ⚙️ Executor runs generate, commit and cleanup for one file
type Executor struct {
	generator     generate.Generator
	backend       vcs.Backend
	docs          *docdir.Manager
	resolver      *paths.Resolver
	autoCommit    bool
	commitMessage string
}

// 🏭 NewExecutor creates an executor
func NewExecutor(generator generate.Generator, backend vcs.Backend, docs *docdir.Manager, resolver *paths.Resolver, autoCommit bool, commitMessage string) *Executor {
	return &Executor{
		generator:     generator,
		backend:       backend,
		docs:          docs,
		resolver:      resolver,
		autoCommit:    autoCommit,
		commitMessage: commitMessage,
	}
}

// ▶️ Execute runs the stages in order. A generation failure stops before
// commit; a commit failure leaves the written files. Cleanup always runs and
// never changes the outcome.
func (e *Executor) Execute(ctx context.Context, st *State, vars map[string]string) *ExecutionResult {
	logger := zerolog.Ctx(ctx)
	res := &ExecutionResult{}
	unit := paths.UnitPath(st.FilePath)
	created := false

	defer func() {
		e.cleanup(ctx, st, unit, created, res)
	}()

	if err := st.advance(StageGenerating); err != nil {
		res.Err = e.wrap(failure.GenerationFailed, st.FilePath, err)
		st.fail(res.Err)
		return res
	}

	dest, made, err := e.docs.EnsureUnitDir(ctx, unit)
	created = made
	if err != nil {
		res.Err = e.wrap(failure.GenerationFailed, st.FilePath, err)
		st.fail(res.Err)
		return res
	}

	gen, err := e.generator.Generate(ctx, st.FilePath, dest, vars)
	if err != nil {
		res.Err = e.wrap(failure.GenerationFailed, st.FilePath, err)
		st.fail(res.Err)
		return res
	}
	res.GeneratedFiles = gen.Files()
	res.Unchanged = gen.Unchanged()
	st.GeneratedFiles = res.GeneratedFiles
	logger.Debug().Int("artifacts", len(res.GeneratedFiles)).Bool("unchanged", res.Unchanged).Msg("generated")

	if e.autoCommit {
		if err := st.advance(StageCommitting); err != nil {
			res.Err = e.wrap(failure.CommitFailed, st.FilePath, err)
			st.fail(res.Err)
			return res
		}
		info, err := e.commit(ctx, res.GeneratedFiles, vars)
		if err != nil {
			res.Err = e.wrap(failure.CommitFailed, st.FilePath, err)
			st.fail(res.Err)
			return res
		}
		res.Commit = info
	}

	res.Success = true
	return res
}

// wrap classifies err and strips absolute paths from its message
func (e *Executor) wrap(kind failure.Kind, file string, err error) *failure.Error {
	return failure.Wrap(kind, file, failure.SanitizeError(err, e.resolver.Root()))
}

func (e *Executor) commit(ctx context.Context, files map[string]string, vars map[string]string) (*vcs.CommitInfo, error) {
	rels := make([]string, 0, len(files))
	for _, abs := range files {
		rel, err := filepath.Rel(e.docs.DocRoot(), abs)
		if err != nil {
			return nil, errors.Errorf("relativizing %s: %w", filepath.Base(abs), err)
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	sort.Strings(rels)

	if err := e.backend.Add(ctx, rels, true); err != nil {
		return nil, err
	}

	msg, err := text.Render(ctx, e.commitMessage, vars)
	if err != nil {
		return nil, err
	}
	return e.backend.Commit(ctx, string(msg.ModifiedContent))
}

// cleanup removes scratch files and finishes the stage sequence on success.
// A failed workflow also drops the unit directory it created if nothing
// else was written there.
func (e *Executor) cleanup(ctx context.Context, st *State, unit string, created bool, res *ExecutionResult) {
	logger := zerolog.Ctx(ctx)

	if res.Success {
		if err := st.advance(StageCleanup); err != nil {
			logger.Warn().Err(err).Msg("entering cleanup")
		}
	}

	removed, err := e.docs.CleanupTemp(ctx, unit)
	if err != nil {
		logger.Warn().Err(err).Str("unit", unit).Msg("cleanup failed")
	}
	res.Cleaned = removed

	if !res.Success && created {
		if err := e.docs.PruneUnitDir(ctx, unit); err != nil {
			logger.Warn().Err(err).Str("unit", unit).Msg("pruning unit directory")
		}
	}

	if res.Success {
		if err := st.advance(StageCompleted); err != nil {
			logger.Warn().Err(err).Msg("completing workflow")
		}
	}
}
