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
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/docdir"
	"github.com/walteh/docrc/pkg/failure"
	"github.com/walteh/docrc/pkg/generate"
	"github.com/walteh/docrc/pkg/paths"
	"github.com/walteh/docrc/pkg/vcs"
)

// 🔧 Options contains the collaborators and settings of an orchestrator
type Options struct {
	Backend   vcs.Backend
	Generator generate.Generator
	Resolver  *paths.Resolver
	Docs      *docdir.Manager

	// Resolver for conflicts when no strategy is configured, optional
	ConflictResolver ConflictResolver
	// Strategy is the configured conflict strategy, optional
	Strategy Strategy
	// Force skips the conflict resolver and applies Strategy, or overwrite
	Force bool

	AutoCommit    bool
	CommitMessage string
	ProjectName   string
	Variables     map[string]string // user template variables

	// NewID returns workflow ids, defaults to uuid.NewString
	NewID func() string
	// Now is the clock used for template dates, defaults to time.Now
	Now func() time.Time
}

// 🎼 Orchestrator runs one file's workflow: validate, resolve conflicts,
// back up, execute and roll back on failure
type Orchestrator struct {
	opts      Options
	validator *Validator
	executor  *Executor
	backups   *BackupManager
}

// 🏭 New creates an orchestrator with the given options
func New(opts Options) (*Orchestrator, error) {
	if opts.Backend == nil {
		return nil, errors.Errorf("backend is required")
	}
	if opts.Generator == nil {
		return nil, errors.Errorf("generator is required")
	}
	if opts.Resolver == nil {
		return nil, errors.Errorf("path resolver is required")
	}
	if opts.Docs == nil {
		return nil, errors.Errorf("directory manager is required")
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ProjectName == "" {
		opts.ProjectName = filepath.Base(opts.Resolver.Root())
	}

	return &Orchestrator{
		opts:      opts,
		validator: NewValidator(opts.Backend, opts.Docs, opts.Resolver),
		executor:  NewExecutor(opts.Generator, opts.Backend, opts.Docs, opts.Resolver, opts.AutoCommit, opts.CommitMessage),
		backups:   NewBackupManager(opts.Backend, opts.Docs),
	}, nil
}

// Validator returns the validator, shared with batch runs.
func (o *Orchestrator) Validator() *Validator { return o.validator }

// Backups returns the backup manager.
func (o *Orchestrator) Backups() *BackupManager { return o.backups }

// 📋 Result is what Run hands back; the state is a copy owned by the caller
type Result struct {
	State     State
	Conflict  *Conflict
	Skipped   bool
	Backup    *BackupRecord
	Execution *ExecutionResult
	Rollback  *RollbackResult
}

// Err is the classified failure, nil on success or skip.
func (r *Result) Err() *failure.Error { return r.State.Err }

// Succeeded reports a completed, non-skipped workflow.
func (r *Result) Succeeded() bool {
	return r.State.Stage == StageCompleted && !r.Skipped
}

// Unrecoverable reports that a rollback failed and the store may be inconsistent.
func (r *Result) Unrecoverable() bool {
	return r.State.Err != nil && r.State.Err.Kind == failure.UnrecoverableFailure
}

// ▶️ Run executes the workflow for one project-relative source file.
// The workflow always reaches a terminal stage before Run returns.
func (o *Orchestrator) Run(ctx context.Context, file string) *Result {
	st := newState(o.opts.NewID(), file)
	logger := zerolog.Ctx(ctx).With().Str("workflow", st.WorkflowID).Str("file", file).Logger()
	ctx = logger.WithContext(ctx)

	res := &Result{}
	defer func() {
		res.State = *st
	}()

	if err := o.validator.ValidatePreconditions(ctx, file); err != nil {
		st.fail(asFailure(failure.KindOf(err), file, err))
		logger.Debug().Err(err).Msg("validation failed")
		return res
	}
	if err := st.advance(StageValidated); err != nil {
		st.fail(failure.Wrap(failure.KindUnknown, file, err))
		return res
	}

	unit := paths.UnitPath(file)
	conflict, ferr := o.checkConflict(ctx, file, unit)
	if ferr != nil {
		res.Conflict = conflict
		st.fail(ferr)
		return res
	}
	res.Conflict = conflict
	if conflict != nil && conflict.Strategy == StrategySkip {
		logger.Info().Msg("skipping existing documentation")
		res.Skipped = true
		if err := st.advance(StageCompleted); err != nil {
			st.fail(failure.Wrap(failure.KindUnknown, file, err))
		}
		return res
	}

	rec, err := o.backups.CreateBackup(ctx, st.WorkflowID, artifactPaths(unit)...)
	if err != nil {
		st.fail(asFailure(failure.BackupCreationFailed, file, err))
		return res
	}
	res.Backup = rec
	st.BackupTag = rec.Tag
	if err := st.advance(StageBackedUp); err != nil {
		st.fail(failure.Wrap(failure.KindUnknown, file, err))
		o.release(ctx, st, rec)
		return res
	}

	if conflict != nil && o.copiesBeforeOverwrite(conflict.Strategy) {
		backup, err := o.opts.Docs.BackupArtifacts(ctx, unit)
		if err != nil {
			st.fail(asFailure(failure.BackupCreationFailed, file, err))
			o.release(ctx, st, rec)
			return res
		}
		conflict.Backup = backup
	}

	vars := generate.BuildVariables(generate.VariableInput{
		Source:      file,
		DocPath:     o.opts.Resolver.ToDocumentationPath(file),
		ProjectName: o.opts.ProjectName,
		WorkflowID:  st.WorkflowID,
		Now:         o.opts.Now(),
		User:        o.opts.Variables,
	})

	exec := o.executor.Execute(ctx, st, vars)
	res.Execution = exec
	if exec.Success {
		o.release(ctx, st, rec)
		return res
	}

	if exec.Err == nil || !exec.Err.Kind.TriggersRollback() {
		o.release(ctx, st, rec)
		return res
	}

	rb, err := o.backups.Rollback(ctx, rec)
	if err != nil {
		logger.Error().Err(err).Msg("rollback failed")
		st.escalate(failure.Wrap(failure.UnrecoverableFailure, file,
			errors.Errorf("%s, then rollback failed: %w", exec.Err.Error(), failure.SanitizeError(err, o.opts.Resolver.Root()))))
		return res
	}
	res.Rollback = rb
	if err := st.rolledBack(); err != nil {
		logger.Warn().Err(err).Msg("marking rollback")
	}
	o.release(ctx, st, rec)
	return res
}

// checkConflict decides how to treat existing artifacts. It returns a nil
// conflict when there is nothing on disk.
func (o *Orchestrator) checkConflict(ctx context.Context, file, unit string) (*Conflict, *failure.Error) {
	existing, err := o.opts.Docs.ExistingArtifacts(ctx, unit)
	if err != nil {
		return nil, failure.Wrap(failure.PermissionDenied, file, failure.SanitizeError(err, o.opts.Resolver.Root()))
	}
	if len(existing) == 0 {
		return nil, nil
	}

	c := &Conflict{Path: file, Unit: filepath.ToSlash(unit)}
	for _, name := range docdir.Artifacts {
		if _, ok := existing[name]; ok {
			c.Existing = append(c.Existing, name)
		}
	}

	switch {
	case o.opts.Force:
		c.Strategy = o.opts.Strategy
		if c.Strategy == StrategyNone {
			c.Strategy = StrategyOverwrite
		}
	case o.opts.Strategy != StrategyNone:
		c.Strategy = o.opts.Strategy
	case o.opts.ConflictResolver != nil:
		strategy, err := o.opts.ConflictResolver.Resolve(ctx, *c)
		if err != nil {
			return c, failure.Wrap(failure.ConflictUnresolved, file, err)
		}
		c.Strategy = strategy
	}

	if c.Strategy == StrategyNone {
		return c, failure.New(failure.ConflictUnresolved, file, "documentation already exists and no conflict strategy was given")
	}
	zerolog.Ctx(ctx).Debug().Str("strategy", string(c.Strategy)).Strs("existing", c.Existing).Msg("resolved conflict")
	return c, nil
}

// copiesBeforeOverwrite reports whether existing artifacts are copied aside first
func (o *Orchestrator) copiesBeforeOverwrite(s Strategy) bool {
	return s == StrategyBackupThenOverwrite || (o.opts.Force && s == StrategyOverwrite)
}

// release drops the restore point; a failure only leaves a stale tag behind
func (o *Orchestrator) release(ctx context.Context, st *State, rec *BackupRecord) {
	if err := o.backups.Release(ctx, rec); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("tag", rec.Tag).Msg("releasing restore point")
		return
	}
	st.BackupTag = ""
}

// artifactPaths lists the work-tree paths of a unit's artifacts
func artifactPaths(unit string) []string {
	out := make([]string, 0, len(docdir.Artifacts))
	for _, name := range docdir.Artifacts {
		out = append(out, path.Join(filepath.ToSlash(unit), docdir.ArtifactFile(name)))
	}
	return out
}

// asFailure keeps an existing classification or applies kind
func asFailure(kind failure.Kind, file string, err error) *failure.Error {
	var fe *failure.Error
	if errors.As(err, &fe) {
		return fe
	}
	return failure.Wrap(kind, file, err)
}
