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
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/docrc/pkg/docdir"
	"github.com/walteh/docrc/pkg/failure"
	"github.com/walteh/docrc/pkg/paths"
	"github.com/walteh/docrc/pkg/vcs"
)

// statConcurrency bounds the existence checks in ValidateBatch
const statConcurrency = 8

// ✅ Validator checks preconditions without mutating anything
type Validator struct {
	backend  vcs.Backend
	docs     *docdir.Manager
	resolver *paths.Resolver
}

// 🏭 NewValidator creates a validator
func NewValidator(backend vcs.Backend, docs *docdir.Manager, resolver *paths.Resolver) *Validator {
	return &Validator{backend: backend, docs: docs, resolver: resolver}
}

// 📦 BatchValidation is the per-path outcome of ValidateBatch
type BatchValidation struct {
	Valid   []string                  // paths that exist, in input order
	Invalid map[string]*failure.Error // paths that failed their own checks
}

// validateShared runs the checks every file in a batch has in common
func (v *Validator) validateShared(ctx context.Context) *failure.Error {
	if !v.backend.Initialized() {
		return failure.New(failure.NotInitialized, "", "documentation repository is not initialized, run 'docrc init'")
	}
	if err := v.docs.VerifyStructure(ctx); err != nil {
		return failure.Wrap(failure.NotInitialized, "", failure.SanitizeError(err, v.resolver.Root()))
	}
	if err := writable(v.docs.DocRoot()); err != nil {
		return failure.New(failure.PermissionDenied, v.resolver.DocRoot(), "documentation root is not writable: %v", err)
	}
	if v.backend.IndexLocked() {
		return failure.New(failure.Busy, "", "the documentation index is locked by another git process")
	}
	return nil
}

// validatePath checks that a source path exists and is a regular file
func (v *Validator) validatePath(file string) *failure.Error {
	info, err := os.Stat(v.resolver.Abs(file))
	switch {
	case err == nil && info.IsDir():
		return failure.New(failure.PathNotFound, file, "is a directory, not a file")
	case err == nil:
		return nil
	case os.IsNotExist(err):
		return failure.New(failure.PathNotFound, file, "file does not exist")
	case os.IsPermission(err):
		return failure.New(failure.PermissionDenied, file, "cannot access file")
	default:
		return failure.Wrap(failure.PathNotFound, file, failure.SanitizeError(err, v.resolver.Root()))
	}
}

// 🔍 ValidatePreconditions checks one file before any mutation
func (v *Validator) ValidatePreconditions(ctx context.Context, file string) error {
	if ferr := v.validateShared(ctx); ferr != nil {
		return ferr
	}
	if ferr := v.validatePath(file); ferr != nil {
		return ferr
	}
	return nil
}

// 🔍 ValidateBatch runs the shared checks once and the path checks per file.
// A shared failure is returned as the error; per-path failures are reported
// in the result.
func (v *Validator) ValidateBatch(ctx context.Context, files []string) (*BatchValidation, error) {
	if ferr := v.validateShared(ctx); ferr != nil {
		return nil, ferr
	}

	results := make([]*failure.Error, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = v.validatePath(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &BatchValidation{Invalid: map[string]*failure.Error{}}
	for i, f := range files {
		if results[i] != nil {
			out.Invalid[f] = results[i]
			continue
		}
		out.Valid = append(out.Valid, f)
	}

	zerolog.Ctx(ctx).Debug().
		Int("valid", len(out.Valid)).
		Int("invalid", len(out.Invalid)).
		Msg("validated batch")
	return out, nil
}
