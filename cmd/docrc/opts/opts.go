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

package opts

import (
	"context"
	"io"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/config"
	"github.com/walteh/docrc/pkg/docdir"
	"github.com/walteh/docrc/pkg/generate"
	"github.com/walteh/docrc/pkg/ignore"
	"github.com/walteh/docrc/pkg/log"
	"github.com/walteh/docrc/pkg/paths"
	"github.com/walteh/docrc/pkg/vcs"
)

// RootOpts holds everything the commands share. It is built once per invocation.
type RootOpts struct {
	Config   *config.Config
	Logger   *log.Logger
	Backend  vcs.Backend
	Resolver *paths.Resolver
	Docs     *docdir.Manager

	// StoreFound is false when no store directory exists above the working directory
	StoreFound bool
}

// 🏭 New locates the project from start and builds the shared collaborators
func New(ctx context.Context, start, storeDir string, console io.Writer) (*RootOpts, error) {
	zlog := zerolog.Ctx(ctx)

	root, found, err := config.FindProjectRoot(start, storeDir)
	if err != nil {
		return nil, errors.Errorf("finding project root: %w", err)
	}

	cfg, err := config.Load(ctx, root, storeDir)
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	resolver, err := paths.New(root, cfg.DocRoot, cfg.StoreDir)
	if err != nil {
		return nil, errors.Errorf("creating path resolver: %w", err)
	}
	if start != "" && start != "." {
		abs, err := filepath.Abs(start)
		if err != nil {
			return nil, errors.Errorf("resolving %s: %w", start, err)
		}
		resolver.Getwd = func() (string, error) { return abs, nil }
	}

	zlog.Debug().Str("root", root).Bool("store_found", found).Msg("resolved project")

	return &RootOpts{
		Config:     cfg,
		Logger:     log.New(console, *zlog),
		Backend:    vcs.FromConfig(cfg),
		Resolver:   resolver,
		Docs:       docdir.FromConfig(cfg),
		StoreFound: found,
	}, nil
}

// 🎯 Matcher loads the ignore rules. The store, the doc root and the ignore
// file itself are never documentation sources.
func (o *RootOpts) Matcher(ctx context.Context) (*ignore.Matcher, error) {
	cfg := o.Config
	extra := []string{
		"/" + filepath.ToSlash(cfg.StoreDir) + "/",
		"/" + filepath.ToSlash(cfg.DocRoot) + "/",
		"/" + filepath.ToSlash(cfg.IgnoreFile),
	}
	m, err := ignore.Load(ctx, ignore.Options{
		File:            cfg.IgnoreFilePath(),
		Extra:           slices.Compact(extra),
		DisableDefaults: cfg.DisableDefaultIgnores,
	})
	if err != nil {
		return nil, errors.Errorf("loading ignore rules: %w", err)
	}
	return m, nil
}

// 📝 Generator creates the template generator for this project
func (o *RootOpts) Generator() *generate.TemplateGenerator {
	vars := make([]string, 0, len(o.Config.Templates.Variables))
	for k := range o.Config.Templates.Variables {
		vars = append(vars, k)
	}
	slices.Sort(vars)
	return generate.NewTemplateGenerator(o.Config.TemplatesPath(), o.Docs, vars)
}

// DocPaths maps arguments to work-tree paths. An argument may name a source
// file (mapped to its documentation unit) or a path inside the doc root.
func (o *RootOpts) DocPaths(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		rel, err := o.Resolver.ResolveInput(arg)
		if err != nil {
			return nil, err
		}
		if !o.Resolver.IsWithinDocRoot(rel) {
			rel = o.Resolver.ToDocumentationPath(rel)
		}
		wt, err := o.Resolver.ToWorkTreePath(rel)
		if err != nil {
			return nil, err
		}
		out = append(out, wt)
	}
	return out, nil
}
