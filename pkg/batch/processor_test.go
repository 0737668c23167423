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
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/config"
	"github.com/walteh/docrc/pkg/docdir"
	"github.com/walteh/docrc/pkg/failure"
	"github.com/walteh/docrc/pkg/generate"
	"github.com/walteh/docrc/pkg/ignore"
	"github.com/walteh/docrc/pkg/paths"
	"github.com/walteh/docrc/pkg/vcs"
	"github.com/walteh/docrc/pkg/workflow"
)

func testCtx() context.Context {
	return zerolog.Nop().WithContext(context.Background())
}

// 🧪 project is a temporary project with an initialized store
type project struct {
	root     string
	cfg      *config.Config
	backend  *vcs.ExecBackend
	docs     *docdir.Manager
	resolver *paths.Resolver
}

func newProject(t *testing.T, files map[string]string) *project {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	cfg := config.Default(root)
	p := &project{root: root, cfg: cfg, backend: vcs.FromConfig(cfg), docs: docdir.FromConfig(cfg)}
	p.resolver, err = paths.New(root, cfg.DocRoot, cfg.StoreDir)
	require.NoError(t, err)
	p.resolver.Getwd = func() (string, error) { return root, nil }
	require.NoError(t, p.backend.Init(testCtx()), "init should succeed")

	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
	}
	return p
}

// failingGenerator delegates to the template generator but breaks on chosen files
type failingGenerator struct {
	generate.Generator
	fail   map[string]bool
	before func(ctx context.Context)
}

func (g *failingGenerator) Generate(ctx context.Context, source, destDir string, vars map[string]string) (*generate.Result, error) {
	if !g.fail[filepath.ToSlash(source)] {
		return g.Generator.Generate(ctx, source, destDir, vars)
	}
	if g.before != nil {
		g.before(ctx)
	}
	if err := os.WriteFile(filepath.Join(destDir, "index.md"), []byte("half"), 0644); err != nil {
		return nil, err
	}
	return nil, errors.Errorf("model unavailable")
}

func (p *project) processor(t *testing.T, gen generate.Generator, listener Listener, modify func(*workflow.Options)) *Processor {
	t.Helper()
	ctx := testCtx()
	if gen == nil {
		gen = generate.NewTemplateGenerator(p.cfg.TemplatesPath(), p.docs, nil)
	}

	matcher, err := ignore.Load(ctx, ignore.Options{
		File:  p.cfg.IgnoreFilePath(),
		Extra: []string{"/" + config.DefaultIgnoreFile},
	})
	require.NoError(t, err)

	opts := workflow.Options{
		Backend:       p.backend,
		Generator:     gen,
		Resolver:      p.resolver,
		Docs:          p.docs,
		CommitMessage: config.DefaultCommitMessage,
	}
	if modify != nil {
		modify(&opts)
	}
	o, err := workflow.New(opts)
	require.NoError(t, err)

	proc, err := NewProcessor(Options{
		Resolver:         p.resolver,
		Matcher:          matcher,
		Generator:        gen,
		Orchestrator:     o,
		ProgressInterval: 2,
		Listener:         listener,
	})
	require.NoError(t, err)
	return proc
}

func TestPlan(t *testing.T) {
	p := newProject(t, map[string]string{
		"src/a.go":                    "package a\n",
		"src/b.go":                    "package b\n",
		"src/vendor/c.go":             "package c\n",
		"src/node_modules/x/index.js": "x\n",
		"notes/readme.md":             "hi\n",
		"image.png":                   "png\n",
		".docrcignore":                "vendor/\n",
	})
	proc := p.processor(t, nil, nil, nil)
	ctx := testCtx()

	tests := []struct {
		name    string
		inputs  []string
		want    []string
		wantErr failure.Kind
	}{
		{
			name:   "whole_project",
			inputs: []string{"."},
			want:   []string{"notes/readme.md", "src/a.go", "src/b.go"},
		},
		{
			name:   "default_is_project",
			inputs: nil,
			want:   []string{"notes/readme.md", "src/a.go", "src/b.go"},
		},
		{
			name:   "order_and_duplicates_do_not_matter",
			inputs: []string{"src/b.go", "src", "notes", "src/a.go", "./src/b.go"},
			want:   []string{"notes/readme.md", "src/a.go", "src/b.go"},
		},
		{
			name:   "ignored_explicit_file",
			inputs: []string{"image.png", "src/vendor/c.go"},
			want:   nil,
		},
		{
			name:   "store_is_never_a_candidate",
			inputs: []string{".docrc", ".docrc/config.yaml"},
			want:   nil,
		},
		{
			name:   "missing_file_is_kept_for_validation",
			inputs: []string{"src/gone.go"},
			want:   []string{"src/gone.go"},
		},
		{
			name:    "outside_root",
			inputs:  []string{"../elsewhere"},
			wantErr: failure.OutsideProjectBoundary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := proc.Plan(ctx, tt.inputs)
			if tt.wantErr != failure.KindUnknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, failure.KindOf(err))
				return
			}
			require.NoError(t, err)
			var slash []string
			for _, g := range got {
				slash = append(slash, filepath.ToSlash(g))
			}
			assert.Equal(t, tt.want, slash)
		})
	}
}

func TestProcessPartialFailure(t *testing.T) {
	p := newProject(t, map[string]string{
		"src/a.go": "package a\n",
		"src/b.go": "package b\n",
		"src/c.go": "package c\n",
	})
	ctx := testCtx()

	gen := &failingGenerator{
		Generator: generate.NewTemplateGenerator(p.cfg.TemplatesPath(), p.docs, nil),
		fail:      map[string]bool{"src/b.go": true},
	}

	var completed []string
	listener := ListenerFunc(func(e Event) {
		if e.Type == EventCompleted {
			completed = append(completed, filepath.ToSlash(e.Path))
		}
	})

	sum, err := p.processor(t, gen, listener, nil).Process(ctx, []string{"src"})
	require.NoError(t, err, "a failing file should not fail the batch")

	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.False(t, sum.Aborted)
	assert.False(t, sum.OK())
	assert.Equal(t, []string{"src/a.go", "src/b.go", "src/c.go"}, completed, "files should run in sorted order")

	failed := sum.Results[filepath.Join("src", "b.go")]
	assert.Equal(t, failure.GenerationFailed, failed.Kind)
	assert.True(t, failed.RolledBack, "failed file should be rolled back")
	assert.Equal(t, 1, sum.Errors[failure.CategoryGeneration])

	assert.FileExists(t, p.docs.ArtifactPath(filepath.Join("src", "a"), docdir.ArtifactIndex))
	assert.FileExists(t, p.docs.ArtifactPath(filepath.Join("src", "c"), docdir.ArtifactHistory))
	assert.NoDirExists(t, p.docs.UnitDir(filepath.Join("src", "b")), "no partial artifacts should remain")
}

func TestProcessIsDeterministic(t *testing.T) {
	files := map[string]string{
		"z.go":       "package z\n",
		"a/b.go":     "package b\n",
		"a/a.go":     "package a\n",
		"m/n/o.py":   "o = 1\n",
		"m/readme":   "readme\n",
		"m/.env":     "A=1\n",
		"vendor.bin": "",
	}

	var runs [][]string
	for _, inputs := range [][]string{{"."}, {"z.go", "m", "a"}, {"m", "a", "z.go", "a/a.go"}} {
		p := newProject(t, files)
		var order []string
		listener := ListenerFunc(func(e Event) {
			if e.Type == EventStarted {
				order = append(order, filepath.ToSlash(e.Path))
			}
		})
		sum, err := p.processor(t, nil, listener, nil).Process(testCtx(), inputs)
		require.NoError(t, err)
		assert.True(t, sum.OK(), "batch should succeed")
		runs = append(runs, order)
	}

	want := []string{"a/a.go", "a/b.go", "m/.env", "m/n/o.py", "m/readme", "vendor.bin", "z.go"}
	for i, order := range runs {
		assert.Equal(t, want, order, "run %d should process in the same order", i)
	}
}

func TestProcessStopsOnUnrecoverableFailure(t *testing.T) {
	p := newProject(t, map[string]string{
		"a.go": "package a\n",
		"b.go": "package b\n",
		"c.go": "package c\n",
	})
	ctx := testCtx()

	// a first commit so that restore points are real tags
	seed := p.processor(t, nil, nil, func(o *workflow.Options) { o.AutoCommit = true })
	sum, err := seed.Process(ctx, []string{"a.go"})
	require.NoError(t, err)
	require.True(t, sum.OK())

	gen := &failingGenerator{
		Generator: generate.NewTemplateGenerator(p.cfg.TemplatesPath(), p.docs, nil),
		fail:      map[string]bool{"b.go": true},
		before: func(ctx context.Context) {
			// lose the restore point so that the rollback cannot succeed
			tags, err := exec.Command("git", "--git-dir", p.cfg.GitDir(), "tag", "--list", workflow.TagPrefix+"*").Output()
			require.NoError(t, err)
			for _, tag := range strings.Fields(string(tags)) {
				require.NoError(t, p.backend.TagDelete(ctx, tag))
			}
		},
	}

	sum, err = p.processor(t, gen, nil, func(o *workflow.Options) { o.Strategy = workflow.StrategyOverwrite }).
		Process(ctx, []string{"."})
	require.NoError(t, err)

	assert.True(t, sum.Aborted, "batch should stop")
	assert.Contains(t, sum.AbortReason, "UnrecoverableFailure")
	assert.Equal(t, 2, sum.Processed, "a.go and b.go should be processed")
	assert.Equal(t, []string{"c.go"}, sum.Unprocessed())
	assert.Equal(t, failure.UnrecoverableFailure, sum.Results["b.go"].Kind)
}

func TestProcessCancellationBetweenFiles(t *testing.T) {
	p := newProject(t, map[string]string{
		"a.go": "package a\n",
		"b.go": "package b\n",
		"c.go": "package c\n",
	})
	ctx, cancel := context.WithCancel(testCtx())
	defer cancel()

	listener := ListenerFunc(func(e Event) {
		if e.Type == EventCompleted {
			cancel()
		}
	})

	sum, err := p.processor(t, nil, listener, nil).Process(ctx, []string{"."})
	require.NoError(t, err)

	assert.True(t, sum.Aborted)
	assert.Contains(t, sum.AbortReason, "cancelled")
	assert.Equal(t, 1, sum.Processed, "the running file should finish")
	assert.Equal(t, StatusSucceeded, sum.Results["a.go"].Status)
	assert.FileExists(t, p.docs.ArtifactPath("a", docdir.ArtifactHistory), "the finished file should be complete")
	assert.Equal(t, []string{"b.go", "c.go"}, sum.Unprocessed())
}

func TestProcessUninitializedAbortsBeforeMutation(t *testing.T) {
	p := newProject(t, map[string]string{"a.go": "package a\n"})
	require.NoError(t, os.RemoveAll(p.cfg.GitDir()))

	sum, err := p.processor(t, nil, nil, nil).Process(testCtx(), []string{"."})
	require.Error(t, err, "shared validation failure should abort")
	assert.Nil(t, sum)
	assert.Equal(t, failure.NotInitialized, failure.KindOf(err))
	assert.NoDirExists(t, p.docs.UnitDir("a"))
}
