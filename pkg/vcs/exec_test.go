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

package vcs

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

	"github.com/walteh/docrc/pkg/config"
)

func newTestBackend(t *testing.T) (*ExecBackend, *config.Config) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	cfg := config.Default(t.TempDir())
	b := FromConfig(cfg)
	require.NoError(t, b.Init(testContext()), "init should succeed")
	return b, cfg
}

func testContext() context.Context {
	return zerolog.Nop().WithContext(context.Background())
}

func writeDoc(t *testing.T, cfg *config.Config, rel, content string) {
	t.Helper()
	p := filepath.Join(cfg.DocRootPath(), filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestInitIsIdempotent(t *testing.T) {
	b, cfg := newTestBackend(t)
	ctx := testContext()

	assert.True(t, b.Initialized(), "repository should exist")
	assert.DirExists(t, cfg.GitDir(), "git dir should be created in the store")
	assert.DirExists(t, cfg.DocRootPath(), "work tree should be created")
	require.NoError(t, b.Init(ctx), "second init should be a no-op")

	head, err := b.Head(ctx)
	require.NoError(t, err)
	assert.Empty(t, head, "new repository has no commits")
}

func TestUninitialized(t *testing.T) {
	cfg := config.Default(t.TempDir())
	b := FromConfig(cfg)
	assert.False(t, b.Initialized(), "missing repository should be reported")
}

func TestAddCommitLog(t *testing.T) {
	b, cfg := newTestBackend(t)
	ctx := testContext()

	info, err := b.Commit(ctx, "empty")
	require.NoError(t, err, "commit with nothing staged should not fail")
	assert.Nil(t, info, "nothing staged means no commit")

	writeDoc(t, cfg, "src/models/index.md", "# models\n")
	writeDoc(t, cfg, "src/models/history.md", "# history\n")

	untracked, err := b.Untracked(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/models/index.md", "src/models/history.md"}, untracked)

	require.NoError(t, b.Add(ctx, []string{"src/models"}, true), "add should succeed")

	staged, err := b.Staged(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"src/models/index.md", "src/models/history.md"}, staged, "unborn branch stages everything in the index")

	info, err = b.Commit(ctx, "docs: models")
	require.NoError(t, err, "commit should succeed")
	require.NotNil(t, info, "commit info should be returned")
	assert.Equal(t, "docs: models", info.Subject)
	assert.Equal(t, config.DefaultAuthorName, info.Author)
	assert.Equal(t, config.DefaultAuthorEmail, info.Email)
	assert.ElementsMatch(t, []string{"src/models/index.md", "src/models/history.md"}, info.Files)
	assert.True(t, strings.HasPrefix(info.Hash, info.ShortHash))

	writeDoc(t, cfg, "README/index.md", "readme\n")
	require.NoError(t, b.Add(ctx, []string{"README/index.md"}, false))
	_, err = b.Commit(ctx, "docs: readme")
	require.NoError(t, err)

	all, err := b.Log(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "docs: readme", all[0].Subject, "log is newest first")

	scoped, err := b.Log(ctx, []string{"src/models"}, 5)
	require.NoError(t, err)
	require.Len(t, scoped, 1, "path filter should limit the log")
	assert.Equal(t, info.Hash, scoped[0].Hash)
}

func TestStatusAndDiff(t *testing.T) {
	b, cfg := newTestBackend(t)
	ctx := testContext()

	writeDoc(t, cfg, "a/index.md", "one\n")
	require.NoError(t, b.Add(ctx, []string{"a/index.md"}, true))
	_, err := b.Commit(ctx, "first")
	require.NoError(t, err)

	status, err := b.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status, "clean tree has empty status")

	writeDoc(t, cfg, "a/index.md", "two\n")
	writeDoc(t, cfg, "b/index.md", "new\n")

	status, err = b.Status(ctx)
	require.NoError(t, err)
	assert.Contains(t, status, " M a/index.md")
	assert.Contains(t, status, "?? b/index.md")

	diff, err := b.Diff(ctx, []string{"a"}, false)
	require.NoError(t, err)
	assert.Contains(t, diff, "-one")
	assert.Contains(t, diff, "+two")

	cached, err := b.Diff(ctx, nil, true)
	require.NoError(t, err)
	assert.Empty(t, cached, "nothing staged yet")
}

func TestTagsResetAndStash(t *testing.T) {
	b, cfg := newTestBackend(t)
	ctx := testContext()

	writeDoc(t, cfg, "a/index.md", "base\n")
	require.NoError(t, b.Add(ctx, []string{"a"}, true))
	first, err := b.Commit(ctx, "base")
	require.NoError(t, err)

	require.NoError(t, b.Tag(ctx, "docrc-backup/test", first.Hash))
	got, err := b.ResolveRef(ctx, "docrc-backup/test")
	require.NoError(t, err)
	assert.Equal(t, first.Hash, got)

	writeDoc(t, cfg, "a/index.md", "wip\n")
	stash, err := b.StashCreate(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, stash, "modified tracked file should produce a snapshot")

	writeDoc(t, cfg, "a/index.md", "changed again\n")
	require.NoError(t, b.Add(ctx, []string{"a"}, true))
	_, err = b.Commit(ctx, "second")
	require.NoError(t, err)

	require.NoError(t, b.ResetHard(ctx, "docrc-backup/test"))
	head, err := b.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Hash, head, "reset should move HEAD back")

	require.NoError(t, b.StashApply(ctx, stash))
	data, err := os.ReadFile(filepath.Join(cfg.DocRootPath(), "a", "index.md"))
	require.NoError(t, err)
	assert.Equal(t, "wip\n", string(data), "snapshot should restore the uncommitted edit")

	require.NoError(t, b.TagDelete(ctx, "docrc-backup/test"))
	_, err = b.ResolveRef(ctx, "docrc-backup/test")
	assert.ErrorIs(t, err, ErrRefNotFound, "deleted tag should not resolve")
}

func TestUnstage(t *testing.T) {
	b, cfg := newTestBackend(t)
	ctx := testContext()

	writeDoc(t, cfg, "a/index.md", "a\n")
	require.NoError(t, b.Add(ctx, []string{"a"}, true))
	require.NoError(t, b.Unstage(ctx, []string{"a/index.md"}), "unstage on an unborn branch should succeed")
	staged, err := b.Staged(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged)

	require.NoError(t, b.Add(ctx, []string{"a"}, true))
	_, err = b.Commit(ctx, "a")
	require.NoError(t, err)

	writeDoc(t, cfg, "b/index.md", "b\n")
	require.NoError(t, b.Add(ctx, []string{"b"}, true))
	require.NoError(t, b.Unstage(ctx, []string{"b/index.md"}))
	staged, err = b.Staged(ctx)
	require.NoError(t, err)
	assert.Empty(t, staged, "new path should leave the index")

	untracked, err := b.Untracked(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b/index.md"}, untracked, "unstaged file stays on disk")
}

func TestIsolationFromPrimaryRepository(t *testing.T) {
	b, cfg := newTestBackend(t)
	ctx := testContext()

	primary := exec.Command("git", "init", "--quiet", cfg.ProjectRoot)
	require.NoError(t, primary.Run(), "primary repository init should succeed")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ProjectRoot, "main.go"), []byte("package main\n"), 0644))

	writeDoc(t, cfg, "main/index.md", "doc\n")
	require.NoError(t, b.Add(ctx, []string{"main"}, true))
	_, err := b.Commit(ctx, "docs")
	require.NoError(t, err)

	untracked, err := b.Untracked(ctx)
	require.NoError(t, err)
	assert.Empty(t, untracked, "isolated repository must not see primary files")

	staged := exec.Command("git", "-C", cfg.ProjectRoot, "diff", "--cached", "--name-only")
	out, err := staged.Output()
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(out)), "primary index must stay untouched")
	assert.NoFileExists(t, filepath.Join(cfg.ProjectRoot, ".git", "refs", "heads", "main"), "primary repository must have no commits")
}

func TestIndexLockedAndRetry(t *testing.T) {
	b, cfg := newTestBackend(t)
	ctx := testContext()
	b.opts.LockRetries = 1

	lock := cfg.IndexFile() + ".lock"
	require.NoError(t, os.WriteFile(lock, nil, 0644))
	assert.True(t, b.IndexLocked())

	writeDoc(t, cfg, "a/index.md", "a\n")
	err := b.Add(ctx, []string{"a"}, true)
	require.Error(t, err, "add should fail while the lock is held")
	assert.NotContains(t, err.Error(), cfg.ProjectRoot, "backend messages must not leak the project root")

	require.NoError(t, os.Remove(lock))
	assert.False(t, b.IndexLocked())
	require.NoError(t, b.Add(ctx, []string{"a"}, true), "add should succeed once the lock is gone")
}

func TestParseLog(t *testing.T) {
	out := "abc\x1fab\x1fMe\x1fme@x\x1f1700000000\x1fsubject one\x00\ndef\x1fde\x1fYou\x1fyou@x\x1f1700000100\x1fsubject: two\x00"
	commits, err := parseLog(out)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "abc", commits[0].Hash)
	assert.Equal(t, "subject: two", commits[1].Subject)
	assert.Equal(t, int64(1700000100), commits[1].When.Unix())

	_, err = parseLog("broken")
	assert.Error(t, err)
}
