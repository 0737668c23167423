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
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/config"
	"github.com/walteh/docrc/pkg/failure"
)

const (
	fieldSep  = "\x1f"
	logFormat = "%H%x1f%h%x1f%an%x1f%ae%x1f%at%x1f%s"
)

// ⚙️ Options locates the isolated repository
type Options struct {
	Binary      string // git executable
	GitDir      string // absolute repository metadata directory
	WorkTree    string // absolute work tree (the documentation root)
	IndexFile   string // absolute index file
	ProjectRoot string // used to sanitize messages
	AuthorName  string
	AuthorEmail string
	LockRetries int // retries when the index is locked
}

// 🔧 ExecBackend runs the git command line against an isolated
// repository, work tree and index triple
type ExecBackend struct {
	opts Options
}

var _ Backend = (*ExecBackend)(nil)

// 🏭 NewExecBackend creates a backend from explicit options
func NewExecBackend(opts Options) *ExecBackend {
	if opts.Binary == "" {
		opts.Binary = config.DefaultGitBinary
	}
	if opts.AuthorName == "" {
		opts.AuthorName = config.DefaultAuthorName
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = config.DefaultAuthorEmail
	}
	return &ExecBackend{opts: opts}
}

// 🏭 FromConfig creates a backend for the configured layout
func FromConfig(cfg *config.Config) *ExecBackend {
	return NewExecBackend(Options{
		Binary:      cfg.Git.Binary,
		GitDir:      cfg.GitDir(),
		WorkTree:    cfg.DocRootPath(),
		IndexFile:   cfg.IndexFile(),
		ProjectRoot: cfg.ProjectRoot,
		AuthorName:  cfg.Git.AuthorName,
		AuthorEmail: cfg.Git.AuthorEmail,
		LockRetries: cfg.Git.LockRetries,
	})
}

// Options returns the layout the backend operates on.
func (b *ExecBackend) Options() Options { return b.opts }

func (b *ExecBackend) baseArgs() []string {
	return []string{
		"--git-dir=" + b.opts.GitDir,
		"--work-tree=" + b.opts.WorkTree,
		"-c", "user.name=" + b.opts.AuthorName,
		"-c", "user.email=" + b.opts.AuthorEmail,
		"-c", "core.quotepath=false",
		"-c", "commit.gpgsign=false",
		"-c", "tag.gpgsign=false",
	}
}

func (b *ExecBackend) environ() []string {
	env := make([]string, 0, len(os.Environ())+3)
	for _, kv := range os.Environ() {
		// anything pointing git at another repository must not leak in
		if strings.HasPrefix(kv, "GIT_DIR=") ||
			strings.HasPrefix(kv, "GIT_WORK_TREE=") ||
			strings.HasPrefix(kv, "GIT_INDEX_FILE=") ||
			strings.HasPrefix(kv, "GIT_OBJECT_DIRECTORY=") ||
			strings.HasPrefix(kv, "GIT_COMMON_DIR=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env,
		"GIT_INDEX_FILE="+b.opts.IndexFile,
		"GIT_TERMINAL_PROMPT=0",
		"LC_ALL=C",
	)
}

// result is the outcome of one git invocation
type result struct {
	stdout   string
	stderr   string
	exitCode int
}

// exec runs git once. A non-zero exit is not an error; the caller decides.
func (b *ExecBackend) exec(ctx context.Context, args ...string) (*result, error) {
	cmd := exec.CommandContext(ctx, b.opts.Binary, append(b.baseArgs(), args...)...)
	cmd.Dir = b.opts.WorkTree
	cmd.Env = b.environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &result{stdout: stdout.String(), stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, failure.SanitizeError(errors.Errorf("running git %s: %w", args[0], err), b.opts.ProjectRoot)
		}
		res.exitCode = exitErr.ExitCode()
	}
	return res, nil
}

func isLockContention(stderr string) bool {
	return strings.Contains(stderr, "index.lock") && strings.Contains(stderr, "File exists")
}

// run executes git and fails on a non-zero exit, retrying while the index is locked
func (b *ExecBackend) run(ctx context.Context, args ...string) (string, error) {
	logger := zerolog.Ctx(ctx)

	var out string
	op := func() error {
		res, err := b.exec(ctx, args...)
		if err != nil {
			return backoff.Permanent(err)
		}
		if res.exitCode == 0 {
			out = res.stdout
			return nil
		}
		err = failure.SanitizeError(
			errors.Errorf("git %s: exit status %d: %s", strings.Join(args, " "), res.exitCode, strings.TrimSpace(res.stderr)),
			b.opts.ProjectRoot)
		if isLockContention(res.stderr) {
			logger.Debug().Str("command", args[0]).Msg("git index locked, retrying")
			return err
		}
		return backoff.Permanent(err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = time.Second
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(max(b.opts.LockRetries, 0))), ctx)); err != nil {
		return "", err
	}
	return out, nil
}

// 🏗️ Init creates the work tree, the repository metadata and its config
func (b *ExecBackend) Init(ctx context.Context) error {
	if err := os.MkdirAll(b.opts.WorkTree, 0755); err != nil {
		return errors.Errorf("creating work tree: %w", err)
	}
	if b.Initialized() {
		zerolog.Ctx(ctx).Debug().Msg("repository already initialized")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(b.opts.GitDir), 0755); err != nil {
		return errors.Errorf("creating repository parent: %w", err)
	}
	if _, err := b.run(ctx, "-c", "init.defaultBranch=main", "init", "--quiet"); err != nil {
		return errors.Errorf("initializing repository: %w", err)
	}
	if _, err := b.run(ctx, "config", "core.autocrlf", "false"); err != nil {
		return errors.Errorf("configuring repository: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("git_dir", b.opts.GitDir).Msg("initialized repository")
	return nil
}

// Initialized reports whether the repository metadata and work tree exist
func (b *ExecBackend) Initialized() bool {
	if _, err := os.Stat(filepath.Join(b.opts.GitDir, "HEAD")); err != nil {
		return false
	}
	info, err := os.Stat(b.opts.WorkTree)
	return err == nil && info.IsDir()
}

// ➕ Add stages paths
func (b *ExecBackend) Add(ctx context.Context, paths []string, force bool) error {
	if len(paths) == 0 {
		return nil
	}
	args := []string{"add"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, "--")
	args = append(args, paths...)
	if _, err := b.run(ctx, args...); err != nil {
		return errors.Errorf("staging files: %w", err)
	}
	return nil
}

// hasStaged reports whether the index differs from HEAD
func (b *ExecBackend) hasStaged(ctx context.Context) (bool, error) {
	staged, err := b.Staged(ctx)
	if err != nil {
		return false, err
	}
	return len(staged) > 0, nil
}

// 💾 Commit records the index
func (b *ExecBackend) Commit(ctx context.Context, message string) (*CommitInfo, error) {
	staged, err := b.hasStaged(ctx)
	if err != nil {
		return nil, errors.Errorf("checking staged changes: %w", err)
	}
	if !staged {
		zerolog.Ctx(ctx).Debug().Msg("nothing staged, skipping commit")
		return nil, nil
	}

	if _, err := b.run(ctx, "commit", "--quiet", "--no-verify", "-m", message); err != nil {
		return nil, errors.Errorf("committing: %w", err)
	}

	commits, err := b.Log(ctx, nil, 1)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, errors.Errorf("commit not found after committing")
	}
	info := commits[0]

	out, err := b.run(ctx, "diff-tree", "--no-commit-id", "--name-only", "-r", "-z", "--root", info.Hash)
	if err != nil {
		return nil, errors.Errorf("listing committed files: %w", err)
	}
	info.Files = splitNul(out)
	return &info, nil
}

// 📊 Status returns porcelain status output
func (b *ExecBackend) Status(ctx context.Context) (string, error) {
	out, err := b.run(ctx, "status", "--porcelain=v1", "--untracked-files=all")
	if err != nil {
		return "", errors.Errorf("reading status: %w", err)
	}
	return out, nil
}

// 📜 Log lists commits, newest first, optionally limited to paths
func (b *ExecBackend) Log(ctx context.Context, paths []string, limit int) ([]CommitInfo, error) {
	head, err := b.Head(ctx)
	if err != nil {
		return nil, err
	}
	if head == "" {
		return nil, nil
	}

	args := []string{"log", "-z", "--format=" + logFormat}
	if limit > 0 {
		args = append(args, "-n", strconv.Itoa(limit))
	}
	args = append(args, "--")
	args = append(args, paths...)

	out, err := b.run(ctx, args...)
	if err != nil {
		return nil, errors.Errorf("reading log: %w", err)
	}
	return parseLog(out)
}

func parseLog(out string) ([]CommitInfo, error) {
	var commits []CommitInfo
	for _, rec := range splitNul(out) {
		fields := strings.SplitN(strings.TrimLeft(rec, "\n"), fieldSep, 6)
		if len(fields) != 6 {
			return nil, errors.Errorf("unexpected log record %q", rec)
		}
		secs, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, errors.Errorf("parsing commit time: %w", err)
		}
		commits = append(commits, CommitInfo{
			Hash:      fields[0],
			ShortHash: fields[1],
			Author:    fields[2],
			Email:     fields[3],
			When:      time.Unix(secs, 0).UTC(),
			Subject:   fields[5],
		})
	}
	return commits, nil
}

// 🔍 Diff shows work tree (or staged, when cached) changes
func (b *ExecBackend) Diff(ctx context.Context, paths []string, cached bool) (string, error) {
	args := []string{"diff", "--no-color"}
	if cached {
		args = append(args, "--cached")
	}
	args = append(args, "--")
	args = append(args, paths...)
	out, err := b.run(ctx, args...)
	if err != nil {
		return "", errors.Errorf("reading diff: %w", err)
	}
	return out, nil
}

// Head resolves HEAD, returning an empty string on an unborn branch
func (b *ExecBackend) Head(ctx context.Context) (string, error) {
	res, err := b.exec(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil {
		return "", err
	}
	switch res.exitCode {
	case 0:
		return strings.TrimSpace(res.stdout), nil
	case 1:
		return "", nil
	default:
		return "", failure.SanitizeError(errors.Errorf("resolving HEAD: %s", strings.TrimSpace(res.stderr)), b.opts.ProjectRoot)
	}
}

// 🏷️ Tag creates a lightweight tag at rev
func (b *ExecBackend) Tag(ctx context.Context, name, rev string) error {
	if _, err := b.run(ctx, "tag", name, rev); err != nil {
		return errors.Errorf("creating tag %s: %w", name, err)
	}
	return nil
}

// TagDelete removes a tag
func (b *ExecBackend) TagDelete(ctx context.Context, name string) error {
	if _, err := b.run(ctx, "tag", "--delete", name); err != nil {
		return errors.Errorf("deleting tag %s: %w", name, err)
	}
	return nil
}

// ResolveRef returns the commit ref points at
func (b *ExecBackend) ResolveRef(ctx context.Context, ref string) (string, error) {
	res, err := b.exec(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return "", err
	}
	if res.exitCode != 0 {
		return "", errors.Errorf("%w: %s", ErrRefNotFound, ref)
	}
	return strings.TrimSpace(res.stdout), nil
}

// ⏪ ResetHard moves HEAD, the index and the work tree to rev
func (b *ExecBackend) ResetHard(ctx context.Context, rev string) error {
	if _, err := b.run(ctx, "reset", "--hard", "--quiet", rev); err != nil {
		return errors.Errorf("resetting to %s: %w", rev, err)
	}
	return nil
}

// StashCreate snapshots tracked changes as a dangling commit
func (b *ExecBackend) StashCreate(ctx context.Context) (string, error) {
	out, err := b.run(ctx, "stash", "create")
	if err != nil {
		return "", errors.Errorf("creating stash: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// StashApply re-applies a snapshot, restoring its index state as well
func (b *ExecBackend) StashApply(ctx context.Context, rev string) error {
	if _, err := b.run(ctx, "stash", "apply", "--index", "--quiet", rev); err != nil {
		return errors.Errorf("applying stash %s: %w", rev, err)
	}
	return nil
}

// Untracked lists files in the work tree that are not in the index
func (b *ExecBackend) Untracked(ctx context.Context) ([]string, error) {
	out, err := b.run(ctx, "ls-files", "--others", "-z")
	if err != nil {
		return nil, errors.Errorf("listing untracked files: %w", err)
	}
	return splitNul(out), nil
}

// Staged lists paths whose index entry differs from HEAD
func (b *ExecBackend) Staged(ctx context.Context) ([]string, error) {
	head, err := b.Head(ctx)
	if err != nil {
		return nil, err
	}
	args := []string{"diff", "--cached", "--name-only", "-z", "HEAD"}
	if head == "" {
		// unborn branch: everything in the index is staged
		args = []string{"ls-files", "--cached", "-z"}
	}
	out, err := b.run(ctx, args...)
	if err != nil {
		return nil, errors.Errorf("listing staged files: %w", err)
	}
	return splitNul(out), nil
}

// Unstage restores the index entries of paths to HEAD
func (b *ExecBackend) Unstage(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	head, err := b.Head(ctx)
	if err != nil {
		return err
	}
	args := []string{"reset", "--quiet", "HEAD", "--"}
	if head == "" {
		args = []string{"rm", "--cached", "--quiet", "-r", "--ignore-unmatch", "--"}
	}
	if _, err := b.run(ctx, append(args, paths...)...); err != nil {
		return errors.Errorf("unstaging files: %w", err)
	}
	return nil
}

// IndexLocked reports whether index.lock exists next to the index
func (b *ExecBackend) IndexLocked() bool {
	_, err := os.Stat(b.opts.IndexFile + ".lock")
	return err == nil
}

func splitNul(out string) []string {
	out = strings.TrimRight(out, "\x00")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\x00")
}
