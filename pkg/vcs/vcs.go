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
	"time"

	"gitlab.com/tozd/go/errors"
)

// ErrRefNotFound is returned by ResolveRef when the ref does not exist.
var ErrRefNotFound = errors.Base("ref not found")

// 📝 CommitInfo describes one commit in the isolated repository
type CommitInfo struct {
	Hash      string    `json:"hash"`
	ShortHash string    `json:"short_hash"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	When      time.Time `json:"when"`
	Subject   string    `json:"subject"`
	Files     []string  `json:"files,omitempty"`
}

// 🔌 Backend is the version-control protocol used by docrc. Every path is
// slash-separated and relative to the work tree.
type Backend interface {
	// Init creates the isolated repository. It is a no-op when one exists.
	Init(ctx context.Context) error
	// Initialized reports whether the repository metadata exists.
	Initialized() bool

	Add(ctx context.Context, paths []string, force bool) error
	// Commit records the index. With nothing staged it returns nil, nil.
	Commit(ctx context.Context, message string) (*CommitInfo, error)
	// Status is the porcelain status of the work tree, including untracked files.
	Status(ctx context.Context) (string, error)
	Log(ctx context.Context, paths []string, limit int) ([]CommitInfo, error)
	Diff(ctx context.Context, paths []string, cached bool) (string, error)

	// Head is the current commit, empty when there are no commits yet.
	Head(ctx context.Context) (string, error)
	Tag(ctx context.Context, name, rev string) error
	TagDelete(ctx context.Context, name string) error
	// ResolveRef returns the commit a ref points at, or ErrRefNotFound.
	ResolveRef(ctx context.Context, ref string) (string, error)
	ResetHard(ctx context.Context, rev string) error

	// StashCreate snapshots tracked changes without touching the work tree.
	// It returns an empty string when there is nothing to snapshot.
	StashCreate(ctx context.Context) (string, error)
	StashApply(ctx context.Context, rev string) error

	Untracked(ctx context.Context) ([]string, error)
	Staged(ctx context.Context) ([]string, error)
	Unstage(ctx context.Context, paths []string) error

	// IndexLocked reports whether another git process holds the index lock.
	IndexLocked() bool
}
