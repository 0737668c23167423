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
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/docdir"
)

// ⚔️ Strategy decides what happens to existing documentation
type Strategy string

const (
	StrategyNone                Strategy = ""
	StrategyOverwrite           Strategy = "overwrite"
	StrategySkip                Strategy = "skip"
	StrategyBackupThenOverwrite Strategy = "backup-then-overwrite"
)

// ParseStrategy accepts the configured spelling of a strategy, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyNone, StrategyOverwrite, StrategySkip, StrategyBackupThenOverwrite:
		return st, nil
	default:
		return StrategyNone, errors.Errorf("unknown conflict strategy %q", s)
	}
}

// 📝 Conflict is a unit whose artifacts already exist before generation
type Conflict struct {
	Path     string         // source path, project-relative
	Unit     string         // unit directory, doc-root-relative
	Existing []string       // artifact names found on disk
	Strategy Strategy       // strategy that was applied
	Backup   *docdir.Backup // copies taken before overwriting, if any
}

// 🤝 ConflictResolver picks a strategy for one conflict, e.g. by asking the user.
// Returning StrategyNone leaves the conflict unresolved.
type ConflictResolver interface {
	Resolve(ctx context.Context, c Conflict) (Strategy, error)
}

// ResolverFunc adapts a function to ConflictResolver.
type ResolverFunc func(ctx context.Context, c Conflict) (Strategy, error)

func (f ResolverFunc) Resolve(ctx context.Context, c Conflict) (Strategy, error) {
	return f(ctx, c)
}

// StaticResolver always answers with the same strategy.
type StaticResolver Strategy

func (r StaticResolver) Resolve(ctx context.Context, c Conflict) (Strategy, error) {
	return Strategy(r), nil
}
