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
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/docdir"
	"github.com/walteh/docrc/pkg/failure"
	"github.com/walteh/docrc/pkg/vcs"
)

// TagPrefix namespaces restore points in the isolated repository
const TagPrefix = "docrc-backup/"

// 💾 BackupRecord is a restore point taken before a workflow mutates the store
type BackupRecord struct {
	WorkflowID  string
	Tag         string // tag on the revision, empty for an empty-history marker
	Revision    string // HEAD at backup time
	WIPTag      string // tag on the snapshot of uncommitted tracked changes, if any
	WIPRevision string
	Untracked   []string          // untracked paths at backup time
	Staged      []string          // staged paths at backup time
	Preserved   map[string][]byte // content of protected paths git does not track
	Empty       bool              // no commits existed; the record is a no-op marker
	CreatedAt   time.Time
}

// 📋 RollbackResult reports what a rollback restored
type RollbackResult struct {
	RestoredTo string   // revision HEAD was reset to, empty for empty-history markers
	Reapplied  bool     // uncommitted changes were re-applied
	Unstaged   []string // paths removed from the index
	Removed    []string // untracked files deleted from the work tree
	Restored   []string // untracked files written back from the record
}

// 🛟 BackupManager creates restore points and rolls back to them
type BackupManager struct {
	backend vcs.Backend
	docs    *docdir.Manager
	now     func() time.Time

	mu     sync.Mutex
	active map[string]*BackupRecord
}

// 🏭 NewBackupManager creates a backup manager
func NewBackupManager(backend vcs.Backend, docs *docdir.Manager) *BackupManager {
	return &BackupManager{
		backend: backend,
		docs:    docs,
		now:     time.Now,
		active:  map[string]*BackupRecord{},
	}
}

// activeRecord returns the in-flight record for a workflow, if any.
func (m *BackupManager) activeRecord(workflowID string) *BackupRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[workflowID]
}

// 📸 CreateBackup records a restore point for workflowID. Protected paths
// (work-tree relative) that exist but are untracked have their content kept
// in the record, since git cannot restore them.
func (m *BackupManager) CreateBackup(ctx context.Context, workflowID string, protect ...string) (*BackupRecord, error) {
	logger := zerolog.Ctx(ctx)

	if m.activeRecord(workflowID) != nil {
		return nil, failure.New(failure.BackupCreationFailed, "", "workflow %s already has an active backup", workflowID)
	}

	head, err := m.backend.Head(ctx)
	if err != nil {
		return nil, failure.Wrap(failure.BackupCreationFailed, "", errors.Errorf("reading HEAD: %w", err))
	}
	untracked, err := m.backend.Untracked(ctx)
	if err != nil {
		return nil, failure.Wrap(failure.BackupCreationFailed, "", err)
	}
	staged, err := m.backend.Staged(ctx)
	if err != nil {
		return nil, failure.Wrap(failure.BackupCreationFailed, "", err)
	}

	rec := &BackupRecord{
		WorkflowID: workflowID,
		Revision:   head,
		Untracked:  untracked,
		Staged:     staged,
		Empty:      head == "",
		CreatedAt:  m.now(),
	}

	for _, p := range protect {
		if !slices.Contains(untracked, p) {
			continue
		}
		data, err := m.docs.ReadFile(ctx, p)
		if err != nil {
			return nil, failure.Wrap(failure.BackupCreationFailed, "", err)
		}
		if rec.Preserved == nil {
			rec.Preserved = map[string][]byte{}
		}
		rec.Preserved[p] = data
	}

	if !rec.Empty {
		rec.Tag = TagPrefix + workflowID
		if err := m.backend.Tag(ctx, rec.Tag, head); err != nil {
			return nil, failure.Wrap(failure.BackupCreationFailed, "", err)
		}

		wip, err := m.backend.StashCreate(ctx)
		if err != nil {
			m.deleteTags(ctx, rec)
			return nil, failure.Wrap(failure.BackupCreationFailed, "", err)
		}
		if wip != "" {
			// a tag keeps the otherwise dangling snapshot reachable
			wipTag := rec.Tag + "-wip"
			if err := m.backend.Tag(ctx, wipTag, wip); err != nil {
				m.deleteTags(ctx, rec)
				return nil, failure.Wrap(failure.BackupCreationFailed, "", err)
			}
			rec.WIPTag, rec.WIPRevision = wipTag, wip
		}
	}

	m.mu.Lock()
	m.active[workflowID] = rec
	m.mu.Unlock()

	logger.Debug().
		Str("tag", rec.Tag).
		Str("revision", rec.Revision).
		Bool("empty", rec.Empty).
		Bool("wip", rec.WIPTag != "").
		Int("preserved", len(rec.Preserved)).
		Msg("created restore point")
	return rec, nil
}

// ⏪ Rollback restores the store to the state captured by rec. A missing
// restore point is a RollbackFailed error, never ignored.
func (m *BackupManager) Rollback(ctx context.Context, rec *BackupRecord) (*RollbackResult, error) {
	logger := zerolog.Ctx(ctx)
	if rec == nil {
		return nil, failure.New(failure.RollbackFailed, "", "no restore point to roll back to")
	}

	res := &RollbackResult{}

	// paths staged since the backup leave the index first, otherwise the
	// hard reset would delete files that were untracked before
	staged, err := m.backend.Staged(ctx)
	if err != nil {
		return nil, failure.Wrap(failure.RollbackFailed, "", err)
	}
	res.Unstaged = difference(staged, rec.Staged)
	if err := m.backend.Unstage(ctx, res.Unstaged); err != nil {
		return nil, failure.Wrap(failure.RollbackFailed, "", err)
	}

	if rec.Empty {
		head, err := m.backend.Head(ctx)
		if err != nil {
			return nil, failure.Wrap(failure.RollbackFailed, "", err)
		}
		if head != "" {
			return nil, failure.New(failure.RollbackFailed, "", "commits were recorded after an empty-history restore point")
		}
	} else {
		rev, err := m.backend.ResolveRef(ctx, rec.Tag)
		if err != nil {
			return nil, failure.Wrap(failure.RollbackFailed, "", errors.Errorf("restore point %s no longer exists: %w", rec.Tag, err))
		}
		if err := m.backend.ResetHard(ctx, rev); err != nil {
			return nil, failure.Wrap(failure.RollbackFailed, "", err)
		}
		res.RestoredTo = rev

		if rec.WIPTag != "" {
			wip, err := m.backend.ResolveRef(ctx, rec.WIPTag)
			if err != nil {
				return nil, failure.Wrap(failure.RollbackFailed, "", errors.Errorf("snapshot %s no longer exists: %w", rec.WIPTag, err))
			}
			if err := m.backend.StashApply(ctx, wip); err != nil {
				return nil, failure.Wrap(failure.RollbackFailed, "", err)
			}
			res.Reapplied = true
		}
	}

	untracked, err := m.backend.Untracked(ctx)
	if err != nil {
		return nil, failure.Wrap(failure.RollbackFailed, "", err)
	}
	for _, p := range difference(untracked, rec.Untracked) {
		if err := m.docs.RemoveFile(ctx, p); err != nil {
			return nil, failure.Wrap(failure.RollbackFailed, p, err)
		}
		res.Removed = append(res.Removed, p)
	}

	preserved := make([]string, 0, len(rec.Preserved))
	for p := range rec.Preserved {
		preserved = append(preserved, p)
	}
	slices.Sort(preserved)
	for _, p := range preserved {
		if err := m.docs.RestoreFile(ctx, p, rec.Preserved[p]); err != nil {
			return nil, failure.Wrap(failure.RollbackFailed, p, err)
		}
		res.Restored = append(res.Restored, p)
	}

	logger.Info().
		Str("tag", rec.Tag).
		Bool("reapplied", res.Reapplied).
		Int("unstaged", len(res.Unstaged)).
		Int("removed", len(res.Removed)).
		Int("restored", len(res.Restored)).
		Msg("rolled back")
	return res, nil
}

// 🧹 Release drops a restore point once it is no longer needed
func (m *BackupManager) Release(ctx context.Context, rec *BackupRecord) error {
	if rec == nil {
		return nil
	}
	err := m.deleteTags(ctx, rec)

	m.mu.Lock()
	delete(m.active, rec.WorkflowID)
	m.mu.Unlock()
	return err
}

func (m *BackupManager) deleteTags(ctx context.Context, rec *BackupRecord) error {
	var errs []error
	for _, tag := range []string{rec.Tag, rec.WIPTag} {
		if tag == "" {
			continue
		}
		if err := m.backend.TagDelete(ctx, tag); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// difference returns the elements of a not present in b, keeping a's order
func difference(a, b []string) []string {
	var out []string
	for _, s := range a {
		if !slices.Contains(b, s) {
			out = append(out, s)
		}
	}
	return out
}
