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

package docdir

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/config"
)

// 📄 Every documentation unit holds exactly these artifacts
const (
	ArtifactIndex   = "index"
	ArtifactHistory = "history"
	ArtifactExt     = ".md"

	// TempSuffix marks scratch files written before an atomic rename
	TempSuffix = ".docrc-tmp"

	backupTimeLayout = "20060102T150405.000000000Z"
)

// Artifacts lists the artifact names in the order they are written.
var Artifacts = []string{ArtifactIndex, ArtifactHistory}

// ArtifactFile is the file name of an artifact, e.g. index.md.
func ArtifactFile(name string) string { return name + ArtifactExt }

// 💾 Backup describes copies taken before existing artifacts were replaced
type Backup struct {
	Dir   string            // Absolute directory holding the copies
	Files map[string]string // Artifact name to absolute copy path
}

// 📁 Manager owns the documentation tree layout and conflict backups.
// Unit paths are relative to the documentation root.
type Manager struct {
	docRoot    string
	backupRoot string

	// Now returns the backup timestamp, defaults to time.Now
	Now func() time.Time
}

// 🏭 New creates a manager for the absolute doc root and backup directory
func New(docRoot, backupRoot string) *Manager {
	return &Manager{
		docRoot:    filepath.Clean(docRoot),
		backupRoot: filepath.Clean(backupRoot),
		Now:        time.Now,
	}
}

// 🏭 FromConfig creates a manager for the configured layout
func FromConfig(cfg *config.Config) *Manager {
	return New(cfg.DocRootPath(), cfg.BackupsPath())
}

// DocRoot is the absolute documentation root.
func (m *Manager) DocRoot() string { return m.docRoot }

// UnitDir is the absolute directory of a unit.
func (m *Manager) UnitDir(unit string) string {
	return filepath.Join(m.docRoot, filepath.FromSlash(unit))
}

// ArtifactPath is the absolute path of one artifact of a unit.
func (m *Manager) ArtifactPath(unit, name string) string {
	return filepath.Join(m.UnitDir(unit), ArtifactFile(name))
}

// 🔍 VerifyStructure checks that the documentation root exists as a directory
func (m *Manager) VerifyStructure(ctx context.Context) error {
	info, err := os.Stat(m.docRoot)
	if err != nil {
		return errors.Errorf("checking documentation root: %w", err)
	}
	if !info.IsDir() {
		return errors.Errorf("documentation root is not a directory")
	}
	return nil
}

// 🏗️ EnsureUnitDir creates the unit directory and its parents. created
// reports whether the directory had to be made.
func (m *Manager) EnsureUnitDir(ctx context.Context, unit string) (dir string, created bool, err error) {
	dir = m.UnitDir(unit)
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return "", false, errors.Errorf("unit path %s exists and is not a directory", unit)
		}
		return dir, false, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", false, errors.Errorf("creating unit directory: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("unit", unit).Msg("created unit directory")
	return dir, true, nil
}

// PruneUnitDir removes the unit directory and the parents it leaves empty,
// stopping at the documentation root. Non-empty directories are kept.
func (m *Manager) PruneUnitDir(ctx context.Context, unit string) error {
	dir := m.UnitDir(unit)
	if !strings.HasPrefix(dir, m.docRoot+string(filepath.Separator)) {
		return errors.Errorf("refusing to prune %s outside the documentation root", unit)
	}
	m.removeEmptyDirs(dir)
	return nil
}

// 🔎 ExistingArtifacts returns the artifacts of a unit already on disk
func (m *Manager) ExistingArtifacts(ctx context.Context, unit string) (map[string]string, error) {
	found := map[string]string{}
	for _, name := range Artifacts {
		p := m.ArtifactPath(unit, name)
		info, err := os.Stat(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Errorf("checking artifact %s: %w", ArtifactFile(name), err)
		}
		if info.Mode().IsRegular() {
			found[name] = p
		}
	}
	return found, nil
}

// 💾 BackupArtifacts copies the unit's existing artifacts to
// <backups>/<timestamp>/<unit>/. It returns nil when nothing exists.
func (m *Manager) BackupArtifacts(ctx context.Context, unit string) (*Backup, error) {
	existing, err := m.ExistingArtifacts(ctx, unit)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, nil
	}

	stamp := m.Now().UTC().Format(backupTimeLayout)
	dir := filepath.Join(m.backupRoot, stamp, filepath.FromSlash(unit))
	for i := 1; ; i++ {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			break
		}
		dir = filepath.Join(m.backupRoot, fmt.Sprintf("%s-%d", stamp, i), filepath.FromSlash(unit))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Errorf("creating backup directory: %w", err)
	}

	backup := &Backup{Dir: dir, Files: map[string]string{}}
	for name, src := range existing {
		dst := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return nil, errors.Errorf("backing up %s: %w", ArtifactFile(name), err)
		}
		backup.Files[name] = dst
	}

	zerolog.Ctx(ctx).Debug().
		Str("unit", unit).
		Str("dir", dir).
		Int("files", len(backup.Files)).
		Msg("backed up existing artifacts")
	return backup, nil
}

// ✍️ WriteFileAtomic writes content next to path and renames it into place
func (m *Manager) WriteFileAtomic(ctx context.Context, path string, content []byte) error {
	tempPath := path + TempSuffix

	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return errors.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// ✍️ WriteAll writes every file or none of them. Content is staged in temp
// files first; if a rename fails the files already replaced are restored.
func (m *Manager) WriteAll(ctx context.Context, files map[string][]byte) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	removeTemps := func() {
		for _, p := range paths {
			os.Remove(p + TempSuffix)
		}
	}

	for _, p := range paths {
		if err := os.WriteFile(p+TempSuffix, files[p], 0644); err != nil {
			removeTemps()
			return errors.Errorf("writing %s: %w", filepath.Base(p), err)
		}
	}

	type previous struct {
		content []byte
		existed bool
	}
	prev := make(map[string]previous, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		switch {
		case err == nil:
			prev[p] = previous{content: data, existed: true}
		case os.IsNotExist(err):
			prev[p] = previous{}
		default:
			removeTemps()
			return errors.Errorf("reading %s: %w", filepath.Base(p), err)
		}
	}

	for i, p := range paths {
		if err := os.Rename(p+TempSuffix, p); err != nil {
			for _, done := range paths[:i] {
				if prev[done].existed {
					os.WriteFile(done, prev[done].content, 0644)
				} else {
					os.Remove(done)
				}
			}
			removeTemps()
			return errors.Errorf("renaming %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// 🧹 CleanupTemp removes scratch files left in a unit directory
func (m *Manager) CleanupTemp(ctx context.Context, unit string) ([]string, error) {
	entries, err := os.ReadDir(m.UnitDir(unit))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Errorf("reading unit directory: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), TempSuffix) {
			continue
		}
		p := filepath.Join(m.UnitDir(unit), e.Name())
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return removed, errors.Errorf("removing %s: %w", e.Name(), err)
		}
		removed = append(removed, p)
	}
	return removed, nil
}

// resolve maps a doc-root-relative path to an absolute one inside the root
func (m *Manager) resolve(rel string) (string, error) {
	p := filepath.Join(m.docRoot, filepath.FromSlash(rel))
	if !strings.HasPrefix(p, m.docRoot+string(filepath.Separator)) {
		return "", errors.Errorf("%s is outside the documentation root", rel)
	}
	return p, nil
}

// ReadFile reads a doc-root-relative file.
func (m *Manager) ReadFile(ctx context.Context, rel string) ([]byte, error) {
	p, err := m.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", rel, err)
	}
	return data, nil
}

// ♻️ RestoreFile writes content back to a doc-root-relative path,
// recreating parent directories a rollback may have pruned
func (m *Manager) RestoreFile(ctx context.Context, rel string, content []byte) error {
	p, err := m.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Errorf("creating directory for %s: %w", rel, err)
	}
	if err := m.WriteFileAtomic(ctx, p, content); err != nil {
		return errors.Errorf("restoring %s: %w", rel, err)
	}
	zerolog.Ctx(ctx).Debug().Str("file", rel).Msg("restored file")
	return nil
}

// RemoveFile deletes a doc-root-relative file and then any parent
// directories it leaves empty, stopping at the documentation root.
func (m *Manager) RemoveFile(ctx context.Context, rel string) error {
	p, err := m.resolve(rel)
	if err != nil {
		return errors.Errorf("refusing to remove: %w", err)
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Errorf("removing %s: %w", rel, err)
	}
	m.removeEmptyDirs(filepath.Dir(p))
	return nil
}

// removeEmptyDirs removes dir and its parents while they are empty
func (m *Manager) removeEmptyDirs(dir string) {
	for ; dir != m.docRoot && strings.HasPrefix(dir, m.docRoot+string(filepath.Separator)); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return errors.Errorf("reading source file info: %w", err)
	}

	destination, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Errorf("creating destination file: %w", err)
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return errors.Errorf("copying file: %w", err)
	}

	return destination.Close()
}
