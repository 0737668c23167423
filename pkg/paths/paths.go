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

package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/failure"
)

// 📍 Resolver maps user input to project-relative paths and source paths to
// documentation units. All returned relative paths use the OS separator and
// never contain ".." segments.
type Resolver struct {
	root    string
	docRoot string
	store   string

	// Getwd returns the caller's working directory, defaults to os.Getwd
	Getwd func() (string, error)
}

// 🏭 New creates a resolver for the project at root. docRoot and store are
// project-relative (or absolute inside root).
func New(root, docRoot, store string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving project root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	r := &Resolver{root: abs, Getwd: os.Getwd}

	if r.docRoot, err = r.relativeTo(docRoot); err != nil {
		return nil, errors.Errorf("doc root: %w", err)
	}
	if r.store, err = r.relativeTo(store); err != nil {
		return nil, errors.Errorf("store: %w", err)
	}
	return r, nil
}

func (r *Resolver) relativeTo(p string) (string, error) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.root, p)
	}
	return r.within(filepath.Clean(p), p)
}

// Root is the absolute project root.
func (r *Resolver) Root() string { return r.root }

// DocRoot is the project-relative documentation root.
func (r *Resolver) DocRoot() string { return r.docRoot }

// 🔍 ResolveInput turns ".", an absolute path or a path relative to the
// working directory into a project-relative path. The root itself is ".".
func (r *Resolver) ResolveInput(input string) (string, error) {
	if input == "" {
		input = "."
	}

	p := filepath.FromSlash(input)
	if !filepath.IsAbs(p) {
		wd, err := r.Getwd()
		if err != nil {
			return "", errors.Errorf("getting working directory: %w", err)
		}
		p = filepath.Join(wd, p)
	}
	p = filepath.Clean(p)

	// symlinks inside the project may point outside it; follow what exists
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	} else if resolved, ok := r.evalExistingPrefix(p); ok {
		p = resolved
	}

	return r.within(p, input)
}

// evalExistingPrefix resolves symlinks in the longest existing ancestor of p
// so that not-yet-existing paths under a symlinked directory still compare
// correctly against the root.
func (r *Resolver) evalExistingPrefix(p string) (string, bool) {
	var rest []string
	for dir := p; ; {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		rest = append([]string{filepath.Base(dir)}, rest...)
		dir = parent
	}
}

func (r *Resolver) within(abs, input string) (string, error) {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", failure.New(failure.OutsideProjectBoundary, input, "path is outside the project root")
	}
	return rel, nil
}

// 📄 ToDocumentationPath maps a project-relative source path to its
// documentation unit directory, e.g. src/models.py -> <doc-root>/src/models.
// Pure, no I/O.
func (r *Resolver) ToDocumentationPath(rel string) string {
	return filepath.Join(r.docRoot, UnitPath(rel))
}

// UnitPath is the doc-root-relative unit directory for a source path:
// the extension is stripped, dotfiles keep their name.
func UnitPath(rel string) string {
	rel = filepath.Clean(filepath.FromSlash(rel))
	dir, base := filepath.Split(rel)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(dir, base)
}

// 🔄 FromDocumentationPath strips the documentation-root prefix when present
// and returns the input unchanged otherwise.
func (r *Resolver) FromDocumentationPath(p string) string {
	clean := filepath.Clean(filepath.FromSlash(p))
	if filepath.IsAbs(clean) {
		if rel, err := r.within(clean, p); err == nil {
			clean = rel
		} else {
			return p
		}
	}
	if clean == r.docRoot {
		return "."
	}
	if after, ok := strings.CutPrefix(clean, r.docRoot+string(filepath.Separator)); ok {
		return after
	}
	return p
}

// ToWorkTreePath converts a project-relative path inside the doc root to the
// slash-separated form git expects, relative to the work tree.
func (r *Resolver) ToWorkTreePath(rel string) (string, error) {
	if !r.IsWithinDocRoot(rel) {
		return "", failure.New(failure.OutsideProjectBoundary, rel, "path is outside the documentation root")
	}
	return filepath.ToSlash(r.FromDocumentationPath(rel)), nil
}

// Abs joins a project-relative path onto the root.
func (r *Resolver) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(r.root, rel)
}

// IsWithinDocRoot reports whether a project-relative path lies in the doc root.
func (r *Resolver) IsWithinDocRoot(rel string) bool {
	return isWithin(r.docRoot, rel)
}

// IsWithinStore reports whether a project-relative path lies in the store.
func (r *Resolver) IsWithinStore(rel string) bool {
	return isWithin(r.store, rel)
}

func isWithin(parent, rel string) bool {
	clean := filepath.Clean(filepath.FromSlash(rel))
	return clean == parent || strings.HasPrefix(clean, parent+string(filepath.Separator))
}

// ToSlash normalizes a relative path for matching and display.
func ToSlash(rel string) string {
	return path.Clean(filepath.ToSlash(rel))
}
