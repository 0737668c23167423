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

package ignore

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultPatterns are always loaded before the user's ignore file unless disabled.
var DefaultPatterns = []string{
	// version control metadata
	".git/",
	".hg/",
	".svn/",
	// os and editor artifacts
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
	"*.swp",
	"*.swo",
	"*~",
	".idea/",
	".vscode/",
	// build caches
	"__pycache__/",
	"*.pyc",
	"node_modules/",
	".cache/",
	".pytest_cache/",
	".mypy_cache/",
	".venv/",
	".tox/",
	// binaries and media
	"*.exe",
	"*.dll",
	"*.so",
	"*.dylib",
	"*.o",
	"*.a",
	"*.class",
	"*.jar",
	"*.zip",
	"*.tar",
	"*.gz",
	"*.tgz",
	"*.7z",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.pdf",
	"*.mp3",
	"*.mp4",
	"*.mov",
	"*.wav",
	"*.woff",
	"*.woff2",
	"*.ttf",
}

// 📏 Rule is one compiled ignore pattern
type Rule struct {
	Pattern string   // Pattern as written, without the leading "!"
	Source  string   // Where the rule came from ("defaults" or a file path)
	Line    int      // 1-based line in Source
	Index   int      // Declaration order across the whole rule set
	DirOnly bool     // Trailing "/" restricts the rule to directories
	globs   []string // anchored doublestar globs
}

// Match reports whether the rule matches the slash-separated path.
func (r Rule) Match(p string, isDir bool) bool {
	for i, g := range r.globs {
		// the bare glob names the entry itself; directory rules need a directory there
		if i == 0 && r.DirOnly && !isDir {
			continue
		}
		if ok, _ := doublestar.Match(g, p); ok {
			return true
		}
	}
	return false
}

// 📚 RuleSet holds the positive rules and, separately, the negations.
// It is immutable once compiled.
type RuleSet struct {
	Positive []Rule
	Negation []Rule
}

// Len is the total number of rules.
func (rs *RuleSet) Len() int { return len(rs.Positive) + len(rs.Negation) }

// ignored applies the override pass: the latest matching positive rule
// must be declared after every matching negation.
func (rs *RuleSet) ignored(p string, isDir bool) bool {
	lastPositive := -1
	for _, r := range rs.Positive {
		if r.Match(p, isDir) && r.Index > lastPositive {
			lastPositive = r.Index
		}
	}
	if lastPositive < 0 {
		return false
	}
	for _, r := range rs.Negation {
		if r.Index > lastPositive && r.Match(p, isDir) {
			return false
		}
	}
	return true
}

// Compile parses gitignore-style lines into rules, appending to rs.
func (rs *RuleSet) Compile(source string, data []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		if err := rs.add(source, line, sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Errorf("reading %s: %w", source, err)
	}
	return nil
}

func (rs *RuleSet) add(source string, line int, raw string) error {
	text := strings.TrimRight(raw, " \t\r")
	if text == "" || strings.HasPrefix(text, "#") {
		return nil
	}

	negate := false
	switch {
	case strings.HasPrefix(text, "!"):
		negate = true
		text = text[1:]
	case strings.HasPrefix(text, `\!`), strings.HasPrefix(text, `\#`):
		text = text[1:]
	}

	dirOnly := strings.HasSuffix(text, "/")
	base := strings.TrimRight(text, "/")
	if base == "" {
		return errors.Errorf("%s:%d: empty pattern %q", source, line, raw)
	}

	// a slash anywhere but the end anchors the pattern at the root
	if strings.Contains(base, "/") {
		base = strings.TrimPrefix(base, "/")
	} else {
		base = "**/" + base
	}

	// the second glob needs at least one segment below base, so a file
	// named like a directory rule never matches it
	globs := []string{base, base + "/**/*"}
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			return errors.Errorf("%s:%d: invalid pattern %q", source, line, raw)
		}
	}

	r := Rule{
		Pattern: text,
		Source:  source,
		Line:    line,
		Index:   rs.Len(),
		DirOnly: dirOnly,
		globs:   globs,
	}
	if negate {
		rs.Negation = append(rs.Negation, r)
	} else {
		rs.Positive = append(rs.Positive, r)
	}
	return nil
}

// ⚙️ Options configures a Matcher
type Options struct {
	File            string   // Absolute path of the user ignore file, optional
	Extra           []string // Patterns added after the defaults, e.g. the store directory
	DisableDefaults bool     // Skip DefaultPatterns
}

// 🎯 Matcher decides which project-relative paths are excluded from documentation
type Matcher struct {
	opts  Options
	mu    sync.RWMutex
	rules *RuleSet
}

// 🏭 Load compiles the defaults, extra patterns and the ignore file
func Load(ctx context.Context, opts Options) (*Matcher, error) {
	m := &Matcher{opts: opts}
	if err := m.Reload(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// 🔄 Reload recompiles every rule, e.g. after the ignore file changed.
// The previous rule set stays active if compilation fails.
func (m *Matcher) Reload(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	rs := &RuleSet{}

	if !m.opts.DisableDefaults {
		if err := rs.Compile("defaults", []byte(strings.Join(DefaultPatterns, "\n"))); err != nil {
			return errors.Errorf("compiling default patterns: %w", err)
		}
	}
	if len(m.opts.Extra) > 0 {
		if err := rs.Compile("extra", []byte(strings.Join(m.opts.Extra, "\n"))); err != nil {
			return errors.Errorf("compiling extra patterns: %w", err)
		}
	}

	if m.opts.File != "" {
		data, err := os.ReadFile(m.opts.File)
		switch {
		case err == nil:
			if err := rs.Compile(filepath.Base(m.opts.File), data); err != nil {
				return errors.Errorf("compiling ignore file: %w", err)
			}
		case os.IsNotExist(err):
			logger.Debug().Str("file", m.opts.File).Msg("no ignore file")
		default:
			return errors.Errorf("reading ignore file: %w", err)
		}
	}

	m.mu.Lock()
	m.rules = rs
	m.mu.Unlock()

	logger.Debug().
		Int("positive", len(rs.Positive)).
		Int("negation", len(rs.Negation)).
		Msg("compiled ignore rules")
	return nil
}

// Rules returns the active rule set.
func (m *Matcher) Rules() *RuleSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules
}

// 🔍 ShouldIgnore reports whether the file at the project-relative path is excluded.
func (m *Matcher) ShouldIgnore(p string) bool {
	return m.Rules().ignored(normalize(p), false)
}

// ShouldIgnoreDir is ShouldIgnore for a directory, which also matches
// directory-only rules against the path itself.
func (m *Matcher) ShouldIgnoreDir(p string) bool {
	return m.Rules().ignored(normalize(p), true)
}

// CanPrune reports whether a directory walk may skip everything under p.
// Negations could re-include files below an ignored directory, so pruning
// is only safe when there are none.
func (m *Matcher) CanPrune(p string) bool {
	return len(m.Rules().Negation) == 0 && m.ShouldIgnoreDir(p)
}

// 🧹 Filter drops ignored files, keeping the order of the rest.
func (m *Matcher) Filter(paths []string) []string {
	rs := m.Rules()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !rs.ignored(normalize(p), false) {
			out = append(out, p)
		}
	}
	return out
}

func normalize(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	return strings.TrimPrefix(p, "./")
}
