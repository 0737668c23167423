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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadWith(t *testing.T, content string, opts Options) *Matcher {
	t.Helper()
	ctx := zerolog.Nop().WithContext(context.Background())
	if content != "" {
		opts.File = filepath.Join(t.TempDir(), ".docrcignore")
		require.NoError(t, os.WriteFile(opts.File, []byte(content), 0644), "writing ignore file should succeed")
	}
	m, err := Load(ctx, opts)
	require.NoError(t, err, "loading matcher should succeed")
	return m
}

func TestFilterScenario(t *testing.T) {
	m := loadWith(t, "*.log\nbuild/\n", Options{})

	got := m.Filter([]string{"a.py", "a.log", "build/x.py", "README.md"})
	assert.Equal(t, []string{"a.py", "README.md"}, got, "log files and build contents should be dropped")
}

func TestShouldIgnore(t *testing.T) {
	m := loadWith(t, `
# comment line

*.log
!keep.log
build/
/vendor
docs/*.tmp
\!bang
secret?.txt
`, Options{DisableDefaults: true})

	tests := []struct {
		path string
		want bool
	}{
		{"a.log", true},
		{"nested/deep/a.log", true},
		{"keep.log", false},
		{"nested/keep.log", false},
		{"build/x.py", true},
		{"src/build/x.py", true},
		{"build", false},
		{"vendor/lib.go", true},
		{"src/vendor/lib.go", false},
		{"docs/a.tmp", true},
		{"docs/sub/a.tmp", false},
		{"!bang", true},
		{"secret1.txt", true},
		{"secret12.txt", false},
		{"main.go", false},
		{"./a.log", true},
		{"# comment line", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.ShouldIgnore(tt.path), "ShouldIgnore(%q)", tt.path)
		})
	}

	assert.True(t, m.ShouldIgnoreDir("build"), "directory rules match the directory itself")
	assert.True(t, m.ShouldIgnoreDir("src/build"), "unanchored directory rules match at any depth")
}

func TestNegationOnlyOverridesEarlierRules(t *testing.T) {
	m := loadWith(t, "!important.log\n*.log\n", Options{DisableDefaults: true})
	assert.True(t, m.ShouldIgnore("important.log"), "a negation declared before the positive match does not apply")

	m = loadWith(t, "*.log\n!important.log\n", Options{DisableDefaults: true})
	assert.False(t, m.ShouldIgnore("important.log"), "a later negation re-includes the path")
	assert.True(t, m.ShouldIgnore("other.log"), "negation only covers matching paths")
}

func TestDefaults(t *testing.T) {
	m := loadWith(t, "", Options{Extra: []string{"/.docrc/"}})

	for _, p := range []string{".git/config", "src/.DS_Store", "node_modules/x/index.js", "img/logo.png", "pkg/__pycache__/m.pyc", ".docrc/docs/a/index.md"} {
		assert.True(t, m.ShouldIgnore(p), "%s should be ignored by default", p)
	}
	for _, p := range []string{"main.go", "src/models.py", "README.md", "sub/.docrc/x"} {
		assert.False(t, m.ShouldIgnore(p), "%s should be kept", p)
	}

	assert.True(t, m.CanPrune(".git"), "ignored directories can be pruned without negations")

	withNegation := loadWith(t, "!node_modules/keep.js\n", Options{})
	assert.False(t, withNegation.CanPrune("node_modules"), "negations disable pruning")
	assert.False(t, withNegation.ShouldIgnore("node_modules/keep.js"), "negation reaches into ignored directories")
}

func TestFilterIdempotent(t *testing.T) {
	m := loadWith(t, "*.log\nbuild/\n!build/keep.py\ntmp*\n", Options{})

	inputs := [][]string{
		{},
		{"a.py", "a.log", "build/x.py", "build/keep.py", "tmpfile", "z/tmp/a.go", "README.md"},
		{"x/y/z.go", "x/y/z.log", ".git/HEAD", "x/y/z.go"},
	}
	for _, in := range inputs {
		once := m.Filter(in)
		assert.Equal(t, once, m.Filter(once), "filtering twice should equal filtering once")
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	m := loadWith(t, "*.log\n", Options{DisableDefaults: true})
	got := m.Filter([]string{"z.py", "a.log", "b.py", "a.py"})
	assert.Equal(t, []string{"z.py", "b.py", "a.py"}, got)
}

func TestInvalidPattern(t *testing.T) {
	ctx := zerolog.Nop().WithContext(context.Background())
	file := filepath.Join(t.TempDir(), ".docrcignore")
	require.NoError(t, os.WriteFile(file, []byte("ok.txt\nbroken[\n"), 0644))

	_, err := Load(ctx, Options{File: file})
	require.Error(t, err, "invalid patterns should fail the load")
	assert.Contains(t, err.Error(), ".docrcignore:2", "error should point at the line")
}

func TestReload(t *testing.T) {
	ctx := zerolog.Nop().WithContext(context.Background())
	file := filepath.Join(t.TempDir(), ".docrcignore")

	m, err := Load(ctx, Options{File: file, DisableDefaults: true})
	require.NoError(t, err, "missing ignore file should be tolerated")
	assert.False(t, m.ShouldIgnore("a.log"))
	assert.Equal(t, 0, m.Rules().Len())

	require.NoError(t, os.WriteFile(file, []byte("*.log\n"), 0644))
	require.NoError(t, m.Reload(ctx), "reload should succeed")
	assert.True(t, m.ShouldIgnore("a.log"), "new rules should apply after reload")

	require.NoError(t, os.WriteFile(file, []byte("[\n"), 0644))
	require.Error(t, m.Reload(ctx), "reload with a bad pattern should fail")
	assert.True(t, m.ShouldIgnore("a.log"), "previous rules stay active after a failed reload")
}
