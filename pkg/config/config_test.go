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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "no_config_uses_defaults",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, filepath.Join(".docrc", "docs"), cfg.DocRoot, "doc root should default inside the store")
				assert.Equal(t, DefaultIgnoreFile, cfg.IgnoreFile, "ignore file should default")
				assert.Equal(t, DefaultCommitMessage, cfg.CommitMessage, "commit message should default")
				assert.Equal(t, DefaultProgressInterval, cfg.ProgressInterval, "progress interval should default")
				assert.Equal(t, "git", cfg.Git.Binary, "git binary should default")
				assert.False(t, cfg.AutoCommit, "auto commit should be off by default")
				assert.Empty(t, cfg.Location(), "defaults have no location")
			},
		},
		{
			name: "yaml_config",
			file: "config.yaml",
			config: `
doc_root: docs/shadow
auto_commit: true
conflict_strategy: Backup-Then-Overwrite
git:
  author_name: Doc Bot
templates:
  variables:
    team: platform
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, filepath.Join("docs", "shadow"), cfg.DocRoot, "doc root should match")
				assert.True(t, cfg.AutoCommit, "auto commit should be on")
				assert.Equal(t, "backup-then-overwrite", cfg.ConflictStrategy, "strategy should be normalized")
				assert.Equal(t, "Doc Bot", cfg.Git.AuthorName, "author should match")
				assert.Equal(t, DefaultAuthorEmail, cfg.Git.AuthorEmail, "email should default")
				assert.Equal(t, "platform", cfg.Templates.Variables["team"], "variable should match")
				assert.NotEmpty(t, cfg.Location(), "location should be recorded")
			},
		},
		{
			name:        "yaml_unknown_field",
			file:        "config.yaml",
			config:      "destination: /tmp\n",
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name:   "json_config",
			file:   "config.json",
			config: `{"ignore_file": "ignore.txt", "progress_interval": 3}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "ignore.txt", cfg.IgnoreFile, "ignore file should match")
				assert.Equal(t, 3, cfg.ProgressInterval, "interval should match")
			},
		},
		{
			name: "toml_config",
			file: "config.toml",
			config: `
auto_commit = true
commit_message = "docs({{file_stem}}): refresh"

[git]
lock_retries = 2
`,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.AutoCommit, "auto commit should be on")
				assert.Equal(t, "docs({{file_stem}}): refresh", cfg.CommitMessage, "message should match")
				assert.Equal(t, 2, cfg.Git.LockRetries, "retries should match")
			},
		},
		{
			name:        "toml_unknown_key",
			file:        "config.toml",
			config:      "colour = \"blue\"\n",
			wantErr:     true,
			errContains: "unknown keys",
		},
		{
			name: "hcl_config",
			file: "config.hcl",
			config: `
doc_root = "notes"
auto_commit = true

git {
  author_email = "docs@example.com"
}

templates {
  dir = "tmpl"
  variables = {
    owner = "me"
  }
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "notes", cfg.DocRoot, "doc root should match")
				assert.True(t, cfg.AutoCommit, "auto commit should be on")
				assert.Equal(t, "docs@example.com", cfg.Git.AuthorEmail, "email should match")
				assert.Equal(t, "tmpl", cfg.Templates.Dir, "template dir should match")
				assert.Equal(t, "me", cfg.Templates.Variables["owner"], "variable should match")
			},
		},
		{
			name:        "invalid_strategy",
			file:        "config.yaml",
			config:      "conflict_strategy: merge\n",
			wantErr:     true,
			errContains: "conflict_strategy",
		},
		{
			name:        "doc_root_escapes_project",
			file:        "config.yaml",
			config:      "doc_root: ../elsewhere\n",
			wantErr:     true,
			errContains: "inside the project root",
		},
		{
			name:        "doc_root_is_project_root",
			file:        "config.yaml",
			config:      "doc_root: .\n",
			wantErr:     true,
			errContains: "must not be the project root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := zerolog.Nop().WithContext(context.Background())
			root := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(root, DefaultStoreDir), 0755))

			if tt.file != "" {
				path := filepath.Join(root, DefaultStoreDir, tt.file)
				require.NoError(t, os.WriteFile(path, []byte(tt.config), 0644), "writing config should succeed")
			}

			cfg, err := Load(ctx, root, DefaultStoreDir)
			if tt.wantErr {
				require.Error(t, err, "Load should fail")
				assert.Contains(t, err.Error(), tt.errContains, "error should contain expected message")
				return
			}

			require.NoError(t, err, "Load should succeed")
			assert.Equal(t, root, cfg.ProjectRoot, "project root should be set")
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestHCLEnv(t *testing.T) {
	p := &HCLParser{Environ: func() []string {
		return []string{"DOCRC_EMAIL=ci@example.com", "BROKEN"}
	}}

	cfg, err := p.Parse(context.Background(), []byte(`
git {
  author_email = env.DOCRC_EMAIL
}
`))
	require.NoError(t, err, "parsing should succeed")
	require.NotNil(t, cfg.Git, "git block should be decoded")
	assert.Equal(t, "ci@example.com", cfg.Git.AuthorEmail, "env value should be interpolated")
}

func TestLayoutPaths(t *testing.T) {
	cfg := Default("/work/proj")

	assert.Equal(t, filepath.Join("/work/proj", ".docrc"), cfg.StorePath())
	assert.Equal(t, filepath.Join("/work/proj", ".docrc", "repo"), cfg.GitDir())
	assert.Equal(t, filepath.Join("/work/proj", ".docrc", "index"), cfg.IndexFile())
	assert.Equal(t, filepath.Join("/work/proj", ".docrc", "docs"), cfg.DocRootPath())
	assert.Equal(t, filepath.Join("/work/proj", ".docrc", "backups"), cfg.BackupsPath())
	assert.Equal(t, filepath.Join("/work/proj", ".docrc", "templates"), cfg.TemplatesPath())
	assert.Equal(t, filepath.Join("/work/proj", ".docrcignore"), cfg.IgnoreFilePath())
}

func TestWriteDefault(t *testing.T) {
	ctx := zerolog.Nop().WithContext(context.Background())
	root := t.TempDir()
	cfg := Default(root)

	wrote, err := WriteDefault(ctx, cfg)
	require.NoError(t, err, "writing default should succeed")
	assert.True(t, wrote, "first write should create the file")

	wrote, err = WriteDefault(ctx, cfg)
	require.NoError(t, err, "second write should succeed")
	assert.False(t, wrote, "second write should leave the file alone")

	loaded, err := Load(ctx, root, DefaultStoreDir)
	require.NoError(t, err, "written config should load")
	assert.Equal(t, cfg.DocRoot, loaded.DocRoot, "round trip should keep doc root")
	assert.Equal(t, cfg.CommitMessage, loaded.CommitMessage, "round trip should keep message")
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".docrc"), 0755))
	nested := filepath.Join(root, "src", "pkg")
	require.NoError(t, os.MkdirAll(nested, 0755))

	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	got, found, err := FindProjectRoot(nested, "")
	require.NoError(t, err, "lookup should succeed")
	assert.True(t, found, "store should be found")
	assert.Equal(t, want, got, "root should be the directory holding the store")

	other := t.TempDir()
	got, found, err = FindProjectRoot(other, "")
	require.NoError(t, err, "lookup should succeed")
	assert.False(t, found, "no store should be found")
	wantOther, err := filepath.EvalSymlinks(other)
	require.NoError(t, err)
	assert.Equal(t, wantOther, got, "start should be returned when nothing is found")
}
