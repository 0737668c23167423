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
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 📁 Layout defaults inside the store directory
const (
	DefaultStoreDir         = ".docrc"
	DefaultIgnoreFile       = ".docrcignore"
	DefaultCommitMessage    = "docs: update documentation for {{file_path}}"
	DefaultProgressInterval = 10
	DefaultGitBinary        = "git"
	DefaultAuthorName       = "docrc"
	DefaultAuthorEmail      = "docrc@localhost"
	DefaultLockRetries      = 5

	repoDirName      = "repo"
	indexFileName    = "index"
	docsDirName      = "docs"
	backupsDirName   = "backups"
	templatesDirName = "templates"
)

// KnownStrategies lists the accepted conflict_strategy values.
var KnownStrategies = []string{"overwrite", "skip", "backup-then-overwrite"}

// 🔧 GitArgs configures the isolated git backend
type GitArgs struct {
	Binary      string `json:"binary" yaml:"binary" toml:"binary"`                   // git executable
	AuthorName  string `json:"author_name" yaml:"author_name" toml:"author_name"`    // commit author name
	AuthorEmail string `json:"author_email" yaml:"author_email" toml:"author_email"` // commit author email
	LockRetries int    `json:"lock_retries" yaml:"lock_retries" toml:"lock_retries"` // retries on index.lock contention
}

// 📝 TemplateArgs configures the generation collaborator
type TemplateArgs struct {
	Dir       string            `json:"dir" yaml:"dir" toml:"dir"`                   // directory holding index.md / history.md overrides
	Variables map[string]string `json:"variables" yaml:"variables" toml:"variables"` // extra {{variables}}
}

// 📚 Config is the docrc configuration, built once per process and passed to every component
type Config struct {
	DocRoot               string        `json:"doc_root" yaml:"doc_root" toml:"doc_root"`
	IgnoreFile            string        `json:"ignore_file" yaml:"ignore_file" toml:"ignore_file"`
	DisableDefaultIgnores bool          `json:"disable_default_ignores" yaml:"disable_default_ignores" toml:"disable_default_ignores"`
	AutoCommit            bool          `json:"auto_commit" yaml:"auto_commit" toml:"auto_commit"`
	CommitMessage         string        `json:"commit_message" yaml:"commit_message" toml:"commit_message"`
	ConflictStrategy      string        `json:"conflict_strategy" yaml:"conflict_strategy" toml:"conflict_strategy"`
	ProgressInterval      int           `json:"progress_interval" yaml:"progress_interval" toml:"progress_interval"`
	Git                   *GitArgs      `json:"git,omitempty" yaml:"git,omitempty" toml:"git,omitempty"`
	Templates             *TemplateArgs `json:"templates,omitempty" yaml:"templates,omitempty" toml:"templates,omitempty"`

	// ProjectRoot is the absolute project root. It is never read from a file.
	ProjectRoot string `json:"-" yaml:"-" toml:"-"`
	// StoreDir is the project-relative store directory. It is never read from a file.
	StoreDir string `json:"-" yaml:"-" toml:"-"`

	location string
}

// 🏭 Default returns a validated configuration rooted at root
func Default(root string) *Config {
	cfg := &Config{ProjectRoot: root, StoreDir: DefaultStoreDir}
	// defaults never fail validation
	_ = cfg.Validate()
	return cfg
}

// 🔍 Validate fills defaults and checks that the configuration is usable
func (cfg *Config) Validate() error {
	if cfg.StoreDir == "" {
		cfg.StoreDir = DefaultStoreDir
	}
	cfg.StoreDir = filepath.Clean(cfg.StoreDir)
	if err := checkRelative("store dir", cfg.StoreDir); err != nil {
		return err
	}

	if cfg.DocRoot == "" {
		cfg.DocRoot = filepath.Join(cfg.StoreDir, docsDirName)
	}
	cfg.DocRoot = filepath.Clean(filepath.FromSlash(cfg.DocRoot))
	if err := checkRelative("doc_root", cfg.DocRoot); err != nil {
		return err
	}
	if cfg.DocRoot == "." {
		return errors.Errorf("doc_root must not be the project root")
	}
	if cfg.DocRoot == filepath.Join(cfg.StoreDir, repoDirName) {
		return errors.Errorf("doc_root must not be the repository metadata directory")
	}

	if cfg.IgnoreFile == "" {
		cfg.IgnoreFile = DefaultIgnoreFile
	}
	if cfg.CommitMessage == "" {
		cfg.CommitMessage = DefaultCommitMessage
	}

	cfg.ConflictStrategy = strings.ToLower(strings.TrimSpace(cfg.ConflictStrategy))
	if cfg.ConflictStrategy != "" && !slices.Contains(KnownStrategies, cfg.ConflictStrategy) {
		return errors.Errorf("conflict_strategy %q is not one of %s", cfg.ConflictStrategy, strings.Join(KnownStrategies, ", "))
	}

	if cfg.ProgressInterval < 0 {
		return errors.Errorf("progress_interval must not be negative")
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}

	if cfg.Git == nil {
		cfg.Git = &GitArgs{}
	}
	if cfg.Git.Binary == "" {
		cfg.Git.Binary = DefaultGitBinary
	}
	if cfg.Git.AuthorName == "" {
		cfg.Git.AuthorName = DefaultAuthorName
	}
	if cfg.Git.AuthorEmail == "" {
		cfg.Git.AuthorEmail = DefaultAuthorEmail
	}
	if cfg.Git.LockRetries < 0 {
		return errors.Errorf("git.lock_retries must not be negative")
	}
	if cfg.Git.LockRetries == 0 {
		cfg.Git.LockRetries = DefaultLockRetries
	}

	if cfg.Templates == nil {
		cfg.Templates = &TemplateArgs{}
	}
	if cfg.Templates.Dir == "" {
		cfg.Templates.Dir = filepath.Join(cfg.StoreDir, templatesDirName)
	}
	if cfg.Templates.Variables == nil {
		cfg.Templates.Variables = map[string]string{}
	}

	return nil
}

func checkRelative(field, p string) error {
	if filepath.IsAbs(p) {
		return errors.Errorf("%s must be relative to the project root, got %q", field, p)
	}
	if p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return errors.Errorf("%s must stay inside the project root, got %q", field, p)
	}
	return nil
}

// Location returns the file the configuration was loaded from, empty for defaults.
func (cfg *Config) Location() string {
	return cfg.location
}

func (cfg *Config) abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(cfg.ProjectRoot, rel)
}

// StorePath is the absolute store directory.
func (cfg *Config) StorePath() string { return cfg.abs(cfg.StoreDir) }

// GitDir is the absolute isolated repository metadata directory.
func (cfg *Config) GitDir() string { return filepath.Join(cfg.StorePath(), repoDirName) }

// IndexFile is the absolute isolated index file.
func (cfg *Config) IndexFile() string { return filepath.Join(cfg.StorePath(), indexFileName) }

// DocRootPath is the absolute documentation root, which is also the git work tree.
func (cfg *Config) DocRootPath() string { return cfg.abs(cfg.DocRoot) }

// BackupsPath is where timestamped conflict backups are written.
func (cfg *Config) BackupsPath() string { return filepath.Join(cfg.StorePath(), backupsDirName) }

// TemplatesPath is the absolute template override directory.
func (cfg *Config) TemplatesPath() string { return cfg.abs(cfg.Templates.Dir) }

// IgnoreFilePath is the absolute user ignore file.
func (cfg *Config) IgnoreFilePath() string { return cfg.abs(cfg.IgnoreFile) }

// 📝 String returns a one-line description of the layout
func (cfg *Config) String() string {
	return fmt.Sprintf("%s (docs: %s, auto_commit: %t)", cfg.StoreDir, cfg.DocRoot, cfg.AutoCommit)
}
