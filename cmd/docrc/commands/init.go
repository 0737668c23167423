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

package commands

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/cmd/docrc/opts"
	"github.com/walteh/docrc/pkg/config"
)

const defaultIgnoreFile = `# docrc ignore rules, gitignore syntax.
# Version control metadata, caches and binary files are ignored by default
# unless disable_default_ignores is set in the docrc config.
#
# build/
# *.generated.go
# !keep.generated.go
`

func NewInitCmd(o *opts.RootOpts) *cobra.Command {
	var gitignore bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the documentation store for this project",
		Long: `Init creates the isolated documentation repository. Running it again is safe.
It will:
1. Create the store directory and its private git repository
2. Write a default config file if none exists
3. Write a commented ignore file if none exists
4. Optionally add the store to the project's .gitignore`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := o.Config

			existed := o.Backend.Initialized()
			if err := o.Backend.Init(ctx); err != nil {
				return errors.Errorf("initializing documentation repository: %w", err)
			}
			if existed {
				o.Logger.Info("documentation repository already initialized")
			} else {
				o.Logger.Successf("initialized documentation repository in %s", cfg.StoreDir)
			}

			wrote, err := config.WriteDefault(ctx, cfg)
			if err != nil {
				return errors.Errorf("writing default config: %w", err)
			}
			if wrote {
				o.Logger.Successf("wrote %s", filepath.Join(cfg.StoreDir, "config.yaml"))
			}

			wrote, err = writeIfMissing(cfg.IgnoreFilePath(), defaultIgnoreFile)
			if err != nil {
				return errors.Errorf("writing ignore file: %w", err)
			}
			if wrote {
				o.Logger.Successf("wrote %s", cfg.IgnoreFile)
			}

			if gitignore {
				added, err := appendGitignore(filepath.Join(cfg.ProjectRoot, ".gitignore"), cfg.StoreDir)
				if err != nil {
					return errors.Errorf("updating .gitignore: %w", err)
				}
				if added {
					o.Logger.Successf("added /%s/ to .gitignore", filepath.ToSlash(cfg.StoreDir))
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&gitignore, "gitignore", false, "add the store directory to the project's .gitignore")
	return cmd
}

// writeIfMissing writes content to path unless a file is already there
func writeIfMissing(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, err
	}
	return true, nil
}

// appendGitignore adds the store directory to a .gitignore unless an entry already covers it
func appendGitignore(path, storeDir string) (bool, error) {
	name := filepath.ToSlash(storeDir)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	for _, line := range strings.Split(string(data), "\n") {
		entry := strings.Trim(strings.TrimSpace(line), "/")
		if entry == name {
			return false, nil
		}
	}

	var b strings.Builder
	b.Write(data)
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		b.WriteString("\n")
	}
	b.WriteString("/" + name + "/\n")

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return false, err
	}
	return true, nil
}
