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
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/cmd/docrc/opts"
)

func NewDiffCmd(o *opts.RootOpts) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "diff [path]...",
		Short: "Show changes to documentation",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := requireInitialized(o); err != nil {
				return err
			}

			docPaths, err := o.DocPaths(args)
			if err != nil {
				return err
			}

			diff, err := o.Backend.Diff(ctx, docPaths, cached)
			if err != nil {
				return errors.Errorf("computing diff: %w", err)
			}
			if strings.TrimSpace(diff) == "" {
				o.Logger.Info("no changes")
				return nil
			}
			o.Logger.Plain(strings.TrimRight(diff, "\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "show staged changes")
	return cmd
}
