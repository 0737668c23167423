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
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/cmd/docrc/opts"
)

func NewAddCmd(o *opts.RootOpts) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Stage documentation for the next commit",
		Long: `Add stages documentation in the isolated repository. Each path may be a
source file (its documentation unit is staged) or a path inside the
documentation root.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := requireInitialized(o); err != nil {
				return err
			}

			docPaths, err := o.DocPaths(args)
			if err != nil {
				return err
			}

			if err := o.Backend.Add(ctx, docPaths, force); err != nil {
				return errors.Errorf("staging documentation: %w", err)
			}

			for _, p := range docPaths {
				o.Logger.Infof("staged %s", p)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "stage files even if they are ignored")
	return cmd
}
