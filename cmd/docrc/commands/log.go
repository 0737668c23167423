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
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/cmd/docrc/opts"
)

func NewLogCmd(o *opts.RootOpts) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log [path]...",
		Short: "Show documentation history",
		Long: `Log lists commits of the isolated repository, newest first. Paths may be
source files or paths inside the documentation root.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := requireInitialized(o); err != nil {
				return err
			}

			docPaths, err := o.DocPaths(args)
			if err != nil {
				return err
			}

			commits, err := o.Backend.Log(ctx, docPaths, limit)
			if err != nil {
				return errors.Errorf("reading history: %w", err)
			}
			if len(commits) == 0 {
				o.Logger.Info("no history yet")
				return nil
			}

			for _, c := range commits {
				o.Logger.Plain(fmt.Sprintf("%s %s %s %s",
					color.New(color.FgYellow).Sprint(c.ShortHash),
					c.When.Local().Format("2006-01-02 15:04"),
					color.New(color.Faint).Sprint(c.Author),
					c.Subject))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits shown")
	return cmd
}
