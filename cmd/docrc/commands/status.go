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

func NewStatusCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the documentation tree",
		Long: `Status shows documentation that is modified, staged or not yet tracked in
the isolated repository. The project's own repository is never consulted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := requireInitialized(o); err != nil {
				return err
			}

			head, err := o.Backend.Head(ctx)
			if err != nil {
				return errors.Errorf("reading HEAD: %w", err)
			}
			status, err := o.Backend.Status(ctx)
			if err != nil {
				return errors.Errorf("reading status: %w", err)
			}

			if head == "" {
				o.Logger.Info("no documentation committed yet")
			}
			if strings.TrimSpace(status) == "" {
				o.Logger.Success("documentation tree clean")
				return nil
			}
			o.Logger.Plain(strings.TrimRight(status, "\n"))
			return nil
		},
	}

	return cmd
}
