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

func NewCommitCmd(o *opts.RootOpts) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Commit staged documentation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := requireInitialized(o); err != nil {
				return err
			}

			info, err := o.Backend.Commit(ctx, message)
			if err != nil {
				return errors.Errorf("committing documentation: %w", err)
			}
			if info == nil {
				o.Logger.Warning("nothing staged, no commit created")
				return nil
			}

			o.Logger.Successf("committed %s %s (%d files)", info.ShortHash, info.Subject, len(info.Files))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
