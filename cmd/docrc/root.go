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

package main

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/cmd/docrc/commands"
	"github.com/walteh/docrc/cmd/docrc/opts"
	"github.com/walteh/docrc/pkg/config"
)

// rootFlags are the persistent flags shared by every command
type rootFlags struct {
	debug    bool
	storeDir string
	dir      string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}
	ro := &opts.RootOpts{}

	cmd := &cobra.Command{
		Use:   "docrc",
		Short: "Keep documentation for your code in an isolated git history",
		Long: `docrc generates one documentation unit per source file and keeps it in a
git repository of its own, next to but separate from your project's repository.
It will:
1. Validate the project and the documentation store
2. Take a restore point before touching anything
3. Generate index.md and history.md for each file
4. Roll back cleanly if anything goes wrong`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(stderr, flags.debug)
			ctx := logger.WithContext(cmd.Context())
			cmd.SetContext(ctx)

			start := flags.dir
			if start == "" {
				start = "."
			}
			built, err := opts.New(ctx, start, flags.storeDir, stdout)
			if err != nil {
				return errors.Errorf("initializing: %w", err)
			}
			*ro = *built
			return nil
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	addRootFlags(cmd, flags)

	cmd.AddCommand(
		commands.NewInitCmd(ro),
		commands.NewAddCmd(ro),
		commands.NewCommitCmd(ro),
		commands.NewStatusCmd(ro),
		commands.NewLogCmd(ro),
		commands.NewDiffCmd(ro),
		commands.NewGenCmd(ro),
		newVersionCmd(),
	)

	return cmd
}

func addRootFlags(cmd *cobra.Command, flags *rootFlags) {
	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.storeDir, "store", config.DefaultStoreDir, "name of the store directory")
	cmd.PersistentFlags().StringVarP(&flags.dir, "dir", "C", "", "run as if docrc was started in this directory")
}

func setupLogging(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(w).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
	return log
}
