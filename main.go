/*
Command epoch builds asset packs from a project and boots the runtime
from them.
*/
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/epoch/engine/core"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "epoch",
		Short:         "Build and run Epoch asset packs",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := core.ParseLogLevel(logLevel)
			if err != nil {
				return err
			}
			core.SetLogLevel(level)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newBuildCommand(),
		newInspectCommand(),
		newExtractAppCommand(),
		newRunCommand(&logLevel),
	)
	return root
}
