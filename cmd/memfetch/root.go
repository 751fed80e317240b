package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "memfetch",
		Short:         "Download and tag the memories referenced by a Snapchat export",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newDownloadCommand())
	rootCmd.AddCommand(newTagCommand())

	return rootCmd
}
