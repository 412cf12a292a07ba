package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docsage/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("docsage version " + version.String())
		},
	}
}
