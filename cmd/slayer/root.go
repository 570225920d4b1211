package main

import (
	"github.com/spf13/cobra"
)

var projectDir string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slayer",
		Short:         "Sign layout editing suite",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd)
		},
	}
	root.PersistentFlags().StringVar(&projectDir, "project", "", "project directory (default: current directory)")
	root.AddCommand(runCmd(), exportCmd(), inspectCmd(), importOCRCmd())
	return root
}
