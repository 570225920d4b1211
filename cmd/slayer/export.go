package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current project document",
		Long:  "Opens the project, loads its default document when present and writes it to --out (or the default path).",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx, projectDir)
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := sess.openDefaultProject(ctx); err != nil {
				return err
			}
			path := out
			if path == "" {
				path = sess.suite.DefaultPath()
			}
			doc, err := sess.suite.Save(ctx, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d module(s)) to %s\n", doc.ProjectName, len(doc.Apps), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}
