package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/slayer-suite/internal/tui"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the host TUI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd)
		},
	}
}

func runHost(cmd *cobra.Command) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, projectDir)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := sess.openDefaultProject(ctx); err != nil {
		sess.log.Warnf("open default project: %v", err)
	}
	app := tui.NewApp(sess.suite, tui.WithContext(ctx))
	defer app.Close()
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}
