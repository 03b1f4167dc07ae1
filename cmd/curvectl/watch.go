package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchlab/internal/api"
	"github.com/rovshanmuradov/launchlab/internal/eventlistener"
	"github.com/rovshanmuradov/launchlab/internal/ui"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard of curve prices and progress",
		Long: "Polls a running curvectl serve instance and follows its event " +
			"stream when --server is set, otherwise polls the configured store.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			server, _ := cmd.Flags().GetString("server")

			if server == "" {
				s, done, err := open(cmd)
				if err != nil {
					return err
				}
				defer done()
				return runDashboard(cmd, ui.NewModel(ui.FromStore(s.Store), interval), nil)
			}

			// The dashboard owns the terminal, so listener errors are not logged.
			listener, err := eventlistener.NewEventListener(server, zap.NewNop())
			if err != nil {
				return err
			}
			return runDashboard(cmd, ui.NewModel(api.NewClient(server), interval), listener)
		},
	}
	cmd.Flags().String("server", "", "base URL of a curvectl serve instance")
	cmd.Flags().Duration("interval", 2*time.Second, "refresh interval")
	return cmd
}

func runDashboard(cmd *cobra.Command, model ui.Model, listener *eventlistener.EventListener) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx))

	if listener != nil {
		go func() {
			_ = listener.Run(ctx, func(m api.EventMessage) { p.Send(m) })
		}()
	}

	_, err := p.Run()
	return err
}
