package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/tui"
)

func newWatchCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard of every enabled provider (default command)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, flags)
		},
	}
}

func runWatch(cmd *cobra.Command, flags *globalFlags) error {
	a, err := newApp(cmd, flags)
	if err != nil {
		return err
	}

	closeLog := a.logToFile("quotabar.log")
	defer closeLog()

	ctx, cancel := signalContext(a.context(cmd.Context()))
	defer cancel()

	model := tui.NewModel(a.engine.ProviderIDs())
	model.SetOnRefresh(func() {
		go a.engine.RefreshAll(ctx)
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	a.engine.OnUpdate(func(results []core.Result) {
		program.Send(tui.ResultsMsg(results))
	})
	a.watchConfig(ctx, func(ids []string) {
		program.Send(tui.ProvidersMsg(ids))
		go a.engine.RefreshAll(ctx)
	})
	go a.engine.Run(ctx)

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
