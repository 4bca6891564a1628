package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/quotabar/internal/daemon"
	"github.com/janekbaraniewski/quotabar/internal/display"
)

var (
	showNameStyle  = lipgloss.NewStyle().Bold(true)
	showErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	showDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#585B70"))
	showStateStyle = map[display.State]lipgloss.Style{
		display.StateNormal:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		display.StateWarning:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		display.StateCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Bold(true),
	}
)

func newShowCommand(flags *globalFlags) *cobra.Command {
	var (
		asJSON bool
		from   string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Fetch every enabled provider once and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := collectStatuses(cmd, flags, from)
			if err != nil {
				return err
			}
			if asJSON {
				return writeStatusesJSON(cmd.OutOrStdout(), statuses)
			}
			writeStatusesText(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	cmd.Flags().StringVar(&from, "from", "", "read cached results from a running daemon at this address")
	return cmd
}

func collectStatuses(cmd *cobra.Command, flags *globalFlags, from string) ([]daemon.ProviderStatus, error) {
	if from != "" {
		statuses, err := daemon.NewClient(from).Snapshots(cmd.Context())
		if err != nil {
			return nil, err
		}
		return filterStatuses(statuses, flags.providers), nil
	}

	a, err := newApp(cmd, flags)
	if err != nil {
		return nil, err
	}
	ctx, cancel := signalContext(a.context(cmd.Context()))
	defer cancel()

	results := a.engine.RefreshAll(ctx)
	out := make([]daemon.ProviderStatus, 0, len(results))
	for _, r := range results {
		out = append(out, daemon.StatusFromResult(r))
	}
	return out, nil
}

func filterStatuses(statuses []daemon.ProviderStatus, only []string) []daemon.ProviderStatus {
	if len(only) == 0 {
		return statuses
	}
	var out []daemon.ProviderStatus
	for _, st := range statuses {
		for _, id := range only {
			if strings.EqualFold(strings.TrimSpace(id), st.ProviderID) {
				out = append(out, st)
				break
			}
		}
	}
	return out
}

func writeStatusesJSON(w io.Writer, statuses []daemon.ProviderStatus) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(daemon.SnapshotsResponse{Providers: statuses})
}

func writeStatusesText(w io.Writer, statuses []daemon.ProviderStatus) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, showDimStyle.Render("no providers enabled"))
		return
	}
	width := 0
	for _, st := range statuses {
		width = max(width, len(st.ProviderID))
	}
	for _, st := range statuses {
		name := showNameStyle.Render(fmt.Sprintf("%-*s", width, st.ProviderID))
		switch {
		case st.Pending:
			fmt.Fprintf(w, "%s  %s\n", name, showDimStyle.Render("pending"))
		case st.Snapshot == nil:
			fmt.Fprintf(w, "%s  %s  %s\n", name, st.Display.Text, showErrStyle.Render(st.Error))
		default:
			state := showStateStyle[st.Display.State].Render(string(st.Display.State))
			fmt.Fprintf(w, "%s  %s  %s\n", name, st.Display.Text, state)
		}
	}
}
