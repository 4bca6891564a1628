package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/quotabar/internal/appupdate"
	"github.com/janekbaraniewski/quotabar/internal/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "quotabar",
		Short:         "quotabar shows how much of your AI coding plan quota is left.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default "+defaultConfigHint()+")")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "write debug logs to stderr")
	root.PersistentFlags().StringSliceVarP(&flags.providers, "provider", "p", nil, "only these providers (repeatable)")

	root.AddCommand(
		newWatchCommand(flags),
		newShowCommand(flags),
		newServeCommand(flags),
		newHistoryCommand(flags),
		newProvidersCommand(flags),
		newAuthCommand(),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "quotabar "+version.String())
			if !check {
				return nil
			}
			res, err := appupdate.Check(cmd.Context(), appupdate.CheckOptions{CurrentVersion: version.Version})
			if err != nil {
				return fmt.Errorf("update check: %w", err)
			}
			switch {
			case res.CurrentVersion == "":
				fmt.Fprintln(out, "development build, update check skipped")
			case res.UpdateAvailable:
				fmt.Fprintf(out, "update available: %s -> %s\n  %s\n", res.CurrentVersion, res.LatestVersion, res.UpgradeHint)
				if res.ReleaseURL != "" {
					fmt.Fprintf(out, "  release notes: %s\n", res.ReleaseURL)
				}
			default:
				fmt.Fprintln(out, "up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}
