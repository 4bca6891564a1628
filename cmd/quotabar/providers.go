package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/quotabar/internal/config"
	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/detect"
	"github.com/janekbaraniewski/quotabar/internal/providers"
)

type specProvider interface {
	Spec() core.ProviderSpec
}

func newProvidersCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List supported providers and how to set them up",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFrom(flags.path())
			if err != nil {
				return err
			}
			creds, _ := config.LoadCredentials()
			findings := detect.Scan(detect.Options{SavedKeys: creds.Keys})
			writeProviders(cmd.OutOrStdout(), cfg, detect.ByProvider(findings))
			return nil
		},
	}
	cmd.AddCommand(
		newToggleCommand(flags, "enable", true),
		newToggleCommand(flags, "disable", false),
	)
	return cmd
}

func newToggleCommand(flags *globalFlags, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <provider>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a provider in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := knownProviderID(args[0])
			if err != nil {
				return err
			}
			if err := config.SetProviderEnabled(flags.path(), id, enabled); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %sd\n", id, verb)
			return nil
		},
	}
}

func writeProviders(w io.Writer, cfg config.Config, found map[string][]detect.Finding) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tENABLED\tAUTH\tDETECTED")
	var setup []string
	for _, e := range providers.Entries() {
		p := e.New(providers.Deps{Config: cfg})
		info := p.Describe()
		auth := ""
		if sp, ok := p.(specProvider); ok {
			spec := sp.Spec()
			auth = string(spec.Auth.Type)
			if spec.Auth.EnvVar != "" {
				auth += " ($" + spec.Auth.EnvVar + ")"
			}
			for _, step := range spec.Setup.Quickstart {
				setup = append(setup, e.ID+": "+step)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", e.ID, info.Name, cfg.Provider(e.ID).IsEnabled(), auth, describeFindings(found[e.ID]))
	}
	_ = tw.Flush()

	if len(setup) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Setup:")
		for _, line := range setup {
			fmt.Fprintln(w, "  "+line)
		}
	}
}

func describeFindings(findings []detect.Finding) string {
	if len(findings) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		parts = append(parts, f.Source+":"+filepath.Base(f.Detail))
	}
	return strings.Join(parts, ", ")
}
