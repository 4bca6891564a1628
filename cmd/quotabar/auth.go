package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/quotabar/internal/config"
	"github.com/janekbaraniewski/quotabar/internal/parsers"
	"github.com/janekbaraniewski/quotabar/internal/providers"
)

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store or remove a pasted cookie header or token for a provider",
	}

	set := &cobra.Command{
		Use:   "set <provider> [secret]",
		Short: "Save a credential; reads stdin when secret is omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := knownProviderID(args[0])
			if err != nil {
				return err
			}
			secret := ""
			if len(args) == 2 {
				secret = args[1]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading secret from stdin: %w", err)
				}
				secret = line
			}
			secret = strings.TrimSpace(secret)
			if secret == "" {
				return fmt.Errorf("empty credential")
			}
			if err := config.SaveCredential(id, secret); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s credential (%s)\n", id, parsers.Truncate(redact(secret), 24))
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <provider>",
		Short: "Remove a saved credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := knownProviderID(args[0])
			if err != nil {
				return err
			}
			if err := config.DeleteCredential(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s credential\n", id)
			return nil
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}

func knownProviderID(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range providers.IDs() {
		if known == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (known: %s)", raw, strings.Join(providers.IDs(), ", "))
}

// redact keeps only the first four characters of a secret.
func redact(secret string) string {
	r := []rune(secret)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:4]) + strings.Repeat("*", min(len(r)-4, 12))
}
