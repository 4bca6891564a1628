package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/quotabar/internal/config"
	"github.com/janekbaraniewski/quotabar/internal/display"
	"github.com/janekbaraniewski/quotabar/internal/store"
)

func newHistoryCommand(flags *globalFlags) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history <provider>",
		Short: "Show recorded fetch results for one provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(flags.path())
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.HistoryFile())
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.Recent(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			writeHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeHistory(w io.Writer, records []store.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no history recorded yet (run `quotabar serve`)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FETCHED\tRESULT\tELAPSED")
	for _, rec := range records {
		result := rec.ErrorKind
		if rec.Snapshot != nil {
			result = display.Build(rec.Snapshot).Text
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			rec.FetchedAt.Local().Format(time.DateTime),
			result,
			(time.Duration(rec.ElapsedMS) * time.Millisecond).String(),
		)
	}
	_ = tw.Flush()
}
