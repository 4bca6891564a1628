package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/quotabar/internal/config"
	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/daemon"
	"github.com/janekbaraniewski/quotabar/internal/metrics"
	"github.com/janekbaraniewski/quotabar/internal/store"
)

func newServeCommand(flags *globalFlags) *cobra.Command {
	var (
		listen    string
		noHistory bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Poll providers in the background and serve results over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, flags)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(a.context(cmd.Context()))
			defer cancel()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)
			a.engine.OnResult(m.Observe)

			var history daemon.History
			if !noHistory {
				st, err := store.Open(a.cfg.HistoryFile())
				if err != nil {
					return err
				}
				defer st.Close()
				trackRetention(a, st)
				a.engine.OnResult(func(r core.Result) {
					if err := st.Save(ctx, r); err != nil {
						a.log.Warn().Err(err).Str("provider", r.ProviderID).Msg("history save failed")
					}
				})
				history = st
			}

			addr := listen
			if addr == "" {
				addr = a.cfg.ListenAddr
			}

			a.watchConfig(ctx, func([]string) {
				go a.engine.RefreshAll(ctx)
			})
			go a.engine.Run(ctx)

			srv := daemon.NewServer(daemon.Options{
				Engine:   a.engine,
				History:  history,
				Gatherer: reg,
				Logger:   a.log,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, 127.0.0.1:9477)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record results in the history database")
	return cmd
}

// trackRetention applies history_retention now and on every config reload.
func trackRetention(a *app, st *store.Store) {
	st.SetRetention(a.cfg.HistoryRetention)
	a.onReload(func(cfg config.Config) {
		st.SetRetention(cfg.HistoryRetention)
	})
}
