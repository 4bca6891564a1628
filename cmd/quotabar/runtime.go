package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/quotabar/internal/config"
	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/logging"
	"github.com/janekbaraniewski/quotabar/internal/providers"
)

type globalFlags struct {
	configPath string
	debug      bool
	providers  []string
}

func defaultConfigHint() string {
	return config.ConfigPath()
}

func (f *globalFlags) path() string {
	if f.configPath != "" {
		return f.configPath
	}
	return config.ConfigPath()
}

// app is the wiring shared by every command that polls providers.
type app struct {
	flags  *globalFlags
	cfg    config.Config
	log    zerolog.Logger
	debug  bool
	deps   providers.Deps
	engine *core.Engine

	reloadHooks []func(config.Config)
}

func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := config.LoadFrom(flags.path())
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", flags.path(), err)
	}

	debug := flags.debug || cfg.Debug || logging.DebugEnabled()
	logger := logging.New(cmd.ErrOrStderr(), debug)

	jar, _ := cookiejar.New(nil)
	deps := providers.Deps{
		Config:          cfg,
		Client:          &http.Client{Jar: jar},
		Jar:             jar,
		CredentialsPath: config.CredentialsPath(),
	}

	engine := core.NewEngine(cfg.RefreshInterval())
	engine.SetTimeout(cfg.Timeout())
	engine.SetProviders(providers.Build(deps, flags.providers...))

	return &app{flags: flags, cfg: cfg, log: logger, debug: debug, deps: deps, engine: engine}, nil
}

func (a *app) context(parent context.Context) context.Context {
	return a.log.WithContext(parent)
}

// logToFile sends debug logs to a JSON lines file, for the full-screen
// dashboard where stderr is not visible. The returned func closes the file.
func (a *app) logToFile(name string) func() {
	if !a.debug {
		return func() {}
	}
	path := filepath.Join(config.ConfigDir(), name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return func() {}
	}
	a.log = logging.NewJSON(f, true)
	return func() { _ = f.Close() }
}

// reload applies a changed config to the running engine.
func (a *app) reload(cfg config.Config) []string {
	a.cfg = cfg
	a.deps.Config = cfg
	a.engine.SetInterval(cfg.RefreshInterval())
	a.engine.SetTimeout(cfg.Timeout())
	a.engine.SetProviders(providers.Build(a.deps, a.flags.providers...))
	for _, fn := range a.reloadHooks {
		fn(cfg)
	}
	ids := a.engine.ProviderIDs()
	a.log.Info().Strs("providers", ids).Msg("config applied")
	return ids
}

// onReload registers fn to run with each config applied by reload.
func (a *app) onReload(fn func(config.Config)) {
	a.reloadHooks = append(a.reloadHooks, fn)
}

func (a *app) watchConfig(ctx context.Context, onApplied func([]string)) {
	path := a.flags.path()
	go func() {
		err := config.Watch(ctx, path, func(cfg config.Config) {
			ids := a.reload(cfg)
			if onApplied != nil {
				onApplied(ids)
			}
		})
		if err != nil {
			a.log.Warn().Err(err).Str("path", path).Msg("config hot reload disabled")
		}
	}()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
