package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultFetchTimeout = 30 * time.Second

// Result is the latest outcome for one provider. Snapshot is nil when the
// fetch failed; a failure never produces a zero snapshot.
type Result struct {
	ProviderID string         `json:"provider_id"`
	Snapshot   *QuotaSnapshot `json:"snapshot,omitempty"`
	Err        error          `json:"-"`
	FetchedAt  time.Time      `json:"fetched_at"`
	FetchID    string         `json:"fetch_id"`
	Elapsed    time.Duration  `json:"elapsed"`
}

func (r Result) OK() bool { return r.Err == nil && r.Snapshot != nil }

type Engine struct {
	mu        sync.RWMutex
	providers []QuotaProvider
	results   map[string]Result // keyed by provider ID
	interval  time.Duration
	timeout   time.Duration
	reset     chan struct{}

	onUpdate []func([]Result)
	onResult []func(Result)
}

func NewEngine(interval time.Duration) *Engine {
	return &Engine{
		results:  make(map[string]Result),
		interval: interval,
		timeout:  DefaultFetchTimeout,
		reset:    make(chan struct{}, 1),
	}
}

// SetProviders replaces the polled providers. Order is kept for Results.
func (e *Engine) SetProviders(providers []QuotaProvider) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.providers = append([]QuotaProvider(nil), providers...)

	keep := make(map[string]Result, len(providers))
	for _, p := range providers {
		if r, ok := e.results[p.ID()]; ok {
			keep[p.ID()] = r
		}
	}
	e.results = keep
}

func (e *Engine) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultFetchTimeout
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeout = d
}

// SetInterval changes the refresh period; a running Run loop picks it up
// on its next tick.
func (e *Engine) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	e.interval = d
	e.mu.Unlock()
	select {
	case e.reset <- struct{}{}:
	default:
	}
}

// OnUpdate registers a hook called with all results after each refresh.
func (e *Engine) OnUpdate(fn func([]Result)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onUpdate = append(e.onUpdate, fn)
}

// OnResult registers a hook called once per finished fetch.
func (e *Engine) OnResult(fn func(Result)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onResult = append(e.onResult, fn)
}

// Results returns the latest result per provider in provider order.
// Providers that have not finished a fetch yet are omitted.
func (e *Engine) Results() []Result {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Result, 0, len(e.providers))
	for _, p := range e.providers {
		if r, ok := e.results[p.ID()]; ok {
			out = append(out, r)
		}
	}
	return out
}

// ProviderIDs lists the configured providers in display order.
func (e *Engine) ProviderIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.providers))
	for _, p := range e.providers {
		ids = append(ids, p.ID())
	}
	return ids
}

func (e *Engine) Result(providerID string) (Result, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.results[providerID]
	return r, ok
}

// RefreshAll fetches every provider concurrently and returns the results in
// provider order. Individual failures are recorded, not returned.
func (e *Engine) RefreshAll(ctx context.Context) []Result {
	e.mu.RLock()
	providers := append([]QuotaProvider(nil), e.providers...)
	e.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range providers {
		g.Go(func() error {
			e.store(e.fetch(gctx, p))
			return nil
		})
	}
	_ = g.Wait()

	results := e.Results()
	e.mu.RLock()
	hooks := make([]func([]Result), len(e.onUpdate))
	copy(hooks, e.onUpdate)
	e.mu.RUnlock()
	for _, fn := range hooks {
		fn(results)
	}
	return results
}

// Refresh fetches a single provider.
func (e *Engine) Refresh(ctx context.Context, providerID string) (Result, bool) {
	e.mu.RLock()
	var provider QuotaProvider
	for _, p := range e.providers {
		if p.ID() == providerID {
			provider = p
			break
		}
	}
	e.mu.RUnlock()
	if provider == nil {
		return Result{}, false
	}
	r := e.fetch(ctx, provider)
	e.store(r)
	return r, true
}

func (e *Engine) fetch(ctx context.Context, p QuotaProvider) Result {
	e.mu.RLock()
	timeout := e.timeout
	e.mu.RUnlock()

	fetchID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("provider", p.ID()).Str("fetch_id", fetchID).Logger()

	fetchCtx, cancel := context.WithTimeout(logger.WithContext(ctx), timeout)
	defer cancel()

	start := time.Now()
	snap, err := p.FetchSnapshot(fetchCtx)
	r := Result{ProviderID: p.ID(), FetchedAt: time.Now(), FetchID: fetchID, Elapsed: time.Since(start)}

	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) && !IsKind(err, KindTimeout) {
			err = Timeout(p.ID(), err)
		}
		r.Err = err
		logger.Debug().Err(err).Str("kind", string(KindOf(err))).Dur("elapsed", r.Elapsed).Msg("fetch failed")
		return r
	}

	r.Snapshot = &snap
	r.FetchedAt = snap.FetchedAt
	logger.Debug().Int("windows", len(snap.Windows)).Dur("elapsed", r.Elapsed).Msg("fetch ok")
	return r
}

func (e *Engine) store(r Result) {
	e.mu.Lock()
	e.results[r.ProviderID] = r
	hooks := make([]func(Result), len(e.onResult))
	copy(hooks, e.onResult)
	e.mu.Unlock()

	for _, fn := range hooks {
		fn(r)
	}
}

// Run refreshes immediately and then on every tick until ctx is done. There
// are no retries; the next tick is the retry.
func (e *Engine) Run(ctx context.Context) {
	e.RefreshAll(ctx)

	e.mu.RLock()
	interval := e.interval
	e.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zerolog.Ctx(ctx).Debug().Msg("engine: context cancelled, stopping refresh loop")
			return
		case <-e.reset:
			e.mu.RLock()
			ticker.Reset(e.interval)
			e.mu.RUnlock()
		case <-ticker.C:
			e.RefreshAll(ctx)
		}
	}
}
