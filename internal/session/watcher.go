// Package session watches the host for review activity and reports
// transitions as edges.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultPollInterval is used when the config does not set one.
const DefaultPollInterval = time.Second

// Prober is the slice of the host client the watcher needs.
type Prober interface {
	ReviewActive(ctx context.Context) (bool, error)
}

// Config assembles a Watcher.
type Config struct {
	Prober   Prober
	Interval time.Duration
	Clock    clockwork.Clock // nil means the real clock
	Logger   zerolog.Logger

	// OnShown fires when a review session appears, OnHidden when it
	// goes away. Both run on the watcher's goroutine.
	OnShown  func()
	OnHidden func()
}

// Watcher polls the host and fires OnShown and OnHidden only on
// transitions, so downstream reacts to changes rather than to every
// poll. A failing host counts as no review, which keeps the hotkeys
// parked while the host is gone instead of erroring on every press.
type Watcher struct {
	prober   Prober
	interval time.Duration
	clock    clockwork.Clock
	log      zerolog.Logger
	onShown  func()
	onHidden func()

	mu      sync.Mutex
	active  bool
	failing bool
}

func New(cfg Config) *Watcher {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Watcher{
		prober:   cfg.Prober,
		interval: interval,
		clock:    clock,
		log:      cfg.Logger,
		onShown:  cfg.OnShown,
		onHidden: cfg.OnHidden,
	}
}

// Run polls until ctx is cancelled. The first poll happens right away
// so startup does not sit idle for a full interval.
func (w *Watcher) Run(ctx context.Context) {
	w.poll(ctx)

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			w.poll(ctx)
		}
	}
}

// Active reports the last observed review state.
func (w *Watcher) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *Watcher) poll(ctx context.Context) {
	active, err := w.prober.ReviewActive(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.noteError(err)
		active = false
	} else {
		w.clearError()
	}

	w.transition(active)
}

// noteError warns on the first failure of a streak and demotes the
// repeats to debug so an absent host does not flood the log.
func (w *Watcher) noteError(err error) {
	w.mu.Lock()
	repeat := w.failing
	w.failing = true
	w.mu.Unlock()

	if repeat {
		w.log.Debug().Err(err).Msg("Host still unreachable")
		return
	}
	w.log.Warn().Err(err).Msg("Host poll failed, treating review as hidden")
}

func (w *Watcher) clearError() {
	w.mu.Lock()
	recovered := w.failing
	w.failing = false
	w.mu.Unlock()

	if recovered {
		w.log.Info().Msg("Host reachable again")
	}
}

func (w *Watcher) transition(active bool) {
	w.mu.Lock()
	changed := active != w.active
	w.active = active
	w.mu.Unlock()

	if !changed {
		return
	}

	if active {
		w.log.Info().Msg("Review session shown")
		if w.onShown != nil {
			w.onShown()
		}
		return
	}

	w.log.Info().Msg("Review session hidden")
	if w.onHidden != nil {
		w.onHidden()
	}
}
