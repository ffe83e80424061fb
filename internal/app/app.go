package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/sagaskoyere/ankikeys/internal/anki"
	"github.com/sagaskoyere/ankikeys/internal/config"
	"github.com/sagaskoyere/ankikeys/internal/hotkey"
	"github.com/sagaskoyere/ankikeys/internal/listener"
	"github.com/sagaskoyere/ankikeys/internal/window"
)

// Action names shared between the listener, the tray and the logs.
const (
	ActionGood  = "good"
	ActionAgain = "again"
	ActionOnTop = "always-on-top"
)

const hostCallTimeout = 10 * time.Second

// StatusUpdater is an interface for surfacing state to the user (e.g., tray icon)
type StatusUpdater interface {
	SetWaiting()
	SetArmed()
	SetDegraded()
	SetError()
	SetAlwaysOnTop(on bool)
	SetReviewing(on bool)
	Notify(text string)
}

type Config struct {
	Reviewer      anki.Reviewer
	Window        window.Manager
	Hotkeys       hotkey.Manager
	Config        *config.Config
	Clock         clockwork.Clock // nil means the real clock
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

// App decides when the hotkeys are armed and what each one does. The
// listener runs only while hotkeys are enabled and a review session is
// visible; every edge funnels through apply so the two inputs cannot
// race each other into a stale state.
type App struct {
	reviewer anki.Reviewer
	window   window.Manager
	hotkeys  hotkey.Manager
	clock    clockwork.Clock
	log      zerolog.Logger
	status   StatusUpdater

	mu        sync.Mutex
	cfg       *config.Config
	actions   []listener.Action
	listener  *listener.Listener
	enabled   bool
	reviewing bool
	onTop     bool

	// lifecycle serializes listener start/stop. Never take it from an
	// action callback or it will deadlock against Stop.
	lifecycle    sync.Mutex
	fallbackNote sync.Once
}

func New(cfg Config) (*App, error) {
	a := &App{
		reviewer: cfg.Reviewer,
		window:   cfg.Window,
		hotkeys:  cfg.Hotkeys,
		clock:    cfg.Clock,
		log:      cfg.Logger,
		status:   cfg.StatusUpdater,
		cfg:      cfg.Config,
		enabled:  true,
	}

	actions, err := a.buildActions(cfg.Config)
	if err != nil {
		return nil, err
	}
	a.actions = actions
	a.listener = a.newListener(cfg.Config, actions)

	return a, nil
}

func (a *App) buildActions(cfg *config.Config) ([]listener.Action, error) {
	good, err := hotkey.Parse(cfg.Keys.Good)
	if err != nil {
		return nil, fmt.Errorf("keys.good: %w", err)
	}
	again, err := hotkey.Parse(cfg.Keys.Again)
	if err != nil {
		return nil, fmt.Errorf("keys.again: %w", err)
	}
	onTop, err := hotkey.Parse(cfg.Keys.AlwaysOnTop)
	if err != nil {
		return nil, fmt.Errorf("keys.always_on_top: %w", err)
	}

	return []listener.Action{
		{Name: ActionGood, Combo: good, Invoke: func() error { return a.score(anki.Good) }},
		{Name: ActionAgain, Combo: again, Invoke: func() error { return a.score(anki.Again) }},
		{Name: ActionOnTop, Combo: onTop, Invoke: a.toggleTop},
	}, nil
}

func (a *App) newListener(cfg *config.Config, actions []listener.Action) *listener.Listener {
	return listener.New(listener.Config{
		Actions:  actions,
		Hotkeys:  a.hotkeys,
		Debounce: cfg.Debounce,
		Clock:    a.clock,
		Logger:   a.log,
	})
}

// ReviewShown arms the hotkeys, ReviewHidden parks them. The session
// watcher calls these on every transition, in any order.
func (a *App) ReviewShown() {
	a.mu.Lock()
	a.reviewing = true
	a.mu.Unlock()
	if a.status != nil {
		a.status.SetReviewing(true)
	}
	a.apply()
}

func (a *App) ReviewHidden() {
	a.mu.Lock()
	a.reviewing = false
	a.mu.Unlock()
	if a.status != nil {
		a.status.SetReviewing(false)
	}
	a.apply()
}

// apply reconciles the listener with the current flags. The flags are
// read inside the lifecycle lock, so whichever apply runs last acts on
// the freshest state.
func (a *App) apply() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.mu.Lock()
	l := a.listener
	want := a.enabled && a.reviewing
	a.mu.Unlock()

	if l == nil {
		return
	}

	if want {
		l.Start()
		a.noteFallbacks(l)
	} else {
		l.Stop()
	}
	a.refreshStatus()
}

// noteFallbacks tells the user once, ever, that some shortcuts only
// work from the tray menu.
func (a *App) noteFallbacks(l *listener.Listener) {
	var local []string
	for name, scope := range l.Scopes() {
		if scope == listener.ScopeLocal {
			local = append(local, name)
		}
	}
	if len(local) == 0 {
		return
	}
	sort.Strings(local)

	a.fallbackNote.Do(func() {
		a.log.Warn().Strs("actions", local).Msg("Running with tray-only shortcuts")
		a.notify("Some shortcuts could not be bound globally. " + hotkey.Hint())
	})
}

func (a *App) refreshStatus() {
	if a.status == nil {
		return
	}

	a.mu.Lock()
	l := a.listener
	a.mu.Unlock()

	if l == nil || !l.Running() {
		a.status.SetWaiting()
		return
	}

	for _, scope := range l.Scopes() {
		if scope == listener.ScopeLocal {
			a.status.SetDegraded()
			return
		}
	}
	a.status.SetArmed()
}

// score answers the current card. A missing review session is the
// user's problem to fix, not an error, so it becomes a notice and the
// listener keeps running.
func (a *App) score(r anki.Rating) error {
	ctx, cancel := context.WithTimeout(context.Background(), hostCallTimeout)
	defer cancel()

	err := a.reviewer.AnswerCurrent(ctx, r)
	switch {
	case errors.Is(err, anki.ErrNotReviewing):
		a.notify("No card to score - start reviewing first!")
		return nil
	case err != nil:
		if a.status != nil {
			a.status.SetError()
		}
		return fmt.Errorf("score %s: %w", r, err)
	}

	switch r {
	case anki.Again:
		a.notify("🔄 Card scored as Again")
	default:
		a.notify("✅ Card scored as Good")
	}
	a.refreshStatus()
	return nil
}

// toggleTop flips the host window's always-on-top state. Toggling
// twice lands back where the window started.
func (a *App) toggleTop() error {
	if ok, reason := a.window.Available(); !ok {
		a.log.Warn().Str("reason", reason).Msg("Always-on-top unsupported")
		a.notify("Always-on-top is not available on this system")
		return nil
	}

	a.mu.Lock()
	next := !a.onTop
	a.mu.Unlock()

	if err := a.window.SetAlwaysOnTop(next); err != nil {
		if a.status != nil {
			a.status.SetError()
		}
		return fmt.Errorf("always-on-top: %w", err)
	}

	a.mu.Lock()
	a.onTop = next
	a.mu.Unlock()

	if a.status != nil {
		a.status.SetAlwaysOnTop(next)
	}
	if next {
		a.notify("📌 Always-on-top enabled")
	} else {
		a.notify("📌 Always-on-top disabled")
	}
	return nil
}

func (a *App) notify(text string) {
	a.log.Info().Str("text", text).Msg("Notice")
	if a.status != nil {
		a.status.Notify(text)
	}
}

// ReloadConfig picks up an edited config file. A config that fails to
// load or parse is rejected wholesale and the previous bindings keep
// running.
func (a *App) ReloadConfig() {
	fresh, err := config.Load()
	if err != nil {
		a.log.Error().Err(err).Msg("Config reload failed, keeping previous")
		return
	}

	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	actions, err := a.buildActions(fresh)
	if err != nil {
		a.log.Error().Err(err).Msg("Config reload rejected, keeping previous")
		return
	}

	a.mu.Lock()
	old := a.listener
	a.mu.Unlock()

	if old != nil {
		old.Stop()
	}

	next := a.newListener(fresh, actions)

	a.mu.Lock()
	a.cfg = fresh
	a.actions = actions
	a.listener = next
	want := a.enabled && a.reviewing
	a.mu.Unlock()

	if want {
		next.Start()
		a.noteFallbacks(next)
	}
	a.refreshStatus()
	a.log.Info().Msg("Config reloaded")
}

func (a *App) Shutdown(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	a.mu.Lock()
	l := a.listener
	a.listener = nil
	a.mu.Unlock()

	if l != nil {
		l.Stop()
	}

	a.log.Info().Msg("Shutdown complete")
	return nil
}

// Tray actions

func (a *App) ScoreGood()         { a.trigger(ActionGood) }
func (a *App) ScoreAgain()        { a.trigger(ActionAgain) }
func (a *App) ToggleAlwaysOnTop() { a.trigger(ActionOnTop) }

// trigger routes a menu click through the listener so it shares the
// debounce gate with the hotkeys. When the listener is parked the
// action runs inline instead; the menu keeps working while the
// hotkeys are off.
func (a *App) trigger(name string) {
	a.mu.Lock()
	l := a.listener
	actions := a.actions
	a.mu.Unlock()

	if l != nil && l.Trigger(name) {
		return
	}

	for _, act := range actions {
		if act.Name != name {
			continue
		}
		if err := act.Invoke(); err != nil {
			a.log.Error().Err(err).Str("action", name).Msg("Action failed")
		}
		return
	}
}

func (a *App) SetEnabled(on bool) {
	a.mu.Lock()
	if a.enabled == on {
		a.mu.Unlock()
		return
	}
	a.enabled = on
	a.mu.Unlock()

	if on {
		a.log.Info().Msg("Hotkeys enabled")
	} else {
		a.log.Info().Msg("Hotkeys disabled")
	}
	a.apply()
}

func (a *App) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

func (a *App) AlwaysOnTop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.onTop
}

func (a *App) Keys() config.KeysConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Keys
}
