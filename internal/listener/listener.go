// Package listener turns registered key combinations into debounced,
// serialized action dispatches.
package listener

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/sagaskoyere/ankikeys/internal/hotkey"
)

// Scope tells how an action's combination is currently bound.
type Scope int

const (
	// ScopeNone means the listener is stopped.
	ScopeNone Scope = iota
	// ScopeGlobal means the OS-level hook fires system-wide.
	ScopeGlobal
	// ScopeLocal means global registration failed and the action only
	// fires through Trigger, e.g. from the tray menu.
	ScopeLocal
)

func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeLocal:
		return "local"
	default:
		return "none"
	}
}

// Action couples a key combination with the work it triggers.
type Action struct {
	Name  string
	Combo hotkey.Combo
	// Invoke runs on the listener's dispatch goroutine. Errors and
	// panics are logged, never propagated.
	Invoke func() error
}

// Config assembles a Listener.
type Config struct {
	Actions  []Action
	Hotkeys  hotkey.Manager
	Debounce time.Duration
	Clock    clockwork.Clock // nil means the real clock
	Logger   zerolog.Logger
}

// Listener owns the hotkey registrations and the single goroutine
// that runs action callbacks, so host calls never race each other.
// Start and Stop are idempotent; Stop blocks until the dispatch
// goroutine has exited, which makes a following Start always clean.
type Listener struct {
	actions []Action
	hotkeys hotkey.Manager
	gate    *debouncer
	log     zerolog.Logger

	mu      sync.Mutex
	running bool
	regs    []hotkey.Registration
	scopes  map[string]Scope
	events  chan string
	quit    chan struct{}
	done    chan struct{}
}

func New(cfg Config) *Listener {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Listener{
		actions: cfg.Actions,
		hotkeys: cfg.Hotkeys,
		gate:    newDebouncer(clock, cfg.Debounce),
		log:     cfg.Logger,
		scopes:  make(map[string]Scope, len(cfg.Actions)),
	}
}

// Start registers the combinations and launches the dispatch
// goroutine. A combination the OS refuses binds local instead, which
// is not an error. Calling Start on a running listener does nothing.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}

	l.events = make(chan string, 8)
	l.quit = make(chan struct{})
	l.done = make(chan struct{})

	events := l.events
	for _, action := range l.actions {
		name := action.Name
		reg, err := l.hotkeys.Register(action.Combo, func() {
			select {
			case events <- name:
			default:
				// queue full, drop rather than stall the hook's
				// delivery goroutine
			}
		})
		if err != nil {
			l.scopes[name] = ScopeLocal
			l.log.Warn().Err(err).Str("action", name).Stringer("combo", action.Combo).
				Msg("Global registration failed, action stays local")
			continue
		}

		l.regs = append(l.regs, reg)
		l.scopes[name] = ScopeGlobal
		l.log.Debug().Str("action", name).Stringer("combo", action.Combo).Msg("Hotkey armed")
	}

	l.running = true
	go l.dispatch(l.events, l.quit, l.done)
}

// Stop releases the registrations and blocks until the dispatch
// goroutine has exited. Safe to call repeatedly and before Start.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false

	for _, reg := range l.regs {
		if err := reg.Unregister(); err != nil {
			l.log.Warn().Err(err).Msg("Unregister failed")
		}
	}
	l.regs = l.regs[:0]
	for name := range l.scopes {
		l.scopes[name] = ScopeNone
	}

	quit, done := l.quit, l.done
	l.mu.Unlock()

	close(quit)
	<-done
}

// Trigger queues the named action as if its combination had fired and
// reports whether it was accepted. The tray menu uses this path, so
// local-scope actions share the debounce gate and dispatch goroutine
// with global ones.
func (l *Listener) Trigger(name string) bool {
	l.mu.Lock()
	events, running := l.events, l.running
	l.mu.Unlock()

	if !running {
		return false
	}

	select {
	case events <- name:
		return true
	default:
		return false
	}
}

// Running reports whether the dispatch goroutine is live.
func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Scopes returns a copy of each action's current binding scope.
func (l *Listener) Scopes() map[string]Scope {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]Scope, len(l.scopes))
	for name, s := range l.scopes {
		out[name] = s
	}
	return out
}

func (l *Listener) dispatch(events <-chan string, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-quit:
			return
		case name := <-events:
			if !l.gate.allow() {
				l.log.Debug().Str("action", name).Msg("Debounced")
				continue
			}
			l.run(name)
		}
	}
}

// run executes one action, keeping its errors and panics in the log.
func (l *Listener) run(name string) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Str("action", name).Msg("Action panicked")
		}
	}()

	for _, action := range l.actions {
		if action.Name != name {
			continue
		}
		if err := action.Invoke(); err != nil {
			l.log.Error().Err(err).Str("action", name).Msg("Action failed")
		}
		return
	}

	l.log.Debug().Str("action", name).Msg("Unknown action")
}
