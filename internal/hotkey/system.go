package hotkey

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
)

type systemManager struct {
	log zerolog.Logger

	mu     sync.Mutex
	regs   []*systemRegistration
	closed bool
}

// New creates a Manager backed by the operating system's global
// hotkey facility.
func New(log zerolog.Logger) Manager {
	return &systemManager{log: log}
}

func (m *systemManager) Register(combo Combo, callback func()) (Registration, error) {
	mods, key, err := resolve(combo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: manager closed", ErrUnavailable)
	}
	m.mu.Unlock()

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, combo, err)
	}

	reg := &systemRegistration{owner: m, hk: hk, done: make(chan struct{})}

	m.mu.Lock()
	m.regs = append(m.regs, reg)
	m.mu.Unlock()

	go reg.pump(callback)

	m.log.Debug().Stringer("combo", combo).Msg("Registered global hotkey")
	return reg, nil
}

func (m *systemManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	regs := m.regs
	m.regs = nil
	m.mu.Unlock()

	for _, reg := range regs {
		if err := reg.Unregister(); err != nil {
			m.log.Warn().Err(err).Msg("Unregister on close failed")
		}
	}
	return nil
}

func (m *systemManager) remove(reg *systemRegistration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.regs {
		if r == reg {
			m.regs = append(m.regs[:i], m.regs[i+1:]...)
			return
		}
	}
}

type systemRegistration struct {
	owner *systemManager
	hk    *hotkey.Hotkey
	done  chan struct{}
	once  sync.Once
}

// pump forwards key-down events until the registration is released.
// The library never closes its channel, so the done signal is the
// only exit.
func (r *systemRegistration) pump(callback func()) {
	for {
		select {
		case <-r.done:
			return
		case <-r.hk.Keydown():
			callback()
		}
	}
}

func (r *systemRegistration) Unregister() error {
	var err error
	r.once.Do(func() {
		close(r.done)
		err = r.hk.Unregister()
		r.owner.remove(r)
	})
	return err
}
