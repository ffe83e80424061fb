package listener

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagaskoyere/ankikeys/internal/hotkey"
)

// fakeManager stands in for the system hook so tests can press
// combinations without touching the display server.
type fakeManager struct {
	mu         sync.Mutex
	refused    map[string]bool
	regs       map[string]*fakeRegistration
	registered int
	released   int
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		refused: make(map[string]bool),
		regs:    make(map[string]*fakeRegistration),
	}
}

func (m *fakeManager) refuse(combo string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refused[combo] = true
}

func (m *fakeManager) Register(combo hotkey.Combo, callback func()) (hotkey.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refused[combo.String()] {
		return nil, hotkey.ErrUnavailable
	}

	m.registered++
	reg := &fakeRegistration{owner: m, callback: callback}
	m.regs[combo.String()] = reg
	return reg, nil
}

func (m *fakeManager) Close() error { return nil }

// press simulates the user hitting a registered combination.
func (m *fakeManager) press(combo string) {
	m.mu.Lock()
	reg := m.regs[combo]
	m.mu.Unlock()
	if reg != nil {
		reg.press()
	}
}

func (m *fakeManager) counts() (registered, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registered, m.released
}

type fakeRegistration struct {
	owner        *fakeManager
	mu           sync.Mutex
	callback     func()
	unregistered bool
}

func (r *fakeRegistration) Unregister() error {
	r.mu.Lock()
	if r.unregistered {
		r.mu.Unlock()
		return nil
	}
	r.unregistered = true
	r.mu.Unlock()

	r.owner.mu.Lock()
	r.owner.released++
	r.owner.mu.Unlock()
	return nil
}

func (r *fakeRegistration) press() {
	r.mu.Lock()
	callback, dead := r.callback, r.unregistered
	r.mu.Unlock()
	if !dead && callback != nil {
		callback()
	}
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) invoke() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

func (c *counter) value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func mustCombo(t *testing.T, s string) hotkey.Combo {
	t.Helper()
	combo, err := hotkey.Parse(s)
	require.NoError(t, err)
	return combo
}

func newTestListener(mgr *fakeManager, clock clockwork.Clock, actions ...Action) *Listener {
	return New(Config{
		Actions:  actions,
		Hotkeys:  mgr,
		Debounce: 500 * time.Millisecond,
		Clock:    clock,
		Logger:   zerolog.Nop(),
	})
}

func TestRapidTriggersDispatchOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := newFakeManager()
	good := &counter{}
	l := newTestListener(mgr, clock, Action{Name: "good", Combo: mustCombo(t, "ctrl+z"), Invoke: good.invoke})

	l.Start()
	defer l.Stop()

	mgr.press("ctrl+z")
	mgr.press("ctrl+z")
	mgr.press("ctrl+z")

	assert.Eventually(t, func() bool { return good.value() == 1 }, time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return good.value() > 1 }, 300*time.Millisecond, 25*time.Millisecond,
		"repeats inside the window must be dropped")

	clock.Advance(time.Second)
	mgr.press("ctrl+z")
	assert.Eventually(t, func() bool { return good.value() == 2 }, time.Second, 10*time.Millisecond)
}

func TestDistinctCombosShareTheGate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := newFakeManager()
	good := &counter{}
	again := &counter{}
	l := newTestListener(mgr, clock,
		Action{Name: "good", Combo: mustCombo(t, "ctrl+z"), Invoke: good.invoke},
		Action{Name: "again", Combo: mustCombo(t, "ctrl+x"), Invoke: again.invoke},
	)

	l.Start()
	defer l.Stop()

	mgr.press("ctrl+z")
	assert.Eventually(t, func() bool { return good.value() == 1 }, time.Second, 10*time.Millisecond)

	mgr.press("ctrl+x")
	assert.Never(t, func() bool { return again.value() > 0 }, 300*time.Millisecond, 25*time.Millisecond,
		"a different combination inside the window must also be dropped")
}

func TestStartTwiceRegistersOnce(t *testing.T) {
	mgr := newFakeManager()
	good := &counter{}
	l := newTestListener(mgr, nil, Action{Name: "good", Combo: mustCombo(t, "ctrl+z"), Invoke: good.invoke})

	l.Start()
	l.Start()
	defer l.Stop()

	registered, _ := mgr.counts()
	assert.Equal(t, 1, registered)
	assert.True(t, l.Running())
}

func TestStopIsIdempotentAndSafeBeforeStart(t *testing.T) {
	mgr := newFakeManager()
	good := &counter{}
	l := newTestListener(mgr, nil, Action{Name: "good", Combo: mustCombo(t, "ctrl+z"), Invoke: good.invoke})

	l.Stop() // never started

	l.Start()
	l.Stop()
	l.Stop()

	registered, released := mgr.counts()
	assert.Equal(t, 1, registered)
	assert.Equal(t, 1, released)
	assert.False(t, l.Running())
}

func TestStopWaitsForRunningAction(t *testing.T) {
	mgr := newFakeManager()
	started := make(chan struct{})
	release := make(chan struct{})

	l := newTestListener(mgr, nil, Action{
		Name:  "slow",
		Combo: mustCombo(t, "ctrl+z"),
		Invoke: func() error {
			close(started)
			<-release
			return nil
		},
	})

	l.Start()
	mgr.press("ctrl+z")
	<-started

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while an action was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop never returned after the action finished")
	}
}

func TestRestartAfterStopIsClean(t *testing.T) {
	mgr := newFakeManager()
	clock := clockwork.NewFakeClock()
	good := &counter{}
	l := newTestListener(mgr, clock, Action{Name: "good", Combo: mustCombo(t, "ctrl+z"), Invoke: good.invoke})

	for i := 0; i < 5; i++ {
		l.Start()
		l.Stop()
	}

	l.Start()
	defer l.Stop()

	mgr.press("ctrl+z")
	assert.Eventually(t, func() bool { return good.value() == 1 }, time.Second, 10*time.Millisecond)

	registered, released := mgr.counts()
	assert.Equal(t, 6, registered)
	assert.Equal(t, 5, released)
}

func TestPressAfterStopIsIgnored(t *testing.T) {
	mgr := newFakeManager()
	good := &counter{}
	l := newTestListener(mgr, nil, Action{Name: "good", Combo: mustCombo(t, "ctrl+z"), Invoke: good.invoke})

	l.Start()
	l.Stop()

	mgr.press("ctrl+z")
	assert.Never(t, func() bool { return good.value() > 0 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestRegistrationFailureFallsBackToLocal(t *testing.T) {
	mgr := newFakeManager()
	mgr.refuse("ctrl+x")

	clock := clockwork.NewFakeClock()
	good := &counter{}
	again := &counter{}
	l := newTestListener(mgr, clock,
		Action{Name: "good", Combo: mustCombo(t, "ctrl+z"), Invoke: good.invoke},
		Action{Name: "again", Combo: mustCombo(t, "ctrl+x"), Invoke: again.invoke},
	)

	l.Start()
	defer l.Stop()

	assert.True(t, l.Running(), "a refused combination must not stop the listener")

	scopes := l.Scopes()
	assert.Equal(t, ScopeGlobal, scopes["good"])
	assert.Equal(t, ScopeLocal, scopes["again"])

	require.True(t, l.Trigger("again"), "local actions still dispatch through Trigger")
	assert.Eventually(t, func() bool { return again.value() == 1 }, time.Second, 10*time.Millisecond)
}

func TestTriggerWhileStoppedIsRejected(t *testing.T) {
	mgr := newFakeManager()
	good := &counter{}
	l := newTestListener(mgr, nil, Action{Name: "good", Combo: mustCombo(t, "ctrl+z"), Invoke: good.invoke})

	assert.False(t, l.Trigger("good"))
	assert.Zero(t, good.value())
}

func TestTriggerSharesTheGate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	mgr := newFakeManager()
	good := &counter{}
	l := newTestListener(mgr, clock, Action{Name: "good", Combo: mustCombo(t, "ctrl+z"), Invoke: good.invoke})

	l.Start()
	defer l.Stop()

	mgr.press("ctrl+z")
	assert.Eventually(t, func() bool { return good.value() == 1 }, time.Second, 10*time.Millisecond)

	require.True(t, l.Trigger("good"), "Trigger enqueues even when the gate later drops it")
	assert.Never(t, func() bool { return good.value() > 1 }, 300*time.Millisecond, 25*time.Millisecond)

	clock.Advance(time.Second)
	require.True(t, l.Trigger("good"))
	assert.Eventually(t, func() bool { return good.value() == 2 }, time.Second, 10*time.Millisecond)
}

func TestActionErrorsAndPanicsStayContained(t *testing.T) {
	mgr := newFakeManager()
	clock := clockwork.NewFakeClock()
	good := &counter{}
	badRan := make(chan struct{}, 1)
	worseRan := make(chan struct{}, 1)

	l := newTestListener(mgr, clock,
		Action{Name: "bad", Combo: mustCombo(t, "ctrl+1"), Invoke: func() error {
			badRan <- struct{}{}
			return errors.New("host gone")
		}},
		Action{Name: "worse", Combo: mustCombo(t, "ctrl+2"), Invoke: func() error {
			worseRan <- struct{}{}
			panic("boom")
		}},
		Action{Name: "fine", Combo: mustCombo(t, "ctrl+3"), Invoke: good.invoke},
	)

	l.Start()
	defer l.Stop()

	mgr.press("ctrl+1")
	<-badRan
	clock.Advance(time.Second)

	mgr.press("ctrl+2")
	<-worseRan
	clock.Advance(time.Second)

	mgr.press("ctrl+3")
	assert.Eventually(t, func() bool { return good.value() == 1 }, time.Second, 10*time.Millisecond)
	assert.True(t, l.Running(), "a failing action must not take the listener down")
}
