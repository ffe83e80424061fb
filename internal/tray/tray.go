package tray

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/sagaskoyere/ankikeys/internal/app"
	"github.com/sagaskoyere/ankikeys/internal/config"
	"github.com/sagaskoyere/ankikeys/internal/logging"
)

const (
	trayTooltip   = "Global review shortcuts for Anki"
	flashDuration = 1200 * time.Millisecond
)

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	mu        sync.Mutex
	ready     bool
	status    string
	reviewing bool
	flashGen  int

	// Menu items
	mScoreGood  *systray.MenuItem
	mScoreAgain *systray.MenuItem
	mOnTop      *systray.MenuItem
	mEnabled    *systray.MenuItem
}

// Status update methods for the app to call

func (u *UI) SetWaiting()  { u.updateStatus("waiting") }
func (u *UI) SetArmed()    { u.updateStatus("armed") }
func (u *UI) SetDegraded() { u.updateStatus("degraded") }
func (u *UI) SetError()    { u.updateStatus("error") }

// SetAlwaysOnTop mirrors the window state on the menu checkbox.
func (u *UI) SetAlwaysOnTop(on bool) {
	if !u.isReady() {
		return
	}
	if on {
		u.mOnTop.Check()
	} else {
		u.mOnTop.Uncheck()
	}
}

// SetReviewing greys the scoring items out while there is no card to
// score. The state is remembered, so an edge that arrives before the
// menu exists still lands once onReady runs.
func (u *UI) SetReviewing(on bool) {
	u.mu.Lock()
	u.reviewing = on
	ready := u.ready
	u.mu.Unlock()

	if !ready {
		return
	}
	if on {
		u.mScoreGood.Enable()
		u.mScoreAgain.Enable()
	} else {
		u.mScoreGood.Disable()
		u.mScoreAgain.Disable()
	}
}

// Notify flashes the text on the tray title, then falls back to the
// status glyph. Notices also land in the log, so losing one to a
// follow-up flash is fine.
func (u *UI) Notify(text string) {
	u.mu.Lock()
	u.flashGen++
	gen := u.flashGen
	ready := u.ready
	u.mu.Unlock()

	if !ready {
		return
	}

	systray.SetTitle("🃏 " + text)
	systray.SetTooltip(text)

	time.AfterFunc(flashDuration, func() {
		u.mu.Lock()
		stale := gen != u.flashGen
		status := u.status
		ready := u.ready
		u.mu.Unlock()

		if stale || !ready {
			return
		}
		systray.SetTitle(title(status))
		systray.SetTooltip(bindingSummary(u.app.Keys()))
	})
}

func New(application *app.App, cfg *config.Config, version, commit string) *UI {
	return &UI{
		app:     application,
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     logging.NewWithLevel(cfg.LogLevel),
		status:  "waiting",
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

func (u *UI) Run(ctx context.Context) error {
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	keys := u.app.Keys()
	systray.SetTooltip(bindingSummary(keys))

	// Build menu
	u.mScoreGood = systray.AddMenuItem(menuLabel("Score Good", keys.Good), "Answer the current card as Good")
	u.mScoreAgain = systray.AddMenuItem(menuLabel("Score Again", keys.Again), "Answer the current card as Again")
	systray.AddSeparator()

	u.mOnTop = systray.AddMenuItemCheckbox(menuLabel("Always on Top", keys.AlwaysOnTop),
		"Keep the Anki window above others", u.app.AlwaysOnTop())
	u.mEnabled = systray.AddMenuItemCheckbox("Hotkeys Enabled",
		"Listen for the global shortcuts", u.app.Enabled())
	systray.AddSeparator()

	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mCopyLog := systray.AddMenuItem("Copy Log Path", "Copy the log file location")
	mConfig := systray.AddMenuItem("Edit Config", "Open the config file")
	mAbout := systray.AddMenuItem("About", "About AnkiKeys")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.mu.Lock()
	u.ready = true
	status := u.status
	reviewing := u.reviewing
	u.mu.Unlock()

	systray.SetTitle(title(status))
	if !reviewing {
		u.mScoreGood.Disable()
		u.mScoreAgain.Disable()
	}

	// Event loop
	go u.handleEvents(mLogs, mCopyLog, mConfig, mAbout, mQuit)

	u.Notify("AnkiKeys ready. " + bindingSummary(keys))
}

func (u *UI) handleEvents(mLogs, mCopyLog, mConfig, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mScoreGood.ClickedCh:
			u.app.ScoreGood()
		case <-u.mScoreAgain.ClickedCh:
			u.app.ScoreAgain()
		case <-u.mOnTop.ClickedCh:
			u.app.ToggleAlwaysOnTop()
		case <-u.mEnabled.ClickedCh:
			u.toggleEnabled()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mCopyLog.ClickedCh:
			u.copyLogPath()
		case <-mConfig.ClickedCh:
			u.editConfig()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// RefreshBindings updates the menu labels after a config reload.
func (u *UI) RefreshBindings() {
	if !u.isReady() {
		return
	}

	keys := u.app.Keys()
	u.mScoreGood.SetTitle(menuLabel("Score Good", keys.Good))
	u.mScoreAgain.SetTitle(menuLabel("Score Again", keys.Again))
	u.mOnTop.SetTitle(menuLabel("Always on Top", keys.AlwaysOnTop))
	systray.SetTooltip(bindingSummary(keys))
}

func (u *UI) toggleEnabled() {
	next := !u.app.Enabled()
	u.app.SetEnabled(next)
	if next {
		u.mEnabled.Check()
		u.log.Info().Msg("Enabled hotkeys from tray")
	} else {
		u.mEnabled.Uncheck()
		u.log.Info().Msg("Disabled hotkeys from tray")
	}
}

func (u *UI) openLogs() {
	path := logging.Path()
	if err := openPath(path); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open logs")
	}
}

func (u *UI) copyLogPath() {
	path := logging.Path()
	if err := clipboard.WriteAll(path); err != nil {
		u.log.Error().Err(err).Msg("Clipboard write failed")
		return
	}
	u.Notify("Log path copied")
}

func (u *UI) editConfig() {
	path := config.Path()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Seed the file so the editor has something to open
		if err := u.cfg.Save(); err != nil {
			u.log.Error().Err(err).Msg("Failed to write config file")
			return
		}
	}
	if err := openPath(path); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open config")
	}
}

func (u *UI) showAbout() {
	fmt.Printf("AnkiKeys %s (%s)\n%s\n", u.version, u.commit, trayTooltip)
}

func (u *UI) onExit() {
	// Cleanup
}

func (u *UI) isReady() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ready
}

// updateStatus sets the tray title with the card emoji and status indicator
func (u *UI) updateStatus(status string) {
	u.mu.Lock()
	u.status = status
	ready := u.ready
	u.mu.Unlock()

	if ready {
		systray.SetTitle(title(status))
	}
}

func title(status string) string {
	return fmt.Sprintf("🃏 %s", glyphForStatus(status))
}

func menuLabel(action, combo string) string {
	return fmt.Sprintf("%s (%s)", action, combo)
}

// bindingSummary is the tooltip text and the startup notice body.
func bindingSummary(keys config.KeysConfig) string {
	return fmt.Sprintf("Good: %s, Again: %s, Always on top: %s", keys.Good, keys.Again, keys.AlwaysOnTop)
}

// glyphForStatus returns the appropriate status glyph
func glyphForStatus(status string) string {
	switch status {
	case "armed":
		return "🟢" // Green - hotkeys live
	case "degraded":
		return "🟡" // Yellow - some shortcuts tray-only
	case "error":
		return "🔴" // Red - host call failed
	case "waiting":
		return "⚪️" // White - no review session
	default:
		return "⚪️" // White - default to waiting
	}
}

func openPath(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}
