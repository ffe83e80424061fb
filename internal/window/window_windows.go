//go:build windows

package window

import (
	"fmt"
	"strings"
	"sync"
	"syscall"
	"unsafe"

	"github.com/rs/zerolog"
)

var (
	user32              = syscall.NewLazyDLL("user32.dll")
	procEnumWindows     = user32.NewProc("EnumWindows")
	procGetWindowTextW  = user32.NewProc("GetWindowTextW")
	procIsWindowVisible = user32.NewProc("IsWindowVisible")
	procSetWindowPos    = user32.NewProc("SetWindowPos")
)

const (
	SWP_NOSIZE     = 0x0001
	SWP_NOMOVE     = 0x0002
	SWP_SHOWWINDOW = 0x0040
)

// HWND_TOPMOST and HWND_NOTOPMOST are (HWND)-1 and (HWND)-2.
var (
	HWND_TOPMOST   = ^uintptr(0)
	HWND_NOTOPMOST = ^uintptr(1)
)

// EnumWindows callbacks are created once; Windows never releases
// callback slots, so per-call NewCallback would leak them.
var (
	enumMu    sync.Mutex
	enumMatch string
	enumFound uintptr

	enumCallback = syscall.NewCallback(func(hwnd, _ uintptr) uintptr {
		visible, _, _ := procIsWindowVisible.Call(hwnd)
		if visible == 0 {
			return 1
		}

		var buf [256]uint16
		n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
		if n == 0 {
			return 1
		}

		title := strings.ToLower(syscall.UTF16ToString(buf[:n]))
		if strings.Contains(title, enumMatch) {
			enumFound = hwnd
			return 0
		}
		return 1
	})
)

type win32Manager struct {
	match string
	log   zerolog.Logger
}

// New creates a Manager that drives the host window through user32,
// matching the first visible window whose title contains match.
func New(match string, log zerolog.Logger) Manager {
	return &win32Manager{match: match, log: log}
}

func (m *win32Manager) SetAlwaysOnTop(on bool) error {
	hwnd := findWindow(m.match)
	if hwnd == 0 {
		return fmt.Errorf("no window with title containing %q", m.match)
	}

	insertAfter := HWND_TOPMOST
	if !on {
		insertAfter = HWND_NOTOPMOST
	}

	ret, _, err := procSetWindowPos.Call(hwnd, insertAfter, 0, 0, 0, 0,
		uintptr(SWP_NOMOVE|SWP_NOSIZE|SWP_SHOWWINDOW))
	if ret == 0 {
		return fmt.Errorf("SetWindowPos: %w", err)
	}

	m.log.Debug().Bool("on", on).Str("match", m.match).Msg("Applied always-on-top")
	return nil
}

func (m *win32Manager) Available() (bool, string) {
	return true, ""
}

func findWindow(match string) uintptr {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumMatch = strings.ToLower(match)
	enumFound = 0
	procEnumWindows.Call(enumCallback, 0)
	return enumFound
}
