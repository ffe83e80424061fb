//go:build linux

package hotkey

import "golang.design/x/hotkey"

// modMap converts canonical modifier names to X11 masks. Alt is Mod1
// and Super/Win is Mod4 under X11.
var modMap = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.Mod1,
	"super": hotkey.Mod4,
}

// Hint names the usual reason global registration fails here.
func Hint() string {
	return "Global hotkeys need an X11 session; under Wayland, run the host through XWayland."
}
