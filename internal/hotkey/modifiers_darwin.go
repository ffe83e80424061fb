//go:build darwin

package hotkey

import "golang.design/x/hotkey"

// modMap converts canonical modifier names to Carbon masks. "alt"
// means Option and "super" means Command on macOS.
var modMap = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.ModOption,
	"super": hotkey.ModCmd,
}

// Hint names the usual reason global registration fails here.
func Hint() string {
	return "Another application or a system shortcut may already own the combination; pick a different one in the config."
}
