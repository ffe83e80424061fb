//go:build windows

package hotkey

import "golang.design/x/hotkey"

// modMap converts canonical modifier names to RegisterHotKey masks.
var modMap = map[string]hotkey.Modifier{
	"ctrl":  hotkey.ModCtrl,
	"shift": hotkey.ModShift,
	"alt":   hotkey.ModAlt,
	"super": hotkey.ModWin,
}

// Hint names the usual reason global registration fails here.
func Hint() string {
	return "Another application may already own the combination; pick a different one in the config."
}
