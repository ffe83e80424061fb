// Package hotkey provides cross-platform global key combination
// registration on top of the operating system's hotkey facility.
package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnavailable reports that the OS-level hook could not be
// installed, e.g. no X11 display or the combination is taken. Callers
// are expected to fall back to a local binding surface.
var ErrUnavailable = errors.New("global hotkeys unavailable")

// Manager registers system-wide key combinations.
type Manager interface {
	// Register binds the combination and invokes callback on every
	// key-down until the returned Registration is released. Errors
	// wrap ErrUnavailable when the hook cannot be installed.
	Register(combo Combo, callback func()) (Registration, error)
	Close() error
}

// Registration is a live key binding.
type Registration interface {
	Unregister() error
}

// Combo is a parsed key combination such as ctrl+shift+z. The zero
// value is invalid; build one through Parse.
type Combo struct {
	Mods []string
	Key  string
}

// modifierNames maps accepted spellings to canonical modifier names.
var modifierNames = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"opt":     "alt",
	"super":   "super",
	"cmd":     "super",
	"win":     "super",
	"meta":    "super",
}

var modifierOrder = map[string]int{"ctrl": 0, "shift": 1, "alt": 2, "super": 3}

// Parse converts strings like "ctrl+z" or "Ctrl+Shift+F5" into a
// Combo. The last element must be a key, everything before it a
// modifier. Matching is case-insensitive and duplicates collapse.
func Parse(s string) (Combo, error) {
	parts := strings.Split(s, "+")

	var c Combo
	seen := make(map[string]bool)

	for i, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			return Combo{}, fmt.Errorf("empty element in combination %q", s)
		}

		if i == len(parts)-1 {
			if canon, isMod := modifierNames[name]; isMod {
				return Combo{}, fmt.Errorf("combination %q ends with modifier %q, needs a key", s, canon)
			}
			canon, ok := keyAliases[name]
			if !ok {
				if _, known := keyMap[name]; !known {
					return Combo{}, fmt.Errorf("unknown key %q (expected a-z, 0-9, f1-f20, space, return, escape, tab, delete or an arrow)", name)
				}
				canon = name
			}
			c.Key = canon
			continue
		}

		canon, ok := modifierNames[name]
		if !ok {
			return Combo{}, fmt.Errorf("unknown modifier %q (available: ctrl, shift, alt, super)", name)
		}
		if !seen[canon] {
			seen[canon] = true
			c.Mods = append(c.Mods, canon)
		}
	}

	sort.Slice(c.Mods, func(i, j int) bool {
		return modifierOrder[c.Mods[i]] < modifierOrder[c.Mods[j]]
	})

	return c, nil
}

// String renders the canonical lowercase form, modifiers first.
func (c Combo) String() string {
	if c.Key == "" {
		return ""
	}
	return strings.Join(append(append([]string(nil), c.Mods...), c.Key), "+")
}
