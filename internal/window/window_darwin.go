//go:build darwin

package window

import (
	"errors"

	"github.com/rs/zerolog"
)

const unsupportedReason = "always-on-top needs accessibility control of the host process on macOS"

type darwinManager struct{}

// New returns a Manager without window control. Raising another
// process's window level is not possible through public APIs here.
func New(match string, log zerolog.Logger) Manager {
	return &darwinManager{}
}

func (m *darwinManager) SetAlwaysOnTop(on bool) error {
	return errors.New(unsupportedReason)
}

func (m *darwinManager) Available() (bool, string) {
	return false, unsupportedReason
}
