// Package window adjusts the host application's window state.
package window

// Manager toggles window properties of the host application.
type Manager interface {
	// SetAlwaysOnTop keeps the host window above all others while on.
	SetAlwaysOnTop(on bool) error
	// Available reports whether the platform supports window control,
	// with a reason when it does not.
	Available() (bool, string)
}
