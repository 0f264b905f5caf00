//go:build !windows

package process

type noopConsoleHider struct{}

// NewConsoleHider returns a no-op hider on platforms without console windows
// to hide.
func NewConsoleHider() ConsoleHider {
	return noopConsoleHider{}
}

func (noopConsoleHider) HideProcessWindows(pid int) {}
