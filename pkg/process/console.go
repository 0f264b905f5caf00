package process

// ConsoleHider hides any console windows a child process creates. The game
// server opens its own console on Windows even when launched without one;
// hiding it is best-effort and non-fatal. Platforms without window handles
// implement this as a no-op.
type ConsoleHider interface {
	HideProcessWindows(pid int)
}
