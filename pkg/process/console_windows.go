//go:build windows

package process

import (
	"sync/atomic"
	"syscall"
	"unsafe"
)

const swHide = 0

var consoleHiderTargetPID atomic.Uint32

type windowsConsoleHider struct{}

// NewConsoleHider returns the Windows console hider. It enumerates top-level
// windows and hides every one owned by the target PID.
func NewConsoleHider() ConsoleHider {
	return &windowsConsoleHider{}
}

func (h *windowsConsoleHider) HideProcessWindows(pid int) {
	user32, err := syscall.LoadDLL("user32.dll")
	if err != nil {
		return
	}
	defer user32.Release()

	enumWindows, err := user32.FindProc("EnumWindows")
	if err != nil {
		return
	}
	getWindowThreadProcessID, err := user32.FindProc("GetWindowThreadProcessId")
	if err != nil {
		return
	}
	showWindow, err := user32.FindProc("ShowWindow")
	if err != nil {
		return
	}

	consoleHiderTargetPID.Store(uint32(pid))
	callback := syscall.NewCallback(func(hwnd uintptr, lparam uintptr) uintptr {
		var windowPID uint32
		getWindowThreadProcessID.Call(hwnd, uintptr(unsafe.Pointer(&windowPID)))
		if windowPID == consoleHiderTargetPID.Load() {
			showWindow.Call(hwnd, swHide)
		}
		return 1
	})
	enumWindows.Call(callback, 0)
}
