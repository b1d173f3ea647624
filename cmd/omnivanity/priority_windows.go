//go:build windows

package main

import (
	"golang.org/x/sys/windows"

	"github.com/Amr-9/omnivanity/internal/logging"
)

// raisePriority moves the process to the high priority class, or above
// normal when that is refused. REALTIME can freeze the desktop.
func raisePriority(logger *logging.Logger) {
	p := windows.CurrentProcess()
	if err := windows.SetPriorityClass(p, windows.HIGH_PRIORITY_CLASS); err != nil {
		if err := windows.SetPriorityClass(p, windows.ABOVE_NORMAL_PRIORITY_CLASS); err != nil {
			logger.Debug("priority unchanged", "error", err)
		}
	}
}
