//go:build linux || darwin || freebsd || netbsd || openbsd

package main

import (
	"golang.org/x/sys/unix"

	"github.com/Amr-9/omnivanity/internal/logging"
)

const searchNice = -5

// raisePriority lowers the nice value when the process is allowed to.
// Unprivileged users keep their niceness; `nice -n -20` does the same from
// the shell.
func raisePriority(logger *logging.Logger) {
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, searchNice); err != nil {
		logger.Debug("priority unchanged", "error", err)
	}
}
