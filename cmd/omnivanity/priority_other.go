//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd

package main

import "github.com/Amr-9/omnivanity/internal/logging"

func raisePriority(*logging.Logger) {}
