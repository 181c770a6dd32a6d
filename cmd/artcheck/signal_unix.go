//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals cancel a running batch between files.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
