//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// SIGUSR1 cycles the log level, SIGUSR2 toggles HTTP request logging
func notifyLogSignals(c chan<- os.Signal) {
	signal.Notify(c, syscall.SIGUSR1, syscall.SIGUSR2)
}

func isLevelSignal(sig os.Signal) bool {
	return sig == syscall.SIGUSR1
}
