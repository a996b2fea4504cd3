//go:build windows

package main

import "os"

// Windows has no user signals; runtime log control is unavailable
func notifyLogSignals(c chan<- os.Signal) {}

func isLevelSignal(sig os.Signal) bool {
	return false
}
