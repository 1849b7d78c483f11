//go:build windows

package cmd

import "os"

// SIGTERM cannot be delivered to a Windows process.
var shutdownSignals = []os.Signal{os.Interrupt}
