//go:build !windows

package supervisor

import "os"
import "syscall"

// terminateSignal is sent for a graceful shutdown request before the grace
// period elapses and Stop escalates to Kill.
var terminateSignal os.Signal = syscall.SIGTERM
