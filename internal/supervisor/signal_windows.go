//go:build windows

package supervisor

import "os"

// terminateSignal falls back to os.Interrupt on platforms without SIGTERM.
var terminateSignal os.Signal = os.Interrupt
