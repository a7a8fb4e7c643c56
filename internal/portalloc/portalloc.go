// Package portalloc implements the Port Allocator (spec §4.3 / §4.5): the
// smallest port at or above a base that is neither already handed out
// in-process nor refused by a transient bind check.
package portalloc

import (
	"fmt"
	"net"
	"sync"
)

// Allocator hands out ports serialized by an internal lock, tracking every
// port it has handed out until Release is called.
type Allocator struct {
	mu    sync.Mutex
	host  string
	taken map[int]bool
}

// New creates an Allocator that binds its probe sockets against host (empty
// string means all interfaces, matching net.Listen's default).
func New(host string) *Allocator {
	return &Allocator{host: host, taken: make(map[int]bool)}
}

// Allocate returns the smallest port >= base that is not already held by
// this allocator and that a transient SO_REUSEADDR-style listen succeeds on.
// The probe listener is closed before Allocate returns so the caller's own
// bind is the first real owner of the port.
func (a *Allocator) Allocate(base int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for port := base; port < 65536; port++ {
		if a.taken[port] {
			continue
		}
		if !a.probe(port) {
			continue
		}
		a.taken[port] = true
		return port, nil
	}
	return 0, fmt.Errorf("portalloc: no free port at or above %d", base)
}

// Release returns port to the available pool. Safe to call for a port that
// was never allocated.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.taken, port)
}

// probe attempts a transient bind to confirm the port is actually free on
// the OS, matching the original implementation's SO_REUSEADDR bind check.
// net.Listen on "tcp" sets SO_REUSEADDR by default on the platforms this
// runs on.
func (a *Allocator) probe(port int) bool {
	addr := fmt.Sprintf("%s:%d", a.host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
