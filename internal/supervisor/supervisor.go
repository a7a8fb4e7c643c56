// Package supervisor implements the Subprocess Supervisor (spec §4.5): spawn
// a child process, track it in a table keyed by name, and reap it (removing
// the table entry) either on an explicit Stop or on the child exiting on its
// own.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// Child is a supervised subprocess.
type Child struct {
	Name string
	cmd  *exec.Cmd
	done chan struct{}
}

// ExitCode returns the child's exit code once it has exited, or -1 if it is
// still running or was never waited on.
func (c *Child) ExitCode() int {
	if c.cmd.ProcessState == nil {
		return -1
	}
	return c.cmd.ProcessState.ExitCode()
}

// Supervisor tracks running children in a table guarded by one lock,
// matching spec §5's "one exclusive critical section per shared table".
type Supervisor struct {
	mu       sync.Mutex
	children map[string]*Child
	logger   *slog.Logger
	onExit   func(name string, child *Child)
}

// New creates a Supervisor. onExit, if non-nil, is called (off the table
// lock) after a child's table entry is removed following an unprompted exit
// or a Stop.
func New(logger *slog.Logger, onExit func(name string, child *Child)) *Supervisor {
	return &Supervisor{
		children: make(map[string]*Child),
		logger:   logger,
		onExit:   onExit,
	}
}

// Spawn starts cmd under name and begins tracking it. A background goroutine
// waits on the process and removes its table entry on exit, tolerating a
// concurrent Stop racing the same removal (compare-and-remove by pointer
// identity, matching the original's "lobbies.get(name) is lobby" check).
func (s *Supervisor) Spawn(name string, cmd *exec.Cmd) (*Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.children[name]; ok {
		return existing, nil
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("supervisor: start %s: %w", name, err)
	}
	child := &Child{Name: name, cmd: cmd, done: make(chan struct{})}
	s.children[name] = child
	go s.monitor(name, child)
	return child, nil
}

func (s *Supervisor) monitor(name string, child *Child) {
	err := child.cmd.Wait()
	defer close(child.done)

	s.mu.Lock()
	removed := false
	if current, ok := s.children[name]; ok && current == child {
		delete(s.children, name)
		removed = true
	}
	s.mu.Unlock()

	if !removed {
		return
	}
	if err != nil {
		s.logger.Warn("subprocess exited with error", "name", name, "error", err)
	} else {
		s.logger.Info("subprocess exited", "name", name, "exit_code", child.ExitCode())
	}
	if s.onExit != nil {
		s.onExit(name, child)
	}
}

// Get returns the running child for name, if any.
func (s *Supervisor) Get(name string) (*Child, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.children[name]
	return c, ok
}

// Stop terminates the named child gracefully, escalating to Kill if it does
// not exit within gracePeriod. The table entry is removed by the same
// monitor goroutine that Spawn started, not by Stop itself, so exit handling
// stays single-threaded per child; Stop returns once that goroutine has
// removed the entry and run onExit.
func (s *Supervisor) Stop(ctx context.Context, name string, gracePeriod time.Duration) error {
	s.mu.Lock()
	child, ok := s.children[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("supervisor: %s is not running", name)
	}

	if err := child.cmd.Process.Signal(terminateSignal); err != nil {
		_ = child.cmd.Process.Kill()
	}

	timer := time.NewTimer(gracePeriod)
	defer timer.Stop()
	select {
	case <-child.done:
	case <-timer.C:
		_ = child.cmd.Process.Kill()
		<-child.done
	case <-ctx.Done():
		_ = child.cmd.Process.Kill()
		<-child.done
		return ctx.Err()
	}
	return nil
}

// Names returns the currently tracked child names.
func (s *Supervisor) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.children))
	for name := range s.children {
		names = append(names, name)
	}
	return names
}
