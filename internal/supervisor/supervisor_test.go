package supervisor

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"testing"
	"time"
)

func newTestSupervisor(exited chan string) *Supervisor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, func(name string, child *Child) {
		if exited != nil {
			exited <- name
		}
	})
}

func TestSpawnRemovesEntryOnExit(t *testing.T) {
	exited := make(chan string, 1)
	s := newTestSupervisor(exited)

	cmd := exec.Command("sh", "-c", "exit 0")
	if _, err := s.Spawn("quick", cmd); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	select {
	case name := <-exited:
		if name != "quick" {
			t.Errorf("expected exit callback for 'quick', got %q", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subprocess exit")
	}

	if _, ok := s.Get("quick"); ok {
		t.Errorf("expected table entry to be removed after exit")
	}
}

func TestStopTerminatesRunningChild(t *testing.T) {
	s := newTestSupervisor(nil)

	cmd := exec.Command("sleep", "30")
	if _, err := s.Spawn("long", cmd); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx, "long", 2*time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, ok := s.Get("long"); ok {
		t.Errorf("expected table entry to be removed after Stop")
	}
}

func TestStopUnknownChild(t *testing.T) {
	s := newTestSupervisor(nil)
	ctx := context.Background()
	if err := s.Stop(ctx, "missing", time.Second); err == nil {
		t.Errorf("expected error stopping an unknown child")
	}
}

func TestSpawnIsIdempotentForSameName(t *testing.T) {
	s := newTestSupervisor(nil)

	cmd1 := exec.Command("sleep", "30")
	child1, err := s.Spawn("dup", cmd1)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer s.Stop(context.Background(), "dup", time.Second)

	cmd2 := exec.Command("sleep", "30")
	child2, err := s.Spawn("dup", cmd2)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if child1 != child2 {
		t.Errorf("expected second Spawn with same name to return the existing child")
	}
}
