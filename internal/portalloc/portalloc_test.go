package portalloc

import (
	"net"
	"testing"
)

func TestAllocateReturnsDistinctPorts(t *testing.T) {
	a := New("127.0.0.1")

	p1, err := a.Allocate(20000)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	p2, err := a.Allocate(20000)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("expected distinct ports, got %d twice", p1)
	}
	if p2 < p1 {
		t.Errorf("expected second allocation >= first, got %d < %d", p2, p1)
	}
}

func TestReleaseAllowsReuse(t *testing.T) {
	a := New("127.0.0.1")

	p1, err := a.Allocate(21000)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	a.Release(p1)

	p2, err := a.Allocate(21000)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if p2 != p1 {
		t.Errorf("expected released port %d to be reusable, got %d", p1, p2)
	}
}

func TestAllocateSkipsPortsHeldByOtherListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer ln.Close()
	busyPort := ln.Addr().(*net.TCPAddr).Port

	a := New("127.0.0.1")
	got, err := a.Allocate(busyPort)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got == busyPort {
		t.Errorf("expected allocator to skip the busy port %d", busyPort)
	}
}
