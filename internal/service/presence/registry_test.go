package presence_test

import (
	"testing"

	presence "github.com/safeping/relay/backend/internal/service/presence"
)

func TestRegistryLookupReflectsLastRegister(t *testing.T) {
	reg := presence.NewRegistry()

	reg.Register("U1", "conn-1", "I1")
	reg.Register("U1", "conn-2", "I2")

	got, ok := reg.Lookup("U1")
	if !ok {
		t.Fatal("expected U1 to be registered")
	}
	if got.TransportID != "conn-2" || got.CounterpartID != "I2" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 session after re-register, got %d", reg.Len())
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Register("I1", "conn-1", "")

	if !reg.Remove("I1") {
		t.Fatal("expected Remove to report an existing session")
	}
	if reg.Remove("I1") {
		t.Fatal("expected second Remove to report nothing removed")
	}
	if _, ok := reg.Lookup("I1"); ok {
		t.Fatal("expected I1 to be gone")
	}
}

func TestRegistrySequenceOfOperations(t *testing.T) {
	reg := presence.NewRegistry()
	ops := []struct {
		register bool
		actor    string
		conn     string
	}{
		{true, "A", "c1"},
		{true, "B", "c2"},
		{false, "A", ""},
		{true, "A", "c3"},
		{false, "B", ""},
		{true, "C", "c4"},
		{false, "C", ""},
	}
	for _, op := range ops {
		if op.register {
			reg.Register(op.actor, op.conn, "")
		} else {
			reg.Remove(op.actor)
		}
	}

	if got, ok := reg.Lookup("A"); !ok || got.TransportID != "c3" {
		t.Fatalf("expected A on c3, got %+v (ok=%t)", got, ok)
	}
	if _, ok := reg.Lookup("B"); ok {
		t.Fatal("expected B removed")
	}
	if _, ok := reg.Lookup("C"); ok {
		t.Fatal("expected C removed")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", reg.Len())
	}
}

func TestRegistryBoundTo(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Register("I1", "conn-1", "")
	reg.Register("U1", "conn-1", "I1")
	reg.Register("U2", "conn-2", "I1")

	got := reg.BoundTo("conn-1")
	if len(got) != 2 || got[0] != "I1" || got[1] != "U1" {
		t.Fatalf("unexpected actors bound to conn-1: %v", got)
	}
	if len(reg.BoundTo("conn-9")) != 0 {
		t.Fatal("expected no actors on unknown handle")
	}
}

func TestRegistrySnapshotAndClear(t *testing.T) {
	reg := presence.NewRegistry()
	reg.Register("U2", "c2", "I1")
	reg.Register("I1", "c1", "")

	snap := reg.Snapshot()
	if len(snap) != 2 || snap[0].ActorID != "I1" || snap[1].ActorID != "U2" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap[0].HasCounterpart() {
		t.Fatal("institution should not have a counterpart")
	}
	if !snap[1].HasCounterpart() {
		t.Fatal("user should have a counterpart")
	}

	reg.Clear()
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry after Clear, got %d", reg.Len())
	}
}
