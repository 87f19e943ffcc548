package queuedash

import (
	"testing"
)

func TestRegistryLookup(t *testing.T) {
	reg, err := NewRegistry([]Queue{newFakeQueue("payments"), newFakeQueue("emails")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := reg.Lookup("payments"); !ok {
		t.Fatal("expected to find payments")
	}

	if _, ok := reg.Lookup("missing"); ok {
		t.Fatal("expected lookup miss for unknown name")
	}

	if got, want := reg.Len(), 2; got != want {
		t.Fatalf("unexpected length, got %d, want %d", got, want)
	}
}

func TestRegistryPreservesOrder(t *testing.T) {
	reg, err := NewRegistry([]Queue{newFakeQueue("c"), newFakeQueue("a"), newFakeQueue("b")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := reg.Names()
	want := []string{"c", "a", "b"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected order, got %v, want %v", names, want)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry([]Queue{newFakeQueue("q"), newFakeQueue("q")}); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	if _, err := NewRegistry([]Queue{newFakeQueue("")}); err == nil {
		t.Fatal("expected empty name error")
	}
}
