package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if len(id) != 36 {
		t.Fatalf("UUIDv7: expected length 36, got %d", len(id))
	}
	if parts := strings.Split(id, "-"); len(parts) != 5 {
		t.Fatalf("UUIDv7: expected 5 parts, got %d in %q", len(parts), id)
	}
	if id[14] != '7' {
		t.Fatalf("UUIDv7: version nibble = %q, want '7'", id[14])
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		next := gen()
		if next <= prev {
			t.Fatalf("UUIDv7 not monotonic: %q after %q", next, prev)
		}
		prev = next
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("evt_", UUIDv7())()
	if !strings.HasPrefix(id, "evt_") {
		t.Fatalf("Prefixed: %q missing prefix", id)
	}
	if _, err := Parse(strings.TrimPrefix(id, "evt_")); err != nil {
		t.Fatalf("Prefixed: inner id not a UUID: %v", err)
	}
}

func TestSequential(t *testing.T) {
	gen := Sequential("e")
	if got := gen(); got != "e1" {
		t.Fatalf("first: got %q, want e1", got)
	}
	if got := gen(); got != "e2" {
		t.Fatalf("second: got %q, want e2", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("Parse: expected error for invalid input")
	}
}
