package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNanoID_LengthAndAlphabet(t *testing.T) {
	for _, length := range []int{8, 12, 24} {
		id := NanoID(length)()
		if len(id) != length {
			t.Fatalf("NanoID(%d): got length %d", length, len(id))
		}
		for _, c := range id {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
				t.Fatalf("NanoID: unexpected character %q in %q", c, id)
			}
		}
	}
}

func TestUUIDv7_Valid(t *testing.T) {
	id := New()
	u, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("New: %q is not a UUID: %v", id, err)
	}
	if u.Version() != 7 {
		t.Errorf("New: got version %d, want 7", u.Version())
	}
}

func TestNode_PrefixAndUniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := Node()
		if !strings.HasPrefix(id, "g") || len(id) != 13 {
			t.Fatalf("Node: bad id %q", id)
		}
		if seen[id] {
			t.Fatalf("Node: duplicate at iteration %d: %q", i, id)
		}
		seen[id] = true
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("n")
	for _, want := range []string{"n1", "n2", "n3"} {
		if got := gen(); got != want {
			t.Errorf("Sequence: got %q, want %q", got, want)
		}
	}
	if got := Sequence("n")(); got != "n1" {
		t.Errorf("fresh Sequence: got %q, want %q", got, "n1")
	}
}
