package idgen

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewV4(t *testing.T) {
	gen := NewV4()

	id, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("Generate() returned nil UUID")
	}
	if id.Version() != 4 {
		t.Errorf("version = %d, want 4", id.Version())
	}
}

func TestNewV7(t *testing.T) {
	t.Run("generates v7 values", func(t *testing.T) {
		gen := NewV7()

		id, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		if id.Version() != 7 {
			t.Errorf("version = %d, want 7", id.Version())
		}
	})

	t.Run("values are distinct", func(t *testing.T) {
		gen := NewV7(WithRetries(2))
		seen := make(map[uuid.UUID]bool)

		for i := 0; i < 100; i++ {
			id, err := gen.Generate()
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if seen[id] {
				t.Fatalf("duplicate UUID %s", id)
			}
			seen[id] = true
		}
	})
}
