package tokengen

import (
	"strings"
	"sync"
	"testing"
)

func TestBase62Generator_Generate(t *testing.T) {
	t.Run("returns requested length", func(t *testing.T) {
		gen := NewBase62()

		for _, length := range []int{1, 8, 24, 32, 64} {
			token, err := gen.Generate(length)
			if err != nil {
				t.Fatalf("Generate(%d) unexpected error: %v", length, err)
			}
			if len(token) != length {
				t.Errorf("Generate(%d) returned length %d", length, len(token))
			}
		}
	})

	t.Run("rejects non-positive length", func(t *testing.T) {
		gen := NewBase62()
		for _, length := range []int{0, -1} {
			if _, err := gen.Generate(length); err == nil {
				t.Errorf("Generate(%d) expected error", length)
			}
		}
	})

	t.Run("uses only base62 characters", func(t *testing.T) {
		gen := NewBase62()

		token, err := gen.Generate(256)
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		for _, c := range token {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("token contains non-base62 character %q", c)
			}
		}
	})

	t.Run("does not repeat", func(t *testing.T) {
		gen := NewBase62()
		seen := make(map[string]bool)

		for i := 0; i < 1000; i++ {
			token, err := gen.Generate(24)
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if seen[token] {
				t.Fatalf("duplicate token %q", token)
			}
			seen[token] = true
		}
	})

	t.Run("safe for concurrent use", func(t *testing.T) {
		gen := NewBase62()

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					if _, err := gen.Generate(24); err != nil {
						t.Errorf("Generate() unexpected error: %v", err)
						return
					}
				}
			}()
		}
		wg.Wait()
	})
}
