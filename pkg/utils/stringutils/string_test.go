package stringutils

import (
	"math/rand"
	"strings"
	"testing"
)

func TestGetRunID(t *testing.T) {
	id := GetRunID()
	if len(id) != 6 {
		t.Errorf("expected run id of length 6, got %q", id)
	}
	for _, c := range id {
		if !strings.ContainsRune(shaLetters, c) {
			t.Errorf("run id contains unexpected character %q", c)
		}
	}
}

func TestRandStringBytesMask(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"single character", 1},
		{"six characters", 6},
		{"long string", 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RandStringBytesMask(tt.n, rand.NewSource(42))
			if len(got) != tt.n {
				t.Errorf("expected length %d, got %d", tt.n, len(got))
			}
		})
	}
}

func TestRandStringBytesMaskDeterministicPerSeed(t *testing.T) {
	a := RandStringBytesMask(10, rand.NewSource(7))
	b := RandStringBytesMask(10, rand.NewSource(7))
	if a != b {
		t.Errorf("same seed produced different strings: %q vs %q", a, b)
	}
}
