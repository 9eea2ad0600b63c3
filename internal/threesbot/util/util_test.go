package util

import "testing"

func TestGenerateCodeHash(t *testing.T) {
	code, err := GenerateCodeHash()
	if err != nil {
		t.Fatalf("generate code hash: %v", err)
	}
	if code < 0 {
		t.Fatalf("code must be non-negative, got %d", code)
	}
	if code >= 1<<12 {
		t.Fatalf("code out of range, got %d", code)
	}
}
