package passphrase

import (
	"strings"
	"testing"
)

func TestGetPrefersEnvironment(t *testing.T) {
	t.Setenv("LEASEX_TEST_PASS", "s3cret")
	src := NewSource("LEASEX_TEST_PASS", "resolver")
	got, err := src.Get()
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "s3cret" {
		t.Fatalf("unexpected passphrase %q", got)
	}

	t.Setenv("LEASEX_TEST_PASS", "changed")
	if again, _ := src.Get(); again != "s3cret" {
		t.Fatalf("expected cached passphrase, got %q", again)
	}
}

func TestGetRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("LEASEX_TEST_PASS", "   ")
	_, err := NewSource("LEASEX_TEST_PASS", "resolver").Get()
	if err == nil || !strings.Contains(err.Error(), "set but empty") {
		t.Fatalf("expected empty passphrase error, got %v", err)
	}
}
