package env

import "testing"

func TestGetFallsBackWhenUnset(t *testing.T) {
	if got := Get("TUNNELPAY_TEST_UNSET_KEY", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestGetTrimsWhitespace(t *testing.T) {
	t.Setenv("TUNNELPAY_TEST_KEY", "  console  ")
	if got := Get("TUNNELPAY_TEST_KEY", "json"); got != "console" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}

func TestGetTreatsBlankAsUnset(t *testing.T) {
	t.Setenv("TUNNELPAY_TEST_KEY", "   ")
	if got := Get("TUNNELPAY_TEST_KEY", "json"); got != "json" {
		t.Fatalf("expected fallback for blank value, got %q", got)
	}
}
