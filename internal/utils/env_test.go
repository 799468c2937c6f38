package utils

import (
	"testing"
	"time"
)

func TestSafeEnv(t *testing.T) {
	const key = "_ORIENTA_TEST_SAFEENV"
	t.Setenv(key, "")
	if got := SafeEnv(key, "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv(key, "value")
	if got := SafeEnv(key, "fallback"); got != "value" {
		t.Fatalf("expected 'value', got %q", got)
	}
}

func TestSafeEnvTyped(t *testing.T) {
	const key = "_ORIENTA_TEST_TYPED"
	t.Setenv(key, "abc")
	if got := SafeEnvInt(key, 7); got != 7 {
		t.Fatalf("malformed int should fall back, got %d", got)
	}
	if got := SafeEnvDuration(key, time.Hour); got != time.Hour {
		t.Fatalf("malformed duration should fall back, got %v", got)
	}
	t.Setenv(key, " 12 ")
	if got := SafeEnvInt(key, 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	t.Setenv(key, "90m")
	if got := SafeEnvDuration(key, time.Hour); got != 90*time.Minute {
		t.Fatalf("expected 90m, got %v", got)
	}
	t.Setenv(key, "a, ,b")
	got := SafeEnvList(key, nil)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list %q", got)
	}
}
