package config

import (
	"testing"
	"time"
)

func TestGetEnvDefault(t *testing.T) {
	if got := getEnv("CF_TEST_UNSET_KEY", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %s", got)
	}

	t.Setenv("CF_TEST_SET_KEY", "value")
	if got := getEnv("CF_TEST_SET_KEY", "fallback"); got != "value" {
		t.Errorf("Expected value, got %s", got)
	}
}

func TestGetIntEnv(t *testing.T) {
	t.Setenv("CF_TEST_INT", "42")
	if got := getIntEnv("CF_TEST_INT", 7); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}

	t.Setenv("CF_TEST_INT_BAD", "not-a-number")
	if got := getIntEnv("CF_TEST_INT_BAD", 7); got != 7 {
		t.Errorf("Expected default 7 on parse failure, got %d", got)
	}
}

func TestGetDurationEnv(t *testing.T) {
	t.Setenv("CF_TEST_DUR", "800ms")
	if got := getDurationEnv("CF_TEST_DUR", time.Second); got != 800*time.Millisecond {
		t.Errorf("Expected 800ms, got %v", got)
	}
}

func TestGetSliceEnv(t *testing.T) {
	t.Setenv("CF_TEST_SLICE", "a, b ,c")
	got := getSliceEnv("CF_TEST_SLICE", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Expected [a b c], got %v", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing JWT secret")
	}

	cfg.JWT.Secret = "secret"
	cfg.App.Env = "production"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing DB password in production")
	}

	cfg.Database.Password = "pw"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	cfg.Vault.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for enabled Vault without token")
	}
}
