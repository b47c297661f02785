package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestParseSteps(t *testing.T) {
	if steps, err := parseSteps(nil); err != nil || steps != 1 {
		t.Fatalf("expected default 1 step, got %d %v", steps, err)
	}
	if steps, err := parseSteps([]string{" 3 "}); err != nil || steps != 3 {
		t.Fatalf("expected 3 steps, got %d %v", steps, err)
	}
	for _, raw := range []string{"0", "-2", "two"} {
		if _, err := parseSteps([]string{raw}); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseVersionAndTarget(t *testing.T) {
	if v, err := parseVersion("1791331200"); err != nil || v != 1791331200 {
		t.Fatalf("unexpected version: %d %v", v, err)
	}
	if _, err := parseVersion("-1"); err == nil {
		t.Fatal("expected negative version error")
	}
	if v, err := parseTarget("42"); err != nil || v != 42 {
		t.Fatalf("unexpected target: %d %v", v, err)
	}
	if _, err := parseTarget("latest"); err == nil {
		t.Fatal("expected invalid target error")
	}
}

func TestResolveMigrationsDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MIGRATIONS_DIR", dir)

	got, err := resolveMigrationsDir()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want, _ := filepath.Abs(dir)
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", " true ")
	if !envBool("DB_DISABLE_PREPARED_BINARY_RESULT") {
		t.Fatal("expected true")
	}
	t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "maybe")
	if envBool("DB_DISABLE_PREPARED_BINARY_RESULT") {
		t.Fatal("expected invalid value to read as false")
	}
}

func TestUpRequiresDBURL(t *testing.T) {
	t.Setenv("DB_URL", "")
	root := newRootCmd()
	root.SetArgs([]string{"up"})
	root.SetOut(&strings.Builder{})
	root.SetErr(&strings.Builder{})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "DB_URL is required") {
		t.Fatalf("expected DB_URL error, got %v", err)
	}
}
