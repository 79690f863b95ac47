package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRunMainHelp(t *testing.T) {
	var buf bytes.Buffer
	oldStderr := stderrWriter
	stderrWriter = &buf
	defer func() { stderrWriter = oldStderr }()

	if code := runMain([]string{"-h"}); code != 0 {
		t.Fatalf("help exit code = %d, want 0", code)
	}
}

func TestRunMainMissingConfig(t *testing.T) {
	var buf bytes.Buffer
	oldStderr := stderrWriter
	stderrWriter = &buf
	defer func() { stderrWriter = oldStderr }()

	code := runMain([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if buf.Len() == 0 {
		t.Fatal("expected an error message on stderr")
	}
}

func TestRunMainBadFlag(t *testing.T) {
	var buf bytes.Buffer
	oldStderr := stderrWriter
	stderrWriter = &buf
	defer func() { stderrWriter = oldStderr }()

	if code := runMain([]string{"-bogus"}); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestRunMainAuthMisconfigured(t *testing.T) {
	var buf bytes.Buffer
	oldStderr := stderrWriter
	stderrWriter = &buf
	defer func() { stderrWriter = oldStderr }()

	t.Setenv("EVALFORGE_API_KEY", "")
	t.Setenv("EVALFORGE_DISABLE_AUTH", "")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	payload := []byte("llm:\n  default_provider: claude\n  providers:\n    claude:\n      api_key: test-key\nstorage:\n  type: memory\n")
	if err := os.WriteFile(cfgPath, payload, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if code := runMain([]string{"-config", cfgPath}); code != 1 {
		t.Fatalf("exit code = %d, want 1 without auth configuration", code)
	}
}
