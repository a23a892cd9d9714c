package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/scottschatz/software-capitalization-sub001/internal/config"
)

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "captrack dev") {
		t.Errorf("expected output to contain 'captrack dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "captrack 1.0.0") {
		t.Errorf("expected output to contain 'captrack 1.0.0', got: %s", out)
	}
	if !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("expected output to contain 'built: 2026-01-01', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help command failed: %v", err)
	}

	out := buf.String()
	for _, sub := range []string{"sync", "watch", "discover", "parse", "serve", "db", "login", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help output to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestParseLocalDate(t *testing.T) {
	cfg := &config.Config{Timezone: "America/New_York"}

	got, err := parseLocalDate("2024-03-04", cfg)
	if err != nil {
		t.Fatalf("parseLocalDate: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 4 {
		t.Errorf("date = %v", got)
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("not local midnight: %v", got)
	}
	if got.Location().String() != "America/New_York" {
		t.Errorf("location = %v", got.Location())
	}

	if _, err := parseLocalDate("03/04/2024", cfg); err == nil {
		t.Error("expected error for non-ISO date")
	}
	if _, err := parseLocalDate("2024-13-40", cfg); err == nil {
		t.Error("expected error for impossible date")
	}
}

func TestSyncCmd_FromAndReparseAreExclusive(t *testing.T) {
	cfgPath := writeTestConfig(t)

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"sync", "--config", cfgPath, "--from", "2024-03-01", "--reparse"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error combining --from with --reparse")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("error = %v", err)
	}
}

func TestParseCmd_EmptyTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"parse", path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("parse command failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No session records found.") {
		t.Errorf("output = %s", buf.String())
	}
}

func TestParseCmd_PrintsSessionJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "6f1bcf2a-40c5-4d2e-9b7a-1c2d3e4f5a6b.jsonl")
	line := `{"type":"user","timestamp":"2024-03-04T12:00:00Z","message":{"role":"user","content":"hello"}}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"parse", path, "--timezone", "UTC"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("parse command failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"sessionId": "6f1bcf2a-40c5-4d2e-9b7a-1c2d3e4f5a6b"`) {
		t.Errorf("output missing session id: %s", out)
	}
	if !strings.Contains(out, `"date": "2024-03-04"`) {
		t.Errorf("output missing daily breakdown: %s", out)
	}
}

func TestParseCmd_InvalidTimezone(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"parse", "whatever.jsonl", "--timezone", "Mars/Olympus"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

// writeTestConfig writes a minimal valid config into a temp dir.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "captrack.yaml")
	yaml := "developer:\n  email: jane@example.com\nstate_dir: " + filepath.Join(dir, "state") + "\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
