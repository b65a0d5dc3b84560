package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"umservice/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "um", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Paths.SocketPath != "/tmp/um_service.sock" {
		t.Fatalf("unexpected socket path: %q", cfg.Paths.SocketPath)
	}
	if cfg.Service.MaxWorkers != 6 {
		t.Fatalf("unexpected max workers: %d", cfg.Service.MaxWorkers)
	}
	if cfg.Processing.NamingFormat != "auto" {
		t.Fatalf("unexpected naming format: %q", cfg.Processing.NamingFormat)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
}

func TestLoadReadsTOMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "um.toml")
	contents := strings.Join([]string{
		"[paths]",
		`socket_path = "` + filepath.Join(dir, "svc.sock") + `"`,
		`log_dir = "` + filepath.Join(dir, "logs") + `"`,
		"[service]",
		"max_workers = 2",
		"[processing]",
		`naming_format = "artist-title"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Service.MaxWorkers != 2 {
		t.Fatalf("override not applied: %d", cfg.Service.MaxWorkers)
	}
	if cfg.Processing.NamingFormat != "artist-title" {
		t.Fatalf("override not applied: %q", cfg.Processing.NamingFormat)
	}
	// Untouched sections keep defaults.
	if cfg.Client.PollIntervalMillis != 100 {
		t.Fatalf("unexpected poll interval: %d", cfg.Client.PollIntervalMillis)
	}
}

func TestLoadRejectsBadNamingFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "um.toml")
	if err := os.WriteFile(path, []byte("[processing]\nnaming_format = \"fancy\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for naming format")
	}
}

func TestLoadRejectsZeroWorkers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "um.toml")
	if err := os.WriteFile(path, []byte("[service]\nmax_workers = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected validation error for max_workers")
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "socket_path") {
		t.Fatal("sample config missing socket_path")
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}
