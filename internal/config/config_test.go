package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BackendURL != "http://localhost:8000" {
		t.Errorf("unexpected default backend URL: %s", cfg.BackendURL)
	}
	if cfg.SocketURL() != "ws://localhost:8000/ws" {
		t.Errorf("unexpected socket URL: %s", cfg.SocketURL())
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("backendUrl: https://bot.example.com\nusername: alice\nlogLevel: debug\n")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BackendURL != "https://bot.example.com" {
		t.Errorf("backend URL not loaded from file: %s", cfg.BackendURL)
	}
	if cfg.Username != "alice" {
		t.Errorf("username not loaded from file: %s", cfg.Username)
	}
	if cfg.SocketURL() != "wss://bot.example.com/ws" {
		t.Errorf("unexpected socket URL: %s", cfg.SocketURL())
	}
	// Defaults survive a partial file
	if cfg.ListenAddr != "localhost:4200" {
		t.Errorf("default listen addr lost: %s", cfg.ListenAddr)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CHATPANEL_USERNAME", "bob")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Username != "bob" {
		t.Errorf("env override not applied: %s", cfg.Username)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{BackendURL: "ftp://nope", Username: "u", ListenAddr: ":0"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for non-http backend URL")
	}

	cfg = &Config{BackendURL: "http://ok", Username: "", ListenAddr: ":0"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for empty username")
	}
}
