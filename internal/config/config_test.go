package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.RoomExpiry != 2*time.Hour {
		t.Fatalf("RoomExpiry = %v, want %v", cfg.RoomExpiry, 2*time.Hour)
	}
	if cfg.RoomsProvider != "auto" {
		t.Fatalf("RoomsProvider = %q, want %q", cfg.RoomsProvider, "auto")
	}
	if cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin should default to false")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("ROOMS_EXPIRY", "1m")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject ROOMS_EXPIRY below 10m")
	}
	t.Setenv("ROOMS_EXPIRY", "")

	t.Setenv("ROOMS_PROVIDER", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject unknown ROOMS_PROVIDER")
	}
	t.Setenv("ROOMS_PROVIDER", "")

	t.Setenv("APP_ALLOW_ANY_ORIGIN", "maybe")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() should reject non-bool APP_ALLOW_ANY_ORIGIN")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("APP_BIND_ADDR", ":9090")
	t.Setenv("ROOMS_EXPIRY", "3h")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9090" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9090")
	}
	if cfg.RoomExpiry != 3*time.Hour {
		t.Fatalf("RoomExpiry = %v, want %v", cfg.RoomExpiry, 3*time.Hour)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin = false, want true")
	}
}
