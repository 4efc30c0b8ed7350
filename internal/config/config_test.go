package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.TransactionQueue != "fraud_service.transactions" {
		t.Fatalf("unexpected default queue %q", cfg.TransactionQueue)
	}
	if cfg.SweepSchedule != "@every 5s" {
		t.Fatalf("unexpected default sweep schedule %q", cfg.SweepSchedule)
	}
	if cfg.SweepWindowSeconds != 10 {
		t.Fatalf("unexpected default sweep window %d", cfg.SweepWindowSeconds)
	}
	if cfg.HighValueThresholdMinor != 1000000 {
		t.Fatalf("expected default threshold of 1000000 minor units, got %d", cfg.HighValueThresholdMinor)
	}
	if cfg.IngestRateLimitPerMin != 0 {
		t.Fatalf("expected rate limiting disabled by default, got %d", cfg.IngestRateLimitPerMin)
	}
}

func TestLoadConfig_ThresholdInWholeUnits(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("HIGH_VALUE_THRESHOLD", "2500.50")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.HighValueThresholdMinor != 250050 {
		t.Fatalf("expected 250050 minor units, got %d", cfg.HighValueThresholdMinor)
	}
}

func TestLoadConfig_InvalidThresholdFallsBack(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("HIGH_VALUE_THRESHOLD", "not-a-number")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.HighValueThresholdMinor != 1000000 {
		t.Fatalf("expected fallback threshold of 1000000 minor units, got %d", cfg.HighValueThresholdMinor)
	}
}

func TestLoadConfig_ClampsSweepWindow(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("SWEEP_WINDOW_SECONDS", "-3")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SweepWindowSeconds != 10 {
		t.Fatalf("expected clamped sweep window of 10, got %d", cfg.SweepWindowSeconds)
	}
}

func TestLoadConfig_PortOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("PORT", "9191")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9191" {
		t.Fatalf("expected PORT override to win, got %q", cfg.ServerPort)
	}
}
