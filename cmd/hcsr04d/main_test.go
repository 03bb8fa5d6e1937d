package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/softerra/linux-hc-sro4/internal/infrastructure/logging"
)

// TestRun_InvalidConfigPath verifies run fails when HCSR04_CONFIG points
// at a file that does not exist. An explicit path is never silently
// replaced with defaults.
func TestRun_InvalidConfigPath(t *testing.T) {
	t.Setenv("HCSR04_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_InvalidConfigContent verifies run fails on a config that does
// not validate.
func TestRun_InvalidConfigContent(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")

	configContent := `
gpio:
  chip: ""
  consumer: hcsr04d

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("HCSR04_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty GPIO chip name")
	}
}

// TestRun_MissingChip verifies run fails cleanly when the configured GPIO
// chip does not exist on the machine.
func TestRun_MissingChip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")

	configContent := `
gpio:
  chip: "gpiochip-that-does-not-exist"
  consumer: hcsr04d-test

mqtt:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("HCSR04_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when the GPIO chip is missing")
	}
	if !strings.Contains(err.Error(), "GPIO chip") {
		t.Errorf("error = %v, want GPIO chip open failure", err)
	}
}

// TestLoadConfig_DefaultMissing verifies the daemon falls back to built-in
// defaults when no config file exists at the default path.
func TestLoadConfig_DefaultMissing(t *testing.T) {
	t.Setenv("HCSR04_CONFIG", "")
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	cfg, err := loadConfig(logging.Default())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.GPIO.Chip != "gpiochip0" {
		t.Errorf("GPIO.Chip = %q, want default gpiochip0", cfg.GPIO.Chip)
	}
	if cfg.MQTT.Enabled {
		t.Error("MQTT should be disabled by default")
	}
}

// TestLoadConfig_EnvOverride verifies HCSR04_CONFIG selects the file.
func TestLoadConfig_EnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "custom.yaml")

	configContent := `
gpio:
  chip: gpiochip2
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("HCSR04_CONFIG", configPath)

	cfg, err := loadConfig(logging.Default())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.GPIO.Chip != "gpiochip2" {
		t.Errorf("GPIO.Chip = %q, want gpiochip2", cfg.GPIO.Chip)
	}
}
