package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("PULSE_CONFIG")
	defer os.Setenv("PULSE_CONFIG", originalEnv)

	os.Setenv("PULSE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingJWTSecret verifies run fails when no JWT secret is configured.
func TestRun_MissingJWTSecret(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: 5000
  timeouts:
    read: 30
    write: 30
    idle: 60

auth:
  token_ttl: 60

mqtt:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("PULSE_CONFIG")
	defer os.Setenv("PULSE_CONFIG", originalEnv)
	os.Setenv("PULSE_CONFIG", configPath)

	// Make sure the environment fallback does not mask the missing secret.
	originalSecret := os.Getenv("PULSE_JWT_SECRET")
	defer os.Setenv("PULSE_JWT_SECRET", originalSecret)
	os.Unsetenv("PULSE_JWT_SECRET")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without a JWT secret")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("PULSE_CONFIG")
	defer os.Setenv("PULSE_CONFIG", originalEnv)

	os.Unsetenv("PULSE_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("PULSE_CONFIG")
	defer os.Setenv("PULSE_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("PULSE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_SuccessfulStartupAndShutdown starts the full stack with MQTT
// disabled, checks the health endpoint, and lets the context cancel it.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")
	port := 19090

	configContent := `
database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: ` + fmt.Sprint(port) + `
  timeouts:
    read: 30
    write: 30
    idle: 60

auth:
  jwt_secret: "test-secret-for-development-only-32ch"
  token_ttl: 60

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

	originalEnv := os.Getenv("PULSE_CONFIG")
	defer os.Setenv("PULSE_CONFIG", originalEnv)
	os.Setenv("PULSE_CONFIG", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- run(ctx)
	}()

	// Wait for the server to come up, then probe /health.
	addr := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	var healthy bool
	for i := 0; i < 50; i++ {
		resp, err := http.Get(addr)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				healthy = true
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !healthy {
		t.Error("health endpoint never became ready")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() returned error on shutdown: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after context cancellation")
	}
}
