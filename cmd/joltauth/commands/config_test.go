package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/jolt-auth/internal/app"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigPrecedence(t *testing.T) {
	configPath := writeFile(t, "config.toml", `
log_level = "debug"

[server]
port = 5000
public_url = "https://bot.example"

[store]
file = "/from/file/twitch.json"

[twitch]
timeout = "5s"
`)

	environ := func() []string {
		return []string{
			"JOLT_SERVER__PORT=6000",
			"JOLT_SECRET__STORAGE=env",
			"JOLT_SECRET__ENV_KEY=TWITCH_CLIENT_SECRET",
			"UNRELATED=1",
		}
	}

	cfg, err := loadConfig(configPath, nil, environ)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want env override 6000", cfg.Server.Port)
	}
	if cfg.Server.PublicURL != "https://bot.example" {
		t.Errorf("Server.PublicURL = %q", cfg.Server.PublicURL)
	}
	if cfg.Store.File != "/from/file/twitch.json" {
		t.Errorf("Store.File = %q", cfg.Store.File)
	}
	if cfg.Secret.Storage != app.SecretStorageTypeEnv || cfg.Secret.EnvKey != "TWITCH_CLIENT_SECRET" {
		t.Errorf("Secret = %+v", cfg.Secret)
	}
	if cfg.Twitch.Timeout != 5*time.Second {
		t.Errorf("Twitch.Timeout = %v, want 5s", cfg.Twitch.Timeout)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	environ := func() []string {
		return []string{
			"JOLT_STORE__FILE=/tmp/twitch.json",
			"JOLT_LOG_FORMAT=xml",
		}
	}

	if _, err := loadConfig("", nil, environ); err == nil {
		t.Error("loadConfig() expected validation error")
	}
}

func TestLoadConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("JOLT_SERVER__HOST", "0.0.0.0")

	var got *app.Config
	cmd := newRootCommand(nil, nil)
	for _, sub := range cmd.Commands {
		if sub.Name == "start" {
			sub.Action = func(ctx context.Context, c *cli.Command) error {
				cfg, err := loadConfig("", c, os.Environ)
				got = cfg
				return err
			}
		}
	}

	args := []string{"joltauth", "--store--file", "/tmp/twitch.json", "start", "--server--port", "7000", "--server--public-url", "http://localhost:7000"}
	if err := cmd.Run(context.Background(), args); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want env value", got.Server.Host)
	}
	if got.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want flag value 7000", got.Server.Port)
	}
	if got.Server.PublicURL != "http://localhost:7000" {
		t.Errorf("Server.PublicURL = %q", got.Server.PublicURL)
	}
	if got.Store.File != "/tmp/twitch.json" {
		t.Errorf("Store.File = %q", got.Store.File)
	}
}
