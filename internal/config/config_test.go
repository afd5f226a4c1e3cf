package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so host values never leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, "PORT", "LOG_LEVEL", "DATABASE_URL", "NATS_URL", "NATS_TOKEN",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "SLACK_BOT_TOKEN",
		"SLACK_PRIMARY_USER_ID", "DAILY_DIGEST_HOUR", "DEFAULT_TIMEZONE",
		"CRON_SECRET", "SLACK_CHANNEL_IDS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.NatsURL != "nats://localhost:4222" {
		t.Errorf("unexpected nats url %q", cfg.NatsURL)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("unexpected model %q", cfg.OpenAIModel)
	}
	if cfg.DigestHour != 18 {
		t.Errorf("expected digest hour 18, got %d", cfg.DigestHour)
	}
	if cfg.Timezone != "America/Los_Angeles" {
		t.Errorf("unexpected timezone %q", cfg.Timezone)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "fieldnote.yaml")
	raw := []byte(`
port: 8080
logLevel: debug
slackChannelIds:
  - C1
  - C2
digestHour: 9
`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("expected yaml port 8080, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected yaml log level debug, got %q", cfg.LogLevel)
	}
	if len(cfg.SlackChannelIDs) != 2 || cfg.SlackChannelIDs[0] != "C1" {
		t.Errorf("unexpected channels %v", cfg.SlackChannelIDs)
	}
	if cfg.DigestHour != 9 {
		t.Errorf("expected yaml digest hour 9, got %d", cfg.DigestHour)
	}
	// Unset yaml keys keep their defaults.
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("unexpected model %q", cfg.OpenAIModel)
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "fieldnote.yaml")
	if err := os.WriteFile(path, []byte("port: 8080\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv("PORT", "9090")
	t.Setenv("SLACK_CHANNEL_IDS", "C1, C2 ,,C3")
	t.Setenv("DAILY_DIGEST_HOUR", "7")

	cfg := Load()
	if cfg.Port != 9090 {
		t.Errorf("expected env port 9090, got %d", cfg.Port)
	}
	if cfg.DigestHour != 7 {
		t.Errorf("expected env digest hour 7, got %d", cfg.DigestHour)
	}
	want := []string{"C1", "C2", "C3"}
	if len(cfg.SlackChannelIDs) != len(want) {
		t.Fatalf("unexpected channels %v", cfg.SlackChannelIDs)
	}
	for i, id := range want {
		if cfg.SlackChannelIDs[i] != id {
			t.Errorf("channel %d: got %q, want %q", i, cfg.SlackChannelIDs[i], id)
		}
	}
}

func TestLoad_BadIntKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	if cfg := Load(); cfg.Port != 3000 {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	if cfg := Load(); cfg.Port != 3000 {
		t.Errorf("expected defaults on missing file, got port %d", cfg.Port)
	}
}

func TestLocation(t *testing.T) {
	cfg := Config{Timezone: "America/New_York"}
	if loc := cfg.Location(); loc.String() != "America/New_York" {
		t.Errorf("unexpected location %s", loc)
	}

	cfg.Timezone = "Mars/Olympus_Mons"
	if loc := cfg.Location(); loc != time.UTC {
		t.Errorf("expected UTC fallback, got %s", loc)
	}
}
