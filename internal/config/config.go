// Package config loads service configuration from an optional YAML file with
// environment-variable overrides on top.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "FIELDNOTE_CONFIG"

type Config struct {
	Port        int    `yaml:"port"`
	LogLevel    string `yaml:"logLevel"`
	DatabaseURL string `yaml:"databaseUrl"`

	NatsURL   string `yaml:"natsUrl"`
	NatsToken string `yaml:"natsToken"`

	OpenAIAPIKey  string `yaml:"openaiApiKey"`
	OpenAIModel   string `yaml:"openaiModel"`
	OpenAIBaseURL string `yaml:"openaiBaseUrl"`

	SlackBotToken   string   `yaml:"slackBotToken"`
	SlackChannelIDs []string `yaml:"slackChannelIds"`
	PrimaryUserID   string   `yaml:"primaryUserId"`

	DigestHour int    `yaml:"digestHour"`
	Timezone   string `yaml:"timezone"`
	CronSecret string `yaml:"cronSecret"`
}

func Load() Config {
	cfg := Config{
		Port:        3000,
		LogLevel:    "info",
		NatsURL:     "nats://localhost:4222",
		OpenAIModel: "gpt-4o-mini",
		DigestHour:  18,
		Timezone:    "America/Los_Angeles",
	}

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	c.Port = envInt("PORT", c.Port)
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
	c.DatabaseURL = envStr("DATABASE_URL", c.DatabaseURL)
	c.NatsURL = envStr("NATS_URL", c.NatsURL)
	c.NatsToken = envStr("NATS_TOKEN", c.NatsToken)
	c.OpenAIAPIKey = envStr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIModel = envStr("OPENAI_MODEL", c.OpenAIModel)
	c.OpenAIBaseURL = envStr("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.SlackBotToken = envStr("SLACK_BOT_TOKEN", c.SlackBotToken)
	c.PrimaryUserID = envStr("SLACK_PRIMARY_USER_ID", c.PrimaryUserID)
	c.DigestHour = envInt("DAILY_DIGEST_HOUR", c.DigestHour)
	c.Timezone = envStr("DEFAULT_TIMEZONE", c.Timezone)
	c.CronSecret = envStr("CRON_SECRET", c.CronSecret)

	if v := os.Getenv("SLACK_CHANNEL_IDS"); v != "" {
		var ids []string
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		c.SlackChannelIDs = ids
	}
}

// Location resolves the configured timezone, reverting to UTC when unknown.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
