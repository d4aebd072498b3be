package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Token:   "123456:abc-def",
			OwnerID: 42,
		},
	}
}

func TestBotIDFromToken(t *testing.T) {
	cfg := TelegramConfig{Token: "987654321:AAHsecret"}
	id, err := cfg.BotID()
	if err != nil {
		t.Fatalf("bot id: %v", err)
	}
	if id != 987654321 {
		t.Fatalf("unexpected bot id %d", id)
	}

	for _, token := range []string{"", "no-separator", ":secret", "abc:secret", "-5:secret"} {
		if _, err := (TelegramConfig{Token: token}).BotID(); err == nil {
			t.Fatalf("token %q should be rejected", token)
		}
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode default: %s", cfg.Telegram.RunMode)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.Path == "" {
		t.Fatalf("store defaults: %+v", cfg.Store)
	}
	if cfg.Store.MaxConnections != 8 {
		t.Fatalf("max connections default: %d", cfg.Store.MaxConnections)
	}
}

func TestNormalizeRequiresOwner(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.OwnerID = 0
	if err := Normalize(cfg); err == nil || !strings.Contains(err.Error(), "owner_id") {
		t.Fatalf("expected owner_id error, got %v", err)
	}
}

func TestNormalizePostgresRequiresHost(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Driver = DriverPostgres
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for postgres without host")
	}
	cfg.Store.Host = "localhost"
	cfg.Store.Name = "stickers"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Store.Port != "5432" || cfg.Store.SSLMode != "disable" {
		t.Fatalf("postgres defaults: %+v", cfg.Store)
	}
}

func TestNormalizeInvalidDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Driver = "redis"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNormalizeWebhookValidation(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("webhook mode without url must fail")
	}
	cfg.Webhook = WebhookConfig{URL: "https://example.com/hook", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Inline_Query ", "message"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateInlineQuery {
		t.Fatalf("exclusion not normalized: %v", cfg.RateLimit.ExcludeUpdates)
	}
	cfg.RateLimit.ExcludeUpdates = []string{"callback"}
	if err := Normalize(cfg); err == nil {
		t.Fatal("unknown exclusion must fail")
	}
}
