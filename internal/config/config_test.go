package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.WebhookTimeout != 5*time.Second {
		t.Errorf("WebhookTimeout = %v, want 5s", cfg.WebhookTimeout)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("WriteTimeout = %v, want 10s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 60*time.Second {
		t.Errorf("IdleTimeout = %v, want 60s", cfg.IdleTimeout)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.DBPath != "" {
		t.Errorf("DBPath = %q, want empty", cfg.DBPath)
	}
	if cfg.MarketConfigPath != "" {
		t.Errorf("MarketConfigPath = %q, want empty", cfg.MarketConfigPath)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WEBHOOK_TIMEOUT", "3s")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("WRITE_TIMEOUT", "5s")
	t.Setenv("IDLE_TIMEOUT", "30s")
	t.Setenv("SHUTDOWN_TIMEOUT", "15s")
	t.Setenv("DB_PATH", "/var/lib/keymarket/market.db")
	t.Setenv("MARKET_CONFIG", "/etc/keymarket/market.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.WebhookTimeout != 3*time.Second {
		t.Errorf("WebhookTimeout = %v, want 3s", cfg.WebhookTimeout)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 15s", cfg.ShutdownTimeout)
	}
	if cfg.DBPath != "/var/lib/keymarket/market.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.MarketConfigPath != "/etc/keymarket/market.yaml" {
		t.Errorf("MarketConfigPath = %q", cfg.MarketConfigPath)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	for _, port := range []string{"not-a-number", "0", "70000"} {
		t.Run(port, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PORT", port)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for PORT=%q", port)
			}
		})
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	for _, key := range durationEnvKeys {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, "not-a-duration")

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
		})
	}
}

func writeMarketFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write market file: %v", err)
	}
	return path
}

const genesisYAML = `
username: alice
fee_denom: ukey
issuer_fee_collector: mock1feeeee
owner: mock1qqqqqq
`

func TestLoadMarket_File(t *testing.T) {
	clearEnv(t)

	m, err := LoadMarket(writeMarketFile(t, genesisYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Market{
		Username:           "alice",
		FeeDenom:           "ukey",
		IssuerFeeCollector: "mock1feeeee",
		Owner:              "mock1qqqqqq",
	}
	if *m != want {
		t.Fatalf("got %+v, want %+v", *m, want)
	}
}

func TestLoadMarket_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MARKET_USERNAME", "bob")
	t.Setenv("MARKET_FEE_COLLECTOR", "mock1cccccc")

	m, err := LoadMarket(writeMarketFile(t, genesisYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Username != "bob" || m.IssuerFeeCollector != "mock1cccccc" {
		t.Fatalf("overrides not applied: %+v", *m)
	}
	if m.FeeDenom != "ukey" || m.Owner != "mock1qqqqqq" {
		t.Fatalf("file values lost: %+v", *m)
	}
}

func TestLoadMarket_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("MARKET_FEE_DENOM", "ukey")
	t.Setenv("MARKET_FEE_COLLECTOR", "mock1feeeee")
	t.Setenv("MARKET_OWNER", "mock1qqqqqq")

	m, err := LoadMarket("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Username != "" || m.FeeDenom != "ukey" {
		t.Fatalf("unexpected market: %+v", *m)
	}
}

func TestLoadMarket_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing denom", "issuer_fee_collector: mock1feeeee\nowner: mock1qqqqqq\n"},
		{"bad collector", "fee_denom: ukey\nissuer_fee_collector: Fees\nowner: mock1qqqqqq\n"},
		{"missing owner", "fee_denom: ukey\nissuer_fee_collector: mock1feeeee\n"},
		{"malformed yaml", "fee_denom: [ukey\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := LoadMarket(writeMarketFile(t, tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		if _, err := LoadMarket(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Fatal("expected error")
		}
	})
}
