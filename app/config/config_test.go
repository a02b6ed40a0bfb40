package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Core.Telegram.AdminID = 100
	cfg.Promo.Networks = []string{"sol", "ETH"}
	cfg.Promo.Wallets = map[string]string{
		"SOL": "wallet-sol",
		"ETH": "wallet-eth",
	}
	cfg.Promo.Packages = []PackageConfig{
		{Key: "24h", USD: 2500},
		{Key: "48H", USD: 5500},
	}
	cfg.Market.BaseURL = "https://api.dexscreener.com"
	cfg.Payments.RPCURL = "https://rpc.example"
	cfg.Notify.WebhookBase = "https://worker.example"
	return cfg
}

func TestNormalizeUppercasesAndDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Promo.Networks[0] != "SOL" {
		t.Fatalf("network not uppercased: %q", cfg.Promo.Networks[0])
	}
	if cfg.Promo.Packages[0].Key != "24H" {
		t.Fatalf("package key not uppercased: %q", cfg.Promo.Packages[0].Key)
	}
	if cfg.Promo.BrandTitle != "TRENDING" {
		t.Fatalf("brand title default missing: %q", cfg.Promo.BrandTitle)
	}
	if cfg.Pricing.Mode != PricingModeFixedUSD {
		t.Fatalf("pricing mode default missing: %q", cfg.Pricing.Mode)
	}
}

func TestNormalizeRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing admin", func(c *Config) { c.Core.Telegram.AdminID = 0 }, "admin_id"},
		{"no networks", func(c *Config) { c.Promo.Networks = nil }, "networks"},
		{"wallet gap", func(c *Config) { delete(c.Promo.Wallets, "ETH") }, "wallets[ETH]"},
		{"no packages", func(c *Config) { c.Promo.Packages = nil }, "packages"},
		{"free package", func(c *Config) { c.Promo.Packages[0].USD = 0 }, "usd must be > 0"},
		{"duplicate package", func(c *Config) { c.Promo.Packages[1].Key = "24h" }, "declared twice"},
		{"no market url", func(c *Config) { c.Market.BaseURL = " " }, "market.base_url"},
		{"live without feed", func(c *Config) { c.Pricing.Mode = "live" }, "pricing.feed_url"},
		{"bad pricing mode", func(c *Config) { c.Pricing.Mode = "oracle" }, "invalid pricing.mode"},
		{"no rpc url", func(c *Config) { c.Payments.RPCURL = "" }, "payments.rpc_url"},
		{"no worker url", func(c *Config) { c.Notify.WebhookBase = "" }, "notify.webhook_base"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Normalize(cfg)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestNormalizeLiveModeAccepted(t *testing.T) {
	cfg := validConfig()
	cfg.Pricing.Mode = "Live"
	cfg.Pricing.FeedURL = "https://feed.example"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Pricing.Mode != PricingModeLive {
		t.Fatalf("mode not lowered: %q", cfg.Pricing.Mode)
	}
}

func TestFlowConfigConversion(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	fc := cfg.FlowConfig()
	if len(fc.Packages) != 2 {
		t.Fatalf("packages: got %d, want 2", len(fc.Packages))
	}
	if got := fc.Packages[0].USD.String(); got != "2500" {
		t.Fatalf("usd: got %s, want 2500", got)
	}
	if fc.Wallets["SOL"] != "wallet-sol" {
		t.Fatalf("wallet lost in conversion")
	}
}
