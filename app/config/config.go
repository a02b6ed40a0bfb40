package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/trendbot/app/promo"
	coreconfig "github.com/m3rciful/trendbot/core/config"
	coredatabase "github.com/m3rciful/trendbot/core/database"
)

// Pricing mode selects how the due amount is computed.
const (
	PricingModeFixedUSD = "fixed_usd"
	PricingModeLive     = "live"
)

// PackageConfig declares one purchasable promotion tier.
type PackageConfig struct {
	Key string `yaml:"key"`
	USD int64  `yaml:"usd"`
}

// PromoConfig describes the purchase surface of the bot.
type PromoConfig struct {
	// Networks lists supported chain symbols in keyboard order.
	Networks []string `yaml:"networks"`
	// Wallets maps a network symbol to its deposit wallet address.
	Wallets map[string]string `yaml:"wallets"`
	// Packages lists promotion tiers in keyboard order.
	Packages []PackageConfig `yaml:"packages"`
	// Channel is the chat where activations are announced, e.g. "@trending".
	Channel string `yaml:"channel" envconfig:"PROMO_CHANNEL"`
	// PromptImageURL decorates the "enter contract address" prompt.
	PromptImageURL string `yaml:"prompt_image_url" envconfig:"PROMO_PROMPT_IMAGE_URL"`
	// BrandTitle heads every user-facing card.
	BrandTitle string `yaml:"brand_title" envconfig:"PROMO_BRAND_TITLE"`
}

// MarketConfig points at the market-data provider.
type MarketConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"MARKET_BASE_URL"`
}

// PricingConfig selects and configures the price converter.
type PricingConfig struct {
	Mode    string `yaml:"mode" envconfig:"PRICING_MODE"`
	FeedURL string `yaml:"feed_url" envconfig:"PRICING_FEED_URL"`
}

// PaymentsConfig points at the confirmation endpoint.
type PaymentsConfig struct {
	RPCURL string `yaml:"rpc_url" envconfig:"PAYMENTS_RPC_URL"`
}

// NotifyConfig points at the activation worker.
type NotifyConfig struct {
	WebhookBase string `yaml:"webhook_base" envconfig:"NOTIFY_WEBHOOK_BASE"`
}

// Config aggregates the core bot configuration and this bot's settings.
type Config struct {
	Core coreconfig.Config `yaml:",inline"`

	Promo    PromoConfig         `yaml:"promo"`
	Market   MarketConfig        `yaml:"market"`
	Pricing  PricingConfig       `yaml:"pricing"`
	Payments PaymentsConfig      `yaml:"payments"`
	Notify   NotifyConfig        `yaml:"notify"`
	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// FlowConfig converts the promo section into the flow's typed view.
func (c *Config) FlowConfig() promo.Config {
	packages := make([]promo.Package, 0, len(c.Promo.Packages))
	for _, p := range c.Promo.Packages {
		packages = append(packages, promo.Package{Key: p.Key, USD: decimal.NewFromInt(p.USD)})
	}
	return promo.Config{
		Networks: c.Promo.Networks,
		Wallets:  c.Promo.Wallets,
		Packages: packages,
	}
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the app sections and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Core.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required: it names the approver")
	}

	if len(cfg.Promo.Networks) == 0 {
		return fmt.Errorf("promo.networks must not be empty")
	}
	for i, n := range cfg.Promo.Networks {
		sym := strings.ToUpper(strings.TrimSpace(n))
		if sym == "" {
			return fmt.Errorf("promo.networks[%d] is empty", i)
		}
		cfg.Promo.Networks[i] = sym
		if strings.TrimSpace(cfg.Promo.Wallets[sym]) == "" {
			return fmt.Errorf("promo.wallets[%s] is required", sym)
		}
	}

	if len(cfg.Promo.Packages) == 0 {
		return fmt.Errorf("promo.packages must not be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Promo.Packages))
	for i, p := range cfg.Promo.Packages {
		key := strings.ToUpper(strings.TrimSpace(p.Key))
		if key == "" {
			return fmt.Errorf("promo.packages[%d].key is empty", i)
		}
		if p.USD <= 0 {
			return fmt.Errorf("promo.packages[%s].usd must be > 0", key)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("promo.packages[%s] declared twice", key)
		}
		seen[key] = struct{}{}
		cfg.Promo.Packages[i].Key = key
	}

	if cfg.Promo.BrandTitle == "" {
		cfg.Promo.BrandTitle = "TRENDING"
	}

	if strings.TrimSpace(cfg.Market.BaseURL) == "" {
		return fmt.Errorf("market.base_url is required")
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Pricing.Mode))
	if mode == "" {
		mode = PricingModeFixedUSD
	}
	switch mode {
	case PricingModeFixedUSD:
	case PricingModeLive:
		if strings.TrimSpace(cfg.Pricing.FeedURL) == "" {
			return fmt.Errorf("pricing.feed_url is required when pricing.mode is 'live'")
		}
	default:
		return fmt.Errorf("invalid pricing.mode %q; allowed: fixed_usd, live", cfg.Pricing.Mode)
	}
	cfg.Pricing.Mode = mode

	if strings.TrimSpace(cfg.Payments.RPCURL) == "" {
		return fmt.Errorf("payments.rpc_url is required")
	}
	if strings.TrimSpace(cfg.Notify.WebhookBase) == "" {
		return fmt.Errorf("notify.webhook_base is required")
	}
	return nil
}
