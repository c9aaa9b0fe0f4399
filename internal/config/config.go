package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MaxCookiesCeiling is the largest batch the order lookup endpoint accepts
const MaxCookiesCeiling = 10

// minBudget keeps room for at least one full order block per message
const minBudget = 500

// Config holds all application configuration
type Config struct {
	Port          string
	LogLevel      string
	TelegramToken string
	WebChatSecret string
	RedisURL      string
	RenderMode    string // "plain" or "html"
	Timezone      string
	PolicyFile    string
	Workers       int

	Upstream UpstreamConfig
	Policy   PolicyConfig
	Send     SendConfig
}

// UpstreamConfig holds the lookup endpoints. Empty URLs keep the client defaults.
type UpstreamConfig struct {
	OrderURL        string
	SPXURL          string
	GHNURL          string
	SPXLanguage     string
	HTTPTimeout     time.Duration
	TrackingTimeout time.Duration
}

// PolicyConfig holds rendering and validation limits. It can be overridden
// from a YAML file; zero fields keep the environment value.
type PolicyConfig struct {
	MessageBudget       int  `yaml:"message_budget"`
	MaxOrdersPerAccount int  `yaml:"max_orders_per_account"`
	MaxProductsPerOrder int  `yaml:"max_products_per_order"`
	MaxTrackingEvents   int  `yaml:"max_tracking_events"`
	MaxCookies          int  `yaml:"max_cookies"`
	ShowOrderTime       bool `yaml:"show_order_time"`
	ShowTotal           bool `yaml:"show_total"`
}

// SendConfig bounds outbound chat messages
type SendConfig struct {
	Rate  float64 // messages per second
	Burst int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	p := &parser{}
	cfg := &Config{
		Port:          getEnv("PORT", "10000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		WebChatSecret: os.Getenv("WEBCHAT_SECRET"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RenderMode:    strings.ToLower(strings.TrimSpace(getEnv("RENDER_MODE", "plain"))),
		Timezone:      getEnv("TIMEZONE", "Asia/Ho_Chi_Minh"),
		PolicyFile:    os.Getenv("POLICY_FILE"),
		Workers:       p.getInt("WORKERS", 8),
		Upstream: UpstreamConfig{
			OrderURL:        os.Getenv("ORDER_API_URL"),
			SPXURL:          os.Getenv("SPX_API_URL"),
			GHNURL:          os.Getenv("GHN_API_URL"),
			SPXLanguage:     getEnv("SPX_LANGUAGE", "vi"),
			HTTPTimeout:     p.getDuration("HTTP_TIMEOUT", 60*time.Second),
			TrackingTimeout: p.getDuration("TRACKING_TIMEOUT", 25*time.Second),
		},
		Policy: PolicyConfig{
			MessageBudget:       p.getInt("MESSAGE_BUDGET", 3500),
			MaxOrdersPerAccount: p.getInt("MAX_ORDERS_PER_ACCOUNT", 5),
			MaxProductsPerOrder: p.getInt("MAX_PRODUCTS_PER_ORDER", 5),
			MaxTrackingEvents:   p.getInt("MAX_TRACKING_EVENTS", 10),
			MaxCookies:          p.getInt("MAX_COOKIES", MaxCookiesCeiling),
			ShowOrderTime:       getEnv("SHOW_ORDER_TIME", "false") == "true",
			ShowTotal:           getEnv("SHOW_TOTAL", "false") == "true",
		},
		Send: SendConfig{
			Rate:  p.getFloat("SEND_RATE", 25),
			Burst: p.getInt("SEND_BURST", 5),
		},
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}

	if cfg.PolicyFile != "" {
		if err := cfg.LoadPolicy(cfg.PolicyFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPolicy overlays the non-zero fields of a YAML policy file
func (c *Config) LoadPolicy(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}
	var p PolicyConfig
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}

	overlay(&c.Policy.MessageBudget, p.MessageBudget)
	overlay(&c.Policy.MaxOrdersPerAccount, p.MaxOrdersPerAccount)
	overlay(&c.Policy.MaxProductsPerOrder, p.MaxProductsPerOrder)
	overlay(&c.Policy.MaxTrackingEvents, p.MaxTrackingEvents)
	overlay(&c.Policy.MaxCookies, p.MaxCookies)
	c.Policy.ShowOrderTime = c.Policy.ShowOrderTime || p.ShowOrderTime
	c.Policy.ShowTotal = c.Policy.ShowTotal || p.ShowTotal
	return nil
}

// Validate rejects limits the bot cannot work with
func (c *Config) Validate() error {
	var errs []error
	positive := map[string]int{
		"MAX_ORDERS_PER_ACCOUNT": c.Policy.MaxOrdersPerAccount,
		"MAX_PRODUCTS_PER_ORDER": c.Policy.MaxProductsPerOrder,
		"MAX_TRACKING_EVENTS":    c.Policy.MaxTrackingEvents,
		"MAX_COOKIES":            c.Policy.MaxCookies,
		"WORKERS":                c.Workers,
		"SEND_BURST":             c.Send.Burst,
	}
	for name, v := range positive {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	if c.Policy.MessageBudget < minBudget {
		errs = append(errs, fmt.Errorf("MESSAGE_BUDGET must be at least %d, got %d", minBudget, c.Policy.MessageBudget))
	}
	if c.Policy.MaxCookies > MaxCookiesCeiling {
		errs = append(errs, fmt.Errorf("MAX_COOKIES cannot exceed %d", MaxCookiesCeiling))
	}
	if c.Send.Rate <= 0 {
		errs = append(errs, fmt.Errorf("SEND_RATE must be positive"))
	}
	if c.Upstream.HTTPTimeout <= 0 || c.Upstream.TrackingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("timeouts must be positive"))
	}
	if c.RenderMode != "plain" && c.RenderMode != "html" {
		errs = append(errs, fmt.Errorf("RENDER_MODE must be plain or html, got %q", c.RenderMode))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE: %w", err))
	}
	return errors.Join(errs...)
}

// Location returns the configured display timezone
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func overlay(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parser collects conversion errors so all bad values are reported at once
type parser struct {
	errs []error
}

func (p *parser) getInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) getFloat(key string, def float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		// Bare numbers are seconds
		if secs, convErr := strconv.Atoi(raw); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}
