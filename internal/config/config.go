// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "tradejournal/internal/errors"
)

// Config holds the application configuration. Values come from an optional
// YAML file, overridden by environment variables, falling back to defaults.
type Config struct {
	Server     Server     `yaml:"server"`
	Database   Database   `yaml:"database"`
	Session    Session    `yaml:"session"`
	SnapTrade  SnapTrade  `yaml:"snaptrade"`
	Webull     Webull     `yaml:"webull"`
	MarketData MarketData `yaml:"market_data"`

	// EncryptionSecret encrypts broker credentials at rest.
	EncryptionSecret string `yaml:"encryption_secret"`

	// DemoMode seeds a demo user and sample trades on an empty database.
	DemoMode bool `yaml:"demo_mode"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// Database holds SQLite settings.
type Database struct {
	Path string `yaml:"path"`
}

// Session holds auth session settings.
type Session struct {
	MaxAge int `yaml:"max_age"` // seconds
}

// Auth schemes accepted by the aggregator client. Exactly one is used per
// deployment; the client never falls back between schemes.
const (
	AuthSchemeHMAC   = "hmac"
	AuthSchemeAPIKey = "apikey"
)

// SnapTrade holds brokerage aggregator credentials and endpoints.
type SnapTrade struct {
	BaseURL     string `yaml:"base_url"`
	ClientID    string `yaml:"client_id"`
	ConsumerKey string `yaml:"consumer_key"`
	AuthScheme  string `yaml:"auth_scheme"` // "hmac" or "apikey"
	RedirectURI string `yaml:"redirect_uri"`
}

// Webull holds settings for the direct-login broker import path.
type Webull struct {
	BaseURL string `yaml:"base_url"`
}

// MarketData holds websocket and quote endpoint settings.
type MarketData struct {
	StreamURL        string `yaml:"stream_url"`
	QuoteURL         string `yaml:"quote_url"`
	APIKey           string `yaml:"api_key"`
	ReconnectDelayMs int    `yaml:"reconnect_delay_ms"`
	MaxReconnects    int    `yaml:"max_reconnects"`
}

// ReconnectDelay returns the reconnect delay as a duration.
func (m MarketData) ReconnectDelay() time.Duration {
	return time.Duration(m.ReconnectDelayMs) * time.Millisecond
}

// Load reads the YAML configuration file at path (if it exists), applies
// environment variable overrides, and fills in defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Address returns the full address to bind the server to.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// ValidateAggregator checks that the aggregator deployment settings are
// complete. Missing values are fatal at flow start and are never retried.
func (c *Config) ValidateAggregator() error {
	if c.SnapTrade.ClientID == "" {
		return apperrors.Configuration("aggregator client id is not configured")
	}
	if c.SnapTrade.ConsumerKey == "" {
		return apperrors.Configuration("aggregator consumer key is not configured")
	}
	if c.SnapTrade.RedirectURI == "" {
		return apperrors.Configuration("aggregator redirect URI is not configured")
	}
	switch c.SnapTrade.AuthScheme {
	case AuthSchemeHMAC, AuthSchemeAPIKey:
	default:
		return apperrors.Configuration(fmt.Sprintf("unknown aggregator auth scheme %q", c.SnapTrade.AuthScheme))
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server:   Server{Host: "localhost", Port: "8080"},
		Database: Database{Path: filepath.Join("data", "journal.db")},
		Session:  Session{MaxAge: 86400 * 7},
		SnapTrade: SnapTrade{
			BaseURL:    "https://api.snaptrade.com/api/v1",
			AuthScheme: AuthSchemeHMAC,
		},
		Webull: Webull{BaseURL: "https://userapi.webull.com/api"},
		MarketData: MarketData{
			ReconnectDelayMs: 3000,
			MaxReconnects:    5,
		},
		EncryptionSecret: "change-me-in-production-32chars!",
	}
}

func applyEnvOverrides(cfg *Config) {
	setEnv(&cfg.Server.Host, "HOST")
	setEnv(&cfg.Server.Port, "PORT")
	setEnv(&cfg.Database.Path, "DB_PATH")
	setEnv(&cfg.EncryptionSecret, "ENCRYPTION_SECRET")
	setEnv(&cfg.SnapTrade.BaseURL, "SNAPTRADE_BASE_URL")
	setEnv(&cfg.SnapTrade.ClientID, "SNAPTRADE_CLIENT_ID")
	setEnv(&cfg.SnapTrade.ConsumerKey, "SNAPTRADE_CONSUMER_KEY")
	setEnv(&cfg.SnapTrade.AuthScheme, "SNAPTRADE_AUTH_SCHEME")
	setEnv(&cfg.SnapTrade.RedirectURI, "SNAPTRADE_REDIRECT_URI")
	setEnv(&cfg.Webull.BaseURL, "WEBULL_BASE_URL")
	setEnv(&cfg.MarketData.StreamURL, "MARKET_DATA_STREAM_URL")
	setEnv(&cfg.MarketData.QuoteURL, "MARKET_DATA_QUOTE_URL")
	setEnv(&cfg.MarketData.APIKey, "MARKET_DATA_API_KEY")

	if v := os.Getenv("SESSION_MAX_AGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.MaxAge = n
		}
	}
	if v := os.Getenv("DEMO_MODE"); v != "" {
		cfg.DemoMode = v == "true" || v == "1"
	}
}

func setEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
