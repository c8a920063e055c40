package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"paperdash/internal/alpaca"
)

type Config struct {
	HTTPAddr              string
	Mode                  string
	AlpacaKeyID           string
	AlpacaSecretKey       string
	AlpacaBaseURL         string
	AlpacaStreamURL       string
	AlpacaRateLimitPerMin int
	BrokerTimeout         time.Duration
	JournalDSN            string
	DashboardUser         string
	DashboardPasswordHash string
	FlashSecret           string
	FlashTTL              time.Duration
	WebSocketOrigin       string
	StreamEnabled         bool
	LogLevel              string
	LogFormat             string
}

func (c Config) Production() bool { return c.Mode == "production" }

// BrokerConfigured reports whether both brokerage credentials are present.
func (c Config) BrokerConfigured() bool {
	return c.AlpacaKeyID != "" && c.AlpacaSecretKey != ""
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	var c Config
	var missing []string

	c.HTTPAddr = strings.TrimSpace(getenv("HTTP_ADDR"))
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	c.Mode = strings.ToLower(strings.TrimSpace(getenv("APP_MODE")))
	if c.Mode == "" {
		c.Mode = "development"
	}
	if c.Mode != "development" && c.Mode != "production" {
		return c, errors.New("invalid APP_MODE: use development or production")
	}

	c.AlpacaKeyID = strings.TrimSpace(getenv("ALPACA_API_KEY_ID"))
	c.AlpacaSecretKey = strings.TrimSpace(getenv("ALPACA_API_SECRET_KEY"))
	if c.Production() {
		if c.AlpacaKeyID == "" {
			missing = append(missing, "ALPACA_API_KEY_ID")
		}
		if c.AlpacaSecretKey == "" {
			missing = append(missing, "ALPACA_API_SECRET_KEY")
		}
	}
	base, err := alpaca.BaseURL(getenv("ALPACA_ENV"))
	if err != nil {
		return c, err
	}
	c.AlpacaBaseURL = strings.TrimSpace(getenv("ALPACA_BASE_URL"))
	if c.AlpacaBaseURL == "" {
		c.AlpacaBaseURL = base
	}
	if err := alpaca.CheckPaper(c.AlpacaBaseURL); err != nil {
		return c, errors.New("ALPACA_BASE_URL: " + err.Error())
	}
	c.AlpacaStreamURL = strings.TrimSpace(getenv("ALPACA_STREAM_URL"))
	if c.AlpacaStreamURL == "" {
		c.AlpacaStreamURL = alpaca.StreamURL(c.AlpacaBaseURL)
	}
	if err := alpaca.CheckPaper(c.AlpacaStreamURL); err != nil {
		return c, errors.New("ALPACA_STREAM_URL: " + err.Error())
	}
	if raw := strings.TrimSpace(getenv("ALPACA_RATE_LIMIT_PER_MIN")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c, errors.New("invalid ALPACA_RATE_LIMIT_PER_MIN")
		}
		c.AlpacaRateLimitPerMin = n
	}
	timeout, err := duration(getenv, "BROKER_TIMEOUT", 15*time.Second)
	if err != nil {
		return c, err
	}
	c.BrokerTimeout = timeout

	c.JournalDSN = strings.TrimSpace(getenv("JOURNAL_DSN"))

	c.DashboardUser = strings.TrimSpace(getenv("DASHBOARD_USER"))
	c.DashboardPasswordHash = strings.TrimSpace(getenv("DASHBOARD_PASSWORD_HASH"))
	if (c.DashboardUser == "") != (c.DashboardPasswordHash == "") {
		return c, errors.New("DASHBOARD_USER and DASHBOARD_PASSWORD_HASH must be set together")
	}
	if c.Production() && c.DashboardUser == "" {
		missing = append(missing, "DASHBOARD_USER", "DASHBOARD_PASSWORD_HASH")
	}

	c.FlashSecret = getenv("FLASH_SECRET")
	if c.Production() && c.FlashSecret == "" {
		missing = append(missing, "FLASH_SECRET")
	}
	ttl, err := duration(getenv, "FLASH_TTL", time.Minute)
	if err != nil {
		return c, err
	}
	c.FlashTTL = ttl

	// empty means same origin as the dashboard
	c.WebSocketOrigin = strings.TrimSpace(getenv("WS_ORIGIN"))
	if c.Production() && c.WebSocketOrigin == "*" {
		return c, errors.New("WS_ORIGIN=* is not allowed in production")
	}
	if raw := strings.TrimSpace(getenv("STREAM_ENABLED")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return c, errors.New("invalid STREAM_ENABLED")
		}
		c.StreamEnabled = b
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL")))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT")))
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return c, errors.New("invalid LOG_FORMAT: use json or console")
	}

	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

func duration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}
