package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env            string
	Port           int
	APIBaseURL     string
	PublicBaseURL  string
	RazorpayKey    string
	MerchantName   string
	Currency       string
	JWTSecret      string
	LogJSON        bool
	DatabaseURL    string
	RedisAddr      string
	TokenFile      string
	CatalogTTL     time.Duration
	ResetDelay     time.Duration
	RequestTimeout time.Duration
	FlowIdleTTL    time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

func Default() Config {
	return Config{
		Env:            "dev",
		Port:           5000,
		APIBaseURL:     "http://127.0.0.1:8000",
		PublicBaseURL:  "",
		RazorpayKey:    "",
		MerchantName:   "Diagnostics",
		Currency:       "INR",
		JWTSecret:      "",
		LogJSON:        true,
		DatabaseURL:    "",
		RedisAddr:      "",
		TokenFile:      "",
		CatalogTTL:     5 * time.Minute,
		ResetDelay:     3 * time.Second,
		RequestTimeout: 15 * time.Second,
		FlowIdleTTL:    30 * time.Minute,
		RateLimitRPS:   10,
		RateLimitBurst: 20,
	}
}

// Validate rejects configurations that are only safe on a developer machine.
func (c Config) Validate() error {
	if c.Env != "dev" && c.JWTSecret == "" {
		return errors.New("DIAG_JWT_SECRET is required outside the dev environment")
	}
	return nil
}

func EnvDefaults() Config {
	return fromEnv(Default())
}

func fromEnv(c Config) Config {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	str("DIAG_ENV", &c.Env)
	if v := os.Getenv("DIAG_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Port = p
		}
	}
	str("DIAG_API_BASE_URL", &c.APIBaseURL)
	str("DIAG_PUBLIC_BASE_URL", &c.PublicBaseURL)
	str("DIAG_RAZORPAY_KEY", &c.RazorpayKey)
	str("DIAG_MERCHANT_NAME", &c.MerchantName)
	str("DIAG_CURRENCY", &c.Currency)
	str("DIAG_JWT_SECRET", &c.JWTSecret)
	if v := os.Getenv("DIAG_LOG_JSON"); v != "" {
		switch v {
		case "1", "true", "TRUE":
			c.LogJSON = true
		case "0", "false", "FALSE":
			c.LogJSON = false
		}
	}
	str("DIAG_DATABASE_URL", &c.DatabaseURL)
	str("DIAG_REDIS_ADDR", &c.RedisAddr)
	str("DIAG_TOKEN_FILE", &c.TokenFile)
	dur("DIAG_CATALOG_TTL", &c.CatalogTTL)
	dur("DIAG_RESET_DELAY", &c.ResetDelay)
	dur("DIAG_REQUEST_TIMEOUT", &c.RequestTimeout)
	dur("DIAG_FLOW_IDLE_TTL", &c.FlowIdleTTL)
	if v := os.Getenv("DIAG_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = f
		}
	}
	if v := os.Getenv("DIAG_RATE_LIMIT_BURST"); v != "" {
		if b, err := strconv.Atoi(v); err == nil {
			c.RateLimitBurst = b
		}
	}
	return c
}
