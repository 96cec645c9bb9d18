package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "Gkash"
	defaultAppEnv          = "development"
	defaultPort            = "3000"
	defaultLogLevel        = "info"
	defaultServiceCode     = "*710*56789#"
	defaultCurrency        = "KES"
	defaultOTPTTL          = 60 * time.Second
	defaultOTPLength       = 6
	defaultOTPMaxAttempts  = 3
	defaultProviderTimeout = 10 * time.Second
	defaultShutdownDelay   = 10 * time.Second

	otpTTLSecondsEnvVar    = "OTP_TTL_SECONDS"
	otpTTLDurEnvVar        = "OTP_TTL"
	providerSecondsEnvVar  = "PROVIDER_TIMEOUT_SECONDS"
	providerDurEnvVar      = "PROVIDER_TIMEOUT"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Tiara holds credentials for the Tiara Connect messaging provider.
type Tiara struct {
	URL      string
	APIKey   string
	SenderID string
}

// Mpesa holds Daraja API credentials for collection and disbursement calls.
type Mpesa struct {
	Env               string
	ConsumerKey       string
	ConsumerSecret    string
	Passkey           string
	Shortcode         string
	InitiatorName     string
	InitiatorPassword string
	PublicKey         string
	CallbackURL       string
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	// ServiceCode is the dial-string prefix stripped from inbound USSD text,
	// already split into tokens (e.g. ["710", "56789"]).
	ServiceCode []string
	Currency    string

	OTPTTL         time.Duration
	OTPLength      int
	OTPMaxAttempts int

	ProviderTimeout time.Duration
	ShutdownPeriod  time.Duration

	Tiara Tiara
	Mpesa Mpesa
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ServiceCode:     ParseServiceCode(getEnv("USSD_SERVICE_CODE", defaultServiceCode)),
		Currency:        getEnv("CURRENCY", defaultCurrency),
		OTPTTL:          defaultOTPTTL,
		OTPLength:       defaultOTPLength,
		OTPMaxAttempts:  defaultOTPMaxAttempts,
		ProviderTimeout: defaultProviderTimeout,
		ShutdownPeriod:  defaultShutdownDelay,
		Tiara: Tiara{
			URL:      getEnv("TIARA_URL", "https://api2.tiaraconnect.io/api/messaging/sendsms"),
			APIKey:   os.Getenv("TIARA_API_KEY"),
			SenderID: getEnv("TIARA_SENDER_ID", "CONNECT"),
		},
		Mpesa: Mpesa{
			Env:               strings.ToLower(getEnv("MPESA_ENV", "sandbox")),
			ConsumerKey:       os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret:    os.Getenv("MPESA_CONSUMER_SECRET"),
			Passkey:           os.Getenv("MPESA_PASSKEY"),
			Shortcode:         os.Getenv("MPESA_SHORTCODE"),
			InitiatorName:     os.Getenv("MPESA_INITIATOR_NAME"),
			InitiatorPassword: os.Getenv("MPESA_INITIATOR_PASSWORD"),
			PublicKey:         os.Getenv("MPESA_PUBLIC_KEY"),
			CallbackURL:       os.Getenv("MPESA_CALLBACK_URL"),
		},
	}

	var err error
	if cfg.OTPTTL, err = durationFromEnv(otpTTLSecondsEnvVar, otpTTLDurEnvVar, defaultOTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.ProviderTimeout, err = durationFromEnv(providerSecondsEnvVar, providerDurEnvVar, defaultProviderTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("OTP_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 4 || n > 10 {
			return Config{}, fmt.Errorf("invalid OTP_LENGTH: %q", v)
		}
		cfg.OTPLength = n
	}
	if v := os.Getenv("OTP_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid OTP_MAX_ATTEMPTS: %q", v)
		}
		cfg.OTPMaxAttempts = n
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the application runs in a development environment,
// where in-memory stores may substitute for Postgres and Redis.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// ParseServiceCode splits a dial string such as "*710*56789#" into its tokens.
func ParseServiceCode(code string) []string {
	code = strings.TrimSuffix(strings.TrimSpace(code), "#")
	var tokens []string
	for _, part := range strings.Split(code, "*") {
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// Seconds-or-duration dual lookup: FOO_SECONDS wins over FOO.
func durationFromEnv(secondsVar, durVar string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsVar, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durVar, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
