package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTTTLHours int    `mapstructure:"JWT_TTL_HOURS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	// OTP issuance and grant-window policy.
	OTPLength             int `mapstructure:"OTP_LENGTH"`
	OTPExpiryMinutes      int `mapstructure:"OTP_EXPIRY_MINUTES"`
	OTPGrantMinutes       int `mapstructure:"OTP_GRANT_MINUTES"`
	OTPIssueLimit         int `mapstructure:"OTP_ISSUE_LIMIT"`
	OTPIssueWindowMinutes int `mapstructure:"OTP_ISSUE_WINDOW_MINUTES"`

	UploadMaxBytes int64 `mapstructure:"UPLOAD_MAX_BYTES"`

	SMSProviderURL string `mapstructure:"SMS_PROVIDER_URL"`
	SMSProviderKey string `mapstructure:"SMS_PROVIDER_KEY"`

	GroqAPIKey string `mapstructure:"GROQ_API_KEY"`
	GroqModel  string `mapstructure:"GROQ_MODEL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("JWT_TTL_HOURS", 24)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_EXPIRY_MINUTES", 10)
	v.SetDefault("OTP_GRANT_MINUTES", 30)
	v.SetDefault("OTP_ISSUE_LIMIT", 3)
	v.SetDefault("OTP_ISSUE_WINDOW_MINUTES", 15)
	v.SetDefault("UPLOAD_MAX_BYTES", 10*1024*1024)
	v.SetDefault("GROQ_MODEL", "mixtral-8x7b-32768")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"CORS_ORIGINS", "JWT_SECRET", "JWT_TTL_HOURS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"OTP_LENGTH", "OTP_EXPIRY_MINUTES", "OTP_GRANT_MINUTES",
		"OTP_ISSUE_LIMIT", "OTP_ISSUE_WINDOW_MINUTES",
		"UPLOAD_MAX_BYTES", "SMS_PROVIDER_URL", "SMS_PROVIDER_KEY",
		"GROQ_API_KEY", "GROQ_MODEL",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside of
// development a JWT secret must be configured so that real authentication
// is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTPLength)
	}
	if c.OTPExpiryMinutes <= 0 {
		return fmt.Errorf("OTP_EXPIRY_MINUTES must be positive, got %d", c.OTPExpiryMinutes)
	}
	if c.OTPGrantMinutes <= 0 {
		return fmt.Errorf("OTP_GRANT_MINUTES must be positive, got %d", c.OTPGrantMinutes)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes)
	}
	return nil
}
