package config

import (
	"testing"
)

func validConfig() *Config {
	return &Config{
		Env:              "development",
		DatabaseURL:      "postgres://localhost/carehub",
		OTPLength:        6,
		OTPExpiryMinutes: 10,
		OTPGrantMinutes:  30,
		UploadMaxBytes:   10 * 1024 * 1024,
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/carehub")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.OTPLength != 6 {
		t.Errorf("expected default OTP length 6, got %d", cfg.OTPLength)
	}
	if cfg.OTPExpiryMinutes != 10 {
		t.Errorf("expected default OTP expiry 10, got %d", cfg.OTPExpiryMinutes)
	}
	if cfg.OTPGrantMinutes != 30 {
		t.Errorf("expected default grant window 30, got %d", cfg.OTPGrantMinutes)
	}
	if cfg.UploadMaxBytes != 10*1024*1024 {
		t.Errorf("expected default upload cap 10MB, got %d", cfg.UploadMaxBytes)
	}
}

func TestValidate_JWTSecretRequiredOutsideDev(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing JWT_SECRET in production")
	}
	cfg.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_OTPLengthBounds(t *testing.T) {
	cfg := validConfig()
	cfg.OTPLength = 3
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for OTP_LENGTH below minimum")
	}
	cfg.OTPLength = 11
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for OTP_LENGTH above maximum")
	}
}

func TestValidate_Dev(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
