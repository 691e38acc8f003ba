// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package config loads and validates the playgate configuration.
package config

import (
	"regexp"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/playgate/playgate/internal/crypto"
	"github.com/playgate/playgate/internal/link"
)

// Config is one immutable configuration snapshot. The engine reads a
// snapshot per operation; reloads swap the whole value atomically via
// Provider.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logging   LoggingConfig   `koanf:"logging"`
	Auth      AuthConfig      `koanf:"auth"`
	Links     LinksConfig     `koanf:"links"`
	Messages  MessagesConfig  `koanf:"messages"`

	namePattern *regexp.Regexp
}

// DatabaseConfig holds the account store connection settings.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// TelemetryConfig holds the metrics/health listen address.
type TelemetryConfig struct {
	Addr string `koanf:"addr"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "text" or "json"
}

// AuthConfig holds the authentication pipeline settings.
type AuthConfig struct {
	// Steps is the ordered step-name pipeline, e.g.
	// [REGISTER, LOGIN, LINK_TELEGRAM, ENTER_SERVER].
	Steps []string `koanf:"steps"`

	// AuthTime is the base time budget a player has to complete
	// authentication before being kicked.
	AuthTime time.Duration `koanf:"auth-time"`

	// MaxPasswordAttempts is the number of wrong passwords, counted
	// 1-indexed, at which the player is kicked.
	MaxPasswordAttempts int `koanf:"max-password-attempts"`

	PasswordMinLength int `koanf:"password-min-length"`
	PasswordMaxLength int `koanf:"password-max-length"`

	// NamePattern is the nickname validation regexp, anchored on load.
	NamePattern string `koanf:"name-pattern"`

	// CheckNameCase rejects returning players whose nickname differs
	// from the registered one only in case.
	CheckNameCase bool `koanf:"check-name-case"`

	// MaxIPConcurrentAuth caps simultaneous mid-authentication entries
	// per source IP. Zero disables the cap.
	MaxIPConcurrentAuth int `koanf:"max-ip-concurrent-auth"`

	// SessionDurability is the window after quit during which a
	// same-IP reconnect skips re-authentication.
	SessionDurability time.Duration `koanf:"session-durability"`

	// JoinDelay is the pause before a session auto-reconnect is pushed
	// past the gate.
	JoinDelay time.Duration `koanf:"join-delay"`

	// RepromptInterval is how often a waiting step re-sends its prompt.
	RepromptInterval time.Duration `koanf:"reprompt-interval"`

	// CryptoProvider is the hashing provider for new registrations.
	CryptoProvider string `koanf:"crypto-provider"`
}

// LinkConfig holds the settings for one external link type.
type LinkConfig struct {
	Enabled              bool `koanf:"enabled"`
	ConfirmationRequired bool `koanf:"confirmation-required"`

	// EnterDelay extends the auth-time budget while a confirmation for
	// this link type is pending.
	EnterDelay time.Duration `koanf:"enter-delay"`
}

// LinksConfig holds per-link-type settings.
type LinksConfig struct {
	Telegram LinkConfig `koanf:"telegram"`
	Discord  LinkConfig `koanf:"discord"`
	VK       LinkConfig `koanf:"vk"`
	TOTP     LinkConfig `koanf:"totp"`
}

// Link returns the settings for a link type.
func (l LinksConfig) Link(t link.Type) LinkConfig {
	switch t {
	case link.Telegram:
		return l.Telegram
	case link.Discord:
		return l.Discord
	case link.VK:
		return l.VK
	case link.TOTP:
		return l.TOTP
	default:
		return LinkConfig{}
	}
}

// NameRegexp returns the compiled nickname pattern.
func (c *Config) NameRegexp() *regexp.Regexp { return c.namePattern }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Telemetry: TelemetryConfig{Addr: "127.0.0.1:9090"},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Auth: AuthConfig{
			Steps:               []string{"REGISTER", "LOGIN", "ENTER_SERVER"},
			AuthTime:            60 * time.Second,
			MaxPasswordAttempts: 3,
			PasswordMinLength:   6,
			PasswordMaxLength:   64,
			NamePattern:         `[a-zA-Z0-9_]{3,16}`,
			CheckNameCase:       true,
			MaxIPConcurrentAuth: 3,
			SessionDurability:   6 * time.Hour,
			JoinDelay:           500 * time.Millisecond,
			RepromptInterval:    10 * time.Second,
			CryptoProvider:      "ARGON2ID",
		},
		Links: LinksConfig{
			Telegram: LinkConfig{EnterDelay: 60 * time.Second},
			Discord:  LinkConfig{EnterDelay: 60 * time.Second},
			VK:       LinkConfig{EnterDelay: 60 * time.Second},
			TOTP:     LinkConfig{},
		},
		Messages: DefaultMessages(),
	}
}

// Load reads configuration from an optional YAML file and optional flag
// set, layered over the defaults, and validates the result against the
// crypto provider registry.
func Load(path string, flags *pflag.FlagSet, providers *crypto.Registry) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(providers); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the snapshot and compiles the name pattern. Load calls
// it; tests building configs programmatically call it directly.
func (c *Config) Validate(providers *crypto.Registry) error {
	if len(c.Auth.Steps) == 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.steps cannot be empty")
	}
	if c.Auth.AuthTime <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.auth-time must be positive")
	}
	if c.Auth.MaxPasswordAttempts <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("auth.max-password-attempts must be positive")
	}
	if c.Auth.PasswordMinLength <= 0 || c.Auth.PasswordMaxLength < c.Auth.PasswordMinLength {
		return oops.Code("CONFIG_INVALID").Errorf("invalid password length bounds [%d, %d]",
			c.Auth.PasswordMinLength, c.Auth.PasswordMaxLength)
	}

	// Unknown crypto provider is a startup abort, not a runtime fallback.
	if providers != nil {
		if _, err := providers.Resolve(c.Auth.CryptoProvider); err != nil {
			return err
		}
	}

	pattern, err := regexp.Compile("^(?:" + c.Auth.NamePattern + ")$")
	if err != nil {
		return oops.Code("CONFIG_INVALID").
			With("pattern", c.Auth.NamePattern).
			Wrap(err)
	}
	c.namePattern = pattern

	return nil
}
