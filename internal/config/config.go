// Package config loads store and server settings from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-productoptions/pkg/model"
)

// TaxMode says whether prices include tax.
type TaxMode string

const (
	TaxIncluded TaxMode = "incl"
	TaxExcluded TaxMode = "excl"
)

// Environment variables overriding file values.
const (
	EnvAddr         = "PRODUCTOPTIONS_ADDR"
	EnvCatalog      = "PRODUCTOPTIONS_CATALOG"
	EnvAuthority    = "PRODUCTOPTIONS_AUTHORITY_URL"
	EnvLogLevel     = "PRODUCTOPTIONS_LOG_LEVEL"
	EnvLogJSON      = "PRODUCTOPTIONS_LOG_JSON"
	EnvEntryTax     = "PRODUCTOPTIONS_PRICE_ENTRY_TAX"
	EnvDisplayTax   = "PRODUCTOPTIONS_PRICE_DISPLAY_TAX"
	EnvTimezone     = "PRODUCTOPTIONS_TIMEZONE"
	EnvRateLimitRPS = "PRODUCTOPTIONS_RATE_LIMIT_RPS"
)

// Config is the full runtime configuration.
type Config struct {
	Catalog string `yaml:"catalog"`
	Store   Store  `yaml:"store"`
	Server  Server `yaml:"server"`
	Log     Log    `yaml:"log"`
}

// Store mirrors the shop settings the engines depend on.
type Store struct {
	FirstDayOfWeek  string  `yaml:"firstDayOfWeek" validate:"oneof=sunday monday tuesday wednesday thursday friday saturday"`
	PriceEntryTax   TaxMode `yaml:"priceEntryTax" validate:"oneof=incl excl"`
	PriceDisplayTax TaxMode `yaml:"priceDisplayTax" validate:"oneof=incl excl"`
	PriceDecimals   int     `yaml:"priceDecimals" validate:"min=0,max=8"`
	Timezone        string  `yaml:"timezone" validate:"timezone"`
}

// Server configures the authoritative HTTP surface and the client side of it.
type Server struct {
	Addr         string        `yaml:"addr" validate:"required"`
	AuthorityURL string        `yaml:"authorityUrl" validate:"omitempty,url"`
	Timeout      time.Duration `yaml:"timeout" validate:"min=0"`
	RateLimit    RateLimit     `yaml:"rateLimit"`
}

// RateLimit bounds requests per client. A zero RPS disables limiting.
type RateLimit struct {
	RPS   float64 `yaml:"rps" validate:"min=0"`
	Burst int     `yaml:"burst" validate:"min=0"`
}

// Log configures the process logger.
type Log struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: Store{
			FirstDayOfWeek:  "monday",
			PriceEntryTax:   TaxExcluded,
			PriceDisplayTax: TaxExcluded,
			PriceDecimals:   2,
			Timezone:        "UTC",
		},
		Server: Server{
			Addr:    ":8080",
			Timeout: 5 * time.Second,
			RateLimit: RateLimit{
				RPS:   20,
				Burst: 40,
			},
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path (when set) over the defaults, applies environment overrides
// and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvAddr, &c.Server.Addr)
	str(EnvCatalog, &c.Catalog)
	str(EnvAuthority, &c.Server.AuthorityURL)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvTimezone, &c.Store.Timezone)

	var entry, display string
	str(EnvEntryTax, &entry)
	str(EnvDisplayTax, &display)
	if entry != "" {
		c.Store.PriceEntryTax = TaxMode(strings.ToLower(entry))
	}
	if display != "" {
		c.Store.PriceDisplayTax = TaxMode(strings.ToLower(display))
	}

	if v, ok := lookup(EnvLogJSON); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvLogJSON, err)
		}
		c.Log.JSON = b
	}
	if v, ok := lookup(EnvRateLimitRPS); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvRateLimitRPS, err)
		}
		c.Server.RateLimit.RPS = rps
	}
	return nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	c.Store.FirstDayOfWeek = strings.ToLower(c.Store.FirstDayOfWeek)
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("config: %s: failed %q rule", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// TaxConflict reports whether prices are entered and displayed with different
// tax modes, which forces tax-sensitive formulas to the authoritative context.
func (s Store) TaxConflict() bool {
	return s.PriceEntryTax != s.PriceDisplayTax
}

// Weekday returns the configured first day of the week.
func (s Store) Weekday() time.Weekday {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s.FirstDayOfWeek) {
			return d
		}
	}
	return time.Monday
}

// Location loads the configured timezone.
func (s Store) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// EvaluationContext builds the engine settings for role.
func (s Store) EvaluationContext(role model.Role) (model.EvaluationContext, error) {
	loc, err := s.Location()
	if err != nil {
		return model.EvaluationContext{}, err
	}
	return model.EvaluationContext{
		Location:       loc,
		FirstDayOfWeek: s.Weekday(),
		TaxConflict:    s.TaxConflict(),
		Role:           role,
	}, nil
}
