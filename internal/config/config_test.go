package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-productoptions/pkg/model"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
catalog: ./catalog
store:
  firstDayOfWeek: Sunday
  priceEntryTax: incl
  timezone: Europe/Madrid
server:
  addr: ":9090"
  rateLimit:
    rps: 5
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Catalog != "./catalog" || cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected file values: %+v", cfg)
	}
	if cfg.Server.RateLimit.RPS != 5 || cfg.Server.RateLimit.Burst != 40 {
		t.Fatalf("expected burst default to survive, got %+v", cfg.Server.RateLimit)
	}
	if !cfg.Store.TaxConflict() {
		t.Fatalf("expected incl entry and excl display to conflict")
	}
	if cfg.Store.Weekday() != time.Sunday {
		t.Fatalf("expected Sunday, got %v", cfg.Store.Weekday())
	}

	ectx, err := cfg.Store.EvaluationContext(model.RolePresentation)
	if err != nil {
		t.Fatalf("EvaluationContext returned error: %v", err)
	}
	if ectx.Location.String() != "Europe/Madrid" || !ectx.TaxConflict || ectx.Role != model.RolePresentation {
		t.Fatalf("unexpected evaluation context: %+v", ectx)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvAddr:         "127.0.0.1:7000",
		EnvDisplayTax:   "INCL",
		EnvLogJSON:      "true",
		EnvRateLimitRPS: "0",
	}
	cfg := Default()
	if err := cfg.applyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}); err != nil {
		t.Fatalf("applyEnv returned error: %v", err)
	}

	want := Default()
	want.Server.Addr = "127.0.0.1:7000"
	want.Store.PriceDisplayTax = TaxIncluded
	want.Log.JSON = true
	want.Server.RateLimit.RPS = 0
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	bad := Default()
	err := bad.applyEnv(func(key string) (string, bool) {
		if key == EnvLogJSON {
			return "maybe", true
		}
		return "", false
	})
	if err == nil {
		t.Fatalf("expected an error for a malformed boolean")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := Default().Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cases := map[string]func(*Config){
		"tax mode":  func(c *Config) { c.Store.PriceEntryTax = "gross" },
		"weekday":   func(c *Config) { c.Store.FirstDayOfWeek = "someday" },
		"decimals":  func(c *Config) { c.Store.PriceDecimals = -1 },
		"addr":      func(c *Config) { c.Server.Addr = "" },
		"authority": func(c *Config) { c.Server.AuthorityURL = "not a url" },
		"log level": func(c *Config) { c.Log.Level = "loud" },
		"timezone":  func(c *Config) { c.Store.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
