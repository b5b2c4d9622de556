package app

import (
	"testing"
)

func TestLoadConfigReadsPrefixedEnvironment(t *testing.T) {
	t.Setenv("CTFDOJO_CATALOG", "Easter")
	t.Setenv("CTFDOJO_DURATION", "90")
	t.Setenv("CTFDOJO_UI_STYLE", "retro_terminal")
	t.Setenv("CTFDOJO_SERVER_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("CTFDOJO_DATA_DIR", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Catalog != "eggs" || cfg.DurationSeconds != 90 {
		t.Fatalf("unexpected catalog/duration: %q %d", cfg.Catalog, cfg.DurationSeconds)
	}
	if cfg.UI.StyleVariant != "retro_terminal" || cfg.UI.MotionLevel != "full" {
		t.Fatalf("unexpected ui config: %+v", cfg.UI)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %#v", cfg.Server.AllowedOrigins)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"negative duration": func(c *Config) { c.DurationSeconds = -1 },
		"huge duration":     func(c *Config) { c.DurationSeconds = 90000 },
		"style":             func(c *Config) { c.UI.StyleVariant = "neon" },
		"motion":            func(c *Config) { c.UI.MotionLevel = "wild" },
		"mouse":             func(c *Config) { c.UI.MouseScope = "everywhere" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := Config{DataDir: t.TempDir()}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Catalog != "dns" || cfg.DurationSeconds != 600 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.UI.MouseScope != "scoped" || cfg.Server.Addr == "" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Fatalf("unexpected ui/server defaults: %+v %+v", cfg.UI, cfg.Server)
	}
}
