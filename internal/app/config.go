package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix scopes every environment override.
const EnvPrefix = "CTFDOJO_"

// Config controls runtime behavior for the TUI game and the server.
type Config struct {
	Catalog         string `env:"CATALOG"`
	CatalogDir      string `env:"CATALOG_DIR"`
	DurationSeconds int    `env:"DURATION"`
	LogPath         string `env:"LOG"`
	DataDir         string `env:"DATA_DIR"`
	Debug           bool   `env:"DEBUG"`
	ASCIIOnly       bool   `env:"ASCII"`
	NoStats         bool   `env:"NO_STATS"`
	Seed            int64  `env:"SEED"`
	DemoScenario    string `env:"DEMO"`

	UI     UIConfig     `envPrefix:"UI_"`
	Server ServerConfig `envPrefix:"SERVER_"`
}

type UIConfig struct {
	// StyleVariant empty means "use the catalog's choice".
	StyleVariant string `env:"STYLE"`
	MotionLevel  string `env:"MOTION"`
	MouseScope   string `env:"MOUSE"`
}

type ServerConfig struct {
	Addr           string   `env:"ADDR"`
	AllowedOrigins []string `env:"ORIGINS" envSeparator:","`
}

func DefaultConfig() Config {
	return Config{
		Catalog:         "dns",
		DurationSeconds: 600,
		UI: UIConfig{
			MotionLevel: "full",
			MouseScope:  "scoped",
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"*"},
		},
	}
}

// LoadConfig layers CTFDOJO_* environment variables over the defaults.
// Flags are applied by the caller afterwards and Validate runs last.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.Catalog = normalizeCatalogID(c.Catalog)
	if c.Catalog == "" {
		c.Catalog = "dns"
	}

	switch {
	case c.DurationSeconds == 0:
		c.DurationSeconds = 600
	case c.DurationSeconds < 0:
		return fmt.Errorf("invalid duration %ds", c.DurationSeconds)
	case c.DurationSeconds > 24*60*60:
		return fmt.Errorf("duration %ds exceeds one day", c.DurationSeconds)
	}

	switch c.UI.StyleVariant {
	case "", "modern_arcade", "cozy_clean", "retro_terminal":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	switch c.UI.MotionLevel {
	case "", "off", "reduced", "full":
	default:
		return fmt.Errorf("invalid ui motion level %q", c.UI.MotionLevel)
	}
	if c.UI.MotionLevel == "" {
		c.UI.MotionLevel = "full"
	}
	switch c.UI.MouseScope {
	case "", "off", "scoped", "full":
	default:
		return fmt.Errorf("invalid ui mouse scope %q", c.UI.MouseScope)
	}
	if c.UI.MouseScope == "" {
		c.UI.MouseScope = "scoped"
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	origins := c.Server.AllowedOrigins[:0:0]
	for _, o := range c.Server.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c.Server.AllowedOrigins = origins

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "ctfdojo")
	}
	return nil
}

func normalizeCatalogID(raw string) string {
	id := strings.ToLower(strings.TrimSpace(raw))
	switch id {
	case "egg", "easter", "easter_eggs":
		return "eggs"
	case "domain", "domains":
		return "dns"
	}
	return id
}
