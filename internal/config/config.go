package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable the loader reads, e.g. SCRATCH_SESSION_ID.
const EnvPrefix = "SCRATCH_"

// Config represents the scratchctl configuration
type Config struct {
	Session struct {
		ID           string `koanf:"id"`
		RequireLogin bool   `koanf:"require_login"`
	} `koanf:"session"`

	HTTP struct {
		UserAgent      string        `koanf:"user_agent"`
		APIBaseURL     string        `koanf:"api_base_url"`
		SiteBaseURL    string        `koanf:"site_base_url"`
		Timeout        time.Duration `koanf:"timeout"`
		RefreshTimeout time.Duration `koanf:"refresh_timeout"`
	} `koanf:"http"`

	RateLimit struct {
		RequestsPerMinute float64 `koanf:"requests_per_minute"`
		Burst             int     `koanf:"burst"`
	} `koanf:"ratelimit"`

	Listing struct {
		PageSize int `koanf:"page_size"`
		Limit    int `koanf:"limit"`
	} `koanf:"listing"`

	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

var defaults = map[string]interface{}{
	"http.user_agent":               "scratchctl/0.1",
	"http.api_base_url":             "https://api.scratch.mit.edu/",
	"http.site_base_url":            "https://scratch.mit.edu/",
	"http.timeout":                  "30s",
	"http.refresh_timeout":          "10s",
	"ratelimit.requests_per_minute": 60,
	"ratelimit.burst":               10,
	"listing.page_size":             40,
	"listing.limit":                 40,
	"log.level":                     "warn",
}

// DefaultPaths are tried in order when Load is given no path.
var DefaultPaths = []string{"./scratchctl.toml", "$HOME/.scratchctl.toml"}

// Load builds the configuration from defaults, then the TOML file at configPath (or the first of
// DefaultPaths that exists), then SCRATCH_-prefixed environment variables.
//
// Environment keys map onto sections by their first underscore: SCRATCH_HTTP_USER_AGENT sets
// http.user_agent and SCRATCH_SESSION_ID sets session.id.
func Load(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		for _, path := range DefaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
					return nil, fmt.Errorf("error loading config %s: %w", path, err)
				}
				break
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if config.Session.RequireLogin && config.Session.ID == "" {
		return fmt.Errorf("session.id is required when session.require_login is set")
	}
	if config.HTTP.Timeout < 0 || config.HTTP.RefreshTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	if config.RateLimit.RequestsPerMinute < 0 || config.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values cannot be negative")
	}
	if config.Listing.PageSize < 1 || config.Listing.PageSize > 40 {
		return fmt.Errorf("listing.page_size must be between 1 and 40")
	}
	if config.Listing.Limit < 0 {
		return fmt.Errorf("listing.limit cannot be negative")
	}
	if _, err := ParseLevel(config.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name onto slog. The empty string means warn.
func ParseLevel(level string) (slog.Level, error) {
	if level == "" {
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", level, err)
	}
	return l, nil
}

// InitConfig writes a sample configuration file. It refuses to overwrite an existing one.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# scratchctl configuration

[session]
# Value of the scratchsessionsid cookie. Leave empty for anonymous access.
id = ""
require_login = false

[http]
user_agent = "scratchctl/0.1"
timeout = "30s"
refresh_timeout = "10s"

[ratelimit]
requests_per_minute = 60
burst = 10

[listing]
page_size = 40
limit = 40

[log]
level = "warn"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0600)
}
