// This file defines the configuration structure for the application.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Host struct {
		// Root is the host installation directory; wp-config.php is
		// looked up here and one level above it.
		Root string `mapstructure:"root"`
		// AdminURL prefixes the settings link, e.g. "https://example.com/wp-admin/".
		AdminURL string `mapstructure:"admin_url"`
	} `mapstructure:"host"`
	Recipient struct {
		Default string `mapstructure:"default"`
	} `mapstructure:"recipient"`
	Plugin struct {
		Basename string `mapstructure:"basename"`
		Slug     string `mapstructure:"slug"`
		Version  string `mapstructure:"version"`
		Homepage string `mapstructure:"homepage"`
		Author   string `mapstructure:"author"`
	} `mapstructure:"plugin"`
	Update struct {
		Source             string `mapstructure:"source"`
		URL                string `mapstructure:"url"`
		TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
		CacheHours         int    `mapstructure:"cache_hours"`
		CheckIntervalHours int    `mapstructure:"check_interval_hours"`
	} `mapstructure:"update"`
	API struct {
		TokenHash string `mapstructure:"token_hash"`

		// AdminRate and AdminBurst limit admin requests per client IP.
		AdminRate  float64 `mapstructure:"admin_rate"`
		AdminBurst int     `mapstructure:"admin_burst"`
	} `mapstructure:"api"`
	Log struct {
		Level      string `mapstructure:"level"`
		Format     string `mapstructure:"format"`
		File       string `mapstructure:"file"`
		MaxSize    int    `mapstructure:"max_size"`
		MaxAge     int    `mapstructure:"max_age"`
		MaxBackups int    `mapstructure:"max_backups"`
		Compress   bool   `mapstructure:"compress"`
	} `mapstructure:"log"`
}

const (
	minFetchTimeout = 10 * time.Second
	maxFetchTimeout = 15 * time.Second
)

// FetchTimeout returns the descriptor fetch timeout clamped to 10..15 seconds.
func (c *Config) FetchTimeout() time.Duration {
	d := time.Duration(c.Update.TimeoutSeconds) * time.Second
	if d < minFetchTimeout {
		return minFetchTimeout
	}
	if d > maxFetchTimeout {
		return maxFetchTimeout
	}
	return d
}

// CacheTTL returns how long a fetched release descriptor stays fresh.
func (c *Config) CacheTTL() time.Duration {
	if c.Update.CacheHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.Update.CacheHours) * time.Hour
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("database.path", "./techmail.db")
	v.SetDefault("host.root", "./")
	v.SetDefault("host.admin_url", "")
	v.SetDefault("recipient.default", "sinan@tio.studio")
	v.SetDefault("plugin.basename", "technical-email/technical-email.php")
	v.SetDefault("plugin.slug", "technical-email")
	v.SetDefault("plugin.version", "1.0.0")
	v.SetDefault("plugin.homepage", "https://tio.studio")
	v.SetDefault("plugin.author", "Tio Yazilim")
	v.SetDefault("update.source", "json")
	v.SetDefault("update.url", "https://tio.studio/pluginservis/technical-email.json")
	v.SetDefault("update.timeout_seconds", 10)
	v.SetDefault("update.cache_hours", 12)
	v.SetDefault("update.check_interval_hours", 0)
	v.SetDefault("api.token_hash", "")
	v.SetDefault("api.admin_rate", 5.0)
	v.SetDefault("api.admin_burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.compress", false)
}

// Default returns a Config populated only from defaults. Useful in tests
// and for tools that run without a config file.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode cleanly.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit search directory. A .env file in dir,
// if present, is loaded into the environment first.
func LoadFrom(dir string) (*Config, error) {
	// Missing .env is fine; existing variables win over its values.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(dir)

	// e.g., TECHMAIL_UPDATE_URL will override the `update.url` key.
	v.SetEnvPrefix("TECHMAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
