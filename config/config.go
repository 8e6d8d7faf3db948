// Package config loads the pcs configuration.
//
// Values come from, in increasing priority: defaults, a YAML file, a .env file
// in the working directory and the process environment. Command line flags
// override the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no configuration file is given and it exists.
const DefaultFile = "pcs.yaml"

// Environment variables.
const (
	EnvConfigFile      = "PCS_CONFIG"
	EnvLedgerFile      = "PCS_LEDGER_FILE"
	EnvDatabase        = "PCS_DB"
	EnvDefaultCurrency = "PCS_DEFAULT_CURRENCY"
	EnvVerbose         = "PCS_VERBOSE"
	EnvLogLevel        = "PCS_LOG_LEVEL"
	EnvPriceFile       = "PCS_PRICE_FILE"
	EnvPriceURL        = "PCS_PRICE_URL"
	EnvPricePath       = "PCS_PRICE_PATH"
	EnvWebhook         = "PCS_WEBHOOK"
	// EnvDiscordWebhook is read when EnvWebhook is not set.
	EnvDiscordWebhook = "DISCORD_WEBHOOK"
)

type Config struct {
	// LedgerFile is the JSONL ledger, used when Database is empty.
	LedgerFile string `yaml:"ledger_file"`
	// Database is a SQLite ledger path.
	Database string `yaml:"database"`
	Currency string `yaml:"currency"`
	Logging  struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Prices struct {
		// File is a static YAML price list.
		File string `yaml:"file"`
		// URL and Path configure an HTTP quote API. URL contains "{symbol}".
		URL      string `yaml:"url"`
		Path     string `yaml:"path"`
		Currency string `yaml:"currency"`
		CacheDir string `yaml:"cache_dir"`
	} `yaml:"prices"`
	Notify struct {
		Webhook  string `yaml:"webhook"`
		Schedule string `yaml:"schedule"`
	} `yaml:"notify"`
}

func defaultConfig() Config {
	var c Config
	c.LedgerFile = "ledger.jsonl"
	c.Currency = "EUR"
	c.Logging.Level = "info"
	c.Logging.Pretty = true
	c.Prices.Path = "$.price"
	return c
}

// Load reads the configuration. An empty path means $PCS_CONFIG, then
// DefaultFile if it exists.
func Load(path string) (Config, error) {
	c := defaultConfig()

	// .env is optional.
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigFile)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultFile
	}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return c, fmt.Errorf("cannot read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("cannot parse config %q: %w", path, err)
		}
	}

	if v := os.Getenv(EnvLedgerFile); v != "" {
		c.LedgerFile = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvDefaultCurrency); v != "" {
		c.Currency = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v, err := strconv.ParseBool(os.Getenv(EnvVerbose)); err == nil && v {
		c.Logging.Level = "debug"
	}
	if v := os.Getenv(EnvPriceFile); v != "" {
		c.Prices.File = v
	}
	if v := os.Getenv(EnvPriceURL); v != "" {
		c.Prices.URL = v
	}
	if v := os.Getenv(EnvPricePath); v != "" {
		c.Prices.Path = v
	}
	// secrets only from env
	if v := os.Getenv(EnvWebhook); v != "" {
		c.Notify.Webhook = v
	} else if v := os.Getenv(EnvDiscordWebhook); v != "" && c.Notify.Webhook == "" {
		c.Notify.Webhook = v
	}
	c.Currency = strings.ToUpper(c.Currency)
	return c, nil
}

// Environ returns the configuration as environment variables, for child
// processes.
func (c Config) Environ() []string {
	return []string{
		EnvLedgerFile + "=" + c.LedgerFile,
		EnvDatabase + "=" + c.Database,
		EnvDefaultCurrency + "=" + c.Currency,
		EnvLogLevel + "=" + c.Logging.Level,
	}
}

// NewLogger builds the application logger.
func NewLogger(c Config) zerolog.Logger {
	var l zerolog.Logger
	if c.Logging.Pretty {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		l = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return l.Level(level)
}
