package server

import (
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/emberforge/embercore"
	goccy "github.com/goccy/go-json"
)

const configFile = "config.json"

// Duration marshals as a human-readable string ("3s") in the config
// file.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return goccy.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw string
	if err := goccy.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Dir string `json:"-" env:"EMBERCORE_DIR"`

	DefaultBalance string `json:"default_balance" env:"EMBERCORE_DEFAULT_BALANCE"`
	CurrencySymbol string `json:"currency_symbol" env:"EMBERCORE_CURRENCY_SYMBOL"`
	SymbolSuffix   bool   `json:"symbol_suffix"`
	SymbolSpace    bool   `json:"symbol_space"`
	DecimalPlaces  int    `json:"decimal_places"`
	ThousandsSep   string `json:"thousands_separator"`

	Workers        int                 `json:"workers" env:"EMBERCORE_WORKERS"`
	TeleportWarmup Duration            `json:"teleport_warmup"`
	Cooldowns      map[string]Duration `json:"cooldowns"`

	LogFile       string `json:"log_file" env:"EMBERCORE_LOG_FILE"`
	LogMaxSizeMB  int    `json:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups"`
}

func DefaultConfig() Config {
	return Config{
		Dir:            filepath.Join(os.Getenv("HOME"), ".embercore"),
		DefaultBalance: "100.00",
		CurrencySymbol: "$",
		DecimalPlaces:  2,
		ThousandsSep:   ",",
		Workers:        4,
		TeleportWarmup: Duration(3 * time.Second),
		Cooldowns: map[string]Duration{
			"heal": Duration(time.Minute),
			"mail": Duration(5 * time.Second),
			"gift": Duration(30 * time.Second),
		},
		LogMaxSizeMB:  50,
		LogMaxBackups: 5,
	}
}

// LoadConfig reads the config file under dir, writing the default one on
// first run, then applies environment overrides.
func LoadConfig(dir string) (Config, error) {
	config := DefaultConfig()
	config.Dir = dir
	path := filepath.Join(dir, configFile)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return config, embercore.WithStack(err)
		}
		b, err := goccy.MarshalIndent(config, "", "  ")
		if err != nil {
			return config, embercore.WithStack(err)
		}
		if err := os.WriteFile(path, b, 0600); err != nil {
			return config, embercore.WithStack(err)
		}
	} else if err != nil {
		return config, embercore.WithStack(err)
	} else if err := goccy.Unmarshal(b, &config); err != nil {
		return config, embercore.WithStack(err)
	}
	if err := env.Parse(&config); err != nil {
		return config, embercore.WithStack(err)
	}
	return config, nil
}

// Cooldown returns the configured duration for a gated feature, 0 when
// the feature is ungated.
func (c Config) Cooldown(feature string) time.Duration {
	return time.Duration(c.Cooldowns[feature])
}
