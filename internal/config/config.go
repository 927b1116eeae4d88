package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SHOPDATA"

type Config struct {
	Seed          int64  `mapstructure:"seed"`
	DataDir       string `mapstructure:"data-dir"`
	DBPath        string `mapstructure:"db"`
	QueriesFile   string `mapstructure:"queries"`
	DryRun        bool   `mapstructure:"dry-run"`
	LogLevel      string `mapstructure:"log-level"`
	ReferenceTime string `mapstructure:"reference-time"`
	Faker         bool   `mapstructure:"faker"`
	Addr          string `mapstructure:"addr"`

	Customers int `mapstructure:"customers"`
	Products  int `mapstructure:"products"`
	Orders    int `mapstructure:"orders"`
	Reviews   int `mapstructure:"reviews"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("seed", 42)
	v.SetDefault("data-dir", "data")
	v.SetDefault("db", "db/ecommerce.db")
	v.SetDefault("queries", "queries.sql")
	v.SetDefault("dry-run", false)
	v.SetDefault("log-level", "info")
	v.SetDefault("reference-time", "2025-01-01T00:00:00Z")
	v.SetDefault("faker", true)
	v.SetDefault("addr", ":8080")
	v.SetDefault("customers", 500)
	v.SetDefault("products", 200)
	v.SetDefault("orders", 1500)
	v.SetDefault("reviews", 800)
}

// Load merges defaults, .env, SHOPDATA_* variables and the flags defined on
// fs (nil is allowed). Flags win over the environment.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Customers < 0 || c.Products < 0 || c.Orders < 0 || c.Reviews < 0 {
		return errors.New("entity counts must not be negative")
	}
	if c.Orders > 0 && c.Customers == 0 {
		return errors.New("orders require at least one customer")
	}
	if c.Orders > 0 && c.Products == 0 {
		return errors.New("orders require at least one product")
	}
	if _, err := c.Reference(); err != nil {
		return err
	}
	return nil
}

// Reference is the instant all generated timestamps are measured back from.
func (c *Config) Reference() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.ReferenceTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("reference-time %q: %w", c.ReferenceTime, err)
	}
	return t.UTC(), nil
}
