package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Carrefour CarrefourConfig `mapstructure:"carrefour"`
	PXMart    PXMartConfig    `mapstructure:"pxmart"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
}

// CrawlConfig holds traversal and export settings shared by all sources
type CrawlConfig struct {
	OutputDir string   `mapstructure:"output_dir"`
	Denylist  []string `mapstructure:"denylist"` // Level 1 category names that are never crawled
}

// HTTPConfig holds per-backend session settings
type HTTPConfig struct {
	BaseURL              string   `mapstructure:"base_url"`
	Timeout              int      `mapstructure:"timeout"`
	MaxRequestsPerSecond int      `mapstructure:"max_requests_per_second"`
	Proxies              []string `mapstructure:"proxies"`
}

// CarrefourConfig holds the HTML storefront configuration
type CarrefourConfig struct {
	HTTPConfig `mapstructure:",squash"`
	Language   string `mapstructure:"language"`
	Channel    string `mapstructure:"channel"`
}

// PXMartConfig holds the JSON API configuration
type PXMartConfig struct {
	HTTPConfig  `mapstructure:",squash"`
	Channel     string `mapstructure:"channel"`
	ChannelCode int    `mapstructure:"channel_code"`
	ShopNo      string `mapstructure:"shop_no"`
	PageSize    int    `mapstructure:"page_size"`

	// Authentication
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // sqlite or postgres
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`

	ConsumerGroup string `mapstructure:"consumer_group"` // Group reading the price change stream
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the Postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// Load loads configuration from YAML with .env and environment variable overrides.
// An empty path searches config.yaml in the current directory; a missing file
// there is not an error, defaults and environment still apply.
func Load(path string) (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.output_dir", "./output")
	v.SetDefault("crawl.denylist", []string{"好康主題"})

	v.SetDefault("carrefour.base_url", "https://online.carrefour.com.tw")
	v.SetDefault("carrefour.timeout", 10)
	v.SetDefault("carrefour.max_requests_per_second", 2)
	v.SetDefault("carrefour.language", "zh")
	v.SetDefault("carrefour.channel", "家樂福")

	v.SetDefault("pxmart.base_url", "https://mwebapi.pxgo.com.tw/api")
	v.SetDefault("pxmart.timeout", 10)
	v.SetDefault("pxmart.max_requests_per_second", 2)
	v.SetDefault("pxmart.channel", "全聯")
	v.SetDefault("pxmart.channel_code", 1)
	v.SetDefault("pxmart.shop_no", "025700")
	v.SetDefault("pxmart.page_size", 100)
	v.SetDefault("pxmart.username", "")
	v.SetDefault("pxmart.password", "")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/product.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "pricescout")
	v.SetDefault("database.user", "pricescout")
	v.SetDefault("database.password", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.consumer_group", "pricescout")

	v.SetDefault("log.level", "info")
}
