package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries all runtime settings for the API binary.
type Config struct {
	Environment string `mapstructure:"environment"`
	ServiceName string `mapstructure:"service_name"`

	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"postgres"`

	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`

	Billing struct {
		TaxRate float64 `mapstructure:"tax_rate"`
	} `mapstructure:"billing"`

	RateLimit struct {
		AuthLimit  int           `mapstructure:"auth_limit"`
		AuthWindow time.Duration `mapstructure:"auth_window"`
	} `mapstructure:"rate_limit"`

	Observability struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
		OTLPProtocol string `mapstructure:"otlp_protocol"`
	} `mapstructure:"observability"`

	Bootstrap struct {
		EnsureDefaultAdmin bool `mapstructure:"ensure_default_admin"`
		SeedDemoLots       bool `mapstructure:"seed_demo_lots"`
	} `mapstructure:"bootstrap"`
}

// IsProduction reports whether the binary runs against production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// Load reads configuration from an optional file path plus OCELON_* env vars.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OCELON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "development")
	v.SetDefault("service_name", "ocelon-parking")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("billing.tax_rate", 0.16)
	v.SetDefault("rate_limit.auth_limit", 20)
	v.SetDefault("rate_limit.auth_window", time.Minute)
	v.SetDefault("observability.otlp_protocol", "http")
	v.SetDefault("bootstrap.ensure_default_admin", true)
	v.SetDefault("bootstrap.seed_demo_lots", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}
