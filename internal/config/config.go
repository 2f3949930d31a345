package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// BackendConfig has no timeout knob: every call is bounded by the API client's fixed 30s.
type BackendConfig struct {
	Endpoint  string
	RateLimit float64
	Burst     int
}

type IdentityConfig struct {
	URL             string
	AnonKey         string
	AutoRefresh     bool
	RefreshInterval time.Duration
	RefreshMargin   time.Duration
}

type PaymentConfig struct {
	SuccessURL string
	CancelURL  string
}

type StorageConfig struct {
	Driver     string
	Path       string
	Passphrase string
	KeyPrefix  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CallbackConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level string
}

type AppConfig struct {
	Environment string
	AppOrigin   string
	Backend     BackendConfig
	Identity    IdentityConfig
	Payment     PaymentConfig
	Storage     StorageConfig
	Redis       RedisConfig
	Callback    CallbackConfig
	Logging     LoggingConfig
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("clinicbook")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.clinicbook")

	v.SetEnvPrefix("CLINICBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first missing start-time value.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Backend.Endpoint) == "" {
		return errors.New("backend.endpoint is required")
	}
	if strings.TrimSpace(c.Identity.URL) == "" || strings.TrimSpace(c.Identity.AnonKey) == "" {
		return errors.New("missing identity provider url or anon key")
	}
	switch c.Storage.Driver {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	return nil
}

// CallbackAddress is the host:port the payment redirect listener binds to.
func (c *AppConfig) CallbackAddress() string {
	return fmt.Sprintf("%s:%d", c.Callback.Host, c.Callback.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("apporigin", "http://127.0.0.1:5173")

	// Environment-only values still need a key registered for AutomaticEnv to bind them on Unmarshal.
	v.SetDefault("backend.endpoint", "")
	v.SetDefault("backend.ratelimit", 0)
	v.SetDefault("backend.burst", 1)

	v.SetDefault("identity.url", "")
	v.SetDefault("identity.anonkey", "")
	v.SetDefault("identity.autorefresh", true)
	v.SetDefault("identity.refreshinterval", "30s")
	v.SetDefault("identity.refreshmargin", "60s")

	v.SetDefault("payment.successurl", "http://127.0.0.1:8787/payment-success")
	v.SetDefault("payment.cancelurl", "http://127.0.0.1:8787/payment-cancel")

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", "$HOME/.clinicbook/state.json")
	v.SetDefault("storage.passphrase", "")
	v.SetDefault("storage.keyprefix", "clinicbook:")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("callback.host", "127.0.0.1")
	v.SetDefault("callback.port", 8787)
	v.SetDefault("callback.readtimeout", "10s")
	v.SetDefault("callback.writetimeout", "10s")
	v.SetDefault("callback.idletimeout", "60s")

	v.SetDefault("logging.level", "info")
}
