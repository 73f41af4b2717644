package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"delta_bot/internal/helper"
	"delta_bot/pkg/tracing"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs"
	defaultConfigFile = "values_local.yaml"
)

// Config ...
type Config struct {
	Service struct {
		Name     string `mapstructure:"name"`
		LogLevel string `mapstructure:"log_level" validate:"required"`
		Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	} `mapstructure:"service"`

	Delta DeltaConfig `mapstructure:"delta"`

	Strategy struct {
		FastSpan   int `mapstructure:"fast_span" validate:"min=1"`
		SlowSpan   int `mapstructure:"slow_span" validate:"min=2"`
		MinCandles int `mapstructure:"min_candles" validate:"min=2"`
	} `mapstructure:"strategy"`

	Risk RiskConfig `mapstructure:"risk"`

	Engine EngineDefaults `mapstructure:"engine"`

	Ledger struct {
		Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
		// DSN is a file path for sqlite and a connection URL for postgres.
		DSN string `mapstructure:"dsn" validate:"required"`
	} `mapstructure:"ledger"`

	Telegram struct {
		Token  string `mapstructure:"token"`
		ChatID int64  `mapstructure:"chat_id"`
	} `mapstructure:"telegram"`

	Tracing tracing.Config `mapstructure:"tracing"`

	InstrumentsFile string `mapstructure:"instruments_file"`
}

type DeltaConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	WSURL     string        `mapstructure:"ws_url"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// RateLimit is requests per second against the REST API.
	RateLimit     float64       `mapstructure:"rate_limit" validate:"gt=0"`
	Burst         int           `mapstructure:"burst" validate:"min=1"`
	CandleLimit   int           `mapstructure:"candle_limit" validate:"min=2"`
	CandleRetries uint64        `mapstructure:"candle_retries"`
	TickerEnabled bool          `mapstructure:"ticker_enabled"`
	TickerMaxAge  time.Duration `mapstructure:"ticker_max_age"`
}

type RiskConfig struct {
	RiskPercent      float64 `mapstructure:"risk_percent" validate:"gt=0,lte=100"`
	StopLossPercent  float64 `mapstructure:"stop_loss_percent" validate:"gt=0,lt=100"`
	TargetPercent    float64 `mapstructure:"target_percent" validate:"gt=0"`
	MinBalance       float64 `mapstructure:"min_balance" validate:"gte=0"`
	StopFloorPercent float64 `mapstructure:"stop_floor_percent" validate:"gt=0"`
}

type EngineDefaults struct {
	Autostart    bool          `mapstructure:"autostart"`
	Symbols      []string      `mapstructure:"symbols" validate:"min=1,dive,required"`
	Interval     string        `mapstructure:"interval" validate:"required"`
	Balance      float64       `mapstructure:"balance" validate:"gte=0"`
	CycleSleep   time.Duration `mapstructure:"cycle_sleep" validate:"gt=0"`
	Cooldown     time.Duration `mapstructure:"cooldown" validate:"gt=0"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxPolls     int           `mapstructure:"max_polls" validate:"min=1"`
}

// env names kept from the original deployment.
var envBindings = map[string]string{
	"delta.base_url":         "DELTA_BASE_URL",
	"delta.api_key":          "DELTA_API_KEY",
	"delta.api_secret":       "DELTA_API_SECRET",
	"risk.risk_percent":      "DELTA_RISK_PERCENT",
	"risk.min_balance":       "MIN_BALANCE_TO_TRADE",
	"risk.stop_loss_percent": "STOP_LOSS_PERCENT",
	"risk.target_percent":    "TARGET_PERCENT",
	"ledger.dsn":             "DATABASE_DSN",
	"ledger.driver":          "LEDGER_DRIVER",
	"telegram.token":         "TELEGRAM_TOKEN",
	"telegram.chat_id":       "TELEGRAM_CHAT_ID",
	"service.port":           "PORT",
	"service.log_level":      "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "delta-engine")
	v.SetDefault("service.log_level", "info")
	v.SetDefault("service.port", 5000)

	v.SetDefault("delta.base_url", "https://api.delta.exchange")
	v.SetDefault("delta.ws_url", "wss://socket.delta.exchange")
	v.SetDefault("delta.timeout", "10s")
	v.SetDefault("delta.rate_limit", 5.0)
	v.SetDefault("delta.burst", 5)
	v.SetDefault("delta.candle_limit", 60)
	v.SetDefault("delta.candle_retries", 2)
	v.SetDefault("delta.ticker_enabled", false)
	v.SetDefault("delta.ticker_max_age", "10s")

	v.SetDefault("strategy.fast_span", 9)
	v.SetDefault("strategy.slow_span", 15)
	v.SetDefault("strategy.min_candles", 2)

	v.SetDefault("risk.risk_percent", 1.0)
	v.SetDefault("risk.stop_loss_percent", 1.0)
	v.SetDefault("risk.target_percent", 2.0)
	v.SetDefault("risk.min_balance", 250.0)
	v.SetDefault("risk.stop_floor_percent", 1.0)

	v.SetDefault("engine.autostart", false)
	v.SetDefault("engine.symbols", []string{"ETHUSD"})
	v.SetDefault("engine.interval", "5m")
	v.SetDefault("engine.balance", 300.0)
	v.SetDefault("engine.cycle_sleep", "6s")
	v.SetDefault("engine.cooldown", "6s")
	v.SetDefault("engine.poll_interval", "5s")
	v.SetDefault("engine.max_polls", 24)

	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.dsn", "trades.db")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)

	v.SetDefault("instruments_file", filepath.Join(configDir, "instruments.yaml"))
}

// Load reads path (when it exists), applies defaults and env overrides and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	for i, s := range cfg.Engine.Symbols {
		cfg.Engine.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	if norm, ok := helper.NormInterval(cfg.Engine.Interval); ok {
		cfg.Engine.Interval = norm
	} else {
		return nil, fmt.Errorf("invalid config: unsupported interval %q", cfg.Engine.Interval)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Strategy.FastSpan >= c.Strategy.SlowSpan {
		return fmt.Errorf("invalid config: fast_span %d must be below slow_span %d",
			c.Strategy.FastSpan, c.Strategy.SlowSpan)
	}
	return nil
}

func NewConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = defaultConfigFile
	}
	return Load(filepath.Join(configDir, configFileName))
}
