package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger         `mapstructure:"logger"`
	DB        Database       `mapstructure:"database"`
	API       API            `mapstructure:"api"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Alpaca    Alpaca         `mapstructure:"alpaca"`
	Cache     Cache          `mapstructure:"cache"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
	Trading   Trading        `mapstructure:"trading"`
	Security  Security       `mapstructure:"security"`
}

// Security holds the key material for broker credential storage.
type Security struct {
	// EncryptionKey is a base64-encoded 32-byte AES key used to decrypt
	// stored broker secrets.
	EncryptionKey string `mapstructure:"encryption_key"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type Scheduler struct {
	TickInterval         time.Duration `mapstructure:"tick_interval"`
	BarHistoryDays       int           `mapstructure:"bar_history_days"`
	MinBarsRequired      int           `mapstructure:"min_bars_required"`
	MinExecutionStrength float64       `mapstructure:"min_execution_strength"`
	MaxConsecutiveErrors int           `mapstructure:"max_consecutive_errors"`
	AssumedPortfolio     float64       `mapstructure:"assumed_portfolio"`
}

type Alpaca struct {
	DataBaseURL      string        `mapstructure:"data_base_url"`
	BrokerBaseURL    string        `mapstructure:"broker_base_url"`
	APIKey           string        `mapstructure:"api_key"`
	APISecret        string        `mapstructure:"api_secret"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRequestPerMin int           `mapstructure:"max_request_per_min"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBaseBackoff time.Duration `mapstructure:"retry_base_backoff"`
	RetryMaxBackoff  time.Duration `mapstructure:"retry_max_backoff"`
	PriceCacheTTL    time.Duration `mapstructure:"price_cache_ttl"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type TelegramConfig struct {
	Enabled                   bool          `mapstructure:"enabled"`
	BotToken                  string        `mapstructure:"bot_token"`
	ChatID                    int64         `mapstructure:"chat_id"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
	SendTimeout               time.Duration `mapstructure:"send_timeout"`
}

type Trading struct {
	DefaultStartingBalance float64 `mapstructure:"default_starting_balance"`
	MaxOrderValue          float64 `mapstructure:"max_order_value"`
	MaxDailyLoss           float64 `mapstructure:"max_daily_loss"`
	RiskPerTradePct        float64 `mapstructure:"risk_per_trade_pct"`
}

func Load() (*Config, error) {
	// .env is optional, deployments rely on real environment variables
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 8080)

	viper.SetDefault("scheduler.tick_interval", time.Minute)
	viper.SetDefault("scheduler.bar_history_days", 30)
	viper.SetDefault("scheduler.min_bars_required", 30)
	viper.SetDefault("scheduler.min_execution_strength", 0.6)
	viper.SetDefault("scheduler.max_consecutive_errors", 1)
	viper.SetDefault("scheduler.assumed_portfolio", 100000)

	viper.SetDefault("alpaca.data_base_url", "https://data.alpaca.markets")
	viper.SetDefault("alpaca.broker_base_url", "https://paper-api.alpaca.markets")
	viper.SetDefault("alpaca.timeout", 15*time.Second)
	viper.SetDefault("alpaca.max_request_per_min", 200)
	viper.SetDefault("alpaca.max_retries", 3)
	viper.SetDefault("alpaca.retry_base_backoff", 2*time.Second)
	viper.SetDefault("alpaca.retry_max_backoff", 10*time.Second)
	viper.SetDefault("alpaca.price_cache_ttl", 5*time.Second)
	viper.SetDefault("alpaca.batch_concurrency", 5)

	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)

	viper.SetDefault("telegram.max_global_request_per_second", 30)
	viper.SetDefault("telegram.send_timeout", 10*time.Second)

	viper.SetDefault("trading.default_starting_balance", 100000)
	viper.SetDefault("trading.max_order_value", 50000)
	viper.SetDefault("trading.max_daily_loss", 5000)
	viper.SetDefault("trading.risk_per_trade_pct", 0.02)
}
