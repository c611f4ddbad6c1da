package configs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/songzhibin97/riskladder/internal/risk"
)

const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

	RegimeSourceIndicator = "indicator"
	RegimeSourceLLM       = "llm"

	DefaultStatePath = "risk_configs/adaptive_risk_config.json"
)

type Config struct {
	// 基础配置
	Symbols         []string `json:"symbols" yaml:"symbols"`                   // 监控的交易对
	RefreshInterval string   `json:"refresh_interval" yaml:"refresh_interval"` // 数据刷新间隔

	// 风险控制参数
	Risk RiskConfig `json:"risk" yaml:"risk"`

	Database Database      `json:"database" yaml:"database"`
	SQLite   SQLiteConfig  `json:"sqlite" yaml:"sqlite"`
	Redis    RedisConfig   `json:"redis" yaml:"redis"`
	Journal  JournalConfig `json:"journal" yaml:"journal"`

	// 市场状态识别
	Regime RegimeConfig `json:"regime" yaml:"regime"`

	// AI 模型参数
	AIConfig AIConfig `json:"ai_config" yaml:"ai_config"`

	// 交易所配置
	ExchangeConfig ExchangeConfig `json:"exchange_config" yaml:"exchange_config"`

	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
}

type RiskConfig struct {
	StateStore      string  `json:"state_store" yaml:"state_store"`           // file/memory/sqlite/postgres/redis
	StatePath       string  `json:"state_path" yaml:"state_path"`             // file store 路径
	StateName       string  `json:"state_name" yaml:"state_name"`             // 数据库中的状态键
	Tier            string  `json:"tier" yaml:"tier"`                         // low/medium/high/extremely_high
	AccountBalance  float64 `json:"account_balance" yaml:"account_balance"`   // 仓位监控用的账户余额
	MonitorInterval string  `json:"monitor_interval" yaml:"monitor_interval"` // 持仓检查间隔
}

type Database struct {
	ConnStr string `json:"conn_str" yaml:"conn_str"` // 数据库连接字符串
}

type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

type JournalConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DBPath  string `json:"db_path" yaml:"db_path"`
}

type RegimeConfig struct {
	Source   string `json:"source" yaml:"source"`     // indicator 或 llm
	Symbol   string `json:"symbol" yaml:"symbol"`     // 参考币种，通常 BTCUSDT
	Interval string `json:"interval" yaml:"interval"` // K线周期
	Lookback int    `json:"lookback" yaml:"lookback"` // K线数量
}

type AIConfig struct {
	Provider  string `json:"provider" yaml:"provider"`     // openai 或 deepseek
	APIKey    string `json:"api_key" yaml:"api_key"`       // AI服务API密钥
	ModelType string `json:"model_type" yaml:"model_type"` // AI模型类型
	BaseURL   string `json:"base_url" yaml:"base_url"`
	Timeout   string `json:"timeout" yaml:"timeout"`
}

type ExchangeConfig struct {
	Debug     bool   `json:"debug" yaml:"debug"`
	APIKey    string `json:"api_key" yaml:"api_key"`       // 交易所API密钥
	SecretKey string `json:"secret_key" yaml:"secret_key"` // 交易所密钥
	Proxy     string `json:"proxy" yaml:"proxy"`
}

type LogConfig struct {
	Level     string `json:"level" yaml:"level"`   // debug/info/warn/error
	Format    string `json:"format" yaml:"format"` // json 或 text
	AddSource bool   `json:"add_source" yaml:"add_source"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

// Default returns a configuration that works without any file
func Default() *Config {
	return &Config{
		Symbols:         []string{"BTCUSDT"},
		RefreshInterval: "1m",
		Risk: RiskConfig{
			StateStore:      StoreFile,
			StatePath:       DefaultStatePath,
			StateName:       "default",
			Tier:            string(risk.TierMedium),
			MonitorInterval: "15s",
		},
		SQLite:  SQLiteConfig{Path: "risk_configs/riskladder.db"},
		Redis:   RedisConfig{Addr: "localhost:6379", KeyPrefix: "riskladder:state"},
		Journal: JournalConfig{DBPath: "risk_configs/journal.db"},
		Regime: RegimeConfig{
			Source:   RegimeSourceIndicator,
			Symbol:   "BTCUSDT",
			Interval: "1h",
			Lookback: 100,
		},
		AIConfig: AIConfig{
			Provider:  "openai",
			ModelType: "gpt-4o-mini",
			Timeout:   "30s",
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}

// Load reads path (YAML first, JSON fallback) over Default(), then applies
// .env and environment overrides and validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			cfg = Default()
			if jerr := json.Unmarshal(data, cfg); jerr != nil {
				return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
			}
		}
	}

	// .env 不存在时忽略
	_ = godotenv.Load()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides secrets and endpoints from the environment
func (c *Config) ApplyEnv() {
	c.ExchangeConfig.APIKey = getEnvOrDefault("BINANCE_API_KEY", c.ExchangeConfig.APIKey)
	c.ExchangeConfig.SecretKey = getEnvOrDefault("BINANCE_SECRET_KEY", c.ExchangeConfig.SecretKey)
	c.ExchangeConfig.Debug = getEnvBoolOrDefault("BINANCE_TESTNET", c.ExchangeConfig.Debug)
	c.Risk.StatePath = getEnvOrDefault("RISK_STATE_PATH", c.Risk.StatePath)
	c.Risk.StateStore = getEnvOrDefault("RISK_STATE_STORE", c.Risk.StateStore)
	c.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Database.ConnStr = getEnvOrDefault("POSTGRES_DSN", c.Database.ConnStr)
	c.AIConfig.APIKey = getEnvOrDefault("OPENAI_API_KEY", c.AIConfig.APIKey)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	switch c.Risk.StateStore {
	case StoreFile:
		if c.Risk.StatePath == "" {
			return fmt.Errorf("risk.state_path is required for the file store")
		}
	case StoreMemory:
	case StoreSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required for the sqlite store")
		}
	case StorePostgres:
		if c.Database.ConnStr == "" {
			return fmt.Errorf("database.conn_str is required for the postgres store")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown risk.state_store %q", c.Risk.StateStore)
	}

	if c.Risk.StateStore != StoreFile && c.Risk.StateName == "" {
		return fmt.Errorf("risk.state_name is required")
	}
	if _, err := risk.ParseRiskTier(c.Risk.Tier); err != nil {
		return fmt.Errorf("risk.tier: %w", err)
	}
	if c.Risk.AccountBalance < 0 {
		return fmt.Errorf("risk.account_balance must not be negative")
	}

	if c.Journal.Enabled && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required when the journal is enabled")
	}

	switch c.Regime.Source {
	case RegimeSourceIndicator:
	case RegimeSourceLLM:
		if c.AIConfig.APIKey == "" {
			return fmt.Errorf("ai_config.api_key is required for the llm regime source")
		}
	default:
		return fmt.Errorf("unknown regime.source %q", c.Regime.Source)
	}
	if c.Regime.Lookback < 20 {
		return fmt.Errorf("regime.lookback must be at least 20")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// RefreshDuration falls back to 10s when refresh_interval is unset or invalid
func (c *Config) RefreshDuration() time.Duration {
	return parseDurationOr(c.RefreshInterval, 10*time.Second)
}

func (c *Config) MonitorDuration() time.Duration {
	return parseDurationOr(c.Risk.MonitorInterval, 15*time.Second)
}

func (c *AIConfig) TimeoutDuration() time.Duration {
	return parseDurationOr(c.Timeout, 30*time.Second)
}

// SlogLevel returns the configured level, info when unset
func (c LogConfig) SlogLevel() slog.Level {
	level, err := parseLevel(c.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log.level %q", s)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
