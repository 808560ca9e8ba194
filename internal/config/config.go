package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	dominv "github.com/Zhima-Mochi/minishop-stock/internal/domain/inventory"
)

// Config is the process configuration, read from env vars and an optional file.
type Config struct {
	App       AppConfig
	Log       LogConfig
	Inventory InventoryConfig
	Pipeline  PipelineConfig
	Bus       BusConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	ServiceName string
	Env         string
}

type LogConfig struct {
	Level string
	File  string
}

type InventoryConfig struct {
	DefaultWarehouse string
	// Seed is the initial stock per key.
	Seed map[dominv.Key]int
}

type PipelineConfig struct {
	// Order is the raw guard list, outermost first. Empty means the default
	// order; "none" runs deductions against the bare service.
	Order             string
	IdempotencyPolicy string
	// LockTimeout of zero waits until the holder finishes.
	LockTimeout time.Duration
	// LockTableMaxIdle of zero keeps every lock entry.
	LockTableMaxIdle int
}

type BusConfig struct {
	QueueSize      int
	Concurrency    int
	HandlerTimeout time.Duration
}

type TelemetryConfig struct {
	MetricsAddr    string
	OTELEndpoint   string
	OTELAuthHeader string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "minishop-stock")
	v.SetDefault("ENV", "dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("DEFAULT_WAREHOUSE", "WH2")
	v.SetDefault("STOCK_SEED", "WH1:SKU1=10,WH2:SKU1=100")
	v.SetDefault("PIPELINE_ORDER", "")
	v.SetDefault("IDEMPOTENCY_POLICY", "accept")
	v.SetDefault("LOCK_TIMEOUT", "0s")
	v.SetDefault("LOCK_TABLE_MAX_IDLE", 0)
	v.SetDefault("BUS_QUEUE_SIZE", 1024)
	v.SetDefault("BUS_CONCURRENCY", 8)
	v.SetDefault("BUS_HANDLER_TIMEOUT", "5s")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("OTEL_AUTH_HEADER", "")
}

// Load reads the configuration. Env vars take precedence over CONFIG_FILE,
// which takes precedence over defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	seed, err := ParseSeed(v.GetString("STOCK_SEED"))
	if err != nil {
		return nil, err
	}
	lockTimeout, err := duration(v, "LOCK_TIMEOUT")
	if err != nil {
		return nil, err
	}
	handlerTimeout, err := duration(v, "BUS_HANDLER_TIMEOUT")
	if err != nil {
		return nil, err
	}
	maxIdle, err := nonNegativeInt(v, "LOCK_TABLE_MAX_IDLE")
	if err != nil {
		return nil, err
	}
	queueSize, err := nonNegativeInt(v, "BUS_QUEUE_SIZE")
	if err != nil {
		return nil, err
	}
	concurrency, err := nonNegativeInt(v, "BUS_CONCURRENCY")
	if err != nil {
		return nil, err
	}

	return &Config{
		App: AppConfig{
			ServiceName: v.GetString("SERVICE_NAME"),
			Env:         v.GetString("ENV"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
		Inventory: InventoryConfig{
			DefaultWarehouse: strings.TrimSpace(v.GetString("DEFAULT_WAREHOUSE")),
			Seed:             seed,
		},
		Pipeline: PipelineConfig{
			Order:             v.GetString("PIPELINE_ORDER"),
			IdempotencyPolicy: v.GetString("IDEMPOTENCY_POLICY"),
			LockTimeout:       lockTimeout,
			LockTableMaxIdle:  maxIdle,
		},
		Bus: BusConfig{
			QueueSize:      queueSize,
			Concurrency:    concurrency,
			HandlerTimeout: handlerTimeout,
		},
		Telemetry: TelemetryConfig{
			MetricsAddr:    v.GetString("METRICS_ADDR"),
			OTELEndpoint:   v.GetString("OTEL_ENDPOINT"),
			OTELAuthHeader: v.GetString("OTEL_AUTH_HEADER"),
		},
	}, nil
}

// ParseSeed reads "WH1:SKU1=10,WH2:SKU1=100". A key listed twice keeps the last value.
func ParseSeed(s string) (map[dominv.Key]int, error) {
	seed := make(map[dominv.Key]int)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		rawKey, rawQty, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("config: STOCK_SEED entry %q: missing '='", entry)
		}
		key, err := dominv.ParseKey(strings.TrimSpace(rawKey))
		if err != nil {
			return nil, fmt.Errorf("config: STOCK_SEED entry %q: %w", entry, err)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(rawQty))
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("config: STOCK_SEED entry %q: quantity must be a non-negative integer", entry)
		}
		seed[key] = qty
	}
	return seed, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", key)
	}
	return d, nil
}

func nonNegativeInt(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("config: %s must be a non-negative integer, got %q", key, raw)
	}
	return n, nil
}
