package config

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const defaultCfgFile = "config.toml"

var (
	BackoffMaxElapsedTime time.Duration                = 5 * time.Minute
	ShutdownTimeout       time.Duration                = 10 * time.Second
	GlobalConfigCallback  ConfigCallback[GlobalConfig] = ConfigCallback[GlobalConfig]{}
	CfgFlag                                            = flag.String("config", defaultCfgFile, "Configuration file (toml format)")
)

func init() {
	GlobalConfigCallback.AddCallback(func(config GlobalConfig) {
		tCfg := config.TimeoutConfig()

		if tCfg.BackoffMaxElapsedTimeSeconds != nil {
			BackoffMaxElapsedTime = time.Duration(*tCfg.BackoffMaxElapsedTimeSeconds) * time.Second
		}

		if tCfg.ShutdownTimeoutMillis > 0 {
			ShutdownTimeout = time.Duration(tCfg.ShutdownTimeoutMillis) * time.Millisecond
		}
	})
}

type GlobalConfig interface {
	LoggerConfig() LoggerConfig
	DBConfig() DBConfig
	TimeoutConfig() TimeoutConfig
}

type Config struct {
	DB      DBConfig      `toml:"db"`
	Logger  LoggerConfig  `toml:"logger"`
	Syncer  SyncerConfig  `toml:"syncer"`
	Timeout TimeoutConfig `toml:"timeout"`
}

type LoggerConfig struct {
	Level       string `toml:"level"` // valid values are: DEBUG, INFO, WARN, ERROR, DPANIC, PANIC, FATAL (zap)
	File        string `toml:"file"`
	MaxFileSize int    `toml:"max_file_size"` // In megabytes
	Console     bool   `toml:"console"`
}

type DBConfig struct {
	LogQueries bool `toml:"log_queries"`
}

type SyncerConfig struct {
	Exchange       string `toml:"exchange"`
	ListStatus     string `toml:"list_status"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type TimeoutConfig struct {
	BackoffMaxElapsedTimeSeconds *int `toml:"backoff_max_elapsed_time_seconds"`
	ShutdownTimeoutMillis        int  `toml:"shutdown_timeout_millis"`
}

func newDefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{Level: "INFO", Console: true},
		Syncer: SyncerConfig{ListStatus: "L", TimeoutSeconds: 30},
	}
}

// BuildConfig reads the toml configuration file. The default file is optional
// since credentials come from the environment; an explicitly flagged file that
// does not exist is still an error.
func BuildConfig() (*Config, error) {
	cfgFileName := *CfgFlag

	cfg := newDefaultConfig()
	err := parseConfigFile(cfg, cfgFileName)
	if err != nil {
		if cfgFileName == defaultCfgFile && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return nil, err
	}

	return cfg, nil
}

func parseConfigFile(cfg *Config, fileName string) error {
	content, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("error opening config file: %w", err)
	}

	_, err = toml.Decode(string(content), cfg)
	if err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

func (c Config) LoggerConfig() LoggerConfig {
	return c.Logger
}

func (c Config) DBConfig() DBConfig {
	return c.DB
}

func (c Config) TimeoutConfig() TimeoutConfig {
	return c.Timeout
}
