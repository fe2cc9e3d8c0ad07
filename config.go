package xmat

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the Mapper settings an application may want to keep outside
// code. Every key can be overridden by an XMAT_-prefixed environment
// variable (XMAT_FOLD_CASE, XMAT_TAG, XMAT_LOG_LEVEL, XMAT_DRIVER).
// Driver is a database/sql driver name; it picks the placeholder style of
// Named (see PlaceholderFor).
type Config struct {
	FoldCase bool   `mapstructure:"fold_case"`
	Tag      string `mapstructure:"tag"`
	LogLevel string `mapstructure:"log_level"`
	Driver   string `mapstructure:"driver"`
}

// LoadConfig reads path (any format viper understands) when it is not empty,
// then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("fold_case", false)
	v.SetDefault("tag", "db")
	v.SetDefault("log_level", "info")
	v.SetDefault("driver", "")

	v.SetEnvPrefix("XMAT")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("xmat: failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("xmat: failed to unmarshal config: %w", err)
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("xmat: invalid log_level %q: %w", cfg.LogLevel, err)
	}
	return &cfg, nil
}

// Options converts the config into Mapper options. The logger is a zap
// production logger at the configured level.
func (c *Config) Options() ([]Option, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("xmat: invalid log_level %q: %w", c.LogLevel, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("xmat: failed to build logger: %w", err)
	}
	return []Option{
		WithLogger(logger.Named("xmat")),
		WithFoldCase(c.FoldCase),
		WithTag(c.Tag),
		WithPlaceholder(PlaceholderFor(c.Driver)),
	}, nil
}

// NewMapperFromConfig is NewMapper(cfg.Options()...).
func NewMapperFromConfig(cfg *Config) (*Mapper, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return NewMapper(opts...), nil
}
