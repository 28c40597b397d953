// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Training TrainingConfig `yaml:"training" mapstructure:"training"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ModelConfig configures the serving-side artifact.
type ModelConfig struct {
	ArtifactPath string  `yaml:"artifact_path" mapstructure:"artifact_path"`
	ContractPath string  `yaml:"contract_path" mapstructure:"contract_path"`
	Threshold    float64 `yaml:"threshold" mapstructure:"threshold"`
}

// TrainingConfig configures training runs.
type TrainingConfig struct {
	TestFraction float64 `yaml:"test_fraction" mapstructure:"test_fraction"`
	Seed         int64   `yaml:"seed" mapstructure:"seed"`
	MaxIter      int     `yaml:"max_iter" mapstructure:"max_iter"`
	Tolerance    float64 `yaml:"tolerance" mapstructure:"tolerance"`
}

// ServerConfig configures the prediction API server.
type ServerConfig struct {
	Port      int     `yaml:"port" mapstructure:"port"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	RateBurst int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ATTRITION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("model.artifact_path", "models/attrition_pipeline.json")
	v.SetDefault("model.threshold", 0.5)
	v.SetDefault("training.test_fraction", 0.20)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.max_iter", 1000)
	v.SetDefault("training.tolerance", 1e-6)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 50)
	v.SetDefault("server.rate_burst", 100)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that configuration required for the given mode is present.
// Modes: "train", "serve", "import", "predict", "status".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the sqlite driver")
		}
	default:
		problems = append(problems, "store.driver must be postgres or sqlite")
	}

	switch mode {
	case "train":
		if c.Model.ArtifactPath == "" {
			problems = append(problems, "model.artifact_path is required")
		}
		if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
			problems = append(problems, "training.test_fraction must be in (0, 1)")
		}
		if c.Training.MaxIter < 1 {
			problems = append(problems, "training.max_iter must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RateLimit <= 0 {
			problems = append(problems, "server.rate_limit must be > 0")
		}
		if c.Model.ArtifactPath == "" {
			problems = append(problems, "model.artifact_path is required")
		}
		if c.Model.Threshold <= 0 || c.Model.Threshold >= 1 {
			problems = append(problems, "model.threshold must be in (0, 1)")
		}
	case "predict":
		if c.Model.ArtifactPath == "" {
			problems = append(problems, "model.artifact_path is required")
		}
	case "import", "status":
		// Store checks above are sufficient.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
