package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Redis
	RedisURL     string `mapstructure:"REDIS_URL"`
	RedisEnabled bool   `mapstructure:"REDIS_ENABLED"`

	// External APIs
	FPLBaseURL              string        `mapstructure:"FPL_BASE_URL"`
	FPLRateLimit            float64       `mapstructure:"FPL_RATE_LIMIT"`
	ExternalAPITimeout      time.Duration `mapstructure:"EXTERNAL_API_TIMEOUT"`
	CircuitBreakerThreshold int           `mapstructure:"CIRCUIT_BREAKER_THRESHOLD"`

	// Data refresh
	DataRefreshInterval time.Duration `mapstructure:"DATA_REFRESH_INTERVAL"`
	SnapshotTTL         time.Duration `mapstructure:"SNAPSHOT_TTL"`
	FixtureHorizon      int           `mapstructure:"FIXTURE_HORIZON"`

	// Squad rules
	BudgetCap         float64 `mapstructure:"BUDGET_CAP"`
	MaxPlayersPerClub int     `mapstructure:"MAX_PLAYERS_PER_CLUB"`

	// Transfers
	TransferLimit int `mapstructure:"TRANSFER_LIMIT"`
	FreeTransfers int `mapstructure:"FREE_TRANSFERS"`

	// Optimization
	SolverTimeout      time.Duration `mapstructure:"SOLVER_TIMEOUT"`
	SolverMode         string        `mapstructure:"SOLVER_MODE"`
	Normalization      string        `mapstructure:"NORMALIZATION"`
	MinMinutes         int           `mapstructure:"MIN_MINUTES"`
	MinChanceOfPlaying int           `mapstructure:"MIN_CHANCE_OF_PLAYING"`

	// Optional file with per-strategy weight overrides
	StrategyWeightsFile string                        `mapstructure:"STRATEGY_WEIGHTS_FILE"`
	StrategyWeights     map[string]map[string]float64 `mapstructure:"-"`
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("FPL_BASE_URL", "https://fantasy.premierleague.com/api")
	v.SetDefault("FPL_RATE_LIMIT", 2.0) // requests per second
	v.SetDefault("EXTERNAL_API_TIMEOUT", "30s")
	v.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 5)
	v.SetDefault("DATA_REFRESH_INTERVAL", "2h")
	v.SetDefault("SNAPSHOT_TTL", "1h")
	v.SetDefault("FIXTURE_HORIZON", 5)
	v.SetDefault("BUDGET_CAP", 100.0)
	v.SetDefault("MAX_PLAYERS_PER_CLUB", 3)
	v.SetDefault("TRANSFER_LIMIT", 1)
	v.SetDefault("FREE_TRANSFERS", 1)
	v.SetDefault("SOLVER_TIMEOUT", "10s")
	v.SetDefault("SOLVER_MODE", "exact")
	v.SetDefault("NORMALIZATION", "minmax")
	v.SetDefault("MIN_MINUTES", 300)
	v.SetDefault("MIN_CHANCE_OF_PLAYING", 75)
	v.SetDefault("STRATEGY_WEIGHTS_FILE", "")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	if config.StrategyWeightsFile != "" {
		weights, err := LoadStrategyWeights(config.StrategyWeightsFile)
		if err != nil {
			return nil, err
		}
		config.StrategyWeights = weights
	}

	return &config, nil
}

// LoadStrategyWeights reads per-strategy weight overrides from a yaml, toml or
// json file shaped as {strategies: {<strategy>: {<metric>: weight}}}.
func LoadStrategyWeights(path string) (map[string]map[string]float64, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read strategy weights file %s: %w", path, err)
	}

	weights := make(map[string]map[string]float64)
	if err := v.UnmarshalKey("strategies", &weights); err != nil {
		return nil, fmt.Errorf("failed to decode strategy weights: %w", err)
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("strategy weights file %s defines no strategies", path)
	}

	normalized := make(map[string]map[string]float64, len(weights))
	for strategy, vector := range weights {
		normalized[strings.ToLower(strategy)] = vector
	}
	return normalized, nil
}

func (c *Config) validate() error {
	if c.BudgetCap <= 0 {
		return fmt.Errorf("BUDGET_CAP must be positive, got %v", c.BudgetCap)
	}
	if c.MaxPlayersPerClub <= 0 {
		return fmt.Errorf("MAX_PLAYERS_PER_CLUB must be positive, got %d", c.MaxPlayersPerClub)
	}
	if c.TransferLimit < 0 {
		return fmt.Errorf("TRANSFER_LIMIT cannot be negative, got %d", c.TransferLimit)
	}
	if c.FreeTransfers < 0 {
		return fmt.Errorf("FREE_TRANSFERS cannot be negative, got %d", c.FreeTransfers)
	}
	if c.FixtureHorizon <= 0 {
		return fmt.Errorf("FIXTURE_HORIZON must be positive, got %d", c.FixtureHorizon)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
