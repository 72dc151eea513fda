package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     int
	LogLevel string
	DevMode  bool
	Engine   EngineConfig
}

// EngineConfig holds default parameters for the allocation engine. Every value
// can be overridden per request; these are the fallbacks when a caller omits
// them.
type EngineConfig struct {
	Tau                 float64 // Black-Litterman prior uncertainty scale
	ConditionThreshold  float64 // Covariance condition number triggering shrinkage
	FrontierPoints      int     // Number of risk-aversion levels swept for the frontier
	LambdaMax           float64 // Largest risk-aversion level in the sweep
	Trials              int     // Monte Carlo trial count
	Horizon             int     // Discrete time steps per trial
	Workers             int     // Simulation worker goroutines (0 = GOMAXPROCS)
	DecayHalfLife       float64 // Payoff half-life in steps (<= 0 disables decay)
	PercentileLow       float64
	PercentileHigh      float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvAsInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Engine: EngineConfig{
			Tau:                getEnvAsFloat("ENGINE_TAU", 0.05),
			ConditionThreshold: getEnvAsFloat("ENGINE_CONDITION_THRESHOLD", 1e8),
			FrontierPoints:     getEnvAsInt("ENGINE_FRONTIER_POINTS", 20),
			LambdaMax:          getEnvAsFloat("ENGINE_LAMBDA_MAX", 50.0),
			Trials:             getEnvAsInt("ENGINE_TRIALS", 10000),
			Horizon:            getEnvAsInt("ENGINE_HORIZON", 10),
			Workers:            getEnvAsInt("ENGINE_WORKERS", 0),
			DecayHalfLife:      getEnvAsFloat("ENGINE_DECAY_HALF_LIFE", 5.0),
			PercentileLow:      getEnvAsFloat("ENGINE_PERCENTILE_LOW", 0.05),
			PercentileHigh:     getEnvAsFloat("ENGINE_PERCENTILE_HIGH", 0.95),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Engine.Tau <= 0 {
		return fmt.Errorf("engine tau must be positive, got %f", c.Engine.Tau)
	}
	if c.Engine.Trials <= 0 {
		return fmt.Errorf("engine trials must be positive, got %d", c.Engine.Trials)
	}
	if c.Engine.Horizon <= 0 {
		return fmt.Errorf("engine horizon must be positive, got %d", c.Engine.Horizon)
	}
	if c.Engine.PercentileLow < 0 || c.Engine.PercentileHigh > 1 ||
		c.Engine.PercentileLow >= c.Engine.PercentileHigh {
		return fmt.Errorf("invalid percentile bounds [%f, %f]",
			c.Engine.PercentileLow, c.Engine.PercentileHigh)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
