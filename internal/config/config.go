// Package config loads the analytics configuration surface: snapshot depth,
// price bands, window bounds, regression thresholds, shock sensitivity, and
// the metric computation cadence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CadenceConfig controls when the analytics service computes a MetricRecord.
type CadenceConfig struct {
	// Mode is one of "every_event", "every_n", "interval".
	Mode     string        `mapstructure:"mode" yaml:"mode"`
	Every    int           `mapstructure:"every" yaml:"every"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// LiquidityWeightsConfig weights the liquidity-score terms.
type LiquidityWeightsConfig struct {
	Depth  float64 `mapstructure:"depth" yaml:"depth"`
	Spread float64 `mapstructure:"spread" yaml:"spread"`
}

// Config is the full configuration surface. All defaults are implementation
// choices (the source material leaves them open); see Default.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// SnapshotDepth is the top-N levels per side captured in snapshots.
	SnapshotDepth int `mapstructure:"snapshot_depth" yaml:"snapshot_depth"`
	// PriceBand bounds depth/imbalance aggregation, in price units from best.
	PriceBand float64 `mapstructure:"price_band" yaml:"price_band"`

	// WindowCount / WindowDuration bound the rolling history. Zero disables
	// the respective bound; both zero is rejected.
	WindowCount    int           `mapstructure:"window_count" yaml:"window_count"`
	WindowDuration time.Duration `mapstructure:"window_duration" yaml:"window_duration"`

	// MinRegressionSamples gates Kyle's lambda.
	MinRegressionSamples int `mapstructure:"min_regression_samples" yaml:"min_regression_samples"`

	// ShockTrailing/ShockSigma parameterize spread-shock detection
	// (spread > mean + sigma*stddev over the trailing observations);
	// ResilienceEpsilon is the recovery tolerance.
	ShockTrailing     int     `mapstructure:"shock_trailing" yaml:"shock_trailing"`
	ShockSigma        float64 `mapstructure:"shock_sigma" yaml:"shock_sigma"`
	ResilienceEpsilon float64 `mapstructure:"resilience_epsilon" yaml:"resilience_epsilon"`

	Cadence          CadenceConfig          `mapstructure:"cadence" yaml:"cadence"`
	LiquidityWeights LiquidityWeightsConfig `mapstructure:"liquidity_weights" yaml:"liquidity_weights"`

	// StaleTimeout triggers StaleDataWarning when no update arrives.
	StaleTimeout time.Duration `mapstructure:"stale_timeout" yaml:"stale_timeout"`

	// StressVolume is the hypothetical volume the liquidity coverage ratio
	// measures the book's visible depth against.
	StressVolume float64 `mapstructure:"stress_volume" yaml:"stress_volume"`

	// ImpactHorizon separates permanent from temporary market impact.
	ImpactHorizon time.Duration `mapstructure:"impact_horizon" yaml:"impact_horizon"`
	// ReferenceOrderSize is the hypothetical order size used for the
	// per-record price impact metrics.
	ReferenceOrderSize float64 `mapstructure:"reference_order_size" yaml:"reference_order_size"`
}

// Cadence modes.
const (
	CadenceEveryEvent = "every_event"
	CadenceEveryN     = "every_n"
	CadenceInterval   = "interval"
)

// Default returns the documented default configuration.
func Default() *Config {
	return &Config{
		LogLevel:             "info",
		SnapshotDepth:        20,
		PriceBand:            1.0,
		WindowCount:          1000,
		WindowDuration:       5 * time.Minute,
		MinRegressionSamples: 10,
		ShockTrailing:        20,
		ShockSigma:           3.0,
		ResilienceEpsilon:    0.01,
		Cadence: CadenceConfig{
			Mode:     CadenceEveryEvent,
			Every:    10,
			Interval: time.Second,
		},
		LiquidityWeights: LiquidityWeightsConfig{
			Depth:  0.7,
			Spread: 0.3,
		},
		StaleTimeout:       5 * time.Second,
		StressVolume:       10000.0,
		ImpactHorizon:      5 * time.Second,
		ReferenceOrderSize: 1.0,
	}
}

// Load reads configuration from an optional yaml file, overridden by
// BOOKWATCH_* environment variables, on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOOKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("snapshot_depth", defaults.SnapshotDepth)
	v.SetDefault("price_band", defaults.PriceBand)
	v.SetDefault("window_count", defaults.WindowCount)
	v.SetDefault("window_duration", defaults.WindowDuration)
	v.SetDefault("min_regression_samples", defaults.MinRegressionSamples)
	v.SetDefault("shock_trailing", defaults.ShockTrailing)
	v.SetDefault("shock_sigma", defaults.ShockSigma)
	v.SetDefault("resilience_epsilon", defaults.ResilienceEpsilon)
	v.SetDefault("cadence.mode", defaults.Cadence.Mode)
	v.SetDefault("cadence.every", defaults.Cadence.Every)
	v.SetDefault("cadence.interval", defaults.Cadence.Interval)
	v.SetDefault("liquidity_weights.depth", defaults.LiquidityWeights.Depth)
	v.SetDefault("liquidity_weights.spread", defaults.LiquidityWeights.Spread)
	v.SetDefault("stale_timeout", defaults.StaleTimeout)
	v.SetDefault("stress_volume", defaults.StressVolume)
	v.SetDefault("impact_horizon", defaults.ImpactHorizon)
	v.SetDefault("reference_order_size", defaults.ReferenceOrderSize)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the analytics service cannot run with.
func (c *Config) Validate() error {
	if c.SnapshotDepth <= 0 {
		return fmt.Errorf("snapshot_depth must be positive, got %d", c.SnapshotDepth)
	}
	if c.PriceBand <= 0 {
		return fmt.Errorf("price_band must be positive, got %g", c.PriceBand)
	}
	if c.WindowCount <= 0 && c.WindowDuration <= 0 {
		return fmt.Errorf("window_count and window_duration cannot both be unbounded")
	}
	if c.MinRegressionSamples < 2 {
		return fmt.Errorf("min_regression_samples must be at least 2, got %d", c.MinRegressionSamples)
	}
	if c.ShockTrailing < 2 {
		return fmt.Errorf("shock_trailing must be at least 2, got %d", c.ShockTrailing)
	}
	if c.ShockSigma <= 0 {
		return fmt.Errorf("shock_sigma must be positive, got %g", c.ShockSigma)
	}
	if c.StressVolume <= 0 {
		return fmt.Errorf("stress_volume must be positive, got %g", c.StressVolume)
	}
	switch c.Cadence.Mode {
	case CadenceEveryEvent:
	case CadenceEveryN:
		if c.Cadence.Every <= 0 {
			return fmt.Errorf("cadence.every must be positive in every_n mode, got %d", c.Cadence.Every)
		}
	case CadenceInterval:
		if c.Cadence.Interval <= 0 {
			return fmt.Errorf("cadence.interval must be positive in interval mode")
		}
	default:
		return fmt.Errorf("unknown cadence mode %q", c.Cadence.Mode)
	}
	return nil
}
