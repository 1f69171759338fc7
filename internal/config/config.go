// Package config loads and validates engine configuration from YAML with
// environment overrides. Every knob has a default so the engine can run
// with no config file at all.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/optispark/tiercast/internal/domain"
	"github.com/optispark/tiercast/internal/ensemble"
)

// Config is the full engine configuration. Values are immutable after Load;
// components receive it by value and never consult ambient state.
type Config struct {
	Models  []string      `yaml:"models"`
	Tiers   TiersConfig   `yaml:"tiers"`
	Weights WeightsConfig `yaml:"weights"`
	Windows WindowsConfig `yaml:"windows"`
	Price   PriceConfig   `yaml:"price"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
}

// TiersConfig holds the label ladder and per-posture cut tables.
type TiersConfig struct {
	Labels          []string  `yaml:"labels"`
	LongTopCumPcts  []float64 `yaml:"long_top_cum_pcts"`
	ShortTopCumPcts []float64 `yaml:"short_top_cum_pcts"`
}

// WeightsConfig holds the ensemble weighting knobs.
type WeightsConfig struct {
	Temperature float64   `yaml:"temperature"`
	Floor       float64   `yaml:"floor"`
	Alpha       float64   `yaml:"alpha"`
	PriorLong   []float64 `yaml:"prior_long"`
	PriorShort  []float64 `yaml:"prior_short"`
}

// WindowsConfig holds the rolling and distribution lookback windows.
type WindowsConfig struct {
	RollPrimary      int `yaml:"roll_days_primary"`
	RollFallback     int `yaml:"roll_days_fallback"`
	MinHistory       int `yaml:"min_history"`
	DistLookbackDays int `yaml:"dist_lookback_days"`
	HardCapDays      int `yaml:"hard_cap_days"`
}

// PriceConfig identifies the reference instrument for compensation analysis.
type PriceConfig struct {
	Ticker string `yaml:"ticker"`
}

// StorageConfig holds database and cache connection settings.
type StorageConfig struct {
	DatabaseURL  string   `yaml:"database_url"`
	QueryTimeout Duration `yaml:"query_timeout"`
	RedisAddr    string   `yaml:"redis_addr"`
	CacheTTL     Duration `yaml:"cache_ttl"`
}

// ServerConfig holds the HTTP adapter settings.
type ServerConfig struct {
	Listen       string   `yaml:"listen"`
	RateLimit    float64  `yaml:"rate_limit"`
	RateBurst    int      `yaml:"rate_burst"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "10s"
// or bare integers interpreted as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Std converts to the standard library type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file or key is present.
// The model names and all numeric knobs mirror the production deployment.
func Default() Config {
	return Config{
		Models: []string{
			"Model1_Random_forest_OldFeature4",
			"Model5_TabNet",
			"Model3_RandomForest_Oldfeature4_treeandNNBlend",
		},
		Tiers: TiersConfig{
			Labels:          []string{"SSS", "SS", "S", "A+", "A", "B+", "B", "C+", "C", "D"},
			LongTopCumPcts:  []float64{1, 3, 7, 14, 24, 52, 69, 82, 93, 100},
			ShortTopCumPcts: []float64{0.1, 0.4, 1.4, 4.4, 21.4, 49.4, 66.4, 82.4, 93.4, 100},
		},
		Weights: WeightsConfig{
			Temperature: 10.0,
			Floor:       0.12,
			Alpha:       1.0,
			PriorLong:   []float64{0.40, 0.40, 0.20},
			PriorShort:  []float64{0.20, 0.20, 0.60},
		},
		Windows: WindowsConfig{
			RollPrimary:      60,
			RollFallback:     120,
			MinHistory:       30,
			DistLookbackDays: 180,
			HardCapDays:      730,
		},
		Price: PriceConfig{Ticker: "SPY"},
		Storage: StorageConfig{
			QueryTimeout: Duration(10 * time.Second),
			CacheTTL:     Duration(6 * time.Hour),
		},
		Server: ServerConfig{
			Listen:       ":8080",
			RateLimit:    10,
			RateBurst:    20,
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
		},
	}
}

// Load reads YAML from path over the defaults and applies environment
// overrides. An empty path skips the file and uses defaults only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("MODEL_NAMES"); v != "" {
		models := make([]string, 0, 4)
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		if len(models) > 0 {
			cfg.Models = models
		}
	}
}

// Validate rejects configurations with no sensible interpretation. Anything
// it passes can run end to end, possibly in a degraded mode.
func (c Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("config: model list is empty")
	}
	if len(c.Tiers.Labels) == 0 {
		return fmt.Errorf("config: tier label list is empty")
	}
	if len(c.Tiers.LongTopCumPcts) == 0 || len(c.Tiers.ShortTopCumPcts) == 0 {
		return fmt.Errorf("config: tier cut table is empty")
	}
	if len(c.Tiers.LongTopCumPcts) != len(c.Tiers.Labels) || len(c.Tiers.ShortTopCumPcts) != len(c.Tiers.Labels) {
		return fmt.Errorf("config: cut table length must match label count %d", len(c.Tiers.Labels))
	}
	if c.Weights.Temperature <= 0 {
		return fmt.Errorf("config: temperature must be positive, got %v", c.Weights.Temperature)
	}
	if c.Weights.Floor < 0 {
		return fmt.Errorf("config: weight floor must be non-negative, got %v", c.Weights.Floor)
	}
	if c.Weights.Floor*float64(len(c.Models)) > 1 {
		return fmt.Errorf("config: floor %v infeasible for %d models", c.Weights.Floor, len(c.Models))
	}
	if c.Weights.Alpha < 0 || c.Weights.Alpha > 1 {
		return fmt.Errorf("config: alpha must be in [0,1], got %v", c.Weights.Alpha)
	}
	if c.Windows.MinHistory < 0 || c.Windows.RollPrimary < 0 || c.Windows.RollFallback < 0 {
		return fmt.Errorf("config: rolling windows must be non-negative")
	}
	if c.Windows.DistLookbackDays <= 0 || c.Windows.HardCapDays <= 0 {
		return fmt.Errorf("config: distribution lookback windows must be positive")
	}
	return nil
}

// Rolling converts the window settings for the skill estimator.
func (c Config) Rolling() ensemble.RollingConfig {
	return ensemble.RollingConfig{
		Primary:    c.Windows.RollPrimary,
		Fallback:   c.Windows.RollFallback,
		MinHistory: c.Windows.MinHistory,
	}
}

// WeightCfg converts the weighting knobs for the ensemble combiner.
func (c Config) WeightCfg() ensemble.WeightConfig {
	return ensemble.WeightConfig{
		Temperature: c.Weights.Temperature,
		Floor:       c.Weights.Floor,
		Alpha:       c.Weights.Alpha,
	}
}

// Distribution converts the lookback settings for the distribution builder.
func (c Config) Distribution() ensemble.DistributionConfig {
	return ensemble.DistributionConfig{
		LookbackDays: c.Windows.DistLookbackDays,
		HardCapDays:  c.Windows.HardCapDays,
	}
}

// Priors returns the per-posture prior weight vectors.
func (c Config) Priors() map[domain.Posture][]float64 {
	return map[domain.Posture][]float64{
		domain.PostureLong:  c.Weights.PriorLong,
		domain.PostureShort: c.Weights.PriorShort,
	}
}

// Cuts returns the cut table for a posture.
func (c Config) Cuts(p domain.Posture) []float64 {
	if p == domain.PostureLong {
		return c.Tiers.LongTopCumPcts
	}
	return c.Tiers.ShortTopCumPcts
}
